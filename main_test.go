package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jxlpress/encoder"
)

func TestRootCommandWiring(t *testing.T) {
	root := newRootCommand()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["encode"])
	assert.NotNil(t, root.RunE, "bare invocation serves")
}

func TestEncodeFlagDefaults(t *testing.T) {
	cmd := newEncodeCommand(nil)

	for flag, want := range map[string]string{
		"quality":             "90",
		"effort":              "7",
		"lossless":            "false",
		"progressive":         "true",
		"jpeg-reconstruction": "false",
		"color-transform":     "0",
		"out":                 "",
	} {
		f := cmd.Flags().Lookup(flag)
		require.NotNil(t, f, flag)
		assert.Equal(t, want, f.DefValue, flag)
	}
}

func TestEncodeRejectsBadColorTransform(t *testing.T) {
	cmd := newEncodeCommand(nil)
	cmd.SetArgs([]string{"--color-transform", "7", "in.png"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --color-transform")
}

func TestMediaTypeForExt(t *testing.T) {
	assert.Equal(t, encoder.MediaJPEG, mediaTypeForExt(".JPG"))
	assert.Equal(t, encoder.MediaPNG, mediaTypeForExt(".png"))
	assert.Equal(t, encoder.MediaEXR, mediaTypeForExt(".exr"))
	assert.Equal(t, "", mediaTypeForExt(".bmp"))
}
