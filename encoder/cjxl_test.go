package encoder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func contains(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func TestBuildArgsLosslessJpegTranscode(t *testing.T) {
	opts := DefaultOptions()
	opts.Lossless = true
	opts.JpegReconstruction = true

	args := BuildArgs(opts, MediaJPEG, "in.jpg", "out.jxl", false)

	assert.Equal(t, []string{"in.jpg", "out.jxl", "--lossless_jpeg=1", "--effort", "7", "--progressive"}, args)
	assert.False(t, contains(args, "-q"))
}

func TestBuildArgsPngLossy(t *testing.T) {
	opts := Options{Quality: 80, Effort: 5, Progressive: true}

	args := BuildArgs(opts, MediaPNG, "in.png", "out.jxl", false)

	assert.Equal(t, []string{"in.png", "out.jxl", "-q", "80", "--effort", "5", "--progressive"}, args)
}

func TestBuildArgsFallbackDisablesReconstruction(t *testing.T) {
	for _, reconstruct := range []bool{true, false} {
		opts := DefaultOptions()
		opts.Lossless = true
		opts.JpegReconstruction = reconstruct

		args := BuildArgs(opts, MediaJPEG, "in", "out", true)

		assert.Equal(t, []string{"in", "out", "-q", "100", "--allow_jpeg_reconstruction", "0", "--effort", "7", "--progressive"}, args)
		assert.False(t, contains(args, "--lossless_jpeg=1"))
	}
}

func TestBuildArgsLosslessIgnoresQuality(t *testing.T) {
	mediaTypes := []string{MediaJPEG, MediaPNG, MediaGIF, "image/bmp"}
	for _, mt := range mediaTypes {
		for _, fallback := range []bool{false, true} {
			for _, reconstruct := range []bool{false, true} {
				opts := Options{Quality: 42, Effort: 3, Lossless: true, JpegReconstruction: reconstruct}
				args := BuildArgs(opts, mt, "in", "out", fallback)
				joined := strings.Join(args, " ")

				assert.NotContains(t, joined, "-q 42", "%s fallback=%v", mt, fallback)
				assert.Contains(t, joined, "--effort 3")
				if contains(args, "--lossless_jpeg=1") {
					assert.False(t, contains(args, "-q"), "lossless_jpeg and -q are exclusive")
				}
			}
		}
	}
}

func TestBuildArgsNonJpegLosslessUsesQuality100(t *testing.T) {
	opts := Options{Effort: 9, Lossless: true, JpegReconstruction: true}

	args := BuildArgs(opts, MediaPNG, "in", "out", true)

	assert.Equal(t, []string{"in", "out", "-q", "100", "--effort", "9"}, args)
}

func TestBuildArgsEffortVerbatim(t *testing.T) {
	for effort := 1; effort <= 9; effort++ {
		args := BuildArgs(Options{Quality: 50, Effort: effort}, MediaPNG, "in", "out", false)
		assert.Equal(t, []string{"--effort", string(rune('0' + effort))}, args[4:6])
	}
}

func TestBuildArgsColorTransform(t *testing.T) {
	cases := []struct {
		transform ColorTransform
		want      string
	}{
		{ColorYCbCr, "--color_transform=2"},
		{ColorNone, "--color_transform=1"},
	}
	for _, tc := range cases {
		opts := Options{Quality: 90, Effort: 7, ColorTransform: tc.transform}
		args := BuildArgs(opts, MediaPNG, "in", "out", false)
		assert.Equal(t, tc.want, args[len(args)-1], tc.transform.String())
	}

	args := BuildArgs(Options{Quality: 90, Effort: 7}, MediaPNG, "in", "out", false)
	for _, a := range args {
		assert.False(t, strings.HasPrefix(a, "--color_transform"), "default XYB emits no selector")
	}
}

func TestIsReconstructionFailure(t *testing.T) {
	assert.True(t, IsReconstructionFailure("JPEG XL encoder v0.10\nJPEG bitstream reconstruction data could not be created. Possibly there is too much tail data.\n"))
	assert.False(t, IsReconstructionFailure("Getting pixel data failed."))
	assert.False(t, IsReconstructionFailure(""))
}

func TestColorTransformValid(t *testing.T) {
	assert.True(t, ColorXYB.Valid())
	assert.True(t, ColorNone.Valid())
	assert.False(t, ColorTransform(7).Valid())
	assert.Equal(t, "unknown(7)", ColorTransform(7).String())
}
