package encoder

import "strings"

// Media types with special handling.
const (
	MediaJPEG = "image/jpeg"
	MediaPNG  = "image/png"
	MediaGIF  = "image/gif"
	MediaEXR  = "image/x-exr"
)

// IntermediateExtension is the format unsupported uploads are converted to.
const IntermediateExtension = ".png"

// nativeTypes are the inputs cjxl reads without a conversion step.
var nativeTypes = map[string]struct{}{
	MediaJPEG: {},
	MediaPNG:  {},
	MediaGIF:  {},
	MediaEXR:  {},
}

// IsNative reports whether cjxl accepts mediaType directly.
// Parameters such as "; charset=" are ignored.
func IsNative(mediaType string) bool {
	_, ok := nativeTypes[NormalizeMediaType(mediaType)]
	return ok
}

// NormalizeMediaType lowercases mediaType and strips any parameters.
func NormalizeMediaType(mediaType string) string {
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// ConverterArgs returns the ffmpeg argument list converting input to output.
// The output format follows output's extension.
func ConverterArgs(input, output string) []string {
	return []string{"-i", input, output}
}
