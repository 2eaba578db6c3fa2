package encoder

import (
	"strconv"
	"strings"
)

// ColorTransform selects the color space cjxl encodes in.
type ColorTransform int

// Values follow the multipart ColorTransform field: 0=XYB, 1=YCbCr, 2=None.
const (
	ColorXYB ColorTransform = iota
	ColorYCbCr
	ColorNone
)

func (c ColorTransform) String() string {
	switch c {
	case ColorXYB:
		return "xyb"
	case ColorYCbCr:
		return "ycbcr"
	case ColorNone:
		return "none"
	default:
		return "unknown(" + strconv.Itoa(int(c)) + ")"
	}
}

// Valid reports whether c is one of the known transforms.
func (c ColorTransform) Valid() bool {
	return c >= ColorXYB && c <= ColorNone
}

// cjxlValue is libjxl's frame setting numbering (0=XYB, 1=none, 2=YCbCr).
func (c ColorTransform) cjxlValue() int {
	switch c {
	case ColorNone:
		return 1
	case ColorYCbCr:
		return 2
	default:
		return 0
	}
}

// Options are the user-facing encode settings.
type Options struct {
	Quality            int // 0–100, lossy only
	Effort             int // 1–9
	Lossless           bool
	Progressive        bool
	JpegReconstruction bool // JPEG input + Lossless only
	ColorTransform     ColorTransform
}

// DefaultOptions mirrors the defaults of the compress endpoint.
func DefaultOptions() Options {
	return Options{
		Quality:     90,
		Effort:      7,
		Progressive: true,
	}
}

const (
	// OutputExtension is appended to every encoded artifact.
	OutputExtension = ".jxl"
	// OutputContentType is served with every downloaded artifact.
	OutputContentType = "image/jxl"
)

// reconstructionFailureMarker is what cjxl prints when a JPEG cannot be
// transcoded with bitstream reconstruction data.
const reconstructionFailureMarker = "JPEG bitstream reconstruction data could not be created"

// IsReconstructionFailure reports whether cjxl stderr signals that the
// lossless JPEG transcode failed and a fallback encode should be tried.
func IsReconstructionFailure(stderr string) bool {
	return strings.Contains(stderr, reconstructionFailureMarker)
}

// BuildArgs returns the cjxl argument list for one encode attempt.
// mediaType is the declared type of the original upload, not of any
// intermediate file. fallback forces a plain quality 100 encode with JPEG
// reconstruction disabled.
func BuildArgs(opts Options, mediaType, input, output string, fallback bool) []string {
	args := []string{input, output}
	jpeg := NormalizeMediaType(mediaType) == MediaJPEG

	switch {
	case opts.Lossless && jpeg && fallback:
		args = append(args, "-q", "100", "--allow_jpeg_reconstruction", "0")
	case opts.Lossless && jpeg && opts.JpegReconstruction:
		args = append(args, "--lossless_jpeg=1")
	case opts.Lossless:
		args = append(args, "-q", "100")
	default:
		args = append(args, "-q", strconv.Itoa(opts.Quality))
	}

	args = append(args, "--effort", strconv.Itoa(opts.Effort))
	if opts.Progressive {
		args = append(args, "--progressive")
	}
	if opts.ColorTransform != ColorXYB {
		args = append(args, "--color_transform="+strconv.Itoa(opts.ColorTransform.cjxlValue()))
	}
	return args
}
