package analysis

import (
	"errors"
	"fmt"
)

// User-facing messages.
const (
	MsgUnsupportedType = "Please upload only JPG or PNG images."
	MsgNoImage         = "Please upload an image first."
	MsgAnalysisFailed  = "Failed to analyze image. Please try again."
)

var (
	// ErrUnsupportedType rejects a file whose declared MIME type is not allowed.
	ErrUnsupportedType = errors.New("unsupported image type")
	// ErrTooLarge rejects a file above the size limit.
	ErrTooLarge = errors.New("image too large")
	// ErrNoImage is returned by Submit when nothing has been selected.
	ErrNoImage = errors.New("no image selected")
	// ErrAnalysisInProgress is returned while a request is in flight.
	ErrAnalysisInProgress = errors.New("analysis already in progress")
	// ErrSuperseded is returned when a verdict arrives for an image that
	// was reset or replaced while the request was in flight.
	ErrSuperseded = errors.New("analysis superseded by a newer selection")
)

func tooLargeMessage(maxBytes int64) string {
	return "File size too large. Please upload an image smaller than " + sizeLimit(maxBytes) + "."
}

// sizeLimit renders a byte limit in the largest unit that divides it.
func sizeLimit(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%dKB", n>>10)
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
