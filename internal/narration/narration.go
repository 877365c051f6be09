// Package narration converts step script text into synthesized audio
// with a frame-count duration.
package narration

import (
	"context"
	"math"
	"time"
)

// Result is a successful synthesis: a stored audio reference and its
// length in video frames.
type Result struct {
	AudioURL       string
	DurationFrames int
}

// Synthesizer converts narration text to audio. Synthesis failure is an
// error the caller degrades on; it must never fail the surrounding
// operation.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*Result, error)
}

// FramesFor converts an audio duration to whole frames at the given
// frame rate, rounding up so narration never gets cut off.
func FramesFor(d time.Duration, fps int) int {
	return int(math.Ceil(d.Seconds() * float64(fps)))
}
