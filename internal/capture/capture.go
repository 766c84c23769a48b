package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"time"
)

var (
	// ErrNoSurface is returned when there is nothing to sample.
	ErrNoSurface = errors.New("no capture surface")
	// ErrInvalidParams is returned for non-positive or non-finite seconds/fps.
	ErrInvalidParams = errors.New("invalid capture parameters")
	// ErrNoFrames is returned when seconds*fps rounds down to zero frames.
	ErrNoFrames = errors.New("capture would contain no frames")
	// ErrCaptureInProgress is returned when an export is already running.
	ErrCaptureInProgress = errors.New("capture already in progress")
)

// Surface is anything that can hand out a copy of its current pixels.
type Surface interface {
	Snapshot() (*image.RGBA, error)
}

// Plan computes the frame count floor(seconds*fps) and the sampling interval
// 1000/fps milliseconds.
func Plan(seconds, fps float64) (int, time.Duration, error) {
	if !finitePositive(seconds) || !finitePositive(fps) {
		return 0, 0, fmt.Errorf("%w: seconds=%v fps=%v", ErrInvalidParams, seconds, fps)
	}
	frames := math.Floor(seconds * fps)
	if frames < 1 {
		return 0, 0, fmt.Errorf("%w: seconds=%v fps=%v", ErrNoFrames, seconds, fps)
	}
	if frames > MaxFrames {
		return 0, 0, fmt.Errorf("%w: %v frames exceeds limit of %d", ErrInvalidParams, frames, MaxFrames)
	}
	interval := time.Duration(float64(time.Second) / fps)
	return int(frames), interval, nil
}

// MaxFrames bounds a single capture's buffer.
const MaxFrames = 3000

// MaxScale bounds the integer upscale applied when encoding.
const MaxScale = 8

// CheckScale rejects an upscale factor above MaxScale. Values below 1 mean
// no upscaling.
func CheckScale(scale int) error {
	if scale > MaxScale {
		return fmt.Errorf("%w: scale %d exceeds limit of %d", ErrInvalidParams, scale, MaxScale)
	}
	return nil
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Option tunes a capture.
type Option func(*options)

type options struct {
	progress func(done, total int)
}

// WithProgress is called after every sampled frame.
func WithProgress(fn func(done, total int)) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// Capture samples surface frameCount times. Frame i is taken at
// start + i*interval and each sample is followed by a wait until the next
// slot, so the call lasts at least frameCount*interval. Cancellation is
// observed between samples; a cancelled capture returns no frames.
func Capture(ctx context.Context, surface Surface, seconds, fps float64, opts ...Option) ([]*image.RGBA, error) {
	if surface == nil {
		return nil, ErrNoSurface
	}
	frameCount, interval, err := Plan(seconds, fps)
	if err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	frames := make([]*image.RGBA, 0, frameCount)
	start := time.Now()
	for i := range frameCount {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame, err := surface.Snapshot()
		if err != nil {
			return nil, fmt.Errorf("sample frame %d: %w: %w", i, ErrNoSurface, err)
		}
		if frame == nil || frame.Bounds().Empty() {
			return nil, fmt.Errorf("sample frame %d: %w", i, ErrNoSurface)
		}
		frames = append(frames, frame)
		if o.progress != nil {
			o.progress(i+1, frameCount)
		}
		if err := sleepUntil(ctx, start.Add(time.Duration(i+1)*interval)); err != nil {
			return nil, err
		}
	}
	return frames, nil
}

func sleepUntil(ctx context.Context, deadline time.Time) error {
	wait := time.Until(deadline)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
