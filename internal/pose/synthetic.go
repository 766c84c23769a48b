package pose

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"time"
)

// SyntheticOptions shapes the generated squat motion.
type SyntheticOptions struct {
	// FPS paces frames; 0 generates them back to back.
	FPS float64
	// Frames stops the stream after this many frames; 0 runs until canceled.
	Frames int
	// Period is the length of one repetition in frames.
	Period int
	// Depth is the knee flexion at the bottom of a repetition, in degrees.
	Depth float64
	// Jitter is the peak random wobble added to each frame, in degrees.
	Jitter float64
	// DropEvery reports no detection on every Nth frame when > 0.
	DropEvery int
	Seed      uint64
}

// DefaultSyntheticOptions mirrors a steady bodyweight squat at 30 fps.
func DefaultSyntheticOptions() SyntheticOptions {
	return SyntheticOptions{
		FPS:    30,
		Period: 90,
		Depth:  80,
		Jitter: 3,
		Seed:   1,
	}
}

// SyntheticSource generates deterministic lower-body poses for demos and
// tests. The right leg is reported with slightly higher confidence.
type SyntheticSource struct {
	opts  SyntheticOptions
	rng   *rand.Rand
	frame int
	next  time.Time
}

// NewSyntheticSource builds a synthetic source.
func NewSyntheticSource(opts SyntheticOptions) *SyntheticSource {
	if opts.Period <= 0 {
		opts.Period = 90
	}
	return &SyntheticSource{
		opts: opts,
		rng:  rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
	}
}

// Estimate implements Source.
func (s *SyntheticSource) Estimate(ctx context.Context) (*Pose, error) {
	if s.opts.Frames > 0 && s.frame >= s.opts.Frames {
		return nil, io.EOF
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.frame++
	if s.opts.DropEvery > 0 && s.frame%s.opts.DropEvery == 0 {
		return nil, nil
	}

	phase := 2 * math.Pi * float64(s.frame%s.opts.Period) / float64(s.opts.Period)
	flex := s.opts.Depth * (1 - math.Cos(phase)) / 2
	wobble := 0.0
	if s.opts.Jitter > 0 {
		wobble = (s.rng.Float64()*2 - 1) * s.opts.Jitter
	}
	return LegPose(180-flex+wobble, 0.9, 0.95), nil
}

func (s *SyntheticSource) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.opts.FPS <= 0 {
		return nil
	}
	interval := time.Duration(float64(time.Second) / s.opts.FPS)
	now := time.Now()
	if s.next.IsZero() {
		s.next = now
	}
	wait := s.next.Sub(now)
	s.next = s.next.Add(interval)
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

// LegPose builds a pose whose hip-knee-ankle angle equals kneeAngle degrees on
// both legs, with the given per-joint confidences for the left and right leg.
func LegPose(kneeAngle, leftConf, rightConf float64) *Pose {
	const segment = 120.0
	theta := kneeAngle * math.Pi / 180
	p := &Pose{}
	place := func(hip, knee, ankle Joint, x, conf float64) {
		kx, ky := x, 300.0
		p.Keypoints[hip] = Point{X: kx, Y: ky - segment, Confidence: conf}
		p.Keypoints[knee] = Point{X: kx, Y: ky, Confidence: conf}
		p.Keypoints[ankle] = Point{
			X:          kx + segment*math.Sin(theta),
			Y:          ky - segment*math.Cos(theta),
			Confidence: conf,
		}
	}
	place(LeftHip, LeftKnee, LeftAnkle, 280, leftConf)
	place(RightHip, RightKnee, RightAnkle, 360, rightConf)
	p.Keypoints[LeftShoulder] = Point{X: 280, Y: 60, Confidence: leftConf}
	p.Keypoints[RightShoulder] = Point{X: 360, Y: 60, Confidence: rightConf}
	return p
}
