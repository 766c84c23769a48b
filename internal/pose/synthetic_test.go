package pose_test

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"

	"posecoach/internal/geometry"
	"posecoach/internal/pose"
)

func TestLegPoseProducesRequestedAngle(t *testing.T) {
	for _, want := range []float64{90, 120, 179} {
		p := pose.LegPose(want, 0.5, 0.9)
		got := geometry.Angle(p.At(pose.LeftHip), p.At(pose.LeftKnee), p.At(pose.LeftAnkle))
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("LegPose(%v) left angle = %v", want, got)
		}
		if pose.KneeSet.Right.Confidence(p) <= pose.KneeSet.Left.Confidence(p) {
			t.Fatal("expected right leg to be more confident")
		}
	}
}

func TestSyntheticSourceDropsAndEnds(t *testing.T) {
	opts := pose.DefaultSyntheticOptions()
	opts.FPS = 0
	opts.Frames = 6
	opts.DropEvery = 3
	src := pose.NewSyntheticSource(opts)

	var detected, missing int
	for {
		p, err := src.Estimate(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Estimate: %v", err)
		}
		if p == nil {
			missing++
		} else {
			detected++
		}
	}
	if detected != 4 || missing != 2 {
		t.Fatalf("detected=%d missing=%d, want 4 and 2", detected, missing)
	}
}

func TestSyntheticSourceIsDeterministic(t *testing.T) {
	opts := pose.DefaultSyntheticOptions()
	opts.FPS = 0
	a := pose.NewSyntheticSource(opts)
	b := pose.NewSyntheticSource(opts)
	for i := 0; i < 10; i++ {
		pa, _ := a.Estimate(context.Background())
		pb, _ := b.Estimate(context.Background())
		if *pa != *pb {
			t.Fatalf("frame %d differs", i)
		}
	}
}
