package pose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotReady reports that the estimator cannot produce a result yet. The
// frame loop retries on its next tick.
var ErrNotReady = errors.New("pose source not ready")

// Source estimates at most one pose per call. A nil Pose with a nil error means
// no subject was detected in that frame. io.EOF ends the stream.
type Source interface {
	Estimate(ctx context.Context) (*Pose, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (*Pose, error)

// Estimate implements Source.
func (f SourceFunc) Estimate(ctx context.Context) (*Pose, error) {
	return f(ctx)
}

type wireKeypoint struct {
	Name  string   `json:"name"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Score *float64 `json:"score"`
}

type wirePose struct {
	Score     float64        `json:"score"`
	Keypoints []wireKeypoint `json:"keypoints"`
}

type wireFrame struct {
	Status    string         `json:"status,omitempty"`
	Error     string         `json:"error,omitempty"`
	Poses     []wirePose     `json:"poses"`
	Keypoints []wireKeypoint `json:"keypoints,omitempty"`
}

// DecodeFrame parses one estimator output line. Keypoints are matched by name
// when present and by position otherwise. Only the first pose is used.
func DecodeFrame(line []byte) (*Pose, error) {
	var frame wireFrame
	if err := json.Unmarshal(line, &frame); err != nil {
		return nil, fmt.Errorf("decode pose frame: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(frame.Status)) {
	case "", "ok":
	case "loading", "not_ready", "warming_up":
		return nil, ErrNotReady
	default:
		return nil, fmt.Errorf("pose frame status %q: %w", frame.Status, ErrNotReady)
	}
	if msg := strings.TrimSpace(frame.Error); msg != "" {
		return nil, fmt.Errorf("estimator error %q: %w", msg, ErrNotReady)
	}

	keypoints := frame.Keypoints
	if len(frame.Poses) > 0 {
		keypoints = frame.Poses[0].Keypoints
	}
	if len(keypoints) == 0 {
		return nil, nil
	}

	p := &Pose{}
	for i, kp := range keypoints {
		idx := Joint(i)
		if kp.Name != "" {
			named, ok := JointByName(kp.Name)
			if !ok {
				continue
			}
			idx = named
		} else if i >= NumJoints {
			break
		}
		pt := Point{X: kp.X, Y: kp.Y}
		if kp.Score != nil {
			pt.Confidence = *kp.Score
		}
		p.Keypoints[idx] = pt
	}
	return p, nil
}

// EncodeFrame renders p in the line format DecodeFrame reads. A nil pose
// encodes a frame without detections.
func EncodeFrame(p *Pose) ([]byte, error) {
	frame := wireFrame{Poses: []wirePose{}}
	if p != nil {
		wp := wirePose{Keypoints: make([]wireKeypoint, 0, NumJoints)}
		var total float64
		for i, pt := range p.Keypoints {
			score := pt.Confidence
			total += score
			wp.Keypoints = append(wp.Keypoints, wireKeypoint{
				Name:  Joint(i).String(),
				X:     pt.X,
				Y:     pt.Y,
				Score: &score,
			})
		}
		wp.Score = total / NumJoints
		frame.Poses = append(frame.Poses, wp)
	}
	return json.Marshal(frame)
}
