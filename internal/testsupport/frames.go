package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"posecoach/internal/pose"
)

// FrameLines encodes poses as estimator output lines. A nil pose becomes a
// frame with no detected subject.
func FrameLines(t testing.TB, poses ...*pose.Pose) []string {
	t.Helper()

	lines := make([]string, 0, len(poses))
	for _, p := range poses {
		line, err := pose.EncodeFrame(p)
		if err != nil {
			t.Fatalf("encode frame: %v", err)
		}
		lines = append(lines, string(line))
	}
	return lines
}

// KneeFrames builds leg poses for each knee angle with full confidence.
func KneeFrames(angles ...float64) []*pose.Pose {
	out := make([]*pose.Pose, len(angles))
	for i, a := range angles {
		out[i] = pose.LegPose(a, 1, 1)
	}
	return out
}

// WriteFrames writes poses to path as JSON lines and returns path.
func WriteFrames(t testing.TB, path string, poses ...*pose.Pose) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	var buf bytes.Buffer
	for _, line := range FrameLines(t, poses...) {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
