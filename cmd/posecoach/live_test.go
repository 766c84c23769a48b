package main

import (
	"bytes"
	"strings"
	"testing"

	"posecoach/internal/scorer"
)

func TestRenderLiveLine(t *testing.T) {
	tests := []struct {
		name   string
		score  float64
		width  int
		prefix string
		filled int
	}{
		{name: "full", score: 1, width: 80, prefix: "Technique stability 100%", filled: 40},
		{name: "half", score: 0.5, width: 80, prefix: "Technique stability 50%", filled: 20},
		{name: "zero", score: 0, width: 80, prefix: "Technique stability 0%", filled: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := renderLiveLine(tc.score, tc.width)
			if !strings.HasPrefix(got, tc.prefix) {
				t.Fatalf("line %q does not start with %q", got, tc.prefix)
			}
			if n := strings.Count(got, "#"); n != tc.filled {
				t.Fatalf("filled = %d, want %d in %q", n, tc.filled, got)
			}
			if n := strings.Count(got, "#") + strings.Count(got, "-"); n != 40 {
				t.Fatalf("bar width = %d, want 40", n)
			}
		})
	}
}

func TestRenderLiveLineNarrowTerminal(t *testing.T) {
	got := renderLiveLine(0.42, 20)
	if got != "Technique stability 42%" {
		t.Fatalf("narrow line = %q", got)
	}
}

func TestLiveLineFlushesPendingScore(t *testing.T) {
	var buf bytes.Buffer
	l := newLiveLine(&buf, 80)
	l.update(scorer.Result{Score: 0.1})
	l.update(scorer.Result{Score: 0.9})
	l.finish()
	out := buf.String()
	if !strings.Contains(out, "Technique stability 90%") {
		t.Fatalf("final score not drawn: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("finish should end the line: %q", out)
	}
}
