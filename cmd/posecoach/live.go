package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"posecoach/internal/report"
	"posecoach/internal/scorer"
)

const liveRefresh = 100 * time.Millisecond

// liveLine rewrites a single terminal line with the latest score.
type liveLine struct {
	w     io.Writer
	width int

	mu      sync.Mutex
	last    time.Time
	pending *scorer.Result
	drawn   bool
}

func newLiveLine(w io.Writer, width int) *liveLine {
	return &liveLine{w: w, width: width}
}

func (l *liveLine) update(r scorer.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now := time.Now(); now.Sub(l.last) >= liveRefresh {
		l.last = now
		l.pending = nil
		l.drawLocked(r)
		return
	}
	l.pending = &r
}

// finish draws any throttled score and ends the line.
func (l *liveLine) finish() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending != nil {
		l.drawLocked(*l.pending)
		l.pending = nil
	}
	if l.drawn {
		fmt.Fprintln(l.w)
		l.drawn = false
	}
}

func (l *liveLine) drawLocked(r scorer.Result) {
	fmt.Fprintf(l.w, "\r%s\x1b[K", renderLiveLine(r.Score, l.width))
	l.drawn = true
}

// renderLiveLine renders "Technique stability NN%" followed by a bar sized
// to the terminal width.
func renderLiveLine(score float64, width int) string {
	label := fmt.Sprintf("%-24s", report.Label(score))
	barWidth := min(max(width-len(label)-4, 0), 40)
	if barWidth < 10 {
		return strings.TrimSpace(label)
	}
	filled := int(score*float64(barWidth) + 0.5)
	filled = min(max(filled, 0), barWidth)
	return label + " [" + strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled) + "]"
}
