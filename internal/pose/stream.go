package pose

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

const maxLineBytes = 1 << 20

type streamLine struct {
	data []byte
	num  int
	err  error
}

// StreamSource replays newline-delimited estimator frames from a reader such
// as stdin or a recorded session file. Reading happens on a background
// goroutine so a stalled reader never blocks cancellation.
type StreamSource struct {
	r        io.Reader
	interval time.Duration
	next     time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	lines     chan streamLine
	stop      chan struct{}
	done      bool
}

// NewStreamSource reads frames from r. replayFPS > 0 paces delivery to that
// rate; 0 delivers frames as fast as the reader produces them.
func NewStreamSource(r io.Reader, replayFPS float64) *StreamSource {
	var interval time.Duration
	if replayFPS > 0 {
		interval = time.Duration(float64(time.Second) / replayFPS)
	}
	return &StreamSource{
		r:        r,
		interval: interval,
		lines:    make(chan streamLine),
		stop:     make(chan struct{}),
	}
}

// Estimate returns the next frame in the stream. Malformed lines are reported
// as errors so the caller can skip them; io.EOF marks the end of input.
func (s *StreamSource) Estimate(ctx context.Context) (*Pose, error) {
	if s.done {
		return nil, io.EOF
	}
	if err := s.pace(ctx); err != nil {
		return nil, err
	}
	s.startOnce.Do(func() { go s.read() })

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case l, ok := <-s.lines:
		if !ok {
			s.done = true
			return nil, io.EOF
		}
		if l.err != nil {
			s.done = true
			return nil, fmt.Errorf("read pose stream: %w", l.err)
		}
		p, err := DecodeFrame(l.data)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", l.num, err)
		}
		return p, nil
	}
}

// Close stops the reader goroutine once its current read returns. It does
// not close the underlying reader.
func (s *StreamSource) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *StreamSource) read() {
	defer close(s.lines)
	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	num := 0
	for scanner.Scan() {
		num++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !s.send(streamLine{data: bytes.Clone(line), num: num}) {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.send(streamLine{num: num, err: err})
	}
}

func (s *StreamSource) send(l streamLine) bool {
	select {
	case s.lines <- l:
		return true
	case <-s.stop:
		return false
	}
}

func (s *StreamSource) pace(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.interval <= 0 {
		return nil
	}
	now := time.Now()
	if s.next.IsZero() {
		s.next = now.Add(s.interval)
		return nil
	}
	wait := s.next.Sub(now)
	s.next = s.next.Add(s.interval)
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
