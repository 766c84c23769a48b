// Package metronome emits a steady beat for pacing repetitions.
//
// The metronome is independent of scoring: it only produces ticks that a
// front end turns into sound or a visual pulse.
package metronome

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"posecoach/internal/logging"
)

// Tempo bounds and default, in beats per minute.
const (
	MinBPM     = 20
	MaxBPM     = 120
	DefaultBPM = 40
)

// State is the metronome's run state.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	default:
		return "stopped"
	}
}

// Tick is one beat.
type Tick struct {
	Seq int
	BPM int
	At  time.Time
}

// Metronome produces ticks at a configurable tempo. Ticks are delivered on a
// buffered channel; a slow reader misses beats rather than delaying them.
type Metronome struct {
	mu      sync.Mutex
	state   State
	bpm     int
	parent  context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	ticks   chan Tick
	seq     int
	dropped int
	logger  *slog.Logger
}

// New returns a stopped metronome at bpm.
func New(bpm int, logger *slog.Logger) (*Metronome, error) {
	if err := validBPM(bpm); err != nil {
		return nil, err
	}
	return &Metronome{
		bpm:    bpm,
		ticks:  make(chan Tick, 1),
		logger: logging.NewComponentLogger(logger, "metronome"),
	}, nil
}

func validBPM(bpm int) error {
	if bpm < MinBPM || bpm > MaxBPM {
		return fmt.Errorf("bpm %d out of range [%d,%d]", bpm, MinBPM, MaxBPM)
	}
	return nil
}

// Interval is the time between beats at bpm.
func Interval(bpm int) time.Duration {
	if bpm <= 0 {
		return 0
	}
	return time.Minute / time.Duration(bpm)
}

// Ticks returns the beat channel. It is never closed.
func (m *Metronome) Ticks() <-chan Tick {
	return m.ticks
}

// State reports whether the metronome is running.
func (m *Metronome) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// BPM returns the current tempo.
func (m *Metronome) BPM() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bpm
}

// Dropped reports beats discarded because the reader was behind.
func (m *Metronome) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Start begins beating until Stop is called or ctx ends. Starting a running
// metronome is a no-op. The first beat is immediate.
func (m *Metronome) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Running {
		return
	}
	m.parent = ctx
	m.launchLocked()
	m.logger.Info("metronome started", logging.Int("bpm", m.bpm))
}

// Stop halts the beat and waits for the ticker goroutine to exit.
func (m *Metronome) Stop() {
	m.mu.Lock()
	if m.state != Running {
		m.mu.Unlock()
		return
	}
	done := m.haltLocked()
	m.mu.Unlock()
	<-done
	m.logger.Info("metronome stopped")
}

// Toggle starts a stopped metronome or stops a running one and returns the
// resulting state.
func (m *Metronome) Toggle(ctx context.Context) State {
	if m.State() == Running {
		m.Stop()
		return Stopped
	}
	m.Start(ctx)
	return Running
}

// SetBPM changes the tempo. A running metronome restarts its beat at the new
// tempo.
func (m *Metronome) SetBPM(bpm int) error {
	if err := validBPM(bpm); err != nil {
		return err
	}
	m.mu.Lock()
	m.bpm = bpm
	if m.state != Running {
		m.mu.Unlock()
		return nil
	}
	done := m.haltLocked()
	m.mu.Unlock()
	<-done

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Stopped && m.parent != nil && m.parent.Err() == nil {
		m.launchLocked()
	}
	m.logger.Info("metronome tempo changed", logging.Int("bpm", bpm))
	return nil
}

func (m *Metronome) launchLocked() {
	parent := m.parent
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.state = Running
	go m.run(ctx, Interval(m.bpm), m.bpm, done)
}

func (m *Metronome) haltLocked() <-chan struct{} {
	m.cancel()
	m.state = Stopped
	return m.done
}

func (m *Metronome) run(ctx context.Context, interval time.Duration, bpm int, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	m.emit(bpm, time.Now())
	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			if m.done == done {
				m.state = Stopped
			}
			m.mu.Unlock()
			return
		case now := <-ticker.C:
			m.emit(bpm, now)
		}
	}
}

func (m *Metronome) emit(bpm int, at time.Time) {
	m.mu.Lock()
	m.seq++
	tick := Tick{Seq: m.seq, BPM: bpm, At: at}
	m.mu.Unlock()
	select {
	case m.ticks <- tick:
	default:
		m.mu.Lock()
		m.dropped++
		m.mu.Unlock()
	}
}
