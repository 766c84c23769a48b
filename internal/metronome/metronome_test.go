package metronome

import (
	"context"
	"testing"
	"time"
)

func recvTick(t *testing.T, m *Metronome) Tick {
	t.Helper()
	select {
	case tick := <-m.Ticks():
		return tick
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tick")
		return Tick{}
	}
}

func TestInterval(t *testing.T) {
	if Interval(60) != time.Second || Interval(40) != 1500*time.Millisecond || Interval(120) != 500*time.Millisecond {
		t.Fatalf("unexpected intervals: %v %v %v", Interval(60), Interval(40), Interval(120))
	}
	if Interval(0) != 0 {
		t.Fatal("zero bpm should give zero interval")
	}
}

func TestNewRejectsOutOfRange(t *testing.T) {
	for _, bpm := range []int{0, 19, 121} {
		if _, err := New(bpm, nil); err == nil {
			t.Fatalf("expected error for bpm %d", bpm)
		}
	}
}

func TestStartStop(t *testing.T) {
	m, err := New(DefaultBPM, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.State() != Stopped {
		t.Fatalf("new metronome state = %v", m.State())
	}
	m.Start(context.Background())
	m.Start(context.Background())
	if m.State() != Running {
		t.Fatalf("state after Start = %v", m.State())
	}
	tick := recvTick(t, m)
	if tick.Seq != 1 || tick.BPM != DefaultBPM {
		t.Fatalf("first tick = %+v", tick)
	}
	m.Stop()
	m.Stop()
	if m.State() != Stopped {
		t.Fatalf("state after Stop = %v", m.State())
	}
}

func TestSetBPMRestartsRunningBeat(t *testing.T) {
	m, _ := New(MinBPM, nil)
	m.Start(context.Background())
	defer m.Stop()
	recvTick(t, m)

	if err := m.SetBPM(MaxBPM); err != nil {
		t.Fatalf("SetBPM: %v", err)
	}
	if m.State() != Running || m.BPM() != MaxBPM {
		t.Fatalf("state=%v bpm=%d", m.State(), m.BPM())
	}
	tick := recvTick(t, m)
	if tick.BPM != MaxBPM {
		t.Fatalf("tick after tempo change = %+v", tick)
	}
	if err := m.SetBPM(500); err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestSetBPMWhileStopped(t *testing.T) {
	m, _ := New(DefaultBPM, nil)
	if err := m.SetBPM(60); err != nil {
		t.Fatalf("SetBPM: %v", err)
	}
	if m.State() != Stopped || m.BPM() != 60 {
		t.Fatalf("state=%v bpm=%d", m.State(), m.BPM())
	}
}

func TestToggle(t *testing.T) {
	m, _ := New(DefaultBPM, nil)
	if got := m.Toggle(context.Background()); got != Running {
		t.Fatalf("first toggle = %v", got)
	}
	if got := m.Toggle(context.Background()); got != Stopped {
		t.Fatalf("second toggle = %v", got)
	}
	if Running.String() != "running" || Stopped.String() != "stopped" {
		t.Fatal("unexpected state names")
	}
}

func TestContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m, _ := New(DefaultBPM, nil)
	m.Start(ctx)
	recvTick(t, m)
	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for m.State() != Stopped {
		if time.Now().After(deadline) {
			t.Fatal("metronome kept running after context cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
