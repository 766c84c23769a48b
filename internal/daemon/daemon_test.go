package daemon_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"posecoach/internal/api"
	"posecoach/internal/daemon"
	"posecoach/internal/testsupport"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutAPI())
	src := testsupport.NewAngleSource(90, 92, 89)
	src.Hold = true
	d, err := daemon.New(cfg, src, "scripted", nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.Status().Running {
		t.Fatal("expected daemon to report running")
	}
	waitFor(t, "three scored frames", func() bool { return d.Status().Session.Scored == 3 })

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	other, err := daemon.New(cfg, testsupport.NewAngleSource(), "scripted", nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := other.Start(ctx); !errors.Is(err, daemon.ErrLocked) {
		t.Fatalf("expected lock contention, got %v", err)
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
	if d.Session().Running() {
		t.Fatal("expected frame loop to be stopped")
	}

	if err := other.Start(ctx); err != nil {
		t.Fatalf("lock should be free after Stop: %v", err)
	}
	other.Stop()
}

func TestDaemonLoopEndsWithSource(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutAPI())
	d, err := daemon.New(cfg, testsupport.NewAngleSource(90, 91), "scripted", nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	defer d.Close()
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-d.LoopDone():
	case <-time.After(3 * time.Second):
		t.Fatal("frame loop did not end with its source")
	}
	st := d.Status()
	if !st.Running || st.Session.Scored != 2 {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestDaemonServesStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	src := testsupport.NewAngleSource(90, 92, 89, 150)
	src.Hold = true
	d, err := daemon.New(cfg, src, "scripted", nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	defer d.Close()
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if d.Addr() == "" {
		t.Fatal("expected API address")
	}
	waitFor(t, "four scored frames", func() bool { return d.Status().Session.Scored == 4 })

	resp, err := http.Get("http://" + d.Addr() + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", resp.StatusCode)
	}
	var st api.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !st.Running || st.PoseSource != "scripted" || st.Session.JointSet != "knee" {
		t.Fatalf("unexpected status %+v", st)
	}
	if st.Session.Latest == nil || st.Session.Latest.Seq != 4 {
		t.Fatalf("latest = %+v", st.Session.Latest)
	}
	if st.Metronome.State != "stopped" || st.Metronome.BPM != cfg.Metronome.BPM {
		t.Fatalf("metronome = %+v", st.Metronome)
	}
}
