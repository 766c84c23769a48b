package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"posecoach/internal/config"
	"posecoach/internal/pose"
	"posecoach/internal/scorer"
)

type step struct {
	pose *pose.Pose
	err  error
}

// scripted replays steps then reports io.EOF.
func scripted(steps ...step) pose.Source {
	var mu sync.Mutex
	i := 0
	return pose.SourceFunc(func(ctx context.Context) (*pose.Pose, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(steps) {
			return nil, io.EOF
		}
		s := steps[i]
		i++
		return s.pose, s.err
	})
}

func angles(values ...float64) []step {
	steps := make([]step, len(values))
	for i, v := range values {
		steps[i] = step{pose: pose.LegPose(v, 0.9, 0.9)}
	}
	return steps
}

func newSession(t *testing.T) *Session {
	t.Helper()
	opts := DefaultOptions()
	opts.RetryDelay = time.Millisecond
	s, err := New(opts, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestRunScoresFramesInOrder(t *testing.T) {
	s := newSession(t)
	var got []scorer.Result
	s.Subscribe(func(r scorer.Result) { got = append(got, r) })

	if err := s.Run(context.Background(), scripted(angles(90, 92, 89, 150)...)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("listener saw %d results", len(got))
	}
	for i, r := range got {
		if r.Seq != i+1 {
			t.Fatalf("result %d has seq %d", i, r.Seq)
		}
	}
	if got[3].Variance <= got[2].Variance || got[3].Heat <= got[2].Heat {
		t.Fatalf("expected spike at 4th sample: %+v vs %+v", got[3], got[2])
	}
	if s.Scorer().Len() != 4 || s.Ribbon().Cursor() != 8 {
		t.Fatalf("history=%d cursor=%d", s.Scorer().Len(), s.Ribbon().Cursor())
	}
	st := s.Stats()
	if st.Running || st.Frames != 4 || st.Scored != 4 || !st.HasLatest || st.Latest.Seq != 4 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if s.Score() != got[3].Score {
		t.Fatalf("Score() = %v, want %v", s.Score(), got[3].Score)
	}
}

func TestMissedDetectionChangesNothing(t *testing.T) {
	s := newSession(t)
	var calls int
	var cursors []int
	var lengths []int
	s.Subscribe(func(scorer.Result) {
		calls++
		cursors = append(cursors, s.Ribbon().Cursor())
		lengths = append(lengths, s.Scorer().Len())
	})

	steps := []step{
		{pose: pose.LegPose(90, 1, 1)},
		{pose: nil},
		{pose: nil},
		{pose: pose.LegPose(91, 1, 1)},
	}
	if err := s.Run(context.Background(), scripted(steps...)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 2 {
		t.Fatalf("listener calls = %d, want 2", calls)
	}
	// the listener sees the stripe for its own frame already painted
	if cursors[0] != 2 || cursors[1] != 4 || lengths[0] != 1 || lengths[1] != 2 {
		t.Fatalf("cursors=%v lengths=%v", cursors, lengths)
	}
	if st := s.Stats(); st.Missed != 2 || st.Scored != 2 || st.Frames != 4 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestSourceErrorsAreRetried(t *testing.T) {
	s := newSession(t)
	steps := []step{
		{err: pose.ErrNotReady},
		{err: errors.New("decode failure")},
		{pose: pose.LegPose(100, 1, 1)},
	}
	if err := s.Run(context.Background(), scripted(steps...)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st := s.Stats(); st.Errors != 2 || st.Scored != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func blockingSource() pose.Source {
	return pose.SourceFunc(func(ctx context.Context) (*pose.Pose, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
}

func waitRunning(t *testing.T, s *Session) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !s.Running() {
		if time.Now().After(deadline) {
			t.Fatal("session never started")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRunRejectsReentry(t *testing.T) {
	s := newSession(t)
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), blockingSource()) }()
	waitRunning(t, s)

	if err := s.Run(context.Background(), blockingSource()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Run err = %v", err)
	}
	s.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run after Stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	if s.Running() {
		t.Fatal("session still running")
	}
}

func TestRunEndsOnContextCancel(t *testing.T) {
	s := newSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, blockingSource()) }()
	waitRunning(t, s)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run ignored cancellation")
	}
}

func TestRunStopsOnIdleStream(t *testing.T) {
	s := newSession(t)
	pr, pw := io.Pipe()
	defer pw.Close()
	src := pose.NewStreamSource(pr, 0)
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, src) }()
	waitRunning(t, s)
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run stayed blocked on an idle stream after cancel")
	}
	if st := s.Stats(); st.Frames != 0 {
		t.Fatalf("frames = %d, want 0", st.Frames)
	}
}

func TestRunClearsPreviousHistory(t *testing.T) {
	s := newSession(t)
	for range 2 {
		if err := s.Run(context.Background(), scripted(angles(90, 95, 100)...)); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if s.Scorer().Len() != 3 || s.Ribbon().Cursor() != 6 {
			t.Fatalf("history=%d cursor=%d", s.Scorer().Len(), s.Ribbon().Cursor())
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	s := newSession(t)
	var a, b int
	unsubA := s.Subscribe(func(scorer.Result) { a++ })
	s.Subscribe(func(scorer.Result) { b++ })
	unsubA()
	unsubA()
	if err := s.Run(context.Background(), scripted(angles(90, 91)...)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if a != 0 || b != 2 {
		t.Fatalf("a=%d b=%d", a, b)
	}
}

func TestFrameIntervalPacesLoop(t *testing.T) {
	opts := DefaultOptions()
	opts.FrameInterval = 20 * time.Millisecond
	s, err := New(opts, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start := time.Now()
	if err := s.Run(context.Background(), scripted(angles(90, 91, 92)...)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("loop finished in %v; expected pacing", elapsed)
	}
}

func TestRunRequiresSource(t *testing.T) {
	if err := newSession(t).Run(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil source")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Scoring.JointSet = "elbow"
	cfg.Scoring.Window = 12
	cfg.Pose.FrameIntervalMS = 33
	opts, err := OptionsFromConfig(&cfg)
	if err != nil {
		t.Fatalf("OptionsFromConfig: %v", err)
	}
	if opts.Scoring.Joints.Name != "elbow" || opts.Scoring.Window != 12 || opts.FrameInterval != 33*time.Millisecond {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.Palette.Stable.G != 197 {
		t.Fatalf("palette not parsed: %+v", opts.Palette)
	}
	cfg.Scoring.JointSet = "tail"
	if _, err := OptionsFromConfig(&cfg); err == nil {
		t.Fatal("expected error for unknown joint set")
	}
}

func TestSyntheticSourceEndToEnd(t *testing.T) {
	s := newSession(t)
	opts := pose.DefaultSyntheticOptions()
	opts.FPS = 0
	opts.Frames = 60
	opts.DropEvery = 10
	if err := s.Run(context.Background(), pose.NewSyntheticSource(opts)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	st := s.Stats()
	if st.Frames != 60 || st.Missed != 6 || st.Scored != 54 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if st.Latest.Score < 0 || st.Latest.Score > 1 {
		t.Fatalf("score out of range: %v", st.Latest.Score)
	}
}
