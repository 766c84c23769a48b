package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"posecoach/internal/config"
	"posecoach/internal/heatcolor"
	"posecoach/internal/logging"
	"posecoach/internal/pose"
	"posecoach/internal/ribbon"
	"posecoach/internal/scorer"
)

// ErrAlreadyRunning is returned by Run while another Run is active.
var ErrAlreadyRunning = errors.New("session already running")

const defaultRetryDelay = 250 * time.Millisecond

// Options configures a Session.
type Options struct {
	Scoring       scorer.Config
	RibbonWidth   int
	RibbonHeight  int
	StripeWidth   int
	Palette       heatcolor.Palette
	RetryDelay    time.Duration
	FrameInterval time.Duration
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Scoring:      scorer.DefaultConfig(),
		RibbonWidth:  ribbon.DefaultWidth,
		RibbonHeight: ribbon.DefaultHeight,
		StripeWidth:  ribbon.DefaultStripeWidth,
		Palette:      heatcolor.Default(),
		RetryDelay:   defaultRetryDelay,
	}
}

// OptionsFromConfig translates application configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	if cfg == nil {
		return DefaultOptions(), nil
	}
	joints, err := pose.JointSetByName(cfg.Scoring.JointSet)
	if err != nil {
		return Options{}, err
	}
	palette, err := heatcolor.FromHex(cfg.Ribbon.StableColor, cfg.Ribbon.DriftColor)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Scoring: scorer.Config{
			Window:      cfg.Scoring.Window,
			VarianceMax: cfg.Scoring.VarianceMax,
			Joints:      joints,
		},
		RibbonWidth:   cfg.Ribbon.Width,
		RibbonHeight:  cfg.Ribbon.Height,
		StripeWidth:   cfg.Ribbon.StripeWidth,
		Palette:       palette,
		RetryDelay:    cfg.RetryDelay(),
		FrameInterval: cfg.FrameInterval(),
	}, nil
}

// Stats summarizes the current or most recent run.
type Stats struct {
	Running   bool
	StartedAt time.Time
	Frames    int
	Scored    int
	Missed    int
	Errors    int
	Latest    scorer.Result
	HasLatest bool
}

type listener struct {
	id int
	fn func(scorer.Result)
}

// Session is one scoring session.
type Session struct {
	opts    Options
	scorer  *scorer.Scorer
	ribbon  *ribbon.Recorder
	logger  *slog.Logger
	sampler *logging.ScoreSampler

	running atomic.Bool

	mu        sync.Mutex
	cancel    context.CancelFunc
	stats     Stats
	listeners []listener
	nextID    int
}

// New builds a session with a fresh scorer and ribbon.
func New(opts Options, logger *slog.Logger) (*Session, error) {
	sc, err := scorer.New(opts.Scoring)
	if err != nil {
		return nil, fmt.Errorf("scorer: %w", err)
	}
	rec, err := ribbon.NewRecorder(opts.RibbonWidth, opts.RibbonHeight, opts.StripeWidth, opts.Palette)
	if err != nil {
		return nil, fmt.Errorf("ribbon: %w", err)
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	return &Session{
		opts:    opts,
		scorer:  sc,
		ribbon:  rec,
		logger:  logging.NewComponentLogger(logger, "session"),
		sampler: logging.NewScoreSampler(10),
	}, nil
}

// Scorer exposes the session's scorer for history queries.
func (s *Session) Scorer() *scorer.Scorer {
	return s.scorer
}

// Ribbon exposes the session's ribbon surface.
func (s *Session) Ribbon() *ribbon.Recorder {
	return s.ribbon
}

// Running reports whether Run is active.
func (s *Session) Running() bool {
	return s.running.Load()
}

// Stats returns a snapshot of the run counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Running = s.running.Load()
	return st
}

// Score returns the latest score, or 0 before the first scored frame.
func (s *Session) Score() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stats.HasLatest {
		return 0
	}
	return s.stats.Latest.Score
}

// Subscribe registers fn to receive every score in order. fn runs on the
// frame loop goroutine and must not block.
func (s *Session) Subscribe(fn func(scorer.Result)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Stop ends an active Run after its current estimate returns.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run drives src until ctx ends, Stop is called, or src returns io.EOF. It
// clears the previous run's history and ribbon before the first frame. A
// stopped or exhausted run returns nil.
func (s *Session) Run(ctx context.Context, src pose.Source) error {
	if src == nil {
		return errors.New("pose source is required")
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.scorer.Reset()
	s.ribbon.Reset()
	s.sampler.Reset()
	s.mu.Lock()
	s.cancel = cancel
	s.stats = Stats{StartedAt: time.Now()}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
	}()

	s.logger.Info("frame loop started",
		logging.Int("window", s.opts.Scoring.Window),
		logging.Float64("variance_max", s.opts.Scoring.VarianceMax),
		logging.String("joint_set", s.opts.Scoring.Joints.Name),
	)

	failing := 0
	for {
		if ctx.Err() != nil {
			s.logStopped("stopped")
			return nil
		}
		iterStart := time.Now()
		p, err := src.Estimate(ctx)
		switch {
		case errors.Is(err, io.EOF):
			s.logStopped("source exhausted")
			return nil
		case ctx.Err() != nil:
			s.logStopped("stopped")
			return nil
		case err != nil:
			failing++
			s.countError()
			s.logSourceError(err, failing)
			if !sleep(ctx, s.opts.RetryDelay) {
				s.logStopped("stopped")
				return nil
			}
			continue
		}
		if failing > 0 {
			s.logger.Info("pose source recovered", logging.Int("failed_attempts", failing))
			failing = 0
		}
		s.apply(p)
		if s.opts.FrameInterval > 0 {
			if !sleep(ctx, s.opts.FrameInterval-time.Since(iterStart)) {
				s.logStopped("stopped")
				return nil
			}
		}
	}
}

// apply scores one estimate. A nil pose is a missed detection.
func (s *Session) apply(p *pose.Pose) {
	res, ok := s.scorer.Process(p)

	s.mu.Lock()
	s.stats.Frames++
	if !ok {
		s.stats.Missed++
		s.mu.Unlock()
		return
	}
	s.stats.Scored++
	s.stats.Latest = res
	s.stats.HasLatest = true
	listeners := append([]listener(nil), s.listeners...)
	s.mu.Unlock()

	s.ribbon.Record(res.Heat)
	if s.sampler.ShouldLog(res.Score, string(res.Side)) {
		s.logger.Debug("technique stability",
			logging.Int(logging.FieldFrameSeq, res.Seq),
			logging.Percent("score_pct", res.Score),
			logging.Float64("angle", res.Angle),
			logging.String("side", string(res.Side)),
		)
	}
	for _, l := range listeners {
		l.fn(res)
	}
}

func (s *Session) countError() {
	s.mu.Lock()
	s.stats.Errors++
	s.mu.Unlock()
}

func (s *Session) logSourceError(err error, failing int) {
	if failing != 1 && failing%100 != 0 {
		return
	}
	if errors.Is(err, pose.ErrNotReady) {
		s.logger.Info("pose source not ready; retrying",
			logging.Error(err),
			logging.Int("failed_attempts", failing),
			logging.Duration("retry_delay", s.opts.RetryDelay),
		)
		return
	}
	logging.WarnWithContext(s.logger, "pose estimate failed; retrying", "pose_estimate_failed",
		logging.Error(err),
		logging.Int("failed_attempts", failing),
		logging.String(logging.FieldImpact, "frames are skipped until the source recovers"),
		logging.String(logging.FieldErrorHint, "check the pose source configuration and its output"),
	)
}

func (s *Session) logStopped(reason string) {
	st := s.Stats()
	s.logger.Info("frame loop finished",
		logging.String("reason", reason),
		logging.Int("frames", st.Frames),
		logging.Int("scored", st.Scored),
		logging.Int("missed", st.Missed),
		logging.Int("errors", st.Errors),
	)
}

// sleep waits d or until ctx ends, reporting whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
