package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"posecoach/internal/logging"
)

// Asset is one encoded export.
type Asset struct {
	ID        string
	Data      []byte
	Frames    int
	Interval  time.Duration
	Score     float64
	CreatedAt time.Time
}

// Request describes one export.
type Request struct {
	Seconds float64
	FPS     float64
	Scale   int
}

// Exporter runs one capture at a time against a fixed surface and remembers
// the best-scoring asset of the session.
type Exporter struct {
	surface Surface
	score   func() float64
	logger  *slog.Logger

	running sync.Mutex

	mu   sync.Mutex
	best *Asset
	last *Asset
}

// NewExporter binds an exporter to surface. score, when non-nil, is read as
// each capture finishes and stamped on the asset.
func NewExporter(surface Surface, score func() float64, logger *slog.Logger) *Exporter {
	return &Exporter{
		surface: surface,
		score:   score,
		logger:  logging.NewComponentLogger(logger, "exporter"),
	}
}

// Export captures and encodes one asset. An overlapping call fails with
// ErrCaptureInProgress instead of waiting.
func (e *Exporter) Export(ctx context.Context, req Request, opts ...Option) (*Asset, error) {
	if e == nil || e.surface == nil {
		return nil, ErrNoSurface
	}
	_, interval, err := Plan(req.Seconds, req.FPS)
	if err != nil {
		return nil, err
	}
	if err := CheckScale(req.Scale); err != nil {
		return nil, err
	}
	if !e.running.TryLock() {
		return nil, ErrCaptureInProgress
	}
	defer e.running.Unlock()

	started := time.Now()
	e.logger.Info("capture started",
		logging.Float64("seconds", req.Seconds),
		logging.Float64("fps", req.FPS),
	)
	frames, err := Capture(ctx, e.surface, req.Seconds, req.FPS, opts...)
	if err != nil {
		logging.WarnWithContext(e.logger, "capture failed", "capture_failed",
			logging.String(logging.FieldErrorHint, "check that the session is running and retry"),
			logging.String(logging.FieldImpact, "no asset was produced"),
			logging.Error(err),
		)
		return nil, err
	}
	data, err := Encode(frames, interval, req.Scale)
	if err != nil {
		return nil, err
	}

	asset := &Asset{
		ID:        uuid.NewString(),
		Data:      data,
		Frames:    len(frames),
		Interval:  interval,
		CreatedAt: time.Now(),
	}
	if e.score != nil {
		asset.Score = e.score()
	}

	e.mu.Lock()
	e.last = asset
	if e.best == nil || asset.Score > e.best.Score {
		e.best = asset
	}
	e.mu.Unlock()

	e.logger.Info("capture finished",
		logging.String("asset_id", asset.ID),
		logging.Int("frames", asset.Frames),
		logging.Int("bytes", len(data)),
		logging.Float64("score", asset.Score),
		logging.Duration("elapsed", time.Since(started)),
	)
	return asset, nil
}

// Busy reports whether a capture is running.
func (e *Exporter) Busy() bool {
	if !e.running.TryLock() {
		return true
	}
	e.running.Unlock()
	return false
}

// Best returns the highest-scoring asset so far, or nil.
func (e *Exporter) Best() *Asset {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.best
}

// Last returns the most recent asset, or nil.
func (e *Exporter) Last() *Asset {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}
