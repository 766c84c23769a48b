package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"posecoach/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The API binds an ephemeral loopback port and the frame loop retries fast.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Pose.Source = config.SourceSynthetic
	cfgVal.Pose.RetryDelayMS = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAPIToken requires a bearer token on the test API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithoutAPI disables the HTTP API.
func WithoutAPI() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIBind = ""
	}
}

// WithCapture overrides the default export duration and rate.
func WithCapture(seconds, fps float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Capture.Seconds = seconds
		b.cfg.Capture.FPS = fps
	}
}

// WithScoring overrides the rolling window and variance ceiling.
func WithScoring(window int, varianceMax float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scoring.Window = window
		b.cfg.Scoring.VarianceMax = varianceMax
	}
}

// WithFrameFile points the pose source at a JSON-lines file.
func WithFrameFile(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pose.Source = config.SourceFile
		b.cfg.Pose.Path = path
	}
}

// WithStubbedEstimator writes an executable that prints lines on stdout and
// exits, and configures it as the pose command.
func WithStubbedEstimator(lines ...string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		var script strings.Builder
		script.WriteString("#!/bin/sh\n")
		for _, line := range lines {
			script.WriteString("printf '%s\\n' '" + strings.ReplaceAll(line, "'", `'\''`) + "'\n")
		}
		target := filepath.Join(binDir, "estimator")
		if err := os.WriteFile(target, []byte(script.String()), 0o755); err != nil {
			b.t.Fatalf("write stub estimator: %v", err)
		}
		b.cfg.Pose.Source = config.SourceCommand
		b.cfg.Pose.Command = target
		b.cfg.Pose.Args = nil
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
