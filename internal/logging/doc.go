// Package logging assembles structured slog loggers and formatting helpers used
// across posecoach.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes helpers that tag log lines with the component and
// session they came from. The package also provides a no-op logger for tests
// and a sampler that keeps the per-frame score stream from flooding output.
package logging
