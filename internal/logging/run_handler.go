package logging

import (
	"context"
	"log/slog"
	"strings"

	"posecoach/internal/config"
)

// RunInfo identifies one scoring run. Every record logged through a logger
// built with it carries the non-empty fields, so lines from runs against
// different sources or joint sets stay distinguishable in a shared log.
type RunInfo struct {
	SessionID  string
	PoseSource string
	JointSet   string
}

// RunInfoFromConfig describes a run of cfg's pose source and joint set.
func RunInfoFromConfig(cfg *config.Config, sessionID string) RunInfo {
	run := RunInfo{SessionID: sessionID}
	if cfg != nil {
		run.PoseSource = cfg.Pose.Source
		run.JointSet = cfg.Scoring.JointSet
	}
	return run
}

func (r RunInfo) attrs() []slog.Attr {
	var out []slog.Attr
	for _, kv := range [][2]string{
		{FieldSessionID, r.SessionID},
		{FieldSource, r.PoseSource},
		{FieldJointSet, r.JointSet},
	} {
		if v := strings.TrimSpace(kv[1]); v != "" {
			out = append(out, slog.String(kv[0], v))
		}
	}
	return out
}

// runHandler stamps run attributes onto each record unless the record, or a
// logger derived with With, already sets the same key.
type runHandler struct {
	base slog.Handler
	run  []slog.Attr
}

func newRunHandler(base slog.Handler, run RunInfo) slog.Handler {
	if base == nil {
		return NoopHandler{}
	}
	attrs := run.attrs()
	if len(attrs) == 0 {
		return base
	}
	return &runHandler{base: base, run: attrs}
}

func (h *runHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *runHandler) Handle(ctx context.Context, record slog.Record) error {
	missing := h.run
	if record.NumAttrs() > 0 {
		set := map[string]bool{}
		record.Attrs(func(a slog.Attr) bool {
			set[a.Key] = true
			return true
		})
		missing = without(h.run, set)
	}
	if len(missing) > 0 {
		record = record.Clone()
		record.AddAttrs(missing...)
	}
	return h.base.Handle(ctx, record)
}

func (h *runHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	set := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		set[a.Key] = true
	}
	return &runHandler{base: h.base.WithAttrs(attrs), run: without(h.run, set)}
}

// WithGroup binds the run attributes at the top level first so they never
// end up nested inside the group.
func (h *runHandler) WithGroup(name string) slog.Handler {
	base := h.base
	if len(h.run) > 0 {
		base = base.WithAttrs(h.run)
	}
	return base.WithGroup(name)
}

func without(attrs []slog.Attr, keys map[string]bool) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		if !keys[a.Key] {
			out = append(out, a)
		}
	}
	return out
}
