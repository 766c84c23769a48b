package logging

import (
	"context"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType is the standardized key for machine-readable event names.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized key for a suggested next step.
	FieldErrorHint = "error_hint"
	// FieldSource is the standardized key for the pose source kind.
	FieldSource = "pose_source"
	// FieldFrameSeq is the standardized key for the scored frame sequence number.
	FieldFrameSeq = "frame_seq"
	// FieldSessionID identifies one scoring run.
	FieldSessionID = "session_id"
	// FieldJointSet names the tracked joint triples.
	FieldJointSet = "joint_set"
	// FieldImpact is the standardized key for the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type sessionKey struct{}

// WithSessionID stores a session identifier on ctx.
func WithSessionID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionIDFromContext returns the session identifier stored on ctx.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(sessionKey{}).(string)
	return id, ok && id != ""
}
