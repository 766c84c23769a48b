// Package api defines the wire-format types for the daemon HTTP API and the
// client the CLI uses to reach it.
//
// # Key Types
//
// Status: daemon runtime information, the current session counters, export
// state and the metronome.
//
// ScoreEvent: one scored frame, as served by /api/status and streamed over
// the /api/scores websocket.
//
// ExportInfo: metadata for a captured GIF. The GIF bytes themselves travel as
// image/gif bodies; their metadata rides in the X-Posecoach-* headers.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript consumers. Timestamps use RFC3339
// with milliseconds.
package api
