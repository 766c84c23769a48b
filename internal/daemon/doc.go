// Package daemon coordinates the long-running posecoach process.
//
// It wires configuration, the pose source, the scoring session, the GIF
// exporter and the metronome into a single lifecycle with flock-based locking
// so only one daemon drives the camera at a time. An optional HTTP API exposes
// status, the live ribbon, exports and the metronome, and streams every score
// to websocket subscribers.
//
// Keep orchestration logic here: scoring, rendering and capture live in their
// own packages while the daemon focuses on startup, shutdown, and wiring.
package daemon
