// Package main hosts the posecoach CLI entrypoint and command graph.
//
// The Cobra-based command tree runs a foreground scoring session with a live
// stability readout, runs the scoring daemon, and talks to a running
// daemon over its HTTP API for status, GIF exports and the metronome. It
// centralizes configuration resolution so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: scoring, rendering and capture live in the internal
// packages and are only surfaced here through commands and flags.
package main
