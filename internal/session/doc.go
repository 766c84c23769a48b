// Package session runs the frame loop that turns pose estimates into scores
// and ribbon stripes.
//
// A Session owns one scorer and one ribbon recorder. Run drives a single
// loop: at most one estimate is in flight, results are applied strictly in
// arrival order, and score listeners are called after the ribbon stripe for
// the same frame is painted. Missing detections are skipped without touching
// history. Source failures are retried.
package session
