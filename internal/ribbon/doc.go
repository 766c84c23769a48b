// Package ribbon records the heat signal as a fixed-width scrolling strip.
//
// Each scored frame paints one vertical stripe at the write cursor, and the
// cursor wraps to the left edge once it passes the right edge, overwriting
// the oldest stripes. State is an explicit value; Recorder wraps one State
// behind a mutex so the frame loop and an export can touch it concurrently.
package ribbon
