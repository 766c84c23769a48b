// Package capture records a surface in real time and encodes the frames as an
// animated GIF.
//
// A capture is a bounded task: Plan fixes the frame count and interval from
// the requested duration and rate, Capture samples the surface once per
// interval on an absolute schedule, and Encode writes the result with the
// interval as the per-frame delay. Exporter ties the three together and
// rejects overlapping requests.
package capture
