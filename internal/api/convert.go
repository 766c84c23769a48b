package api

import (
	"time"

	"posecoach/internal/capture"
	"posecoach/internal/metronome"
	"posecoach/internal/scorer"
	"posecoach/internal/session"
)

// FromResult converts a scorer result.
func FromResult(r scorer.Result) ScoreEvent {
	return ScoreEvent{
		Seq:        r.Seq,
		Angle:      r.Angle,
		Side:       string(r.Side),
		Confidence: r.Confidence,
		Variance:   r.Variance,
		Heat:       r.Heat,
		Score:      r.Score,
		Percent:    r.Percent(),
	}
}

// FromStats converts session counters.
func FromStats(st session.Stats, jointSet string) SessionStatus {
	out := SessionStatus{
		Active:   st.Running,
		JointSet: jointSet,
		Frames:   st.Frames,
		Scored:   st.Scored,
		Missed:   st.Missed,
		Errors:   st.Errors,
	}
	if !st.StartedAt.IsZero() {
		out.StartedAt = formatTime(st.StartedAt)
	}
	if st.HasLatest {
		latest := FromResult(st.Latest)
		out.Latest = &latest
	}
	return out
}

// FromAsset converts an export asset; nil maps to nil.
func FromAsset(a *capture.Asset) *ExportInfo {
	if a == nil {
		return nil
	}
	info := &ExportInfo{
		ID:         a.ID,
		Frames:     a.Frames,
		IntervalMS: a.Interval.Milliseconds(),
		Score:      a.Score,
		Percent:    percent(a.Score),
		Bytes:      len(a.Data),
	}
	if !a.CreatedAt.IsZero() {
		info.CreatedAt = formatTime(a.CreatedAt)
	}
	return info
}

// FromMetronome converts the metronome state.
func FromMetronome(m *metronome.Metronome) MetronomeStatus {
	if m == nil {
		return MetronomeStatus{State: metronome.Stopped.String()}
	}
	return MetronomeStatus{
		State:   m.State().String(),
		BPM:     m.BPM(),
		Dropped: m.Dropped(),
	}
}

func percent(score float64) int {
	return scorer.Result{Score: score}.Percent()
}

// FromTick converts a metronome beat.
func FromTick(t metronome.Tick) TickEvent {
	return TickEvent{Seq: t.Seq, BPM: t.BPM, At: formatTime(t.At)}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(dateTimeFormat)
}
