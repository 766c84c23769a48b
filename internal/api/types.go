package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Response headers describing an image/gif export body.
const (
	HeaderExportID     = "X-Posecoach-Export-Id"
	HeaderExportScore  = "X-Posecoach-Score"
	HeaderExportFrames = "X-Posecoach-Frames"
	HeaderExportDelay  = "X-Posecoach-Interval-Ms"
	HeaderCreatedAt    = "X-Posecoach-Created-At"
)

// Metronome actions accepted by POST /api/metronome.
const (
	MetronomeStart  = "start"
	MetronomeStop   = "stop"
	MetronomeToggle = "toggle"
)

// ScoreEvent is one scored frame.
type ScoreEvent struct {
	Seq        int     `json:"seq"`
	Angle      float64 `json:"angle"`
	Side       string  `json:"side"`
	Confidence float64 `json:"confidence"`
	Variance   float64 `json:"variance"`
	Heat       float64 `json:"heat"`
	Score      float64 `json:"score"`
	Percent    int     `json:"percent"`
}

// SessionStatus summarizes the frame loop.
type SessionStatus struct {
	Active    bool        `json:"active"`
	StartedAt string      `json:"startedAt,omitempty"`
	JointSet  string      `json:"jointSet"`
	Frames    int         `json:"frames"`
	Scored    int         `json:"scored"`
	Missed    int         `json:"missed"`
	Errors    int         `json:"errors"`
	Latest    *ScoreEvent `json:"latest,omitempty"`
}

// ExportInfo describes a captured GIF.
type ExportInfo struct {
	ID         string  `json:"id"`
	Frames     int     `json:"frames"`
	IntervalMS int64   `json:"intervalMs"`
	Score      float64 `json:"score"`
	Percent    int     `json:"percent"`
	Bytes      int     `json:"bytes"`
	CreatedAt  string  `json:"createdAt,omitempty"`
}

// ExportStatus reports capture state.
type ExportStatus struct {
	Busy bool        `json:"busy"`
	Last *ExportInfo `json:"last,omitempty"`
	Best *ExportInfo `json:"best,omitempty"`
}

// MetronomeStatus reports the beat.
type MetronomeStatus struct {
	State   string `json:"state"`
	BPM     int    `json:"bpm"`
	Dropped int    `json:"dropped"`
}

// MetronomeRequest is the POST /api/metronome body. BPM 0 keeps the current
// tempo.
type MetronomeRequest struct {
	Action string `json:"action"`
	BPM    int    `json:"bpm,omitempty"`
}

// Status aggregates daemon runtime information for API consumers.
type Status struct {
	Running      bool            `json:"running"`
	PID          int             `json:"pid"`
	SessionID    string          `json:"sessionId,omitempty"`
	PoseSource   string          `json:"poseSource"`
	LockFilePath string          `json:"lockFilePath"`
	Session      SessionStatus   `json:"session"`
	Export       ExportStatus    `json:"export"`
	Metronome    MetronomeStatus `json:"metronome"`
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Stream message types sent over /api/scores.
const (
	StreamScore = "score"
	StreamTick  = "tick"
)

// TickEvent is one metronome beat.
type TickEvent struct {
	Seq int    `json:"seq"`
	BPM int    `json:"bpm"`
	At  string `json:"at"`
}

// StreamMessage is one websocket frame on /api/scores.
type StreamMessage struct {
	Type  string      `json:"type"`
	Score *ScoreEvent `json:"score,omitempty"`
	Tick  *TickEvent  `json:"tick,omitempty"`
}
