package logging

import "strings"

// ScoreSampler suppresses repetitive per-frame score logs. It lets a line
// through when the score moves into a different percentage bucket or the
// tracked side changes.
type ScoreSampler struct {
	bucketSize float64
	lastBucket int
	lastSide   string
}

// NewScoreSampler constructs a sampler with buckets of bucketSize percentage
// points (default 10).
func NewScoreSampler(bucketSize float64) *ScoreSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ScoreSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a score in [0,1] for side should be logged.
func (s *ScoreSampler) ShouldLog(score float64, side string) bool {
	if s == nil {
		return true
	}
	emit := false
	side = strings.TrimSpace(side)
	if side != "" && side != s.lastSide {
		s.lastSide = side
		emit = true
	}
	percent := score * 100
	bucket := int(percent / s.bucketSize)
	if percent < 0 {
		bucket = 0
	}
	if maxBucket := int(100 / s.bucketSize); bucket > maxBucket {
		bucket = maxBucket
	}
	if bucket != s.lastBucket {
		s.lastBucket = bucket
		emit = true
	}
	return emit
}

// Reset clears the sampler state (e.g. when a new session starts).
func (s *ScoreSampler) Reset() {
	if s == nil {
		return
	}
	s.lastSide = ""
	s.lastBucket = -1
}
