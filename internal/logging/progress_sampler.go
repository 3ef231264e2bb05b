package logging

import "strings"

// ProgressSampler thins out progress logs: it lets an event through when the
// stage changes or the percentage enters a new bucket.
type ProgressSampler struct {
	bucket     float64
	lastStage  string
	lastBucket int
}

// NewProgressSampler returns a sampler with bucketSize-percent buckets
// (default 10).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucket: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether an event at percent within stage is worth
// logging. A negative percent means unknown.
func (s *ProgressSampler) ShouldLog(percent float64, stage string) bool {
	if s == nil {
		return true
	}
	emit := false
	if stage = strings.TrimSpace(stage); stage != "" && stage != s.lastStage {
		s.lastStage = stage
		s.lastBucket = -1
		emit = true
	}
	if percent < 0 {
		return emit
	}
	if percent > 100 {
		percent = 100
	}
	if bucket := int(percent / s.bucket); bucket > s.lastBucket {
		s.lastBucket = bucket
		emit = true
	}
	return emit
}
