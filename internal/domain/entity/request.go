package entity

import "time"

// ProcessingRequest identifies one video to process. It is built by the
// trigger adapter, owned by a single orchestrator invocation and never
// mutated.
type ProcessingRequest struct {
	RequestID          string
	SourceBucket       string
	SourceKey          string
	NotificationTarget string
}

// ExtractionLimits bounds a single extraction run. MaxFrames of 0 means
// unlimited.
type ExtractionLimits struct {
	MaxFrames        int
	Timeout          time.Duration
	LowDiskThreshold uint64
}
