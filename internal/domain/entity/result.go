package entity

import "time"

// StopReason is the condition that terminated an extraction run.
type StopReason string

const (
	StopEndOfSource  StopReason = "END_OF_SOURCE"
	StopMaxFrames    StopReason = "MAX_FRAMES"
	StopTimeout      StopReason = "TIMEOUT"
	StopLowDiskSpace StopReason = "LOW_DISK_SPACE"
)

// ExtractionResult is produced once per extraction run.
type ExtractionResult struct {
	FrameCount int
	StopReason StopReason
	Elapsed    time.Duration
}

// ProcessingStatus is the terminal status communicated for a request.
type ProcessingStatus string

const (
	StatusSuccess  ProcessingStatus = "SUCCESS"
	StatusNoFrames ProcessingStatus = "NO_FRAMES_EXTRACTED"
	StatusFailure  ProcessingStatus = "FAILURE"
)

// ProcessingOutcome is the single terminal outcome of a request. It is the
// sole input to the completion notification.
type ProcessingOutcome struct {
	Status         ProcessingStatus
	ResultLocation string
}
