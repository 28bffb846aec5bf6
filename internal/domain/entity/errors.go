package entity

import "fmt"

// ExtractionError reports a source that could not be opened or decoded.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// TransferError reports a failed object download or upload.
type TransferError struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s s3://%s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// PackagingError reports a failed archive build.
type PackagingError struct {
	Dir string
	Err error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("package %s: %v", e.Dir, e.Err)
}

func (e *PackagingError) Unwrap() error { return e.Err }

// NotificationError reports a failed completion notification delivery.
type NotificationError struct {
	Target    string
	RequestID string
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify %s for request %s: %v", e.Target, e.RequestID, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// ConfigurationError reports a setting that could not be resolved.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// TriggerDecodeError reports a malformed inbound trigger message. It occurs
// before a request exists, so no completion notification is attempted.
type TriggerDecodeError struct {
	Err error
}

func (e *TriggerDecodeError) Error() string {
	return fmt.Sprintf("decode trigger message: %v", e.Err)
}

func (e *TriggerDecodeError) Unwrap() error { return e.Err }
