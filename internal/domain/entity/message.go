package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// triggerEnvelope covers both observed message shapes: the canonical
// {"id", "sourceFileKey"} and the legacy {"request_id", "s3_path"}.
type triggerEnvelope struct {
	ID            string `json:"id"`
	SourceFileKey string `json:"sourceFileKey"`
	RequestID     string `json:"request_id"`
	S3Path        string `json:"s3_path"`
}

// ParseTriggerMessage decodes one inbound queue message into a
// ProcessingRequest. Canonical fields win; legacy fields are accepted as a
// fallback. A message matching neither shape is a TriggerDecodeError.
func ParseTriggerMessage(body []byte, notificationTarget string) (ProcessingRequest, error) {
	var env triggerEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ProcessingRequest{}, &TriggerDecodeError{Err: err}
	}

	id := env.ID
	if id == "" {
		id = env.RequestID
	}
	sourcePath := env.SourceFileKey
	if sourcePath == "" {
		sourcePath = env.S3Path
	}
	if id == "" || sourcePath == "" {
		return ProcessingRequest{}, &TriggerDecodeError{
			Err: errors.New("missing request id or source file key"),
		}
	}

	bucket, key, err := ParseObjectPath(sourcePath)
	if err != nil {
		return ProcessingRequest{}, &TriggerDecodeError{Err: err}
	}

	return ProcessingRequest{
		RequestID:          id,
		SourceBucket:       bucket,
		SourceKey:          key,
		NotificationTarget: notificationTarget,
	}, nil
}

// CompletionMessage is the outbound notification payload. The wire contract
// is exactly these three fields.
type CompletionMessage struct {
	RequestID    string           `json:"request_id"`
	ResultS3Path string           `json:"result_s3_path"`
	Status       ProcessingStatus `json:"status"`
}

const objectScheme = "s3://"

// ParseObjectPath splits an "s3://bucket/key" path into its components.
func ParseObjectPath(s string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(s, objectScheme)
	if !ok {
		return "", "", fmt.Errorf("invalid object path %q: missing %s scheme", s, objectScheme)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid object path %q: missing bucket or key", s)
	}
	return bucket, key, nil
}

// ObjectURL formats a bucket and key back into an "s3://" location string.
func ObjectURL(bucket, key string) string {
	return objectScheme + bucket + "/" + key
}
