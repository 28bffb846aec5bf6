package entity

import (
	"path"
	"time"
)

// ResultObjectKey builds the object key for an uploaded archive:
// <basePrefix>/<YYYY-MM-DD>/<requestID>/<filename>.
func ResultObjectKey(basePrefix, requestID, filename string, now time.Time) string {
	return path.Join(basePrefix, now.Format("2006-01-02"), requestID, filename)
}
