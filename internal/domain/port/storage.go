package port

import "context"

type ObjectStorage interface {
	Download(ctx context.Context, bucket, key, destPath string) error
	Upload(ctx context.Context, localPath, bucket, key string) error
}
