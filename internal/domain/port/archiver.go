package port

import "context"

type Archiver interface {
	CreateArchive(ctx context.Context, sourceDir, archivePath string) error
}
