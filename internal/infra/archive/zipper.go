package archive

import (
	"archive/zip"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lumiere-fiap-soat-hackaton/fiap-lumiere-extractor-lambda/internal/domain/entity"
)

type ZipArchiver struct{}

func NewZipArchiver() *ZipArchiver {
	return &ZipArchiver{}
}

// CreateArchive zips every file under sourceDir into archivePath, entry
// names relative to sourceDir.
func (z *ZipArchiver) CreateArchive(ctx context.Context, sourceDir, archivePath string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return &entity.PackagingError{Dir: sourceDir, Err: err}
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	err = filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		return addFileToZip(zw, path, filepath.ToSlash(rel))
	})
	if err != nil {
		zw.Close()
		return &entity.PackagingError{Dir: sourceDir, Err: err}
	}

	if err := zw.Close(); err != nil {
		return &entity.PackagingError{Dir: sourceDir, Err: err}
	}
	if err := out.Close(); err != nil {
		return &entity.PackagingError{Dir: sourceDir, Err: err}
	}
	return nil
}

func addFileToZip(zw *zip.Writer, path, name string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = name
	header.Method = zip.Deflate

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(writer, file)
	return err
}
