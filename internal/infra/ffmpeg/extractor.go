package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/lumiere-fiap-soat-hackaton/fiap-lumiere-extractor-lambda/internal/domain/entity"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// jpegQuality is the fixed lossy setting for written frames. It bounds
// archive size; the exact value is not correctness-critical.
const jpegQuality = 80

// diskCheckInterval is how many frames pass between free-space samples on
// the scratch volume.
const diskCheckInterval = 50

const frameNamePattern = "frame_%08d.jpg"

// frameSource yields decoded frames sequentially. Next returns io.EOF when
// the source is exhausted. Close releases the underlying handle and is safe
// to call more than once.
type frameSource interface {
	Next() (image.Image, error)
	Close() error
}

type Extractor struct {
	logger *zap.Logger

	// seams for tests
	openSource func(ctx context.Context, path string) (frameSource, error)
	diskFree   func(dir string) (uint64, error)
}

func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{
		logger:     logger,
		openSource: openVideoSource,
		diskFree:   freeBytes,
	}
}

// Extract reads frames sequentially from sourcePath and writes them to
// outputDir as frame_00000000.jpg, frame_00000001.jpg, ... until the source
// is exhausted or a limit triggers. Per iteration the checks run in a fixed
// order: timeout, frame cap, read, write, then (every diskCheckInterval
// frames) the free-space sample. The first condition to trigger is the
// reported stop reason.
func (e *Extractor) Extract(ctx context.Context, sourcePath, outputDir string, limits entity.ExtractionLimits) (*entity.ExtractionResult, error) {
	src, err := e.openSource(ctx, sourcePath)
	if err != nil {
		return nil, &entity.ExtractionError{Path: sourcePath, Err: err}
	}
	// Release the source handle on every exit path. Close is idempotent.
	defer src.Close()

	e.logger.Info("starting frame extraction",
		zap.String("source", filepath.Base(sourcePath)),
		zap.Int("max_frames", limits.MaxFrames),
		zap.Duration("timeout", limits.Timeout),
	)

	start := time.Now()
	count := 0
	reason := entity.StopEndOfSource

	for {
		if limits.Timeout > 0 && time.Since(start) > limits.Timeout {
			reason = entity.StopTimeout
			break
		}
		if limits.MaxFrames > 0 && count >= limits.MaxFrames {
			reason = entity.StopMaxFrames
			break
		}

		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			reason = entity.StopEndOfSource
			break
		}
		if err != nil {
			return nil, &entity.ExtractionError{Path: sourcePath, Err: fmt.Errorf("read frame %d: %w", count, err)}
		}

		if err := writeFrame(outputDir, count, frame); err != nil {
			return nil, fmt.Errorf("write frame %d: %w", count, err)
		}
		count++

		if count%diskCheckInterval == 0 {
			free, err := e.diskFree(outputDir)
			if err != nil {
				e.logger.Warn("free-space sample failed", zap.Error(err))
			} else if free < limits.LowDiskThreshold {
				e.logger.Warn("scratch volume low on space, stopping extraction",
					zap.Uint64("free_bytes", free),
					zap.Uint64("threshold_bytes", limits.LowDiskThreshold),
				)
				reason = entity.StopLowDiskSpace
				break
			}
		}

		if count%100 == 0 {
			e.logger.Info("extraction progress", zap.Int("frames", count))
		}
	}

	elapsed := time.Since(start)
	e.logger.Info("frame extraction finished",
		zap.Int("frame_count", count),
		zap.String("stop_reason", string(reason)),
		zap.Duration("elapsed", elapsed),
	)

	return &entity.ExtractionResult{
		FrameCount: count,
		StopReason: reason,
		Elapsed:    elapsed,
	}, nil
}

func writeFrame(dir string, index int, frame image.Image) error {
	f, err := os.Create(filepath.Join(dir, fmt.Sprintf(frameNamePattern, index)))
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, frame, &jpeg.Options{Quality: jpegQuality}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func freeBytes(dir string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, err
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}
