package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lumiere-fiap-soat-hackaton/fiap-lumiere-extractor-lambda/internal/domain/entity"
	"github.com/lumiere-fiap-soat-hackaton/fiap-lumiere-extractor-lambda/internal/domain/port"
	"github.com/lumiere-fiap-soat-hackaton/fiap-lumiere-extractor-lambda/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProcessMediaUseCase orchestrates one request through
// download -> extract -> (package -> upload) -> notify, sending exactly one
// completion notification per request and re-raising the original pipeline
// error to the caller on failure.
type ProcessMediaUseCase struct {
	storage   port.ObjectStorage
	extractor port.FrameExtractor
	archiver  port.Archiver
	notifier  port.CompletionNotifier
	dlq       port.DLQPublisher
	logger    *zap.Logger

	tempDir      string
	outputBucket string
	basePrefix   string
	resultQueue  string
	limits       entity.ExtractionLimits
}

type ProcessMediaConfig struct {
	TempDir      string
	OutputBucket string
	BasePrefix   string
	ResultQueue  string
	Limits       entity.ExtractionLimits
}

func NewProcessMediaUseCase(
	storage port.ObjectStorage,
	extractor port.FrameExtractor,
	archiver port.Archiver,
	notifier port.CompletionNotifier,
	dlq port.DLQPublisher,
	logger *zap.Logger,
	cfg ProcessMediaConfig,
) *ProcessMediaUseCase {
	return &ProcessMediaUseCase{
		storage:      storage,
		extractor:    extractor,
		archiver:     archiver,
		notifier:     notifier,
		dlq:          dlq,
		logger:       logger,
		tempDir:      cfg.TempDir,
		outputBucket: cfg.OutputBucket,
		basePrefix:   cfg.BasePrefix,
		resultQueue:  cfg.ResultQueue,
		limits:       cfg.Limits,
	}
}

// Execute is the trigger adapter entry point: it decodes one raw queue
// message and hands the resulting request to Process. A malformed message
// never becomes a request: it goes straight to the DLQ with no completion
// notification, and the delivery is acked.
func (uc *ProcessMediaUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	req, err := entity.ParseTriggerMessage(rawMsg, uc.resultQueue)
	if err != nil {
		uc.logger.Error("failed to decode trigger message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "decode_error: "+err.Error())
		return nil
	}
	return uc.Process(ctx, req)
}

// Process runs the full pipeline for one accepted request. All outcomes are
// communicated through the notifier; the returned error is the original
// pipeline error (for the caller's retry policy), never the notification
// error when both occur.
func (uc *ProcessMediaUseCase) Process(ctx context.Context, req entity.ProcessingRequest) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessMediaUseCase.Process")
	defer span.End()

	span.SetAttributes(
		attribute.String("request.id", req.RequestID),
		attribute.String("request.source_key", req.SourceKey),
	)

	log := uc.logger.With(zap.String("request_id", req.RequestID), zap.String("source_key", req.SourceKey))
	log.Info("starting processing workflow")

	totalTimer := time.Now()
	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	// Request-scoped scratch directory, removed on every path.
	scratchDir := filepath.Join(uc.tempDir, req.RequestID)
	defer os.RemoveAll(scratchDir)

	outcome, procErr := uc.runPipeline(ctx, req, scratchDir, log)

	notifyErr := uc.notifier.Notify(ctx, req.NotificationTarget, req.RequestID, outcome.ResultLocation, outcome.Status)
	if notifyErr != nil {
		log.Error("completion notification failed", zap.Error(notifyErr))
	}

	metrics.RequestsProcessedTotal.WithLabelValues(string(outcome.Status)).Inc()
	metrics.StageDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	if procErr != nil {
		log.Error("request failed", zap.Error(procErr))
		return procErr
	}
	if notifyErr != nil {
		return notifyErr
	}

	log.Info("request completed",
		zap.String("status", string(outcome.Status)),
		zap.String("result_location", outcome.ResultLocation),
	)
	return nil
}

func (uc *ProcessMediaUseCase) runPipeline(
	ctx context.Context,
	req entity.ProcessingRequest,
	scratchDir string,
	log *zap.Logger,
) (entity.ProcessingOutcome, error) {
	tracer := otel.Tracer("usecase")
	failure := entity.ProcessingOutcome{Status: entity.StatusFailure}

	framesDir := filepath.Join(scratchDir, "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return failure, fmt.Errorf("create scratch dir: %w", err)
	}

	// DOWNLOADING
	dlStart := time.Now()
	dlCtx, spanDl := tracer.Start(ctx, "download_source")
	videoPath := filepath.Join(scratchDir, filepath.Base(req.SourceKey))
	err := uc.storage.Download(dlCtx, req.SourceBucket, req.SourceKey, videoPath)
	spanDl.End()
	if err != nil {
		log.Error("source download failed", zap.Error(err))
		return failure, err
	}
	metrics.StageDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	// EXTRACTING
	exStart := time.Now()
	exCtx, spanEx := tracer.Start(ctx, "extract_frames")
	result, err := uc.extractor.Extract(exCtx, videoPath, framesDir, uc.limits)
	spanEx.End()
	if err != nil {
		log.Error("frame extraction failed", zap.Error(err))
		return failure, err
	}
	metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(exStart).Seconds())
	metrics.FramesExtractedTotal.Add(float64(result.FrameCount))
	metrics.ExtractionStopTotal.WithLabelValues(string(result.StopReason)).Inc()

	// A source that yields no frames is a valid terminal condition, not an
	// error; packaging and upload are skipped.
	if result.FrameCount == 0 {
		log.Warn("no frames extracted")
		return entity.ProcessingOutcome{Status: entity.StatusNoFrames}, nil
	}

	// PACKAGING
	zipStart := time.Now()
	zipCtx, spanZip := tracer.Start(ctx, "create_archive")
	base := strings.TrimSuffix(filepath.Base(req.SourceKey), filepath.Ext(req.SourceKey))
	archiveName := base + "_frames.zip"
	archivePath := filepath.Join(scratchDir, archiveName)
	err = uc.archiver.CreateArchive(zipCtx, framesDir, archivePath)
	spanZip.End()
	if err != nil {
		log.Error("archive creation failed", zap.Error(err))
		return failure, err
	}
	metrics.StageDuration.WithLabelValues("package").Observe(time.Since(zipStart).Seconds())

	// UPLOADING
	upStart := time.Now()
	upCtx, spanUp := tracer.Start(ctx, "upload_archive")
	outputKey := entity.ResultObjectKey(uc.basePrefix, req.RequestID, archiveName, time.Now().UTC())
	err = uc.storage.Upload(upCtx, archivePath, uc.outputBucket, outputKey)
	spanUp.End()
	if err != nil {
		log.Error("archive upload failed", zap.Error(err))
		return failure, err
	}
	metrics.StageDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	location := entity.ObjectURL(uc.outputBucket, outputKey)
	log.Info("request processed",
		zap.Int("frame_count", result.FrameCount),
		zap.String("stop_reason", string(result.StopReason)),
		zap.Duration("extraction_elapsed", result.Elapsed),
		zap.String("result_location", location),
	)

	return entity.ProcessingOutcome{Status: entity.StatusSuccess, ResultLocation: location}, nil
}
