package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lumiere-fiap-soat-hackaton/fiap-lumiere-extractor-lambda/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStorage struct {
	downloadErr   error
	uploadErr     error
	downloadCalls int
	uploadCalls   int
	uploadedKey   string
	uploadedTo    string
}

func (f *fakeStorage) Download(ctx context.Context, bucket, key, destPath string) error {
	f.downloadCalls++
	if f.downloadErr != nil {
		return f.downloadErr
	}
	return os.WriteFile(destPath, []byte("video"), 0o644)
}

func (f *fakeStorage) Upload(ctx context.Context, localPath, bucket, key string) error {
	f.uploadCalls++
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploadedTo = bucket
	f.uploadedKey = key
	return nil
}

type fakeExtractor struct {
	result *entity.ExtractionResult
	err    error
	calls  int
	limits entity.ExtractionLimits
}

func (f *fakeExtractor) Extract(ctx context.Context, sourcePath, outputDir string, limits entity.ExtractionLimits) (*entity.ExtractionResult, error) {
	f.calls++
	f.limits = limits
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeArchiver struct {
	err   error
	calls int
	path  string
}

func (f *fakeArchiver) CreateArchive(ctx context.Context, sourceDir, archivePath string) error {
	f.calls++
	f.path = archivePath
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(archivePath, []byte("zip"), 0o644)
}

type notifyCall struct {
	target   string
	id       string
	location string
	status   entity.ProcessingStatus
}

type fakeNotifier struct {
	err   error
	calls []notifyCall
}

func (f *fakeNotifier) Notify(ctx context.Context, target, requestID, resultLocation string, status entity.ProcessingStatus) error {
	f.calls = append(f.calls, notifyCall{target, requestID, resultLocation, status})
	return f.err
}

type fakeDLQ struct {
	calls   int
	lastMsg []byte
}

func (f *fakeDLQ) PublishToDLQ(ctx context.Context, msg []byte, reason string) error {
	f.calls++
	f.lastMsg = msg
	return nil
}

type fixture struct {
	storage   *fakeStorage
	extractor *fakeExtractor
	archiver  *fakeArchiver
	notifier  *fakeNotifier
	dlq       *fakeDLQ
	tempDir   string
	uc        *ProcessMediaUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		storage: &fakeStorage{},
		extractor: &fakeExtractor{
			result: &entity.ExtractionResult{
				FrameCount: 3,
				StopReason: entity.StopEndOfSource,
				Elapsed:    time.Second,
			},
		},
		archiver: &fakeArchiver{},
		notifier: &fakeNotifier{},
		dlq:      &fakeDLQ{},
		tempDir:  t.TempDir(),
	}
	f.uc = NewProcessMediaUseCase(
		f.storage, f.extractor, f.archiver, f.notifier, f.dlq,
		zap.NewNop(),
		ProcessMediaConfig{
			TempDir:      f.tempDir,
			OutputBucket: "lumiere-media",
			BasePrefix:   "processed",
			ResultQueue:  "media.results",
			Limits: entity.ExtractionLimits{
				MaxFrames:        10,
				Timeout:          240 * time.Second,
				LowDiskThreshold: 1 << 20,
			},
		},
	)
	return f
}

func testRequest() entity.ProcessingRequest {
	return entity.ProcessingRequest{
		RequestID:          "req-123",
		SourceBucket:       "media-in",
		SourceKey:          "videos/sample.mp4",
		NotificationTarget: "media.results",
	}
}

func TestProcessSuccess(t *testing.T) {
	f := newFixture(t)

	err := f.uc.Process(context.Background(), testRequest())
	require.NoError(t, err)

	require.Len(t, f.notifier.calls, 1)
	call := f.notifier.calls[0]
	assert.Equal(t, "media.results", call.target)
	assert.Equal(t, "req-123", call.id)
	assert.Equal(t, entity.StatusSuccess, call.status)

	date := time.Now().UTC().Format("2006-01-02")
	wantLocation := fmt.Sprintf("s3://lumiere-media/processed/%s/req-123/sample_frames.zip", date)
	assert.Equal(t, wantLocation, call.location)

	assert.Equal(t, 1, f.archiver.calls)
	assert.Equal(t, 1, f.storage.uploadCalls)
	assert.Equal(t, "lumiere-media", f.storage.uploadedTo)
	assert.Equal(t, fmt.Sprintf("processed/%s/req-123/sample_frames.zip", date), f.storage.uploadedKey)
}

func TestProcessPassesConfiguredLimits(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.uc.Process(context.Background(), testRequest()))
	assert.Equal(t, 10, f.extractor.limits.MaxFrames)
	assert.Equal(t, 240*time.Second, f.extractor.limits.Timeout)
}

func TestProcessZeroFramesShortCircuits(t *testing.T) {
	f := newFixture(t)
	f.extractor.result = &entity.ExtractionResult{FrameCount: 0, StopReason: entity.StopEndOfSource}

	err := f.uc.Process(context.Background(), testRequest())
	require.NoError(t, err)

	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, entity.StatusNoFrames, f.notifier.calls[0].status)
	assert.Equal(t, "", f.notifier.calls[0].location)
	assert.Zero(t, f.archiver.calls, "archiver must not run for zero frames")
	assert.Zero(t, f.storage.uploadCalls, "upload must not run for zero frames")
}

func TestProcessDownloadFailure(t *testing.T) {
	f := newFixture(t)
	cause := &entity.TransferError{Op: "download", Bucket: "media-in", Key: "videos/sample.mp4", Err: errors.New("access denied")}
	f.storage.downloadErr = cause

	err := f.uc.Process(context.Background(), testRequest())
	require.Error(t, err)

	var transferErr *entity.TransferError
	assert.True(t, errors.As(err, &transferErr), "original error propagates")

	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, entity.StatusFailure, f.notifier.calls[0].status)
	assert.Equal(t, "", f.notifier.calls[0].location)
	assert.Zero(t, f.extractor.calls)
	assert.Zero(t, f.archiver.calls)
	assert.Zero(t, f.storage.uploadCalls)
}

func TestProcessExtractionFailure(t *testing.T) {
	f := newFixture(t)
	f.extractor.err = &entity.ExtractionError{Path: "sample.mp4", Err: errors.New("cannot decode")}

	err := f.uc.Process(context.Background(), testRequest())
	require.Error(t, err)

	var exErr *entity.ExtractionError
	assert.True(t, errors.As(err, &exErr))

	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, entity.StatusFailure, f.notifier.calls[0].status)
	assert.Zero(t, f.archiver.calls)
}

func TestProcessPackagingFailure(t *testing.T) {
	f := newFixture(t)
	f.archiver.err = &entity.PackagingError{Dir: "frames", Err: errors.New("disk full")}

	err := f.uc.Process(context.Background(), testRequest())
	require.Error(t, err)

	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, entity.StatusFailure, f.notifier.calls[0].status)
	assert.Zero(t, f.storage.uploadCalls)
}

func TestProcessUploadFailure(t *testing.T) {
	f := newFixture(t)
	f.storage.uploadErr = &entity.TransferError{Op: "upload", Bucket: "lumiere-media", Key: "k", Err: errors.New("timeout")}

	err := f.uc.Process(context.Background(), testRequest())
	require.Error(t, err)

	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, entity.StatusFailure, f.notifier.calls[0].status)
	assert.Equal(t, "", f.notifier.calls[0].location)
}

func TestProcessNotifyFailureDoesNotMaskPipelineError(t *testing.T) {
	f := newFixture(t)
	cause := &entity.TransferError{Op: "download", Bucket: "b", Key: "k", Err: errors.New("boom")}
	f.storage.downloadErr = cause
	f.notifier.err = &entity.NotificationError{Target: "media.results", RequestID: "req-123", Err: errors.New("broker down")}

	err := f.uc.Process(context.Background(), testRequest())
	require.Error(t, err)

	var transferErr *entity.TransferError
	assert.True(t, errors.As(err, &transferErr), "pipeline error wins over notification error")
}

func TestProcessNotifyFailureOnSuccessPathSurfaces(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = &entity.NotificationError{Target: "media.results", RequestID: "req-123", Err: errors.New("broker down")}

	err := f.uc.Process(context.Background(), testRequest())
	require.Error(t, err)

	var notifErr *entity.NotificationError
	assert.True(t, errors.As(err, &notifErr))
}

func TestProcessNotifiesExactlyOncePerRequest(t *testing.T) {
	cases := map[string]func(*fixture){
		"success":        func(f *fixture) {},
		"zero frames":    func(f *fixture) { f.extractor.result.FrameCount = 0 },
		"download fails": func(f *fixture) { f.storage.downloadErr = errors.New("x") },
		"extract fails":  func(f *fixture) { f.extractor.err = errors.New("x") },
		"package fails":  func(f *fixture) { f.archiver.err = errors.New("x") },
		"upload fails":   func(f *fixture) { f.storage.uploadErr = errors.New("x") },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			mutate(f)
			_ = f.uc.Process(context.Background(), testRequest())
			assert.Len(t, f.notifier.calls, 1)
		})
	}
}

func TestProcessRemovesScratchDirectory(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.uc.Process(context.Background(), testRequest()))

	_, err := os.Stat(filepath.Join(f.tempDir, "req-123"))
	assert.True(t, os.IsNotExist(err), "scratch directory must be removed after processing")
}

func TestProcessRemovesScratchDirectoryOnFailure(t *testing.T) {
	f := newFixture(t)
	f.extractor.err = errors.New("boom")

	_ = f.uc.Process(context.Background(), testRequest())

	_, err := os.Stat(filepath.Join(f.tempDir, "req-123"))
	assert.True(t, os.IsNotExist(err))
}

func TestExecuteDecodesAndProcesses(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"id":"req-123","sourceFileKey":"s3://media-in/videos/sample.mp4"}`)

	require.NoError(t, f.uc.Execute(context.Background(), body))

	assert.Equal(t, 1, f.storage.downloadCalls)
	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, entity.StatusSuccess, f.notifier.calls[0].status)
	assert.Zero(t, f.dlq.calls)
}

func TestExecuteMalformedMessageGoesToDLQWithoutNotification(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{broken`)

	err := f.uc.Execute(context.Background(), body)
	require.NoError(t, err, "malformed messages are dead-lettered, not requeued")

	assert.Equal(t, 1, f.dlq.calls)
	assert.Equal(t, body, f.dlq.lastMsg)
	assert.Empty(t, f.notifier.calls, "no notification before a request exists")
	assert.Zero(t, f.storage.downloadCalls)
}
