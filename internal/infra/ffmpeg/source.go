package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// videoSource streams decoded frames out of an ffmpeg child process as raw
// RGBA over a pipe, one width*height*4 byte block per frame.
type videoSource struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	width  int
	height int
	buf    []byte

	closeOnce sync.Once
}

func openVideoSource(ctx context.Context, path string) (frameSource, error) {
	width, height, err := probeDimensions(ctx, path)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	return &videoSource{
		cmd:    cmd,
		stdout: stdout,
		width:  width,
		height: height,
		buf:    make([]byte, width*height*4),
	}, nil
}

// Next reads one raw frame off the pipe. The frame buffer is reused between
// calls; callers must consume the returned image before calling Next again.
func (s *videoSource) Next() (image.Image, error) {
	n, err := io.ReadFull(s.stdout, s.buf)
	if err != nil {
		if n == 0 && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read raw frame: %w", err)
	}

	return &image.RGBA{
		Pix:    s.buf,
		Stride: s.width * 4,
		Rect:   image.Rect(0, 0, s.width, s.height),
	}, nil
}

// Close tears down the pipe and the ffmpeg process exactly once. The kill
// handles early stops where ffmpeg still has frames to emit.
func (s *videoSource) Close() error {
	s.closeOnce.Do(func() {
		s.stdout.Close()
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.cmd.Wait()
	})
	return nil
}

func probeDimensions(ctx context.Context, path string) (width, height int, err error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=p=0",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe: %w", err)
	}

	parts := strings.Split(strings.TrimSpace(string(out)), ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("ffprobe: unexpected output %q", strings.TrimSpace(string(out)))
	}
	width, err = strconv.Atoi(parts[0])
	if err == nil {
		height, err = strconv.Atoi(parts[1])
	}
	if err != nil || width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("ffprobe: invalid dimensions %q", strings.TrimSpace(string(out)))
	}
	return width, height, nil
}
