package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"strings"

	probe "go.mau.fi/util/ffmpeg"
	"go.uber.org/zap"
)

var errNoVideoStream = errors.New("no video stream")

// VideoDecoder reads single frames out of video containers with the ffmpeg tools.
type VideoDecoder struct {
	ffmpegPath  string
	ffprobePath string
	logger      *zap.Logger
}

func NewVideoDecoder(ffmpegPath, ffprobePath string, logger *zap.Logger) *VideoDecoder {
	return &VideoDecoder{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, logger: logger}
}

// Available reports whether both executables can be found.
func (d *VideoDecoder) Available() bool {
	if _, err := exec.LookPath(d.ffmpegPath); err != nil {
		return false
	}
	_, err := exec.LookPath(d.ffprobePath)
	return err == nil
}

func (d *VideoDecoder) FrameCount(ctx context.Context, videoPath string) (int, error) {
	d.logStreamInfo(ctx, videoPath)

	cmd := exec.CommandContext(ctx, d.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-count_packets",
		"-show_entries", "stream=nb_read_packets,nb_frames",
		"-of", "default=noprint_wrappers=1",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseFrameCount(output)
}

func parseFrameCount(output []byte) (int, error) {
	fields := map[string]string{}
	sc := bufio.NewScanner(bytes.NewReader(output))
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if ok {
			fields[key] = value
		}
	}
	if len(fields) == 0 {
		return 0, errNoVideoStream
	}
	for _, key := range []string{"nb_read_packets", "nb_frames"} {
		if n, err := strconv.Atoi(fields[key]); err == nil && n >= 0 {
			return n, nil
		}
	}
	// the stream exists but its length is unknown; the first frame is still worth a try
	return 0, nil
}

func (d *VideoDecoder) FrameAt(ctx context.Context, videoPath string, index int) (image.Image, error) {
	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		"-v", "error",
		"-i", videoPath,
		"-vf", fmt.Sprintf("select=eq(n\\,%d)", index),
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg error: %w, output: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("frame %d not decoded", index)
	}
	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode frame %d: %w", index, err)
	}
	return img, nil
}

func (d *VideoDecoder) logStreamInfo(ctx context.Context, videoPath string) {
	if !probe.ProbeSupported() {
		return
	}
	result, err := probe.Probe(ctx, videoPath)
	if err != nil || result == nil {
		d.logger.Debug("video probe failed", zap.String("path", videoPath), zap.Error(err))
		return
	}
	for _, s := range result.Streams {
		if s.CodecType != "video" {
			continue
		}
		dur := s.Duration
		if dur <= 0 && result.Format != nil {
			dur = result.Format.Duration
		}
		d.logger.Debug("video stream",
			zap.String("path", videoPath),
			zap.Int("width", s.Width),
			zap.Int("height", s.Height),
			zap.Float64("duration_secs", dur),
		)
		return
	}
}
