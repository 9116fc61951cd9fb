package utils

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/bie71/veo3-studio/models"
)

// RunFFmpegCommand executes an FFmpeg command. The context bounds the run;
// a hung invocation is killed when the deadline expires.
func RunFFmpegCommand(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", append([]string{"-y"}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg error: %w, stderr: %s", err, tail(stderr.String(), 512))
	}
	return nil
}

// ExtractLastFrame writes a single still image sampled just before the end
// of the clip. Seeking ~0.1s from end-of-stream avoids landing past the last
// frame on streams with rounded frame counts.
func ExtractLastFrame(ctx context.Context, videoPath, outPNG string) error {
	args := []string{
		"-sseof", "-0.1",
		"-i", videoPath,
		"-frames:v", "1",
		outPNG,
	}
	if err := RunFFmpegCommand(ctx, args); err != nil {
		return fmt.Errorf("%w: %s: %v", models.ErrExtraction, videoPath, err)
	}
	return nil
}

// TargetDims resolves the output pixel dimensions for an aspect/resolution
// pair. Only the four supported combinations resolve.
func TargetDims(aspect, resolution string) (w, h int, err error) {
	switch {
	case aspect == models.Aspect16x9 && resolution == models.Resolution1080p:
		return 1920, 1080, nil
	case aspect == models.Aspect16x9 && resolution == models.Resolution720p:
		return 1280, 720, nil
	case aspect == models.Aspect9x16 && resolution == models.Resolution1080p:
		return 1080, 1920, nil
	case aspect == models.Aspect9x16 && resolution == models.Resolution720p:
		return 720, 1280, nil
	}
	return 0, 0, fmt.Errorf("%w: unsupported aspect/resolution %q/%q", models.ErrValidation, aspect, resolution)
}

// EscapeConcatPath quotes a path for the ffmpeg concat demuxer list format.
// Single quotes inside the path are closed, escaped and reopened.
func EscapeConcatPath(p string) string {
	return "'" + strings.ReplaceAll(p, "'", `'\''`) + "'"
}

// ConcatVideos re-encodes the ordered input clips to a uniform frame rate
// and geometry (scaled to fit, padded with black) and joins them into
// outFile. Heterogeneous sources concatenate cleanly because every input
// goes through the same normalization filter.
func ConcatVideos(ctx context.Context, inputs []string, outFile, aspect, resolution string, fps int) error {
	if len(inputs) == 0 {
		return fmt.Errorf("%w: no input clips", models.ErrConcat)
	}
	for _, in := range inputs {
		if !FileExists(in) {
			return fmt.Errorf("%w: clip not found: %s", models.ErrConcat, in)
		}
	}

	w, h, err := TargetDims(aspect, resolution)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrConcat, err)
	}

	listFile, err := writeConcatList(inputs)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrConcat, err)
	}
	defer os.Remove(listFile)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-vf", fmt.Sprintf("fps=%d,scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black", fps, w, h, w, h),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-r", strconv.Itoa(fps),
		outFile,
	}
	if err := RunFFmpegCommand(ctx, args); err != nil {
		return fmt.Errorf("%w: %v", models.ErrConcat, err)
	}
	return nil
}

func writeConcatList(inputs []string) (string, error) {
	f, err := os.CreateTemp("", "concat_*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create concat list: %w", err)
	}

	var sb strings.Builder
	for _, in := range inputs {
		sb.WriteString("file ")
		sb.WriteString(EscapeConcatPath(in))
		sb.WriteString("\n")
	}

	if _, err := f.WriteString(sb.String()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write concat list: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
