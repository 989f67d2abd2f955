package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// TypeFor classifies a filename as "audio" or "video" by extension.
// Unrecognized extensions count as video; ffprobe sorts out the rest.
func TypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp3", ".wav", ".m4a", ".aac", ".flac", ".ogg":
		return "audio"
	default:
		return "video"
	}
}

// FFmpegThumbnailer grabs a single frame from a video as a small JPEG
// preview, one second in to skip black lead-in frames.
type FFmpegThumbnailer struct{}

// Thumbnail writes thumb.jpg next to the video and returns its path.
func (FFmpegThumbnailer) Thumbnail(ctx context.Context, videoPath string) (string, error) {
	if !CheckFFmpeg() {
		return "", fmt.Errorf("ffmpeg not found in PATH")
	}
	out := filepath.Join(filepath.Dir(videoPath), "thumb.jpg")
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-ss", "00:00:01",
		"-i", videoPath,
		"-vframes", "1",
		"-vf", "scale=320:-1",
		out,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("ffmpeg thumbnail: %w: %s", err, lastLine(string(output)))
	}
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("thumbnail not written: %w", err)
	}
	return out, nil
}
