package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/clipworks/clip-engine/internal/clips"
	"github.com/rs/zerolog"
)

// FFmpegRenderer cuts and reformats clip files with ffmpeg.
type FFmpegRenderer struct {
	OutputDir string
	Log       zerolog.Logger
}

// Render cuts [Start, End) from the source, reframes it for the platform,
// optionally burns in captions, and writes the result under OutputDir.
// The output name is derived from the clip id, so re-rendering the same
// identity overwrites rather than accumulates.
func (r *FFmpegRenderer) Render(ctx context.Context, req clips.RenderRequest) (string, error) {
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	outPath := filepath.Join(r.OutputDir, req.ClipID.String()+".mp4")

	filters := []string{frameFilter(req.Spec)}
	var cleanup func()
	if len(req.Captions) > 0 {
		srtPath, c, err := WriteSRTFile(req.Captions)
		if err != nil {
			return "", err
		}
		cleanup = c
		filters = append(filters, fmt.Sprintf(
			"subtitles=%s:force_style='FontSize=18,PrimaryColour=&Hffffff,OutlineColour=&H000000,Outline=2'",
			escapeFilterPath(srtPath)))
	}
	if cleanup != nil {
		defer cleanup()
	}

	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", req.Start),
		"-to", fmt.Sprintf("%.3f", req.End),
		"-i", req.SrcPath,
		"-vf", strings.Join(filters, ","),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		outPath,
	}

	r.Log.Debug().
		Str("clip_id", req.ClipID.String()).
		Str("platform", req.Spec.Name).
		Float64("start", req.Start).
		Float64("end", req.End).
		Msg("rendering clip")

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("ffmpeg render %s: %w: %s", req.ClipID, err, lastLines(string(out), 3))
	}
	return outPath, nil
}

// frameFilter builds the crop/scale chain for a platform's aspect ratio.
func frameFilter(spec clips.PlatformSpec) string {
	switch spec.AspectRatio {
	case "9:16":
		// Center-crop to vertical, then scale.
		return fmt.Sprintf("crop=ih*9/16:ih,scale=%d:%d", spec.Width, spec.Height)
	case "1:1":
		return fmt.Sprintf("crop=ih:ih,scale=%d:%d", spec.Width, spec.Height)
	default:
		// Landscape targets keep the full frame and pad to fit.
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
			spec.Width, spec.Height, spec.Width, spec.Height)
	}
}

// escapeFilterPath escapes characters ffmpeg's filter parser treats
// specially in file paths.
func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, `\`, `\\`)
	p = strings.ReplaceAll(p, `:`, `\:`)
	p = strings.ReplaceAll(p, `'`, `\'`)
	return p
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
