package media

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ffprobeAvailable caches whether ffprobe is in PATH (checked once at startup).
var ffprobeAvailable *bool

// CheckFFprobe checks if ffprobe is available in PATH. Call once at startup.
func CheckFFprobe() bool {
	if ffprobeAvailable != nil {
		return *ffprobeAvailable
	}
	_, err := exec.LookPath("ffprobe")
	avail := err == nil
	ffprobeAvailable = &avail
	return avail
}

// FFprobe reads media metadata by shelling out to ffprobe.
type FFprobe struct{}

// Duration returns the media file's duration in seconds.
func (FFprobe) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	raw := strings.TrimSpace(string(out))
	if raw == "" || raw == "N/A" {
		return 0, fmt.Errorf("ffprobe %s: no duration reported", path)
	}
	d, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: parse duration %q: %w", path, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("ffprobe %s: non-positive duration %.3f", path, d)
	}
	return d, nil
}
