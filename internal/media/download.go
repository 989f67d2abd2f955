package media

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ytDlpAvailable caches whether yt-dlp is in PATH (checked once at startup).
var ytDlpAvailable *bool

// CheckYtDlp checks if yt-dlp is available in PATH. Call once at startup.
func CheckYtDlp() bool {
	if ytDlpAvailable != nil {
		return *ytDlpAvailable
	}
	_, err := exec.LookPath("yt-dlp")
	avail := err == nil
	ytDlpAvailable = &avail
	return avail
}

// ValidateSourceURL rejects anything that is not a plain http(s) URL before
// it reaches yt-dlp.
func ValidateSourceURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url has no host")
	}
	return nil
}

// SourceKind classifies a media URL by origin.
type SourceKind string

const (
	SourceYouTube SourceKind = "youtube"
	SourceXSpace  SourceKind = "x_space"
	SourceGeneric SourceKind = "url"
)

// KindOf detects where a URL points. X Spaces are audio-only live rooms, so
// they get their own download path.
func KindOf(rawURL string) SourceKind {
	lower := strings.ToLower(rawURL)
	if strings.Contains(lower, "youtube.com") || strings.Contains(lower, "youtu.be") {
		return SourceYouTube
	}
	if strings.Contains(lower, "twitter.com/i/spaces") || strings.Contains(lower, "x.com/i/spaces") {
		return SourceXSpace
	}
	return SourceGeneric
}

// YtDlp downloads source media from YouTube, X Spaces, and generic URLs by
// shelling out to yt-dlp. Files land under Dir/media/{id}/ so a downloaded
// item lives in the same per-media directory layout as an uploaded one.
type YtDlp struct {
	Dir string
	Log zerolog.Logger
}

// Fetch downloads the media behind url into the per-media directory and
// returns the local file path and the source's title. X Spaces come back as
// m4a audio; video sources are merged into mp4, capped at 1080p.
func (y *YtDlp) Fetch(ctx context.Context, rawURL string, mediaID uuid.UUID) (string, string, error) {
	if !CheckYtDlp() {
		return "", "", fmt.Errorf("yt-dlp not found in PATH")
	}
	if err := ValidateSourceURL(rawURL); err != nil {
		return "", "", err
	}

	destDir := filepath.Join(y.Dir, "media", mediaID.String())
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create media dir: %w", err)
	}

	kind := KindOf(rawURL)
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--quiet",
		"--print", "title",
		"--print", "after_move:filepath",
		"-o", filepath.Join(destDir, "source.%(ext)s"),
	}
	switch kind {
	case SourceYouTube:
		args = append(args,
			"-f", "bestvideo[height<=1080]+bestaudio/best[height<=1080]",
			"--merge-output-format", "mp4",
		)
	case SourceXSpace:
		args = append(args,
			"-f", "bestaudio/best",
			"--extract-audio",
			"--audio-format", "m4a",
		)
	default:
		args = append(args,
			"-f", "bestvideo+bestaudio/best",
			"--merge-output-format", "mp4",
		)
	}
	args = append(args, rawURL)

	y.Log.Info().
		Str("url", rawURL).
		Str("kind", string(kind)).
		Str("media_id", mediaID.String()).
		Msg("downloading source media")

	cmd := exec.CommandContext(ctx, "yt-dlp", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.RemoveAll(destDir)
		return "", "", fmt.Errorf("yt-dlp: %w: %s", err, lastLine(stderr.String()))
	}

	// One --print line per requested field, in flag order.
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) < 2 {
		os.RemoveAll(destDir)
		return "", "", fmt.Errorf("yt-dlp produced no output for %s", rawURL)
	}
	title := strings.TrimSpace(lines[0])
	path := strings.TrimSpace(lines[len(lines)-1])
	if _, err := os.Stat(path); err != nil {
		os.RemoveAll(destDir)
		return "", "", fmt.Errorf("downloaded file missing: %w", err)
	}
	return path, title, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
