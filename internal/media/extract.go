package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// ffmpegAvailable caches whether ffmpeg is in PATH (checked once at startup).
var ffmpegAvailable *bool

// CheckFFmpeg checks if ffmpeg is available in PATH. Call once at startup.
func CheckFFmpeg() bool {
	if ffmpegAvailable != nil {
		return *ffmpegAvailable
	}
	_, err := exec.LookPath("ffmpeg")
	avail := err == nil
	ffmpegAvailable = &avail
	return avail
}

// FFmpegExtractor pulls bounded audio sub-ranges out of a media file for
// chunked transcription.
type FFmpegExtractor struct{}

// ExtractRange writes [start, start+duration) of the source's audio to a
// temporary 16kHz mono WAV and returns its path with a cleanup function.
// Whisper-family models expect this format, and a mono downmix keeps chunk
// payloads small.
func (FFmpegExtractor) ExtractRange(ctx context.Context, srcPath string, start, duration float64) (string, func(), error) {
	noop := func() {}
	if !CheckFFmpeg() {
		return "", noop, fmt.Errorf("ffmpeg not found in PATH")
	}

	f, err := os.CreateTemp("", "clip-engine-chunk-*.wav")
	if err != nil {
		return "", noop, fmt.Errorf("create chunk temp file: %w", err)
	}
	outPath := f.Name()
	f.Close()

	// -ss before -i seeks on the demuxer, which is fast and accurate enough
	// for transcription windows.
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-ss", fmt.Sprintf("%.3f", start),
		"-t", fmt.Sprintf("%.3f", duration),
		"-i", srcPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outPath,
	)
	if err := cmd.Run(); err != nil {
		os.Remove(outPath)
		return "", noop, fmt.Errorf("ffmpeg extract [%.3f +%.3fs] from %s: %w", start, duration, filepath.Base(srcPath), err)
	}

	cleanup := func() {
		os.Remove(outPath)
	}
	return outPath, cleanup, nil
}
