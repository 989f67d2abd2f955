package render

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/clipworks/clip-engine/internal/clips"
)

// WriteSRT writes rebased captions as SubRip. Caption times are clip-local,
// which is what downstream players expect.
func WriteSRT(w io.Writer, captions []clips.RebasedCaption) error {
	for i, c := range captions {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		if c.Speaker != nil && *c.Speaker != "" {
			text = *c.Speaker + ": " + text
		}
		_, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			i+1, formatSRTTime(c.Start), formatSRTTime(c.End), text)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteSRTFile writes captions to a temporary .srt file and returns its path
// with a cleanup function.
func WriteSRTFile(captions []clips.RebasedCaption) (string, func(), error) {
	noop := func() {}
	f, err := os.CreateTemp("", "clip-engine-captions-*.srt")
	if err != nil {
		return "", noop, fmt.Errorf("create srt temp file: %w", err)
	}
	if err := WriteSRT(f, captions); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", noop, fmt.Errorf("write srt: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", noop, err
	}
	path := f.Name()
	return path, func() { os.Remove(path) }, nil
}

// formatSRTTime renders seconds as HH:MM:SS,mmm.
func formatSRTTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	ms := int(math.Round(sec * 1000))
	h := ms / 3600000
	m := ms % 3600000 / 60000
	s := ms % 60000 / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}
