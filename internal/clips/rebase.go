package clips

import (
	"sort"
	"strings"

	"github.com/clipworks/clip-engine/internal/database"
)

// RebasedCaption is a transcript segment projected into a clip's local,
// zero-based timeline. The absolute times are preserved alongside so a
// caption can always be traced back to its place in the source transcript.
type RebasedCaption struct {
	Start float64 `json:"start"` // clip-local, >= 0
	End   float64 `json:"end"`   // clip-local, <= clip length

	AbsoluteStart float64 `json:"absolute_start"`
	AbsoluteEnd   float64 `json:"absolute_end"`

	Text       string  `json:"text"`
	Speaker    *string `json:"speaker,omitempty"`
	Confidence float32 `json:"confidence"`
}

// Rebase projects the transcript segments overlapping [clipStart, clipEnd)
// onto the clip's local timeline. Partial segments at the clip edges are
// included and clamped to the boundary. The transcript stays the single
// source of record: output is recomputed on every call and never persisted,
// so clip boundaries can move freely without touching segment rows.
func Rebase(segments []database.SegmentRow, clipStart, clipEnd float64) []RebasedCaption {
	length := clipEnd - clipStart
	if length <= 0 {
		return nil
	}

	out := make([]RebasedCaption, 0, len(segments))
	for _, seg := range segments {
		if seg.End <= clipStart || seg.Start >= clipEnd {
			continue
		}
		rel := RebasedCaption{
			Start:         seg.Start - clipStart,
			End:           seg.End - clipStart,
			AbsoluteStart: seg.Start,
			AbsoluteEnd:   seg.End,
			Text:          seg.Text,
			Speaker:       seg.Speaker,
			Confidence:    seg.Confidence,
		}
		if rel.Start < 0 {
			rel.Start = 0
		}
		if rel.End > length {
			rel.End = length
		}
		out = append(out, rel)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// CaptionsText concatenates rebased caption text for identity hashing. A
// transcript correction changes this text and therefore the clip identity,
// which is intended: corrected captions are a different artifact.
func CaptionsText(captions []RebasedCaption) string {
	parts := make([]string, 0, len(captions))
	for _, c := range captions {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, " ")
}
