package transcribe

import (
	"math"
	"strings"

	"github.com/clipworks/clip-engine/internal/database"
)

// boundaryTimeTolerance is how close two segment start times must be (after
// translation onto the absolute timeline) before identical text at a chunk
// boundary is treated as the same utterance heard twice.
const boundaryTimeTolerance = 1.0

// absoluteRows translates provider segments from chunk-local time onto the
// source media's absolute timeline. Empty segments are dropped.
func absoluteRows(segs []Segment, offset float64) []database.SegmentRow {
	rows := make([]database.SegmentRow, 0, len(segs))
	for _, s := range segs {
		text := strings.TrimSpace(s.Text)
		if text == "" || s.End <= s.Start {
			continue
		}
		rows = append(rows, database.SegmentRow{
			Start:      s.Start + offset,
			End:        s.End + offset,
			Text:       text,
			Confidence: s.Confidence,
		})
	}
	return rows
}

// dedupeOverlap removes segments from a new chunk that were already captured
// by the previous chunk's trailing overlap. prevEnd is the previous chunk's
// absolute end (including its overlap margin); only incoming segments that
// begin before prevEnd can be duplicates. The earlier chunk's segment is
// preferred: an incoming segment is dropped when a previous segment carries
// the same text at nearly the same time. Clearly different boundary text is
// kept; overlapping speech from two speakers is not a duplicate.
func dedupeOverlap(prev, incoming []database.SegmentRow, prevEnd float64) []database.SegmentRow {
	if len(prev) == 0 {
		return incoming
	}

	out := incoming[:0:0]
	for _, seg := range incoming {
		if seg.Start >= prevEnd {
			out = append(out, seg)
			continue
		}
		dup := false
		for i := len(prev) - 1; i >= 0; i-- {
			p := prev[i]
			if p.End < seg.Start-boundaryTimeTolerance {
				break
			}
			if sameText(p.Text, seg.Text) && math.Abs(p.Start-seg.Start) <= boundaryTimeTolerance {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, seg)
		}
	}
	return out
}

func sameText(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func speakerLabel(n int) string {
	if n == 2 {
		return "Speaker 2"
	}
	return "Speaker 1"
}
