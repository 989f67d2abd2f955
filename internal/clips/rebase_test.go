package clips

import (
	"reflect"
	"testing"

	"github.com/clipworks/clip-engine/internal/database"
)

func TestRebaseClampsPartialSegments(t *testing.T) {
	segs := []database.SegmentRow{
		{Start: 110.0, End: 119.5, Text: "before the clip"},
		{Start: 125.5, End: 140.2, Text: "straddles the end"},
		{Start: 121.0, End: 124.0, Text: "fully inside"},
		{Start: 131.0, End: 135.0, Text: "after the clip"},
	}
	out := Rebase(segs, 120, 130)
	if len(out) != 2 {
		t.Fatalf("expected 2 captions, got %d: %+v", len(out), out)
	}

	// Ordered by relative start.
	if out[0].Text != "fully inside" {
		t.Errorf("first caption %q", out[0].Text)
	}
	if out[0].Start != 1.0 || out[0].End != 4.0 {
		t.Errorf("inside caption [%v, %v], want [1, 4]", out[0].Start, out[0].End)
	}

	// A segment starting past the clip start keeps its offset; one running
	// past the clip end is clamped to the clip length.
	edge := out[1]
	if edge.Text != "straddles the end" {
		t.Fatalf("second caption %q", edge.Text)
	}
	if edge.Start != 5.5 || edge.End != 10.0 {
		t.Errorf("edge caption [%v, %v], want [5.5, 10]", edge.Start, edge.End)
	}
	if edge.AbsoluteStart != 125.5 || edge.AbsoluteEnd != 140.2 {
		t.Errorf("absolute times [%v, %v] must be preserved", edge.AbsoluteStart, edge.AbsoluteEnd)
	}
}

func TestRebaseClampsLeadingEdge(t *testing.T) {
	segs := []database.SegmentRow{
		{Start: 115.0, End: 123.0, Text: "straddles the start"},
	}
	out := Rebase(segs, 120, 130)
	if len(out) != 1 {
		t.Fatalf("expected 1 caption, got %d", len(out))
	}
	if out[0].Start != 0.0 || out[0].End != 3.0 {
		t.Errorf("caption [%v, %v], want [0, 3]", out[0].Start, out[0].End)
	}
}

func TestRebaseWindowStartingMidSegment(t *testing.T) {
	segs := []database.SegmentRow{
		{Start: 120.0, End: 130.0, Text: "overlaps the window head"},
	}
	out := Rebase(segs, 125.5, 140.2)
	if len(out) != 1 {
		t.Fatalf("expected 1 caption, got %d", len(out))
	}
	if out[0].Start != 0.0 || out[0].End != 4.5 {
		t.Errorf("caption [%v, %v], want [0, 4.5]", out[0].Start, out[0].End)
	}
	if out[0].AbsoluteStart != 120.0 || out[0].AbsoluteEnd != 130.0 {
		t.Errorf("absolute times [%v, %v] must be preserved", out[0].AbsoluteStart, out[0].AbsoluteEnd)
	}
}

func TestRebaseBounds(t *testing.T) {
	segs := []database.SegmentRow{
		{Start: 118.0, End: 135.0, Text: "covers the whole clip"},
		{Start: 122.0, End: 128.0, Text: "inside"},
	}
	clipStart, clipEnd := 120.0, 130.0
	for _, c := range Rebase(segs, clipStart, clipEnd) {
		if c.Start < 0 {
			t.Errorf("caption %q relative start %v < 0", c.Text, c.Start)
		}
		if c.End > clipEnd-clipStart {
			t.Errorf("caption %q relative end %v > clip length", c.Text, c.End)
		}
	}
}

func TestRebaseIsPure(t *testing.T) {
	segs := []database.SegmentRow{
		{Start: 119.0, End: 121.0, Text: "a"},
		{Start: 121.0, End: 129.0, Text: "b"},
	}
	first := Rebase(segs, 120, 130)
	second := Rebase(segs, 120, 130)
	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs must produce identical output")
	}
}

func TestRebaseEmptyWindow(t *testing.T) {
	segs := []database.SegmentRow{{Start: 0, End: 10, Text: "x"}}
	if out := Rebase(segs, 50, 50); out != nil {
		t.Errorf("zero-length window should yield nil, got %+v", out)
	}
	if out := Rebase(segs, 60, 50); out != nil {
		t.Errorf("inverted window should yield nil, got %+v", out)
	}
}

func TestCaptionsText(t *testing.T) {
	got := CaptionsText([]RebasedCaption{{Text: "hello"}, {Text: "world"}})
	if got != "hello world" {
		t.Errorf("CaptionsText = %q", got)
	}
	if got := CaptionsText(nil); got != "" {
		t.Errorf("empty captions = %q", got)
	}
}
