package subtitle

import (
	"strings"
	"testing"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:03,500
Hello there.

2
00:00:04,000 --> 00:00:06,000
Two lines
of text.
`

const sampleVTT = `WEBVTT
Kind: captions

NOTE this block is a comment

00:00:01.000 --> 00:00:03.500 align:start
Hello there.

00:00:04.000 --> 00:00:06.000
<i>Styled</i> line.
`

func TestConvertSRT(t *testing.T) {
	track := Convert(sampleSRT)
	if len(track.Events) != 2 {
		t.Fatalf("event count = %d", len(track.Events))
	}
	first := track.Events[0]
	if first.StartMs != 1000 || first.EndMs != 3500 {
		t.Errorf("first cue timing = %d..%d", first.StartMs, first.EndMs)
	}
	if first.Text != "Hello there." {
		t.Errorf("first cue text = %q", first.Text)
	}
	if track.Events[1].Text != "Two lines\nof text." {
		t.Errorf("multi-line text = %q", track.Events[1].Text)
	}
}

func TestConvertVTT(t *testing.T) {
	track := Convert(sampleVTT)
	if len(track.Events) != 2 {
		t.Fatalf("event count = %d", len(track.Events))
	}
	if track.Events[0].StartMs != 1000 || track.Events[0].EndMs != 3500 {
		t.Errorf("timing with cue settings = %d..%d",
			track.Events[0].StartMs, track.Events[0].EndMs)
	}
	if track.Events[1].Text != "<i>Styled</i> line." {
		t.Errorf("markup must pass through, got %q", track.Events[1].Text)
	}
}

func TestConvertOrdersByStart(t *testing.T) {
	out := Convert(`1
00:00:10,000 --> 00:00:12,000
Second.

2
00:00:01,000 --> 00:00:02,000
First.
`)
	if len(out.Events) != 2 {
		t.Fatalf("event count = %d", len(out.Events))
	}
	if out.Events[0].Text != "First." || out.Events[1].Text != "Second." {
		t.Errorf("events not ordered by start: %v", out.Events)
	}
}

func TestConvertDropsInvertedAndEmptyCues(t *testing.T) {
	out := Convert(`1
00:00:05,000 --> 00:00:03,000
End before start.

2
00:00:06,000 --> 00:00:07,000

3
00:00:08,000 --> 00:00:09,000
Kept.
`)
	if len(out.Events) != 1 || out.Events[0].Text != "Kept." {
		t.Fatalf("expected only the valid cue, got %v", out.Events)
	}
}

func TestConvertMalformedInputIsEmpty(t *testing.T) {
	for _, in := range []string{"", "not a subtitle at all", "WEBVTT\n"} {
		if out := Convert(in); len(out.Events) != 0 {
			t.Errorf("Convert(%q) = %v, want no events", in, out.Events)
		}
	}
}

func TestNumericCueTextIsKept(t *testing.T) {
	// A line that is only digits is cue text when it is not followed by a
	// timing line.
	out := Convert(`1
00:00:01,000 --> 00:00:02,000
1984
`)
	if len(out.Events) != 1 || out.Events[0].Text != "1984" {
		t.Fatalf("numeric cue text lost: %v", out.Events)
	}
}

func TestRenderSRT(t *testing.T) {
	track := Track{Events: []Event{
		{StartMs: 1000, EndMs: 3500, Text: "Hello there."},
	}}
	got := track.SRT()
	if !strings.Contains(got, "00:00:01,000 --> 00:00:03,500") {
		t.Errorf("SRT timing missing from %q", got)
	}
	if !strings.Contains(got, "Hello there.") {
		t.Errorf("SRT text missing from %q", got)
	}
}

func TestRenderVTT(t *testing.T) {
	track := Track{Events: []Event{
		{StartMs: 1000, EndMs: 3500, Text: "Hello there."},
	}}
	got := track.VTT()
	if !strings.HasPrefix(got, "WEBVTT") {
		t.Errorf("VTT header missing from %q", got)
	}
	if !strings.Contains(got, "00:00:01.000 --> 00:00:03.500") {
		t.Errorf("VTT timing missing from %q", got)
	}
}

func TestRoundTrip(t *testing.T) {
	track := Convert(sampleSRT)
	again := Convert(track.SRT())
	if len(again.Events) != len(track.Events) {
		t.Fatalf("round trip lost events: %d vs %d", len(again.Events), len(track.Events))
	}
	for i := range again.Events {
		if again.Events[i] != track.Events[i] {
			t.Errorf("event %d changed: %v vs %v", i, again.Events[i], track.Events[i])
		}
	}
}
