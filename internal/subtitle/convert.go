// Package subtitle converts cue-based subtitle text into a flat event list
// and renders event lists back out as SRT or WebVTT.
package subtitle

import (
	"bufio"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	subsrender "github.com/martinlindhe/subtitles"
)

// Event is one timed caption. Text keeps embedded newlines and any inline
// markup exactly as the source had them.
type Event struct {
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
	Text    string `json:"text"`
}

// Track is an ordered list of events.
type Track struct {
	Events []Event `json:"events"`
}

// Timestamps accept both the comma and dot millisecond separators, so one
// pattern covers SRT and WebVTT cues. Cue settings after the end time are
// tolerated and dropped.
var cueTiming = regexp.MustCompile(
	`^(\d{1,2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{1,2}):(\d{2}):(\d{2})[,.](\d{3})`)

var sequenceNumber = regexp.MustCompile(`^\d+$`)

// Parse scans cue text into a Track. It is tolerant by construction: header
// blocks and comments before the first cue, sequence numbers, and stray
// lines between cues are all skipped rather than rejected. Cues whose end
// does not follow their start are dropped.
func Parse(content string) Track {
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	var events []Event
	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if line == "" || sequenceNumber.MatchString(line) {
			i++
			continue
		}

		m := cueTiming.FindStringSubmatch(line)
		if m == nil {
			// Header, NOTE block or stray text outside a cue.
			i++
			continue
		}
		i++

		start := timestampMs(m[1], m[2], m[3], m[4])
		end := timestampMs(m[5], m[6], m[7], m[8])

		var text []string
		for i < len(lines) {
			textLine := strings.TrimRight(lines[i], " \t")
			if strings.TrimSpace(textLine) == "" {
				break
			}
			// A bare number directly before a timing line starts the next cue.
			if sequenceNumber.MatchString(strings.TrimSpace(textLine)) &&
				i+1 < len(lines) && cueTiming.MatchString(strings.TrimSpace(lines[i+1])) {
				break
			}
			text = append(text, textLine)
			i++
		}

		if end <= start || len(text) == 0 {
			continue
		}
		events = append(events, Event{
			StartMs: start,
			EndMs:   end,
			Text:    strings.Join(text, "\n"),
		})
	}

	return Track{Events: events}
}

// Convert parses cue text and returns the events ordered by start time.
// Malformed input yields an empty track, never an error.
func Convert(content string) Track {
	track := Parse(content)
	sort.SliceStable(track.Events, func(i, j int) bool {
		return track.Events[i].StartMs < track.Events[j].StartMs
	})
	return track
}

// SRT renders the track as SubRip text.
func (t Track) SRT() string {
	s := t.render()
	return s.AsSRT()
}

// VTT renders the track as WebVTT text.
func (t Track) VTT() string {
	s := t.render()
	return s.AsVTT()
}

func (t Track) render() subsrender.Subtitle {
	captions := make([]subsrender.Caption, 0, len(t.Events))
	for i, e := range t.Events {
		captions = append(captions, subsrender.Caption{
			Seq:   i + 1,
			Start: msToTime(e.StartMs),
			End:   msToTime(e.EndMs),
			Text:  strings.Split(e.Text, "\n"),
		})
	}
	return subsrender.Subtitle{Captions: captions}
}

func timestampMs(h, m, s, ms string) int64 {
	hours, _ := strconv.ParseInt(h, 10, 64)
	mins, _ := strconv.ParseInt(m, 10, 64)
	secs, _ := strconv.ParseInt(s, 10, 64)
	millis, _ := strconv.ParseInt(ms, 10, 64)
	return ((hours*60+mins)*60+secs)*1000 + millis
}

// The render library works on wall-clock times; only the offsets matter.
func msToTime(ms int64) time.Time {
	return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).
		Add(time.Duration(ms) * time.Millisecond)
}
