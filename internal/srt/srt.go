// Package srt parses, serializes and reassembles SubRip subtitle
// transcripts. Reassembly chains independently-timestamped chunk
// transcripts into one continuous timeline.
package srt

import (
	"fmt"
	"strconv"
	"strings"
)

// Entry is one parsed subtitle cue: sequence number, start/end times in
// seconds, and the cue's text lines.
type Entry struct {
	Seq   int
	Start float64
	End   float64
	Text  []string
}

// Duration returns the cue length in seconds.
func (e Entry) Duration() float64 {
	return e.End - e.Start
}

// ParseTimestamp converts an SRT timestamp (hh:mm:ss,mmm) to seconds.
// A period is accepted in place of the comma since some tools emit it.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// FormatTimestamp renders seconds as an SRT timestamp (hh:mm:ss,mmm).
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMillis := int64(seconds*1000 + 0.5)
	millis := totalMillis % 1000
	totalSeconds := totalMillis / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d",
		totalSeconds/3600, (totalSeconds%3600)/60, totalSeconds%60, millis)
}

// Parse splits an SRT transcript into entries. Blank lines separate cue
// blocks; each block is a sequence number line, a "start --> end" timestamp
// line, and one or more text lines.
func Parse(transcript string) ([]Entry, error) {
	normalized := strings.ReplaceAll(transcript, "\r\n", "\n")
	trimmed := strings.TrimSpace(normalized)
	if trimmed == "" {
		return nil, nil
	}
	var entries []Entry
	for _, block := range splitBlocks(trimmed) {
		lines := nonBlankLines(block)
		if len(lines) < 2 {
			return nil, fmt.Errorf("invalid cue block %q", block)
		}
		seq, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid cue number %q", lines[0])
		}
		start, end, err := parseTimestampLine(lines[1])
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{
			Seq:   seq,
			Start: start,
			End:   end,
			Text:  lines[2:],
		})
	}
	return entries, nil
}

// Format serializes entries back into SRT, blocks joined by blank lines.
func Format(entries []Entry) string {
	if len(entries) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(entries))
	for _, e := range entries {
		var b strings.Builder
		fmt.Fprintf(&b, "%d\n%s --> %s", e.Seq, FormatTimestamp(e.Start), FormatTimestamp(e.End))
		for _, line := range e.Text {
			b.WriteString("\n")
			b.WriteString(line)
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

// PlainText strips cue numbering and timestamps, returning the spoken text
// joined by single spaces.
func PlainText(transcript string) string {
	entries, err := Parse(transcript)
	if err != nil {
		return strings.TrimSpace(transcript)
	}
	var parts []string
	for _, e := range entries {
		for _, line := range e.Text {
			if text := strings.TrimSpace(line); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, " ")
}

// LastEnd returns the largest end timestamp in the transcript, in seconds.
func LastEnd(transcript string) (float64, error) {
	entries, err := Parse(transcript)
	if err != nil {
		return 0, err
	}
	var last float64
	for _, e := range entries {
		if e.End > last {
			last = e.End
		}
	}
	return last, nil
}

func splitBlocks(content string) []string {
	raw := strings.Split(content, "\n\n")
	blocks := make([]string, 0, len(raw))
	for _, block := range raw {
		if strings.TrimSpace(block) != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

func nonBlankLines(block string) []string {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimRight(line, " \t"))
		}
	}
	return lines
}

func parseTimestampLine(line string) (float64, float64, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timestamp line %q", line)
	}
	start, err := ParseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseTimestamp(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
