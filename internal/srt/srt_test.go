package srt

import (
	"strings"
	"testing"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want float64
	}{
		{"00:00:00,000", 0},
		{"00:00:01,500", 1.5},
		{"00:05:00,000", 300},
		{"01:02:03,450", 3723.45},
		{"00:00:02.250", 2.25}, // period instead of comma
	}
	for _, tc := range cases {
		got, err := ParseTimestamp(tc.in)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseTimestamp(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseTimestampInvalid(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "00:00", "abc", "00:00:00", "1:2,3"} {
		if _, err := ParseTimestamp(in); err == nil {
			t.Fatalf("ParseTimestamp(%q): expected error", in)
		}
	}
}

func TestFormatTimestampRoundTrip(t *testing.T) {
	t.Parallel()
	for _, seconds := range []float64{0, 1.5, 299.999, 300, 3723.45} {
		formatted := FormatTimestamp(seconds)
		parsed, err := ParseTimestamp(formatted)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", formatted, err)
		}
		if parsed != seconds {
			t.Fatalf("round trip %v -> %q -> %v", seconds, formatted, parsed)
		}
	}
}

const sampleSRT = `1
00:00:00,000 --> 00:00:02,500
Welcome to the show.

2
00:00:02,500 --> 00:00:05,000
Today we talk about whales.
`

func TestParse(t *testing.T) {
	t.Parallel()
	entries, err := Parse(sampleSRT)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Seq != 1 || entries[0].Start != 0 || entries[0].End != 2.5 {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if got := entries[1].Text[0]; got != "Today we talk about whales." {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestParseCRLF(t *testing.T) {
	t.Parallel()
	entries, err := Parse(strings.ReplaceAll(sampleSRT, "\n", "\r\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestParseEmpty(t *testing.T) {
	t.Parallel()
	entries, err := Parse("   \n\n ")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if entries != nil {
		t.Fatalf("expected nil entries, got %v", entries)
	}
}

func TestParseInvalidBlock(t *testing.T) {
	t.Parallel()
	if _, err := Parse("not a cue"); err == nil {
		t.Fatal("expected error for malformed block")
	}
	if _, err := Parse("x\n00:00:00,000 --> 00:00:01,000\nhi"); err == nil {
		t.Fatal("expected error for non-numeric cue number")
	}
}

func TestFormatRoundTrip(t *testing.T) {
	t.Parallel()
	entries, err := Parse(sampleSRT)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := Format(entries); got != sampleSRT {
		t.Fatalf("Format mismatch:\n%q\nwant\n%q", got, sampleSRT)
	}
}

func TestPlainText(t *testing.T) {
	t.Parallel()
	want := "Welcome to the show. Today we talk about whales."
	if got := PlainText(sampleSRT); got != want {
		t.Fatalf("PlainText = %q, want %q", got, want)
	}
	// non-SRT input passes through trimmed
	if got := PlainText("  just text  "); got != "just text" {
		t.Fatalf("PlainText fallback = %q", got)
	}
}

func TestLastEnd(t *testing.T) {
	t.Parallel()
	got, err := LastEnd(sampleSRT)
	if err != nil {
		t.Fatalf("LastEnd: %v", err)
	}
	if got != 5 {
		t.Fatalf("LastEnd = %v, want 5", got)
	}
}
