package srt

import "testing"

const chunkOne = `1
00:00:00,000 --> 00:00:02,000
First chunk, first cue.

2
00:00:02,000 --> 00:00:04,500
First chunk, second cue.
`

const chunkTwo = `1
00:00:00,000 --> 00:00:03,000
Second chunk, first cue.

2
00:00:03,000 --> 00:00:04,000
Second chunk, second cue.
`

func TestReassembleChainsChunks(t *testing.T) {
	t.Parallel()
	got, err := Reassemble([]string{chunkOne, chunkTwo})
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	want := `1
00:00:00,000 --> 00:00:02,000
First chunk, first cue.

2
00:00:02,000 --> 00:00:04,500
First chunk, second cue.

3
00:00:04,500 --> 00:00:07,500
Second chunk, first cue.

4
00:00:07,500 --> 00:00:08,500
Second chunk, second cue.
`
	if got != want {
		t.Fatalf("Reassemble mismatch:\n%s\nwant:\n%s", got, want)
	}
}

// A transcript whose numbering is already contiguous must come back
// unchanged, so reassembling twice is a no-op.
func TestReassembleIdempotent(t *testing.T) {
	t.Parallel()
	once, err := Reassemble([]string{chunkOne, chunkTwo})
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	twice, err := Reassemble([]string{once})
	if err != nil {
		t.Fatalf("Reassemble (second pass): %v", err)
	}
	if once != twice {
		t.Fatalf("second pass changed output:\n%s\nvs:\n%s", once, twice)
	}
}

// Past the first chunk boundary, every cue must start exactly where the
// previous one ended and numbering must stay strictly sequential.
func TestReassembleContiguity(t *testing.T) {
	t.Parallel()
	merged, err := Reassemble([]string{chunkOne, chunkTwo, chunkTwo})
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	entries, err := Parse(merged)
	if err != nil {
		t.Fatalf("Parse merged: %v", err)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Seq != entries[i-1].Seq+1 {
			t.Fatalf("cue %d: seq %d after %d", i, entries[i].Seq, entries[i-1].Seq)
		}
		if entries[i].Start < entries[i-1].Start {
			t.Fatalf("cue %d: start %v before previous start %v", i, entries[i].Start, entries[i-1].Start)
		}
		if i >= 2 && entries[i].Start != entries[i-1].End {
			// rebasing is active from the first restart onward
			t.Fatalf("cue %d: start %v != previous end %v", i, entries[i].Start, entries[i-1].End)
		}
	}
}

func TestReassembleSingleChunk(t *testing.T) {
	t.Parallel()
	got, err := Reassemble([]string{chunkOne})
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	if got != chunkOne {
		t.Fatalf("single chunk altered:\n%s", got)
	}
}

func TestReassembleEmpty(t *testing.T) {
	t.Parallel()
	got, err := Reassemble(nil)
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}
