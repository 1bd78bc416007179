package srt

// Reassemble merges an ordered list of chunk transcripts, each carrying its
// own restarted numbering and timestamps, into one transcript with
// contiguous cue numbers and a cumulative timeline.
//
// The first cue of the output is kept verbatim. Cues keep passing through
// unchanged until the first one whose sequence number is not exactly the
// previous number plus one — the point where the next chunk's restarted
// numbering begins. From there on every cue is renumbered to previous+1 and
// rebased: its start becomes the previous (already adjusted) cue's end and
// its end preserves the cue's original duration.
//
// A transcript that is already contiguous passes through unchanged apart
// from canonical serialization.
func Reassemble(chunks []string) (string, error) {
	var entries []Entry
	for _, chunk := range chunks {
		parsed, err := Parse(chunk)
		if err != nil {
			return "", err
		}
		entries = append(entries, parsed...)
	}
	if len(entries) == 0 {
		return "", nil
	}

	out := make([]Entry, 0, len(entries))
	out = append(out, entries[0])
	rebasing := false
	for _, e := range entries[1:] {
		prev := out[len(out)-1]
		if !rebasing && e.Seq == prev.Seq+1 {
			out = append(out, e)
			continue
		}
		rebasing = true
		out = append(out, Entry{
			Seq:   prev.Seq + 1,
			Start: prev.End,
			End:   prev.End + e.Duration(),
			Text:  e.Text,
		})
	}
	return Format(out), nil
}
