package termmatch

// Span is a half-open [Start, End) range of character (rune) offsets.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int {
	return s.End - s.Start
}

func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Match is one term occurrence in a source sentence.
type Match struct {
	// Key is the folded table key of the matched term.
	Key string
	// Text is the term as written in the sentence, without suffix.
	Text string
	// Term covers the term itself.
	Term Span
	// Full also covers the tolerated suffix.
	Full Span
}
