package inject

import (
	"cmp"
	"slices"
	"strings"

	"github.com/MimeLyc/term-injector/internal/config"
	"github.com/MimeLyc/term-injector/internal/termmatch"
	"github.com/MimeLyc/term-injector/pkg/log"
)

// Glossary resolves a folded source key to its target rendering.
type Glossary interface {
	Lookup(key string) (string, bool)
}

// Annotator inserts boundary markers into sentences.
type Annotator struct {
	markers config.Markers
}

func NewAnnotator(markers config.Markers) Annotator {
	return Annotator{markers: markers}
}

// Target wraps the located span: prefix START text END suffix.
func (a Annotator) Target(sentence string, span termmatch.Span) string {
	rs := []rune(sentence)

	var b strings.Builder
	b.Grow(len(sentence) + len(a.markers.Start) + len(a.markers.End))
	b.WriteString(string(rs[:span.Start]))
	b.WriteString(a.markers.Start)
	b.WriteString(string(rs[span.Start:span.End]))
	b.WriteString(a.markers.End)
	b.WriteString(string(rs[span.End:]))
	return b.String()
}

// Source rewrites each match as START term MID target END. The tolerated
// suffix is left outside the markers, the payload only names the canonical
// term. Matches overlapping an earlier one are skipped.
func (a Annotator) Source(sentence string, matches []termmatch.Match, glossary Glossary) string {
	sorted := slices.Clone(matches)
	slices.SortStableFunc(sorted, func(x, y termmatch.Match) int {
		if c := cmp.Compare(x.Full.Start, y.Full.Start); c != 0 {
			return c
		}
		return cmp.Compare(x.Full.End, y.Full.End)
	})

	rs := []rune(sentence)
	var b strings.Builder
	cur := 0

	for _, m := range sorted {
		if m.Term.Start < cur {
			log.Warn("Overlapping term %q at %d skipped in: %s", m.Text, m.Term.Start, sentence)
			continue
		}
		target, ok := glossary.Lookup(m.Key)
		if !ok {
			log.Warn("No target for term %q, left unannotated", m.Key)
			continue
		}

		b.WriteString(string(rs[cur:m.Term.Start]))
		b.WriteString(a.markers.Start)
		b.WriteString(string(rs[m.Term.Start:m.Term.End]))
		b.WriteString(a.markers.Mid)
		b.WriteString(target)
		b.WriteString(a.markers.End)
		cur = m.Term.End
	}

	b.WriteString(string(rs[cur:]))
	return b.String()
}
