package termmatch

import (
	"fmt"

	"github.com/dlclark/regexp2"

	"github.com/MimeLyc/term-injector/internal/config"
	"github.com/MimeLyc/term-injector/internal/termmap"
)

// TargetLocator finds the target rendering of a term in a target sentence,
// skipping occurrences already wrapped in annotation markers.
type TargetLocator struct {
	patterns map[string]*regexp2.Regexp
}

// NewTargetLocator compiles one pattern per table key. A target occurrence
// must start on a word boundary, must not directly follow the start marker
// and must not be directly followed by the end marker, so a second pass
// over an annotated sentence leaves existing annotations alone.
func NewTargetLocator(table *termmap.Table, markers config.Markers, opts ...Option) (*TargetLocator, error) {
	if err := markers.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	head := `\b(?<!` + regexp2.Escape(markers.Start) + `)`
	tail := `(?!` + regexp2.Escape(markers.End) + `)`

	l := &TargetLocator{patterns: make(map[string]*regexp2.Regexp, table.Len())}
	for key, target := range table.All() {
		if target == "" {
			continue
		}
		re, err := regexp2.Compile(head+literalPattern(target)+tail, regexp2.IgnoreCase)
		if err != nil {
			return nil, fmt.Errorf("compile target pattern for %q: %w", key, err)
		}
		if o.timeout > 0 {
			re.MatchTimeout = o.timeout
		}
		l.patterns[key] = re
	}
	return l, nil
}

// Locate returns the first unannotated occurrence of the target term for
// key in sentence.
func (l *TargetLocator) Locate(key, sentence string) (Span, bool, error) {
	re, ok := l.patterns[key]
	if !ok {
		return Span{}, false, nil
	}

	m, err := re.FindStringMatch(sentence)
	if err != nil {
		return Span{}, false, fmt.Errorf("search target term %q: %w", key, err)
	}
	if m == nil {
		return Span{}, false, nil
	}
	return Span{Start: m.Index, End: m.Index + m.Length}, true, nil
}
