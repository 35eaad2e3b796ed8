package termmatch

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	aho "github.com/petar-dambovaliev/aho-corasick"

	"github.com/MimeLyc/term-injector/internal/termmap"
	"github.com/MimeLyc/term-injector/pkg/log"
)

// DefaultSuffixTolerance is the number of trailing word characters accepted
// after a term, enough for simple inflections.
const DefaultSuffixTolerance = 4

type matcherOptions struct {
	suffix  int
	timeout time.Duration
}

type Option func(*matcherOptions)

// WithSuffixTolerance sets how many word characters may follow a source term.
func WithSuffixTolerance(n int) Option {
	return func(o *matcherOptions) {
		if n >= 0 {
			o.suffix = n
		}
	}
}

// WithMatchTimeout bounds a single regex search. Zero means no bound.
func WithMatchTimeout(d time.Duration) Option {
	return func(o *matcherOptions) {
		o.timeout = d
	}
}

func buildOptions(opts []Option) matcherOptions {
	o := matcherOptions{suffix: DefaultSuffixTolerance}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SourceMatcher finds table terms in source sentences. It is compiled once
// and safe for concurrent use.
type SourceMatcher struct {
	table     *termmap.Table
	re        *regexp2.Regexp
	prefilter aho.AhoCorasick
}

// NewSourceMatcher compiles every table key into a single alternation
// anchored on word boundaries, followed by at most the configured number of
// suffix word characters.
//
// regexp2 picks the first alternative that matches, so alternatives are
// ordered longest first; at any start offset the longest term wins.
func NewSourceMatcher(table *termmap.Table, opts ...Option) (*SourceMatcher, error) {
	o := buildOptions(opts)
	m := &SourceMatcher{table: table}

	keys := make([]string, 0, table.Len())
	for _, k := range table.Keys() {
		if k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return m, nil
	}

	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(utf8.RuneCountInString(b), utf8.RuneCountInString(a)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})

	alts := make([]string, len(keys))
	for i, k := range keys {
		alts[i] = literalPattern(k)
	}
	pattern := fmt.Sprintf(`\b(%s)\w{0,%d}\b`, strings.Join(alts, "|"), o.suffix)

	re, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("compile source term pattern: %w", err)
	}
	if o.timeout > 0 {
		re.MatchTimeout = o.timeout
	}
	m.re = re

	builder := aho.NewAhoCorasickBuilder(aho.Opts{DFA: true})
	m.prefilter = builder.Build(keys)
	return m, nil
}

// mayContain is a cheap substring test. The regex compares through simple
// lower-casing while keys are fully folded, so both forms are searched.
func (m *SourceMatcher) mayContain(sentence string) bool {
	if len(m.prefilter.FindAll(termmap.Fold(sentence))) > 0 {
		return true
	}
	return len(m.prefilter.FindAll(termmap.Fold(strings.ToLower(sentence)))) > 0
}

// resolveKey maps matched text to its table key. Some letters fold
// differently from how they lower-case (İ folds to i plus a combining dot),
// so the lower-cased form is tried second.
func (m *SourceMatcher) resolveKey(text string) (string, bool) {
	key := termmap.Fold(text)
	if _, ok := m.table.Lookup(key); ok {
		return key, true
	}
	lowered := termmap.Fold(strings.ToLower(text))
	if _, ok := m.table.Lookup(lowered); ok {
		return lowered, true
	}
	return key, false
}

// All lazily yields non-overlapping matches left to right. Each call starts
// a fresh search. An error is only produced when the match timeout expires.
func (m *SourceMatcher) All(sentence string) iter.Seq2[Match, error] {
	return func(yield func(Match, error) bool) {
		if m.re == nil || !m.mayContain(sentence) {
			return
		}

		found, err := m.re.FindStringMatch(sentence)
		lastEnd := 0
		for {
			if err != nil {
				yield(Match{}, fmt.Errorf("search source terms: %w", err))
				return
			}
			if found == nil {
				return
			}

			core := found.GroupByNumber(1)
			key, known := m.resolveKey(core.String())
			match := Match{
				Key:  key,
				Text: core.String(),
				Term: Span{Start: core.Index, End: core.Index + core.Length},
				Full: Span{Start: found.Index, End: found.Index + found.Length},
			}

			switch {
			case match.Full.Start < lastEnd:
				log.Warn("Overlapping term %q at %d dropped in: %s", match.Text, match.Full.Start, sentence)
			case !known:
				log.Warn("Matched %q has no terminology entry, skipped", match.Text)
			default:
				lastEnd = match.Full.End
				if !yield(match, nil) {
					return
				}
			}

			found, err = m.re.FindNextMatch(found)
		}
	}
}

// FindAll collects All.
func (m *SourceMatcher) FindAll(sentence string) ([]Match, error) {
	var matches []Match
	for match, err := range m.All(sentence) {
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	return matches, nil
}
