package termmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/term-injector/internal/config"
	"github.com/MimeLyc/term-injector/internal/termmap"
)

var testMarkers = config.Markers{Start: "<S>", Mid: "<M>", End: "<E>"}

func newTable(t *testing.T, source, target string, pairs ...string) *termmap.Table {
	t.Helper()
	require.Zero(t, len(pairs)%2)

	records := make([]termmap.Record, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		records = append(records, termmap.Record{Term: []termmap.Entry{
			{Word: pairs[i], Lang: source, Preferred: true},
			{Word: pairs[i+1], Lang: target, Preferred: true},
		}})
	}
	table, err := termmap.Build(records, source, target)
	require.NoError(t, err)
	return table
}

func keysOf(matches []Match) []string {
	keys := make([]string, len(matches))
	for i, m := range matches {
		keys[i] = m.Key
	}
	return keys
}

func TestSourceMatcher_LongestMatch(t *testing.T) {
	table := newTable(t, "en", "fr", "bank", "banque", "banking", "bancaire")
	m, err := NewSourceMatcher(table)
	require.NoError(t, err)

	matches, err := m.FindAll("Online banking is a bank service")
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "banking", matches[0].Key)
	assert.Equal(t, "banking", matches[0].Text)
	assert.Equal(t, Span{Start: 7, End: 14}, matches[0].Term)
	assert.Equal(t, "bank", matches[1].Key)
}

func TestSourceMatcher_LongestMultiWordTerm(t *testing.T) {
	table := newTable(t, "en", "fr", "interest", "intérêt", "interest rate", "taux d'intérêt")
	m, err := NewSourceMatcher(table)
	require.NoError(t, err)

	matches, err := m.FindAll("The interest rates rose")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "interest rate", matches[0].Key)
	assert.Equal(t, Span{Start: 4, End: 17}, matches[0].Term)
	assert.Equal(t, Span{Start: 4, End: 18}, matches[0].Full)
}

func TestSourceMatcher_SuffixTolerance(t *testing.T) {
	table := newTable(t, "en", "fr", "house", "maison")
	m, err := NewSourceMatcher(table)
	require.NoError(t, err)

	tests := []struct {
		name     string
		sentence string
		term     Span
		full     Span
		found    bool
	}{
		{"exact", "a house", Span{2, 7}, Span{2, 7}, true},
		{"plural", "two houses", Span{4, 9}, Span{4, 10}, true},
		{"four char suffix", "housework", Span{0, 5}, Span{0, 9}, true},
		{"five char suffix", "householdx", Span{}, Span{}, false},
		{"different word", "housing house", Span{8, 13}, Span{8, 13}, true},
		{"too long", "housekeeping", Span{}, Span{}, false},
		{"inside word", "warehouse", Span{}, Span{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := m.FindAll(tt.sentence)
			require.NoError(t, err)
			if !tt.found {
				assert.Empty(t, matches)
				return
			}
			require.Len(t, matches, 1)
			assert.Equal(t, tt.term, matches[0].Term)
			assert.Equal(t, tt.full, matches[0].Full)
		})
	}
}

func TestSourceMatcher_SuffixToleranceOption(t *testing.T) {
	table := newTable(t, "en", "fr", "house", "maison")
	m, err := NewSourceMatcher(table, WithSuffixTolerance(0))
	require.NoError(t, err)

	matches, err := m.FindAll("two houses and a house")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, Span{Start: 17, End: 22}, matches[0].Term)
}

func TestSourceMatcher_CaseInsensitive(t *testing.T) {
	table := newTable(t, "en", "fr", "lake", "lac")
	m, err := NewSourceMatcher(table)
	require.NoError(t, err)

	for _, sentence := range []string{"the lake", "the Lake", "the LAKE", "the lAkE"} {
		matches, err := m.FindAll(sentence)
		require.NoError(t, err)
		require.Len(t, matches, 1, sentence)
		assert.Equal(t, "lake", matches[0].Key)
		assert.Equal(t, sentence[4:], matches[0].Text)
	}
}

func TestSourceMatcher_FullCaseFolding(t *testing.T) {
	table := newTable(t, "de", "fr", "Straße", "rue")
	m, err := NewSourceMatcher(table)
	require.NoError(t, err)

	for _, sentence := range []string{"Die Straße ist lang", "DIE STRASSE IST LANG", "die strasse"} {
		matches, err := m.FindAll(sentence)
		require.NoError(t, err)
		require.Len(t, matches, 1, sentence)
		assert.Equal(t, "strasse", matches[0].Key)
	}
}

func TestSourceMatcher_LowerCaseOnlyEquivalent(t *testing.T) {
	table := newTable(t, "tr", "en", "istanbul", "Istanbul")
	m, err := NewSourceMatcher(table)
	require.NoError(t, err)

	matches, err := m.FindAll("İstanbul is big")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "istanbul", matches[0].Key)
	assert.Equal(t, "İstanbul", matches[0].Text)
	assert.Equal(t, Span{Start: 0, End: 8}, matches[0].Term)
}

func TestSourceMatcher_MixedFoldSpelling(t *testing.T) {
	table := newTable(t, "de", "fr", "Straße", "rue")
	m, err := NewSourceMatcher(table)
	require.NoError(t, err)

	for _, sentence := range []string{"die Strasſe", "die Straſſe", "die ſtrasse"} {
		matches, err := m.FindAll(sentence)
		require.NoError(t, err)
		require.Len(t, matches, 1, sentence)
		assert.Equal(t, "strasse", matches[0].Key)
		assert.Equal(t, Span{Start: 4, End: 11}, matches[0].Term, sentence)
	}
}

func TestSourceMatcher_Prefilter(t *testing.T) {
	table := newTable(t, "en", "fr", "lake", "lac", "istanbul", "Istanbul")
	m, err := NewSourceMatcher(table)
	require.NoError(t, err)

	assert.True(t, m.mayContain("by the LAKE"))
	assert.True(t, m.mayContain("İSTANBUL"))
	assert.False(t, m.mayContain("nothing to see"))
}

func TestSourceMatcher_RuneOffsets(t *testing.T) {
	table := newTable(t, "fr", "en", "thé", "tea")
	m, err := NewSourceMatcher(table)
	require.NoError(t, err)

	matches, err := m.FindAll("Café, thé et lait")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, Span{Start: 6, End: 9}, matches[0].Term)
	assert.Equal(t, "thé", matches[0].Text)
}

func TestSourceMatcher_OrderAndNonOverlap(t *testing.T) {
	table := newTable(t, "en", "fr", "house", "maison", "lake", "lac", "lake house", "maison du lac")
	m, err := NewSourceMatcher(table)
	require.NoError(t, err)

	matches, err := m.FindAll("A lake house near the lake and a house")
	require.NoError(t, err)
	assert.Equal(t, []string{"lake house", "lake", "house"}, keysOf(matches))

	for i := 1; i < len(matches); i++ {
		assert.Less(t, matches[i-1].Full.Start, matches[i].Full.Start)
		assert.False(t, matches[i-1].Full.Overlaps(matches[i].Full))
	}
}

func TestSourceMatcher_NoTermsInSentence(t *testing.T) {
	table := newTable(t, "en", "fr", "house", "maison")
	m, err := NewSourceMatcher(table)
	require.NoError(t, err)

	matches, err := m.FindAll("Nothing to see here")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSourceMatcher_EmptyTable(t *testing.T) {
	table, err := termmap.Build(nil, "en", "fr")
	require.NoError(t, err)

	m, err := NewSourceMatcher(table)
	require.NoError(t, err)

	matches, err := m.FindAll("any sentence at all")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSourceMatcher_EscapesMetacharacters(t *testing.T) {
	table := newTable(t, "en", "fr", "a.b.c", "abc")
	m, err := NewSourceMatcher(table)
	require.NoError(t, err)

	matches, err := m.FindAll("a.b.c and axbxc")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a.b.c", matches[0].Text)
}

func TestSourceMatcher_Restartable(t *testing.T) {
	table := newTable(t, "en", "fr", "house", "maison")
	m, err := NewSourceMatcher(table)
	require.NoError(t, err)

	first, err := m.FindAll("house and house")
	require.NoError(t, err)
	second, err := m.FindAll("house and house")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)

	count := 0
	for range m.All("house and house") {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestTargetLocator_Locate(t *testing.T) {
	table := newTable(t, "en", "fr", "house", "maison")
	l, err := NewTargetLocator(table, testMarkers)
	require.NoError(t, err)

	span, ok, err := l.Locate("house", "Je vois la maison")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Span{Start: 11, End: 17}, span)

	span, ok, err = l.Locate("house", "LA MAISON")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Span{Start: 3, End: 9}, span)
}

func TestTargetLocator_SkipsAnnotated(t *testing.T) {
	table := newTable(t, "en", "fr", "house", "maison")
	l, err := NewTargetLocator(table, testMarkers)
	require.NoError(t, err)

	_, ok, err := l.Locate("house", "Je vois la <S>maison<E>")
	require.NoError(t, err)
	assert.False(t, ok)

	span, ok, err := l.Locate("house", "<S>maison<E> et maison")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Span{Start: 16, End: 22}, span)
}

func TestTargetLocator_NotFound(t *testing.T) {
	table := newTable(t, "en", "fr", "house", "maison")
	l, err := NewTargetLocator(table, testMarkers)
	require.NoError(t, err)

	_, ok, err := l.Locate("house", "Je vois le lac")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = l.Locate("unknown", "maison")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = l.Locate("house", "lamaison")
	require.NoError(t, err)
	assert.False(t, ok, "target must start on a word boundary")
}

func TestTargetLocator_FullCaseFolding(t *testing.T) {
	table := newTable(t, "fr", "de", "rue", "Straße")
	l, err := NewTargetLocator(table, testMarkers)
	require.NoError(t, err)

	span, ok, err := l.Locate("rue", "DIE STRASSE")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Span{Start: 4, End: 11}, span)
}

func TestTargetLocator_MixedFoldSpelling(t *testing.T) {
	table := newTable(t, "fr", "de", "rue", "Straße")
	l, err := NewTargetLocator(table, testMarkers)
	require.NoError(t, err)

	span, ok, err := l.Locate("rue", "Die Strasſe")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Span{Start: 4, End: 11}, span)
}

func TestTargetLocator_InvalidMarkers(t *testing.T) {
	table := newTable(t, "en", "fr", "house", "maison")
	_, err := NewTargetLocator(table, config.Markers{Start: "<S>"})
	assert.Error(t, err)
}

func TestLiteralPattern(t *testing.T) {
	assert.Equal(t, `a\.b`, literalPattern("A.b"))
	assert.Contains(t, literalPattern("Straße"), "ß")
	assert.Contains(t, literalPattern("Straße"), "(?:ss|")
	assert.Contains(t, literalPattern("Straße"), "ſ")
}

func TestSpan(t *testing.T) {
	assert.Equal(t, 3, Span{Start: 2, End: 5}.Len())
	assert.True(t, Span{0, 5}.Overlaps(Span{4, 8}))
	assert.False(t, Span{0, 5}.Overlaps(Span{5, 8}))
}
