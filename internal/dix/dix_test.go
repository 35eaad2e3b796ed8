package dix

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/term-injector/internal/config"
	"github.com/MimeLyc/term-injector/internal/termmap"
)

func record(pairs ...string) termmap.Record {
	var rec termmap.Record
	for i := 0; i+1 < len(pairs); i += 2 {
		rec.Term = append(rec.Term, termmap.Entry{Word: pairs[i+1], Lang: pairs[i], Preferred: true})
	}
	return rec
}

func TestSuffixLength(t *testing.T) {
	tests := []struct {
		word string
		want int
	}{
		{"a", 0},
		{"ab", 1},
		{"abc", 1},
		{"abcd", 2},
		{"house", 2},
		{"maison", 3},
		{"terminology", 4},
		{"été", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SuffixLength(tt.word), tt.word)
	}
}

func TestSymbol(t *testing.T) {
	assert.Equal(t, "t_start", Symbol("<t_start>"))
	assert.Equal(t, "plain", Symbol("plain"))
	assert.Equal(t, "a", Symbol("<<a>>"))
}

func TestEmit(t *testing.T) {
	records := []termmap.Record{
		record("en", "house", "fr", "maison"),
		record("en", "a", "fr", "un"),
		record("en", "house", "fr", "demeure"),
		record("en", "R&D", "fr", "R&D"),
	}

	var out bytes.Buffer
	n, err := Emit(&out, termmap.Seq(records), "en", "fr", config.DefaultDixMarkers())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	doc := out.String()
	assert.True(t, strings.HasPrefix(doc, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<dictionary>\n  <alphabet>"+Alphabet+"</alphabet>\n<sdefs>\n"))
	assert.Contains(t, doc, "<sdefs>\n<sdef n=\"t_start\"/>\n<sdef n=\"t_mid\"/>\n<sdef n=\"t_end\"/>\n</sdefs>\n<pardefs>\n")
	assert.Contains(t, doc, "</pardefs>\n\n<section id=\"main\" type=\"standard\">\n")
	assert.True(t, strings.HasSuffix(doc, "</section>\n</dictionary>\n"))

	assert.Contains(t, doc, `<e><p><l>house</l><r><s n="t_start"/>house<s n="t_mid"/>maison<s n="t_end"/></r></p><par n="suffix2"/></e>`+"\n")
	assert.Contains(t, doc, `<e><p><l>a</l><r><s n="t_start"/>a<s n="t_mid"/>un<s n="t_end"/></r></p></e>`+"\n")
	assert.Contains(t, doc, `<l>R&amp;D</l><r><s n="t_start"/>R&amp;D<s n="t_mid"/>R&amp;D<s n="t_end"/></r></p><par n="suffix1"/></e>`)
	assert.NotContains(t, doc, "demeure")
	assert.Equal(t, 4, strings.Count(doc, `<pardef n="suffix`))
}

func TestEmit_NoRecords(t *testing.T) {
	var out bytes.Buffer
	n, err := Emit(&out, termmap.Seq(nil), "en", "fr", config.DefaultDixMarkers())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, out.String(), "<section id=\"main\" type=\"standard\">\n</section>\n</dictionary>\n")
}

func TestEmit_MissingTarget(t *testing.T) {
	records := []termmap.Record{
		record("en", "house", "fr", "maison"),
		record("en", "lake", "de", "See"),
	}

	_, err := Emit(&bytes.Buffer{}, termmap.Seq(records), "en", "fr", config.DefaultDixMarkers())
	require.Error(t, err)

	var corpusErr *termmap.CorpusError
	require.True(t, errors.As(err, &corpusErr))
	assert.Equal(t, "lake", corpusErr.Word)
	assert.Contains(t, err.Error(), "record 2")
}

func TestEmit_NonPreferredSourceIgnored(t *testing.T) {
	rec := termmap.Record{Term: []termmap.Entry{
		{Word: "dwelling", Lang: "en", Preferred: false},
		{Word: "logement", Lang: "fr", Preferred: true},
	}}

	n, err := Emit(&bytes.Buffer{}, termmap.Seq([]termmap.Record{rec}), "en", "fr", config.DefaultDixMarkers())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewWriter_InvalidSymbols(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, "en", "fr", config.Markers{Start: "<a>", Mid: "a", End: "<c>"})
	assert.Error(t, err)

	_, err = NewWriter(&bytes.Buffer{}, "en", "fr", config.Markers{Start: "<>", Mid: "<b>", End: "<c>"})
	assert.Error(t, err)
}
