package tbx

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/term-injector/internal/termmap"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<martif type="TBX" xml:lang="en">
  <text>
    <body>
      <termEntry id="1">
        <langSet xml:lang="en-GB">
          <tig><term>house</term></tig>
        </langSet>
        <langSet xml:lang="fr">
          <tig><term>maison</term></tig>
        </langSet>
      </termEntry>
      <termEntry id="2">
        <langSet xml:lang="en">
          <tig><term>bank</term></tig>
        </langSet>
        <langSet xml:lang="fr">
          <tig>
            <term>banque</term>
            <termNote type="administrativeStatus">preferred</termNote>
          </tig>
          <tig>
            <term>établissement</term>
            <termNote type="administrativeStatus">admitted</termNote>
          </tig>
        </langSet>
      </termEntry>
      <termEntry id="3">
        <langSet xml:lang="en">
          <tig><term>lake</term></tig>
        </langSet>
      </termEntry>
    </body>
  </text>
</martif>`

func convert(t *testing.T, opts Options, doc string) []termmap.Record {
	t.Helper()
	var out bytes.Buffer
	_, err := NewConverter(opts).Convert(context.Background(), strings.NewReader(doc), &out)
	require.NoError(t, err)
	records, err := termmap.ReadRecords(&out)
	require.NoError(t, err)
	return records
}

func TestConvert(t *testing.T) {
	var out bytes.Buffer
	sum, err := NewConverter(Options{}).Convert(context.Background(), strings.NewReader(sample), &out)
	require.NoError(t, err)

	assert.Equal(t, Summary{Entries: 3, Written: 2, Skipped: 1}, sum)
	assert.Equal(t,
		`{"term":[{"word":"house","lang":"en","preferred":true},{"word":"maison","lang":"fr","preferred":true}]}`+"\n"+
			`{"term":[{"word":"bank","lang":"en","preferred":true},{"word":"banque","lang":"fr","preferred":true},{"word":"établissement","lang":"fr","preferred":false}]}`+"\n",
		out.String())
}

func entryDoc(langSets string) string {
	return `<martif><text><body><termEntry>` + langSets + `</termEntry></body></text></martif>`
}

func TestConvert_PreferredSelection(t *testing.T) {
	en := `<langSet xml:lang="en"><tig><term>house</term></tig></langSet>`

	tests := []struct {
		name  string
		fr    string
		words []string
		pref  []bool
	}{
		{
			name:  "none marked promotes last",
			fr:    `<tig><term>maison</term></tig><tig><term>demeure</term></tig>`,
			words: []string{"maison", "demeure"},
			pref:  []bool{false, true},
		},
		{
			name: "several marked keeps the last",
			fr: `<tig><term>maison</term><termNote>preferred</termNote></tig>` +
				`<tig><term>demeure</term><termNote>preferred</termNote></tig>` +
				`<tig><term>logement</term><termNote>preferred</termNote></tig>`,
			words: []string{"maison", "demeure", "logement"},
			pref:  []bool{false, false, true},
		},
		{
			name: "single marked untouched",
			fr: `<tig><term>maison</term><termNote>preferred</termNote></tig>` +
				`<tig><term>demeure</term></tig>`,
			words: []string{"maison", "demeure"},
			pref:  []bool{true, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := convert(t, Options{}, entryDoc(en+`<langSet xml:lang="fr">`+tt.fr+`</langSet>`))
			require.Len(t, records, 1)

			var words []string
			var pref []bool
			for _, e := range records[0].Term {
				if e.Lang == "fr" {
					words = append(words, e.Word)
					pref = append(pref, e.Preferred)
				}
			}
			assert.Equal(t, tt.words, words)
			assert.Equal(t, tt.pref, pref)
		})
	}
}

func TestConvert_Filters(t *testing.T) {
	doc := entryDoc(
		`<langSet xml:lang="en"><tig><term>tax</term></tig><tig><term>2024</term></tig><tig><term>taxes</term></tig></langSet>` +
			`<langSet xml:lang="fr"><tig><term>impôt</term></tig></langSet>`)

	records := convert(t, Options{}, doc)
	require.Len(t, records, 1)
	assert.Equal(t, []termmap.Entry{
		{Word: "taxes", Lang: "en", Preferred: true},
		{Word: "impôt", Lang: "fr", Preferred: true},
	}, records[0].Term)

	records = convert(t, Options{EnableSmall: true, EnableNonAlphabetical: true}, doc)
	require.Len(t, records, 1)
	assert.Equal(t, []termmap.Entry{
		{Word: "tax", Lang: "en", Preferred: false},
		{Word: "2024", Lang: "en", Preferred: false},
		{Word: "taxes", Lang: "en", Preferred: true},
		{Word: "impôt", Lang: "fr", Preferred: true},
	}, records[0].Term)
}

func TestConvert_FilteredSingleLanguageDropped(t *testing.T) {
	doc := entryDoc(
		`<langSet xml:lang="en"><tig><term>house</term></tig></langSet>` +
			`<langSet xml:lang="fr"><tig><term>été</term></tig></langSet>`)

	assert.Empty(t, convert(t, Options{}, doc))
	assert.Len(t, convert(t, Options{EnableSmall: true}, doc), 1)
}

func TestConvert_MissingLangIgnored(t *testing.T) {
	doc := entryDoc(
		`<langSet><tig><term>house</term></tig></langSet>` +
			`<langSet xml:lang="fr"><tig><term>maison</term></tig></langSet>`)
	assert.Empty(t, convert(t, Options{}, doc))
}

func TestConvert_EmptyInput(t *testing.T) {
	var out bytes.Buffer
	sum, err := NewConverter(Options{}).Convert(context.Background(), strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Zero(t, sum.Entries)
	assert.Empty(t, out.String())
}

func TestConvert_Malformed(t *testing.T) {
	_, err := NewConverter(Options{}).Convert(context.Background(), strings.NewReader("<martif><termEntry><langSet>"), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRecords_FeedsTableBuilder(t *testing.T) {
	table, err := termmap.BuildSeq(NewConverter(Options{}).Records(strings.NewReader(sample)), "en", "fr")
	require.NoError(t, err)

	target, ok := table.Translate("Bank")
	assert.True(t, ok)
	assert.Equal(t, "banque", target)
	assert.Equal(t, 2, table.Len())
}
