// Package dix writes terminology as an lttoolbox dictionary whose entries
// rewrite each source term into its annotated form.
package dix

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/MimeLyc/term-injector/internal/config"
	"github.com/MimeLyc/term-injector/internal/termmap"
)

// Alphabet lists the characters the suffix paradigms may consume.
const Alphabet = "ÃÀÁĀÂÄÇẼÈÉÊËÌÍĨĪÎÏÑÕÒŌÓÔÖÙÚŨÛÜãàáāâäçẽèéêëìíĩīîïñõòōóôöùúũûü" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// MaxSuffix caps the suffix paradigm length.
const MaxSuffix = 4

const header = `<?xml version="1.0" encoding="UTF-8"?>
<dictionary>
  <alphabet>` + Alphabet + `</alphabet>
`

const class = "[" + Alphabet + "]"

const pardefs = `<pardefs>
    <pardef n="suffix1">
        <e><re>` + class + `?</re></e>
    </pardef>
    <pardef n="suffix2">
        <e><re>` + class + `?</re></e>
        <e><re>` + class + class + `?</re></e>
    </pardef>
    <pardef n="suffix3">
        <e><re>` + class + `?</re></e>
        <e><re>` + class + class + class + `?</re></e>
    </pardef>
    <pardef n="suffix4">
        <e><re>` + class + `?</re></e>
        <e><re>` + class + class + class + `?</re></e>
        <e><re>` + class + class + class + class + `</re></e>
    </pardef>
</pardefs>
`

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// SuffixLength is half the word length in characters, capped at MaxSuffix.
func SuffixLength(word string) int {
	return min(MaxSuffix, utf8.RuneCountInString(word)/2)
}

// Symbol turns a marker such as <t_start> into a symbol name.
func Symbol(marker string) string {
	return strings.Trim(marker, "<>")
}

// Writer emits a dictionary incrementally. Each source word gets one entry,
// the first record naming it wins.
type Writer struct {
	w       *bufio.Writer
	source  string
	target  string
	symbols config.Markers
	seen    map[string]struct{}
	entries int
	started bool
}

func NewWriter(w io.Writer, source, target string, markers config.Markers) (*Writer, error) {
	symbols := config.Markers{
		Start: Symbol(markers.Start),
		Mid:   Symbol(markers.Mid),
		End:   Symbol(markers.End),
	}
	if err := symbols.Validate(); err != nil {
		return nil, fmt.Errorf("dictionary symbols: %w", err)
	}

	return &Writer{
		w:       bufio.NewWriter(w),
		source:  source,
		target:  target,
		symbols: symbols,
		seen:    make(map[string]struct{}),
	}, nil
}

// Entries is the number of entries written so far.
func (d *Writer) Entries() int {
	return d.entries
}

func (d *Writer) start() {
	if d.started {
		return
	}
	d.started = true

	d.w.WriteString(header)
	d.w.WriteString("<sdefs>\n")
	for _, s := range []string{d.symbols.Start, d.symbols.Mid, d.symbols.End} {
		fmt.Fprintf(d.w, "<sdef n=\"%s\"/>\n", s)
	}
	d.w.WriteString("</sdefs>\n")
	d.w.WriteString(pardefs + "\n")
	d.w.WriteString("<section id=\"main\" type=\"standard\">\n")
}

// Write adds an entry for every preferred source word of rec not seen
// before. A word without a preferred target counterpart is a corpus error.
func (d *Writer) Write(rec termmap.Record) error {
	d.start()

	for _, entry := range rec.Term {
		if entry.Lang != d.source || !entry.Preferred {
			continue
		}
		if _, ok := d.seen[entry.Word]; ok {
			continue
		}
		d.seen[entry.Word] = struct{}{}

		trg, ok := rec.PreferredIn(d.target)
		if !ok {
			return &termmap.CorpusError{Word: entry.Word, Source: d.source, Target: d.target}
		}
		d.writeEntry(entry.Word, trg.Word)
	}
	return nil
}

func (d *Writer) writeEntry(src, trg string) {
	esc := escaper.Replace(src)
	fmt.Fprintf(d.w, `<e><p><l>%s</l><r><s n="%s"/>%s<s n="%s"/>%s<s n="%s"/></r></p>`,
		esc, d.symbols.Start, esc, d.symbols.Mid, escaper.Replace(trg), d.symbols.End)
	if n := SuffixLength(src); n >= 1 {
		fmt.Fprintf(d.w, `<par n="suffix%d"/>`, n)
	}
	d.w.WriteString("</e>\n")
	d.entries++
}

// Close terminates the dictionary and flushes it. It does not close the
// underlying writer.
func (d *Writer) Close() error {
	d.start()
	d.w.WriteString("</section>\n</dictionary>\n")
	return d.w.Flush()
}

// Emit writes a complete dictionary for records.
func Emit(w io.Writer, records iter.Seq2[termmap.Record, error], source, target string, markers config.Markers) (int, error) {
	d, err := NewWriter(w, source, target, markers)
	if err != nil {
		return 0, err
	}

	n := 0
	for rec, err := range records {
		if err != nil {
			return d.Entries(), err
		}
		n++
		if err := d.Write(rec); err != nil {
			return d.Entries(), fmt.Errorf("record %d: %w", n, err)
		}
	}
	return d.Entries(), d.Close()
}
