// Package tbx converts TermBase eXchange documents into terminology records.
package tbx

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MimeLyc/term-injector/internal/termmap"
	"github.com/MimeLyc/term-injector/pkg/log"
)

const preferredNote = "preferred"

// Options relax the default word filters.
type Options struct {
	// EnableSmall keeps words of three characters or fewer.
	EnableSmall bool
	// EnableNonAlphabetical keeps words without any letter.
	EnableNonAlphabetical bool
}

type termEntry struct {
	ID       string    `xml:"id,attr"`
	LangSets []langSet `xml:"langSet"`
}

// The lang attribute matches xml:lang as well as an unprefixed lang.
type langSet struct {
	Lang string `xml:"lang,attr"`
	Tigs []tig  `xml:"tig"`
}

type tig struct {
	Term  string     `xml:"term"`
	Notes []termNote `xml:"termNote"`
}

type termNote struct {
	Type string `xml:"type,attr"`
	Text string `xml:",chardata"`
}

func (t tig) preferred() bool {
	for _, n := range t.Notes {
		if strings.TrimSpace(n.Text) == preferredNote {
			return true
		}
	}
	return false
}

// Summary reports what a conversion read and wrote.
type Summary struct {
	Entries int
	Written int
	Skipped int
}

type Converter struct {
	opts Options
}

func NewConverter(opts Options) *Converter {
	return &Converter{opts: opts}
}

// Records streams one record per termEntry that survives filtering and
// covers at least two languages.
func (c *Converter) Records(r io.Reader) iter.Seq2[termmap.Record, error] {
	return func(yield func(termmap.Record, error) bool) {
		for entry, err := range entries(r) {
			if err != nil {
				yield(termmap.Record{}, err)
				return
			}
			rec := c.record(entry)
			if !rec.Complete() {
				log.Debug("termEntry %q skipped: fewer than two languages", entry.ID)
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Convert writes the records of r to w as JSON lines.
func (c *Converter) Convert(ctx context.Context, r io.Reader, w io.Writer) (Summary, error) {
	var sum Summary
	out := termmap.NewRecordWriter(w)

	for entry, err := range entries(r) {
		if err != nil {
			return sum, err
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Entries++

		rec := c.record(entry)
		if !rec.Complete() {
			sum.Skipped++
			continue
		}
		if err := out.Write(rec); err != nil {
			return sum, fmt.Errorf("write record: %w", err)
		}
		sum.Written++
	}
	return sum, nil
}

func (c *Converter) record(entry termEntry) termmap.Record {
	var rec termmap.Record
	for _, ls := range entry.LangSets {
		if ls.Lang == "" || len(ls.Tigs) == 0 {
			continue
		}
		lang := termmap.NormalizeLanguage(ls.Lang)

		if len(ls.Tigs) == 1 {
			word := strings.TrimSpace(ls.Tigs[0].Term)
			if c.keep(word) {
				rec.Term = append(rec.Term, termmap.Entry{Word: word, Lang: lang, Preferred: true})
			}
			continue
		}
		rec.Term = append(rec.Term, c.synonyms(ls.Tigs, lang)...)
	}
	return rec
}

// synonyms keeps exactly one preferred entry among several tigs: the last
// kept one when none is marked, the last marked one when several are.
func (c *Converter) synonyms(tigs []tig, lang string) []termmap.Entry {
	local := make([]termmap.Entry, 0, len(tigs))
	preferred := 0

	for _, t := range tigs {
		word := strings.TrimSpace(t.Term)
		if !c.keep(word) {
			continue
		}
		e := termmap.Entry{Word: word, Lang: lang, Preferred: t.preferred()}
		if e.Preferred {
			preferred++
		}
		local = append(local, e)
	}

	switch {
	case len(local) == 0:
	case preferred == 0:
		local[len(local)-1].Preferred = true
	case preferred > 1:
		for i := range local {
			if preferred == 1 {
				break
			}
			if local[i].Preferred {
				local[i].Preferred = false
				preferred--
			}
		}
	}
	return local
}

func (c *Converter) keep(word string) bool {
	if word == "" {
		return false
	}
	if !c.opts.EnableSmall && utf8.RuneCountInString(word) <= 3 {
		return false
	}
	if !c.opts.EnableNonAlphabetical && !strings.ContainsFunc(word, unicode.IsLetter) {
		return false
	}
	return true
}

// entries decodes termEntry elements one at a time wherever they appear
// under the document root.
func entries(r io.Reader) iter.Seq2[termEntry, error] {
	return func(yield func(termEntry, error) bool) {
		dec := xml.NewDecoder(r)
		dec.Strict = false

		for {
			tok, err := dec.Token()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(termEntry{}, fmt.Errorf("parse tbx: %w", err))
				return
			}

			start, ok := tok.(xml.StartElement)
			if !ok || start.Name.Local != "termEntry" {
				continue
			}

			var entry termEntry
			if err := dec.DecodeElement(&entry, &start); err != nil {
				yield(termEntry{}, fmt.Errorf("parse tbx termEntry: %w", err))
				return
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}
