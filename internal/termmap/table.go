package termmap

import (
	"fmt"
	"iter"
	"slices"
	"unicode/utf8"
)

// Table maps folded source words to their preferred target rendering.
// It is immutable once built and safe for concurrent readers.
type Table struct {
	source string
	target string
	terms  map[string]string
	keys   []string
}

func (t *Table) Source() string { return t.source }
func (t *Table) Target() string { return t.target }
func (t *Table) Len() int       { return len(t.keys) }

// Lookup expects an already folded key.
func (t *Table) Lookup(key string) (string, bool) {
	v, ok := t.terms[key]
	return v, ok
}

// Translate folds word before looking it up.
func (t *Table) Translate(word string) (string, bool) {
	return t.Lookup(Fold(word))
}

// Keys returns the folded keys in first-insertion order.
func (t *Table) Keys() []string {
	return slices.Clone(t.keys)
}

// All iterates key/target pairs in insertion order.
func (t *Table) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, k := range t.keys {
			if !yield(k, t.terms[k]) {
				return
			}
		}
	}
}

// TermMap returns a copy of the mapping.
func (t *Table) TermMap() TermMap {
	tm := make(TermMap, len(t.terms))
	for k, v := range t.terms {
		tm[k] = v
	}
	return tm
}

// Builder accumulates records into a Table.
type Builder struct {
	table *Table
}

func NewBuilder(source, target string) *Builder {
	return &Builder{table: &Table{
		source: source,
		target: target,
		terms:  make(map[string]string),
	}}
}

// Add registers every preferred source entry of rec. The candidate target
// is the first preferred target entry of the same record.
//
// When the word already has a mapping, the stored target is kept if it is
// not longer than the candidate; a shorter candidate replaces it. The
// existence check uses the word as written while the stored key is folded,
// so a word with upper case letters is always re-assigned.
// TODO: confirm the intended tie-break with the terminology owners; this
// mirrors the behavior of the existing corpora builds.
func (b *Builder) Add(rec Record) error {
	t := b.table
	for _, entry := range rec.Term {
		if entry.Lang != t.source || !entry.Preferred {
			continue
		}

		candidate, ok := rec.PreferredIn(t.target)
		if !ok {
			return &CorpusError{Word: entry.Word, Source: t.source, Target: t.target}
		}

		if stored, exists := t.terms[entry.Word]; exists &&
			utf8.RuneCountInString(stored) <= utf8.RuneCountInString(candidate.Word) {
			continue
		}

		key := Fold(entry.Word)
		if _, exists := t.terms[key]; !exists {
			t.keys = append(t.keys, key)
		}
		t.terms[key] = candidate.Word
	}
	return nil
}

// Table returns the built table. The builder must not be used afterwards.
func (b *Builder) Table() *Table {
	return b.table
}

// Build constructs a Table from records, failing on the first record whose
// preferred source entry has no preferred target counterpart.
func Build(records []Record, source, target string) (*Table, error) {
	b := NewBuilder(source, target)
	for i, rec := range records {
		if err := b.Add(rec); err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	return b.Table(), nil
}

// BuildSeq is Build over a record stream such as a database cursor.
func BuildSeq(records iter.Seq2[Record, error], source, target string) (*Table, error) {
	b := NewBuilder(source, target)
	n := 0
	for rec, err := range records {
		if err != nil {
			return nil, err
		}
		n++
		if err := b.Add(rec); err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}
	}
	return b.Table(), nil
}
