package termmap

// Entry is one surface form of a concept in one language.
type Entry struct {
	Word      string `json:"word"`
	Lang      string `json:"lang"`
	Preferred bool   `json:"preferred"`
}

// Record groups the entries of a single concept, one JSON object per line
// in the record format: {"term": [...]}.
type Record struct {
	Term []Entry `json:"term"`
}

// Languages returns the distinct language codes in order of appearance.
func (r Record) Languages() []string {
	seen := make(map[string]struct{}, len(r.Term))
	langs := make([]string, 0, 2)
	for _, e := range r.Term {
		if _, ok := seen[e.Lang]; ok {
			continue
		}
		seen[e.Lang] = struct{}{}
		langs = append(langs, e.Lang)
	}
	return langs
}

// Complete reports whether the record spans at least two languages.
func (r Record) Complete() bool {
	return len(r.Languages()) >= 2
}

// PreferredIn returns the first preferred entry in lang.
func (r Record) PreferredIn(lang string) (Entry, bool) {
	for _, e := range r.Term {
		if e.Lang == lang && e.Preferred {
			return e, true
		}
	}
	return Entry{}, false
}

// TermMap maps source language terms to target language terms.
type TermMap map[string]string
