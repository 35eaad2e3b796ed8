package termmatch

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/cases"

	"github.com/MimeLyc/term-injector/internal/termmap"
)

// regexp2 compares case-insensitively through simple lower-casing, which
// misses full case folding: "ß" vs "ss", "ς" vs "σ", ligatures, long s.
// foldTable maps a folded sequence to the surface forms that fold to it but
// that simple lower-casing would not reach.
var (
	foldOnce   sync.Once
	foldTable  map[string][]string
	foldMaxLen int
)

func loadFoldTable() {
	caser := cases.Fold()
	foldTable = make(map[string][]string)

	for r := rune(0x80); r <= 0x1FFFF; r++ {
		if r >= 0xD800 && r <= 0xDFFF {
			continue
		}
		s := string(r)
		folded := caser.String(s)
		if folded == s || folded == strings.ToLower(s) {
			continue
		}
		foldTable[folded] = append(foldTable[folded], s)
		if n := utf8.RuneCountInString(folded); n > foldMaxLen {
			foldMaxLen = n
		}
	}
}

// literalPattern returns a regexp2 fragment matching term literally under
// full case folding. It is meant to be compiled with regexp2.IgnoreCase.
func literalPattern(term string) string {
	foldOnce.Do(loadFoldTable)

	folded := []rune(termmap.Fold(term))
	var b strings.Builder

	for i := 0; i < len(folded); {
		n := expandAt(&b, folded[i:])
		if n == 0 {
			b.WriteString(regexp2.Escape(string(folded[i])))
			n = 1
		}
		i += n
	}
	return b.String()
}

// expandAt writes an alternation for the longest fold-equivalent sequence
// starting at rs and returns its length, or 0 if there is none. A sequence
// longer than one rune may also be spelled rune by rune with mixed forms
// ("sſ" for "ss"), so that spelling is offered as one more alternative.
func expandAt(b *strings.Builder, rs []rune) int {
	for n := min(foldMaxLen, len(rs)); n >= 1; n-- {
		seq := string(rs[:n])
		alts, ok := foldTable[seq]
		if !ok {
			continue
		}
		b.WriteString("(?:")
		b.WriteString(regexp2.Escape(seq))
		for _, alt := range alts {
			b.WriteByte('|')
			b.WriteString(regexp2.Escape(alt))
		}
		if n > 1 {
			if perRune, mixed := runeWise(rs[:n]); mixed {
				b.WriteByte('|')
				b.WriteString(perRune)
			}
		}
		b.WriteByte(')')
		return n
	}
	return 0
}

// runeWise spells rs with a single-rune alternation wherever one exists and
// reports whether any rune had an alternative.
func runeWise(rs []rune) (string, bool) {
	var b strings.Builder
	mixed := false
	for _, r := range rs {
		alts, ok := foldTable[string(r)]
		if !ok {
			b.WriteString(regexp2.Escape(string(r)))
			continue
		}
		mixed = true
		b.WriteString("(?:")
		b.WriteString(regexp2.Escape(string(r)))
		for _, alt := range alts {
			b.WriteByte('|')
			b.WriteString(regexp2.Escape(alt))
		}
		b.WriteByte(')')
	}
	return b.String(), mixed
}
