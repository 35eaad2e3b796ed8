package termmap

import "fmt"

// CorpusError reports a preferred source word whose record carries no
// preferred entry in the target language. The corpus is inconsistent and no
// table can be built from it.
type CorpusError struct {
	Word   string
	Source string
	Target string
}

func (e *CorpusError) Error() string {
	return fmt.Sprintf("source word '%s' has no corresponding entry in the target language (%s -> %s)",
		e.Word, e.Source, e.Target)
}
