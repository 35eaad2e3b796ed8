package termmap

import (
	"sync"

	"golang.org/x/text/cases"
)

// cases.Caser is stateful, so every goroutine borrows its own.
var folders = sync.Pool{
	New: func() any {
		c := cases.Fold()
		return &c
	},
}

// Fold applies full Unicode case folding (ß -> ss, ς -> σ, K -> k).
func Fold(s string) string {
	c := folders.Get().(*cases.Caser)
	defer folders.Put(c)
	return c.String(s)
}
