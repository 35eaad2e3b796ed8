package file

import (
	"path/filepath"
	"strings"
)

// AddSuffix inserts suffix before the extension: corpus.tsv -> corpus.terms.tsv.
func AddSuffix(path, suffix string) string {
	if path == "" {
		return path
	}
	ext := filepath.Ext(path)
	if ext == filepath.Base(path) {
		ext = ""
	}
	return strings.TrimSuffix(path, ext) + "." + strings.TrimPrefix(suffix, ".") + ext
}
