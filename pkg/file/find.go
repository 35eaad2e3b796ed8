package file

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FindRecentAfter returns files under dir modified after startTime whose
// name ends with one of the given suffixes. No suffixes means every file.
// The result is sorted for a stable processing order.
func FindRecentAfter(dir string, startTime time.Time, suffixes ...string) ([]string, error) {
	var recentFiles []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !hasAnySuffix(d.Name(), suffixes) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(startTime) {
			recentFiles = append(recentFiles, path)
		}
		return nil
	})

	sort.Strings(recentFiles)
	return recentFiles, err
}

func hasAnySuffix(name string, suffixes []string) bool {
	if len(suffixes) == 0 {
		return true
	}
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}
