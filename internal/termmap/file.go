package termmap

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
)

const maxRecordLine = 16 * 1024 * 1024

// Filename returns the record file name for a language pair, using 2-letter
// base codes: terms.en-fr.jsonl.
func Filename(sourceLang, targetLang string) string {
	return "terms." + NormalizeLanguage(sourceLang) + "-" + NormalizeLanguage(targetLang) + ".jsonl"
}

// FilePath returns the full path to the record file in the given directory.
func FilePath(dir, sourceLang, targetLang string) string {
	return filepath.Join(dir, Filename(sourceLang, targetLang))
}

// FindInAncestors walks up from startDir looking for a record file for the
// language pair. Returns the first found path or empty string.
func FindInAncestors(startDir, sourceLang, targetLang string) string {
	filename := Filename(sourceLang, targetLang)
	currentDir := startDir

	for {
		candidate := filepath.Join(currentDir, filename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return ""
}

// ScanRecords lazily decodes one record per non-blank line.
func ScanRecords(r io.Reader) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxRecordLine)

		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			var rec Record
			if err := json.Unmarshal([]byte(line), &rec); err != nil {
				yield(Record{}, fmt.Errorf("terminology line %d: %w", lineNo, err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(Record{}, fmt.Errorf("read terminology: %w", err))
		}
	}
}

// ReadRecords decodes every record from r.
func ReadRecords(r io.Reader) ([]Record, error) {
	var records []Record
	for rec, err := range ScanRecords(r) {
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Seq adapts an in-memory slice to the streaming record form.
func Seq(records []Record) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for _, rec := range records {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Load reads a record file.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadRecords(f)
}

// LoadTable reads a record file and builds the table for the language pair.
func LoadTable(path, sourceLang, targetLang string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return BuildSeq(ScanRecords(f), NormalizeLanguage(sourceLang), NormalizeLanguage(targetLang))
}

// RecordWriter emits records in the line-delimited format.
type RecordWriter struct {
	enc *json.Encoder
}

func NewRecordWriter(w io.Writer) *RecordWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &RecordWriter{enc: enc}
}

// Write encodes rec followed by a newline.
func (w *RecordWriter) Write(rec Record) error {
	return w.enc.Encode(rec)
}

// NormalizeLanguage parses a language string and returns its 2-letter base
// code; unparseable input is returned lower-cased.
func NormalizeLanguage(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		return strings.ToLower(lang)
	}
	base, _ := tag.Base()
	return base.String()
}
