package persistence

import "time"

// ImportSummary reports the outcome of an import.
type ImportSummary struct {
	Read       int
	Inserted   int
	Duplicates int
}

// CheckRun is one recorded terminology check.
type CheckRun struct {
	ID                 string
	SourceLang         string
	TargetLang         string
	Input              string
	Lines              int
	Total              int
	Confirmed          int
	LanguageMismatches int
	StartedAt          time.Time
	FinishedAt         time.Time
}

// Percent is the confirmed share of found terms; zero when none were found.
func (r CheckRun) Percent() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Confirmed) / float64(r.Total) * 100
}
