package inject

import "fmt"

// Counts are the per-sentence term tallies.
type Counts struct {
	// Total source term occurrences.
	Total int
	// Confirmed occurrences whose target rendering was found.
	Confirmed int
}

// Stats accumulates over a whole run.
type Stats struct {
	Lines              int
	Total              int
	Confirmed          int
	LanguageMismatches int
}

func (s *Stats) add(c Counts) {
	s.Lines++
	s.Total += c.Total
	s.Confirmed += c.Confirmed
}

// Percent is Confirmed/Total*100.
func (s Stats) Percent() (float64, error) {
	if s.Total == 0 {
		return 0, ErrNoTerms
	}
	return float64(s.Confirmed) / float64(s.Total) * 100, nil
}

// CheckReport formats the check mode summary line.
func (s Stats) CheckReport() (string, error) {
	pct, err := s.Percent()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Terminology check: %d out of %d (%.2f%%)", s.Confirmed, s.Total, pct), nil
}

// FoundReport formats the annotation mode summary line.
func (s Stats) FoundReport() string {
	return fmt.Sprintf("Total terms found: %d", s.Total)
}
