package inject

import "errors"

var (
	// ErrMalformedLine is returned for an input line that is not exactly
	// two tab separated fields.
	ErrMalformedLine = errors.New("malformed sentence pair: expected exactly two tab separated fields")

	// ErrNoTerms is returned when a match rate is requested but no term
	// was ever found in the source sentences.
	ErrNoTerms = errors.New("no terms found in source sentences, match rate is undefined")
)
