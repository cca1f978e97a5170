package core

import (
	"regexp"
)

// addressPattern matches real-world sender strings permissively rather
// than validating RFC 5322: local-part@domain where the final domain
// label is alphabetic and at least two characters. Junk senders are
// frequently malformed, so strict parsing would lose exactly the
// addresses this tool exists to count.
var addressPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// Extractor pulls candidate email addresses out of raw text.
type Extractor struct{}

// NewExtractor creates a new address extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns every address-like token in text in order of
// appearance, duplicates preserved. Empty or address-free text yields
// an empty result, never an error.
func (e *Extractor) Extract(text string) []string {
	if text == "" {
		return nil
	}
	return addressPattern.FindAllString(text, -1)
}
