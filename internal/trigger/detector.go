// Package trigger classifies inbound messages as match notifications.
package trigger

import "strings"

// Detector matches message text against a fixed set of trigger phrases.
type Detector struct {
	phrases []string
}

// NewDetector creates a detector for the given phrase set. Phrases are
// folded to lower case once; matching is case-insensitive substring
// containment.
func NewDetector(phrases []string) *Detector {
	folded := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			folded = append(folded, p)
		}
	}
	return &Detector{phrases: folded}
}

// Match reports whether text contains any configured trigger phrase.
// Empty text never matches.
func (d *Detector) Match(text string) bool {
	if text == "" {
		return false
	}
	text = strings.ToLower(text)
	for _, p := range d.phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
