package moderation

import "strings"

// WordViolation is a single blocked-word match
type WordViolation struct {
	Word     string       `json:"word"`
	Severity WordSeverity `json:"severity"`
}

// FilterResult is the outcome of scanning one piece of text
type FilterResult struct {
	HasViolations bool            `json:"has_violations"`
	Violations    []WordViolation `json:"violations"`
	ShouldBlock   bool            `json:"should_block"`
	Severity      WordSeverity    `json:"severity,omitempty"`
}

// Filter scans text case-insensitively for each active word as a substring.
// Substring matching is intentionally permissive so that spacing and
// punctuation obfuscation ("f r e e" joined, "spam!word") still hits.
// Pure function of (text, word list).
func Filter(text string, words []*BlockedWord) FilterResult {
	result := FilterResult{}
	if text == "" || len(words) == 0 {
		return result
	}

	lower := strings.ToLower(text)
	for _, w := range words {
		if !w.IsActive || w.Word == "" {
			continue
		}
		if !strings.Contains(lower, w.Word) {
			continue
		}

		result.Violations = append(result.Violations, WordViolation{
			Word:     w.Word,
			Severity: w.Severity,
		})
		if w.Severity == WordSeverityBlock {
			result.ShouldBlock = true
			result.Severity = WordSeverityBlock
		} else if result.Severity == "" {
			result.Severity = WordSeverityWarning
		}
	}

	result.HasViolations = len(result.Violations) > 0
	return result
}
