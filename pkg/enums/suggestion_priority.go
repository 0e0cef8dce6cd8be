package enums

import (
	"fmt"
	"strings"
)

// SuggestionPriority ranks improvement suggestions submitted through the public form.
type SuggestionPriority string

const (
	SuggestionPriorityLow    SuggestionPriority = "LOW"
	SuggestionPriorityMedium SuggestionPriority = "MEDIUM"
	SuggestionPriorityHigh   SuggestionPriority = "HIGH"
)

var validSuggestionPriorities = []SuggestionPriority{
	SuggestionPriorityLow,
	SuggestionPriorityMedium,
	SuggestionPriorityHigh,
}

// IsValid reports whether the value is a known SuggestionPriority.
func (p SuggestionPriority) IsValid() bool {
	for _, candidate := range validSuggestionPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseSuggestionPriority converts raw input into a SuggestionPriority.
func ParseSuggestionPriority(value string) (SuggestionPriority, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validSuggestionPriorities {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid suggestion priority %q", value)
}
