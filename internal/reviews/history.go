package reviews

import (
	"fmt"
	"strings"
)

const (
	historyMatchCap   = 10
	historySummaryLen = 100
)

// SearchHistory filters the record table with a case-insensitive substring
// test of the query against decision number, recommendation text and manager
// name. Matches keep table order and are capped at historyMatchCap; each line
// is the decision number plus the start of the recommendation.
func SearchHistory(records []CaseRecord, query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var lines []string
	for _, rec := range records {
		if !matchesRecord(rec, q) {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s...", rec.DecisionNumber, truncateRunes(rec.Recommendation, historySummaryLen)))
		if len(lines) == historyMatchCap {
			break
		}
	}
	return lines
}

func matchesRecord(rec CaseRecord, q string) bool {
	for _, field := range []string{rec.DecisionNumber, rec.Recommendation, rec.Manager} {
		// Empty field values never match, they are not errors.
		if field == "" {
			continue
		}
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
