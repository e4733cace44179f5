package service

import (
	"strings"
	"unicode"
)

// aggregateOperators produce computed records instead of raw messages
var aggregateOperators = map[string]bool{
	"count":          true,
	"count_distinct": true,
	"count_frequent": true,
	"sum":            true,
	"avg":            true,
	"min":            true,
	"max":            true,
	"distinct":       true,
	"pct":            true,
	"percentile":     true,
	"stddev":         true,
	"timeslice":      true,
	"first":          true,
	"last":           true,
	"most_recent":    true,
	"least_recent":   true,
	"top":            true,
	"fillmissing":    true,
	"transpose":      true,
}

// IsAggregateQuery reports whether a query produces aggregated records.
// It looks at the operator that starts each pipeline stage after the
// first pipe, and at any "by" grouping clause. Quoted text is not
// parsed, so a pipe inside a string literal can cause a false positive.
func IsAggregateQuery(query string) bool {
	stages := strings.Split(query, "|")
	if len(stages) < 2 {
		return false
	}

	for _, stage := range stages[1:] {
		tokens := strings.FieldsFunc(strings.ToLower(stage), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		if len(tokens) == 0 {
			continue
		}
		if aggregateOperators[tokens[0]] {
			return true
		}
		for _, tok := range tokens[1:] {
			if tok == "by" {
				return true
			}
		}
	}
	return false
}
