// Package timerange resolves relative time expressions ("-15m", "-1h", "-7d",
// "now") into the absolute timestamp format the search API accepts.
package timerange

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sumologic-mcp/internal/logging"
)

// Layout is the only timestamp format the search API accepts:
// UTC, second precision, no fractional seconds, no zone suffix.
const Layout = "2006-01-02T15:04:05"

// Now is the sentinel for the resolution instant
const Now = "now"

// Normalize resolves expr against now.
//
//	"now"          -> now
//	"-N" + m|h|d   -> now minus N minutes, hours or days
//	"-N"           -> now minus N hours
//	anything else  -> unchanged
//
// A relative expression whose magnitude does not parse, or whose offset
// does not fit in a time.Duration, is returned unchanged; the backend
// rejects it with its own error.
func Normalize(expr string, now time.Time) string {
	now = now.UTC()
	if expr == Now {
		return now.Format(Layout)
	}
	if !strings.HasPrefix(expr, "-") {
		return expr
	}

	magnitude := expr[1:]
	unit := time.Hour
	switch {
	case strings.HasSuffix(expr, "m"):
		magnitude, unit = expr[1:len(expr)-1], time.Minute
	case strings.HasSuffix(expr, "h"):
		magnitude, unit = expr[1:len(expr)-1], time.Hour
	case strings.HasSuffix(expr, "d"):
		magnitude, unit = expr[1:len(expr)-1], 24*time.Hour
	}

	n, err := strconv.ParseInt(magnitude, 10, 64)
	if err != nil || n < 0 {
		logging.WithFields(map[string]interface{}{
			"expression": expr,
		}).Warn("Unparsable relative time expression, passing it through unchanged")
		return expr
	}
	if n > maxMagnitude(unit) {
		logging.WithFields(map[string]interface{}{
			"expression": expr,
			"max":        maxMagnitude(unit),
		}).Warn("Relative time offset out of range, passing it through unchanged")
		return expr
	}

	return now.Add(-time.Duration(n) * unit).Format(Layout)
}

// maxMagnitude is the largest N for which N*unit fits in a time.Duration
func maxMagnitude(unit time.Duration) int64 {
	return math.MaxInt64 / int64(unit)
}

// NormalizeNow resolves expr against the current clock
func NormalizeNow(expr string) string {
	return Normalize(expr, time.Now())
}

// IsRelative reports whether expr is resolved relative to the resolution instant
func IsRelative(expr string) bool {
	return expr == Now || strings.HasPrefix(expr, "-")
}
