package corestore

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration accepts a millisecond count (int, int64 or float64), a
// time.Duration, or a suffix-tagged string "<n>s|m|h|d" (spec §6 "Duration
// format"). Any other form errors.
func ParseDuration(v any) (time.Duration, error) {
	switch n := v.(type) {
	case int:
		return time.Duration(n) * time.Millisecond, nil
	case int64:
		return time.Duration(n) * time.Millisecond, nil
	case float64:
		return time.Duration(n) * time.Millisecond, nil
	case time.Duration:
		return n, nil
	case string:
		return parseDurationString(n)
	default:
		return 0, fmt.Errorf("corestore: invalid duration value %v (%T)", v, v)
	}
}

func parseDurationString(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("corestore: empty duration string")
	}
	unit := s[len(s)-1]
	var mult time.Duration
	switch unit {
	case 's':
		mult = time.Second
	case 'm':
		mult = time.Minute
	case 'h':
		mult = time.Hour
	case 'd':
		mult = 24 * time.Hour
	default:
		return 0, fmt.Errorf("corestore: invalid duration suffix in %q (want s|m|h|d)", s)
	}
	n, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corestore: invalid duration %q: %w", s, err)
	}
	return time.Duration(n) * mult, nil
}
