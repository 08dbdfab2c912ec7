// Package timeutil parses the duration strings used by config, the API and
// the CLI.
package timeutil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Day is 24 hours; calendar and DST effects are ignored.
const Day = 24 * time.Hour

// maxDays is the largest day count a time.Duration can hold.
const maxDays = math.MaxInt64 / int64(Day)

// ParseDuration parses a Go duration ("36h", "1h30m") or a whole number of
// days ("30d"). The empty string yields 0. Negative values and day counts
// that overflow time.Duration are rejected.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseInt(days, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		if n > maxDays {
			return 0, fmt.Errorf("day count %q out of range (max %d)", s, maxDays)
		}
		return time.Duration(n) * Day, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}
