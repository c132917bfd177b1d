package utils

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

var unitSeconds = map[string]int64{
	"s": 1,
	"m": 60,
	"h": 3600,
	"d": 86400,
}

// maxSeconds is the longest span a time.Duration can hold.
const maxSeconds = math.MaxInt64 / int64(time.Second)

// ErrInvalidFormat is returned for duration strings outside <integer><s|m|h|d>.
var ErrInvalidFormat = fmt.Errorf("%w: invalid duration format, use 10s, 5m, 1h or 2d", ErrInvalidArgument)

// ParseDurationSeconds parses strings such as "10s", "5m", "1h" or "2d" into seconds.
func ParseDurationSeconds(s string) (int64, error) {
	match := durationPattern.FindStringSubmatch(strings.ToLower(s))
	if match == nil {
		return 0, ErrInvalidFormat
	}
	value, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, ErrInvalidFormat
	}
	unit := unitSeconds[match[2]]
	if value > maxSeconds/unit {
		return 0, ErrInvalidFormat
	}
	return value * unit, nil
}

// ParseDuration is ParseDurationSeconds as a time.Duration.
func ParseDuration(s string) (time.Duration, error) {
	seconds, err := ParseDurationSeconds(s)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}
