// internal/time_parser.go
// ------------------------
// This internal package provides helpers for the time values the pipeline
// reads off the wire: JWT expiry claims (UNIX seconds) and Retry-After
// headers (delta seconds or an HTTP date).
//
// Functions:
// - ParseRetryAfter: Convert a Retry-After header into a wait duration.
// - UnixToMs: Convert a UNIX timestamp in seconds to milliseconds.
// - IsExpired: Check whether an expiry timestamp (seconds) is at or before now.
package internal

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ParseRetryAfter converts a Retry-After header value ("120" or an HTTP date)
// into a duration relative to now. Unparseable or past values yield 0.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// UnixToMs converts a UNIX timestamp in seconds to milliseconds.
func UnixToMs(timestamp int64) int64 {
	return timestamp * 1000
}

// IsExpired reports whether an expiry given in UNIX seconds is at or before now.
func IsExpired(expUnix int64, now time.Time) bool {
	return UnixToMs(expUnix) <= now.UnixMilli()
}
