package internal

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 30*time.Second, ParseRetryAfter("30", now))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("", now))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("-5", now))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("soon", now))

	date := now.Add(90 * time.Second).Format(http.TimeFormat)
	assert.Equal(t, 90*time.Second, ParseRetryAfter(date, now))

	past := now.Add(-time.Minute).Format(http.TimeFormat)
	assert.Equal(t, time.Duration(0), ParseRetryAfter(past, now))
}

func TestIsExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, IsExpired(now.Unix(), now), "expiry equal to now counts as expired")
	assert.True(t, IsExpired(now.Unix()-1, now))
	assert.False(t, IsExpired(now.Unix()+1, now))
	assert.Equal(t, int64(5000), UnixToMs(5))
}
