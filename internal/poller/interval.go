package poller

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jpalmerr/livedeck/host"
)

const (
	// DefaultInterval is used when a target is registered without a usable
	// fetch_interval.
	DefaultInterval = 5000 * time.Millisecond

	// MinInterval is the floor applied to any configured interval to stay
	// within the provider's rate limits.
	MinInterval = 1000 * time.Millisecond

	// maxIntervalMillis keeps the resolved value representable as a
	// time.Duration.
	maxIntervalMillis = int64(1<<63-1) / int64(time.Millisecond)
)

// ErrInvalidNumberFormat is returned by [ParseInterval] when the raw value is
// not a non-empty string of ASCII digits.
var ErrInvalidNumberFormat = errors.New("invalid number format")

// ParseInterval parses a raw millisecond interval.
//
// Only a non-empty string of ASCII digits is accepted: signs, whitespace,
// decimal points and exponents all fail with [ErrInvalidNumberFormat]. Values
// too large to express as a time.Duration fail the same way.
func ParseInterval(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("empty interval: %w", ErrInvalidNumberFormat)
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, fmt.Errorf("interval %q: %w", raw, ErrInvalidNumberFormat)
		}
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n > maxIntervalMillis {
		return 0, fmt.Errorf("interval %q out of range: %w", raw, ErrInvalidNumberFormat)
	}
	return n, nil
}

// ResolveInterval turns a raw interval into the poll period, using fallback
// when the raw value is absent, malformed or not positive.
//
// Positive values below [MinInterval] are clamped up to it.
func ResolveInterval(raw host.Interval, fallback time.Duration) time.Duration {
	n, err := ParseInterval(string(raw))
	if err != nil || n <= 0 {
		return fallback
	}
	d := time.Duration(n) * time.Millisecond
	if d < MinInterval {
		return MinInterval
	}
	return d
}
