package poller

import (
	"errors"
	"testing"
	"time"

	"github.com/jpalmerr/livedeck/host"
)

func TestParseInterval_Valid(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"0", 0},
		{"1", 1},
		{"500", 500},
		{"1000", 1000},
		{"0003000", 3000},
		{"9223372036854", 9223372036854},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseInterval(tt.raw)
			if err != nil {
				t.Fatalf("ParseInterval(%q) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseInterval(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseInterval_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"abc",
		"-1",
		"+5",
		" 1000",
		"1000 ",
		"1.5",
		"1e3",
		"１０００", // fullwidth digits are not ASCII
		"99999999999999999999",
		"9223372036855",
	}

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseInterval(raw)
			if !errors.Is(err, ErrInvalidNumberFormat) {
				t.Errorf("ParseInterval(%q) error = %v, want ErrInvalidNumberFormat", raw, err)
			}
		})
	}
}

func TestResolveInterval_Registration(t *testing.T) {
	tests := []struct {
		name string
		raw  host.Interval
		want time.Duration
	}{
		{"absent", "", DefaultInterval},
		{"not a number", "abc", DefaultInterval},
		{"zero", "0", DefaultInterval},
		{"below floor", "500", MinInterval},
		{"just below floor", "999", MinInterval},
		{"at floor", "1000", time.Second},
		{"verbatim", "1500", 1500 * time.Millisecond},
		{"large", "60000", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveInterval(tt.raw, DefaultInterval); got != tt.want {
				t.Errorf("ResolveInterval(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestResolveInterval_UpdateKeepsPrevious(t *testing.T) {
	previous := 7 * time.Second

	if got := ResolveInterval("abc", previous); got != previous {
		t.Errorf("ResolveInterval(abc, %v) = %v, want previous value", previous, got)
	}
	if got := ResolveInterval("", previous); got != previous {
		t.Errorf("ResolveInterval(empty, %v) = %v, want previous value", previous, got)
	}
	if got := ResolveInterval("200", previous); got != MinInterval {
		t.Errorf("ResolveInterval(200, %v) = %v, want %v", previous, got, MinInterval)
	}
}
