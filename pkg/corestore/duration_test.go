package corestore

import (
	"testing"
	"time"
)

func TestParseDurationNumeric(t *testing.T) {
	cases := []struct {
		in   any
		want time.Duration
	}{
		{1000, time.Second},
		{int64(500), 500 * time.Millisecond},
		{float64(250), 250 * time.Millisecond},
		{2 * time.Second, 2 * time.Second},
	}
	for _, c := range cases {
		got, err := ParseDuration(c.in)
		if err != nil {
			t.Fatalf("ParseDuration(%v): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseDuration(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseDurationSuffixString(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"5m", 5 * time.Minute},
		{"2h", 2 * time.Hour},
		{"1d", 24 * time.Hour},
	}
	for _, c := range cases {
		got, err := ParseDuration(c.in)
		if err != nil {
			t.Fatalf("ParseDuration(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseDurationInvalid(t *testing.T) {
	cases := []any{"", "30x", "abc", true, nil}
	for _, c := range cases {
		if _, err := ParseDuration(c); err == nil {
			t.Errorf("ParseDuration(%v) expected an error", c)
		}
	}
}
