package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2026-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnixMillis(t *testing.T) {
	ms := time.Date(2026, 10, 10, 10, 10, 10, 250e6, time.UTC).UnixMilli()
	got, ok := ParseTime(strconv.FormatInt(ms, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UnixMilli() != ms {
		t.Fatalf("unexpected millis %v", got.UnixMilli())
	}
}

func TestParseTimeInvalid(t *testing.T) {
	for _, s := range []string{"", "yesterday", "-5"} {
		if _, ok := ParseTime(s); ok {
			t.Fatalf("expected %q to fail", s)
		}
	}
}

func TestParseDefaults(t *testing.T) {
	if got := ParseIntDefault("x", 7); got != 7 {
		t.Fatalf("expected default, got %d", got)
	}
	if got := ParseIntDefault("12", 7); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
	if got := ParseBoolDefault("", true); !got {
		t.Fatalf("expected default true")
	}
	if got := ParseBoolDefault("false", true); got {
		t.Fatalf("expected false")
	}
}
