package util

import (
	"testing"
	"time"
)

func TestParseDateISO(t *testing.T) {
	got, ok := ParseDate("2025-03-01")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Format(DateLayout) != "2025-03-01" {
		t.Fatalf("unexpected day %v", got)
	}
}

func TestParseDateTruncatesTime(t *testing.T) {
	got, ok := ParseDate("2025-03-01 17:45:00")
	if !ok {
		t.Fatalf("expected ok")
	}
	if !got.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected midnight, got %v", got)
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	if _, ok := ParseDate("not a date"); ok {
		t.Fatalf("expected failure")
	}
	if _, ok := ParseDate("  "); ok {
		t.Fatalf("expected failure on blank")
	}
}

func TestParseDateDefault(t *testing.T) {
	def := MustDate("2024-10-10")
	if got := ParseDateDefault("", def); !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestEachDayInclusive(t *testing.T) {
	days := EachDay(MustDate("2024-02-27"), MustDate("2024-03-01"))
	if len(days) != 4 {
		t.Fatalf("expected 4 days across leap day, got %d", len(days))
	}
	if days[2].Format(DateLayout) != "2024-02-29" {
		t.Fatalf("unexpected day %v", days[2])
	}
	if EachDay(MustDate("2024-03-02"), MustDate("2024-03-01")) != nil {
		t.Fatalf("expected nil for inverted range")
	}
}

func TestMondayIndex(t *testing.T) {
	if MondayIndex(time.Monday) != 0 || MondayIndex(time.Saturday) != 5 || MondayIndex(time.Sunday) != 6 {
		t.Fatalf("unexpected weekday mapping")
	}
}

func TestCompact(t *testing.T) {
	if got := Compact(MustDate("2025-06-30")); got != "20250630" {
		t.Fatalf("unexpected compact %s", got)
	}
}
