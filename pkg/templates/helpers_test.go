package templates

import (
	"testing"
	"time"
)

func TestFormatMoney(t *testing.T) {
	if got := FormatMoney(1234567.891); got != "$1,234,567.89" {
		t.Fatalf("unexpected money format: %s", got)
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(3.456); got != "+3.46%" {
		t.Fatalf("unexpected percent format: %s", got)
	}
	if got := FormatPercent(-1.2); got != "-1.2%" {
		t.Fatalf("unexpected negative percent format: %s", got)
	}
}

func TestFormatAge(t *testing.T) {
	got := FormatAge(time.Now().Add(-26 * time.Hour))
	if got != "1 day ago" {
		t.Fatalf("unexpected age format: %s", got)
	}
}

func TestIndent(t *testing.T) {
	if got := Indent("  ", "a\n\nb"); got != "  a\n\n  b" {
		t.Fatalf("unexpected indent: %q", got)
	}
}
