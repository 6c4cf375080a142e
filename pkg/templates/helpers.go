package templates

import (
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatMoney renders a USD amount with thousands separators.
func FormatMoney(v float64) string {
	return "$" + humanize.CommafWithDigits(v, 2)
}

// FormatCount renders an integer with thousands separators.
func FormatCount(v int64) string {
	return humanize.Comma(v)
}

// FormatPercent renders a ratio as a signed percentage.
func FormatPercent(v float64) string {
	sign := ""
	if v > 0 {
		sign = "+"
	}
	return sign + humanize.CommafWithDigits(v, 2) + "%"
}

// FormatAge renders a timestamp relative to now ("3 days ago").
func FormatAge(t time.Time) string {
	return humanize.Time(t)
}

// FormatDate renders a timestamp as a calendar date.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// Indent prefixes every line with the given prefix, for nested markdown.
func Indent(prefix, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

func helperFuncs() template.FuncMap {
	return template.FuncMap{
		"money":   FormatMoney,
		"count":   FormatCount,
		"percent": FormatPercent,
		"age":     FormatAge,
		"date":    FormatDate,
		"indent":  Indent,
		"upper":   strings.ToUpper,
	}
}
