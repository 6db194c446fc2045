package receipt

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FormatAmount renders a monetary value with thousands separators and two
// decimal places, matching the app-wide display convention.
func FormatAmount(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)
	negative := strings.HasPrefix(fixed, "-")
	if negative {
		fixed = fixed[1:]
	}

	parts := strings.SplitN(fixed, ".", 2)
	whole := parts[0]

	var grouped strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(digit)
	}

	out := grouped.String() + "." + parts[1]
	if negative {
		return "-" + out
	}
	return out
}

const maxKeyLength = 25

// HumanizeKey turns a wire label or identifier into display text: underscores
// become spaces, words are title-cased, and overlong keys are truncated.
func HumanizeKey(key string) string {
	formatted := strings.ReplaceAll(key, "_", " ")
	formatted = strings.ToLower(formatted)

	var out strings.Builder
	upperNext := true
	for _, r := range formatted {
		if upperNext && r != ' ' {
			out.WriteString(strings.ToUpper(string(r)))
			upperNext = false
			continue
		}
		if r == ' ' {
			upperNext = true
		}
		out.WriteRune(r)
	}

	result := out.String()
	if len(result) > maxKeyLength {
		result = result[:maxKeyLength] + "..."
	}
	return result
}

const maxValueLength = 20

// HumanizeValue shortens long values and reformats ISO timestamps as
// dd/mm/yyyy, hh:mm for the preview and receipt summaries.
func HumanizeValue(value string) string {
	if parsed, err := time.Parse(time.RFC3339, value); err == nil && strings.Contains(value, "T") {
		return parsed.Format("02/01/2006, 15:04")
	}
	if len(value) > maxValueLength {
		return value[:maxValueLength] + "..."
	}
	return value
}
