package util

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reSpaces    = regexp.MustCompile(`\s+`)
	reNonDigits = regexp.MustCompile(`\D`)
)

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// NormalizePhrases lowercases, trims and deduplicates phrases, keeping the
// first occurrence order and dropping blanks.
func NormalizePhrases(values []string) []string {
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, v := range values {
		p := strings.ToLower(NormalizeSpaces(v))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// CapitalizeWords lowercases the input and upper-cases the first letter of
// every whitespace separated word.
func CapitalizeWords(input string) string {
	lower := []rune(strings.ToLower(input))
	start := true
	for i, r := range lower {
		if unicode.IsSpace(r) {
			start = true
			continue
		}
		if start {
			lower[i] = unicode.ToUpper(r)
			start = false
		}
	}
	return string(lower)
}

// FormatPhone renders ten digit numbers as (xxx) xxx-xxxx and leaves
// everything else untouched.
func FormatPhone(input string) string {
	digits := reNonDigits.ReplaceAllString(input, "")
	if len(digits) != 10 {
		return input
	}
	return "(" + digits[0:3] + ") " + digits[3:6] + "-" + digits[6:]
}

func SanitizeFileComponent(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_", "\"", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}

func StringPtr(v string) *string {
	return &v
}

func IntPtr(v int) *int {
	return &v
}

func Deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
