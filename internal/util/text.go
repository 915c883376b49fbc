package util

import (
	"regexp"
	"strings"
)

var reSpaces = regexp.MustCompile(`\s+`)

func NormalizeSpaces(input string) string {
	s := strings.ReplaceAll(input, "\u00A0", " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

func ContainsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func ContainsAnyFold(haystack string, needles ...string) bool {
	low := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(low, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

const maxFileNameRunes = 120

// SanitizeFileName keeps export names safe for Content-Disposition and disk.
func SanitizeFileName(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_", `"`, "_")
	out := repl.Replace(strings.TrimSpace(input))
	if r := []rune(out); len(r) > maxFileNameRunes {
		out = string(r[:maxFileNameRunes])
	}
	if out == "" {
		return "machines"
	}
	return out
}
