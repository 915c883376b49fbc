package util

import (
	"regexp"
	"strings"
)

var (
	kwPattern      = regexp.MustCompile(`(?i)\b(\d{2,4})\s?kW\b`)
	m3Pattern      = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s?m(?:\^?3|³)`)
	tonPattern     = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s?(?:t|tons?|tonnes?)\b`)
	payloadPattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s?(?:t|tons?|tonnes?)\s?payload\b`)
	bladePattern   = regexp.MustCompile(`(?i)\bblade\s*(?:width|size)?[:\s-]*([0-9][0-9.,xX ]*(?:mm|cm|m|ft|in))\b`)
	yearPattern    = regexp.MustCompile(`\b(20\d{2})\b`)
)

// Measures holds the technical values found in free text. Values are the matched
// digits only; units are implied by the field.
type Measures struct {
	EngineKW  string
	BucketM3  string
	ClassTons string
	BladeSize string
	Year      string
}

func ParseMeasures(text string) Measures {
	line := NormalizeSpaces(text)
	m := Measures{
		EngineKW:  firstGroup(kwPattern, line),
		BucketM3:  firstGroup(m3Pattern, line),
		BladeSize: strings.TrimSpace(firstGroup(bladePattern, line)),
		Year:      firstGroup(yearPattern, line),
	}
	m.ClassTons = FirstNonEmpty(firstGroup(payloadPattern, line), firstGroup(tonPattern, line))
	return m
}

func FindKW(text string) string { return firstGroup(kwPattern, text) }

func FindM3(text string) string { return firstGroup(m3Pattern, text) }

func firstGroup(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	return ""
}
