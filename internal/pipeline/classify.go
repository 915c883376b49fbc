package pipeline

import (
	"strings"

	"carbonequip/internal"
)

type typeRule struct {
	needle string
	label  internal.TypeLabel
}

// Order matters: "dump" must win over "loader" for articulated dump loaders
// and "dozer" over "loader" for dozer-loaders.
var typeRules = []typeRule{
	{needle: "dump", label: internal.TypeDumpTruck},
	{needle: "dozer", label: internal.TypeBulldozer},
	{needle: "grader", label: internal.TypeGrader},
	{needle: "loader", label: internal.TypeWheelLoader},
	{needle: "excav", label: internal.TypeExcavator},
	{needle: "backhoe", label: internal.TypeBackhoe},
	{needle: "unknown", label: internal.TypeUnknown},
}

// ClassifyType maps free-text equipment type onto a canonical label. Text
// that matches no rule is returned trimmed, or TypeUnknown when empty. Scraper
// placeholders such as "Unknown machine" collapse to TypeUnknown.
func ClassifyType(raw string) internal.TypeLabel {
	low := strings.ToLower(raw)
	for _, rule := range typeRules {
		if strings.Contains(low, rule.needle) {
			return rule.label
		}
	}
	if trimmed := strings.TrimSpace(raw); trimmed != "" {
		return internal.TypeLabel(trimmed)
	}
	return internal.TypeUnknown
}

// ClassifyPower buckets a power-source description for the table accent.
func ClassifyPower(raw string) internal.PowerCategory {
	low := strings.ToLower(raw)
	switch {
	case strings.Contains(low, "battery"):
		return internal.PowerBattery
	case strings.Contains(low, "hydrogen"):
		return internal.PowerHydrogen
	case strings.Contains(low, "hybrid"):
		return internal.PowerHybrid
	case strings.Contains(low, "methanol"), strings.Contains(low, "ethanol"), strings.Contains(low, "other"):
		return internal.PowerAltFuel
	default:
		return internal.PowerNone
	}
}

// PowerClass is the CSS class used for the power pill.
func PowerClass(raw string) string {
	cat := ClassifyPower(raw)
	if cat == internal.PowerNone {
		return ""
	}
	return "power-" + string(cat)
}
