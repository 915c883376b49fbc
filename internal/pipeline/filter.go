package pipeline

import (
	"sort"
	"strings"

	"carbonequip/internal"
)

// FilterSelection is the set of enabled type labels and power categories.
// An empty set applies no filter on that axis: every row passes.
type FilterSelection struct {
	Types  map[internal.TypeLabel]struct{}
	Powers map[internal.PowerCategory]struct{}
}

// NewFilterSelection builds a selection from toggle values, ignoring blanks.
func NewFilterSelection(types, powers []string) FilterSelection {
	sel := FilterSelection{
		Types:  map[internal.TypeLabel]struct{}{},
		Powers: map[internal.PowerCategory]struct{}{},
	}
	for _, t := range types {
		if t = strings.TrimSpace(t); t != "" {
			sel.Types[canonicalType(t)] = struct{}{}
		}
	}
	for _, p := range powers {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			sel.Powers[internal.PowerCategory(p)] = struct{}{}
		}
	}
	return sel
}

func (s FilterSelection) IsEmpty() bool {
	return len(s.Types) == 0 && len(s.Powers) == 0
}

// HasType matches label case-insensitively.
func (s FilterSelection) HasType(label internal.TypeLabel) bool {
	if _, ok := s.Types[label]; ok {
		return true
	}
	for t := range s.Types {
		if strings.EqualFold(string(t), string(label)) {
			return true
		}
	}
	return false
}

// canonicalType maps a toggle value onto the known label with the same
// spelling ignoring case, so "excavator" selects "Excavator".
func canonicalType(value string) internal.TypeLabel {
	for _, known := range internal.KnownTypes {
		if strings.EqualFold(value, string(known)) {
			return known
		}
	}
	if strings.EqualFold(value, string(internal.TypeUnknown)) {
		return internal.TypeUnknown
	}
	return internal.TypeLabel(value)
}

func (s FilterSelection) HasPower(cat internal.PowerCategory) bool {
	_, ok := s.Powers[cat]
	return ok
}

// Allows reports whether row passes. Type matching uses TypeNormalized only.
func (s FilterSelection) Allows(row internal.CanonicalRow) bool {
	if len(s.Types) > 0 && !s.HasType(row.TypeNormalized) {
		return false
	}
	if len(s.Powers) > 0 && !s.HasPower(ClassifyPower(row.PowerSource)) {
		return false
	}
	return true
}

// Apply returns the passing rows in input order.
func (s FilterSelection) Apply(rows []internal.CanonicalRow) []internal.CanonicalRow {
	out := make([]internal.CanonicalRow, 0, len(rows))
	for _, row := range rows {
		if s.Allows(row) {
			out = append(out, row)
		}
	}
	return out
}

// TypeValues lists the selected type labels sorted, for building links.
func (s FilterSelection) TypeValues() []string {
	out := make([]string, 0, len(s.Types))
	for t := range s.Types {
		out = append(out, string(t))
	}
	sort.Strings(out)
	return out
}

func (s FilterSelection) PowerValues() []string {
	out := make([]string, 0, len(s.Powers))
	for p := range s.Powers {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}

// TypeOptions returns the known labels followed by any other labels present
// in rows, so every row stays reachable from the toggles.
func TypeOptions(rows []internal.CanonicalRow) []internal.TypeLabel {
	seen := map[internal.TypeLabel]struct{}{}
	out := make([]internal.TypeLabel, 0, len(internal.KnownTypes)+1)
	for _, t := range internal.KnownTypes {
		seen[t] = struct{}{}
		out = append(out, t)
	}
	extra := []string{}
	for _, row := range rows {
		if _, ok := seen[row.TypeNormalized]; ok {
			continue
		}
		seen[row.TypeNormalized] = struct{}{}
		extra = append(extra, string(row.TypeNormalized))
	}
	sort.Strings(extra)
	for _, e := range extra {
		out = append(out, internal.TypeLabel(e))
	}
	return out
}
