package pipeline

import "carbonequip/internal"

// TableColumns are the on-screen column titles; units live in the header so
// cells carry the canonical text untouched.
var TableColumns = []string{
	"Power", "OEM", "Country", "Class (t)", "Engine/Motor (kW)", "Blade (grader)", "Bucket (m³)",
	"Type", "Year", "Status", "Model", "Link", "Date",
}

// RenderTable projects the rows passing sel into display rows, one per
// record, preserving input order.
func RenderTable(rows []internal.CanonicalRow, sel FilterSelection) []internal.DisplayRow {
	passing := sel.Apply(rows)
	out := make([]internal.DisplayRow, 0, len(passing))
	for _, row := range passing {
		out = append(out, internal.DisplayRow{
			Cells: []string{
				row.PowerSource,
				row.OEM,
				row.Country,
				row.ClassTons,
				row.EnginePowerKW,
				row.BladeDisplay,
				row.BucketVolumeM3,
				string(row.TypeNormalized),
				row.Year,
				row.Status,
				row.Model,
				row.SourceLink,
				row.LinkDate,
			},
			PowerClass: PowerClass(row.PowerSource),
			Link:       row.SourceLink,
		})
	}
	return out
}
