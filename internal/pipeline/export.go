package pipeline

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"carbonequip/internal"
)

const (
	CSVFileName  = "machines.csv"
	XLSXFileName = "machines.xlsx"
)

var baseColumns = []internal.Column{
	{Title: "Power", Accessor: func(r internal.CanonicalRow) string { return r.PowerSource }},
	{Title: "OEM", Accessor: func(r internal.CanonicalRow) string { return r.OEM }},
	{Title: "Country", Accessor: func(r internal.CanonicalRow) string { return r.Country }},
	{Title: "Class (t)", Accessor: func(r internal.CanonicalRow) string { return r.ClassTons }},
	{Title: "Engine/Motor (kW)", Accessor: func(r internal.CanonicalRow) string { return r.EnginePowerKW }},
	{Title: "Blade (grader)", Accessor: func(r internal.CanonicalRow) string { return r.BladeDisplay }},
	{Title: "Bucket (m³)", Accessor: func(r internal.CanonicalRow) string { return r.BucketVolumeM3 }},
	{Title: "Type", Accessor: func(r internal.CanonicalRow) string { return string(r.TypeNormalized) }},
	{Title: "Year", Accessor: func(r internal.CanonicalRow) string { return r.Year }},
	{Title: "Status", Accessor: func(r internal.CanonicalRow) string { return r.Status }},
	{Title: "Model", Accessor: func(r internal.CanonicalRow) string { return r.Model }},
	{Title: "Link", Accessor: func(r internal.CanonicalRow) string { return r.SourceLink }},
	{Title: "Date", Accessor: func(r internal.CanonicalRow) string { return r.LinkDate }},
}

var tonnageColumn = internal.Column{
	Title:    "Tonnage (t)",
	Accessor: func(r internal.CanonicalRow) string { return r.TonnageTons },
}

// ExportColumns returns the fixed export header, adding the tonnage column
// only when some row carries a tonnage.
func ExportColumns(rows []internal.CanonicalRow) []internal.Column {
	cols := make([]internal.Column, len(baseColumns), len(baseColumns)+1)
	copy(cols, baseColumns)
	for _, r := range rows {
		if r.TonnageTons != "" {
			return append(cols, tonnageColumn)
		}
	}
	return cols
}

// WriteCSV writes a header line and one line per row. Every field is wrapped
// in double quotes with embedded quotes doubled, so commas and newlines
// inside values survive a standard CSV parser.
func WriteCSV(w io.Writer, rows []internal.CanonicalRow, columns []internal.Column) error {
	line := make([]string, len(columns))
	for i, c := range columns {
		line[i] = quoteField(c.Title)
	}
	if _, err := io.WriteString(w, strings.Join(line, ",")+"\n"); err != nil {
		return err
	}
	for _, r := range rows {
		for i, c := range columns {
			line[i] = quoteField(c.Accessor(r))
		}
		if _, err := io.WriteString(w, strings.Join(line, ",")+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func ToCSV(rows []internal.CanonicalRow, columns []internal.Column) string {
	var buf bytes.Buffer
	_ = WriteCSV(&buf, rows, columns)
	return buf.String()
}

func quoteField(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func ExportRowsToCSV(rows []internal.CanonicalRow, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, rows, ExportColumns(rows)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// BuildXLSX lays the same columns out in the first sheet of a new workbook.
func BuildXLSX(rows []internal.CanonicalRow, columns []internal.Column) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	for i, c := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, c.Title); err != nil {
			return nil, err
		}
	}

	for i, row := range rows {
		r := i + 2
		for col, c := range columns {
			cell, _ := excelize.CoordinatesToCellName(col+1, r)
			_ = f.SetCellStr(sheet, cell, c.Accessor(row))
		}
	}
	return f, nil
}

func WriteXLSX(w io.Writer, rows []internal.CanonicalRow, columns []internal.Column) error {
	f, err := BuildXLSX(rows, columns)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(w)
	return err
}

func ExportRowsToXLSX(rows []internal.CanonicalRow, outputPath string) error {
	f, err := BuildXLSX(rows, ExportColumns(rows))
	if err != nil {
		return err
	}
	defer f.Close()
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
