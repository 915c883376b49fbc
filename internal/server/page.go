package server

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/url"

	"carbonequip/internal"
	"carbonequip/internal/dataset"
	"carbonequip/internal/pipeline"
)

const (
	pageTemplate      = "page"
	tableBodyTemplate = "table-body"

	powerCell = 0
	linkCell  = 11
)

// ErrRenderTargetMissing aborts a page render whose template set has no
// table body to fill.
var ErrRenderTargetMissing = errors.New("render target missing: " + tableBodyTemplate + " template is not defined")

//go:embed templates/*.html
var templateFS embed.FS

var pageFuncs = template.FuncMap{
	"isPowerCell": func(i int) bool { return i == powerCell },
	"isLinkCell":  func(i int) bool { return i == linkCell },
}

var pageTemplates = template.Must(template.New("").Funcs(pageFuncs).ParseFS(templateFS, "templates/*.html"))

type toggle struct {
	Value   string
	Label   string
	Checked bool
}

type pageData struct {
	Loaded     bool
	Diagnostic string
	Types      []toggle
	Powers     []toggle
	Columns    []string
	Rows       []internal.DisplayRow
	Shown      int
	Total      int
	Query      string
}

var powerLabels = map[internal.PowerCategory]string{
	internal.PowerBattery:  "Battery",
	internal.PowerHydrogen: "Hydrogen",
	internal.PowerHybrid:   "Hybrid",
	internal.PowerAltFuel:  "Methanol/Other",
}

func buildPageData(state dataset.State, sel pipeline.FilterSelection) pageData {
	rows := pipeline.RenderTable(state.Rows, sel)
	data := pageData{
		Loaded:     state.Loaded,
		Diagnostic: state.Diagnostic,
		Columns:    pipeline.TableColumns,
		Rows:       rows,
		Shown:      len(rows),
		Total:      len(state.Rows),
		Query:      selectionQuery(sel),
	}
	for _, t := range pipeline.TypeOptions(state.Rows) {
		data.Types = append(data.Types, toggle{Value: string(t), Label: string(t), Checked: sel.HasType(t)})
	}
	for _, p := range internal.KnownPowers {
		data.Powers = append(data.Powers, toggle{Value: string(p), Label: powerLabels[p], Checked: sel.HasPower(p)})
	}
	return data
}

// selectionQuery encodes sel as a query string, "" when nothing is selected.
func selectionQuery(sel pipeline.FilterSelection) string {
	if sel.IsEmpty() {
		return ""
	}
	q := url.Values{}
	for _, t := range sel.TypeValues() {
		q.Add("type", t)
	}
	for _, p := range sel.PowerValues() {
		q.Add("power", p)
	}
	return "?" + q.Encode()
}

// renderPage executes the page into a buffer first so a failed render never
// leaves a half-written response.
func renderPage(w io.Writer, pages *template.Template, data pageData) error {
	if pages == nil || pages.Lookup(tableBodyTemplate) == nil {
		return ErrRenderTargetMissing
	}
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, pageTemplate, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}
