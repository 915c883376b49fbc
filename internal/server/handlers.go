package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"carbonequip/internal"
	"carbonequip/internal/config"
	"carbonequip/internal/dataset"
	"carbonequip/internal/pipeline"
	"carbonequip/internal/util"
)

func selectionFromRequest(r *http.Request) pipeline.FilterSelection {
	q := r.URL.Query()
	return pipeline.NewFilterSelection(q["type"], q["power"])
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	state := s.catalog.Ensure(r.Context())
	data := buildPageData(state, selectionFromRequest(r))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := renderPage(w, s.pages, data); err != nil {
		if errors.Is(err, ErrRenderTargetMissing) {
			s.metrics.incRenderFailure()
		}
		s.logger.Error().Err(err).Msg("page render aborted")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = fmt.Fprintf(w, "page unavailable: %v\n", err)
	}
}

type rowsResponse struct {
	Loaded     bool                    `json:"loaded"`
	Source     string                  `json:"source"`
	Diagnostic string                  `json:"diagnostic,omitempty"`
	LoadedAt   *time.Time              `json:"loadedAt,omitempty"`
	Total      int                     `json:"total"`
	Count      int                     `json:"count"`
	Types      []string                `json:"types"`
	Powers     []string                `json:"powers"`
	Rows       []internal.CanonicalRow `json:"rows"`
}

func stateResponse(state dataset.State, sel pipeline.FilterSelection) rowsResponse {
	rows := sel.Apply(state.Rows)
	resp := rowsResponse{
		Loaded:     state.Loaded,
		Source:     state.Source,
		Diagnostic: state.Diagnostic,
		Total:      len(state.Rows),
		Count:      len(rows),
		Types:      sel.TypeValues(),
		Powers:     sel.PowerValues(),
		Rows:       rows,
	}
	if !state.LoadedAt.IsZero() {
		at := state.LoadedAt
		resp.LoadedAt = &at
	}
	return resp
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	state := s.catalog.Ensure(r.Context())
	writeJSON(w, stateResponse(state, selectionFromRequest(r)))
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	state := s.catalog.Reload(r.Context())
	writeJSON(w, stateResponse(state, pipeline.FilterSelection{}))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.catalog.Snapshot()
	writeJSON(w, map[string]any{
		"ok":         true,
		"loaded":     state.Loaded,
		"rows":       len(state.Rows),
		"diagnostic": state.Diagnostic,
	})
}

// exportRows applies the configured export scope: the filtered view, or
// every cached row.
func (s *Server) exportRows(r *http.Request) []internal.CanonicalRow {
	state := s.catalog.Ensure(r.Context())
	if s.cfg.ExportScope == config.ExportScopeFull {
		return state.Rows
	}
	return selectionFromRequest(r).Apply(state.Rows)
}

func downloadName(r *http.Request, ext string) string {
	return util.SanitizeFileName(r.URL.Query().Get("name")) + ext
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	rows := s.exportRows(r)
	var buf bytes.Buffer
	if err := pipeline.WriteCSV(&buf, rows, pipeline.ExportColumns(rows)); err != nil {
		s.logger.Error().Err(err).Msg("csv export failed")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	s.metrics.incExport("csv")
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, downloadName(r, ".csv")))
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	rows := s.exportRows(r)
	var buf bytes.Buffer
	if err := pipeline.WriteXLSX(&buf, rows, pipeline.ExportColumns(rows)); err != nil {
		s.logger.Error().Err(err).Msg("xlsx export failed")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	s.metrics.incExport("xlsx")
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, downloadName(r, ".xlsx")))
	_, _ = buf.WriteTo(w)
}
