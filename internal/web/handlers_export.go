package web

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/lpcsv/internal/competency"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"imports":  s.service.LimiterStatus(),
		"sessions": s.service.SessionCount(),
	})
}

// handleHeaders lists the import and export column names.
func (s *Server) handleHeaders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"required": competency.RequiredHeaders(),
		"export":   competency.ExportHeaders(false),
	})
}

// handleDownloadTemplate returns a header-only CSV to fill in.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="framework_template.csv"`)

	csvWriter := csv.NewWriter(w)
	_ = csvWriter.Write(competency.RequiredHeaders())
	csvWriter.Flush()
}

// handleExportFramework streams a framework as CSV. With ?related=1 the
// relatedidnumbers column is included.
func (s *Server) handleExportFramework(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "frameworkID"), 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, r, fmt.Errorf("%w: framework id must be a positive integer", errBadRequest))
		return
	}
	related, _ := strconv.ParseBool(r.URL.Query().Get("related"))

	// Buffered so a failure part way through still gets an error status.
	var buf bytes.Buffer
	fw, err := s.service.Export(r.Context(), id, &buf, competency.ExportOptions{IncludeRelated: related})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, competency.Filename(fw)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}
