package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/lpcsv/internal/competency"
	"github.com/JonMunkholm/lpcsv/internal/core"
	"github.com/JonMunkholm/lpcsv/internal/web/templates"
)

// multipartOverhead is allowed on top of the file size limit for the other
// form fields and part headers.
const multipartOverhead = 1 << 20

// ImportResponse is the JSON summary of a finished import.
type ImportResponse struct {
	FrameworkID      int64                `json:"framework_id"`
	IDNumber         string               `json:"idnumber"`
	ShortName        string               `json:"shortname"`
	Created          int                  `json:"created"`
	Skipped          int                  `json:"skipped"`
	Orphaned         int                  `json:"orphaned"`
	Duplicates       int                  `json:"duplicates"`
	ScalesCreated    int                  `json:"scales_created"`
	ScalesReused     int                  `json:"scales_reused"`
	RulesApplied     int                  `json:"rules_applied"`
	RulesSkipped     int                  `json:"rules_skipped"`
	RelationsLinked  int                  `json:"relations_linked"`
	RelationsSkipped int                  `json:"relations_skipped"`
	Warnings         []competency.Warning `json:"warnings"`
	DurationMS       int64                `json:"duration_ms"`
}

func toImportResponse(res *competency.Result) ImportResponse {
	warnings := res.Warnings
	if warnings == nil {
		warnings = []competency.Warning{}
	}
	return ImportResponse{
		FrameworkID:      res.Framework.ID,
		IDNumber:         res.Framework.IDNumber,
		ShortName:        res.Framework.ShortName,
		Created:          res.Created,
		Skipped:          res.Skipped,
		Orphaned:         res.Orphaned,
		Duplicates:       res.Duplicates,
		ScalesCreated:    res.ScalesCreated,
		ScalesReused:     res.ScalesReused,
		RulesApplied:     res.RulesApplied,
		RulesSkipped:     res.RulesSkipped,
		RelationsLinked:  res.RelationsLinked,
		RelationsSkipped: res.RelationsSkipped,
		Warnings:         warnings,
		DurationMS:       res.Duration.Milliseconds(),
	}
}

// readUploadForm parses a multipart upload and returns the file part with
// the read options given alongside it. The caller closes the file.
func (s *Server) readUploadForm(w http.ResponseWriter, r *http.Request) (multipart.File, competency.ReadOptions, error) {
	var opts competency.ReadOptions
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, opts, fmt.Errorf("%w: %v", core.ErrFileTooLarge, err)
		}
		return nil, opts, fmt.Errorf("%w: invalid form: %v", errBadRequest, err)
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, opts, core.ErrNoFile
	}
	opts.Delimiter = r.FormValue("delimiter")
	opts.Encoding = r.FormValue("encoding")
	return file, opts, nil
}

// handlePrepareImport parses an upload and returns its import id, found
// headers, and suggested mapping.
func (s *Server) handlePrepareImport(w http.ResponseWriter, r *http.Request) {
	file, opts, err := s.readUploadForm(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	ctx := WithRequestMetadata(r.Context(), r)
	prep, err := s.service.PrepareImport(ctx, file, opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = templates.ImportPrepared(prep.ImportID, prep.Headers, prep.Mapping).Render(ctx, w)
		return
	}
	writeJSON(w, http.StatusCreated, prep)
}

// handleConfirmImport runs a prepared import with the posted mapping, or the
// suggested one when none is posted.
func (s *Server) handleConfirmImport(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")

	mapping, err := parseMappingRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	res, err := s.service.ConfirmImport(ctx, importID, mapping)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondImported(w, r, res)
}

// handlePreviewImport analyzes a prepared import under the posted mapping
// without running it.
func (s *Server) handlePreviewImport(w http.ResponseWriter, r *http.Request) {
	mapping, err := parseMappingRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	preview, err := s.service.PreviewImport(r.Context(), chi.URLParam(r, "importID"), mapping)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// handleListImports returns recent imports, newest first. ?limit=N bounds
// the list.
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, r, fmt.Errorf("%w: limit must be a non-negative integer", errBadRequest))
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, map[string]any{"imports": s.service.History(limit)})
}

func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CancelImport(r.Context(), chi.URLParam(r, "importID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleImportFramework imports an upload in one request. A "mapping" form
// field holding a JSON object overrides the header-derived mapping.
func (s *Server) handleImportFramework(w http.ResponseWriter, r *http.Request) {
	file, opts, err := s.readUploadForm(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	var mapping competency.Mapping
	if raw := r.FormValue("mapping"); raw != "" {
		var byName map[string]int
		if err := json.Unmarshal([]byte(raw), &byName); err != nil {
			s.respondError(w, r, fmt.Errorf("%w: invalid mapping format: %v", errBadRequest, err))
			return
		}
		if mapping, err = competency.ParseMapping(byName); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	ctx := WithRequestMetadata(r.Context(), r)
	res, err := s.service.Import(ctx, file, opts, mapping)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondImported(w, r, res)
}

func (s *Server) respondImported(w http.ResponseWriter, r *http.Request, res *competency.Result) {
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = templates.ImportResult(res).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusCreated, toImportResponse(res))
}

// parseMappingRequest reads a mapping from a JSON body {"mapping": {...}} or
// from form fields named "mapping.<field>". Returns nil when neither is sent.
func parseMappingRequest(r *http.Request) (competency.Mapping, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Mapping map[string]int `json:"mapping"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: invalid mapping format: %v", errBadRequest, err)
		}
		if body.Mapping == nil {
			return nil, nil
		}
		return competency.ParseMapping(body.Mapping)
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: invalid form: %v", errBadRequest, err)
	}
	byName := make(map[string]int)
	for key, values := range r.PostForm {
		field, ok := strings.CutPrefix(key, "mapping.")
		if !ok || len(values) == 0 {
			continue
		}
		idx, err := strconv.Atoi(values[0])
		if err != nil {
			return nil, fmt.Errorf("%w: mapping for %q is not a column index", errBadRequest, field)
		}
		byName[field] = idx
	}
	if len(byName) == 0 {
		return nil, nil
	}
	return competency.ParseMapping(byName)
}
