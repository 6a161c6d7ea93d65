package main

import (
	"encoding/json"
	"io"

	"github.com/JonMunkholm/lpcsv/internal/competency"
)

func writeJSONLine(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

type importSummary struct {
	Status           string               `json:"status"`
	DryRun           bool                 `json:"dry_run"`
	FrameworkID      int64                `json:"framework_id"`
	IDNumber         string               `json:"idnumber"`
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
	Warnings         []competency.Warning `json:"warnings,omitempty"`
	DurationMS       int64                `json:"duration_ms"`
}

func newImportSummary(res *competency.Result, dryRun bool) importSummary {
	return importSummary{
		Status:           "ok",
		DryRun:           dryRun,
		FrameworkID:      res.Framework.ID,
		IDNumber:         res.Framework.IDNumber,
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
		Warnings:         res.Warnings,
		DurationMS:       res.Duration.Milliseconds(),
	}
}
