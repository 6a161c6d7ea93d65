package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/lpcsv/internal/competency"
	"github.com/JonMunkholm/lpcsv/internal/logging"
)

// maxPreviewSamples bounds the mapped rows returned with a preview.
const maxPreviewSamples = 5

// Preview is a read-only analysis of a prepared import under one mapping.
// Nothing is written to the store.
type Preview struct {
	Framework     string               `json:"framework,omitempty"`
	FrameworkName string               `json:"framework_name,omitempty"`
	Competencies  int                  `json:"competencies"`
	Depth         int                  `json:"depth"`
	Orphans       int                  `json:"orphans"`
	Duplicates    int                  `json:"duplicates"`
	Unmapped      []string             `json:"unmapped"`
	Warnings      []competency.Warning `json:"warnings"`
	Samples       []map[string]string  `json:"samples"`

	// Problem is set when the import would fail. Code and message match what
	// confirming with the same mapping would report.
	Problem       *UserMessage `json:"problem,omitempty"`
	ProblemDetail string       `json:"problem_detail,omitempty"`

	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

// PreviewImport analyzes a prepared import without consuming it. A nil
// mapping uses the one derived from the header names.
func (s *Service) PreviewImport(ctx context.Context, importID string, mapping competency.Mapping) (*Preview, error) {
	s.mu.Lock()
	sess := s.sessions[importID]
	s.mu.Unlock()
	if sess == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, importID)
	}
	if mapping == nil {
		mapping = competency.MappingFromHeaders(sess.headers)
	}

	p := s.analyze(sess.headers, sess.rows, mapping)
	logging.FromContext(ctx).Debug("import previewed",
		"import_id", importID,
		"competencies", p.Competencies,
		"problem", p.Problem != nil,
	)
	return p, nil
}

// analyze builds the tree for rows and summarizes it.
func (s *Service) analyze(headers []string, rows [][]string, mapping competency.Mapping) *Preview {
	start := time.Now()
	mapped := mapping.MapAll(rows)

	p := &Preview{
		Unmapped: unmappedHeaders(headers, mapping),
		Warnings: []competency.Warning{},
		Samples:  make([]map[string]string, 0, min(len(mapped), maxPreviewSamples)),
	}
	for _, row := range mapped[:min(len(mapped), maxPreviewSamples)] {
		sample := make(map[string]string, len(row))
		for f, v := range row {
			if v != "" {
				sample[string(f)] = v
			}
		}
		p.Samples = append(p.Samples, sample)
	}

	tree, err := competency.BuildTree(mapped, s.tree)
	if err != nil {
		p.setProblem(err)
		p.ProcessingTimeMs = time.Since(start).Milliseconds()
		return p
	}

	p.Framework = tree.Framework.IDNumber
	p.FrameworkName = tree.Framework.ShortName
	p.Orphans = tree.Orphans
	p.Duplicates = tree.Duplicates
	if tree.Warnings != nil {
		p.Warnings = tree.Warnings
	}

	depth := make(map[int]int)
	tree.Walk(func(idx, parent int) bool {
		if skipped(tree.Nodes[idx]) {
			return false
		}
		d := 1
		if parent >= 0 {
			d = depth[parent] + 1
		}
		depth[idx] = d
		p.Competencies++
		p.Depth = max(p.Depth, d)
		return true
	})

	// Rule configurations are checked on confirm only.
	if err := checkScaleConfigs(tree); err != nil {
		p.setProblem(err)
	}

	p.ProcessingTimeMs = time.Since(start).Milliseconds()
	return p
}

// checkScaleConfigs reports the first scale configuration that would fail
// to materialize.
func checkScaleConfigs(tree *competency.Tree) error {
	if tree.Framework.ScaleValues != "" {
		if _, err := competency.RewriteScaleConfig(0, tree.Framework.ScaleConfiguration); err != nil {
			return fmt.Errorf("framework %s: %w", tree.Framework.IDNumber, err)
		}
	}
	var err error
	tree.Walk(func(idx, _ int) bool {
		rec := tree.Nodes[idx]
		if err != nil || skipped(rec) {
			return false
		}
		if rec.ScaleValues == "" {
			return true
		}
		if _, cerr := competency.RewriteScaleConfig(0, rec.ScaleConfiguration); cerr != nil {
			err = fmt.Errorf("competency %s: %w", rec.IDNumber, cerr)
		}
		return err == nil
	})
	return err
}

// skipped reports whether the importer drops rec, and with it its subtree.
func skipped(rec competency.CompetencyRecord) bool {
	return rec.IDNumber == "" || rec.ShortName == ""
}

func (p *Preview) setProblem(err error) {
	msg := MapError(err)
	p.Problem = &msg
	p.ProblemDetail = err.Error()
}

// unmappedHeaders lists the header names no field reads from.
func unmappedHeaders(headers []string, mapping competency.Mapping) []string {
	used := make(map[int]bool, len(mapping))
	for _, idx := range mapping {
		used[idx] = true
	}
	out := []string{}
	for i, h := range headers {
		if !used[i] {
			out = append(out, h)
		}
	}
	return out
}
