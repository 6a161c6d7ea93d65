package competency

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ExportOptions configures Export.
type ExportOptions struct {
	// IncludeRelated adds the relatedidnumbers column so relations survive a
	// round trip.
	IncludeRelated bool
}

// Exporter writes a stored framework as CSV.
type Exporter struct {
	store Store
}

// NewExporter returns an exporter reading from store.
func NewExporter(store Store) *Exporter {
	return &Exporter{store: store}
}

// Export writes the framework identified by frameworkID to w and returns it.
func (e *Exporter) Export(ctx context.Context, frameworkID int64, w io.Writer, opts ExportOptions) (*Framework, error) {
	fw, err := e.store.ReadFramework(ctx, frameworkID)
	if err != nil {
		return nil, fmt.Errorf("read framework %d: %w", frameworkID, err)
	}
	comps, err := e.store.ListCompetencies(ctx, CompetencyFilter{FrameworkID: frameworkID})
	if err != nil {
		return nil, fmt.Errorf("list competencies: %w", err)
	}

	byID := make(map[int64]*Competency, len(comps))
	for i := range comps {
		byID[comps[i].ID] = &comps[i]
	}

	var related map[int64][]string
	if opts.IncludeRelated {
		related, err = e.relatedIDNumbers(ctx, frameworkID, byID)
		if err != nil {
			return nil, err
		}
	}

	scales := make(map[int64]string)
	compact := func(id int64) (string, error) {
		if id == 0 {
			return "", nil
		}
		if v, ok := scales[id]; ok {
			return v, nil
		}
		s, err := e.store.ReadScale(ctx, id)
		if err != nil {
			return "", fmt.Errorf("read scale %d: %w", id, err)
		}
		scales[id] = s.Compact()
		return scales[id], nil
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeaders(opts.IncludeRelated)); err != nil {
		return nil, err
	}

	values, err := compact(fw.ScaleID)
	if err != nil {
		return nil, err
	}
	config := fw.ScaleConfiguration
	if fw.ScaleID == 0 {
		config = ""
	}
	row := exportRow{
		FieldIDNumber:           fw.IDNumber,
		FieldShortName:          fw.ShortName,
		FieldDescription:        fw.Description,
		FieldDescriptionFormat:  strconv.Itoa(fw.DescriptionFormat),
		FieldScaleValues:        values,
		FieldScaleConfiguration: config,
		FieldIsFramework:        strconv.FormatBool(true),
		FieldTaxonomy:           strings.Join(fw.Taxonomies, ","),
	}
	if err := cw.Write(row.cells(opts.IncludeRelated)); err != nil {
		return nil, err
	}

	for i := range comps {
		c := &comps[i]
		parent := ""
		if p, ok := byID[c.ParentID]; ok && c.ParentID != 0 {
			parent = p.IDNumber
		}
		values, err := compact(c.ScaleID)
		if err != nil {
			return nil, err
		}
		config := ""
		if c.ScaleID != 0 {
			config = c.ScaleConfiguration
		}
		ruleConfig := nullConfig
		if c.RuleConfig != nil {
			ruleConfig = *c.RuleConfig
		}

		row := exportRow{
			FieldParentIDNumber:     parent,
			FieldIDNumber:           c.IDNumber,
			FieldShortName:          c.ShortName,
			FieldDescription:        c.Description,
			FieldDescriptionFormat:  strconv.Itoa(c.DescriptionFormat),
			FieldScaleValues:        values,
			FieldScaleConfiguration: config,
			FieldRuleType:           c.RuleType,
			FieldRuleOutcome:        strconv.Itoa(c.RuleOutcome),
			FieldRuleConfig:         ruleConfig,
			FieldRelatedIDNumbers:   joinRelated(related[c.ID]),
			FieldExportID:           strconv.FormatInt(c.ID, 10),
			FieldIsFramework:        strconv.FormatBool(false),
		}
		if err := cw.Write(row.cells(opts.IncludeRelated)); err != nil {
			return nil, err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return fw, nil
}

func (e *Exporter) relatedIDNumbers(ctx context.Context, frameworkID int64, byID map[int64]*Competency) (map[int64][]string, error) {
	rels, err := e.store.ListRelations(ctx, frameworkID)
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	out := make(map[int64][]string)
	for _, r := range rels {
		a, okA := byID[r.CompetencyID]
		b, okB := byID[r.RelatedID]
		if !okA || !okB {
			continue
		}
		out[a.ID] = append(out[a.ID], b.IDNumber)
		out[b.ID] = append(out[b.ID], a.IDNumber)
	}
	return out, nil
}

type exportRow map[Field]string

func (r exportRow) cells(includeRelated bool) []string {
	out := make([]string, 0, len(defaultOrder))
	for _, f := range defaultOrder {
		if f == FieldRelatedIDNumbers && !includeRelated {
			continue
		}
		out = append(out, r[f])
	}
	return out
}

var unsafeFilename = regexp.MustCompile(`[^\p{L}\p{N}._ -]+`)

// Filename returns the download name for an exported framework.
func Filename(fw *Framework) string {
	name := unsafeFilename.ReplaceAllString(fw.ShortName+"-"+fw.IDNumber, "_")
	name = strings.Trim(name, " .-_")
	if name == "" {
		name = "framework"
	}
	return name + ".csv"
}
