package competency

import (
	"context"
	"strings"
	"time"
)

// Field names one column of the import schema.
type Field string

const (
	FieldParentIDNumber     Field = "parentidnumber"
	FieldIDNumber           Field = "idnumber"
	FieldShortName          Field = "shortname"
	FieldDescription        Field = "description"
	FieldDescriptionFormat  Field = "descriptionformat"
	FieldScaleValues        Field = "scalevalues"
	FieldScaleConfiguration Field = "scaleconfiguration"
	FieldRuleType           Field = "ruletype"
	FieldRuleOutcome        Field = "ruleoutcome"
	FieldRuleConfig         Field = "ruleconfig"
	FieldRelatedIDNumbers   Field = "relatedidnumbers"
	FieldExportID           Field = "exportid"
	FieldIsFramework        Field = "isframework"
	FieldTaxonomy           Field = "taxonomy"
)

// defaultOrder is the positional column order used when no mapping is given.
var defaultOrder = []Field{
	FieldParentIDNumber,
	FieldIDNumber,
	FieldShortName,
	FieldDescription,
	FieldDescriptionFormat,
	FieldScaleValues,
	FieldScaleConfiguration,
	FieldRuleType,
	FieldRuleOutcome,
	FieldRuleConfig,
	FieldRelatedIDNumbers,
	FieldExportID,
	FieldIsFramework,
	FieldTaxonomy,
}

// RequiredHeaders returns the field names of the import schema in default
// column order.
func RequiredHeaders() []string {
	out := make([]string, len(defaultOrder))
	for i, f := range defaultOrder {
		out[i] = string(f)
	}
	return out
}

// ExportHeaders returns the export schema. It matches the import schema minus
// the relatedidnumbers column unless includeRelated is set.
func ExportHeaders(includeRelated bool) []string {
	out := make([]string, 0, len(defaultOrder))
	for _, f := range defaultOrder {
		if f == FieldRelatedIDNumbers && !includeRelated {
			continue
		}
		out = append(out, string(f))
	}
	return out
}

// Rule outcomes understood by the competency rule strategies.
const (
	OutcomeNone      = 0
	OutcomeEvidence  = 1
	OutcomeRecommend = 2
	OutcomeComplete  = 3
)

// nullConfig is how an absent rule configuration is written to CSV.
const nullConfig = "null"

// FrameworkRecord is the framework row of an import.
type FrameworkRecord struct {
	IDNumber           string
	ShortName          string
	Description        string
	DescriptionFormat  int
	ScaleValues        string
	ScaleConfiguration string
	Taxonomies         []string

	// Children holds arena indexes of the top-level competencies.
	Children []int
}

// CompetencyRecord is one competency row of an import.
type CompetencyRecord struct {
	// Row is the zero-based data row the record was read from.
	Row int

	ParentIDNumber     string
	IDNumber           string
	ShortName          string
	Description        string
	DescriptionFormat  int
	ScaleValues        string
	ScaleConfiguration string
	RuleType           string
	RuleOutcome        int
	RuleConfig         *string // nil when the source said "null" or nothing
	RelatedIDNumbers   []string
	ExportID           string

	// Children holds arena indexes, in source order.
	Children []int
}

// Framework is a stored competency framework.
type Framework struct {
	ID                 int64
	IDNumber           string
	ShortName          string
	Description        string
	DescriptionFormat  int
	ScaleID            int64
	ScaleConfiguration string
	Taxonomies         []string
	ContextID          int64
	CreatedAt          time.Time
}

// Competency is a stored competency.
type Competency struct {
	ID                 int64
	FrameworkID        int64
	ParentID           int64 // 0 for top-level competencies
	IDNumber           string
	ShortName          string
	Description        string
	DescriptionFormat  int
	ScaleID            int64 // 0 when the competency inherits the framework scale
	ScaleConfiguration string
	RuleType           string
	RuleOutcome        int
	RuleConfig         *string
	SortOrder          int
}

// Rule is the rule portion of a competency, applied after creation.
type Rule struct {
	Type    string
	Outcome int
	Config  *string
}

// Relation is one symmetric related-competency link.
type Relation struct {
	CompetencyID int64
	RelatedID    int64
}

// Scale is a global rating scale. Values holds the comma separated items as
// stored.
type Scale struct {
	ID          int64
	CourseID    int64
	UserID      int64
	Name        string
	Values      string
	Description string
}

// Compact returns the scale items trimmed and joined by commas. Scales are
// matched on this form.
func (s Scale) Compact() string {
	if s.Values == "" {
		return ""
	}
	items := strings.Split(s.Values, ",")
	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}
	return strings.Join(items, ",")
}

// CompetencyFilter selects competencies for ListCompetencies.
type CompetencyFilter struct {
	FrameworkID int64
}

// ScaleStore is the subset of Store used to resolve scales.
type ScaleStore interface {
	ListScales(ctx context.Context) ([]Scale, error)
	ReadScale(ctx context.Context, id int64) (*Scale, error)
	CreateScale(ctx context.Context, s Scale) (int64, error)
}

// Store persists frameworks, competencies, scales, and relations. Each call
// is expected to be transactional on its own; an import spanning many calls
// is not atomic.
type Store interface {
	ScaleStore

	CreateFramework(ctx context.Context, fw Framework) (*Framework, error)
	ReadFramework(ctx context.Context, id int64) (*Framework, error)

	CreateCompetency(ctx context.Context, c Competency) (*Competency, error)
	UpdateCompetencyRule(ctx context.Context, id int64, rule Rule) error
	// ListCompetencies returns competencies in a stable store order.
	ListCompetencies(ctx context.Context, filter CompetencyFilter) ([]Competency, error)

	AddRelatedCompetency(ctx context.Context, a, b int64) error
	ListRelations(ctx context.Context, frameworkID int64) ([]Relation, error)
}

// ExportIDMapping maps export ids from the source file to created competencies.
// It lives for a single import.
type ExportIDMapping map[string]*Competency

// Lookup returns the competency created for an export id.
func (m ExportIDMapping) Lookup(exportID string) (*Competency, bool) {
	c, ok := m[exportID]
	return c, ok
}

// Result summarizes one import.
type Result struct {
	Framework *Framework

	Created          int
	Skipped          int
	Orphaned         int
	Duplicates       int
	ScalesCreated    int
	ScalesReused     int
	RulesApplied     int
	RulesSkipped     int
	RelationsLinked  int
	RelationsSkipped int

	Warnings []Warning
	Duration time.Duration
}
