package competency

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// DefaultContextID is the context frameworks are created in unless
// ImportOptions says otherwise.
const DefaultContextID int64 = 1

// ImportOptions configures an Importer.
type ImportOptions struct {
	// Mapping assigns columns to fields. Nil means the positional default.
	Mapping   Mapping
	Tree      TreeOptions
	ContextID int64
	Rules     *RuleRegistry
	Logger    *slog.Logger
}

// Importer materializes one CSV file into a Store. Construction parses and
// links the file; a failure there leaves the importer in a failed state that
// Err reports and Import returns.
type Importer struct {
	store   Store
	opts    ImportOptions
	log     *slog.Logger
	headers []string
	tree    *Tree
	err     error
	closed  bool
}

// NewImporter builds the tree for already tokenized rows.
func NewImporter(store Store, headers []string, rows [][]string, opts ImportOptions) *Importer {
	im := newImporter(store, opts)
	im.headers = headers

	tree, err := BuildTree(opts.Mapping.MapAll(rows), opts.Tree)
	if err != nil {
		im.fail(err)
		return im
	}
	im.tree = tree
	for _, w := range tree.Warnings {
		im.log.Warn("import input adjusted", "kind", w.Kind, "row", w.Row+1, "idnumber", w.IDNumber, "detail", w.Message)
	}
	return im
}

// NewImporterFromCSV reads r and builds the tree.
func NewImporterFromCSV(store Store, r io.Reader, read ReadOptions, opts ImportOptions) *Importer {
	headers, rows, err := ReadCSV(r, read)
	if err != nil {
		im := newImporter(store, opts)
		im.fail(err)
		return im
	}
	return NewImporter(store, headers, rows, opts)
}

func newImporter(store Store, opts ImportOptions) *Importer {
	if opts.Rules == nil {
		opts.Rules = DefaultRules()
	}
	if opts.ContextID == 0 {
		opts.ContextID = DefaultContextID
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Importer{store: store, opts: opts, log: log}
}

func (im *Importer) fail(err error) {
	im.err = err
	im.log.Error("import file rejected", "error", err)
}

// Err returns the construction error, if any.
func (im *Importer) Err() error {
	return im.err
}

// FoundHeaders returns the header row of the file.
func (im *Importer) FoundHeaders() []string {
	return im.headers
}

// Tree returns the linked tree, or nil if construction failed or the importer
// was closed.
func (im *Importer) Tree() *Tree {
	return im.tree
}

// Close releases the parsed file. Import calls it on every path.
func (im *Importer) Close() {
	im.closed = true
	im.tree = nil
	im.headers = nil
}

// Import writes the framework and its competencies to the store. Store
// failures abort the import; anything already written stays written.
func (im *Importer) Import(ctx context.Context) (*Result, error) {
	if im.err != nil {
		return nil, im.err
	}
	if im.closed {
		return nil, ErrImporterClosed
	}
	defer im.Close()

	start := time.Now()
	m := &materializer{
		store:    im.store,
		tree:     im.tree,
		scales:   NewScaleResolver(im.store),
		rules:    im.opts.Rules,
		log:      im.log,
		created:  make([]*Competency, len(im.tree.Nodes)),
		mappings: make(ExportIDMapping),
		result: &Result{
			Orphaned:   im.tree.Orphans,
			Duplicates: im.tree.Duplicates,
			Warnings:   im.tree.Warnings,
		},
	}

	if err := m.createFramework(ctx, im.opts.ContextID); err != nil {
		return nil, err
	}
	if err := m.createCompetencies(ctx, m.tree.Framework.Children, 0); err != nil {
		return m.result, err
	}
	if err := m.applyRules(ctx); err != nil {
		return m.result, err
	}
	if err := m.linkRelated(ctx); err != nil {
		return m.result, err
	}

	m.result.ScalesCreated, m.result.ScalesReused = m.scales.Counts()
	m.result.Duration = time.Since(start)
	im.log.Info("framework imported",
		"framework_id", m.result.Framework.ID,
		"idnumber", m.result.Framework.IDNumber,
		"created", m.result.Created,
		"skipped", m.result.Skipped,
		"orphaned", m.result.Orphaned,
		"rules", m.result.RulesApplied,
		"relations", m.result.RelationsLinked,
		"duration", m.result.Duration,
	)
	return m.result, nil
}

type materializer struct {
	store  Store
	tree   *Tree
	scales *ScaleResolver
	rules  *RuleRegistry
	log    *slog.Logger

	framework *Framework
	created   []*Competency // parallel to tree.Nodes
	mappings  ExportIDMapping
	result    *Result
}

func (m *materializer) createFramework(ctx context.Context, contextID int64) error {
	rec := m.tree.Framework
	payload := Framework{
		IDNumber:          rec.IDNumber,
		ShortName:         rec.ShortName,
		Description:       rec.Description,
		DescriptionFormat: rec.DescriptionFormat,
		Taxonomies:        rec.Taxonomies,
		ContextID:         contextID,
	}
	if rec.ScaleValues != "" {
		id, cfg, err := m.resolveScale(ctx, rec.ScaleValues, rec.ScaleConfiguration, rec.ShortName)
		if err != nil {
			return fmt.Errorf("framework %q: %w", rec.IDNumber, err)
		}
		payload.ScaleID, payload.ScaleConfiguration = id, cfg
	}

	fw, err := m.store.CreateFramework(ctx, payload)
	if err != nil {
		return fmt.Errorf("create framework %q: %w: %w", rec.IDNumber, ErrImportFailed, err)
	}
	m.framework = fw
	m.result.Framework = fw
	return nil
}

func (m *materializer) resolveScale(ctx context.Context, values, config, owner string) (int64, string, error) {
	id, err := m.scales.Resolve(ctx, values, owner)
	if err != nil {
		return 0, "", err
	}
	cfg, err := RewriteScaleConfig(id, config)
	if err != nil {
		return 0, "", err
	}
	return id, cfg, nil
}

// createCompetencies creates children in order, each before its own subtree.
func (m *materializer) createCompetencies(ctx context.Context, children []int, parentID int64) error {
	for order, idx := range children {
		rec := &m.tree.Nodes[idx]
		if rec.IDNumber == "" || rec.ShortName == "" {
			m.result.Skipped++
			m.log.Debug("competency skipped", "row", rec.Row+1, "idnumber", rec.IDNumber, "reason", "empty idnumber or shortname")
			continue
		}

		payload := Competency{
			FrameworkID:       m.framework.ID,
			ParentID:          parentID,
			IDNumber:          rec.IDNumber,
			ShortName:         rec.ShortName,
			Description:       rec.Description,
			DescriptionFormat: rec.DescriptionFormat,
			SortOrder:         order,
		}
		if rec.ScaleValues != "" {
			id, cfg, err := m.resolveScale(ctx, rec.ScaleValues, rec.ScaleConfiguration, rec.ShortName)
			if err != nil {
				return fmt.Errorf("competency %q (row %d): %w", rec.IDNumber, rec.Row+1, err)
			}
			payload.ScaleID, payload.ScaleConfiguration = id, cfg
		}

		c, err := m.store.CreateCompetency(ctx, payload)
		if err != nil {
			return fmt.Errorf("create competency %q (row %d): %w: %w", rec.IDNumber, rec.Row+1, ErrImportFailed, err)
		}
		m.created[idx] = c
		m.result.Created++
		if rec.ExportID != "" {
			m.mappings[rec.ExportID] = c
		}

		if err := m.createCompetencies(ctx, rec.Children, c.ID); err != nil {
			return err
		}
	}
	return nil
}

// eachCreated visits created nodes in preorder.
func (m *materializer) eachCreated(fn func(idx int, c *Competency) error) error {
	var err error
	m.tree.Walk(func(idx, _ int) bool {
		if err != nil || m.created[idx] == nil {
			return false
		}
		err = fn(idx, m.created[idx])
		return err == nil
	})
	return err
}

func (m *materializer) applyRules(ctx context.Context) error {
	return m.eachCreated(func(idx int, c *Competency) error {
		rec := &m.tree.Nodes[idx]
		if rec.RuleType == "" {
			return nil
		}
		strategy, ok := m.rules.Lookup(rec.RuleType)
		if !ok {
			m.result.RulesSkipped++
			m.log.Debug("rule skipped", "idnumber", rec.IDNumber, "ruletype", rec.RuleType, "reason", "unknown rule type")
			return nil
		}

		cfg, err := strategy.MigrateConfig(rec.RuleConfig, m.mappings)
		if err != nil {
			return fmt.Errorf("competency %q: %w", rec.IDNumber, err)
		}
		rule := Rule{Type: strategy.Name(), Outcome: rec.RuleOutcome, Config: cfg}
		if err := m.store.UpdateCompetencyRule(ctx, c.ID, rule); err != nil {
			return fmt.Errorf("set rule on %q: %w: %w", rec.IDNumber, ErrImportFailed, err)
		}
		c.RuleType, c.RuleOutcome, c.RuleConfig = rule.Type, rule.Outcome, rule.Config
		m.result.RulesApplied++
		return nil
	})
}

func (m *materializer) linkRelated(ctx context.Context) error {
	return m.eachCreated(func(idx int, c *Competency) error {
		rec := &m.tree.Nodes[idx]
		for _, ref := range rec.RelatedIDNumbers {
			other, ok := m.tree.Lookup(ref)
			if !ok || other == idx || m.created[other] == nil {
				m.result.RelationsSkipped++
				m.log.Debug("relation skipped", "idnumber", rec.IDNumber, "related", ref)
				continue
			}
			if err := m.store.AddRelatedCompetency(ctx, c.ID, m.created[other].ID); err != nil {
				return fmt.Errorf("relate %q to %q: %w: %w", rec.IDNumber, ref, ErrImportFailed, err)
			}
			m.result.RelationsLinked++
		}
		return nil
	})
}
