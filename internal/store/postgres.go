package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/lpcsv/internal/competency"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn, and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres stores frameworks in PostgreSQL.
type Postgres struct {
	db DBTX
}

// NewPostgres returns a store using db.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates missing tables.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate postgres schema: %w", err)
	}
	return nil
}

func (p *Postgres) ListScales(ctx context.Context) ([]competency.Scale, error) {
	rows, err := p.db.Query(ctx, `SELECT id, courseid, userid, name, scale, description FROM scales ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (competency.Scale, error) {
		var s competency.Scale
		err := row.Scan(&s.ID, &s.CourseID, &s.UserID, &s.Name, &s.Values, &s.Description)
		return s, err
	})
}

func (p *Postgres) ReadScale(ctx context.Context, id int64) (*competency.Scale, error) {
	var s competency.Scale
	err := p.db.QueryRow(ctx,
		`SELECT id, courseid, userid, name, scale, description FROM scales WHERE id = $1`, id,
	).Scan(&s.ID, &s.CourseID, &s.UserID, &s.Name, &s.Values, &s.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", competency.ErrUnknownScale, id)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *Postgres) CreateScale(ctx context.Context, s competency.Scale) (int64, error) {
	var id int64
	err := p.db.QueryRow(ctx,
		`INSERT INTO scales (courseid, userid, name, scale, description)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		s.CourseID, s.UserID, s.Name, s.Values, s.Description,
	).Scan(&id)
	return id, err
}

func (p *Postgres) CreateFramework(ctx context.Context, fw competency.Framework) (*competency.Framework, error) {
	taxonomies := fw.Taxonomies
	if taxonomies == nil {
		taxonomies = []string{}
	}
	err := p.db.QueryRow(ctx,
		`INSERT INTO competency_frameworks
		   (idnumber, shortname, description, descriptionformat, scaleid, scaleconfiguration, taxonomies, contextid)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		fw.IDNumber, fw.ShortName, fw.Description, fw.DescriptionFormat,
		nullID(fw.ScaleID), fw.ScaleConfiguration, taxonomies, fw.ContextID,
	).Scan(&fw.ID, &fw.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &fw, nil
}

func (p *Postgres) ReadFramework(ctx context.Context, id int64) (*competency.Framework, error) {
	var fw competency.Framework
	var scaleID *int64
	err := p.db.QueryRow(ctx,
		`SELECT id, idnumber, shortname, description, descriptionformat, scaleid,
		        scaleconfiguration, taxonomies, contextid, created_at
		 FROM competency_frameworks WHERE id = $1`, id,
	).Scan(&fw.ID, &fw.IDNumber, &fw.ShortName, &fw.Description, &fw.DescriptionFormat,
		&scaleID, &fw.ScaleConfiguration, &fw.Taxonomies, &fw.ContextID, &fw.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", competency.ErrUnknownFramework, id)
	}
	if err != nil {
		return nil, err
	}
	fw.ScaleID = derefID(scaleID)
	return &fw, nil
}

func (p *Postgres) CreateCompetency(ctx context.Context, c competency.Competency) (*competency.Competency, error) {
	err := p.db.QueryRow(ctx,
		`INSERT INTO competencies
		   (frameworkid, parentid, idnumber, shortname, description, descriptionformat,
		    scaleid, scaleconfiguration, ruletype, ruleoutcome, ruleconfig, sortorder)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		c.FrameworkID, nullID(c.ParentID), c.IDNumber, c.ShortName, c.Description, c.DescriptionFormat,
		nullID(c.ScaleID), c.ScaleConfiguration, c.RuleType, c.RuleOutcome, c.RuleConfig, c.SortOrder,
	).Scan(&c.ID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (p *Postgres) UpdateCompetencyRule(ctx context.Context, id int64, rule competency.Rule) error {
	tag, err := p.db.Exec(ctx,
		`UPDATE competencies SET ruletype = $2, ruleoutcome = $3, ruleconfig = $4 WHERE id = $1`,
		id, rule.Type, rule.Outcome, rule.Config,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("competency %d not found", id)
	}
	return nil
}

func (p *Postgres) ListCompetencies(ctx context.Context, filter competency.CompetencyFilter) ([]competency.Competency, error) {
	rows, err := p.db.Query(ctx,
		`SELECT id, frameworkid, parentid, idnumber, shortname, description, descriptionformat,
		        scaleid, scaleconfiguration, ruletype, ruleoutcome, ruleconfig, sortorder
		 FROM competencies
		 WHERE $1::bigint = 0 OR frameworkid = $1
		 ORDER BY id`, filter.FrameworkID,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (competency.Competency, error) {
		var c competency.Competency
		var parentID, scaleID *int64
		err := row.Scan(&c.ID, &c.FrameworkID, &parentID, &c.IDNumber, &c.ShortName, &c.Description,
			&c.DescriptionFormat, &scaleID, &c.ScaleConfiguration, &c.RuleType, &c.RuleOutcome,
			&c.RuleConfig, &c.SortOrder)
		c.ParentID, c.ScaleID = derefID(parentID), derefID(scaleID)
		return c, err
	})
}

func (p *Postgres) AddRelatedCompetency(ctx context.Context, a, b int64) error {
	if a == b {
		return fmt.Errorf("competency %d cannot be related to itself", a)
	}
	key := relationKey(a, b)
	_, err := p.db.Exec(ctx,
		`INSERT INTO related_competencies (competencyid, relatedcompetencyid)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		key.CompetencyID, key.RelatedID,
	)
	return err
}

func (p *Postgres) ListRelations(ctx context.Context, frameworkID int64) ([]competency.Relation, error) {
	rows, err := p.db.Query(ctx,
		`SELECT r.competencyid, r.relatedcompetencyid
		 FROM related_competencies r
		 JOIN competencies c ON c.id = r.competencyid
		 WHERE c.frameworkid = $1
		 ORDER BY r.competencyid, r.relatedcompetencyid`, frameworkID,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (competency.Relation, error) {
		var r competency.Relation
		err := row.Scan(&r.CompetencyID, &r.RelatedID)
		return r, err
	})
}

// nullID maps the zero id to SQL NULL.
func nullID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

var _ competency.Store = (*Postgres)(nil)
