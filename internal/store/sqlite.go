package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/lpcsv/internal/competency"
)

// SQLite stores frameworks in a SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path with foreign
// keys enforced. Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and writes serialized.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Migrate creates missing tables.
func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return nil
}

func (s *SQLite) ListScales(ctx context.Context) ([]competency.Scale, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, courseid, userid, name, scale, description FROM scales ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []competency.Scale
	for rows.Next() {
		var sc competency.Scale
		if err := rows.Scan(&sc.ID, &sc.CourseID, &sc.UserID, &sc.Name, &sc.Values, &sc.Description); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *SQLite) ReadScale(ctx context.Context, id int64) (*competency.Scale, error) {
	var sc competency.Scale
	err := s.db.QueryRowContext(ctx,
		`SELECT id, courseid, userid, name, scale, description FROM scales WHERE id = ?`, id,
	).Scan(&sc.ID, &sc.CourseID, &sc.UserID, &sc.Name, &sc.Values, &sc.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", competency.ErrUnknownScale, id)
	}
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *SQLite) CreateScale(ctx context.Context, sc competency.Scale) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scales (courseid, userid, name, scale, description) VALUES (?, ?, ?, ?, ?)`,
		sc.CourseID, sc.UserID, sc.Name, sc.Values, sc.Description,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLite) CreateFramework(ctx context.Context, fw competency.Framework) (*competency.Framework, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO competency_frameworks
		   (idnumber, shortname, description, descriptionformat, scaleid, scaleconfiguration, taxonomies, contextid)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		fw.IDNumber, fw.ShortName, fw.Description, fw.DescriptionFormat,
		nullID(fw.ScaleID), fw.ScaleConfiguration, strings.Join(fw.Taxonomies, ","), fw.ContextID,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.ReadFramework(ctx, id)
}

func (s *SQLite) ReadFramework(ctx context.Context, id int64) (*competency.Framework, error) {
	var fw competency.Framework
	var scaleID sql.NullInt64
	var taxonomies, createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, idnumber, shortname, description, descriptionformat, scaleid,
		        scaleconfiguration, taxonomies, contextid, created_at
		 FROM competency_frameworks WHERE id = ?`, id,
	).Scan(&fw.ID, &fw.IDNumber, &fw.ShortName, &fw.Description, &fw.DescriptionFormat,
		&scaleID, &fw.ScaleConfiguration, &taxonomies, &fw.ContextID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", competency.ErrUnknownFramework, id)
	}
	if err != nil {
		return nil, err
	}
	fw.ScaleID = scaleID.Int64
	fw.CreatedAt = parseSQLiteTime(createdAt)
	if taxonomies != "" {
		fw.Taxonomies = strings.Split(taxonomies, ",")
	}
	return &fw, nil
}

func (s *SQLite) CreateCompetency(ctx context.Context, c competency.Competency) (*competency.Competency, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO competencies
		   (frameworkid, parentid, idnumber, shortname, description, descriptionformat,
		    scaleid, scaleconfiguration, ruletype, ruleoutcome, ruleconfig, sortorder)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.FrameworkID, nullID(c.ParentID), c.IDNumber, c.ShortName, c.Description, c.DescriptionFormat,
		nullID(c.ScaleID), c.ScaleConfiguration, c.RuleType, c.RuleOutcome, c.RuleConfig, c.SortOrder,
	)
	if err != nil {
		return nil, err
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLite) UpdateCompetencyRule(ctx context.Context, id int64, rule competency.Rule) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE competencies SET ruletype = ?, ruleoutcome = ?, ruleconfig = ? WHERE id = ?`,
		rule.Type, rule.Outcome, rule.Config, id,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("competency %d not found", id)
	}
	return nil
}

func (s *SQLite) ListCompetencies(ctx context.Context, filter competency.CompetencyFilter) ([]competency.Competency, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, frameworkid, parentid, idnumber, shortname, description, descriptionformat,
		        scaleid, scaleconfiguration, ruletype, ruleoutcome, ruleconfig, sortorder
		 FROM competencies
		 WHERE ? = 0 OR frameworkid = ?
		 ORDER BY id`, filter.FrameworkID, filter.FrameworkID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []competency.Competency
	for rows.Next() {
		var c competency.Competency
		var parentID, scaleID sql.NullInt64
		var ruleConfig sql.NullString
		if err := rows.Scan(&c.ID, &c.FrameworkID, &parentID, &c.IDNumber, &c.ShortName, &c.Description,
			&c.DescriptionFormat, &scaleID, &c.ScaleConfiguration, &c.RuleType, &c.RuleOutcome,
			&ruleConfig, &c.SortOrder); err != nil {
			return nil, err
		}
		c.ParentID, c.ScaleID = parentID.Int64, scaleID.Int64
		if ruleConfig.Valid {
			cfg := ruleConfig.String
			c.RuleConfig = &cfg
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLite) AddRelatedCompetency(ctx context.Context, a, b int64) error {
	if a == b {
		return fmt.Errorf("competency %d cannot be related to itself", a)
	}
	key := relationKey(a, b)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO related_competencies (competencyid, relatedcompetencyid) VALUES (?, ?)`,
		key.CompetencyID, key.RelatedID,
	)
	return err
}

func (s *SQLite) ListRelations(ctx context.Context, frameworkID int64) ([]competency.Relation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.competencyid, r.relatedcompetencyid
		 FROM related_competencies r
		 JOIN competencies c ON c.id = r.competencyid
		 WHERE c.frameworkid = ?
		 ORDER BY r.competencyid, r.relatedcompetencyid`, frameworkID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []competency.Relation
	for rows.Next() {
		var r competency.Relation
		if err := rows.Scan(&r.CompetencyID, &r.RelatedID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// parseSQLiteTime accepts CURRENT_TIMESTAMP text and the RFC 3339 form the
// driver produces for TIMESTAMP columns.
func parseSQLiteTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

var _ competency.Store = (*SQLite)(nil)
