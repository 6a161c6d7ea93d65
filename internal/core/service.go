package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/lpcsv/internal/competency"
	"github.com/JonMunkholm/lpcsv/internal/config"
	"github.com/JonMunkholm/lpcsv/internal/logging"
)

var (
	// ErrSessionNotFound is returned for an unknown, expired, or already
	// confirmed import id.
	ErrSessionNotFound = errors.New("import session not found")

	ErrFileTooLarge = errors.New("file too large")
	ErrNoFile       = errors.New("no file provided")
)

// Service runs framework imports and exports against a Store.
type Service struct {
	store   competency.Store
	cfg     config.ImportConfig
	tree    competency.TreeOptions
	rules   *competency.RuleRegistry
	limiter *ImportLimiter
	history *importHistory

	mu       sync.Mutex
	sessions map[string]*session
}

// session is a parsed upload waiting for its column mapping.
type session struct {
	id      string
	headers []string
	rows    [][]string
	expires time.Time
	timer   *time.Timer
}

// Preparation describes a prepared import.
type Preparation struct {
	ImportID  string         `json:"import_id"`
	Headers   []string       `json:"headers"`
	Mapping   map[string]int `json:"mapping"`
	Rows      int            `json:"rows"`
	ExpiresAt time.Time      `json:"expires_at"`
	Preview   *Preview       `json:"preview"`
}

// NewService creates a Service using the import settings of cfg.
func NewService(store competency.Store, cfg *config.Config) (*Service, error) {
	if store == nil {
		return nil, errors.New("core: nil store")
	}
	if cfg == nil {
		return nil, errors.New("core: nil config")
	}
	if _, err := competency.ParseDuplicatePolicy(cfg.Import.FrameworkPolicy); err != nil {
		return nil, fmt.Errorf("framework policy: %w", err)
	}
	if _, err := competency.ParseDuplicatePolicy(cfg.Import.DuplicatePolicy); err != nil {
		return nil, fmt.Errorf("duplicate policy: %w", err)
	}

	return &Service{
		store:    store,
		cfg:      cfg.Import,
		tree:     cfg.Import.TreeOptions(),
		rules:    competency.DefaultRules(),
		limiter:  NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		history:  newImportHistory(cfg.Import.HistorySize),
		sessions: make(map[string]*session),
	}, nil
}

// Store returns the store the service writes to.
func (s *Service) Store() competency.Store {
	return s.store
}

// ReadOptions fills unset fields of opts with the configured defaults.
func (s *Service) ReadOptions(opts competency.ReadOptions) competency.ReadOptions {
	if opts.Delimiter == "" {
		opts.Delimiter = s.cfg.Delimiter
	}
	if opts.Encoding == "" {
		opts.Encoding = s.cfg.Encoding
	}
	return opts
}

// readUpload tokenizes r, enforcing the configured size limit.
func (s *Service) readUpload(r io.Reader, opts competency.ReadOptions) ([]string, [][]string, error) {
	if r == nil {
		return nil, nil, ErrNoFile
	}
	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxFileSize+1))
	if err != nil {
		return nil, nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxFileSize {
		return nil, nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.cfg.MaxFileSize)
	}
	return competency.ReadCSV(bytes.NewReader(data), s.ReadOptions(opts))
}

// PrepareImport parses an upload and parks it until ConfirmImport or
// CancelImport is called, or the session TTL passes. The returned mapping is
// derived from the header names.
func (s *Service) PrepareImport(ctx context.Context, r io.Reader, opts competency.ReadOptions) (*Preparation, error) {
	headers, rows, err := s.readUpload(r, opts)
	if err != nil {
		return nil, err
	}

	sess := &session{
		id:      uuid.NewString(),
		headers: headers,
		rows:    rows,
		expires: time.Now().Add(s.cfg.SessionTTL),
	}
	id := sess.id

	s.mu.Lock()
	s.sessions[id] = sess
	sess.timer = time.AfterFunc(s.cfg.SessionTTL, func() {
		if s.take(id) != nil {
			slog.Info("import session expired", "import_id", id)
		}
	})
	activeSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	logging.FromContext(ctx).Info("import prepared",
		"import_id", id,
		"rows", len(rows),
		"ip", GetIPAddressFromContext(ctx),
	)

	mapping := competency.MappingFromHeaders(headers)
	return &Preparation{
		ImportID:  id,
		Headers:   headers,
		Mapping:   mapping.ByName(),
		Rows:      len(rows),
		ExpiresAt: sess.expires,
		Preview:   s.analyze(headers, rows, mapping),
	}, nil
}

// take removes a session and stops its expiry timer. Returns nil when id is
// unknown.
func (s *Service) take(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	delete(s.sessions, id)
	activeSessions.Set(float64(len(s.sessions)))
	sess.timer.Stop()
	return sess
}

// ConfirmImport materializes a prepared import. A nil mapping uses the one
// derived from the header names. The session is consumed whatever the
// outcome.
func (s *Service) ConfirmImport(ctx context.Context, importID string, mapping competency.Mapping) (*competency.Result, error) {
	sess := s.take(importID)
	if sess == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, importID)
	}
	if mapping == nil {
		mapping = competency.MappingFromHeaders(sess.headers)
	}
	return s.run(ctx, sess.id, sess.headers, sess.rows, mapping)
}

// CancelImport discards a prepared import.
func (s *Service) CancelImport(ctx context.Context, importID string) error {
	if s.take(importID) == nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, importID)
	}
	logging.FromContext(ctx).Info("import cancelled", "import_id", importID)
	return nil
}

// Import reads and materializes a file in one step. A nil mapping is derived
// from the header names.
func (s *Service) Import(ctx context.Context, r io.Reader, opts competency.ReadOptions, mapping competency.Mapping) (*competency.Result, error) {
	headers, rows, err := s.readUpload(r, opts)
	if err != nil {
		recordImport(nil, err, 0)
		return nil, err
	}
	if mapping == nil {
		mapping = competency.MappingFromHeaders(headers)
	}
	return s.run(ctx, uuid.NewString(), headers, rows, mapping)
}

func (s *Service) run(ctx context.Context, importID string, headers []string, rows [][]string, mapping competency.Mapping) (*competency.Result, error) {
	start := time.Now()
	if err := s.limiter.Acquire(ctx); err != nil {
		recordImport(nil, err, 0)
		s.history.add(newImportRecord(ctx, importID, start, nil, err))
		return nil, err
	}
	defer s.limiter.Release()

	ctx = logging.WithImportID(detachedContext(ctx), importID)
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	log := logging.FromContext(ctx)
	im := competency.NewImporter(s.store, headers, rows, competency.ImportOptions{
		Mapping:   mapping,
		Tree:      s.tree,
		ContextID: s.cfg.ContextID,
		Rules:     s.rules,
		Logger:    log,
	})
	res, err := im.Import(ctx)
	recordImport(res, err, time.Since(start))
	s.history.add(newImportRecord(ctx, importID, start, res, err))
	if err != nil {
		msg := MapError(err)
		log.Error("import failed", "error", err, "code", msg.Code)
		return res, err
	}
	return res, nil
}

// Export writes a framework as CSV to w.
func (s *Service) Export(ctx context.Context, frameworkID int64, w io.Writer, opts competency.ExportOptions) (*competency.Framework, error) {
	fw, err := competency.NewExporter(s.store).Export(ctx, frameworkID, w, opts)
	recordExport(err)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("framework exported",
		"framework_id", fw.ID,
		"idnumber", fw.IDNumber,
		"related", opts.IncludeRelated,
	)
	return fw, nil
}

// SessionCount returns the number of prepared imports.
func (s *Service) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// LimiterStatus reports import slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Close drops every prepared import.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.timer.Stop()
		delete(s.sessions, id)
	}
	activeSessions.Set(0)
}
