package core

import (
	"context"
	"sync"
	"time"

	"github.com/JonMunkholm/lpcsv/internal/competency"
)

// defaultHistorySize is how many finished imports the service remembers.
const defaultHistorySize = 100

// ImportRecord describes one finished or rejected import.
type ImportRecord struct {
	ImportID    string    `json:"import_id"`
	Result      string    `json:"result"`
	Error       string    `json:"error,omitempty"`
	FrameworkID int64     `json:"framework_id,omitempty"`
	IDNumber    string    `json:"idnumber,omitempty"`
	Created     int       `json:"created"`
	Warnings    int       `json:"warnings"`
	Actor       int64     `json:"actor,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	DurationMs  int64     `json:"duration_ms"`
}

func newImportRecord(ctx context.Context, importID string, start time.Time, res *competency.Result, err error) ImportRecord {
	rec := ImportRecord{
		ImportID:   importID,
		Result:     resultLabel(err),
		Actor:      competency.ActorFromContext(ctx),
		IPAddress:  GetIPAddressFromContext(ctx),
		UserAgent:  GetUserAgentFromContext(ctx),
		StartedAt:  start.UTC(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if res != nil && res.Framework != nil {
		rec.FrameworkID = res.Framework.ID
		rec.IDNumber = res.Framework.IDNumber
		rec.Created = res.Created
		rec.Warnings = len(res.Warnings)
	}
	return rec
}

// importHistory is a fixed-size ring of import records.
type importHistory struct {
	mu      sync.Mutex
	records []ImportRecord
	next    int
	full    bool
}

func newImportHistory(size int) *importHistory {
	if size <= 0 {
		size = defaultHistorySize
	}
	return &importHistory{records: make([]ImportRecord, size)}
}

func (h *importHistory) add(rec ImportRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records[h.next] = rec
	h.next = (h.next + 1) % len(h.records)
	if h.next == 0 {
		h.full = true
	}
}

// list returns up to limit records, newest first. limit <= 0 returns all.
func (h *importHistory) list(limit int) []ImportRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.next
	if h.full {
		n = len(h.records)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]ImportRecord, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (h.next - i + len(h.records)) % len(h.records)
		out = append(out, h.records[idx])
	}
	return out
}

// History returns recent imports, newest first.
func (s *Service) History(limit int) []ImportRecord {
	return s.history.list(limit)
}
