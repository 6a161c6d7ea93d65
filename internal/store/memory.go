package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/lpcsv/internal/competency"
)

// Memory is an in-process store used for tests and dry runs.
type Memory struct {
	mu sync.RWMutex

	nextID       int64
	frameworks   map[int64]competency.Framework
	competencies map[int64]competency.Competency
	order        []int64 // competency ids in creation order
	scales       []competency.Scale
	relations    map[competency.Relation]bool
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		frameworks:   make(map[int64]competency.Framework),
		competencies: make(map[int64]competency.Competency),
		relations:    make(map[competency.Relation]bool),
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

// SeedScale adds a global scale and returns its id.
func (m *Memory) SeedScale(name, values string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := competency.Scale{ID: m.id(), Name: name, Values: values}
	m.scales = append(m.scales, s)
	return s.ID
}

func (m *Memory) ListScales(ctx context.Context) ([]competency.Scale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]competency.Scale, len(m.scales))
	copy(out, m.scales)
	return out, nil
}

func (m *Memory) ReadScale(ctx context.Context, id int64) (*competency.Scale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.scales {
		if s.ID == id {
			s := s
			return &s, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", competency.ErrUnknownScale, id)
}

func (m *Memory) CreateScale(ctx context.Context, s competency.Scale) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = m.id()
	m.scales = append(m.scales, s)
	return s.ID, nil
}

func (m *Memory) CreateFramework(ctx context.Context, fw competency.Framework) (*competency.Framework, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.frameworks {
		if existing.IDNumber == fw.IDNumber {
			return nil, fmt.Errorf("framework idnumber %q already exists", fw.IDNumber)
		}
	}
	fw.ID = m.id()
	fw.CreatedAt = time.Now()
	fw.Taxonomies = append([]string(nil), fw.Taxonomies...)
	m.frameworks[fw.ID] = fw
	return &fw, nil
}

func (m *Memory) ReadFramework(ctx context.Context, id int64) (*competency.Framework, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fw, ok := m.frameworks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", competency.ErrUnknownFramework, id)
	}
	return &fw, nil
}

func (m *Memory) CreateCompetency(ctx context.Context, c competency.Competency) (*competency.Competency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.frameworks[c.FrameworkID]; !ok {
		return nil, fmt.Errorf("%w: %d", competency.ErrUnknownFramework, c.FrameworkID)
	}
	if c.ParentID != 0 {
		if _, ok := m.competencies[c.ParentID]; !ok {
			return nil, fmt.Errorf("parent competency %d not found", c.ParentID)
		}
	}
	for _, existing := range m.competencies {
		if existing.FrameworkID == c.FrameworkID && existing.IDNumber == c.IDNumber {
			return nil, fmt.Errorf("competency idnumber %q already exists in framework %d", c.IDNumber, c.FrameworkID)
		}
	}
	c.ID = m.id()
	m.competencies[c.ID] = c
	m.order = append(m.order, c.ID)
	return &c, nil
}

func (m *Memory) UpdateCompetencyRule(ctx context.Context, id int64, rule competency.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.competencies[id]
	if !ok {
		return fmt.Errorf("competency %d not found", id)
	}
	c.RuleType, c.RuleOutcome, c.RuleConfig = rule.Type, rule.Outcome, rule.Config
	m.competencies[id] = c
	return nil
}

// ListCompetencies returns competencies in creation order.
func (m *Memory) ListCompetencies(ctx context.Context, filter competency.CompetencyFilter) ([]competency.Competency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []competency.Competency
	for _, id := range m.order {
		c := m.competencies[id]
		if filter.FrameworkID != 0 && c.FrameworkID != filter.FrameworkID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// AddRelatedCompetency links a and b. Linking an existing pair is a no-op.
func (m *Memory) AddRelatedCompetency(ctx context.Context, a, b int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a == b {
		return fmt.Errorf("competency %d cannot be related to itself", a)
	}
	for _, id := range []int64{a, b} {
		if _, ok := m.competencies[id]; !ok {
			return fmt.Errorf("competency %d not found", id)
		}
	}
	m.relations[relationKey(a, b)] = true
	return nil
}

func (m *Memory) ListRelations(ctx context.Context, frameworkID int64) ([]competency.Relation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []competency.Relation
	for r := range m.relations {
		if m.competencies[r.CompetencyID].FrameworkID == frameworkID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompetencyID != out[j].CompetencyID {
			return out[i].CompetencyID < out[j].CompetencyID
		}
		return out[i].RelatedID < out[j].RelatedID
	})
	return out, nil
}

// relationKey orders a pair so each link is stored once.
func relationKey(a, b int64) competency.Relation {
	if a > b {
		a, b = b, a
	}
	return competency.Relation{CompetencyID: a, RelatedID: b}
}

var _ competency.Store = (*Memory)(nil)
