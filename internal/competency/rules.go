package competency

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Rule strategy names as stored on competencies.
const (
	RuleAll    = `core_competency\competency_rule_all`
	RulePoints = `core_competency\competency_rule_points`
)

// RuleStrategy is a named competency rule. MigrateConfig rewrites a
// configuration taken from another system so that it references the
// competencies created by the current import.
type RuleStrategy interface {
	Name() string
	MigrateConfig(old *string, mappings ExportIDMapping) (*string, error)
}

// RuleRegistry holds the rule strategies an import can apply.
type RuleRegistry struct {
	mu         sync.RWMutex
	strategies map[string]RuleStrategy
}

// NewRuleRegistry returns a registry holding strategies.
// Panics if two strategies share a name.
func NewRuleRegistry(strategies ...RuleStrategy) *RuleRegistry {
	r := &RuleRegistry{strategies: make(map[string]RuleStrategy)}
	for _, s := range strategies {
		r.Register(s)
	}
	return r
}

// DefaultRules returns a registry with the built-in strategies.
func DefaultRules() *RuleRegistry {
	return NewRuleRegistry(AllRule{}, PointsRule{})
}

// Register adds a strategy.
// Panics if a strategy with the same name is already registered.
func (r *RuleRegistry) Register(s RuleStrategy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := normalizeRuleName(s.Name())
	if _, exists := r.strategies[name]; exists {
		panic(fmt.Sprintf("rule strategy already registered: %s", name))
	}
	r.strategies[name] = s
}

// Lookup returns the strategy for a stored rule type. A leading namespace
// separator is ignored.
func (r *RuleRegistry) Lookup(ruleType string) (RuleStrategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[normalizeRuleName(ruleType)]
	return s, ok
}

// Names returns the registered strategy names, sorted.
func (r *RuleRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for n := range r.strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func normalizeRuleName(s string) string {
	return strings.TrimLeft(strings.TrimSpace(s), `\`)
}

// AllRule completes a competency once all children are complete. It has no
// configuration to migrate.
type AllRule struct{}

func (AllRule) Name() string { return RuleAll }

func (AllRule) MigrateConfig(old *string, _ ExportIDMapping) (*string, error) {
	return old, nil
}

// PointsRule completes a competency when enough points are earned from a
// listed set of children. Its configuration names those children by id.
type PointsRule struct{}

var pointsCompetencies = jp.MustParseString("$.competencies[*]")

func (PointsRule) Name() string { return RulePoints }

// MigrateConfig replaces every competencies[].id with the id of the
// competency created for that export id.
func (PointsRule) MigrateConfig(old *string, mappings ExportIDMapping) (*string, error) {
	if old == nil {
		return nil, fmt.Errorf("%w: points rule has no configuration", ErrRuleMigration)
	}
	data, err := oj.ParseString(*old)
	if err != nil {
		return nil, fmt.Errorf("%w: points config: %v", ErrRuleMigration, err)
	}
	if _, ok := data.(map[string]any); !ok {
		return nil, fmt.Errorf("%w: points config is not an object", ErrRuleMigration)
	}

	for _, entry := range pointsCompetencies.Get(data) {
		comp, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: points entry is not an object", ErrRuleMigration)
		}
		key, ok := exportKey(comp["id"])
		if !ok {
			return nil, fmt.Errorf("%w: points entry has no usable id", ErrRuleMigration)
		}
		target, ok := mappings.Lookup(key)
		if !ok {
			return nil, fmt.Errorf("%w: no competency for export id %s", ErrRuleMigration, key)
		}
		comp["id"] = target.ID
	}

	out, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRuleMigration, err)
	}
	s := string(out)
	return &s, nil
}

// exportKey renders a JSON id the way export ids appear in CSV.
func exportKey(v any) (string, bool) {
	switch id := v.(type) {
	case int64:
		return strconv.FormatInt(id, 10), true
	case float64:
		if id != float64(int64(id)) {
			return "", false
		}
		return strconv.FormatInt(int64(id), 10), true
	case string:
		id = strings.TrimSpace(id)
		return id, id != ""
	}
	return "", false
}
