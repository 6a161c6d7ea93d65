package competency_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/lpcsv/internal/competency"
)

func TestRuleRegistry_Lookup(t *testing.T) {
	rules := competency.DefaultRules()

	s, ok := rules.Lookup(`\core_competency\competency_rule_all`)
	require.True(t, ok)
	assert.Equal(t, competency.RuleAll, s.Name())

	_, ok = rules.Lookup(`core_competency\competency_rule_points`)
	assert.True(t, ok)

	_, ok = rules.Lookup(`core_competency\competency_rule_magic`)
	assert.False(t, ok)

	assert.Equal(t, []string{competency.RuleAll, competency.RulePoints}, rules.Names())
}

func TestRuleRegistry_DuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		competency.NewRuleRegistry(competency.AllRule{}, competency.AllRule{})
	})
}

func TestAllRule_PassesConfigThrough(t *testing.T) {
	cfg := `{"anything":true}`
	out, err := competency.AllRule{}.MigrateConfig(&cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, &cfg, out)

	out, err = competency.AllRule{}.MigrateConfig(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestPointsRule_MigratesIDs(t *testing.T) {
	cfg := `{"base":{"points":3},"competencies":[{"id":11,"points":2,"required":true},{"id":"12","points":1,"required":false}]}`
	mappings := competency.ExportIDMapping{
		"11": {ID: 101},
		"12": {ID: 102},
	}

	out, err := competency.PointsRule{}.MigrateConfig(&cfg, mappings)
	require.NoError(t, err)
	require.NotNil(t, out)

	var got struct {
		Base struct {
			Points int `json:"points"`
		} `json:"base"`
		Competencies []struct {
			ID       int64 `json:"id"`
			Points   int   `json:"points"`
			Required bool  `json:"required"`
		} `json:"competencies"`
	}
	require.NoError(t, json.Unmarshal([]byte(*out), &got))
	assert.Equal(t, 3, got.Base.Points)
	require.Len(t, got.Competencies, 2)
	assert.Equal(t, int64(101), got.Competencies[0].ID)
	assert.True(t, got.Competencies[0].Required)
	assert.Equal(t, int64(102), got.Competencies[1].ID)
}

func TestPointsRule_UnknownExportID(t *testing.T) {
	cfg := `{"base":{"points":1},"competencies":[{"id":99,"points":1,"required":false}]}`
	_, err := competency.PointsRule{}.MigrateConfig(&cfg, competency.ExportIDMapping{})
	require.ErrorIs(t, err, competency.ErrRuleMigration)
	assert.Contains(t, err.Error(), "99")
}

func TestPointsRule_BadConfig(t *testing.T) {
	cfg := `[1,2,3]`
	_, err := competency.PointsRule{}.MigrateConfig(&cfg, nil)
	require.ErrorIs(t, err, competency.ErrRuleMigration)
}

func TestPointsRule_NilConfig(t *testing.T) {
	_, err := competency.PointsRule{}.MigrateConfig(nil, competency.ExportIDMapping{})
	require.ErrorIs(t, err, competency.ErrRuleMigration)
}
