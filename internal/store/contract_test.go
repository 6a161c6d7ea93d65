package store

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/lpcsv/internal/competency"
)

// testStore exercises the behavior every competency.Store must share.
func testStore(t *testing.T, s competency.Store) {
	ctx := context.Background()

	t.Run("scales", func(t *testing.T) {
		id, err := s.CreateScale(ctx, competency.Scale{Name: "Test scale", Values: "A, B", UserID: 3})
		require.NoError(t, err)

		sc, err := s.ReadScale(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "A,B", sc.Compact())
		assert.Equal(t, int64(3), sc.UserID)

		all, err := s.ListScales(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, all)

		_, err = s.ReadScale(ctx, 987654)
		require.ErrorIs(t, err, competency.ErrUnknownScale)
	})

	t.Run("frameworks and competencies", func(t *testing.T) {
		scaleID, err := s.CreateScale(ctx, competency.Scale{Name: "S", Values: "X,Y"})
		require.NoError(t, err)

		fw, err := s.CreateFramework(ctx, competency.Framework{
			IDNumber:           "contract-fw",
			ShortName:          "Contract",
			DescriptionFormat:  1,
			ScaleID:            scaleID,
			ScaleConfiguration: `[{"scaleid":1}]`,
			Taxonomies:         []string{"domain", "skill"},
			ContextID:          1,
		})
		require.NoError(t, err)
		require.NotZero(t, fw.ID)

		read, err := s.ReadFramework(ctx, fw.ID)
		require.NoError(t, err)
		assert.Equal(t, "Contract", read.ShortName)
		assert.Equal(t, scaleID, read.ScaleID)
		assert.Equal(t, []string{"domain", "skill"}, read.Taxonomies)

		_, err = s.ReadFramework(ctx, fw.ID+1000)
		require.ErrorIs(t, err, competency.ErrUnknownFramework)

		parent, err := s.CreateCompetency(ctx, competency.Competency{FrameworkID: fw.ID, IDNumber: "p", ShortName: "P"})
		require.NoError(t, err)
		child, err := s.CreateCompetency(ctx, competency.Competency{FrameworkID: fw.ID, ParentID: parent.ID, IDNumber: "c", ShortName: "C"})
		require.NoError(t, err)

		cfg := `{"x":1}`
		require.NoError(t, s.UpdateCompetencyRule(ctx, parent.ID, competency.Rule{Type: competency.RuleAll, Outcome: 2, Config: &cfg}))

		comps, err := s.ListCompetencies(ctx, competency.CompetencyFilter{FrameworkID: fw.ID})
		require.NoError(t, err)
		require.Len(t, comps, 2)
		assert.Equal(t, "p", comps[0].IDNumber)
		assert.Equal(t, competency.RuleAll, comps[0].RuleType)
		require.NotNil(t, comps[0].RuleConfig)
		assert.Equal(t, cfg, *comps[0].RuleConfig)
		assert.Equal(t, parent.ID, comps[1].ParentID)
		assert.Nil(t, comps[1].RuleConfig)
		assert.Zero(t, comps[1].ScaleID)

		require.NoError(t, s.AddRelatedCompetency(ctx, child.ID, parent.ID))
		require.NoError(t, s.AddRelatedCompetency(ctx, parent.ID, child.ID))
		require.Error(t, s.AddRelatedCompetency(ctx, parent.ID, parent.ID))

		rels, err := s.ListRelations(ctx, fw.ID)
		require.NoError(t, err)
		assert.Equal(t, []competency.Relation{{CompetencyID: parent.ID, RelatedID: child.ID}}, rels)
	})

	t.Run("import and export", func(t *testing.T) {
		src := strings.Join([]string{
			strings.Join(competency.RequiredHeaders(), ","),
			`,io-fw,IO framework,,,"Bad,Good","[{""scaleid"":0}]",,,,,,1,`,
			`,io-a,A,,,,,,,,io-b,1,,`,
			`io-a,io-b,B,,,,,,,,,2,,`,
		}, "\n")

		im := competency.NewImporterFromCSV(s, strings.NewReader(src), competency.ReadOptions{}, competency.ImportOptions{})
		require.NoError(t, im.Err())
		res, err := im.Import(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Created)
		assert.Equal(t, 1, res.RelationsLinked)

		var buf bytes.Buffer
		_, err = competency.NewExporter(s).Export(ctx, res.Framework.ID, &buf, competency.ExportOptions{IncludeRelated: true})
		require.NoError(t, err)
		out := buf.String()
		assert.Contains(t, out, "io-fw,IO framework")
		assert.Contains(t, out, `"Bad,Good"`)
		assert.Contains(t, out, "io-a,io-b,B")
	})
}

func TestMemory(t *testing.T) {
	testStore(t, NewMemory())
}
