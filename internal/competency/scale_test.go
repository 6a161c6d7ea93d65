package competency_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/lpcsv/internal/competency"
	"github.com/JonMunkholm/lpcsv/internal/store"
)

func TestScaleResolver_ReusesMatchingScale(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seeded := mem.SeedScale("Existing", "Not yet, Competent")

	r := competency.NewScaleResolver(mem)
	id, err := r.Resolve(ctx, "Not yet,Competent", "Owner")
	require.NoError(t, err)
	assert.Equal(t, seeded, id)

	scales, err := mem.ListScales(ctx)
	require.NoError(t, err)
	assert.Len(t, scales, 1)
}

func TestScaleResolver_CreatesOnce(t *testing.T) {
	ctx := competency.WithActor(context.Background(), 7)
	mem := store.NewMemory()
	mem.SeedScale("Existing", "A,B")
	r := competency.NewScaleResolver(mem)

	first, err := r.Resolve(ctx, "Low,High", "Owner")
	require.NoError(t, err)
	second, err := r.Resolve(ctx, "Low,High", "Other")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	scales, err := mem.ListScales(ctx)
	require.NoError(t, err)
	require.Len(t, scales, 2)

	created, err := mem.ReadScale(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "Competency scale: Owner", created.Name)
	assert.Equal(t, int64(7), created.UserID)
	assert.Equal(t, int64(0), created.CourseID)

	n, reused := r.Counts()
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, reused)
}

func TestScaleResolver_DistinctValuesAreDistinctScales(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	r := competency.NewScaleResolver(mem)

	a, err := r.Resolve(ctx, "A,B", "x")
	require.NoError(t, err)
	b, err := r.Resolve(ctx, "A,B,C", "x")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestRewriteScaleConfig(t *testing.T) {
	in := `[{"scaleid":"3"},{"id":1,"scaledefault":1,"proficient":0},{"id":2,"scaledefault":0,"proficient":1}]`
	out, err := competency.RewriteScaleConfig(42, in)
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 3)
	assert.Equal(t, float64(42), got[0]["scaleid"])
	assert.Equal(t, float64(2), got[2]["id"])
	assert.Equal(t, float64(1), got[2]["proficient"])
}

func TestRewriteScaleConfig_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "scale please"},
		{"empty", ""},
		{"object", `{"scaleid":1}`},
		{"empty array", `[]`},
		{"array of scalars", `[1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := competency.RewriteScaleConfig(1, tt.input)
			require.ErrorIs(t, err, competency.ErrMalformedScaleConfig)
		})
	}
}
