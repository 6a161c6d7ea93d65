package core

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/lpcsv/internal/competency"
)

func TestImportHistory_Ring(t *testing.T) {
	h := newImportHistory(3)
	assert.Empty(t, h.list(0))

	for _, id := range []string{"a", "b", "c", "d"} {
		h.add(ImportRecord{ImportID: id})
	}

	ids := func(recs []ImportRecord) []string {
		out := make([]string, len(recs))
		for i, r := range recs {
			out[i] = r.ImportID
		}
		return out
	}
	assert.Equal(t, []string{"d", "c", "b"}, ids(h.list(0)))
	assert.Equal(t, []string{"d", "c"}, ids(h.list(2)))
	assert.Equal(t, []string{"d", "c", "b"}, ids(h.list(10)))
}

func TestService_HistoryRecordsOutcomes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ContextWithIPAddress(ContextWithActor(context.Background(), 42), "10.0.0.1")

	res, err := svc.Import(ctx, strings.NewReader(simpleFramework(t)), competency.ReadOptions{}, nil)
	require.NoError(t, err)

	_, err = svc.Import(ctx, strings.NewReader(simpleFramework(t)), competency.ReadOptions{}, nil)
	require.ErrorIs(t, err, competency.ErrImportFailed)

	recs := svc.History(0)
	require.Len(t, recs, 2)

	failed, succeeded := recs[0], recs[1]
	assert.Equal(t, "IMP007", failed.Result)
	assert.NotEmpty(t, failed.Error)

	assert.Equal(t, "ok", succeeded.Result)
	assert.Equal(t, res.Framework.ID, succeeded.FrameworkID)
	assert.Equal(t, "fw", succeeded.IDNumber)
	assert.Equal(t, 2, succeeded.Created)
	assert.Equal(t, int64(42), succeeded.Actor)
	assert.Equal(t, "10.0.0.1", succeeded.IPAddress)
	assert.NotEqual(t, failed.ImportID, succeeded.ImportID)
}
