package syncer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type row struct {
	ID     int64
	Voters int64
	Tags   []string
}

func seededList(t *testing.T, rows ...row) *List[row, int64] {
	t.Helper()
	l := NewList(func(context.Context) ([]row, error) { return rows, nil },
		func(r row) int64 { return r.ID }, Options{Name: "test"})
	_, err := l.Load(context.Background(), true, true)
	require.NoError(t, err)
	return l
}

func TestPatchTouchesOnlyMatchingRecord(t *testing.T) {
	l := seededList(t,
		row{ID: 1, Voters: 3, Tags: []string{"a"}},
		row{ID: 2, Voters: 5},
	)
	before := l.Value()

	require.True(t, l.ApplyPatch(1, func(r *row) { r.Voters = 4 }))

	after := l.Value()
	require.Equal(t, int64(4), after[0].Voters)
	require.Equal(t, before[1], after[1])
	require.Equal(t, before[0].Tags, after[0].Tags)
	// earlier snapshot is untouched
	require.Equal(t, int64(3), before[0].Voters)
}

func TestPatchMissingKey(t *testing.T) {
	l := seededList(t, row{ID: 1})
	require.False(t, l.ApplyPatch(9, func(r *row) { r.Voters = 100 }))
	require.Equal(t, []row{{ID: 1}}, l.Items())
}

func TestRemoval(t *testing.T) {
	l := seededList(t, row{ID: 1}, row{ID: 2}, row{ID: 3})
	require.True(t, l.ApplyRemoval(2))
	require.False(t, l.ApplyRemoval(2))
	require.Equal(t, []row{{ID: 1}, {ID: 3}}, l.Items())
}

func TestUpsertAndFind(t *testing.T) {
	l := seededList(t, row{ID: 1, Voters: 1})
	l.Upsert(row{ID: 2, Voters: 2})
	l.Upsert(row{ID: 1, Voters: 10})

	require.Equal(t, 2, l.Len())
	require.Equal(t, int64(2), l.Items()[0].ID)
	r, ok := l.Find(1)
	require.True(t, ok)
	require.Equal(t, int64(10), r.Voters)
	_, ok = l.Find(3)
	require.False(t, ok)
}

func TestItemsIsACopy(t *testing.T) {
	l := seededList(t, row{ID: 1, Voters: 1})
	items := l.Items()
	items[0].Voters = 99
	r, _ := l.Find(1)
	require.Equal(t, int64(1), r.Voters)
}
