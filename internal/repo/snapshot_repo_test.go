package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/papergen/internal/model"
	appErr "github.com/xxxsen/papergen/internal/pkg/errors"
	"github.com/xxxsen/papergen/internal/pkg/timeutil"
)

func TestSnapshotRepoCreateAndGet(t *testing.T) {
	db := openTestDB(t)
	snapshots := NewSnapshotRepo(db)
	ctx := context.Background()

	_, err := snapshots.GetLatestVersion(ctx, "introduction")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	now := timeutil.NowUnix()
	require.NoError(t, snapshots.Create(ctx, &model.SectionSnapshot{
		ID:           "snap-1",
		SectionID:    "introduction",
		Version:      1,
		Content:      "first draft [CITE:smith2024]",
		Operation:    model.OperationDraft,
		WordCount:    3,
		CitationKeys: []string{"smith2024"},
		Ctime:        now,
	}))
	require.NoError(t, snapshots.Create(ctx, &model.SectionSnapshot{
		ID:        "snap-2",
		SectionID: "introduction",
		Version:   2,
		Content:   "second draft",
		Operation: model.OperationRevise,
		WordCount: 2,
		Ctime:     now,
	}))

	latest, err := snapshots.GetLatestVersion(ctx, "introduction")
	require.NoError(t, err)
	require.Equal(t, 2, latest)

	first, err := snapshots.GetByVersion(ctx, "introduction", 1)
	require.NoError(t, err)
	require.Equal(t, "first draft [CITE:smith2024]", first.Content)
	require.Equal(t, model.OperationDraft, first.Operation)
	require.Equal(t, []string{"smith2024"}, first.CitationKeys)

	_, err = snapshots.GetByVersion(ctx, "introduction", 99)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	current, err := snapshots.GetLatest(ctx, "introduction")
	require.NoError(t, err)
	require.Equal(t, 2, current.Version)
}

func TestSnapshotRepoVersionUniqueness(t *testing.T) {
	db := openTestDB(t)
	snapshots := NewSnapshotRepo(db)
	ctx := context.Background()
	now := timeutil.NowUnix()

	require.NoError(t, snapshots.Create(ctx, &model.SectionSnapshot{
		ID: "a", SectionID: "methods", Version: 1, Content: "x", Operation: model.OperationDraft, Ctime: now,
	}))
	err := snapshots.Create(ctx, &model.SectionSnapshot{
		ID: "b", SectionID: "methods", Version: 1, Content: "y", Operation: model.OperationDraft, Ctime: now,
	})
	require.ErrorIs(t, err, appErr.ErrConflict)
}

func TestSnapshotRepoListOrder(t *testing.T) {
	db := openTestDB(t)
	snapshots := NewSnapshotRepo(db)
	ctx := context.Background()
	now := timeutil.NowUnix()

	for i := 3; i >= 1; i-- {
		require.NoError(t, snapshots.Create(ctx, &model.SectionSnapshot{
			ID:        newTestID(i),
			SectionID: "results",
			Version:   i,
			Content:   "v",
			Operation: model.OperationDraft,
			Ctime:     now,
		}))
	}

	list, err := snapshots.List(ctx, "results")
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, s := range list {
		require.Equal(t, i+1, s.Version)
	}

	summaries, err := snapshots.ListSummaries(ctx, "results")
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	require.Equal(t, 1, summaries[0].Version)
	require.Equal(t, model.OperationDraft, summaries[0].Operation)

	ids, err := snapshots.ListSectionIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"results"}, ids)
}

func newTestID(i int) string {
	return string(rune('a' + i))
}
