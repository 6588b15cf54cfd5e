package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/papergen/internal/model"
	appErr "github.com/xxxsen/papergen/internal/pkg/errors"
	"github.com/xxxsen/papergen/internal/pkg/timeutil"
)

func TestBibliographyRepoUpsertEnrichesEmptyFields(t *testing.T) {
	db := openTestDB(t)
	bib := NewBibliographyRepo(db)
	ctx := context.Background()
	now := timeutil.NowUnix()

	require.NoError(t, bib.Upsert(ctx, &model.BibliographyEntry{
		Key:   "smith2024",
		Title: "Deep Learning Advances",
		Ctime: now,
		Mtime: now,
	}))

	// second registration fills missing fields but never overwrites set ones
	require.NoError(t, bib.Upsert(ctx, &model.BibliographyEntry{
		Key:     "smith2024",
		Title:   "A Different Title",
		Authors: []string{"Smith, Jane"},
		Year:    "2024",
		Journal: "Nature ML",
		Ctime:   now,
		Mtime:   now + 1,
	}))

	entry, err := bib.GetByKey(ctx, "smith2024")
	require.NoError(t, err)
	require.Equal(t, "Deep Learning Advances", entry.Title)
	require.Equal(t, []string{"Smith, Jane"}, entry.Authors)
	require.Equal(t, "2024", entry.Year)
	require.Equal(t, "Nature ML", entry.Journal)
}

func TestBibliographyRepoGetMissing(t *testing.T) {
	db := openTestDB(t)
	bib := NewBibliographyRepo(db)

	_, err := bib.GetByKey(context.Background(), "nobody1999")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestBibliographyRepoListByKeys(t *testing.T) {
	db := openTestDB(t)
	bib := NewBibliographyRepo(db)
	ctx := context.Background()
	now := timeutil.NowUnix()

	for _, key := range []string{"zhou2023", "adams2021", "lee2022"} {
		require.NoError(t, bib.Upsert(ctx, &model.BibliographyEntry{Key: key, Ctime: now, Mtime: now}))
	}

	entries, err := bib.ListByKeys(ctx, []string{"lee2022", "zhou2023", "missing2020"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "lee2022", entries[0].Key)
	require.Equal(t, "zhou2023", entries[1].Key)

	all, err := bib.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "adams2021", all[0].Key)

	count, err := bib.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	empty, err := bib.ListByKeys(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}
