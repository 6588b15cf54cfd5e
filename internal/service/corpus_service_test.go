package service

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/papergen/internal/config"
	"github.com/xxxsen/papergen/internal/extract"
	"github.com/xxxsen/papergen/internal/filestore"
	"github.com/xxxsen/papergen/internal/model"
	appErr "github.com/xxxsen/papergen/internal/pkg/errors"
	"github.com/xxxsen/papergen/internal/repo"
)

func newTestCorpusService(t *testing.T) (*CorpusService, *CitationService, filestore.Store) {
	t.Helper()
	db := openTestDB(t)
	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	})
	require.NoError(t, err)
	citations := NewCitationService(repo.NewBibliographyRepo(db))
	svc := NewCorpusService(repo.NewSourceRepo(db), extract.NewRegistry(nil), store, citations)
	return svc, citations, store
}

func TestAddNoteSource(t *testing.T) {
	svc, citations, store := newTestCorpusService(t)
	ctx := context.Background()

	doc, key, err := svc.Add(ctx, AddSourceInput{
		Kind:    model.SourceKindNote,
		Title:   "Meeting Notes",
		Text:    "transformers beat rnns on long sequences",
		Origin:  "inline",
		Authors: []string{"Jane Smith"},
		Year:    "2024",
	})
	require.NoError(t, err)
	require.Equal(t, "smith2024", key)
	require.Equal(t, "Meeting Notes", doc.Title)
	require.Equal(t, "transformers beat rnns on long sequences", doc.Text)
	require.NotEmpty(t, doc.ID)
	require.NotZero(t, doc.AddedAt)

	// The bibliography entry points back at the document.
	entry, err := citations.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, doc.ID, entry.SourceID)

	// The raw material is archived under the document id.
	rc, err := store.Open(ctx, doc.ArchiveKey)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()
	archived, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, doc.Text, string(archived))
}

func TestAddTextSourceFromBytes(t *testing.T) {
	svc, _, _ := newTestCorpusService(t)
	doc, key, err := svc.Add(context.Background(), AddSourceInput{
		Kind:   model.SourceKindText,
		Data:   []byte("first paragraph\n\nsecond paragraph"),
		Origin: "notes.txt",
	})
	require.NoError(t, err)
	require.Equal(t, "untitled source", doc.Title)
	require.Equal(t, "first paragraph\n\nsecond paragraph", doc.Text)
	// No author or year metadata: the key degrades to the id form.
	require.Equal(t, "ref"+doc.ID[:8], key)
}

func TestAddRejectsBadExtraction(t *testing.T) {
	svc, _, _ := newTestCorpusService(t)
	_, _, err := svc.Add(context.Background(), AddSourceInput{
		Kind: model.SourceKindPDF,
		Data: []byte("this is not a pdf"),
	})
	require.Error(t, err)

	_, _, err = svc.Add(context.Background(), AddSourceInput{
		Kind: model.SourceKind("carrier-pigeon"),
	})
	require.Error(t, err)
}

func TestListAndRemoveSources(t *testing.T) {
	svc, _, _ := newTestCorpusService(t)
	ctx := context.Background()

	first, _, err := svc.Add(ctx, AddSourceInput{Kind: model.SourceKindNote, Text: "note one"})
	require.NoError(t, err)
	_, _, err = svc.Add(ctx, AddSourceInput{Kind: model.SourceKindNote, Text: "note two"})
	require.NoError(t, err)

	docs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	require.NoError(t, svc.Remove(ctx, first.ID))
	docs, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	require.ErrorIs(t, svc.Remove(ctx, first.ID), appErr.ErrNotFound)
	_, err = svc.Get(ctx, first.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestRemoveKeepsBibliographyEntry(t *testing.T) {
	svc, citations, _ := newTestCorpusService(t)
	ctx := context.Background()

	doc, key, err := svc.Add(ctx, AddSourceInput{
		Kind:    model.SourceKindNote,
		Text:    "cited material",
		Authors: []string{"Bob Jones"},
		Year:    "2021",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, doc.ID))

	entry, err := citations.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "jones2021", entry.Key)
}
