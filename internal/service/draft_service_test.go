package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/papergen/internal/model"
	appErr "github.com/xxxsen/papergen/internal/pkg/errors"
)

func seedOutlineAndSource(t *testing.T, env *testEnv) {
	t.Helper()
	ctx := context.Background()
	_, err := env.outline.Generate(ctx, "Efficient Attention Mechanisms", 5, "", false)
	require.NoError(t, err)
	_, key, err := env.corpus.Add(ctx, AddSourceInput{
		Kind:    model.SourceKindNote,
		Title:   "Attention Survey Notes",
		Text:    "Prior attention work scales quadratically.\n\nSparse variants trade recall for speed.",
		Authors: []string{"Jane Smith"},
		Year:    "2024",
	})
	require.NoError(t, err)
	require.Equal(t, "smith2024", key)
}

func TestDraftSectionAppendsFirstVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedOutlineAndSource(t, env)

	snapshot, err := env.draft.Draft(ctx, "introduction", "", nil)
	require.NoError(t, err)
	require.Equal(t, 1, snapshot.Version)
	require.Equal(t, model.OperationDraft, snapshot.Operation)
	require.Greater(t, snapshot.WordCount, 0)
	require.Contains(t, snapshot.Content, "[CITE:smith2024]")
	require.Contains(t, snapshot.CitationKeys, "smith2024")
	require.Contains(t, snapshot.OperationDetail, "source fragments")

	again, err := env.draft.Draft(ctx, "introduction", "", nil)
	require.NoError(t, err)
	require.Equal(t, 2, again.Version)
}

func TestDraftUnknownSection(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.draft.Draft(context.Background(), "no-such-section", "", nil)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestReviseRequiresFeedbackAndDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedOutlineAndSource(t, env)

	_, err := env.draft.Revise(ctx, "introduction", "   ")
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = env.draft.Revise(ctx, "introduction", "tighten the opening")
	require.ErrorIs(t, err, appErr.ErrVersionNotFound)
}

func TestPolishUsesFocusFeedback(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedOutlineAndSource(t, env)

	_, err := env.draft.Draft(ctx, "introduction", "", nil)
	require.NoError(t, err)

	polished, err := env.draft.Polish(ctx, "introduction", "clarity")
	require.NoError(t, err)
	require.Equal(t, 2, polished.Version)
	require.Equal(t, model.OperationPolish, polished.Operation)
	require.Equal(t, "clarity", polished.OperationDetail)
	require.Contains(t, polished.Content, "Improve clarity and readability.")

	general, err := env.draft.Polish(ctx, "introduction", "sparkle")
	require.NoError(t, err)
	require.Equal(t, "general", general.OperationDetail)
	require.Contains(t, general.Content, "academic rigor")
}

func TestSetManualRecordsContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	snapshot, err := env.draft.SetManual(ctx, "appendix", "Hand written appendix text.")
	require.NoError(t, err)
	require.Equal(t, 1, snapshot.Version)
	require.Equal(t, model.OperationManual, snapshot.Operation)
	require.Equal(t, "Hand written appendix text.", snapshot.Content)
}

func TestDraftAllCoversEverySection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedOutlineAndSource(t, env)

	results, err := env.draft.DraftAll(ctx, "", nil)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for _, r := range results {
		require.NoError(t, r.Err, "section %s", r.SectionID)
		require.NotNil(t, r.Snapshot)
		require.Equal(t, 1, r.Snapshot.Version)
	}

	sectionIDs, err := env.versions.SectionIDs(ctx)
	require.NoError(t, err)
	require.Len(t, sectionIDs, 5)
}

func TestDraftAllWithoutOutline(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.draft.DraftAll(context.Background(), "", nil)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestReviseAllReportsPerSectionErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedOutlineAndSource(t, env)

	_, err := env.draft.Draft(ctx, "introduction", "", nil)
	require.NoError(t, err)

	results, err := env.draft.ReviseAll(ctx, "cut filler words")
	require.NoError(t, err)
	require.Len(t, results, 5)

	revised, failed := 0, 0
	for _, r := range results {
		if r.Err != nil {
			require.ErrorIs(t, r.Err, appErr.ErrVersionNotFound, "section %s", r.SectionID)
			failed++
			continue
		}
		require.Equal(t, "introduction", r.SectionID)
		require.Equal(t, 2, r.Snapshot.Version)
		revised++
	}
	require.Equal(t, 1, revised)
	require.Equal(t, 4, failed)
}

func TestOrganizeStoresNoteSource(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, _, err := env.corpus.Add(ctx, AddSourceInput{
		Kind:    model.SourceKindNote,
		Title:   "Survey",
		Text:    "attention is quadratic",
		Authors: []string{"Jane Smith"},
		Year:    "2024",
	})
	require.NoError(t, err)

	doc, _, err := env.draft.Organize(ctx, "Efficient Attention", "benchmarks")
	require.NoError(t, err)
	require.Equal(t, model.SourceKindNote, doc.Kind)
	require.Contains(t, doc.Text, "## ")
	require.Contains(t, doc.Text, "[CITE:smith2024]")

	count, err := env.corpus.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestOrganizeEmptyCorpus(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.draft.Organize(context.Background(), "topic", "")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

// Full pipeline walk: draft, polish, revise, then revert to the first
// version and render its citations.
func TestSectionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedOutlineAndSource(t, env)

	v1, err := env.draft.Draft(ctx, "introduction", "", nil)
	require.NoError(t, err)
	require.Contains(t, v1.Content, "[CITE:smith2024]")

	_, err = env.draft.Polish(ctx, "introduction", "clarity")
	require.NoError(t, err)
	_, err = env.draft.Revise(ctx, "introduction", "mention benchmark gaps")
	require.NoError(t, err)

	history, err := env.versions.History(ctx, "introduction")
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, []model.SnapshotOperation{model.OperationDraft, model.OperationPolish, model.OperationRevise},
		[]model.SnapshotOperation{history[0].Operation, history[1].Operation, history[2].Operation})

	reverted, err := env.versions.Revert(ctx, "introduction", 1)
	require.NoError(t, err)
	require.Equal(t, 4, reverted.Version)
	require.Equal(t, v1.Content, reverted.Content)

	rendered, err := env.citations.Render(ctx, reverted.Content, RenderLaTeX)
	require.NoError(t, err)
	require.Contains(t, rendered, `\cite{smith2024}`)
}
