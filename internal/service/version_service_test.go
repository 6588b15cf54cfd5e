package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/papergen/internal/model"
	appErr "github.com/xxxsen/papergen/internal/pkg/errors"
)

func TestAppendAssignsContiguousVersions(t *testing.T) {
	svc := newTestVersionService(t)
	ctx := context.Background()

	first, err := svc.Append(ctx, "introduction", "Opening paragraph.", model.OperationDraft, "initial draft")
	require.NoError(t, err)
	require.Equal(t, 1, first.Version)
	require.Equal(t, 2, first.WordCount)

	second, err := svc.Append(ctx, "introduction", "Opening paragraph, expanded.", model.OperationRevise, "")
	require.NoError(t, err)
	require.Equal(t, 2, second.Version)

	other, err := svc.Append(ctx, "methods", "We describe the approach.", model.OperationDraft, "")
	require.NoError(t, err)
	require.Equal(t, 1, other.Version)
}

func TestAppendAcceptsEmptyContent(t *testing.T) {
	svc := newTestVersionService(t)
	snapshot, err := svc.Append(context.Background(), "notes", "", model.OperationManual, "")
	require.NoError(t, err)
	require.Equal(t, 1, snapshot.Version)
	require.Equal(t, 0, snapshot.WordCount)
}

func TestAppendRequiresSectionID(t *testing.T) {
	svc := newTestVersionService(t)
	_, err := svc.Append(context.Background(), "", "text", model.OperationDraft, "")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestAppendRecordsCitationKeys(t *testing.T) {
	svc := newTestVersionService(t)
	snapshot, err := svc.Append(context.Background(), "related-work", "Earlier studies [CITE:smith2024] disagree with [CITE:jones2021] on this.", model.OperationDraft, "")
	require.NoError(t, err)
	require.Equal(t, []string{"smith2024", "jones2021"}, snapshot.CitationKeys)
}

func TestGetZeroReturnsCurrent(t *testing.T) {
	svc := newTestVersionService(t)
	ctx := context.Background()
	_, err := svc.Append(ctx, "introduction", "v1", model.OperationDraft, "")
	require.NoError(t, err)
	_, err = svc.Append(ctx, "introduction", "v2", model.OperationRevise, "")
	require.NoError(t, err)

	current, err := svc.Get(ctx, "introduction", 0)
	require.NoError(t, err)
	require.Equal(t, 2, current.Version)
	require.Equal(t, "v2", current.Content)

	older, err := svc.Get(ctx, "introduction", 1)
	require.NoError(t, err)
	require.Equal(t, "v1", older.Content)
}

func TestGetMissingVersionReportsRange(t *testing.T) {
	svc := newTestVersionService(t)
	ctx := context.Background()
	_, err := svc.Append(ctx, "introduction", "v1", model.OperationDraft, "")
	require.NoError(t, err)
	_, err = svc.Append(ctx, "introduction", "v2", model.OperationRevise, "")
	require.NoError(t, err)

	_, err = svc.Get(ctx, "introduction", 7)
	require.ErrorIs(t, err, appErr.ErrVersionNotFound)
	require.Contains(t, err.Error(), "versions 1..2")
	require.Contains(t, err.Error(), "requested 7")
}

func TestGetUnknownSection(t *testing.T) {
	svc := newTestVersionService(t)
	_, err := svc.Get(context.Background(), "ghost", 0)
	require.ErrorIs(t, err, appErr.ErrVersionNotFound)
	require.Contains(t, err.Error(), "has no versions")
}

func TestHistoryOldestFirst(t *testing.T) {
	svc := newTestVersionService(t)
	ctx := context.Background()
	for i, op := range []model.SnapshotOperation{model.OperationDraft, model.OperationRevise, model.OperationPolish} {
		_, err := svc.Append(ctx, "introduction", fmt.Sprintf("content %d", i+1), op, "")
		require.NoError(t, err)
	}

	history, err := svc.History(ctx, "introduction")
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, entry := range history {
		require.Equal(t, i+1, entry.Version)
	}
	require.Equal(t, model.OperationDraft, history[0].Operation)
	require.Equal(t, model.OperationPolish, history[2].Operation)

	empty, err := svc.History(ctx, "ghost")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestDiffAddsAndRemovesLines(t *testing.T) {
	svc := newTestVersionService(t)
	ctx := context.Background()
	_, err := svc.Append(ctx, "introduction", "alpha\nbeta\ngamma", model.OperationDraft, "")
	require.NoError(t, err)
	_, err = svc.Append(ctx, "introduction", "alpha\ndelta\ngamma", model.OperationRevise, "")
	require.NoError(t, err)

	lines, err := svc.Diff(ctx, "introduction", 1, 2)
	require.NoError(t, err)
	require.Contains(t, lines, model.DiffLine{Type: model.DiffLineRemoved, Text: "beta"})
	require.Contains(t, lines, model.DiffLine{Type: model.DiffLineAdded, Text: "delta"})
	require.Contains(t, lines, model.DiffLine{Type: model.DiffLineUnchanged, Text: "alpha"})

	reversed, err := svc.Diff(ctx, "introduction", 2, 1)
	require.NoError(t, err)
	require.Contains(t, reversed, model.DiffLine{Type: model.DiffLineAdded, Text: "beta"})
	require.Contains(t, reversed, model.DiffLine{Type: model.DiffLineRemoved, Text: "delta"})
}

func TestDiffSameVersionIsEmpty(t *testing.T) {
	svc := newTestVersionService(t)
	ctx := context.Background()
	_, err := svc.Append(ctx, "introduction", "alpha\nbeta", model.OperationDraft, "")
	require.NoError(t, err)

	lines, err := svc.Diff(ctx, "introduction", 1, 1)
	require.NoError(t, err)
	require.Empty(t, lines)

	// 0 resolves to the latest, so this is the same comparison.
	lines, err = svc.Diff(ctx, "introduction", 0, 1)
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestDiffMissingVersion(t *testing.T) {
	svc := newTestVersionService(t)
	ctx := context.Background()
	_, err := svc.Append(ctx, "introduction", "alpha", model.OperationDraft, "")
	require.NoError(t, err)

	_, err = svc.Diff(ctx, "introduction", 1, 9)
	require.ErrorIs(t, err, appErr.ErrVersionNotFound)
}

func TestRevertAppendsCopyOfTarget(t *testing.T) {
	svc := newTestVersionService(t)
	ctx := context.Background()
	_, err := svc.Append(ctx, "introduction", "the original text", model.OperationDraft, "")
	require.NoError(t, err)
	_, err = svc.Append(ctx, "introduction", "a heavy rewrite", model.OperationRevise, "")
	require.NoError(t, err)

	reverted, err := svc.Revert(ctx, "introduction", 1)
	require.NoError(t, err)
	require.Equal(t, 3, reverted.Version)
	require.Equal(t, "the original text", reverted.Content)
	require.Equal(t, model.OperationRevert, reverted.Operation)
	require.Equal(t, "revert to version 1", reverted.OperationDetail)

	// The rewrite is still reachable.
	middle, err := svc.Get(ctx, "introduction", 2)
	require.NoError(t, err)
	require.Equal(t, "a heavy rewrite", middle.Content)
}

func TestRevertRejectsImplicitTarget(t *testing.T) {
	svc := newTestVersionService(t)
	ctx := context.Background()
	_, err := svc.Append(ctx, "introduction", "v1", model.OperationDraft, "")
	require.NoError(t, err)

	_, err = svc.Revert(ctx, "introduction", 0)
	require.ErrorIs(t, err, appErr.ErrVersionNotFound)

	_, err = svc.Revert(ctx, "introduction", 5)
	require.ErrorIs(t, err, appErr.ErrVersionNotFound)
}

func TestConcurrentAppendsStayContiguous(t *testing.T) {
	svc := newTestVersionService(t)
	ctx := context.Background()
	const writers = 8

	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = svc.Append(ctx, "introduction", fmt.Sprintf("draft %d", n), model.OperationDraft, "")
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	history, err := svc.History(ctx, "introduction")
	require.NoError(t, err)
	require.Len(t, history, writers)
	seen := make(map[int]bool)
	for _, entry := range history {
		require.False(t, seen[entry.Version], "duplicate version %d", entry.Version)
		seen[entry.Version] = true
	}
	for v := 1; v <= writers; v++ {
		require.True(t, seen[v], "missing version %d", v)
	}
}

func TestDiffLinesPure(t *testing.T) {
	lines := DiffLines("a\nb\nc", "a\nc\nd")
	require.NotEmpty(t, lines)
	again := DiffLines("a\nb\nc", "a\nc\nd")
	require.Equal(t, lines, again)

	require.Empty(t, DiffLines("", ""))
}
