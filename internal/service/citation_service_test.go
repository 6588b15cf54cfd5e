package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/papergen/internal/model"
	appErr "github.com/xxxsen/papergen/internal/pkg/errors"
	"github.com/xxxsen/papergen/internal/repo"
)

func newTestCitationService(t *testing.T) *CitationService {
	t.Helper()
	return NewCitationService(repo.NewBibliographyRepo(openTestDB(t)))
}

func TestExtractCitationKeys(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "none",
			text: "plain prose with [brackets] but no markers",
			want: []string{},
		},
		{
			name: "first appearance order",
			text: "see [CITE:smith2024] and [CITE:jones2021], then [CITE:smith2024] again",
			want: []string{"smith2024", "jones2021"},
		},
		{
			name: "case and whitespace normalize to one key",
			text: "[CITE:Smith2024] versus [CITE: smith2024 ]",
			want: []string{"smith2024"},
		},
		{
			name: "empty key skipped",
			text: "broken [CITE: ] marker and a good [CITE:ok] one",
			want: []string{"ok"},
		},
		{
			name: "unbalanced marker ignored",
			text: "dangling [CITE:unclosed with no bracket at all",
			want: []string{},
		},
		{
			name: "interior whitespace kept",
			text: "odd [CITE:two words] key",
			want: []string{"two words"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExtractCitationKeys(tt.text))
		})
	}
}

func TestRegisterEnrichesWithoutOverwriting(t *testing.T) {
	svc := newTestCitationService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, &model.BibliographyEntry{
		Key:   "smith2024",
		Title: "A Study of Things",
	}))
	require.NoError(t, svc.Register(ctx, &model.BibliographyEntry{
		Key:     "smith2024",
		Title:   "A Different Title",
		Authors: []string{"Jane Smith"},
		Year:    "2024",
	}))

	entry, err := svc.Get(ctx, "smith2024")
	require.NoError(t, err)
	require.Equal(t, "A Study of Things", entry.Title)
	require.Equal(t, []string{"Jane Smith"}, entry.Authors)
	require.Equal(t, "2024", entry.Year)
}

func TestRegisterNormalizesKey(t *testing.T) {
	svc := newTestCitationService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, &model.BibliographyEntry{Key: " Smith2024 ", Title: "t"}))

	entry, err := svc.Get(ctx, "smith2024")
	require.NoError(t, err)
	require.Equal(t, "smith2024", entry.Key)

	require.ErrorIs(t, svc.Register(ctx, &model.BibliographyEntry{Key: "  "}), appErr.ErrInvalid)
}

func TestRegisterSourceDerivesKey(t *testing.T) {
	svc := newTestCitationService(t)
	ctx := context.Background()

	key, err := svc.RegisterSource(ctx, &model.SourceDocument{
		ID:      "src-1",
		Title:   "Findings",
		Authors: []string{"Jane Smith", "Bob Jones"},
		Year:    "2024",
		URL:     "https://example.org/findings",
	})
	require.NoError(t, err)
	require.Equal(t, "smith2024", key)

	entry, err := svc.Get(ctx, "smith2024")
	require.NoError(t, err)
	require.Equal(t, "src-1", entry.SourceID)
	require.Equal(t, "Findings", entry.Title)
}

func TestCitationKeyForSource(t *testing.T) {
	tests := []struct {
		name string
		doc  model.SourceDocument
		want string
	}{
		{
			name: "first last",
			doc:  model.SourceDocument{Authors: []string{"Jane Smith"}, Year: "2024"},
			want: "smith2024",
		},
		{
			name: "last comma first",
			doc:  model.SourceDocument{Authors: []string{"Smith, Jane"}, Year: "2024"},
			want: "smith2024",
		},
		{
			name: "no authors",
			doc:  model.SourceDocument{Year: "2021"},
			want: "ref2021",
		},
		{
			name: "no metadata at all",
			doc:  model.SourceDocument{ID: "abcdef1234567890"},
			want: "refabcdef12",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, CitationKeyForSource(&tt.doc))
		})
	}
}

func TestUnresolvedReportsMissingKeys(t *testing.T) {
	svc := newTestCitationService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, &model.BibliographyEntry{Key: "smith2024", Title: "t"}))

	missing, err := svc.Unresolved(ctx, []string{"smith2024", "ghost2020", "Smith2024"})
	require.NoError(t, err)
	require.Equal(t, []string{"ghost2020"}, missing)

	missing, err = svc.Unresolved(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, missing)
}

func TestRenderLaTeX(t *testing.T) {
	svc := newTestCitationService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, &model.BibliographyEntry{
		Key: "smith2024", Authors: []string{"Jane Smith"}, Year: "2024",
	}))

	out, err := svc.Render(ctx, "Prior work [CITE:smith2024] and unknown [CITE:ghost2020].", RenderLaTeX)
	require.NoError(t, err)
	require.Contains(t, out, `\cite{smith2024}`)
	require.Contains(t, out, "[CITE:ghost2020]")
	require.NotContains(t, out, "[CITE:smith2024]")
}

func TestRenderMarkdownAuthorYear(t *testing.T) {
	svc := newTestCitationService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, &model.BibliographyEntry{
		Key: "solo2024", Authors: []string{"Jane Smith"}, Year: "2024",
	}))
	require.NoError(t, svc.Register(ctx, &model.BibliographyEntry{
		Key: "pair2023", Authors: []string{"Jane Smith", "Bob Jones"}, Year: "2023",
	}))
	require.NoError(t, svc.Register(ctx, &model.BibliographyEntry{
		Key: "crowd2022", Authors: []string{"A One", "B Two", "C Three"}, Year: "2022",
	}))
	require.NoError(t, svc.Register(ctx, &model.BibliographyEntry{
		Key: "bare2021", Title: "No Authors Recorded",
	}))

	out, err := svc.Render(ctx,
		"[CITE:solo2024] [CITE:pair2023] [CITE:crowd2022] [CITE:bare2021] [CITE:ghost2020]",
		RenderMarkdown)
	require.NoError(t, err)
	require.Contains(t, out, "(Smith, 2024)")
	require.Contains(t, out, "(Smith & Jones, 2023)")
	require.Contains(t, out, "(One et al., 2022)")
	require.Contains(t, out, "[bare2021]")
	require.Contains(t, out, "[CITE:ghost2020]")
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	svc := newTestCitationService(t)
	_, err := svc.Render(context.Background(), "text", RenderFormat("pdf"))
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestRenderWithoutMarkersIsIdentity(t *testing.T) {
	svc := newTestCitationService(t)
	text := "No markers here, just [brackets] and (parens)."
	out, err := svc.Render(context.Background(), text, RenderMarkdown)
	require.NoError(t, err)
	require.Equal(t, text, out)
}

func TestExportBibTeX(t *testing.T) {
	svc := newTestCitationService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, &model.BibliographyEntry{
		Key:     "smith2024",
		Title:   "A Study",
		Authors: []string{"Jane Smith", "Bob Jones"},
		Year:    "2024",
		Journal: "Journal of Examples",
		DOI:     "10.1000/xyz",
	}))
	require.NoError(t, svc.Register(ctx, &model.BibliographyEntry{
		Key:   "web2023",
		Title: "A Web Page",
		URL:   "https://example.org",
	}))

	out, err := svc.ExportBibTeX(ctx)
	require.NoError(t, err)
	require.Contains(t, out, "@article{smith2024,")
	require.Contains(t, out, "author={Jane Smith and Bob Jones},")
	require.Contains(t, out, "journal={Journal of Examples},")
	require.Contains(t, out, "@misc{web2023,")
	require.Contains(t, out, "url={https://example.org},")
}

func TestFormatReference(t *testing.T) {
	entry := &model.BibliographyEntry{
		Key:     "smith2024",
		Title:   "A Study",
		Authors: []string{"Jane Smith", "Bob Jones"},
		Year:    "2024",
		Journal: "Journal of Examples",
	}
	got := FormatReference(entry)
	require.Equal(t, "Jane Smith, & Bob Jones. (2024). A Study. *Journal of Examples*.", got)

	require.Equal(t, "empty2020", FormatReference(&model.BibliographyEntry{Key: "empty2020"}))
}
