package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/papergen/internal/extract"
	"github.com/xxxsen/papergen/internal/filestore"
	"github.com/xxxsen/papergen/internal/model"
	appErr "github.com/xxxsen/papergen/internal/pkg/errors"
	"github.com/xxxsen/papergen/internal/pkg/timeutil"
	"github.com/xxxsen/papergen/internal/repo"
)

// AddSourceInput carries the raw material for one corpus ingestion. Title,
// Authors and Year override whatever the extractor recovers.
type AddSourceInput struct {
	Kind    model.SourceKind
	Title   string
	Data    []byte
	URL     string
	Text    string
	Origin  string
	Authors []string
	Year    string
}

// CorpusService owns the source document corpus: extraction on ingest,
// archival of the raw material, and the listing consumed by the context
// assembler. Documents are immutable once added.
type CorpusService struct {
	sources   *repo.SourceRepo
	extractor *extract.Registry
	store     filestore.Store
	citations *CitationService
}

func NewCorpusService(sources *repo.SourceRepo, extractor *extract.Registry, store filestore.Store, citations *CitationService) *CorpusService {
	return &CorpusService{sources: sources, extractor: extractor, store: store, citations: citations}
}

// Add extracts text from the input, persists the document and registers a
// bibliography entry for it. The returned key is what generated text should
// cite the document by.
func (s *CorpusService) Add(ctx context.Context, in AddSourceInput) (*model.SourceDocument, string, error) {
	result, err := s.extractor.Extract(ctx, in.Kind, extract.Input{
		Title: in.Title,
		Data:  in.Data,
		URL:   in.URL,
		Text:  in.Text,
	})
	if err != nil {
		return nil, "", fmt.Errorf("extract %s source: %w", in.Kind, err)
	}

	doc := &model.SourceDocument{
		ID:      newID(),
		Kind:    in.Kind,
		Title:   firstNonEmpty(in.Title, result.Title, "untitled source"),
		Text:    result.Text,
		Authors: result.Authors,
		Year:    result.Year,
		URL:     firstNonEmpty(in.URL, result.URL),
		Origin:  in.Origin,
		AddedAt: timeutil.NowUnix(),
	}
	if len(in.Authors) > 0 {
		doc.Authors = in.Authors
	}
	if in.Year != "" {
		doc.Year = in.Year
	}

	archive := in.Data
	if len(archive) == 0 {
		archive = []byte(doc.Text)
	}
	doc.ArchiveKey = doc.ID + archiveExt(in.Kind)
	if err := s.store.Save(ctx, doc.ArchiveKey, bytes.NewReader(archive), int64(len(archive))); err != nil {
		return nil, "", fmt.Errorf("archive source: %w", err)
	}

	if err := s.sources.Create(ctx, doc); err != nil {
		return nil, "", err
	}
	key, err := s.citations.RegisterSource(ctx, doc)
	if err != nil {
		return nil, "", err
	}
	logutil.GetLogger(ctx).Info("source added",
		zap.String("id", doc.ID),
		zap.String("kind", string(doc.Kind)),
		zap.String("title", doc.Title),
		zap.String("citation_key", key),
		zap.Int("chars", len(doc.Text)))
	return doc, key, nil
}

func (s *CorpusService) Get(ctx context.Context, id string) (*model.SourceDocument, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: source id is required", appErr.ErrInvalid)
	}
	return s.sources.GetByID(ctx, id)
}

func (s *CorpusService) List(ctx context.Context) ([]model.SourceDocument, error) {
	return s.sources.List(ctx)
}

func (s *CorpusService) Count(ctx context.Context) (int, error) {
	return s.sources.Count(ctx)
}

// Remove deletes a source document from the corpus. The bibliography entry
// derived from it stays: snapshots may still cite it. The archived raw file
// is kept as well.
func (s *CorpusService) Remove(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.sources.Delete(ctx, id); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("source removed", zap.String("id", id))
	return nil
}

func archiveExt(kind model.SourceKind) string {
	if kind == model.SourceKindPDF {
		return ".pdf"
	}
	return ".txt"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
