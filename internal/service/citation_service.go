package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/papergen/internal/model"
	appErr "github.com/xxxsen/papergen/internal/pkg/errors"
	"github.com/xxxsen/papergen/internal/pkg/timeutil"
	"github.com/xxxsen/papergen/internal/repo"
)

// RenderFormat selects how citation markers are rewritten in output text.
type RenderFormat string

const (
	RenderLaTeX    RenderFormat = "latex"
	RenderMarkdown RenderFormat = "markdown"
)

var (
	citeMarkerRe = regexp.MustCompile(`\[CITE:([^\]]+)\]`)
	nonLetterRe  = regexp.MustCompile(`[^a-zA-Z]`)
)

// ExtractCitationKeys returns the citation keys referenced by text in first
// appearance order. Markers with an empty key are skipped; unbalanced
// markers never match and stay part of the prose.
func ExtractCitationKeys(text string) []string {
	matches := citeMarkerRe.FindAllStringSubmatch(text, -1)
	keys := make([]string, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		key := NormalizeCitationKey(m[1])
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

// NormalizeCitationKey trims and lowercases a key. Two markers refer to the
// same entry exactly when their normalized keys are equal.
func NormalizeCitationKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// CitationKeyForSource derives an author-year key such as "smith2024" from a
// source document's metadata.
func CitationKeyForSource(doc *model.SourceDocument) string {
	if len(doc.Authors) > 0 {
		surname := nonLetterRe.ReplaceAllString(authorSurname(doc.Authors[0]), "")
		if surname != "" {
			return strings.ToLower(surname) + doc.Year
		}
	}
	if doc.Year != "" {
		return "ref" + doc.Year
	}
	if len(doc.ID) > 8 {
		return "ref" + doc.ID[:8]
	}
	return "ref" + doc.ID
}

// CitationService maintains the canonical key to metadata bibliography and
// rewrites citation markers for each output format.
type CitationService struct {
	bib *repo.BibliographyRepo
}

func NewCitationService(bib *repo.BibliographyRepo) *CitationService {
	return &CitationService{bib: bib}
}

// Register adds a bibliography entry or enriches an existing one. Fields
// already populated on the stored entry are kept; only empty fields are
// filled in. Entries are never overwritten destructively.
func (s *CitationService) Register(ctx context.Context, entry *model.BibliographyEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is required", appErr.ErrInvalid)
	}
	key := NormalizeCitationKey(entry.Key)
	if key == "" {
		return fmt.Errorf("%w: citation key is required", appErr.ErrInvalid)
	}
	stored := *entry
	stored.Key = key
	now := timeutil.NowUnix()
	if stored.Ctime == 0 {
		stored.Ctime = now
	}
	stored.Mtime = now
	if err := s.bib.Upsert(ctx, &stored); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Debug("bibliography entry registered", zap.String("key", key))
	return nil
}

// RegisterSource derives a citation key from a source document and registers
// a bibliography entry that points back at it.
func (s *CitationService) RegisterSource(ctx context.Context, doc *model.SourceDocument) (string, error) {
	key := CitationKeyForSource(doc)
	entry := &model.BibliographyEntry{
		Key:      key,
		Title:    doc.Title,
		Authors:  doc.Authors,
		Year:     doc.Year,
		URL:      doc.URL,
		SourceID: doc.ID,
	}
	if err := s.Register(ctx, entry); err != nil {
		return "", err
	}
	return key, nil
}

func (s *CitationService) Get(ctx context.Context, key string) (*model.BibliographyEntry, error) {
	return s.bib.GetByKey(ctx, NormalizeCitationKey(key))
}

func (s *CitationService) List(ctx context.Context) ([]model.BibliographyEntry, error) {
	return s.bib.List(ctx)
}

func (s *CitationService) Count(ctx context.Context) (int, error) {
	return s.bib.Count(ctx)
}

// References returns the bibliography entries for the given keys, sorted by
// key. Unknown keys are simply absent from the result.
func (s *CitationService) References(ctx context.Context, keys []string) ([]model.BibliographyEntry, error) {
	normalized := normalizeKeys(keys)
	if len(normalized) == 0 {
		return []model.BibliographyEntry{}, nil
	}
	return s.bib.ListByKeys(ctx, normalized)
}

// KeysBySource maps source document ids to their citation keys.
func (s *CitationService) KeysBySource(ctx context.Context, sourceIDs []string) (map[string]string, error) {
	entries, err := s.bib.ListBySourceIDs(ctx, sourceIDs)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]string, len(entries))
	for i := range entries {
		if entries[i].SourceID != "" {
			keys[entries[i].SourceID] = entries[i].Key
		}
	}
	return keys, nil
}

// Unresolved returns the subset of keys that have no bibliography entry, in
// the order given.
func (s *CitationService) Unresolved(ctx context.Context, keys []string) ([]string, error) {
	normalized := normalizeKeys(keys)
	if len(normalized) == 0 {
		return []string{}, nil
	}
	entries, err := s.bib.ListByKeys(ctx, normalized)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(entries))
	for i := range entries {
		known[entries[i].Key] = true
	}
	missing := make([]string, 0)
	for _, key := range normalized {
		if !known[key] {
			missing = append(missing, key)
		}
	}
	return missing, nil
}

// Render rewrites every citation marker in text for the target format. For
// latex a marker becomes \cite{key}; for markdown it becomes an author-year
// reference such as (Smith, 2024). Markers whose key has no bibliography
// entry are left untouched so the document still renders; they are reported
// through a warning log and via Unresolved.
func (s *CitationService) Render(ctx context.Context, text string, format RenderFormat) (string, error) {
	if format != RenderLaTeX && format != RenderMarkdown {
		return "", fmt.Errorf("%w: unknown render format %q", appErr.ErrInvalid, format)
	}
	keys := ExtractCitationKeys(text)
	entries, err := s.References(ctx, keys)
	if err != nil {
		return "", err
	}
	known := make(map[string]*model.BibliographyEntry, len(entries))
	for i := range entries {
		known[entries[i].Key] = &entries[i]
	}
	unresolved := make([]string, 0)
	unresolvedSeen := make(map[string]bool)
	rendered := citeMarkerRe.ReplaceAllStringFunc(text, func(marker string) string {
		key := NormalizeCitationKey(citeMarkerRe.FindStringSubmatch(marker)[1])
		if key == "" {
			return marker
		}
		entry, ok := known[key]
		if !ok {
			if !unresolvedSeen[key] {
				unresolvedSeen[key] = true
				unresolved = append(unresolved, key)
			}
			return marker
		}
		if format == RenderLaTeX {
			return `\cite{` + key + `}`
		}
		if inline, ok := formatAuthorYear(entry); ok {
			return inline
		}
		return "[" + key + "]"
	})
	if len(unresolved) > 0 {
		logutil.GetLogger(ctx).Warn("unresolved citations left as markers", zap.Strings("keys", unresolved))
	}
	return rendered, nil
}

// ExportBibTeX renders the whole bibliography as BibTeX entries.
func (s *CitationService) ExportBibTeX(ctx context.Context) (string, error) {
	entries, err := s.bib.List(ctx)
	if err != nil {
		return "", err
	}
	blocks := make([]string, 0, len(entries))
	for i := range entries {
		blocks = append(blocks, FormatBibTeX(&entries[i]))
	}
	return strings.Join(blocks, "\n\n"), nil
}

// FormatBibTeX renders one entry as BibTeX. Entries with a journal become
// @article, everything else @misc.
func FormatBibTeX(entry *model.BibliographyEntry) string {
	entryType := "misc"
	if entry.Journal != "" {
		entryType = "article"
	}
	lines := []string{fmt.Sprintf("@%s{%s,", entryType, entry.Key)}
	if entry.Title != "" {
		lines = append(lines, fmt.Sprintf("  title={%s},", entry.Title))
	}
	if len(entry.Authors) > 0 {
		lines = append(lines, fmt.Sprintf("  author={%s},", strings.Join(entry.Authors, " and ")))
	}
	if entry.Year != "" {
		lines = append(lines, fmt.Sprintf("  year={%s},", entry.Year))
	}
	if entry.Journal != "" {
		lines = append(lines, fmt.Sprintf("  journal={%s},", entry.Journal))
	}
	if entry.DOI != "" {
		lines = append(lines, fmt.Sprintf("  doi={%s},", entry.DOI))
	}
	if entry.URL != "" {
		lines = append(lines, fmt.Sprintf("  url={%s},", entry.URL))
	}
	lines = append(lines, "}")
	return strings.Join(lines, "\n")
}

// FormatReference renders one entry as a human readable reference line for
// markdown bibliographies.
func FormatReference(entry *model.BibliographyEntry) string {
	parts := make([]string, 0, 5)
	switch {
	case len(entry.Authors) == 1:
		parts = append(parts, entry.Authors[0]+".")
	case len(entry.Authors) > 1:
		joined := strings.Join(entry.Authors[:len(entry.Authors)-1], ", ")
		parts = append(parts, joined+", & "+entry.Authors[len(entry.Authors)-1]+".")
	}
	if entry.Year != "" {
		parts = append(parts, "("+entry.Year+").")
	}
	if entry.Title != "" {
		parts = append(parts, entry.Title+".")
	}
	if entry.Journal != "" {
		parts = append(parts, "*"+entry.Journal+"*.")
	}
	if entry.DOI != "" {
		parts = append(parts, "https://doi.org/"+entry.DOI)
	} else if entry.URL != "" {
		parts = append(parts, entry.URL)
	}
	if len(parts) == 0 {
		return entry.Key
	}
	return strings.Join(parts, " ")
}

// formatAuthorYear builds the inline (Author, Year) form. It needs at least
// one author surname and a year; anything less is incomplete metadata.
func formatAuthorYear(entry *model.BibliographyEntry) (string, bool) {
	if len(entry.Authors) == 0 || entry.Year == "" {
		return "", false
	}
	author := authorSurname(entry.Authors[0])
	if author == "" {
		return "", false
	}
	switch {
	case len(entry.Authors) == 2:
		if second := authorSurname(entry.Authors[1]); second != "" {
			author = author + " & " + second
		}
	case len(entry.Authors) > 2:
		author += " et al."
	}
	return "(" + author + ", " + entry.Year + ")", true
}

// authorSurname extracts the family name from "Last, First" or "First Last"
// shaped author strings.
func authorSurname(author string) string {
	if idx := strings.Index(author, ","); idx >= 0 {
		return strings.TrimSpace(author[:idx])
	}
	fields := strings.Fields(author)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func normalizeKeys(keys []string) []string {
	normalized := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		k := NormalizeCitationKey(key)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		normalized = append(normalized, k)
	}
	return normalized
}
