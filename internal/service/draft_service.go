package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/papergen/internal/ai"
	"github.com/xxxsen/papergen/internal/model"
	appErr "github.com/xxxsen/papergen/internal/pkg/errors"
	"github.com/xxxsen/papergen/internal/repo"
)

// Feedback used when polishing with a named focus. Unknown focus values fall
// back to the general instruction.
var polishFeedback = map[string]string{
	"clarity":     "Improve clarity and readability. Simplify complex sentences and ensure ideas are clearly expressed.",
	"flow":        "Improve the logical flow and transitions between paragraphs. Ensure smooth progression of ideas.",
	"citations":   "Strengthen the use of citations. Add citations where claims need support and ensure proper attribution.",
	"conciseness": "Make the writing more concise. Remove redundant phrases and tighten the prose without losing meaning.",
}

const defaultPolishFeedback = "Polish this section to improve overall quality, clarity, and academic rigor."

type DraftOptions struct {
	Budget   int // token budget handed to the context assembler
	Parallel int // worker bound for the all-section variants
}

// DraftService sequences the pipeline per section: assemble context, call
// the generator, record the result as the next snapshot.
type DraftService struct {
	sections  *repo.SectionRepo
	versions  *VersionService
	assembler *ContextService
	citations *CitationService
	corpus    *CorpusService
	mgr       *ai.Manager
	budget    int
	parallel  int
}

func NewDraftService(sections *repo.SectionRepo, versions *VersionService, assembler *ContextService,
	citations *CitationService, corpus *CorpusService, mgr *ai.Manager, opts DraftOptions) *DraftService {
	budget := opts.Budget
	if budget <= 0 {
		budget = 4500
	}
	parallel := opts.Parallel
	if parallel <= 0 {
		parallel = 2
	}
	return &DraftService{
		sections:  sections,
		versions:  versions,
		assembler: assembler,
		citations: citations,
		corpus:    corpus,
		mgr:       mgr,
		budget:    budget,
		parallel:  parallel,
	}
}

// Draft generates a fresh draft for an outline section and appends it as the
// section's next version.
func (s *DraftService) Draft(ctx context.Context, sectionID string, guidance string, focus []string) (*model.SectionSnapshot, error) {
	section, err := s.sections.GetByID(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(guidance) == "" {
		guidance = section.Guidance
	}
	payload, err := s.assembler.Assemble(ctx, AssembleRequest{
		Objective: sectionObjective(section),
		Guidance:  guidance,
		Focus:     focus,
		MaxTokens: s.budget,
	})
	if err != nil {
		return nil, err
	}
	material, err := s.buildMaterial(ctx, payload)
	if err != nil {
		return nil, err
	}
	text, err := s.mgr.DraftSection(ctx, ai.DraftRequest{
		SectionTitle: section.Title,
		Objectives:   section.Objectives,
		KeyPoints:    section.KeyPoints,
		Guidance:     guidance,
		WordTarget:   section.WordTarget,
		Material:     material,
	})
	if err != nil {
		return nil, err
	}
	detail := fmt.Sprintf("generated from %d source fragments", len(payload.Fragments))
	snapshot, err := s.versions.Append(ctx, section.ID, text, model.OperationDraft, detail)
	if err != nil {
		return nil, err
	}
	s.warnUnresolved(ctx, section.ID, snapshot.CitationKeys)
	return snapshot, nil
}

// Revise rewrites the current version of a section according to feedback and
// appends the result.
func (s *DraftService) Revise(ctx context.Context, sectionID string, feedback string) (*model.SectionSnapshot, error) {
	if strings.TrimSpace(feedback) == "" {
		return nil, fmt.Errorf("%w: feedback is required", appErr.ErrInvalid)
	}
	return s.reviseWith(ctx, sectionID, feedback, model.OperationRevise, feedback)
}

// Polish runs a focused refinement pass. Known focus values are clarity,
// flow, citations and conciseness; anything else polishes for overall
// quality.
func (s *DraftService) Polish(ctx context.Context, sectionID string, focus string) (*model.SectionSnapshot, error) {
	focus = strings.ToLower(strings.TrimSpace(focus))
	feedback, ok := polishFeedback[focus]
	detail := focus
	if !ok {
		feedback = defaultPolishFeedback
		detail = "general"
	}
	return s.reviseWith(ctx, sectionID, feedback, model.OperationPolish, detail)
}

func (s *DraftService) reviseWith(ctx context.Context, sectionID string, feedback string, op model.SnapshotOperation, detail string) (*model.SectionSnapshot, error) {
	current, err := s.versions.Current(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	text, err := s.mgr.ReviseSection(ctx, ai.ReviseRequest{
		SectionTitle: s.sectionTitle(ctx, sectionID),
		CurrentDraft: current.Content,
		Feedback:     feedback,
		Iteration:    current.Version + 1,
	})
	if err != nil {
		return nil, err
	}
	snapshot, err := s.versions.Append(ctx, sectionID, text, op, detail)
	if err != nil {
		return nil, err
	}
	s.warnUnresolved(ctx, sectionID, snapshot.CitationKeys)
	return snapshot, nil
}

// SetManual records user supplied content as the next version.
func (s *DraftService) SetManual(ctx context.Context, sectionID string, content string) (*model.SectionSnapshot, error) {
	snapshot, err := s.versions.Append(ctx, sectionID, content, model.OperationManual, "manual edit")
	if err != nil {
		return nil, err
	}
	s.warnUnresolved(ctx, sectionID, snapshot.CitationKeys)
	return snapshot, nil
}

// SectionResult reports the outcome of one section in a batch run.
type SectionResult struct {
	SectionID string
	Snapshot  *model.SectionSnapshot
	Err       error
}

// DraftAll drafts every outline section with bounded parallelism. Sections
// are independent: one failure never stops the others, and per-section
// version counters stay consistent because appends serialize per section.
func (s *DraftService) DraftAll(ctx context.Context, guidance string, focus []string) ([]SectionResult, error) {
	return s.runAll(ctx, func(gctx context.Context, sectionID string) (*model.SectionSnapshot, error) {
		return s.Draft(gctx, sectionID, guidance, focus)
	})
}

// ReviseAll revises every outline section that already has a draft.
func (s *DraftService) ReviseAll(ctx context.Context, feedback string) ([]SectionResult, error) {
	if strings.TrimSpace(feedback) == "" {
		return nil, fmt.Errorf("%w: feedback is required", appErr.ErrInvalid)
	}
	return s.runAll(ctx, func(gctx context.Context, sectionID string) (*model.SectionSnapshot, error) {
		return s.Revise(gctx, sectionID, feedback)
	})
}

func (s *DraftService) runAll(ctx context.Context, op func(context.Context, string) (*model.SectionSnapshot, error)) ([]SectionResult, error) {
	sections, err := s.sections.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: no outline sections", appErr.ErrNotFound)
	}
	results := make([]SectionResult, len(sections))
	var g errgroup.Group
	g.SetLimit(s.parallel)
	for i, section := range sections {
		g.Go(func() error {
			snapshot, err := op(ctx, section.ID)
			results[i] = SectionResult{SectionID: section.ID, Snapshot: snapshot, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// Organize condenses the corpus into structured research notes and stores
// the result as a note source so later drafting passes can draw on it.
func (s *DraftService) Organize(ctx context.Context, topic string, focus string) (*model.SourceDocument, string, error) {
	docs, err := s.corpus.List(ctx)
	if err != nil {
		return nil, "", err
	}
	if len(docs) == 0 {
		return nil, "", fmt.Errorf("%w: corpus is empty", appErr.ErrNotFound)
	}
	material, err := s.buildOrganizeMaterial(ctx, docs)
	if err != nil {
		return nil, "", err
	}
	organized, err := s.mgr.OrganizeResearch(ctx, topic, focus, material)
	if err != nil {
		return nil, "", err
	}
	return s.corpus.Add(ctx, AddSourceInput{
		Kind:   model.SourceKindNote,
		Title:  "Organized Research Notes",
		Text:   organized,
		Origin: "research organize",
	})
}

// buildMaterial renders assembled fragments into the prompt's source block,
// labelling each with the key the model should cite it by.
func (s *DraftService) buildMaterial(ctx context.Context, payload *model.ContextPayload) (string, error) {
	if len(payload.Fragments) == 0 {
		return "", nil
	}
	sourceIDs := make([]string, 0, len(payload.Fragments))
	for _, f := range payload.Fragments {
		sourceIDs = append(sourceIDs, f.SourceID)
	}
	keys, err := s.citations.KeysBySource(ctx, sourceIDs)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i, f := range payload.Fragments {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("--- ")
		b.WriteString(f.Title)
		if key, ok := keys[f.SourceID]; ok {
			fmt.Fprintf(&b, " (cite as [CITE:%s])", key)
		}
		if f.Truncated {
			b.WriteString(" (truncated)")
		}
		b.WriteString(" ---\n")
		b.WriteString(f.Excerpt)
	}
	return b.String(), nil
}

func (s *DraftService) buildOrganizeMaterial(ctx context.Context, docs []model.SourceDocument) (string, error) {
	sourceIDs := make([]string, 0, len(docs))
	for _, doc := range docs {
		sourceIDs = append(sourceIDs, doc.ID)
	}
	keys, err := s.citations.KeysBySource(ctx, sourceIDs)
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(docs))
	for _, doc := range docs {
		line := "- " + doc.Title
		if key, ok := keys[doc.ID]; ok {
			line += fmt.Sprintf(" (cite as [CITE:%s])", key)
		}
		line += ": " + summarizeText(doc.Text, 600)
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func (s *DraftService) sectionTitle(ctx context.Context, sectionID string) string {
	section, err := s.sections.GetByID(ctx, sectionID)
	if err != nil {
		return sectionID
	}
	return section.Title
}

func (s *DraftService) warnUnresolved(ctx context.Context, sectionID string, keys []string) {
	if len(keys) == 0 {
		return
	}
	missing, err := s.citations.Unresolved(ctx, keys)
	if err != nil || len(missing) == 0 {
		return
	}
	logutil.GetLogger(ctx).Warn("snapshot cites unknown keys",
		zap.String("section_id", sectionID),
		zap.Error(fmt.Errorf("%w: %s", appErr.ErrUnresolvedCitation, strings.Join(missing, ", "))))
}

func sectionObjective(section *model.Section) string {
	parts := make([]string, 0, 1+len(section.Objectives)+len(section.KeyPoints))
	parts = append(parts, section.Title)
	parts = append(parts, section.Objectives...)
	parts = append(parts, section.KeyPoints...)
	return strings.Join(parts, ". ")
}

// summarizeText cuts text to roughly maxChars at a word boundary, collapsing
// newlines so the result stays a single line.
func summarizeText(text string, maxChars int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= maxChars {
		return text
	}
	cut := strings.LastIndex(text[:maxChars], " ")
	if cut <= 0 {
		cut = maxChars
	}
	return text[:cut] + "..."
}
