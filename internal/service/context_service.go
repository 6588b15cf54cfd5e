package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/papergen/internal/model"
	appErr "github.com/xxxsen/papergen/internal/pkg/errors"
	"github.com/xxxsen/papergen/internal/pkg/tokenutil"
	"github.com/xxxsen/papergen/internal/repo"
)

// AssembleRequest describes one context assembly. Objective and guidance are
// always carried verbatim; only source excerpts compete for the rest of the
// budget.
type AssembleRequest struct {
	Objective string
	Guidance  string
	Focus     []string
	MaxTokens int
}

// ContextService builds the bounded source context fed to each generation
// call. Assembly is deterministic: the same corpus, objective, guidance and
// budget always produce the same payload.
type ContextService struct {
	sources *repo.SourceRepo
}

func NewContextService(sources *repo.SourceRepo) *ContextService {
	return &ContextService{sources: sources}
}

// Assemble loads the corpus and packs the highest ranked documents into the
// token budget.
func (s *ContextService) Assemble(ctx context.Context, req AssembleRequest) (*model.ContextPayload, error) {
	docs, err := s.sources.List(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := AssembleContext(docs, req)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Debug("context assembled",
		zap.Int("corpus_size", len(docs)),
		zap.Int("fragments", len(payload.Fragments)),
		zap.Int("total_tokens", payload.TotalTokens),
		zap.Int("max_tokens", payload.MaxTokens))
	return payload, nil
}

// AssembleContext packs documents into a token budget. Objective and
// guidance are reserved first and never truncated; documents are ranked by
// keyword overlap, included whole in rank order, and the first document that
// would overflow is cut at a paragraph boundary before assembly stops.
func AssembleContext(docs []model.SourceDocument, req AssembleRequest) (*model.ContextPayload, error) {
	if req.MaxTokens <= 0 {
		return nil, fmt.Errorf("%w: max tokens must be positive, got %d", appErr.ErrInvalid, req.MaxTokens)
	}
	objectiveCost := tokenutil.Estimate(req.Objective)
	guidanceCost := tokenutil.Estimate(req.Guidance)
	remaining := req.MaxTokens - objectiveCost - guidanceCost
	if remaining < 0 {
		return nil, fmt.Errorf("%w: objective and guidance alone need %d tokens, budget is %d",
			appErr.ErrContextOverflow, objectiveCost+guidanceCost, req.MaxTokens)
	}

	payload := &model.ContextPayload{
		Objective:   req.Objective,
		Guidance:    req.Guidance,
		Fragments:   make([]model.ContextFragment, 0, len(docs)),
		TotalTokens: objectiveCost + guidanceCost,
		MaxTokens:   req.MaxTokens,
	}

	for _, doc := range rankDocuments(docs, req.Objective, req.Focus) {
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}
		cost := tokenutil.Estimate(doc.Text)
		if cost <= remaining {
			payload.Fragments = append(payload.Fragments, model.ContextFragment{
				SourceID: doc.ID,
				Title:    doc.Title,
				Excerpt:  doc.Text,
				Tokens:   cost,
			})
			payload.TotalTokens += cost
			remaining -= cost
			continue
		}
		// First document that does not fit: keep whole paragraphs up to the
		// remaining space, then stop ranking lower documents entirely.
		excerpt, ok := tokenutil.TruncateToBudget(doc.Text, remaining)
		if ok {
			truncCost := tokenutil.Estimate(excerpt)
			payload.Fragments = append(payload.Fragments, model.ContextFragment{
				SourceID:  doc.ID,
				Title:     doc.Title,
				Excerpt:   excerpt,
				Tokens:    truncCost,
				Truncated: true,
			})
			payload.TotalTokens += truncCost
		}
		break
	}
	return payload, nil
}

type rankedDoc struct {
	doc   model.SourceDocument
	score int
}

// rankDocuments orders the corpus by a cheap keyword overlap signal. Title
// hits weigh 3, focus term hits 2, body hits 1. Ties fall back to ingestion
// order so ranking never depends on map iteration.
func rankDocuments(docs []model.SourceDocument, objective string, focus []string) []model.SourceDocument {
	keywords := objectiveKeywords(objective)
	focusTerms := make([]string, 0, len(focus))
	for _, term := range focus {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			focusTerms = append(focusTerms, term)
		}
	}

	ranked := make([]rankedDoc, 0, len(docs))
	for _, doc := range docs {
		titleWords := wordSet(doc.Title)
		bodyWords := wordSet(doc.Text)
		score := 0
		for kw := range keywords {
			if titleWords[kw] {
				score += 3
			}
			if bodyWords[kw] {
				score++
			}
		}
		for _, term := range focusTerms {
			if termMatches(term, titleWords) || termMatches(term, bodyWords) {
				score += 2
			}
		}
		ranked = append(ranked, rankedDoc{doc: doc, score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if ranked[i].doc.AddedAt != ranked[j].doc.AddedAt {
			return ranked[i].doc.AddedAt < ranked[j].doc.AddedAt
		}
		return ranked[i].doc.ID < ranked[j].doc.ID
	})

	ordered := make([]model.SourceDocument, 0, len(ranked))
	for _, r := range ranked {
		ordered = append(ordered, r.doc)
	}
	return ordered
}

var rankingStopWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "into": true,
	"over": true, "their": true, "which": true, "about": true, "these": true,
	"those": true, "have": true, "will": true, "been": true, "were": true,
	"should": true, "would": true, "section": true,
}

// objectiveKeywords extracts the ranking signal terms from the objective
// text: lowercase words of at least four letters minus filler words.
func objectiveKeywords(objective string) map[string]bool {
	keywords := make(map[string]bool)
	for word := range wordSet(objective) {
		if len(word) < 4 || rankingStopWords[word] {
			continue
		}
		keywords[word] = true
	}
	return keywords
}

// termMatches reports whether every word of a focus term appears in the set.
func termMatches(term string, words map[string]bool) bool {
	fields := strings.Fields(term)
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if !words[f] {
			return false
		}
	}
	return true
}

func wordSet(text string) map[string]bool {
	words := make(map[string]bool)
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	}) {
		words[word] = true
	}
	return words
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 127
}
