package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type ManagerConfig struct {
	Timeout           int
	MaxInputChars     int
	RequestsPerMinute int
	RetryWaitSeconds  int
}

// Manager runs the pipeline operations on top of a generator chain. It
// owns request pacing, the per-call timeout, and a single cooldown retry
// when a provider reports rate limiting.
type Manager struct {
	gen     IGenerator
	limiter *rate.Limiter
	cfg     ManagerConfig
}

func NewManager(gen IGenerator, cfg ManagerConfig) *Manager {
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60), 1)
	}
	return &Manager{gen: gen, limiter: limiter, cfg: cfg}
}

type DraftRequest struct {
	SectionTitle string
	Objectives   []string
	KeyPoints    []string
	Guidance     string
	WordTarget   int
	Material     string
}

type ReviseRequest struct {
	SectionTitle string
	CurrentDraft string
	Feedback     string
	Iteration    int
}

func (m *Manager) DraftSection(ctx context.Context, req DraftRequest) (string, error) {
	if strings.TrimSpace(req.SectionTitle) == "" {
		return "", fmt.Errorf("section title is required")
	}
	wordTarget := req.WordTarget
	if wordTarget <= 0 {
		wordTarget = 1000
	}
	return m.generateText(ctx, buildDraftPrompt(req, wordTarget))
}

func (m *Manager) ReviseSection(ctx context.Context, req ReviseRequest) (string, error) {
	if strings.TrimSpace(req.CurrentDraft) == "" {
		return "", fmt.Errorf("current draft is required")
	}
	if req.Iteration <= 0 {
		req.Iteration = 1
	}
	return m.generateText(ctx, buildRevisePrompt(req))
}

func (m *Manager) OrganizeResearch(ctx context.Context, topic string, focus string, material string) (string, error) {
	if strings.TrimSpace(material) == "" {
		return "", fmt.Errorf("no research material to organize")
	}
	return m.generateText(ctx, buildOrganizePrompt(topic, focus, material))
}

func (m *Manager) GenerateOutline(ctx context.Context, topic string, sectionCount int, notes string) ([]OutlineSection, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("paper topic is required")
	}
	if sectionCount <= 0 {
		sectionCount = 5
	}
	if sectionCount > 12 {
		sectionCount = 12
	}
	result, err := m.generateText(ctx, buildOutlinePrompt(topic, sectionCount, notes))
	if err != nil {
		return nil, err
	}
	return ParseOutline(result)
}

func (m *Manager) generateText(ctx context.Context, prompt string) (string, error) {
	if m.gen == nil {
		return "", ErrUnavailable
	}
	if m.cfg.MaxInputChars > 0 && len(prompt) > m.cfg.MaxInputChars {
		return "", fmt.Errorf("prompt length %d exceeds max input chars %d", len(prompt), m.cfg.MaxInputChars)
	}
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return "", classify(err)
		}
	}
	text, err := m.callOnce(ctx, prompt)
	if err == nil {
		return text, nil
	}
	if !IsRateLimited(err) {
		return "", err
	}
	wait := time.Duration(m.cfg.RetryWaitSeconds) * time.Second
	if wait <= 0 {
		wait = 30 * time.Second
	}
	logutil.GetLogger(ctx).Warn("rate limited, retrying once", zap.Duration("wait", wait), zap.Error(err))
	select {
	case <-time.After(wait):
	case <-ctx.Done():
		return "", classify(ctx.Err())
	}
	return m.callOnce(ctx, prompt)
}

// callOnce applies the per-attempt timeout so the retry gets a fresh one.
func (m *Manager) callOnce(ctx context.Context, prompt string) (string, error) {
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
		defer cancel()
	}
	resp, err := m.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("empty ai response")
	}
	return text, nil
}

func (m *Manager) GeneratorName() string {
	if m.gen == nil {
		return ""
	}
	return m.gen.Name()
}

type OutlineSection struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Level      int      `json:"level"`
	Order      int      `json:"order"`
	Objectives []string `json:"objectives"`
	KeyPoints  []string `json:"key_points"`
	WordTarget int      `json:"word_target"`
	Guidance   string   `json:"guidance"`
}

// ParseOutline decodes a model reply into outline sections. Replies wrapped
// in markdown fences or surrounded by prose are tolerated. Sections come
// back renumbered 1..n: explicit positive orders are respected, anything
// else falls back to array order.
func ParseOutline(output string) ([]OutlineSection, error) {
	clean := strings.TrimSpace(output)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		clean = clean[start : end+1]
	}

	var doc struct {
		Sections []OutlineSection `json:"sections"`
	}
	if err := json.Unmarshal([]byte(clean), &doc); err != nil {
		return nil, fmt.Errorf("parse outline: %w", err)
	}
	if len(doc.Sections) == 0 {
		return nil, fmt.Errorf("outline has no sections")
	}

	ordered := true
	for i := range doc.Sections {
		if doc.Sections[i].Order <= 0 {
			ordered = false
			break
		}
	}
	if ordered {
		sort.SliceStable(doc.Sections, func(i, j int) bool {
			return doc.Sections[i].Order < doc.Sections[j].Order
		})
	}

	seen := make(map[string]bool)
	for i := range doc.Sections {
		sec := &doc.Sections[i]
		sec.Title = strings.TrimSpace(sec.Title)
		if sec.Title == "" {
			return nil, fmt.Errorf("outline section %d has no title", i)
		}
		if strings.TrimSpace(sec.ID) != "" {
			sec.ID = SectionSlug(sec.ID)
		} else {
			sec.ID = SectionSlug(sec.Title)
		}
		if sec.ID == "" {
			return nil, fmt.Errorf("outline section %q has no usable id", sec.Title)
		}
		if seen[sec.ID] {
			return nil, fmt.Errorf("outline section id %q appears twice", sec.ID)
		}
		seen[sec.ID] = true
		if sec.Level <= 0 {
			sec.Level = 1
		}
		sec.Order = i + 1
	}
	return doc.Sections, nil
}

// SectionSlug normalizes a section title or id into a stable identifier.
func SectionSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash && b.Len() > 0 {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
