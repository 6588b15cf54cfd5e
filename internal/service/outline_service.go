package service

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/papergen/internal/ai"
	"github.com/xxxsen/papergen/internal/model"
	appErr "github.com/xxxsen/papergen/internal/pkg/errors"
	"github.com/xxxsen/papergen/internal/pkg/timeutil"
	"github.com/xxxsen/papergen/internal/repo"
)

const defaultWordTarget = 800

// OutlineService maintains the paper's section plan. Sections come either
// from a generated outline or from user supplied JSON; each section then
// grows its own version history.
type OutlineService struct {
	sections *repo.SectionRepo
	mgr      *ai.Manager
}

func NewOutlineService(sections *repo.SectionRepo, mgr *ai.Manager) *OutlineService {
	return &OutlineService{sections: sections, mgr: mgr}
}

// Generate asks the model for an outline and persists it. An existing
// outline is only replaced when force is set; the sections' version history
// survives replacement.
func (s *OutlineService) Generate(ctx context.Context, topic string, sectionCount int, notes string, force bool) ([]model.Section, error) {
	outline, err := s.mgr.GenerateOutline(ctx, topic, sectionCount, notes)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, outline, force)
}

// Import persists an outline from user supplied JSON. The payload uses the
// same shape the model produces: {"sections": [...]}.
func (s *OutlineService) Import(ctx context.Context, raw []byte, force bool) ([]model.Section, error) {
	outline, err := ai.ParseOutline(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", appErr.ErrInvalid, err.Error())
	}
	return s.persist(ctx, outline, force)
}

func (s *OutlineService) List(ctx context.Context) ([]model.Section, error) {
	return s.sections.List(ctx)
}

func (s *OutlineService) Show(ctx context.Context, id string) (*model.Section, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: section id is required", appErr.ErrInvalid)
	}
	return s.sections.GetByID(ctx, id)
}

func (s *OutlineService) persist(ctx context.Context, outline []ai.OutlineSection, force bool) ([]model.Section, error) {
	existing, err := s.sections.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 && !force {
		return nil, fmt.Errorf("%w: an outline with %d sections already exists", appErr.ErrConflict, len(existing))
	}
	for _, old := range existing {
		if err := s.sections.Delete(ctx, old.ID); err != nil {
			return nil, err
		}
	}

	now := timeutil.NowUnix()
	sections := make([]model.Section, 0, len(outline))
	for _, item := range outline {
		target := item.WordTarget
		if target <= 0 {
			target = defaultWordTarget
		}
		section := model.Section{
			ID:         item.ID,
			Title:      item.Title,
			Level:      item.Level,
			Position:   item.Order,
			Objectives: item.Objectives,
			KeyPoints:  item.KeyPoints,
			WordTarget: target,
			Guidance:   item.Guidance,
			Ctime:      now,
			Mtime:      now,
		}
		if err := s.sections.Create(ctx, &section); err != nil {
			return nil, err
		}
		sections = append(sections, section)
	}
	logutil.GetLogger(ctx).Info("outline saved",
		zap.Int("sections", len(sections)),
		zap.Bool("replaced", len(existing) > 0))
	return sections, nil
}
