package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/papergen/internal/model"
	appErr "github.com/xxxsen/papergen/internal/pkg/errors"
	"github.com/xxxsen/papergen/internal/pkg/timeutil"
	"github.com/xxxsen/papergen/internal/repo"
)

// VersionService keeps the append-only revision history of every section.
// Snapshots are never edited or deleted; each write produces the next
// contiguous version number for its section.
type VersionService struct {
	snapshots *repo.SnapshotRepo
	mu        sync.Mutex
	locks     map[string]*sync.Mutex
}

func NewVersionService(snapshots *repo.SnapshotRepo) *VersionService {
	return &VersionService{snapshots: snapshots, locks: make(map[string]*sync.Mutex)}
}

func (s *VersionService) sectionLock(sectionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sectionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sectionID] = lock
	}
	return lock
}

// Append stores content as the next version of the section. Writes to the
// same section are serialized so concurrent callers cannot race on the
// version counter.
func (s *VersionService) Append(ctx context.Context, sectionID string, content string, operation model.SnapshotOperation, detail string) (*model.SectionSnapshot, error) {
	if sectionID == "" {
		return nil, fmt.Errorf("%w: section id is required", appErr.ErrInvalid)
	}
	lock := s.sectionLock(sectionID)
	lock.Lock()
	defer lock.Unlock()
	versionNumber := 1
	if latest, err := s.snapshots.GetLatestVersion(ctx, sectionID); err == nil {
		versionNumber = latest + 1
	}
	snapshot := &model.SectionSnapshot{
		ID:              newID(),
		SectionID:       sectionID,
		Version:         versionNumber,
		Content:         content,
		Operation:       operation,
		OperationDetail: detail,
		WordCount:       countWords(content),
		CitationKeys:    ExtractCitationKeys(content),
		Ctime:           timeutil.NowUnix(),
	}
	if err := s.snapshots.Create(ctx, snapshot); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("section snapshot saved",
		zap.String("section_id", sectionID),
		zap.Int("version", versionNumber),
		zap.String("operation", string(operation)),
		zap.Int("word_count", snapshot.WordCount))
	return snapshot, nil
}

// Get returns the snapshot of a section at the given version. Version 0
// resolves to the latest version.
func (s *VersionService) Get(ctx context.Context, sectionID string, version int) (*model.SectionSnapshot, error) {
	if sectionID == "" {
		return nil, fmt.Errorf("%w: section id is required", appErr.ErrInvalid)
	}
	if version < 0 {
		return nil, s.versionRangeErr(ctx, sectionID, version)
	}
	if version == 0 {
		snapshot, err := s.snapshots.GetLatest(ctx, sectionID)
		if errors.Is(err, appErr.ErrNotFound) {
			return nil, fmt.Errorf("%w: section %s has no versions", appErr.ErrVersionNotFound, sectionID)
		}
		return snapshot, err
	}
	snapshot, err := s.snapshots.GetByVersion(ctx, sectionID, version)
	if errors.Is(err, appErr.ErrNotFound) {
		return nil, s.versionRangeErr(ctx, sectionID, version)
	}
	return snapshot, err
}

func (s *VersionService) versionRangeErr(ctx context.Context, sectionID string, requested int) error {
	latest, err := s.snapshots.GetLatestVersion(ctx, sectionID)
	if err != nil {
		return fmt.Errorf("%w: section %s has no versions", appErr.ErrVersionNotFound, sectionID)
	}
	return fmt.Errorf("%w: section %s has versions 1..%d, requested %d", appErr.ErrVersionNotFound, sectionID, latest, requested)
}

// History lists the version metadata of a section, oldest first. A section
// without snapshots yields an empty list.
func (s *VersionService) History(ctx context.Context, sectionID string) ([]model.SectionSnapshotSummary, error) {
	return s.snapshots.ListSummaries(ctx, sectionID)
}

// Diff compares two versions of a section. Either argument may be 0 to mean
// the current version. Comparing a version against itself yields no lines.
func (s *VersionService) Diff(ctx context.Context, sectionID string, fromVersion, toVersion int) ([]model.DiffLine, error) {
	from, err := s.Get(ctx, sectionID, fromVersion)
	if err != nil {
		return nil, err
	}
	to, err := s.Get(ctx, sectionID, toVersion)
	if err != nil {
		return nil, err
	}
	if from.Version == to.Version {
		return []model.DiffLine{}, nil
	}
	return DiffLines(from.Content, to.Content), nil
}

// Revert appends a new version whose content is copied from targetVersion.
// History is preserved; nothing is rewound.
func (s *VersionService) Revert(ctx context.Context, sectionID string, targetVersion int) (*model.SectionSnapshot, error) {
	if targetVersion <= 0 {
		return nil, fmt.Errorf("%w: revert target must be an explicit version, got %d", appErr.ErrVersionNotFound, targetVersion)
	}
	target, err := s.Get(ctx, sectionID, targetVersion)
	if err != nil {
		return nil, err
	}
	return s.Append(ctx, sectionID, target.Content, model.OperationRevert, fmt.Sprintf("revert to version %d", targetVersion))
}

// Current returns the latest snapshot of a section.
func (s *VersionService) Current(ctx context.Context, sectionID string) (*model.SectionSnapshot, error) {
	return s.Get(ctx, sectionID, 0)
}

// SectionIDs lists every section that has at least one snapshot.
func (s *VersionService) SectionIDs(ctx context.Context) ([]string, error) {
	return s.snapshots.ListSectionIDs(ctx)
}

// DiffLines computes a line level diff between two texts. Lines are reduced
// to placeholder runes before diffing so changes never split mid-line.
func DiffLines(oldText, newText string) []model.DiffLine {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)
	lines := make([]model.DiffLine, 0)
	for _, d := range diffs {
		parts := strings.Split(d.Text, "\n")
		if len(parts) > 0 && parts[len(parts)-1] == "" {
			parts = parts[:len(parts)-1]
		}
		for _, part := range parts {
			lines = append(lines, model.DiffLine{Type: diffLineType(d.Type), Text: part})
		}
	}
	return lines
}

func diffLineType(op diffmatchpatch.Operation) model.DiffLineType {
	switch op {
	case diffmatchpatch.DiffInsert:
		return model.DiffLineAdded
	case diffmatchpatch.DiffDelete:
		return model.DiffLineRemoved
	default:
		return model.DiffLineUnchanged
	}
}

func countWords(text string) int {
	return len(strings.Fields(text))
}
