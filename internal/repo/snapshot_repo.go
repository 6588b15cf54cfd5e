package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/papergen/internal/model"
	"github.com/xxxsen/papergen/internal/pkg/dbutil"
	appErr "github.com/xxxsen/papergen/internal/pkg/errors"
)

type SnapshotRepo struct {
	db *sql.DB
}

func NewSnapshotRepo(db *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

func (r *SnapshotRepo) Create(ctx context.Context, snapshot *model.SectionSnapshot) error {
	keys, err := json.Marshal(snapshot.CitationKeys)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"id":               snapshot.ID,
		"section_id":       snapshot.SectionID,
		"version":          snapshot.Version,
		"content":          snapshot.Content,
		"operation":        string(snapshot.Operation),
		"operation_detail": snapshot.OperationDetail,
		"word_count":       snapshot.WordCount,
		"citation_keys":    string(keys),
		"ctime":            snapshot.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("section_snapshots", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *SnapshotRepo) GetLatestVersion(ctx context.Context, sectionID string) (int, error) {
	where := map[string]interface{}{
		"section_id": sectionID,
		"_orderby":   "version desc",
		"_limit":     []uint{0, 1},
	}
	sqlStr, args, err := builder.BuildSelect("section_snapshots", where, []string{"version"})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return 0, appErr.ErrNotFound
	}
	var version int
	if err := rows.Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

func (r *SnapshotRepo) GetByVersion(ctx context.Context, sectionID string, version int) (*model.SectionSnapshot, error) {
	where := map[string]interface{}{
		"section_id": sectionID,
		"version":    version,
	}
	sqlStr, args, err := builder.BuildSelect("section_snapshots", where, snapshotColumns())
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	return scanSnapshot(rows)
}

func (r *SnapshotRepo) GetLatest(ctx context.Context, sectionID string) (*model.SectionSnapshot, error) {
	where := map[string]interface{}{
		"section_id": sectionID,
		"_orderby":   "version desc",
		"_limit":     []uint{0, 1},
	}
	sqlStr, args, err := builder.BuildSelect("section_snapshots", where, snapshotColumns())
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	return scanSnapshot(rows)
}

func (r *SnapshotRepo) List(ctx context.Context, sectionID string) ([]model.SectionSnapshot, error) {
	where := map[string]interface{}{
		"section_id": sectionID,
		"_orderby":   "version asc",
	}
	sqlStr, args, err := builder.BuildSelect("section_snapshots", where, snapshotColumns())
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	snapshots := make([]model.SectionSnapshot, 0)
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *s)
	}
	return snapshots, rows.Err()
}

func (r *SnapshotRepo) ListSummaries(ctx context.Context, sectionID string) ([]model.SectionSnapshotSummary, error) {
	where := map[string]interface{}{
		"section_id": sectionID,
		"_orderby":   "version asc",
	}
	sqlStr, args, err := builder.BuildSelect("section_snapshots", where, []string{"section_id", "version", "operation", "word_count", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	summaries := make([]model.SectionSnapshotSummary, 0)
	for rows.Next() {
		var s model.SectionSnapshotSummary
		var op string
		if err := rows.Scan(&s.SectionID, &s.Version, &op, &s.WordCount, &s.Ctime); err != nil {
			return nil, err
		}
		s.Operation = model.SnapshotOperation(op)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *SnapshotRepo) ListSectionIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT section_id FROM section_snapshots ORDER BY section_id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func snapshotColumns() []string {
	return []string{"id", "section_id", "version", "content", "operation", "operation_detail", "word_count", "citation_keys", "ctime"}
}

func scanSnapshot(rows *sql.Rows) (*model.SectionSnapshot, error) {
	var s model.SectionSnapshot
	var op string
	var keys string
	if err := rows.Scan(&s.ID, &s.SectionID, &s.Version, &s.Content, &op, &s.OperationDetail, &s.WordCount, &keys, &s.Ctime); err != nil {
		return nil, err
	}
	s.Operation = model.SnapshotOperation(op)
	if keys != "" {
		if err := json.Unmarshal([]byte(keys), &s.CitationKeys); err != nil {
			return nil, err
		}
	}
	return &s, nil
}
