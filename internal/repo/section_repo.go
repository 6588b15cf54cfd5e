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

type SectionRepo struct {
	db *sql.DB
}

func NewSectionRepo(db *sql.DB) *SectionRepo {
	return &SectionRepo{db: db}
}

func (r *SectionRepo) Create(ctx context.Context, section *model.Section) error {
	objectives, err := json.Marshal(section.Objectives)
	if err != nil {
		return err
	}
	keyPoints, err := json.Marshal(section.KeyPoints)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"id":          section.ID,
		"title":       section.Title,
		"level":       section.Level,
		"position":    section.Position,
		"objectives":  string(objectives),
		"key_points":  string(keyPoints),
		"word_target": section.WordTarget,
		"guidance":    section.Guidance,
		"ctime":       section.Ctime,
		"mtime":       section.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("sections", []map[string]interface{}{data})
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

func (r *SectionRepo) Update(ctx context.Context, section *model.Section) error {
	objectives, err := json.Marshal(section.Objectives)
	if err != nil {
		return err
	}
	keyPoints, err := json.Marshal(section.KeyPoints)
	if err != nil {
		return err
	}
	where := map[string]interface{}{
		"id": section.ID,
	}
	update := map[string]interface{}{
		"title":       section.Title,
		"level":       section.Level,
		"position":    section.Position,
		"objectives":  string(objectives),
		"key_points":  string(keyPoints),
		"word_target": section.WordTarget,
		"guidance":    section.Guidance,
		"mtime":       section.Mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("sections", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *SectionRepo) GetByID(ctx context.Context, id string) (*model.Section, error) {
	where := map[string]interface{}{
		"id": id,
	}
	sqlStr, args, err := builder.BuildSelect("sections", where, sectionColumns())
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
	return scanSection(rows)
}

func (r *SectionRepo) List(ctx context.Context) ([]model.Section, error) {
	where := map[string]interface{}{
		"_orderby": "position asc, id asc",
	}
	sqlStr, args, err := builder.BuildSelect("sections", where, sectionColumns())
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	sections := make([]model.Section, 0)
	for rows.Next() {
		section, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		sections = append(sections, *section)
	}
	return sections, rows.Err()
}

func (r *SectionRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sections WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func sectionColumns() []string {
	return []string{"id", "title", "level", "position", "objectives", "key_points", "word_target", "guidance", "ctime", "mtime"}
}

func scanSection(rows *sql.Rows) (*model.Section, error) {
	var s model.Section
	var objectives, keyPoints string
	if err := rows.Scan(&s.ID, &s.Title, &s.Level, &s.Position, &objectives, &keyPoints, &s.WordTarget, &s.Guidance, &s.Ctime, &s.Mtime); err != nil {
		return nil, err
	}
	if objectives != "" {
		if err := json.Unmarshal([]byte(objectives), &s.Objectives); err != nil {
			return nil, err
		}
	}
	if keyPoints != "" {
		if err := json.Unmarshal([]byte(keyPoints), &s.KeyPoints); err != nil {
			return nil, err
		}
	}
	return &s, nil
}
