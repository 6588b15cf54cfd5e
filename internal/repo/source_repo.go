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

type SourceRepo struct {
	db *sql.DB
}

func NewSourceRepo(db *sql.DB) *SourceRepo {
	return &SourceRepo{db: db}
}

func (r *SourceRepo) Create(ctx context.Context, doc *model.SourceDocument) error {
	authors, err := json.Marshal(doc.Authors)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"id":          doc.ID,
		"kind":        string(doc.Kind),
		"title":       doc.Title,
		"content":     doc.Text,
		"authors":     string(authors),
		"year":        doc.Year,
		"url":         doc.URL,
		"origin":      doc.Origin,
		"archive_key": doc.ArchiveKey,
		"ctime":       doc.AddedAt,
	}
	sqlStr, args, err := builder.BuildInsert("source_documents", []map[string]interface{}{data})
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

func (r *SourceRepo) GetByID(ctx context.Context, id string) (*model.SourceDocument, error) {
	where := map[string]interface{}{
		"id": id,
	}
	sqlStr, args, err := builder.BuildSelect("source_documents", where, sourceColumns())
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
	return scanSource(rows)
}

// List returns every source in insertion order. The order feeds ranking
// tie-breaks, so it must be stable across calls.
func (r *SourceRepo) List(ctx context.Context) ([]model.SourceDocument, error) {
	where := map[string]interface{}{
		"_orderby": "ctime asc, id asc",
	}
	sqlStr, args, err := builder.BuildSelect("source_documents", where, sourceColumns())
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	docs := make([]model.SourceDocument, 0)
	for rows.Next() {
		doc, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (r *SourceRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM source_documents WHERE id = ?", id)
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

func (r *SourceRepo) Count(ctx context.Context) (int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT COUNT(1) FROM source_documents")
	if err != nil {
		return 0, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return 0, rows.Err()
	}
	var count int
	if err := rows.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func sourceColumns() []string {
	return []string{"id", "kind", "title", "content", "authors", "year", "url", "origin", "archive_key", "ctime"}
}

func scanSource(rows *sql.Rows) (*model.SourceDocument, error) {
	var doc model.SourceDocument
	var kind string
	var authors string
	if err := rows.Scan(&doc.ID, &kind, &doc.Title, &doc.Text, &authors, &doc.Year, &doc.URL, &doc.Origin, &doc.ArchiveKey, &doc.AddedAt); err != nil {
		return nil, err
	}
	doc.Kind = model.SourceKind(kind)
	if authors != "" {
		if err := json.Unmarshal([]byte(authors), &doc.Authors); err != nil {
			return nil, err
		}
	}
	return &doc, nil
}
