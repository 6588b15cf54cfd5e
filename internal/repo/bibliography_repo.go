package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/papergen/internal/model"
	appErr "github.com/xxxsen/papergen/internal/pkg/errors"
)

type BibliographyRepo struct {
	db *sqlx.DB
}

func NewBibliographyRepo(db *sql.DB) *BibliographyRepo {
	return &BibliographyRepo{db: sqlx.NewDb(db, "sqlite")}
}

type bibliographyRow struct {
	Key      string `db:"entry_key"`
	Title    string `db:"title"`
	Authors  string `db:"authors"`
	Year     string `db:"year"`
	Journal  string `db:"journal"`
	DOI      string `db:"doi"`
	URL      string `db:"url"`
	SourceID string `db:"source_id"`
	Ctime    int64  `db:"ctime"`
	Mtime    int64  `db:"mtime"`
}

const bibliographyUpsertSQL = `
INSERT INTO bibliography_entries
    (entry_key, title, authors, year, journal, doi, url, source_id, ctime, mtime)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (entry_key) DO UPDATE SET
    title     = CASE WHEN bibliography_entries.title = ''              THEN excluded.title     ELSE bibliography_entries.title END,
    authors   = CASE WHEN bibliography_entries.authors IN ('', '[]')   THEN excluded.authors   ELSE bibliography_entries.authors END,
    year      = CASE WHEN bibliography_entries.year = ''               THEN excluded.year      ELSE bibliography_entries.year END,
    journal   = CASE WHEN bibliography_entries.journal = ''            THEN excluded.journal   ELSE bibliography_entries.journal END,
    doi       = CASE WHEN bibliography_entries.doi = ''                THEN excluded.doi       ELSE bibliography_entries.doi END,
    url       = CASE WHEN bibliography_entries.url = ''                THEN excluded.url       ELSE bibliography_entries.url END,
    source_id = CASE WHEN bibliography_entries.source_id = ''          THEN excluded.source_id ELSE bibliography_entries.source_id END,
    mtime     = excluded.mtime
`

// Upsert inserts a new entry or enriches an existing one. Enrichment only
// fills fields that are still empty; a single statement keeps concurrent
// registrations of the same key atomic.
func (r *BibliographyRepo) Upsert(ctx context.Context, entry *model.BibliographyEntry) error {
	authors, err := json.Marshal(entry.Authors)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, bibliographyUpsertSQL,
		entry.Key, entry.Title, string(authors), entry.Year, entry.Journal,
		entry.DOI, entry.URL, entry.SourceID, entry.Ctime, entry.Mtime)
	return err
}

func (r *BibliographyRepo) GetByKey(ctx context.Context, key string) (*model.BibliographyEntry, error) {
	var row bibliographyRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM bibliography_entries WHERE entry_key = ?", key)
	if err == sql.ErrNoRows {
		return nil, appErr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rowToEntry(&row)
}

func (r *BibliographyRepo) ListByKeys(ctx context.Context, keys []string) ([]model.BibliographyEntry, error) {
	if len(keys) == 0 {
		return []model.BibliographyEntry{}, nil
	}
	query, args, err := sqlx.In("SELECT * FROM bibliography_entries WHERE entry_key IN (?) ORDER BY entry_key ASC", keys)
	if err != nil {
		return nil, err
	}
	var rows []bibliographyRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return rowsToEntries(rows)
}

func (r *BibliographyRepo) ListBySourceIDs(ctx context.Context, sourceIDs []string) ([]model.BibliographyEntry, error) {
	if len(sourceIDs) == 0 {
		return []model.BibliographyEntry{}, nil
	}
	query, args, err := sqlx.In("SELECT * FROM bibliography_entries WHERE source_id IN (?) ORDER BY entry_key ASC", sourceIDs)
	if err != nil {
		return nil, err
	}
	var rows []bibliographyRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return rowsToEntries(rows)
}

func (r *BibliographyRepo) List(ctx context.Context) ([]model.BibliographyEntry, error) {
	var rows []bibliographyRow
	if err := r.db.SelectContext(ctx, &rows, "SELECT * FROM bibliography_entries ORDER BY entry_key ASC"); err != nil {
		return nil, err
	}
	return rowsToEntries(rows)
}

func (r *BibliographyRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(1) FROM bibliography_entries"); err != nil {
		return 0, err
	}
	return count, nil
}

func rowToEntry(row *bibliographyRow) (*model.BibliographyEntry, error) {
	entry := &model.BibliographyEntry{
		Key:      row.Key,
		Title:    row.Title,
		Year:     row.Year,
		Journal:  row.Journal,
		DOI:      row.DOI,
		URL:      row.URL,
		SourceID: row.SourceID,
		Ctime:    row.Ctime,
		Mtime:    row.Mtime,
	}
	if row.Authors != "" {
		if err := json.Unmarshal([]byte(row.Authors), &entry.Authors); err != nil {
			return nil, err
		}
	}
	return entry, nil
}

func rowsToEntries(rows []bibliographyRow) ([]model.BibliographyEntry, error) {
	entries := make([]model.BibliographyEntry, 0, len(rows))
	for i := range rows {
		entry, err := rowToEntry(&rows[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}
