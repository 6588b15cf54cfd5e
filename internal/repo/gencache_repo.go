package repo

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/papergen/internal/model"
)

type GenerationCacheRepo struct {
	db *sqlx.DB
}

func NewGenerationCacheRepo(db *sql.DB) *GenerationCacheRepo {
	return &GenerationCacheRepo{db: sqlx.NewDb(db, "sqlite")}
}

type generationCacheRow struct {
	Key      string `db:"cache_key"`
	Model    string `db:"model"`
	Response string `db:"response"`
	Ctime    int64  `db:"ctime"`
	ExpireAt int64  `db:"expire_at"`
}

// Get returns the cached response for key. Expired rows are deleted on read
// and reported as a miss; there is no background sweeper.
func (r *GenerationCacheRepo) Get(ctx context.Context, key string, now int64) (string, bool, error) {
	var row generationCacheRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM generation_cache WHERE cache_key = ?", key)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if row.ExpireAt > 0 && row.ExpireAt <= now {
		_, _ = r.db.ExecContext(ctx, "DELETE FROM generation_cache WHERE cache_key = ?", key)
		return "", false, nil
	}
	return row.Response, true, nil
}

func (r *GenerationCacheRepo) Save(ctx context.Context, entry *model.GenerationCacheEntry) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO generation_cache (cache_key, model, response, ctime, expire_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (cache_key) DO UPDATE SET
    model = excluded.model,
    response = excluded.response,
    ctime = excluded.ctime,
    expire_at = excluded.expire_at
`, entry.Key, entry.Model, entry.Response, entry.Ctime, entry.ExpireAt)
	return err
}

func (r *GenerationCacheRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(1) FROM generation_cache"); err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteExpired removes every row whose ttl has passed. The read path
// already drops expired rows lazily, but rows that stop being requested
// would otherwise sit in the db forever.
func (r *GenerationCacheRepo) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM generation_cache WHERE expire_at > 0 AND expire_at <= ?", now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *GenerationCacheRepo) Clear(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM generation_cache")
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
