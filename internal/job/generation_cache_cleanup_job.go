package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/papergen/internal/pkg/timeutil"
	"github.com/xxxsen/papergen/internal/repo"
)

// GenerationCacheCleanupJob evicts expired rows from the generation cache.
// The read path drops expired entries lazily, so this only matters for
// entries that stopped being requested.
type GenerationCacheCleanupJob struct {
	cache *repo.GenerationCacheRepo
}

func NewGenerationCacheCleanupJob(cache *repo.GenerationCacheRepo) *GenerationCacheCleanupJob {
	return &GenerationCacheCleanupJob{cache: cache}
}

func (j *GenerationCacheCleanupJob) Name() string {
	return "generation_cache_cleanup"
}

func (j *GenerationCacheCleanupJob) Run(ctx context.Context) error {
	if j.cache == nil {
		return nil
	}
	deleted, err := j.cache.DeleteExpired(ctx, timeutil.NowUnix())
	if err != nil {
		return err
	}
	if deleted > 0 {
		logutil.GetLogger(ctx).Info("evicted expired generation cache rows", zap.Int64("count", deleted))
	}
	return nil
}
