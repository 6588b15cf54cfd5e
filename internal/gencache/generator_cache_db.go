package gencache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/papergen/internal/ai"
	"github.com/xxxsen/papergen/internal/model"
	"github.com/xxxsen/papergen/internal/repo"
)

// WrapDBCacheToGenerator persists responses so reruns of the same pipeline
// step skip the provider entirely. A ttl of zero keeps entries forever.
func WrapDBCacheToGenerator(g ai.IGenerator, cacheRepo *repo.GenerationCacheRepo, ttl time.Duration) ai.IGenerator {
	if g == nil || cacheRepo == nil {
		return g
	}
	return &dbGenerator{next: g, repo: cacheRepo, ttl: ttl}
}

type dbGenerator struct {
	next ai.IGenerator
	repo *repo.GenerationCacheRepo
	ttl  time.Duration
}

func (d *dbGenerator) Name() string {
	if d == nil || d.next == nil {
		return ""
	}
	return d.next.Name()
}

func (d *dbGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if d == nil || d.next == nil {
		return "", nil
	}
	cacheKey, _ := buildCacheKey(d.next.Name(), prompt)
	now := time.Now().Unix()
	if d.repo != nil {
		cached, ok, err := d.repo.Get(ctx, cacheKey, now)
		if err != nil {
			return "", err
		}
		if ok {
			logutil.GetLogger(ctx).Debug("generation cache hit (db)")
			return cached, nil
		}
	}
	res, err := d.next.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if d.repo != nil {
		var expireAt int64
		if d.ttl > 0 {
			expireAt = now + int64(d.ttl/time.Second)
		}
		if err := d.repo.Save(ctx, &model.GenerationCacheEntry{
			Key:      cacheKey,
			Model:    d.next.Name(),
			Response: res,
			Ctime:    now,
			ExpireAt: expireAt,
		}); err != nil {
			logutil.GetLogger(ctx).Warn("failed to cache generation", zap.Error(err))
		}
	}
	return res, nil
}

func buildCacheKey(name, prompt string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "unknown"
	}
	hash := sha256.Sum256([]byte(prompt))
	contentHash := hex.EncodeToString(hash[:])
	return "gen:" + name + ":" + contentHash, contentHash
}
