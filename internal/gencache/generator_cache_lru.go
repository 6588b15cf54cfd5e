package gencache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/papergen/internal/ai"
)

// WrapLruCacheToGenerator puts an in-memory cache in front of g so repeated
// prompts inside one run never leave the process.
func WrapLruCacheToGenerator(g ai.IGenerator, size int, ttl time.Duration) ai.IGenerator {
	if g == nil || size <= 0 || ttl <= 0 {
		return g
	}
	return &lruGenerator{
		next:  g,
		cache: expirable.NewLRU[string, string](size, nil, ttl),
	}
}

type lruGenerator struct {
	next  ai.IGenerator
	cache *expirable.LRU[string, string]
}

func (l *lruGenerator) Name() string {
	if l == nil || l.next == nil {
		return ""
	}
	return l.next.Name()
}

func (l *lruGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if l == nil || l.next == nil {
		return "", nil
	}
	cacheKey, _ := buildCacheKey(l.next.Name(), prompt)
	if cached, ok := l.cache.Get(cacheKey); ok {
		logutil.GetLogger(ctx).Debug("generation cache hit (lru)")
		return cached, nil
	}
	res, err := l.next.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	l.cache.Add(cacheKey, res)
	return res, nil
}
