package gencache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/papergen/internal/ai"
	"github.com/xxxsen/papergen/internal/repo"
)

type countingGenerator struct {
	name  string
	reply string
	calls int
}

var _ ai.IGenerator = (*countingGenerator)(nil)

func (c *countingGenerator) Name() string {
	return c.name
}

func (c *countingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	c.calls++
	return c.reply, nil
}

func openTestRepo(t *testing.T) *repo.GenerationCacheRepo {
	t.Helper()
	db, err := repo.Open(filepath.Join(t.TempDir(), "papergen.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repo.ApplyMigrations(db))
	return repo.NewGenerationCacheRepo(db)
}

func TestLruCacheAvoidsRepeatCalls(t *testing.T) {
	inner := &countingGenerator{name: "stub:model", reply: "answer"}
	g := WrapLruCacheToGenerator(inner, 16, time.Minute)

	out, err := g.Generate(context.Background(), "prompt-a")
	require.NoError(t, err)
	require.Equal(t, "answer", out)
	out, err = g.Generate(context.Background(), "prompt-a")
	require.NoError(t, err)
	require.Equal(t, "answer", out)
	require.Equal(t, 1, inner.calls)

	_, err = g.Generate(context.Background(), "prompt-b")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestDBCachePersistsAcrossWrappers(t *testing.T) {
	cacheRepo := openTestRepo(t)

	first := &countingGenerator{name: "stub:model", reply: "answer"}
	g1 := WrapDBCacheToGenerator(first, cacheRepo, time.Hour)
	out, err := g1.Generate(context.Background(), "prompt-a")
	require.NoError(t, err)
	require.Equal(t, "answer", out)
	require.Equal(t, 1, first.calls)

	// A fresh wrapper over the same repo sees the stored response.
	second := &countingGenerator{name: "stub:model", reply: "different"}
	g2 := WrapDBCacheToGenerator(second, cacheRepo, time.Hour)
	out, err = g2.Generate(context.Background(), "prompt-a")
	require.NoError(t, err)
	require.Equal(t, "answer", out)
	require.Equal(t, 0, second.calls)

	count, err := cacheRepo.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestDBCacheKeyIncludesGeneratorName(t *testing.T) {
	cacheRepo := openTestRepo(t)

	a := &countingGenerator{name: "gemini:flash", reply: "from-a"}
	b := &countingGenerator{name: "openai:gpt", reply: "from-b"}
	ga := WrapDBCacheToGenerator(a, cacheRepo, time.Hour)
	gb := WrapDBCacheToGenerator(b, cacheRepo, time.Hour)

	out, err := ga.Generate(context.Background(), "same prompt")
	require.NoError(t, err)
	require.Equal(t, "from-a", out)
	out, err = gb.Generate(context.Background(), "same prompt")
	require.NoError(t, err)
	require.Equal(t, "from-b", out)
}
