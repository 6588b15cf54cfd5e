package service

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/papergen/internal/ai"
	"github.com/xxxsen/papergen/internal/config"
	"github.com/xxxsen/papergen/internal/extract"
	"github.com/xxxsen/papergen/internal/filestore"
	"github.com/xxxsen/papergen/internal/repo"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := repo.Open(filepath.Join(t.TempDir(), "papergen_test.db"))
	require.NoError(t, err)
	require.NoError(t, repo.ApplyMigrations(db))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestVersionService(t *testing.T) *VersionService {
	t.Helper()
	return NewVersionService(repo.NewSnapshotRepo(openTestDB(t)))
}

func newOfflineAIManager(t *testing.T) *ai.Manager {
	t.Helper()
	p, err := ai.NewProvider("offline", nil)
	require.NoError(t, err)
	return ai.NewManager(ai.NewGenerator(p, "offline"), ai.ManagerConfig{Timeout: 5})
}

// testEnv wires the full service stack over one temp database with the
// offline generator, mirroring the cli wiring.
type testEnv struct {
	sections  *repo.SectionRepo
	draft     *DraftService
	outline   *OutlineService
	corpus    *CorpusService
	versions  *VersionService
	citations *CitationService
	export    *ExportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := openTestDB(t)
	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	})
	require.NoError(t, err)
	mgr := newOfflineAIManager(t)
	sections := repo.NewSectionRepo(db)
	sources := repo.NewSourceRepo(db)
	citations := NewCitationService(repo.NewBibliographyRepo(db))
	corpus := NewCorpusService(sources, extract.NewRegistry(nil), store, citations)
	versions := NewVersionService(repo.NewSnapshotRepo(db))
	draft := NewDraftService(sections, versions, NewContextService(sources), citations, corpus, mgr,
		DraftOptions{Budget: 4000, Parallel: 2})
	project := config.ProjectConfig{
		Title:    "Efficient Attention Mechanisms",
		Authors:  []string{"Smith, Jane", "Jones, Bob"},
		Template: "basic",
	}
	return &testEnv{
		sections:  sections,
		draft:     draft,
		outline:   NewOutlineService(sections, mgr),
		corpus:    corpus,
		versions:  versions,
		citations: citations,
		export:    NewExportService(sections, versions, citations, project),
	}
}
