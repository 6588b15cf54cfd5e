package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/papergen/internal/ai"
	"github.com/xxxsen/papergen/internal/config"
	"github.com/xxxsen/papergen/internal/extract"
	"github.com/xxxsen/papergen/internal/filestore"
	"github.com/xxxsen/papergen/internal/gencache"
	"github.com/xxxsen/papergen/internal/repo"
	"github.com/xxxsen/papergen/internal/service"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "papergen",
		Short:         "iterative research paper assembly pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "papergen.json", "path to project config")

	rootCmd.AddCommand(
		newInitCmd(),
		newStatusCmd(),
		newSourceCmd(),
		newResearchCmd(),
		newOutlineCmd(),
		newDraftCmd(),
		newReviseCmd(),
		newPolishCmd(),
		newSectionCmd(),
		newHistoryCmd(),
		newDiffCmd(),
		newRevertCmd(),
		newFormatCmd(),
		newBibliographyCmd(),
		newCacheCmd(),
		newPreviewCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("command failed", zap.Error(err))
	}
}

// appContext holds the wired service stack for one command invocation.
type appContext struct {
	cfg       *config.Config
	db        *sql.DB
	store     filestore.Store
	manager   *ai.Manager
	cacheRepo *repo.GenerationCacheRepo
	sections  *repo.SectionRepo
	corpus    *service.CorpusService
	outline   *service.OutlineService
	versions  *service.VersionService
	citations *service.CitationService
	assembler *service.ContextService
	draft     *service.DraftService
	export    *service.ExportService
}

func openApp(path string) (*appContext, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)

	db, err := repo.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := repo.ApplyMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init file store: %w", err)
	}

	cacheRepo := repo.NewGenerationCacheRepo(db)
	gen, err := buildGenerator(cfg, cacheRepo)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	manager := ai.NewManager(gen, ai.ManagerConfig{
		Timeout:           cfg.AI.Timeout,
		MaxInputChars:     cfg.AI.MaxInputChars,
		RequestsPerMinute: cfg.AI.RequestsPerMinute,
		RetryWaitSeconds:  cfg.AI.RetryWaitSeconds,
	})

	app := &appContext{
		cfg:       cfg,
		db:        db,
		store:     store,
		manager:   manager,
		cacheRepo: cacheRepo,
		sections:  repo.NewSectionRepo(db),
	}
	app.citations = service.NewCitationService(repo.NewBibliographyRepo(db))
	app.corpus = service.NewCorpusService(repo.NewSourceRepo(db), extract.NewRegistry(nil), store, app.citations)
	app.outline = service.NewOutlineService(app.sections, manager)
	app.versions = service.NewVersionService(repo.NewSnapshotRepo(db))
	app.assembler = service.NewContextService(repo.NewSourceRepo(db))
	app.draft = app.draftService(0)
	app.export = service.NewExportService(app.sections, app.versions, app.citations, cfg.Project)
	return app, nil
}

// contextBudget is the assembler budget: the configured window minus the
// safety margin reserved for prompt scaffolding and the reply.
func (a *appContext) contextBudget() int {
	return int(float64(a.cfg.Context.MaxTokens) * (1 - a.cfg.Context.Margin))
}

func (a *appContext) draftService(parallel int) *service.DraftService {
	return service.NewDraftService(a.sections, a.versions, a.assembler, a.citations, a.corpus, a.manager,
		service.DraftOptions{Budget: a.contextBudget(), Parallel: parallel})
}

func (a *appContext) Close() {
	_ = a.db.Close()
}

// buildGenerator assembles the provider failover chain and puts the lru and
// db caches in front of it unless caching is disabled.
func buildGenerator(cfg *config.Config, cacheRepo *repo.GenerationCacheRepo) (ai.IGenerator, error) {
	entries := make([]ai.GeneratorEntry, 0, len(cfg.AI.Chain))
	for _, item := range cfg.AI.Chain {
		provider, err := ai.NewProvider(item.Provider, item.Args)
		if err != nil {
			return nil, fmt.Errorf("init ai provider %s: %w", item.Provider, err)
		}
		name := item.Provider
		if item.Model != "" {
			name = item.Provider + "/" + item.Model
		}
		entries = append(entries, ai.GeneratorEntry{Name: name, Generator: ai.NewGenerator(provider, item.Model)})
	}
	gen := ai.NewGroupGenerator(entries)
	if cfg.Cache.Disable {
		return gen, nil
	}
	ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
	gen = gencache.WrapDBCacheToGenerator(gen, cacheRepo, ttl)
	gen = gencache.WrapLruCacheToGenerator(gen, cfg.Cache.LruSize, ttl)
	return gen, nil
}

// withApp loads the project, runs fn and closes everything afterwards.
func withApp(fn func(ctx context.Context, app *appContext, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := openApp(configPath)
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(cmd.Context(), app, args)
	}
}
