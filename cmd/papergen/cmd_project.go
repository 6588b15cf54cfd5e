package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"

	"github.com/xxxsen/papergen/internal/config"
	appErr "github.com/xxxsen/papergen/internal/pkg/errors"
	"github.com/xxxsen/papergen/internal/repo"
)

func newInitCmd() *cobra.Command {
	var title string
	var topic string
	var authors []string
	var template string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "create a papergen project config and database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", configPath)
			}
			cfg := config.Config{
				DBPath:    "papergen.db",
				LogConfig: logger.LogConfig{Level: "info", Console: true},
				FileStore: config.FileStoreConfig{
					Type: "local",
					Data: map[string]interface{}{"dir": "papergen_files"},
				},
				Project: config.ProjectConfig{
					Title:    title,
					Topic:    topic,
					Authors:  authors,
					Template: template,
				},
				AI:      config.AIConfig{Chain: []config.AIProviderConfig{{Provider: "offline", Model: "offline"}}},
				Context: config.ContextConfig{MaxTokens: 6000, Margin: 0.25},
				Cache:   config.CacheConfig{LruSize: 256, TTLHours: 720},
				Preview: config.PreviewConfig{Port: 8901},
			}
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(configPath, append(data, '\n'), 0o644); err != nil {
				return fmt.Errorf("write config: %w", err)
			}

			db, err := repo.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()
			if err := repo.ApplyMigrations(db); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			fmt.Printf("project initialized: %s (db: %s)\n", configPath, cfg.DBPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "paper title")
	cmd.Flags().StringVar(&topic, "topic", "", "research topic")
	cmd.Flags().StringSliceVar(&authors, "author", nil, "author name, repeatable")
	cmd.Flags().StringVar(&template, "template", "basic", "latex template: ieee, acm or basic")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "show project progress",
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			fmt.Printf("title:     %s\n", app.cfg.Project.Title)
			fmt.Printf("topic:     %s\n", app.cfg.Project.Topic)
			fmt.Printf("template:  %s\n", app.cfg.Project.Template)
			fmt.Printf("generator: %s\n", app.manager.GeneratorName())

			sourceCount, err := app.corpus.Count(ctx)
			if err != nil {
				return err
			}
			bibCount, err := app.citations.Count(ctx)
			if err != nil {
				return err
			}
			cacheCount, err := app.cacheRepo.Count(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("sources:   %d (bibliography: %d, cached generations: %d)\n", sourceCount, bibCount, cacheCount)

			sections, err := app.outline.List(ctx)
			if err != nil {
				return err
			}
			if len(sections) == 0 {
				fmt.Println("outline:   none (run: papergen outline generate)")
				return nil
			}
			drafted := 0
			totalWords := 0
			fmt.Printf("outline:   %d sections\n", len(sections))
			for _, section := range sections {
				current, err := app.versions.Current(ctx, section.ID)
				switch {
				case err == nil:
					drafted++
					totalWords += current.WordCount
					fmt.Printf("  %2d. %-28s v%d %s, %d words\n",
						section.Position, section.Title, current.Version, current.Operation, current.WordCount)
				case appErr.IsNotFound(err):
					fmt.Printf("  %2d. %-28s not drafted\n", section.Position, section.Title)
				default:
					return err
				}
			}
			fmt.Printf("drafted:   %d/%d sections, %d words\n", drafted, len(sections), totalWords)
			return nil
		}),
	}
}
