package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xxxsen/papergen/internal/model"
	"github.com/xxxsen/papergen/internal/service"
)

func newSourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source",
		Short: "manage the research source corpus",
	}
	cmd.AddCommand(newSourceAddCmd(), newSourceListCmd(), newSourceRemoveCmd())
	return cmd
}

func newSourceAddCmd() *cobra.Command {
	var kind string
	var title string
	var authors []string
	var year string
	var text string

	cmd := &cobra.Command{
		Use:   "add [path-or-url]",
		Short: "ingest a pdf, web page, text file or inline note",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			origin := ""
			if len(args) > 0 {
				origin = args[0]
			}
			if origin == "" && text == "" {
				return fmt.Errorf("a path, url or --text is required")
			}

			in := service.AddSourceInput{
				Kind:    model.SourceKind(kind),
				Title:   title,
				Authors: authors,
				Year:    year,
				Origin:  origin,
			}
			if in.Kind == "" {
				in.Kind = inferSourceKind(origin, text)
			}
			switch in.Kind {
			case model.SourceKindWeb:
				in.URL = origin
			case model.SourceKindNote:
				in.Text = text
				if in.Text == "" && origin != "" {
					data, err := os.ReadFile(origin)
					if err != nil {
						return err
					}
					in.Text = string(data)
				}
			default:
				data, err := os.ReadFile(origin)
				if err != nil {
					return err
				}
				in.Data = data
			}

			doc, key, err := app.corpus.Add(ctx, in)
			if err != nil {
				return err
			}
			fmt.Printf("added %s source %s\n", doc.Kind, doc.ID)
			fmt.Printf("  title: %s\n", doc.Title)
			fmt.Printf("  cite as: [CITE:%s]\n", key)
			fmt.Printf("  extracted: %d chars\n", len(doc.Text))
			return nil
		}),
	}

	cmd.Flags().StringVar(&kind, "kind", "", "source kind: pdf, web, text or note (inferred when empty)")
	cmd.Flags().StringVar(&title, "title", "", "override the extracted title")
	cmd.Flags().StringSliceVar(&authors, "author", nil, "author name, repeatable")
	cmd.Flags().StringVar(&year, "year", "", "publication year")
	cmd.Flags().StringVar(&text, "text", "", "inline note content")
	return cmd
}

func inferSourceKind(origin, text string) model.SourceKind {
	switch {
	case text != "":
		return model.SourceKindNote
	case strings.HasPrefix(origin, "http://"), strings.HasPrefix(origin, "https://"):
		return model.SourceKindWeb
	case strings.EqualFold(filepath.Ext(origin), ".pdf"):
		return model.SourceKindPDF
	default:
		return model.SourceKindText
	}
}

func newSourceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list corpus sources with their citation keys",
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			docs, err := app.corpus.List(ctx)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				fmt.Println("corpus is empty (run: papergen source add)")
				return nil
			}
			ids := make([]string, 0, len(docs))
			for _, doc := range docs {
				ids = append(ids, doc.ID)
			}
			keys, err := app.citations.KeysBySource(ctx, ids)
			if err != nil {
				return err
			}
			for _, doc := range docs {
				key := keys[doc.ID]
				if key == "" {
					key = "-"
				}
				fmt.Printf("%s  %-4s %-16s %s\n", doc.ID, doc.Kind, key, doc.Title)
			}
			fmt.Printf("total: %d sources\n", len(docs))
			return nil
		}),
	}
}

func newSourceRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <source-id>",
		Short: "remove a source from the corpus",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			if err := app.corpus.Remove(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("removed source %s (bibliography entry kept)\n", args[0])
			return nil
		}),
	}
}

func newResearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "research",
		Short: "research phase helpers",
	}
	cmd.AddCommand(newResearchOrganizeCmd())
	return cmd
}

func newResearchOrganizeCmd() *cobra.Command {
	var topic string
	var focus string

	cmd := &cobra.Command{
		Use:   "organize",
		Short: "summarize the corpus into organized research notes",
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			if topic == "" {
				topic = app.cfg.Project.Topic
			}
			doc, key, err := app.draft.Organize(ctx, topic, focus)
			if err != nil {
				return err
			}
			fmt.Printf("organized notes stored as source %s (cite as [CITE:%s])\n\n", doc.ID, key)
			fmt.Println(doc.Text)
			return nil
		}),
	}

	cmd.Flags().StringVar(&topic, "topic", "", "research topic (defaults to the project topic)")
	cmd.Flags().StringVar(&focus, "focus", "", "focus areas for the organizer")
	return cmd
}
