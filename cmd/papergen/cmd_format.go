package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xxxsen/papergen/internal/service"
)

func newFormatCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "format <latex|markdown>",
		Short: "assemble the full paper in an output format",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			doc, err := app.export.BuildDocument(ctx, service.RenderFormat(args[0]))
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Print(doc)
				return nil
			}
			if err := os.WriteFile(out, []byte(doc), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Printf("wrote %s (%d bytes)\n", out, len(doc))
			return nil
		}),
	}

	cmd.Flags().StringVar(&out, "out", "", "output file (stdout when empty)")
	return cmd
}

func newBibliographyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bibliography",
		Short: "inspect the bibliography",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list bibliography entries",
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			entries, err := app.citations.List(ctx)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("bibliography is empty")
				return nil
			}
			for i := range entries {
				fmt.Printf("%-16s %s\n", entries[i].Key, service.FormatReference(&entries[i]))
			}
			fmt.Printf("total: %d entries\n", len(entries))
			return nil
		}),
	}

	bibtexCmd := &cobra.Command{
		Use:   "bibtex",
		Short: "print the bibliography as bibtex",
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			bibtex, err := app.citations.ExportBibTeX(ctx)
			if err != nil {
				return err
			}
			fmt.Print(bibtex)
			return nil
		}),
	}

	cmd.AddCommand(listCmd, bibtexCmd)
	return cmd
}
