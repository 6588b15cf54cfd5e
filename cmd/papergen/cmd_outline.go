package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xxxsen/papergen/internal/model"
)

func newOutlineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outline",
		Short: "manage the paper outline",
	}
	cmd.AddCommand(newOutlineGenerateCmd(), newOutlineImportCmd(), newOutlineShowCmd())
	return cmd
}

func newOutlineGenerateCmd() *cobra.Command {
	var topic string
	var sectionCount int
	var notesFile string
	var force bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "generate an outline from the research topic",
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			if topic == "" {
				topic = app.cfg.Project.Topic
			}
			if strings.TrimSpace(topic) == "" {
				return fmt.Errorf("a topic is required, pass --topic or set project.topic in the config")
			}
			notes := ""
			if notesFile != "" {
				data, err := os.ReadFile(notesFile)
				if err != nil {
					return err
				}
				notes = string(data)
			}
			sections, err := app.outline.Generate(ctx, topic, sectionCount, notes, force)
			if err != nil {
				return err
			}
			printOutline(sections)
			return nil
		}),
	}

	cmd.Flags().StringVar(&topic, "topic", "", "paper topic (defaults to the project topic)")
	cmd.Flags().IntVar(&sectionCount, "sections", 5, "number of sections")
	cmd.Flags().StringVar(&notesFile, "notes", "", "file with research notes to steer the outline")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing outline")
	return cmd
}

func newOutlineImportCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "import <outline.json>",
		Short: "import an outline from a json file",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			sections, err := app.outline.Import(ctx, raw, force)
			if err != nil {
				return err
			}
			printOutline(sections)
			return nil
		}),
	}

	cmd.Flags().BoolVar(&force, "force", false, "replace an existing outline")
	return cmd
}

func newOutlineShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [section-id]",
		Short: "show the outline, or one section in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			if len(args) == 0 {
				sections, err := app.outline.List(ctx)
				if err != nil {
					return err
				}
				if len(sections) == 0 {
					fmt.Println("no outline yet (run: papergen outline generate)")
					return nil
				}
				printOutline(sections)
				return nil
			}
			section, err := app.outline.Show(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s), level %d, position %d, target %d words\n",
				section.Title, section.ID, section.Level, section.Position, section.WordTarget)
			for _, obj := range section.Objectives {
				fmt.Printf("  objective: %s\n", obj)
			}
			for _, point := range section.KeyPoints {
				fmt.Printf("  key point: %s\n", point)
			}
			if section.Guidance != "" {
				fmt.Printf("  guidance: %s\n", section.Guidance)
			}
			return nil
		}),
	}
}

func printOutline(sections []model.Section) {
	for _, section := range sections {
		indent := strings.Repeat("  ", section.Level-1)
		fmt.Printf("%2d. %s%s (%s, %d words)\n", section.Position, indent, section.Title, section.ID, section.WordTarget)
	}
}
