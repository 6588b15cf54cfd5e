package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xxxsen/papergen/internal/model"
	"github.com/xxxsen/papergen/internal/pkg/timeutil"
	"github.com/xxxsen/papergen/internal/service"
)

func printSnapshot(snapshot *model.SectionSnapshot) {
	fmt.Printf("section %s is now v%d (%s: %s), %d words, %d citations\n",
		snapshot.SectionID, snapshot.Version, snapshot.Operation, snapshot.OperationDetail,
		snapshot.WordCount, len(snapshot.CitationKeys))
}

func printSectionResults(results []service.SectionResult) error {
	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			fmt.Printf("section %s failed: %v\n", result.SectionID, result.Err)
			continue
		}
		printSnapshot(result.Snapshot)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sections failed", failed, len(results))
	}
	return nil
}

func newDraftCmd() *cobra.Command {
	var guidance string
	var focus []string
	var parallel int

	cmd := &cobra.Command{
		Use:   "draft",
		Short: "draft sections from the assembled source context",
	}

	sectionCmd := &cobra.Command{
		Use:   "section <section-id>",
		Short: "draft one section",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			snapshot, err := app.draft.Draft(ctx, args[0], guidance, focus)
			if err != nil {
				return err
			}
			printSnapshot(snapshot)
			fmt.Println()
			fmt.Println(snapshot.Content)
			return nil
		}),
	}

	allCmd := &cobra.Command{
		Use:   "all",
		Short: "draft every outline section",
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			results, err := app.draftService(parallel).DraftAll(ctx, guidance, focus)
			if err != nil {
				return err
			}
			return printSectionResults(results)
		}),
	}
	allCmd.Flags().IntVar(&parallel, "parallel", 0, "sections drafted concurrently (default 2)")

	for _, c := range []*cobra.Command{sectionCmd, allCmd} {
		c.Flags().StringVar(&guidance, "guidance", "", "extra guidance for the generator")
		c.Flags().StringSliceVar(&focus, "focus", nil, "focus term for context ranking, repeatable")
	}
	cmd.AddCommand(sectionCmd, allCmd)
	return cmd
}

func newReviseCmd() *cobra.Command {
	var feedback string
	var parallel int

	cmd := &cobra.Command{
		Use:   "revise",
		Short: "revise drafted sections with feedback",
	}

	sectionCmd := &cobra.Command{
		Use:   "section <section-id>",
		Short: "revise one section",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			snapshot, err := app.draft.Revise(ctx, args[0], feedback)
			if err != nil {
				return err
			}
			printSnapshot(snapshot)
			fmt.Println()
			fmt.Println(snapshot.Content)
			return nil
		}),
	}

	allCmd := &cobra.Command{
		Use:   "all",
		Short: "revise every drafted section",
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			results, err := app.draftService(parallel).ReviseAll(ctx, feedback)
			if err != nil {
				return err
			}
			return printSectionResults(results)
		}),
	}
	allCmd.Flags().IntVar(&parallel, "parallel", 0, "sections revised concurrently (default 2)")

	for _, c := range []*cobra.Command{sectionCmd, allCmd} {
		c.Flags().StringVar(&feedback, "feedback", "", "review feedback to address")
		_ = c.MarkFlagRequired("feedback")
	}
	cmd.AddCommand(sectionCmd, allCmd)
	return cmd
}

func newPolishCmd() *cobra.Command {
	var focus string

	cmd := &cobra.Command{
		Use:   "polish <section-id>",
		Short: "polish a section for clarity, flow, citations or conciseness",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			snapshot, err := app.draft.Polish(ctx, args[0], focus)
			if err != nil {
				return err
			}
			printSnapshot(snapshot)
			return nil
		}),
	}

	cmd.Flags().StringVar(&focus, "focus", "", "polish focus: clarity, flow, citations or conciseness")
	return cmd
}

func newSectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "section",
		Short: "inspect and edit section content",
	}
	cmd.AddCommand(newSectionShowCmd(), newSectionSetCmd())
	return cmd
}

func newSectionShowCmd() *cobra.Command {
	var version int
	var format string

	cmd := &cobra.Command{
		Use:   "show <section-id>",
		Short: "print a section version",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			snapshot, err := app.versions.Get(ctx, args[0], version)
			if err != nil {
				return err
			}
			content := snapshot.Content
			if format != "" && format != "raw" {
				content, err = app.citations.Render(ctx, content, service.RenderFormat(format))
				if err != nil {
					return err
				}
			}
			printSnapshot(snapshot)
			fmt.Println()
			fmt.Println(content)
			return nil
		}),
	}

	cmd.Flags().IntVar(&version, "version", 0, "version to show (0 = current)")
	cmd.Flags().StringVar(&format, "format", "raw", "render citations: raw, latex or markdown")
	return cmd
}

func newSectionSetCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "set <section-id>",
		Short: "store manually edited content as a new version",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			var data []byte
			var err error
			if file == "" || file == "-" {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(file)
			}
			if err != nil {
				return err
			}
			snapshot, err := app.draft.SetManual(ctx, args[0], string(data))
			if err != nil {
				return err
			}
			printSnapshot(snapshot)
			return nil
		}),
	}

	cmd.Flags().StringVar(&file, "file", "", "content file ('-' or empty reads stdin)")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <section-id>",
		Short: "list every stored version of a section",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			history, err := app.versions.History(ctx, args[0])
			if err != nil {
				return err
			}
			if len(history) == 0 {
				fmt.Printf("section %s has no versions\n", args[0])
				return nil
			}
			for _, item := range history {
				fmt.Printf("v%-3d %-7s %6d words  %s\n", item.Version, item.Operation, item.WordCount, timeutil.FormatUnix(item.Ctime))
			}
			return nil
		}),
	}
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <section-id> <from-version> <to-version>",
		Short: "line diff between two versions (0 = current)",
		Args:  cobra.ExactArgs(3),
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			from, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid from-version %q", args[1])
			}
			to, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid to-version %q", args[2])
			}
			lines, err := app.versions.Diff(ctx, args[0], from, to)
			if err != nil {
				return err
			}
			if len(lines) == 0 {
				fmt.Println("versions are identical")
				return nil
			}
			for _, line := range lines {
				switch line.Type {
				case model.DiffLineAdded:
					fmt.Printf("+ %s\n", line.Text)
				case model.DiffLineRemoved:
					fmt.Printf("- %s\n", line.Text)
				default:
					fmt.Printf("  %s\n", line.Text)
				}
			}
			return nil
		}),
	}
}

func newRevertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revert <section-id> <version>",
		Short: "restore an old version as a new head version",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			target, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[1])
			}
			snapshot, err := app.versions.Revert(ctx, args[0], target)
			if err != nil {
				return err
			}
			printSnapshot(snapshot)
			return nil
		}),
	}
}
