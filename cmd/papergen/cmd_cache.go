package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "manage the generation cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "show cached generation counts",
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			count, err := app.cacheRepo.Count(ctx)
			if err != nil {
				return err
			}
			state := "enabled"
			if app.cfg.Cache.Disable {
				state = "disabled"
			}
			fmt.Printf("cache %s: %d stored generations (lru size %d, ttl %dh)\n",
				state, count, app.cfg.Cache.LruSize, app.cfg.Cache.TTLHours)
			return nil
		}),
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "drop every cached generation",
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			removed, err := app.cacheRepo.Clear(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("cleared %d cached generations\n", removed)
			return nil
		}),
	}

	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}
