package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/papergen/internal/handler"
	"github.com/xxxsen/papergen/internal/job"
	"github.com/xxxsen/papergen/internal/middleware"
	"github.com/xxxsen/papergen/internal/schedule"
)

func newPreviewCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "serve a read-only html preview of the paper",
		RunE: withApp(func(ctx context.Context, app *appContext, args []string) error {
			if addr == "" {
				addr = fmt.Sprintf("127.0.0.1:%d", app.cfg.Preview.Port)
			}
			deps := handler.RouterDeps{
				Sections:     handler.NewSectionHandler(app.outline, app.versions, app.citations),
				Bibliography: handler.NewBibliographyHandler(app.citations),
				Sources:      handler.NewSourceHandler(app.corpus),
				Preview:      handler.NewPreviewHandler(app.export, app.cfg.Project.Title),
			}
			engine, err := webapi.NewEngine(
				"/",
				addr,
				webapi.WithRegister(func(group *gin.RouterGroup) {
					handler.RegisterRoutes(group, deps)
				}),
				webapi.WithExtraMiddlewares(
					middleware.CORS(nil),
					gzip.Gzip(gzip.DefaultCompression),
				),
			)
			if err != nil {
				return fmt.Errorf("init web engine: %w", err)
			}
			logutil.GetLogger(ctx).Info("preview server listening", zap.String("addr", addr))

			runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			// The preview server is the only long-lived process, so it also
			// hosts cache maintenance.
			if !app.cfg.Cache.Disable {
				sched := schedule.NewScheduler()
				if err := sched.AddJob(job.NewGenerationCacheCleanupJob(app.cacheRepo), "0 * * * *"); err != nil {
					return fmt.Errorf("schedule cache cleanup: %w", err)
				}
				sched.Start(runCtx)
				defer sched.Stop()
			}

			go func() {
				if err := engine.Run(); err != nil && err != http.ErrServerClosed {
					logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
				}
			}()
			<-runCtx.Done()
			logutil.GetLogger(context.Background()).Info("preview server stopping...")
			return nil
		}),
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to 127.0.0.1:<preview.port>)")
	return cmd
}
