package main

import (
	"context"

	"github.com/aneeshsharma72067/reposage/internal/transport/http/middleware"
	handlers_fiber "github.com/aneeshsharma72067/reposage/internal/transport/http/server/handlers-fiber"
	"github.com/aneeshsharma72067/reposage/internal/transport/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveWithWorker bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook and installation HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		a, closeApp, err := bootstrap(ctx, cfg, log)
		if err != nil {
			log.Errorw("startup failed", "error", err)
			return err
		}
		defer closeApp()

		serv := fiber.New(fiber.Config{
			ReadTimeout:           cfg.HTTP.RequestTimeout,
			WriteTimeout:          cfg.HTTP.RequestTimeout,
			DisableStartupMessage: true,
		})
		serv.Use(recover.New())
		serv.Use(requestid.New())
		serv.Use(middleware.RequestLogger(log))

		handlers_fiber.RegisterHandlers(serv, handlers_fiber.NewHandler(log, a.uc, a))

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Infow("http server listening", "addr", cfg.ServerAddr())
			return serv.Listen(cfg.ServerAddr())
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := serv.ShutdownWithContext(shutdownCtx); err != nil {
				log.Warnw("server shutdown timeout", "timeout", cfg.Server.ShutdownTimeout, "error", err)
			}
			return nil
		})
		if serveWithWorker {
			w := worker.New(log, a.uc, a.queue)
			g.Go(func() error { return w.Run(gctx) })
		}

		if err := g.Wait(); err != nil {
			log.Errorw("server stopped", "error", err)
			return err
		}
		log.Infow("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveWithWorker, "with-worker", false, "also consume analysis jobs in this process")
	rootCmd.AddCommand(serveCmd)
}
