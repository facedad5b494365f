package main

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/wetter/internal/api/http"
	"github.com/i474232898/wetter/internal/app"
	"github.com/i474232898/wetter/internal/logger"
	"github.com/i474232898/wetter/internal/scheduler"
)

// serve runs the HTTP API and the update scheduler until ctx is done.
func serve(ctx context.Context, a *app.App, log *logger.Logger) error {
	cfg := a.Config()

	sched := scheduler.New(a, cfg.UpdateInterval, cfg.HTTPTimeout*4, log)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	srv := newServer(a)

	errc := make(chan error, 1)
	go func() {
		log.Infof("listening on :%s", cfg.Port)
		errc <- srv.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warnf("error during shutdown: %v", err)
	}
	return nil
}

func newServer(a *app.App) *fiber.App {
	srv := fiber.New(fiber.Config{
		AppName:               "wetter",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          a.Config().HTTPTimeout * 4,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	srv.Use(fiberlogger.New())
	srv.Use(recover.New())

	srv.Get("/health", func(c *fiber.Ctx) error {
		st := a.Store()
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "wetter",
			"rows":     st.Size(),
			"newest":   st.MaxTimestamp(),
			"location": st.Location(),
		})
	})

	httpapi.RegisterRoutes(srv, a)
	return srv
}
