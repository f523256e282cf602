package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"filecommand-api/internal/app"
	"filecommand-api/internal/config"
	"filecommand-api/internal/imaging"
	"filecommand-api/internal/infra/filesystem"
	"filecommand-api/internal/infra/transport/http/handlers"
	"filecommand-api/internal/log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	lg := log.New(cfg.Debug)

	for name, path := range cfg.StorageMounts {
		lg.Debug("Storage [%s] -> Path [%s]", name, path)
	}

	// Init Dependencies
	driver := filesystem.NewLocalDriver(cfg.StorageMounts)
	index, err := app.NewIndex(driver, cfg.IndexDSN, lg)
	if err != nil {
		return err
	}
	defer index.Close()

	service := app.NewFilesystemService(driver, index, lg)
	// runs before index.Close
	defer service.Close()

	scheduler := app.NewScheduler(index, cfg.IndexSchedule, lg)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("invalid INDEX_SCHEDULE %q: %w", cfg.IndexSchedule, err)
	}
	if err := scheduler.Watch(cfg.StorageMounts); err != nil {
		lg.Warn("Storage watcher disabled: %v", err)
	}
	defer scheduler.Stop()

	processorOpts := app.ProcessorOptions{
		DenyPattern:    cfg.FileDenyPattern,
		TextExtensions: cfg.TextExtensions,
	}
	newProcessor := func() handlers.FileProcessor {
		return app.NewFileProcessor(driver, processorOpts, lg, service.StorageChanged)
	}
	flattener := handlers.NewResultFlattener(imaging.NewRegistry(cfg.IconBasePath), cfg.DateFormat, cfg.Location)
	fileController := handlers.NewFileController(newProcessor, flattener, service, lg)
	fileManager := handlers.NewFileManagerHandler(service, lg)

	// Init Fiber App
	server := fiber.New(fiber.Config{
		AppName:      "File Command API v1",
		BodyLimit:    cfg.BodyLimitMB * 1024 * 1024,
		ServerHeader: "FileCommandAPI",
	})

	// Middleware
	server.Use(func(c *fiber.Ctx) error {
		c.Locals("startTime", time.Now())
		return c.Next()
	})
	server.Use(recover.New())
	server.Use(logger.New())
	server.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	server.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	handlers.Register(server.Group("/api"), fileController, fileManager)

	// Health check
	server.Get("/ping", func(c *fiber.Ctx) error {
		startTime := c.Locals("startTime").(time.Time)
		return c.JSON(fiber.Map{
			"status":  "ok",
			"latency": time.Since(startTime).String(),
			"mounts":  cfg.StorageMounts,
			"message": "pong",
		})
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		lg.Info("Shutting down")
		if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
			lg.Error("Shutdown failed: %v", err)
		}
	}()

	lg.Banner(cfg.Port, cfg.StorageMounts)
	return server.Listen(":" + cfg.Port)
}
