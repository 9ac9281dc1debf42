package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"strmhub/internal/config"
	"strmhub/internal/core"
	"strmhub/internal/handlers"
	"strmhub/internal/library"
	"strmhub/internal/utils"
)

func main() {
	configPath := flag.String("config", "config.yml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Initialize logger
	logger := utils.NewLogger(cfg.App.Debug)

	// Initialize database
	db, err := library.NewSQLite(cfg.Library.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	// Run migrations
	if err := library.RunMigrations(db); err != nil {
		logger.Fatal("Failed to run migrations:", err)
	}

	// Create manager
	manager, err := core.NewManager(cfg, db, logger)
	if err != nil {
		logger.Fatal("Failed to initialize manager:", err)
	}

	// Start web server
	server := handlers.NewServer(cfg, manager, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Server failed to start:", err)
		}
	}()

	manager.StartScheduler()

	// Reload on config edits; provider or credential changes need it.
	stopWatch, err := config.Watch(*configPath, func(updated *config.Config) {
		logger.Info("Configuration file changed, restart to apply provider changes")
	}, func(err error) {
		logger.Error("Config watch error:", err)
	})
	if err != nil {
		logger.Error("Config watching disabled:", err)
	} else {
		defer stopWatch()
	}

	logger.Info("Strmhub started successfully on port", cfg.App.Port)

	// Wait for interrupt
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info("Shutting down...")
	manager.Stop()
	server.Stop(ctx)
}
