package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pooriya-cloudS/mediqe/internal/accounts"
	"github.com/pooriya-cloudS/mediqe/internal/activity"
	"github.com/pooriya-cloudS/mediqe/internal/files"
	"github.com/pooriya-cloudS/mediqe/internal/records"
	"github.com/pooriya-cloudS/mediqe/internal/scheduling"
	"github.com/pooriya-cloudS/mediqe/internal/server"
	"github.com/pooriya-cloudS/mediqe/pkg/config"
	"github.com/pooriya-cloudS/mediqe/pkg/database"
	"github.com/pooriya-cloudS/mediqe/pkg/logger"
	"github.com/pooriya-cloudS/mediqe/pkg/policy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").WithError(err).Fatal("Failed to load configuration")
	}

	log := logger.New(cfg.LogLevel)
	log.Info("Starting clinic server")

	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.CreateSchema(ctx); err != nil {
		cancel()
		log.WithError(err).Fatal("Failed to create database schema")
	}
	cancel()

	blobs, err := files.NewDiskStorage(cfg.Storage.UploadDir)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize file storage")
	}

	engine := policy.NewEngine()

	activityRepo := activity.NewRepository(db, log)
	activityService := activity.NewService(activityRepo, log)

	accountsRepo := accounts.NewRepository(db, log)
	tokens := accounts.NewTokenManager(&cfg.JWT)
	accountsService := accounts.NewService(accountsRepo, accounts.NewPasswordManager(), tokens, activityService, log)

	schedulingRepo := scheduling.NewRepository(db, log)
	schedulingService := scheduling.NewService(schedulingRepo, engine, activityService, log)

	recordsRepo := records.NewRepository(db, log)
	recordsService := records.NewService(recordsRepo, engine, activityService, log)

	filesRepo := files.NewRepository(db, log)
	filesService := files.NewService(filesRepo, recordsRepo, blobs, engine, activityService, &cfg.Storage, log)

	handlers := &server.Handlers{
		Accounts:   accounts.NewHandlers(accountsService, log),
		Scheduling: scheduling.NewHandlers(schedulingService, log),
		Records:    records.NewHandlers(recordsService, log),
		Files:      files.NewHandlers(filesService, log),
		Activity:   activity.NewHandlers(activityService, log),
	}

	srv := server.New(cfg, log, db, tokens, handlers)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Fatal("Server error")
		}
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}

	log.Info("Server stopped")
}
