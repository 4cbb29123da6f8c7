package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-api/internal/repository"
	"github.com/noah-isme/lms-admin-api/internal/service"
	"github.com/noah-isme/lms-admin-api/pkg/config"
	"github.com/noah-isme/lms-admin-api/pkg/database"
	"github.com/noah-isme/lms-admin-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}

	loc := cfg.Ledger.Location()
	users := repository.NewUserRepository(db)
	students := repository.NewStudentRepository(db, loc, cfg.Ledger.ReceiptRetries)
	transactions := repository.NewTransactionRepository(db, loc, cfg.Ledger.ReceiptRetries)

	cli := commandLine{
		out:    os.Stdout,
		logger: logr,
		migrate: func(ctx context.Context) error {
			return database.Migrate(ctx, db, logr)
		},
		users:  service.NewUserService(users, validator.New(), logr),
		ledger: service.NewReconciliationService(students, transactions, users, nil, nil, cfg.Ledger.DriftTolerance, logr),
	}
	code := 0
	if err := cli.run(ctx, os.Args); err != nil {
		if err != errHelp {
			logr.Error("command failed", zap.Error(err))
		}
		code = 1
	}
	_ = db.Close()
	os.Exit(code)
}
