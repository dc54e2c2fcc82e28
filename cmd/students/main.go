// Command students is an interactive terminal menu for student records.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	app "github.com/okian/grader/internal/app"
	"github.com/okian/grader/internal/config"
	"github.com/okian/grader/internal/studentcli"
	"github.com/okian/grader/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dbPath := flag.String("db", cfg.DatabasePath, "SQLite database holding student records")
	flag.Parse()

	// Keep the terminal for prompts; only warnings and errors are logged.
	if err := logger.Init(logger.WithOutput(os.Stderr), logger.WithFile(cfg.LogFile, 10, 3)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	_ = logger.SetLevelString("warn")

	svc := app.New(
		app.WithLogger(logger.Named("students")),
		app.WithDatabasePath(*dbPath),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to open student records: %w", err)
	}
	defer svc.Stop()

	return studentcli.New(svc, studentcli.NewSurveyPrompter()).Run(ctx)
}
