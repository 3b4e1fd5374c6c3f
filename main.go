package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ceeox/localdeploy/operations"
	"github.com/ceeox/localdeploy/runner"
	"github.com/ceeox/localdeploy/utils"
	"github.com/ceeox/localdeploy/watch"
)

var version = "dev"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	for _, arg := range os.Args[1:] {
		if arg == "--version" {
			fmt.Println("localdeploy " + version)
			return
		}
	}

	config, err := utils.LoadConfig(os.Args[1:])
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("localdeploy starting...", "path", config.Path, "branch", config.Branch, "interval_seconds", config.Interval)

	creds := operations.NewCredentialProvider(config)
	repo := operations.NewRepository(config, creds, logger)
	if err := repo.OpenOrClone(ctx); err != nil {
		logger.Error("Failed to open or clone repository", "error", err)
		os.Exit(1)
	}
	logger.Info("Repository ready", "tip", repo.Tip())

	loop := watch.NewLoop(repo, runner.New(logger), watch.NewCommits, config, logger)
	if err := loop.Run(ctx); err != nil {
		logger.Error("Fatal error, exiting", "error", err)
		os.Exit(1)
	}
}
