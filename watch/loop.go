package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/ceeox/localdeploy/model"
	"github.com/ceeox/localdeploy/operations"
)

// Syncer fetches the remote and reports tip movement.
type Syncer interface {
	Sync(ctx context.Context) (model.SyncResult, error)
}

// Runner executes the configured command in the working copy.
type Runner interface {
	Run(command, dir string) (model.CommandOutcome, error)
}

// Loop is the scheduler: wait for the interval, sync, decide, run.
// Strictly sequential on purpose: the working copy is shared mutable
// state, and a single thread of control means no fetch ever overlaps a
// running command and no two commands overlap each other.
type Loop struct {
	syncer   Syncer
	runner   Runner
	detect   ChangeDetector
	command  string
	dir      string
	interval time.Duration
	logger   *slog.Logger
}

func NewLoop(syncer Syncer, runner Runner, detect ChangeDetector, config model.Config, logger *slog.Logger) *Loop {
	return &Loop{
		syncer:   syncer,
		runner:   runner,
		detect:   detect,
		command:  config.Command,
		dir:      config.Path,
		interval: time.Duration(config.Interval) * time.Second,
		logger:   logger,
	}
}

// Run polls until ctx is cancelled or a fatal repository error occurs.
// Cancellation interrupts the interval wait immediately but never a
// cycle in flight; a cancel that lands mid-cycle takes effect at the
// next wait.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Shutdown signal received. Exiting gracefully.")
			return nil
		case <-ticker.C:
			if err := l.cycle(ctx); err != nil {
				return err
			}
		}
	}
}

func (l *Loop) cycle(ctx context.Context) error {
	result, err := l.syncer.Sync(ctx)
	if err != nil {
		if operations.Fatal(err) {
			return err
		}
		l.logger.Error("Sync failed, will retry next interval", "error", err)
		return nil
	}
	if !l.detect(result) {
		l.logger.Info("Repository is already up-to-date")
		return nil
	}

	l.logger.Info("Change detected, running command", "old_hash", result.OldHash, "new_hash", result.NewHash)
	outcome, err := l.runner.Run(l.command, l.dir)
	if err != nil {
		l.logger.Error("Command could not be started", "error", err)
		return nil
	}
	if outcome.ExitCode != 0 {
		// Build failures must not stop the polling loop.
		l.logger.Error("Command failed", "exit_code", outcome.ExitCode, "elapsed", outcome.Elapsed)
		return nil
	}
	l.logger.Info("Command completed", "elapsed", outcome.Elapsed)
	return nil
}
