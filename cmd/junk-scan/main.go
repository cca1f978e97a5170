package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/junk-scan/internal/adapters/report"
	"github.com/mikey/junk-scan/internal/core"
	"github.com/mikey/junk-scan/internal/di"
	"github.com/mikey/junk-scan/internal/factory"
)

func main() {
	flags := di.ParseFlags()

	// Build the dependency injection container
	container, err := di.BuildContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	var outcome core.Outcome
	if err := container.Invoke(func(
		logger *zap.Logger,
		engine *core.Engine,
		pager core.FolderPager,
		stores *factory.Stores,
		notifier core.Notifier,
		writer *report.Writer,
	) error {
		var runErr error
		outcome, runErr = run(logger, engine, pager, stores, notifier, writer)
		return runErr
	}); err != nil {
		fmt.Fprintf(os.Stderr, "junk-scan: %v\n", err)
		os.Exit(1)
	}

	// A gave-up run saved its progress but did not finish the folder;
	// signal that to cron wrappers.
	if outcome == core.OutcomeGaveUp {
		os.Exit(2)
	}
}

func run(
	logger *zap.Logger,
	engine *core.Engine,
	pager core.FolderPager,
	stores *factory.Stores,
	notifier core.Notifier,
	writer *report.Writer,
) (core.Outcome, error) {
	defer logger.Sync()
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Warn("Failed to close store", zap.Error(err))
		}
	}()
	defer func() {
		if err := pager.Close(); err != nil {
			logger.Warn("Failed to close mail connection", zap.Error(err))
		}
	}()

	// Ctrl-C drains gracefully: the in-flight page completes and a
	// checkpoint is written before exit.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := engine.Run(ctx)
	if res != nil {
		if werr := writer.Write(res); werr != nil {
			logger.Error("Failed to write report", zap.Error(werr))
		}
	}
	if err != nil {
		return core.OutcomeAborted, err
	}

	if res.Outcome == core.OutcomeCompleted && len(res.NewAddresses) > 0 {
		if err := notifier.NotifyNewAddresses(ctx, res.NewAddresses); err != nil {
			logger.Error("Failed to send notification", zap.Error(err))
		}
	}

	return res.Outcome, nil
}
