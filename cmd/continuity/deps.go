package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/continuity/internal/logging"
	"github.com/aretw0/continuity/pkg/adapters/memory"
	"github.com/aretw0/continuity/pkg/adapters/process"
	"github.com/aretw0/continuity/pkg/adapters/redis"
	"github.com/aretw0/continuity/pkg/catalogue"
	"github.com/aretw0/continuity/pkg/ports"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// deps are the collaborators shared by every subcommand, built from the persistent flags.
type deps struct {
	logger    *slog.Logger
	catalogue *catalogue.Catalogue
	runner    ports.CommandRunner
	locker    ports.Locker
	styled    bool

	close func() error
}

func loadDeps(cmd *cobra.Command) (*deps, error) {
	flags := cmd.Flags()
	levelStr, _ := flags.GetString("log-level")
	format, _ := flags.GetString("log-format")
	cataloguePath, _ := flags.GetString("catalogue")
	redisURL, _ := flags.GetString("redis")
	dryRun, _ := flags.GetBool("dry-run")

	level, err := logging.ParseLevel(levelStr)
	if err != nil {
		return nil, err
	}
	logger := logging.NewWithWriter(os.Stderr, level, logging.Format(format))
	slog.SetDefault(logger)

	d := &deps{
		logger:    logger,
		catalogue: catalogue.Default(),
		runner:    process.NewRunner(process.WithDryRun(dryRun), process.WithLogger(logger)),
		locker:    memory.NewLocker(),
		styled:    term.IsTerminal(int(os.Stdout.Fd())),
		close:     func() error { return nil },
	}

	if cataloguePath != "" {
		extra, err := catalogue.Load(cataloguePath)
		if err != nil {
			return nil, err
		}
		d.catalogue = d.catalogue.Merge(extra)
		logger.Debug("catalogue loaded", "path", cataloguePath, "applications", d.catalogue.Len())
	}

	if redisURL != "" {
		locker, err := redis.NewFromURL(redisURL)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		if err := locker.Ping(ctx); err != nil {
			_ = locker.Close()
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}
		d.locker = locker
		d.close = locker.Close
	}
	return d, nil
}
