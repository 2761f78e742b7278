package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/dcbkit/tagged-eventlog-go/eventlog"
	"github.com/dcbkit/tagged-eventlog-go/eventlog/memoryengine"
	"github.com/dcbkit/tagged-eventlog-go/eventlog/postgresengine"
	"github.com/dcbkit/tagged-eventlog-go/toolapi"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tool API over stdin/stdout",
		Long: `Start the event log engine and serve its tool API as JSON-RPC 2.0
over line-delimited JSON on stdin/stdout.

Example:
  eventlogd serve
  eventlogd serve --config eventlogd.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd, rootOpts)
		},
	}

	return cmd
}

func serve(cmd *cobra.Command, opts *RootOptions) error {
	config, configErr := LoadConfig(opts.ConfigPath)
	if configErr != nil {
		return configErr
	}

	logger := newLogger(config.LogLevel, opts.Verbose)
	slog.SetDefault(logger)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	log, cleanup, engineErr := buildEngine(ctx, config, logger)
	if engineErr != nil {
		return engineErr
	}
	defer cleanup()

	server := toolapi.NewServer(toolapi.NewRegistry(log), toolapi.WithServerLogger(logger))

	logger.Info("serving tool API", "engine", config.Engine)

	return server.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
}

func newLogger(level string, verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	if verbose {
		logLevel = slog.LevelDebug
	}

	// Logs go to stderr; stdout carries only response frames.
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})

	return slog.New(handler)
}

func buildEngine(ctx context.Context, config Config, logger *slog.Logger) (eventlog.EventLog, func(), error) {
	if config.Engine == engineMemory {
		log, buildErr := memoryengine.NewEventLog(
			memoryengine.WithLogger(logger),
			memoryengine.WithContextualLogger(logger),
		)
		if buildErr != nil {
			return nil, nil, buildErr
		}

		return log, func() {}, nil
	}

	return buildPostgresEngine(ctx, config.Postgres, logger)
}

func buildPostgresEngine(ctx context.Context, config PostgresConfig, logger *slog.Logger) (eventlog.EventLog, func(), error) {
	options := []postgresengine.Option{
		postgresengine.WithLogger(logger),
		postgresengine.WithContextualLogger(logger),
	}
	if config.TableName != "" {
		options = append(options, postgresengine.WithTableName(config.TableName))
	}

	switch config.Adapter {
	case adapterSQL:
		db, openErr := sql.Open("postgres", config.DSN)
		if openErr != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", openErr)
		}

		log, buildErr := postgresengine.NewEventLogFromSQLDB(db, options...)
		if buildErr != nil {
			_ = db.Close()
			return nil, nil, buildErr
		}

		return log, func() { _ = db.Close() }, nil

	case adapterSQLX:
		db, openErr := sqlx.ConnectContext(ctx, "postgres", config.DSN)
		if openErr != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", openErr)
		}

		log, buildErr := postgresengine.NewEventLogFromSQLX(db, options...)
		if buildErr != nil {
			_ = db.Close()
			return nil, nil, buildErr
		}

		return log, func() { _ = db.Close() }, nil

	default:
		pool, poolErr := pgxpool.New(ctx, config.DSN)
		if poolErr != nil {
			return nil, nil, fmt.Errorf("failed to create connection pool: %w", poolErr)
		}

		if config.ReplicaDSN != "" {
			replicaPool, replicaErr := pgxpool.New(ctx, config.ReplicaDSN)
			if replicaErr != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("failed to create replica connection pool: %w", replicaErr)
			}

			log, buildErr := postgresengine.NewEventLogFromPGXPoolAndReplica(pool, replicaPool, options...)
			if buildErr != nil {
				pool.Close()
				replicaPool.Close()
				return nil, nil, buildErr
			}

			logger.Info("postgres engine ready", "adapter", adapterPGX, "replica", true)

			return log, func() { pool.Close(); replicaPool.Close() }, nil
		}

		log, buildErr := postgresengine.NewEventLogFromPGXPool(pool, options...)
		if buildErr != nil {
			pool.Close()
			return nil, nil, buildErr
		}

		return log, func() { pool.Close() }, nil
	}
}
