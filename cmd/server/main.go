// Package main implements the entry point for the NepaliJets API server,
// which schedules vocabulary reviews and builds personalised learning paths.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/nepalijets/nepalijets-api/internal/config"
	"github.com/nepalijets/nepalijets-api/internal/platform/logger"
	"github.com/nepalijets/nepalijets-api/internal/platform/postgres"
	"github.com/nepalijets/nepalijets-api/internal/service/auth"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newRootCommand builds the command tree. The configuration file flag is
// shared by every subcommand.
func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "nepalijets-api",
		Short:        "Adaptive vocabulary learning API",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML configuration file")

	root.AddCommand(
		newServeCommand(&configPath),
		newMigrateCommand(&configPath),
		newTokenCommand(&configPath),
	)
	return root
}

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := initializeApp(*configPath)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, log)
		},
	}
}

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [command]",
		Short:     "Apply or inspect database migrations (default: up)",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), validMigrationArgs),
		ValidArgs: postgres.MigrationCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}

			cfg, log, err := initializeApp(*configPath)
			if err != nil {
				return err
			}

			db, err := setupAppDatabase(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := db.Close(); cerr != nil {
					log.Error("failed to close database connection", "error", cerr)
				}
			}()

			return postgres.RunMigrations(cmd.Context(), db, command, log)
		},
	}
}

func validMigrationArgs(_ *cobra.Command, args []string) error {
	if len(args) == 1 && !postgres.ValidMigrationCommand(args[0]) {
		return fmt.Errorf("invalid migration command %q, valid commands: %v", args[0], postgres.MigrationCommands)
	}
	return nil
}

// newTokenCommand prints a signed access token for a learner. It exists for
// local development and operational tooling, there is no login endpoint.
func newTokenCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "token <learner-id>",
		Short: "Issue an access token for a learner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			learnerID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid learner id: %w", err)
			}

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			return issueToken(cmd.Context(), cmd.OutOrStdout(), cfg.Auth, learnerID)
		},
	}
}

func issueToken(ctx context.Context, w io.Writer, cfg config.AuthConfig, learnerID uuid.UUID) error {
	jwtService, err := auth.NewJWTService(cfg)
	if err != nil {
		return fmt.Errorf("failed to create JWT service: %w", err)
	}

	token, err := jwtService.GenerateToken(ctx, learnerID)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	_, err = fmt.Fprintln(w, token)
	return err
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// initializeApp loads configuration and sets up structured logging.
func initializeApp(configPath string) (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"timezone", cfg.Learning.Timezone)

	return cfg, log, nil
}

// runServer connects to the database, builds the application and serves
// until ctx is cancelled.
func runServer(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	db, err := setupAppDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}

	app, err := newApplication(cfg, log, db)
	if err != nil {
		if cerr := db.Close(); cerr != nil {
			log.Error("failed to close database connection", "error", cerr)
		}
		return err
	}

	return app.startHTTPServer(ctx, app.setupRouter())
}
