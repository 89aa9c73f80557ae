package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dwes123/nflsync/internal/config"
	"github.com/dwes123/nflsync/internal/db"
	"github.com/dwes123/nflsync/internal/fetch"
	"github.com/dwes123/nflsync/internal/report"
	"github.com/dwes123/nflsync/internal/store"
	"github.com/dwes123/nflsync/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "nflsync",
		Short:         "Load the nflverse NFL schedule into nfl_games",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./nflsync.yaml or ./config/nflsync.yaml)")

	root.AddCommand(newRunCmd(&cfgFile))
	root.AddCommand(newReportCmd(&cfgFile))
	root.AddCommand(newShowCmd(&cfgFile))
	root.AddCommand(newSchemaCmd(&cfgFile))
	root.AddCommand(newTeamsCmd(&cfgFile))
	return root
}

// setup loads and validates config and builds the logger. Every subcommand
// needs DATABASE_URL, so a missing one stops here before any other work.
func setup(cfgFile string) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func connect(ctx context.Context, cfgFile string) (*pgxpool.Pool, *logrus.Logger, error) {
	cfg, logger, err := setup(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, &worker.StepError{Step: worker.StepConfig, Kind: worker.ErrPrecondition, Err: err}
	}
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Connected to database")
	return pool, logger, nil
}

func newRunCmd(cfgFile *string) *cobra.Command {
	var opts worker.Options
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Download games.csv, stage it, upsert nfl_games and report counts by season",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*cfgFile)
			if err != nil {
				return err
			}
			fetcher := fetch.NewClient(cfg.HTTPTimeout, logger)
			sync := worker.NewGameSync(cfg, logger, fetcher, worker.OpenPostgres, cmd.OutOrStdout())

			logger.Info("🚀 Starting NFL schedule sync")
			if _, err := sync.Run(cmd.Context(), opts); err != nil {
				return err
			}
			logger.Info("NFL schedule sync completed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "parse and filter locally without touching the database")
	cmd.Flags().BoolVar(&opts.KeepFile, "keep-file", false, "keep the downloaded CSV instead of deleting it")
	return cmd
}

func newReportCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print nfl_games row counts by season",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, _, err := connect(cmd.Context(), *cfgFile)
			if err != nil {
				return err
			}
			defer pool.Close()

			counts, err := store.NewGameStore(pool).SeasonCounts(cmd.Context())
			if err != nil {
				return &worker.StepError{Step: worker.StepReport, Kind: worker.ErrReport, Err: err}
			}
			report.Seasons(cmd.OutOrStdout(), "Games in nfl_games by season:", counts)
			return nil
		},
	}
}

func newShowCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <game_id>",
		Short: "Print one game from nfl_games",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, _, err := connect(cmd.Context(), *cfgFile)
			if err != nil {
				return err
			}
			defer pool.Close()

			g, err := store.NewGameStore(pool).GetGame(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("game %s: %w", args[0], err)
			}
			report.Game(cmd.OutOrStdout(), g)
			return nil
		},
	}
}

func newSchemaCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create nfl_teams and nfl_games if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, logger, err := connect(cmd.Context(), *cfgFile)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := store.EnsureSchema(cmd.Context(), pool); err != nil {
				return err
			}
			logger.Info("✅ Tables created successfully")
			return nil
		},
	}
}

func newTeamsCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "teams",
		Short: "Seed nfl_teams with the 32 franchises",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, logger, err := connect(cmd.Context(), *cfgFile)
			if err != nil {
				return err
			}
			defer pool.Close()

			inserted, err := store.SeedTeams(cmd.Context(), pool)
			if err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{
				"inserted": inserted,
				"total":    len(store.Teams),
			}).Info("✅ Teams seeded")
			return nil
		},
	}
}
