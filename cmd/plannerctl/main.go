package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"feestplanner/internal/catalog"
	"feestplanner/internal/config"
	"feestplanner/internal/crypto"
	"feestplanner/internal/kv"
	"feestplanner/internal/planner"
	"feestplanner/internal/storage"
)

// app holds the handles every subcommand works against.
type app struct {
	store       *storage.Store
	rdb         *redis.Client
	keyring     *crypto.Keyring
	planner     *planner.Service
	seed        []catalog.Vendor
	ledgerTitle string
	logger      zerolog.Logger

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

type opener func(ctx context.Context) (*app, error)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd(openFromEnv).ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(open opener) *cobra.Command {
	var a *app
	get := func() *app { return a }

	root := &cobra.Command{
		Use:           "plannerctl",
		Short:         "Maintenance tool for the feestplanner bot",
		Long:          `Inspect and maintain client catalogs, budgets and the contact outbox.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opened, err := open(cmd.Context())
			if err != nil {
				return err
			}
			a = opened
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a != nil {
				a.Close()
			}
		},
	}

	root.AddCommand(migrateCmd(get))
	root.AddCommand(catalogCmd(get))
	root.AddCommand(budgetCmd(get))
	root.AddCommand(clientCmd(get))
	root.AddCommand(outboxCmd(get))
	return root
}

func openFromEnv(ctx context.Context) (*app, error) {
	cfg, err := config.LoadTooling()
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(parseLogLevel(cfg.Log.Level))
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	store, err := storage.Open(ctx, cfg.DB.Driver, cfg.DB.DSN, cfg.DB.AutoMigrate)
	if err != nil {
		return nil, err
	}
	a := &app{store: store, ledgerTitle: cfg.Planner.LedgerTitle, logger: logger}
	a.closers = append(a.closers, func() { _ = store.Close() })

	if len(cfg.Crypto.Keys) > 0 {
		a.keyring, err = crypto.NewKeyring(cfg.Crypto.CurrentKeyID, cfg.Crypto.Keys)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.seed, err = catalog.LoadSeedFile(cfg.Planner.SeedCatalogPath)
	if err != nil {
		a.Close()
		return nil, err
	}

	backends := func(clientID string) kv.Backend { return store.ForClient(clientID) }
	if cfg.Planner.StateBackend == config.StateBackendRedis {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, func() { _ = a.rdb.Close() })
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		backends = func(clientID string) kv.Backend { return kv.NewRedisBackend(a.rdb, clientID) }
	}

	a.planner = planner.New(planner.Config{
		Backends: backends,
		Seed:     a.seed,
		Logger:   logger,
	})
	a.closers = append(a.closers, a.planner.Close)
	return a, nil
}

func migrateCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := get().store.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func parseLogLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return l
}
