package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"feestplanner/internal/assistant"
	"feestplanner/internal/catalog"
	"feestplanner/internal/config"
	"feestplanner/internal/crypto"
	"feestplanner/internal/httpapi"
	"feestplanner/internal/interaction"
	"feestplanner/internal/kv"
	"feestplanner/internal/metrics"
	"feestplanner/internal/planner"
	"feestplanner/internal/providers/registry"
	"feestplanner/internal/queue"
	"feestplanner/internal/storage"
	"feestplanner/internal/telegram"
	"feestplanner/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setupLogger(cfg.Log.Level)
	log.Info().
		Str("mode", cfg.AppMode).
		Str("access_mode", cfg.BotAccessMode).
		Str("state_backend", cfg.Planner.StateBackend).
		Str("assistant", cfg.Assistant.Provider).
		Bool("dev_polling", cfg.DevPolling).
		Bool("api_enabled", cfg.APIEnabled).
		Msg("starting feestplanner")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.Open(ctx, cfg.DB.Driver, cfg.DB.DSN, cfg.DB.AutoMigrate)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}
	defer store.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer rdb.Close()

	keyring, err := crypto.NewKeyring(cfg.Crypto.CurrentKeyID, cfg.Crypto.Keys)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize keyring")
	}

	seed, err := catalog.LoadSeedFile(cfg.Planner.SeedCatalogPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load seed catalog")
	}

	bot, err := gotgbot.NewBot(cfg.BotToken, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create telegram bot")
	}
	log.Info().Str("bot_username", bot.User.Username).Int64("bot_id", bot.User.Id).Msg("telegram bot initialized")

	m := metrics.Global()
	plan := planner.New(planner.Config{
		Backends:   backendFactory(cfg.Planner.StateBackend, store, rdb),
		Seed:       seed,
		Submitter:  &interaction.OutboxSubmitter{Outbox: store, Keyring: keyring, Logger: log.Logger},
		ResetAfter: cfg.Planner.ContactResetAfter,
		Logger:     log.Logger,
		Metrics:    m,
	})
	defer plan.Close()

	jobQueue := queue.NewStreamQueue(rdb, cfg.Redis.QueueStream, cfg.Redis.QueueGroup, cfg.Worker.ConsumerName, cfg.Redis.QueueBlock)
	gate := queue.NewBusyGate(rdb, cfg.Redis.BusyTTL)

	errCh := make(chan error, 4)
	var updater *ext.Updater
	var webhookHandler http.Handler
	var webhookRoute string
	logTelegramErr := func(err error) {
		log.Error().Str("component", "telegram").Msg(sanitizeTelegramErr(err, cfg.BotToken))
	}

	runPolling := cfg.DevPolling && cfg.AppMode != config.ModeWorker
	runWebhook := !runPolling && (cfg.AppMode == config.ModeWebhook || cfg.AppMode == config.ModeAll)
	runIngress := runPolling || runWebhook
	if runIngress {
		allowedUserID := int64(0)
		if cfg.BotAccessMode == config.AccessModePrivate {
			allowedUserID = cfg.AdminUserID
		}
		dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
			MaxRoutines:      100,
			UnhandledErrFunc: logTelegramErr,
			Processor: telegram.Processor{
				Dedupe:        queue.NewUpdateDeduplicator(rdb, cfg.Redis.UpdateTTL),
				Metrics:       m,
				Logger:        log.Logger,
				AllowedUserID: allowedUserID,
			},
		})
		service := telegram.NewService(telegram.Config{
			Planner:     plan,
			Queue:       jobQueue,
			RateLimiter: queue.NewRateLimiter(rdb, cfg.Rate.PerHour),
			Gate:        gate,
			Redis:       rdb,
			Linker:      interaction.Linker{BaseURL: cfg.Planner.ShareBaseURL, BotUsername: bot.User.Username},
			LedgerTitle: cfg.Planner.LedgerTitle,
			Logger:      log.Logger,
			Metrics:     m,
			WizardTTL:   cfg.Redis.WizardTTL,
		})
		service.Register(dispatcher)
		updater = ext.NewUpdater(dispatcher, &ext.UpdaterOpts{
			UnhandledErrFunc: logTelegramErr,
		})

		if runPolling {
			if err := updater.StartPolling(bot, &ext.PollingOpts{
				EnableWebhookDeletion: true,
				DropPendingUpdates:    true,
				GetUpdatesOpts: &gotgbot.GetUpdatesOpts{
					Timeout: 50,
					RequestOpts: &gotgbot.RequestOpts{
						Timeout: 60 * time.Second,
					},
				},
			}); err != nil {
				log.Fatal().Err(err).Msg("failed to start polling")
			}
			log.Info().Msg("polling mode started")
		} else if runWebhook {
			path := strings.Trim(cfg.Webhook.SecretPath, "/")
			if path == "" {
				path = "telegram"
			}
			if cfg.Webhook.PublicURL == "" {
				log.Fatal().Msg("WEBHOOK_URL is required in webhook mode")
			}
			if err := updater.AddWebhook(bot, path, &ext.AddWebhookOpts{SecretToken: cfg.Webhook.SecretToken}); err != nil {
				log.Fatal().Err(err).Msg("failed to configure webhook handler")
			}

			webhookURL := strings.TrimSuffix(cfg.Webhook.PublicURL, "/") + "/" + path
			if _, err := bot.SetWebhook(webhookURL, &gotgbot.SetWebhookOpts{
				DropPendingUpdates: false,
				SecretToken:        cfg.Webhook.SecretToken,
			}); err != nil {
				log.Fatal().Err(err).Msg("failed to set telegram webhook")
			}
			log.Info().Str("webhook_url", webhookURL).Msg("webhook registered")
			webhookRoute = "/" + path
			webhookHandler = updater.GetHandlerFunc("/")
		}
	}

	router := httpapi.NewRouter(httpapi.Config{
		Planner:     plan,
		LedgerTitle: cfg.Planner.LedgerTitle,
		Logger:      log.Logger,
		HealthPath:  cfg.Webhook.HealthPath,
		MetricsPath: cfg.Webhook.MetricsPath,
		Ping: func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return err
			}
			return store.DB().PingContext(ctx)
		},
		WebhookPath: webhookRoute,
		Webhook:     webhookHandler,
		APIEnabled:  cfg.APIEnabled,
	})
	httpServer := &http.Server{
		Addr:              cfg.Webhook.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Webhook.WebhookTimeout,
	}
	go func() {
		log.Info().Str("addr", cfg.Webhook.ListenAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if cfg.AppMode == config.ModeWorker || cfg.AppMode == config.ModeAll {
		assistants, err := newAssistants(ctx, cfg, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize assistant")
		}
		w := worker.New(worker.Config{
			Queue:         jobQueue,
			Assistants:    assistants,
			Sender:        telegram.BotSender{Bot: bot},
			Gate:          gate,
			MaxJobRetries: cfg.Worker.MaxRetries,
			Logger:        log.Logger,
			Metrics:       m,
		})
		go func() {
			if err := w.Start(ctx, cfg.Worker.Concurrency); err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("worker failed: %w", err)
			}
		}()
		log.Info().Int("concurrency", cfg.Worker.Concurrency).Msg("worker started")
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("runtime error")
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if updater != nil {
		if err := updater.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop updater")
		}
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to stop http server")
	}

	log.Info().Msg("stopped")
}

// backendFactory scopes client state to the SQL store or to Redis.
func backendFactory(kind string, store *storage.Store, rdb *redis.Client) planner.BackendFactory {
	if kind == config.StateBackendRedis {
		return func(clientID string) kv.Backend {
			return kv.NewRedisBackend(rdb, clientID)
		}
	}
	return func(clientID string) kv.Backend {
		return store.ForClient(clientID)
	}
}

func newAssistants(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*assistant.Registry, error) {
	provider, err := registry.Build(ctx, registry.BuildOptions{
		Kind:        cfg.Assistant.Provider,
		BaseURL:     cfg.Assistant.BaseURL,
		APIKey:      cfg.Assistant.APIKey,
		Endpoint:    cfg.Assistant.Endpoint,
		HTTPClient:  &http.Client{Timeout: cfg.HTTP.ClientTimeout},
		MaxRetries:  cfg.HTTP.MaxRetries,
		BackoffBase: cfg.HTTP.BackoffBase,
	})
	if err != nil {
		return nil, err
	}
	return assistant.NewRegistry(assistant.RegistryConfig{
		Size: cfg.Assistant.MaxSessions,
		TTL:  cfg.Assistant.SessionTTL,
		New: func(clientID string) *assistant.Bridge {
			return assistant.NewBridge(assistant.BridgeConfig{
				Turner: assistant.NewSession(assistant.SessionConfig{
					Provider:    provider,
					Model:       cfg.Assistant.Model,
					MaxTokens:   cfg.Assistant.MaxTokens,
					Temperature: cfg.Assistant.Temperature,
					MaxHistory:  cfg.Assistant.MaxHistory,
				}),
				Timeout: cfg.Assistant.Timeout,
				Logger:  logger.With().Str("client_id", clientID).Logger(),
			})
		},
	}), nil
}

func setupLogger(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLogLevel(level))
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func sanitizeTelegramErr(err error, token string) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if strings.TrimSpace(token) == "" {
		return msg
	}

	msg = strings.ReplaceAll(msg, token, "<redacted-token>")
	if idx := strings.Index(token, ":"); idx > 0 {
		botID := token[:idx]
		msg = strings.ReplaceAll(msg, "/bot"+botID+":", "/bot<redacted>:")
		msg = strings.ReplaceAll(msg, "bot"+botID+"/", "bot<redacted>/")
	}
	return msg
}
