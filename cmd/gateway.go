package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nextlevelbuilder/musebot/internal/bus"
	"github.com/nextlevelbuilder/musebot/internal/channels"
	"github.com/nextlevelbuilder/musebot/internal/channels/discord"
	"github.com/nextlevelbuilder/musebot/internal/channels/telegram"
	"github.com/nextlevelbuilder/musebot/internal/config"
	"github.com/nextlevelbuilder/musebot/internal/dispatch"
	"github.com/nextlevelbuilder/musebot/internal/features"
	"github.com/nextlevelbuilder/musebot/internal/moderation"
	"github.com/nextlevelbuilder/musebot/internal/quiz"
	"github.com/nextlevelbuilder/musebot/internal/store"
	"github.com/nextlevelbuilder/musebot/internal/store/pg"
	"github.com/nextlevelbuilder/musebot/internal/store/sqlite"
	"github.com/nextlevelbuilder/musebot/internal/telemetry"
)

func runGateway() {
	// Setup structured logging
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfgPath := resolveConfigPath()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	} else {
		defer shutdownTracing(context.Background())
	}

	// Storage: Postgres when a DSN is set, SQLite otherwise.
	stores, err := openStores(cfg)
	if err != nil {
		slog.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	msgBus := bus.New()

	// Dispatch core: limiter, cache, queue, and the drain loop.
	identityStore := dispatch.NewIdentityStore(dispatch.StoreOptions{
		LimiterCapacity: cfg.Dispatch.LimiterCapacity,
		LimiterWindow:   cfg.Dispatch.LimiterWindow(),
		CacheTTL:        cfg.Dispatch.CacheTTL(),
		CacheMaxEntries: cfg.Dispatch.CacheMaxEntries,
		HistoryDepth:    cfg.Dispatch.HistoryDepth,
	})
	client := features.NewClient(cfg.Features.APIKey, cfg.Features.APIBase)
	facade := dispatch.New(identityStore, client, msgBus)

	go facade.RunDrainLoop(ctx, cfg.Dispatch.DrainInterval(), cfg.Dispatch.DrainBudget)

	// Channels
	channelMgr := channels.NewManager(msgBus)

	var quizBroadcaster *quiz.Broadcaster
	if cfg.Telegram.Enabled && cfg.Telegram.Token != "" {
		tg, tgErr := telegram.New(cfg.Telegram, msgBus, stores.Members)
		if tgErr != nil {
			slog.Error("failed to initialize telegram channel", "error", tgErr)
			os.Exit(1)
		}
		tg.SetModeration(moderation.New(tg, stores.Actions, cfg.Telegram.AdminIDs))

		quizBroadcaster = quiz.New(cfg.Quiz, tg.Name(), stores.Quiz, msgBus)
		tg.SetQuiz(quizBroadcaster)
		tg.SetRecentFeatures(identityStore.RecentFeatures)

		if err := channelMgr.Register(tg); err != nil {
			slog.Error("failed to register telegram channel", "error", err)
			os.Exit(1)
		}
	}

	if cfg.Discord.Enabled && cfg.Discord.Token != "" {
		dc, dcErr := discord.New(cfg.Discord, msgBus)
		if dcErr != nil {
			slog.Error("failed to initialize discord channel", "error", dcErr)
		} else if err := channelMgr.Register(dc); err != nil {
			slog.Error("failed to register discord channel", "error", err)
		}
	}

	if len(channelMgr.Names()) == 0 {
		slog.Error("no channels configured; set MUSEBOT_TELEGRAM_TOKEN or MUSEBOT_DISCORD_TOKEN")
		os.Exit(1)
	}

	channelMgr.StartAll(ctx)

	if quizBroadcaster != nil {
		go quizBroadcaster.Run(ctx)
	}

	// Inbound consumer: channel message → facade → outbound reply.
	go consumeInbound(ctx, msgBus, facade)

	// Config hot-reload: retune the running limiter, cache, and drain loop
	// from the changed file. Secrets and channel wiring still need a restart.
	if err := config.Watch(ctx, cfgPath, func(updated *config.Config) {
		identityStore.ApplyTuning(dispatch.StoreOptions{
			LimiterCapacity: updated.Dispatch.LimiterCapacity,
			LimiterWindow:   updated.Dispatch.LimiterWindow(),
			CacheTTL:        updated.Dispatch.CacheTTL(),
			CacheMaxEntries: updated.Dispatch.CacheMaxEntries,
		})
		facade.SetDrainTuning(updated.Dispatch.DrainInterval(), updated.Dispatch.DrainBudget)
		slog.Info("config reloaded; dispatch tuning applied",
			"limiter_capacity", updated.Dispatch.LimiterCapacity,
			"cache_ttl_sec", updated.Dispatch.CacheTTLSec,
			"drain_budget", updated.Dispatch.DrainBudget)
	}); err != nil {
		slog.Debug("config watch unavailable", "error", err)
	}

	slog.Info("musebot gateway started",
		"version", Version,
		"channels", channelMgr.Names(),
		"limiter_capacity", cfg.Dispatch.LimiterCapacity,
		"limiter_window", cfg.Dispatch.LimiterWindow(),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("graceful shutdown initiated", "signal", sig)

	channelMgr.StopAll(context.Background())
	cancel()
}

// openStores opens the Postgres stores when a DSN is configured and SQLite
// otherwise. Postgres schema comes from the migrate command; SQLite creates
// its own.
func openStores(cfg *config.Config) (*store.Stores, error) {
	if cfg.Database.PostgresDSN != "" {
		slog.Info("using postgres storage")
		return pg.NewStores(cfg.Database.PostgresDSN)
	}
	slog.Info("using sqlite storage", "path", cfg.Database.SQLitePath)
	return sqlite.NewStores(cfg.Database.SQLitePath)
}
