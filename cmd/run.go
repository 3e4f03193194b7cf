package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"pulp/api"
	"pulp/application"
	"pulp/clock"
	"pulp/config"
	"pulp/database"
	"pulp/domain/interfaces"
	"pulp/domain/services"
	"pulp/events"
	"pulp/infrastructure"
	"pulp/infrastructure/observability"
	"pulp/repository"

	log "github.com/sirupsen/logrus"
)

// ConfigureLogging applies the configured level and formatter
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)

	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// RulesFromConfig builds the economy rules from configuration
func RulesFromConfig(cfg *config.Config) services.Rules {
	return services.Rules{
		MinWager:             cfg.MinWager,
		WindowDuration:       cfg.WindowDuration,
		WindowExpiry:         cfg.WindowExpiry,
		ParticipationAward:   cfg.ParticipationAward,
		UpsetBonus:           cfg.UpsetBonus,
		TransactionPageLimit: cfg.TransactionPageLimit,
	}
}

// MatcherFromConfig selects how rounds are matched to locked windows
func MatcherFromConfig(cfg *config.Config) interfaces.WindowMatcher {
	if cfg.WindowMatchMode == "timing" {
		return services.NewTimingWindowMatcher(cfg.WindowMatchTolerance)
	}
	return services.NewExplicitWindowMatcher()
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	log.WithField("environment", cfg.Environment).Info("Starting pulp...")

	// Metrics
	metrics := observability.NewMetricsProvider(cfg)
	if err := metrics.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	// Database
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(), cfg.StoreTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	// Event bus and unit of work
	eventBus := events.NewBus()
	metrics.SubscribeToBus(eventBus)
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Domain services
	clk := &clock.DefaultClock{}
	economy := services.NewEconomy(uowFactory, clk, RulesFromConfig(cfg), MatcherFromConfig(cfg))
	log.WithField("windowMatchMode", cfg.WindowMatchMode).Info("Economy services initialized")

	// Optional Redis cache in front of the polled active-window read
	var windows interfaces.WindowService = economy.Windows
	if cfg.RedisAddr != "" {
		redisClient, err := infrastructure.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		cached := infrastructure.NewCachedWindowService(economy.Windows, redisClient, clk, cfg.WindowCacheTTL)
		cached.SubscribeToBus(eventBus)
		windows = cached
		log.WithField("addr", cfg.RedisAddr).Info("Active window cache enabled")
	}

	// Optional NATS: forward domain events out, consume round results in
	if cfg.NATSServers != "" {
		natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return err
		}
		defer natsClient.Close()

		mapper := infrastructure.NewEventSubjectMapper()
		if err := natsClient.EnsureStream(infrastructure.DomainEventStream, mapper.GetAllSubjects(), "PULP domain events"); err != nil {
			return err
		}
		infrastructure.NewEventForwarder(natsClient, cfg.OTelServiceName).SubscribeToBus(eventBus)

		roundSubjects := []string{cfg.RoundResultsSubject, infrastructure.ParticipantsSubject(cfg.RoundResultsSubject)}
		if err := natsClient.EnsureStream("PULP_ROUND_RESULTS", roundSubjects, "Completed rounds from the results producer"); err != nil {
			return err
		}
		listener := infrastructure.NewRoundResultsListener(application.NewRoundHandler(economy.RoundResults))
		if err := listener.Start(ctx, natsClient, cfg.RoundResultsSubject); err != nil {
			return fmt.Errorf("failed to start round results listener: %w", err)
		}
		log.WithField("subject", cfg.RoundResultsSubject).Info("Round results listener started")
	}

	// Sweeps
	sweeper := application.NewSweepWorker(windows, economy.Advantages, cfg.SweepInterval)
	sweeper.OnSweep(func(r application.SweepResult) {
		metrics.RecordSweep(r.WindowsLocked, r.WindowsExpired, r.AdvantagesExpired)
	})
	stopSweeper, err := sweeper.Start(ctx)
	if err != nil {
		return err
	}
	defer stopSweeper()

	// HTTP
	if cfg.InternalAPIToken == "" {
		log.Warn("INTERNAL_API_TOKEN is not set, /internal routes are unauthenticated")
	}
	server := api.NewServer(api.Services{
		Ledger:       economy.Ledger,
		Windows:      windows,
		Blessings:    economy.Blessings,
		Challenges:   economy.Challenges,
		Advantages:   economy.Advantages,
		RoundResults: economy.RoundResults,
	}, api.Config{
		InternalToken:   cfg.InternalAPIToken,
		StartingBalance: cfg.StartingBalance,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Listen(cfg.HTTPAddr)
	}()

	log.Infof("pulp is running in %s mode", cfg.Environment)
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	log.Info("Shutting down pulp...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP server")
	}
	if err := metrics.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}

	log.Info("Shutdown completed")
	return nil
}
