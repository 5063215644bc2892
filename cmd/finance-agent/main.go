package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finance-agent/pkg/api"
	"finance-agent/pkg/assistant"
	"finance-agent/pkg/config"
	"finance-agent/pkg/finance"
	"finance-agent/pkg/generator"
	"finance-agent/pkg/generator/gemini"
	"finance-agent/pkg/generator/openai"
	"finance-agent/pkg/grpcserver"
	"finance-agent/pkg/logging"
	"finance-agent/pkg/metrics"
	promMetrics "finance-agent/pkg/metrics/prometheus"
	"finance-agent/pkg/resilience"
	"finance-agent/pkg/session"
	"finance-agent/pkg/snapshot"
	"finance-agent/pkg/store"
	"finance-agent/pkg/store/firestore"
	"finance-agent/pkg/store/redis"
	"finance-agent/pkg/store/sqlstore"
	"finance-agent/pkg/writer"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Logging())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	logging.SetGlobal(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Finance agent stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	logger.Info("Starting finance agent",
		zap.String("provider", cfg.Generator.Provider),
		zap.String("store", cfg.Store.Driver),
		zap.Duration("refresh_interval", cfg.RefreshInterval),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := promMetrics.NewPrometheusCollector("finance_agent")
	if err := collector.Register(registry); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	ctx := context.Background()

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	source := resilience.NewSource(be.source, resilience.DefaultSourceConfig(), collector)

	buffer := snapshot.New(source, snapshot.Config{
		Interval: cfg.RefreshInterval,
		Metrics:  collector,
	})

	gen, err := newGenerator(cfg.Generator, collector)
	if err != nil {
		return err
	}

	agentConfig := assistant.Config{HistoryWindow: cfg.Session.HistoryWindow}
	var convWriter *writer.ConversationWriter
	if cfg.PersistConversations && len(be.sinks) > 0 {
		convWriter = writer.New(be.sinks, writer.Config{}, collector)
		agentConfig.Recorder = convWriter
		logger.Info("Persisting conversations", zap.String("sinks", be.sinks.Name()))
	}
	agent := assistant.NewAgent(gen, buffer, agentConfig)

	sessions := session.NewStore(session.StoreConfig{
		MaxSize: cfg.Session.MaxSessions,
		TTL:     cfg.Session.TTL,
	})

	var grpcSrv *grpcserver.Server
	if cfg.GRPCAddr != "" {
		grpcSrv = grpcserver.New(cfg.GRPCAddr)
		buffer.Watch(func(s snapshot.Snapshot) {
			grpcSrv.SetServing(!s.Fallback)
		})
		go func() {
			if err := grpcSrv.Start(); err != nil {
				logger.Error("gRPC server failed", zap.Error(err))
			}
		}()
	}

	// Load the buffer before taking traffic.
	initial := buffer.Current(ctx)
	logger.Info("Transaction buffer ready",
		zap.Int("records", len(initial.Records)),
		zap.Bool("fallback", initial.Fallback),
	)

	serverConfig := api.DefaultServerConfig()
	serverConfig.Address = cfg.HTTPAddr
	serverConfig.CORSEnabled = cfg.CORS.Enabled
	serverConfig.AllowedOrigins = cfg.CORS.AllowedOrigins
	serverConfig.WriteTimeout = cfg.Generator.Timeout + 15*time.Second
	serverConfig.Registerer = registry
	serverConfig.Gatherer = registry
	if be.archive != nil {
		serverConfig.Archive = be.archive
	}

	srv, err := api.NewServer(agent, sessions, buffer, serverConfig)
	if err != nil {
		return err
	}
	srv.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs error
	errs = multierr.Append(errs, srv.Stop(shutdownCtx))
	if grpcSrv != nil {
		grpcSrv.Stop()
	}
	if convWriter != nil {
		errs = multierr.Append(errs, convWriter.Close())
	}
	errs = multierr.Append(errs, sessions.Close())
	errs = multierr.Append(errs, buffer.Close())
	if be.redis != nil {
		errs = multierr.Append(errs, be.redis.Close())
	}

	if errs != nil {
		return fmt.Errorf("shutdown: %w", errs)
	}
	logger.Info("Stopped gracefully")
	return nil
}

// backend is the record source and the conversation sinks built from config.
type backend struct {
	source store.Source
	sinks  store.MultiSink
	redis  *redis.Client

	// archive is set when redis is enabled
	archive *redis.ConversationLog
}

func openBackend(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*backend, error) {
	be := &backend{}

	var open store.Opener
	switch cfg.Store.Driver {
	case config.DriverStatic:
		be.source = store.NewStatic(finance.SampleRecords())
	case config.DriverPostgres, config.DriverMySQL, config.DriverSQLite:
		open = func(ctx context.Context) (store.Source, error) {
			s, err := sqlstore.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
	case config.DriverFirestore:
		open = func(ctx context.Context) (store.Source, error) {
			s, err := firestore.Open(ctx, firestore.Config{
				ProjectID:       cfg.Store.FirebaseProjectID,
				CredentialsFile: cfg.Store.FirebaseCredentials,
			})
			if err != nil {
				return nil, err
			}
			return s, nil
		}
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if open != nil {
		s, err := open(ctx)
		switch {
		case err == nil:
			be.source = s
			be.sinks = append(be.sinks, s.(store.ConversationSink))
		case errors.Is(err, store.ErrUnavailable):
			// Serve sample data and keep trying on each refresh.
			logger.Warn("Record store unavailable, starting on sample data",
				zap.String("store", cfg.Store.Driver),
				zap.Error(err),
			)
			lazy := store.NewLazy(cfg.Store.Driver, open)
			be.source = lazy
			be.sinks = append(be.sinks, lazy)
		default:
			return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
		}
	}
	logger.Info("Record store ready", zap.String("store", be.source.Name()))

	if cfg.Redis.Addr == "" {
		return be, nil
	}

	redisConfig := redis.DefaultConfig()
	redisConfig.Addr = cfg.Redis.Addr
	redisConfig.KeyPrefix = cfg.Redis.KeyPrefix
	client, err := redis.NewClient(redisConfig)
	if err != nil {
		// The agent works without redis; only the cache and log are lost.
		logger.Warn("Redis unavailable, continuing without cache", zap.Error(err))
		return be, nil
	}

	be.redis = client
	be.source = redis.NewSnapshotCache(client, be.source, cfg.RefreshInterval)
	be.archive = redis.NewConversationLog(client)
	be.sinks = append(be.sinks, be.archive)
	logger.Info("Redis snapshot cache enabled", zap.String("addr", cfg.Redis.Addr))

	return be, nil
}

func newGenerator(cfg config.GeneratorConfig, collector metrics.MetricsCollector) (generator.Generator, error) {
	var next generator.Generator
	switch cfg.Provider {
	case config.ProviderGemini:
		g, err := gemini.New(gemini.Config{APIKey: cfg.GeminiAPIKey, URL: cfg.GeminiAPIURL})
		if err != nil {
			return nil, err
		}
		next = g
	case config.ProviderOpenAI:
		next = openai.New(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
	default:
		return nil, errors.New("unknown generator provider " + cfg.Provider)
	}

	return resilience.NewGenerator(next, resilience.DefaultResilientConfig().WithTimeout(cfg.Timeout), collector), nil
}
