package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	bolt "go.etcd.io/bbolt"

	"paylock/config"
	"paylock/core"
	"paylock/core/events"
	"paylock/observability/logging"
	"paylock/observability/metrics"
	telemetry "paylock/observability/otel"
	"paylock/rpc"
	"paylock/services/indexer"
	"paylock/storage"
)

const envOverride = "PAYLOCK_ENV"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	if err := run(*configFile); err != nil {
		fmt.Fprintf(os.Stderr, "paylockd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	env := cfg.Env
	if override := strings.TrimSpace(os.Getenv(envOverride)); override != "" {
		env = override
	}
	logger := logging.Setup("paylockd", env, logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "paylockd",
		Environment: env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	db, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	spec, err := cfg.GenesisSpec()
	if err != nil {
		return fmt.Errorf("load genesis: %w", err)
	}
	node, err := core.NewNode(db, spec, logger)
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}
	quota, err := cfg.QuotaLimits()
	if err != nil {
		return err
	}
	node.SetQuota(quota)

	jwtSecret := ""
	if name := strings.TrimSpace(cfg.RPC.JWTSecretEnv); name != "" {
		jwtSecret = strings.TrimSpace(os.Getenv(name))
		if jwtSecret == "" {
			return fmt.Errorf("rpc: %s is configured but empty", name)
		}
		logger.Info("rpc transaction auth enabled",
			slog.String("issuer", cfg.RPC.JWTIssuer),
			logging.Field("secret", jwtSecret))
	}
	server := rpc.NewServer(node, rpc.ServerConfig{
		RateLimitPerSecond: cfg.RPC.RateLimitPerSecond,
		RateLimitBurst:     cfg.RPC.RateLimitBurst,
		ReadHeaderTimeout:  time.Duration(cfg.RPC.ReadHeaderTimeout) * time.Second,
		MaxBodyBytes:       cfg.RPC.MaxBodyBytes,
		TrustProxyHeaders:  cfg.RPC.TrustProxyHeaders,
		JWTSecret:          jwtSecret,
		JWTIssuer:          cfg.RPC.JWTIssuer,
		Tracing:            cfg.Telemetry.Traces,
		AllowedOrigins:     cfg.RPC.WSAllowedOrigins,
		MaxConnections:     cfg.RPC.MaxConnections,
	}, logger)

	sinks := events.Fanout{metrics.Market(), server.Events()}
	if dsn := strings.TrimSpace(cfg.IndexerDSN); dsn != "" {
		idx, err := indexer.Open(dsn, logger)
		if err != nil {
			return fmt.Errorf("open event indexer: %w", err)
		}
		defer idx.Close()
		server.SetEventSource(idx)
		sinks = append(sinks, idx)
		logger.Info("event indexer enabled", logging.Field("dsn", redactDSN(dsn)))
	}
	node.SetEmitter(sinks)

	logger.Info("node ready",
		slog.String("backend", cfg.StorageBackend),
		slog.String("dataDir", cfg.DataDir),
		slog.String("rpc", cfg.RPCAddress))

	if err := server.Start(ctx, cfg.RPCAddress); err != nil {
		return fmt.Errorf("rpc server: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func openStorage(cfg *config.Config) (storage.Database, error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		return storage.NewMemDB(), nil
	case config.StorageBolt:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		return storage.NewBoltDB(cfg.StoragePath(), &bolt.Options{Timeout: time.Second})
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.StoragePath()), 0o755); err != nil {
			return nil, err
		}
		return storage.NewLevelDB(cfg.StoragePath())
	}
}

// redactDSN strips credentials from URL-style DSNs.
func redactDSN(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return dsn
	}
	return scheme + "://" + logging.RedactedValue + rest[at:]
}
