// Command involves-etl runs one full extraction of an Involves environment
// into the configured sink.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/retailsync/involves-etl/internal/config"
	"github.com/retailsync/involves-etl/internal/dataset"
	"github.com/retailsync/involves-etl/internal/runner"
	"github.com/retailsync/involves-etl/internal/sink"
	"github.com/retailsync/involves-etl/internal/sink/spreadsheet"
	"github.com/retailsync/involves-etl/internal/sink/warehouse"
	"github.com/retailsync/involves-etl/pkg/client"
	"github.com/retailsync/involves-etl/pkg/logging"
	"github.com/retailsync/involves-etl/pkg/respcache"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup(logging.DefaultConfig()).Fatal().Err(err).Msg("Invalid configuration")
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, err := buildCache(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Cache setup failed")
	}

	clientCfg := client.DefaultConfig(cfg.Username, cfg.Password)
	clientCfg.Cache = cache
	involves, err := client.New(clientCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Client setup failed")
	}

	writer, reader, err := buildSink(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Sink setup failed")
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	extractor := dataset.New(involves, dataset.DefaultConfig(cfg.BaseURL, cfg.EnvironmentID))
	if err := runner.New(extractor, writer, reader).Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Extraction run failed")
	}
}

// buildCache returns the response cache: Redis-backed and run-scoped when
// REDIS_ADDR is set, in-memory otherwise.
func buildCache(ctx context.Context, cfg config.Config) (respcache.Store, error) {
	if cfg.RedisAddr == "" {
		return respcache.NewMemoryStore(), nil
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return respcache.NewRedisStore(redisClient, uuid.NewString(), respcache.DefaultRedisTTL), nil
}

// buildSink returns the configured sink. The spreadsheet driver cannot be
// read back, so its reader is nil and incremental datasets reload fully.
func buildSink(cfg config.Config) (sink.Writer, sink.Reader, error) {
	if cfg.SinkDriver == "spreadsheet" {
		writer, err := spreadsheet.New(cfg.OutputDir)
		if err != nil {
			return nil, nil, err
		}
		return writer, nil, nil
	}

	w, err := warehouse.Open(cfg.SinkDriver, cfg.SinkDSN)
	if err != nil {
		return nil, nil, err
	}
	return w, w, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logging.NewLogger("metrics").Error().Err(err).Msg("Metrics listener stopped")
	}
}
