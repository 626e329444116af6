package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"exchange-agent/handler"
	"exchange-agent/internal/integrations/bankiru"
	"exchange-agent/internal/integrations/cbr"
	"exchange-agent/internal/integrations/moex"
	"exchange-agent/internal/integrations/paramstore"
	"exchange-agent/internal/integrations/telegram"
	"exchange-agent/internal/poll"
	"exchange-agent/internal/repository"
	"exchange-agent/internal/usecase"
)

func main() {
	ctx := context.Background()
	logger := slog.Default()

	// ---- Configuration (read only here) ----
	apiURL := mustEnv("TELEGRAM_API_URL")
	sessionTable := mustEnv("SESSION_TABLE")
	adminID := envInt64("ADMIN_CHAT_ID", 0)
	pollLimit := envInt("POLL_LIMIT", 5)
	pollTimeout := envInt("POLL_TIMEOUT_SECONDS", 0)
	pollInterval := time.Duration(envInt("POLL_INTERVAL_MS", 1000)) * time.Millisecond
	announceDelay := time.Duration(envInt("ANNOUNCE_DELAY_MS", 3000)) * time.Millisecond
	metricsAddr := os.Getenv("METRICS_ADDR")

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- API token: direct env or SSM parameter ----
	token := os.Getenv("TELEGRAM_API_TOKEN")
	if token == "" {
		paramName := os.Getenv("TELEGRAM_TOKEN_PARAM")
		if paramName == "" {
			slog.Error("either TELEGRAM_API_TOKEN or TELEGRAM_TOKEN_PARAM must be set")
			os.Exit(1)
		}
		ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
		if err != nil {
			slog.Error("failed to create SSM client", "err", err)
			os.Exit(1)
		}
		token, err = ssmClient.GetToken(ctx, paramName)
		if err != nil {
			slog.Error("failed to fetch API token", "param", paramName, "err", err)
			os.Exit(1)
		}
	}

	// ---- Clients ----
	transport, err := telegram.NewClient(apiURL, token)
	if err != nil {
		slog.Error("failed to create transport client", "err", err)
		os.Exit(1)
	}

	sessions, err := repository.New(awsdynamodb.NewFromConfig(cfg), sessionTable)
	if err != nil {
		slog.Error("failed to create session store", "err", err)
		os.Exit(1)
	}

	banki := bankiru.NewClient()
	cities := bankiru.NewCityDirectory(banki)
	if err := cities.Load(ctx); err != nil {
		// The bot can start without the table; city lookups miss until a restart.
		slog.Error("failed to load city list", "err", err)
	} else {
		slog.Info("city list loaded", "cities", cities.Len())
	}

	aggregator, err := usecase.NewAggregator(cbr.NewClient(), banki, moex.NewClient(), banki, announceDelay, logger)
	if err != nil {
		slog.Error("failed to create aggregator", "err", err)
		os.Exit(1)
	}

	engine, err := usecase.NewEngine(sessions, cities, aggregator, transport, logger)
	if err != nil {
		slog.Error("failed to create conversation engine", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(engine, transport, adminID, logger)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	if metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				slog.Error("metrics listener stopped", "addr", metricsAddr, "err", err)
			}
		}()
	}

	loop, err := poll.New(transport, h, 0, pollLimit, pollTimeout, pollInterval, logger)
	if err != nil {
		slog.Error("failed to create poll loop", "err", err)
		os.Exit(1)
	}

	slog.Info("starting poll loop", "limit", pollLimit, "interval", pollInterval)
	if err := loop.Run(ctx); err != nil {
		slog.Error("poll loop stopped", "err", err)
		os.Exit(1)
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}
