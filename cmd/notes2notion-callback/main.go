package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"github.com/sonpero/Notes2Notion/internal/adapters/driven/auth"
	"github.com/sonpero/Notes2Notion/internal/adapters/driven/exchange"
	"github.com/sonpero/Notes2Notion/internal/adapters/driven/memory"
	"github.com/sonpero/Notes2Notion/internal/adapters/driven/postgres"
	redisadapter "github.com/sonpero/Notes2Notion/internal/adapters/driven/redis"
	"github.com/sonpero/Notes2Notion/internal/adapters/driving/http"
	"github.com/sonpero/Notes2Notion/internal/core/domain"
	"github.com/sonpero/Notes2Notion/internal/core/ports/driven"
	"github.com/sonpero/Notes2Notion/internal/core/services"
	"github.com/sonpero/Notes2Notion/internal/logging"
	"github.com/sonpero/Notes2Notion/internal/worker"
)

var version = "dev"

const devCookieSecret = "development-cookie-secret-change-in-production"

func main() {
	logger := logging.New(
		logging.WithFormat(logging.ParseFormat(getEnv("LOG_FORMAT", "json"))),
		logging.WithLevel(logging.ParseLevel(getEnv("LOG_LEVEL", "info"))),
		logging.WithRedaction(getEnvBool("LOG_REDACT", true)),
	)
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("notes2notion-callback exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	logger.Info("notes2notion-callback starting", "version", version)

	// Configuration from environment
	port := getEnvInt("PORT", 3000)
	frontendBaseURL := getEnv("FRONTEND_BASE_URL", "/")
	exchangeURL := getEnv("EXCHANGE_URL", exchange.DefaultURL)
	exchangeTimeout := getEnvDuration("EXCHANGE_TIMEOUT", 0)
	stateTTL := getEnvDuration("STATE_TTL", services.DefaultStateTTL)
	cookieSecret := getEnv("COOKIE_SECRET", devCookieSecret)
	cookieSecure := getEnvBool("COOKIE_SECURE", false)
	redisURL := getEnv("REDIS_URL", "")
	databaseURL := getEnv("DATABASE_URL", "")
	sweepInterval := getEnvDuration("SWEEP_INTERVAL", time.Hour)
	callbackLockTTL := getEnvDuration("CALLBACK_LOCK_TTL", services.DefaultCallbackLockTTL)

	statusPolicy, err := domain.ParseStatusPolicy(getEnv("EXCHANGE_STATUS_POLICY", string(domain.StatusPolicyStrict)))
	if err != nil {
		return fmt.Errorf("EXCHANGE_STATUS_POLICY: %w", err)
	}

	if cookieSecret == devCookieSecret {
		logger.Warn("COOKIE_SECRET not set, using development secret")
	}
	if exchangeTimeout > 0 && callbackLockTTL <= exchangeTimeout {
		logger.Warn("CALLBACK_LOCK_TTL should exceed EXCHANGE_TIMEOUT",
			"callback_lock_ttl", callbackLockTTL.String(),
			"exchange_timeout", exchangeTimeout.String(),
		)
	}

	// Setup context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ===== Pending state storage (Redis, then PostgreSQL, then memory) =====
	var (
		stateStore      driven.PendingStateStore
		distributedLock driven.DistributedLock
		sweepExpired    = true
	)

	switch {
	case redisURL != "":
		logger.Info("connecting to redis")
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		stateStore = redisadapter.NewPendingStateStore(redisClient)
		distributedLock = redisadapter.NewLock(redisClient)
		// Key TTLs expire abandoned states.
		sweepExpired = false
		logger.Info("using redis pending state store")

	case databaseURL != "":
		logger.Info("connecting to postgresql")
		dbConfig := postgres.DefaultConfig(databaseURL)
		dbConfig.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", dbConfig.MaxOpenConns)
		dbConfig.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", dbConfig.MaxIdleConns)
		db, err := postgres.Connect(ctx, dbConfig)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		if err := db.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}
		stateStore = postgres.NewPendingStateStore(db.DB)
		distributedLock = postgres.NewAdvisoryLock(db)
		logger.Info("using postgresql pending state store")

	default:
		stateStore = memory.NewPendingStateStore()
		distributedLock = memory.NewLock()
		logger.Warn("no REDIS_URL or DATABASE_URL, pending states are kept in memory")
	}

	// ===== Driven adapters =====
	signer, err := auth.NewScopeSigner(cookieSecret)
	if err != nil {
		return fmt.Errorf("create scope signer: %w", err)
	}

	exchanger := exchange.NewClient(exchange.Config{
		URL:     exchangeURL,
		Timeout: exchangeTimeout,
		Logger:  logger,
	})

	oauthConfig := &oauth2.Config{
		ClientID:    getEnv("NOTION_CLIENT_ID", ""),
		RedirectURL: getEnv("NOTION_REDIRECT_URL", fmt.Sprintf("http://localhost:%d/notion/callback", port)),
		Endpoint:    services.NotionEndpoint,
	}
	if authURL := getEnv("NOTION_AUTH_URL", ""); authURL != "" {
		oauthConfig.Endpoint.AuthURL = authURL
	}
	if oauthConfig.ClientID == "" {
		logger.Warn("NOTION_CLIENT_ID not set, /notion/connect is disabled")
	}

	// ===== Services =====
	callbackService := services.NewCallbackService(services.CallbackServiceConfig{
		StateStore:      stateStore,
		Exchanger:       exchanger,
		Lock:            distributedLock,
		LockTTL:         callbackLockTTL,
		StatusPolicy:    statusPolicy,
		FrontendBaseURL: frontendBaseURL,
		Logger:          logger,
	})
	connectService := services.NewConnectService(services.ConnectServiceConfig{
		StateStore: stateStore,
		OAuth:      oauthConfig,
		StateTTL:   stateTTL,
		Logger:     logger,
	})

	logger.Info("callback configured",
		"exchange_url", exchanger.URL(),
		"exchange_timeout", exchangeTimeout.String(),
		"status_policy", string(statusPolicy),
		"frontend_base_url", frontendBaseURL,
		"state_ttl", stateTTL.String(),
	)

	// ===== Sweeper =====
	if sweepExpired {
		sweeper := worker.NewSweeper(worker.SweeperConfig{
			Store:    stateStore,
			Lock:     distributedLock,
			Logger:   logger,
			Interval: sweepInterval,
		})
		if err := sweeper.Start(ctx); err != nil {
			return fmt.Errorf("start sweeper: %w", err)
		}
		defer sweeper.Stop()
	}

	// ===== HTTP server =====
	serverConfig := http.DefaultConfig()
	serverConfig.Host = getEnv("HOST", serverConfig.Host)
	serverConfig.Port = port
	serverConfig.Version = version
	serverConfig.CookieSecure = cookieSecure
	serverConfig.Interstitial = getEnvBool("CALLBACK_INTERSTITIAL", true)
	serverConfig.AllowedOrigins = getEnvList("ALLOWED_ORIGINS")
	serverConfig.Logger = logger

	components := map[string]http.Pinger{
		"store": stateStore,
		"lock":  distributedLock,
	}

	server := http.NewServer(serverConfig, callbackService, connectService, signer, components)
	return server.Run(ctx)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
