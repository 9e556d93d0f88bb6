package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/listkeeper/listkeeper/auth"
	"github.com/listkeeper/listkeeper/internal/config"
	"github.com/listkeeper/listkeeper/internal/metrics"
	"github.com/listkeeper/listkeeper/items"
	"github.com/listkeeper/listkeeper/kvstore"
	"github.com/listkeeper/listkeeper/ratelimit"
	"github.com/listkeeper/listkeeper/server"
	"github.com/listkeeper/listkeeper/sessions"
	"github.com/listkeeper/listkeeper/token"
	"github.com/listkeeper/listkeeper/users"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()
	cfg := config.New()
	setupLogging(cfg)
	displayAppname(cfg.GetAppName())

	handler, cleanup, err := buildServer(cfg)
	if err != nil {
		return fmt.Errorf("buildServer: %w", err)
	}
	defer cleanup()

	httpServer := &http.Server{Addr: cfg.GetPort(), Handler: handler}
	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

func buildServer(cfg config.Config) (http.Handler, func(), error) {
	db, err := sql.Open("pgx", cfg.GetDatabaseURL())
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}

	redisKV, err := kvstore.NewRedisKV(kvstore.RedisConfig{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.GetRedisPassword(),
		DB:       cfg.GetRedisDB(),
		Prefix:   cfg.GetRedisPrefix(),
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("kvstore.NewRedisKV: %w", err)
	}

	cleanup := func() {
		_ = redisKV.Close()
		_ = db.Close()
	}

	adapter, err := kvstore.NewAdapter(redisKV, cfg.GetStoreMinTTL(), cfg.GetStoreSafetyMargin())
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("kvstore.NewAdapter: %w", err)
	}

	sessionStore, err := sessions.NewStore(adapter)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("sessions.NewStore: %w", err)
	}

	limiter, err := ratelimit.NewLimiter(adapter,
		ratelimit.WithRule(server.ActionAuth, cfg.GetAuthRateLimit(), cfg.GetAuthRateWindow()),
		ratelimit.WithRule(server.ActionRegistration, cfg.GetRegistrationRateLimit(), cfg.GetRegistrationRateWindow()),
		ratelimit.WithBlockDuration(cfg.GetRateBlockDuration()),
	)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("ratelimit.NewLimiter: %w", err)
	}

	secret := cfg.GetAuthSecret()
	if secret == "" {
		cleanup()
		return nil, nil, errors.New("AUTH_SECRET must be set when ENV is not DEV")
	}
	tokenService, err := token.NewService(secret, token.WithClockSkew(cfg.GetClockSkew()))
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("token.NewService: %w", err)
	}

	userRepo := users.NewPostgresRepo(db)
	authService, err := auth.NewService(
		auth.Repos{Users: userRepo, Sessions: sessionStore},
		users.NewHasher(),
		tokenService,
		cfg.GetTokenTTL(),
		cfg.GetSessionTTL(),
	)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("auth.NewService: %w", err)
	}

	srv, err := server.New(cfg, server.Deps{
		Auth:    authService,
		Users:   userRepo,
		Items:   items.NewPostgresRepo(db),
		Limiter: limiter,
		Metrics: metrics.NewCollector(),
		Health: map[string]server.HealthChecker{
			"kv":  redisKV,
			"sql": sqlPinger{db},
		},
	}, log.Logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("server.New: %w", err)
	}

	return srv, cleanup, nil
}

// sqlPinger adapts *sql.DB to the server's health check interface.
type sqlPinger struct {
	db *sql.DB
}

func (p sqlPinger) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func setupLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
