package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"docgate/internal/auth"
	"docgate/internal/config"
	"docgate/internal/search"
	"docgate/internal/server"
	"docgate/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := auth.DefaultLogger()

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	if err := store.Migrate(db); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	users := store.NewUsersRepository(db)
	accounts := store.NewLinkedAccountRepository(db)
	documents := store.NewDocumentsRepository(db)
	groups := store.NewGroupsRepository(db, documents)
	sessions := store.NewSessionRepository(db)

	var limitStore auth.RateLimitStore
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		limitStore = auth.NewRedisRateLimitStore(client, cfg.RateLimit.Window)
		logger.Info("rate limiting backed by redis at %s", cfg.Redis.Addr)
	} else {
		limitStore = auth.NewMemoryRateLimitStore()
	}
	limiter := auth.NewLimiter(limitStore, cfg.RateLimit.Window, cfg.RateLimit.MaxRequests)

	tokens := auth.NewTokenService(
		[]byte(cfg.Session.SigningKey),
		cfg.Session.TokenTTL,
		cfg.Server.BaseURL,
		nil,
		logger,
	)

	states := auth.NewEncryptedStateManager(
		[]byte(cfg.Session.StateEncryptionKey),
		[]byte(cfg.Session.StateHMACKey),
		0,
	)

	opts := []auth.Option{auth.WithLogger(logger)}
	if cfg.Providers.GitHub.Enabled() {
		opts = append(opts, auth.WithProvider(auth.NewGitHubProvider(auth.GitHubConfig{
			ClientID:     cfg.Providers.GitHub.ClientID,
			ClientSecret: cfg.Providers.GitHub.ClientSecret,
			CallbackURL:  cfg.Server.BaseURL + "/auth/github/callback",
		})))
	}
	if cfg.Providers.Google.Enabled() {
		opts = append(opts, auth.WithProvider(auth.NewGoogleProvider(auth.GoogleConfig{
			ClientID:     cfg.Providers.Google.ClientID,
			ClientSecret: cfg.Providers.Google.ClientSecret,
			CallbackURL:  cfg.Server.BaseURL + "/auth/google/callback",
		})))
	}

	authenticator := auth.NewSignInAuthenticator(
		users,
		accounts,
		sessions,
		tokens,
		limiter,
		states,
		opts...,
	)

	searchClient := search.NewClient(cfg.Search.BackendURL, nil)

	srv := server.New(
		server.Config{
			BaseURL:      cfg.Server.BaseURL,
			CookieSecure: isHTTPS(cfg.Server.BaseURL),
		},
		authenticator,
		users,
		documents,
		groups,
		sessions,
		searchClient,
		logger,
	)

	go func() {
		if err := srv.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatalf("server: %v", err)
		}
	}()

	logger.Info("listening on :%s", cfg.Server.Port)

	waitExitSignal()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown: %v", err)
	}
}

func isHTTPS(baseURL string) bool {
	return len(baseURL) >= 8 && baseURL[:8] == "https://"
}

func waitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
