package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-feed/internal/bots"
	"chat-feed/internal/config"
	"chat-feed/internal/conversation"
	"chat-feed/internal/db"
	"chat-feed/internal/feed"
	"chat-feed/internal/handlers"
	"chat-feed/internal/logging"
	"chat-feed/internal/middleware"
	"chat-feed/internal/observability"
	"chat-feed/internal/rabbitmq"
	"chat-feed/internal/realtime"
	"chat-feed/internal/repositories"
	"chat-feed/internal/session"
	"chat-feed/internal/telemetry"
	"chat-feed/internal/tokens"
	"chat-feed/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("service stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	shutdownTracing, err := telemetry.InitTracing(cfg.Tracing, logger)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	database, err := db.Connect(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to db: %w", err)
	}
	defer database.Close()

	var rateLimits repositories.RateLimitRepository
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unreachable, token rate limit disabled", "error", err)
		} else {
			rateLimits = repositories.NewRedisRateLimitRepo(rdb, "ratelimit:")
		}
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	logger.Info("event publisher ready", "mode", rabbitmq.PublisherMode(publisher), "noop_reason", rabbitmq.PublisherNoopReason(publisher))
	auditEmitter := telemetry.NewAuditEmitter(publisher, cfg.AMQP.AuditRoutingKey, cfg.Tracing.ServiceName, cfg.Environment, logger)

	script, err := bots.LoadScript(cfg.Bots.ScriptPath)
	if err != nil {
		return err
	}
	if cfg.Bots.Enabled {
		if err := bots.ValidateScript(script, cfg.Bots.AuthorPrefix); err != nil {
			return err
		}
	}

	sessions := session.NewManager(cfg.Session.Secret, cfg.Session.Issuer, cfg.Session.TTL)
	issuer := tokens.NewIssuer(cfg.Realtime.KeyName, cfg.Realtime.KeySecret, cfg.Realtime.Namespace, cfg.Realtime.TokenTTL)

	feeds := &feed.Builder{
		Config: feed.Config{
			BotsEnabled:     cfg.Bots.Enabled,
			BotAuthorPrefix: cfg.Bots.AuthorPrefix,
		},
		PageSize:    cfg.Realtime.PageSize,
		Script:      script,
		BotIDPrefix: cfg.Bots.IDPrefix,
		Backends: func(username string) conversation.Backend {
			return realtime.NewClient(username, issuer, realtime.Options{
				APIURL: cfg.Realtime.APIURL,
				WSURL:  cfg.Realtime.WSURL,
				Logger: logger,
			})
		},
		Logger: logger,
	}

	userRepo := repositories.NewUserRepo(database)
	channelRepo := repositories.NewChannelRepo(database)
	videoRepo := repositories.NewVideoRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	hub := ws.NewHub()

	authHandler := handlers.NewAuthHandler(userRepo, sessions, auditEmitter)
	tokenHandler := handlers.NewTokenHandler(issuer, auditEmitter)
	userHandler := handlers.NewUserHandler(userRepo, messageRepo)
	channelHandler := handlers.NewChannelHandler(channelRepo, feeds, logger)
	videoHandler := handlers.NewVideoHandler(videoRepo)
	feedWS := ws.NewFeedWebSocketHandler(hub, channelRepo, messageRepo, feeds, auditEmitter, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authMiddleware := middleware.AuthMiddleware(sessions)
	tokenLimit := middleware.RateLimit(rateLimits, "token", cfg.RateLimit.TokenRequests, cfg.RateLimit.Window, logger)

	router.POST("/auth/login", authHandler.Login)
	router.GET("/api/token", authMiddleware, tokenLimit, tokenHandler.GetToken)

	router.GET("/users/me", authMiddleware, userHandler.Me)
	router.GET("/users/me/favorites", authMiddleware, videoHandler.ListFavorites)

	router.GET("/channels", authMiddleware, channelHandler.ListChannels)
	router.GET("/channels/:name", authMiddleware, channelHandler.GetChannel)
	router.POST("/channels/:name/join", authMiddleware, channelHandler.JoinChannel)
	router.GET("/channels/:name/feed", authMiddleware, channelHandler.GetFeed)

	router.GET("/videos", authMiddleware, videoHandler.ListVideos)
	router.POST("/videos/:id/favorite", authMiddleware, videoHandler.AddFavorite)
	router.DELETE("/videos/:id/favorite", authMiddleware, videoHandler.RemoveFavorite)

	router.GET("/ws/channels/:name/feed", authMiddleware, feedWS.Handle)

	handlers.RegisterDebugRoutes(router, auditEmitter, hub, cfg.DebugRoutes)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "bots_enabled", cfg.Bots.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.Shutdown(ctx)
	return srv.Shutdown(ctx)
}
