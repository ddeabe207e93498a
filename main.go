package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"skillverse/internal/auth"
	"skillverse/internal/config"
	"skillverse/internal/db"
	"skillverse/internal/handlers"
	"skillverse/internal/middleware"
	"skillverse/internal/observability"
	"skillverse/internal/presence"
	"skillverse/internal/rabbitmq"
	"skillverse/internal/repositories"
	"skillverse/internal/storage"
	"skillverse/internal/telemetry"
	"skillverse/internal/ws"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, "skillverse", cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown failed: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid redis url: %v", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	} else {
		log.Printf("redis disabled: presence fast path and token blacklist off")
	}

	userRepo := repositories.NewUserRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	watermarkRepo := repositories.NewWatermarkRepo(database)
	sessionRepo := repositories.NewSessionRepo(database)
	reviewRepo := repositories.NewReviewRepo(database)

	tracker := presence.NewTracker(userRepo, rdb)
	hub := ws.NewHub()
	tokens := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))
	audit := telemetry.NewAuditEmitter(publisher, "audit.logs", "skillverse", cfg.Environment)

	if cfg.AMQPURL != "" {
		if eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
			log.Printf("ws event publisher disabled: %v", err)
		} else {
			observability.SetPublisher(eventPublisher)
			defer eventPublisher.Close()
		}
	}

	var blobs storage.BlobStore
	if cfg.S3Bucket != "" {
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
		if err != nil {
			log.Fatalf("failed to init s3 store: %v", err)
		}
		blobs = store
	} else {
		log.Printf("photo storage disabled: no s3 bucket configured")
	}

	authHandler := handlers.NewAuthHandler(userRepo, tokens, tracker, rdb, audit)
	userHandler := handlers.NewUserHandler(userRepo, messageRepo, watermarkRepo, sessionRepo, reviewRepo, tracker, blobs, audit)
	chatHandler := handlers.NewChatHandler(userRepo, messageRepo, watermarkRepo, hub)
	sessionHandler := handlers.NewSessionHandler(sessionRepo, reviewRepo, userRepo, audit)
	chatWS := ws.NewChatWebSocketHandler(hub, userRepo, watermarkRepo, tokens, tracker)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("skillverse"))
	router.Use(observability.HTTPMetricsMiddleware())

	limiter := middleware.NewLimiterStore(10, 10, 5*time.Minute)
	defer limiter.Stop()
	authLimited := middleware.RateLimit(limiter)
	authRequired := middleware.AuthMiddleware(tokens, rdb)

	router.POST("/auth/signup", authLimited, authHandler.Signup)
	router.POST("/auth/login", authLimited, authHandler.Login)
	router.POST("/auth/logout", authRequired, authHandler.Logout)

	router.GET("/users/me", authRequired, userHandler.Me)
	router.PUT("/users/me", authRequired, userHandler.UpdateMe)
	router.POST("/users/me/avatar", authRequired, userHandler.UploadAvatar)
	router.GET("/users/me/stats", authRequired, userHandler.Stats)
	router.GET("/users/:user_id", authRequired, userHandler.GetUser)
	router.GET("/matches", authRequired, userHandler.Matches)

	router.GET("/chats", authRequired, chatHandler.ListChats)
	router.GET("/chats/:peer_id/messages", authRequired, chatHandler.GetMessages)
	router.POST("/chats/:peer_id/messages", authRequired, chatHandler.PostMessage)
	router.POST("/chats/:peer_id/read", authRequired, chatHandler.MarkRead)
	router.GET("/ws/chats/:peer_id", chatWS.Handle)

	router.POST("/sessions", authRequired, sessionHandler.Create)
	router.GET("/sessions", authRequired, sessionHandler.List)
	router.POST("/sessions/:session_id/respond", authRequired, sessionHandler.Respond)
	router.POST("/sessions/:session_id/reviews", authRequired, sessionHandler.Review)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
