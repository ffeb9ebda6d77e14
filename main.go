package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"alumni-chat-service/internal/auth"
	"alumni-chat-service/internal/config"
	"alumni-chat-service/internal/db"
	"alumni-chat-service/internal/handlers"
	"alumni-chat-service/internal/middleware"
	"alumni-chat-service/internal/observability"
	"alumni-chat-service/internal/rabbitmq"
	"alumni-chat-service/internal/repositories"
	"alumni-chat-service/internal/telemetry"
	"alumni-chat-service/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()

	shutdownTracing, err := telemetry.SetupTracing(ctx, "alumni-chat-service", cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Printf("tracing disabled: %v", err)
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				log.Printf("tracing shutdown: %v", err)
			}
		}()
	}

	database, err := db.Connect(cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close(context.Background())

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AuditExchange)
	defer auditPublisher.Close()
	auditEmitter := telemetry.NewAuditEmitter(auditPublisher, "audit.chat", "alumni-chat-service", cfg.Environment)

	eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.EventExchange)
	if err != nil {
		log.Printf("event publisher disabled: %v", err)
	} else {
		defer eventPublisher.Close()
		observability.SetPublisher(eventPublisher)
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	convRepo := repositories.NewConversationRepo(database)
	userRepo := repositories.NewUserRepo(database)

	hub := ws.NewHub()
	gateway := ws.NewGateway(hub, tokens, userRepo, convRepo)

	convHandler := handlers.NewConversationHandler(convRepo, userRepo, hub, auditEmitter)
	groupHandler := handlers.NewGroupHandler(convRepo, userRepo, auditEmitter)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("alumni-chat-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(tokens)

	router.GET("/conversations", authMiddleware, convHandler.List)
	router.POST("/conversations", authMiddleware, convHandler.CreateDirect)
	router.POST("/conversations/group", authMiddleware, groupHandler.Create)
	router.GET("/conversations/:id", authMiddleware, convHandler.Get)
	router.POST("/conversations/:id/messages", authMiddleware, convHandler.SendMessage)
	router.DELETE("/conversations/:id/messages/:messageId", authMiddleware, convHandler.DeleteMessage)
	router.PUT("/conversations/:id/read", authMiddleware, convHandler.MarkRead)
	router.PUT("/conversations/:id/group", authMiddleware, groupHandler.Update)
	router.POST("/conversations/:id/members", authMiddleware, groupHandler.AddMember)
	router.DELETE("/conversations/:id/members/:memberId", authMiddleware, groupHandler.RemoveMember)
	router.DELETE("/conversations/:id/leave", authMiddleware, groupHandler.Leave)

	router.GET("/ws", gateway.Handle)

	handlers.RegisterDebugRoutes(router, auditEmitter, hub, cfg.Debug)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
