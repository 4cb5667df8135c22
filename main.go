package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"watchparty-service/internal/config"
	"watchparty-service/internal/db"
	"watchparty-service/internal/handlers"
	"watchparty-service/internal/middleware"
	"watchparty-service/internal/observability"
	"watchparty-service/internal/rabbitmq"
	"watchparty-service/internal/repositories"
	"watchparty-service/internal/telemetry"
	"watchparty-service/internal/ws"
)

func main() {
	cfg := config.Load()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing, err := observability.SetupTracing(context.Background(), cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracer shutdown: %v", err)
		}
	}()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("audit publisher mode=%s", rabbitmq.PublisherMode(publisher))

	emitter := telemetry.NewAuditEmitter(publisher, "audit_log.watchparty", "watchparty-service", cfg.Environment)

	if eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
		log.Printf("ws event publishing disabled: %v", err)
	} else {
		observability.SetPublisher(eventPublisher)
		defer eventPublisher.Close()
	}

	userRepo := repositories.NewUserRepo(database)
	friendshipRepo := repositories.NewFriendshipRepo(database)

	hub := ws.NewHub()

	authHandler := handlers.NewAuthHandler(userRepo, emitter)
	userHandler := handlers.NewUserHandler(userRepo)
	friendHandler := handlers.NewFriendHandler(friendshipRepo, emitter)
	relay := ws.NewRelayHandler(hub)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(otelgin.Middleware("watchparty-service"))

	router.POST("/api/auth/signin", authHandler.SignIn)
	router.POST("/api/auth/register", authHandler.Register)
	router.POST("/api/auth/login", authHandler.Login)

	router.GET("/api/users/search/:userId", userHandler.Search)

	router.POST("/api/friends/request", friendHandler.SendRequest)
	router.GET("/api/friends/requests/:userId", friendHandler.ListRequests)
	router.PUT("/api/friends/accept/:senderId/:receiverId", friendHandler.AcceptRequest)
	router.DELETE("/api/friends/reject/:senderId/:receiverId", friendHandler.RejectRequest)
	router.GET("/api/friends/:userId", friendHandler.ListFriends)

	router.GET("/ws", relay.Handle)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, emitter, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
