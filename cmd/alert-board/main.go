package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mr1hm/go-alert-board/internal/api"
	"github.com/mr1hm/go-alert-board/internal/auth"
	"github.com/mr1hm/go-alert-board/internal/comments"
	"github.com/mr1hm/go-alert-board/internal/config"
	"github.com/mr1hm/go-alert-board/internal/feed"
	internalgrpc "github.com/mr1hm/go-alert-board/internal/grpc"
	"github.com/mr1hm/go-alert-board/internal/ledger"
	"github.com/mr1hm/go-alert-board/internal/location"
	"github.com/mr1hm/go-alert-board/internal/logging"
	"github.com/mr1hm/go-alert-board/internal/notify"
	"github.com/mr1hm/go-alert-board/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Fans events out to websocket and gRPC subscribers
	broadcaster := internalgrpc.NewBroadcaster()

	var dispatcher feed.Dispatcher
	var notifier *notify.Manager
	if cfg.Notify.Enabled {
		notifier = notify.NewManager(cfg, db, broadcaster)
		notifier.Start(ctx)
		dispatcher = notifier
	}

	handler := api.NewHandler(api.Services{
		Auth:        auth.NewProvider(db, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Feed:        feed.NewManager(db, cfg.Server.PublicOrigin, broadcaster, dispatcher),
		Ledger:      ledger.New(db, broadcaster),
		Comments:    comments.NewThread(db, broadcaster),
		Sessions:    location.NewSessions(),
		Locations:   db,
		Broadcaster: broadcaster,
	})

	var grpcServer *internalgrpc.Server
	if cfg.GRPC.Enabled {
		grpcServer = internalgrpc.NewServer(db, broadcaster)
		go func() {
			grpcAddr := fmt.Sprintf(":%d", cfg.GRPC.Port)
			if err := grpcServer.Start(grpcAddr); err != nil {
				logging.Fatalf("gRPC server error: %v", err)
			}
		}()
	}

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.RequestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.Server.PublicOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimitRPS))

	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// No new alerts after this, so the notifier can drain its queue
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	if notifier != nil {
		notifier.Stop()
	}
	cancel()
	broadcaster.Close() // Close all streams gracefully
	if grpcServer != nil {
		grpcServer.Stop()
	}

	slog.Info("shutdown complete")
}
