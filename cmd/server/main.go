package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/settlebot/backend/internal/application/services"
	"github.com/settlebot/backend/internal/config"
	"github.com/settlebot/backend/internal/domain/flow"
	"github.com/settlebot/backend/internal/infrastructure/database"
	slackgw "github.com/settlebot/backend/internal/infrastructure/slack"
	"github.com/settlebot/backend/internal/interfaces/rest"
	"github.com/settlebot/backend/pkg/expression"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	reg := flow.DefaultRegistry()
	gateway := slackgw.NewClient(cfg.SlackBotToken)

	cache := services.NewStateCache(nil)
	if cfg.MySQLDSN != "" {
		db, err := database.Connect(cfg.MySQLDSN)
		if err != nil {
			log.Printf("⚠️  State cache disabled, MySQL unavailable: %v", err)
		} else {
			cache = services.NewStateCache(db)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := cache.EnsureSchema(ctx); err != nil {
				log.Printf("⚠️  State cache schema setup failed: %v", err)
			}
			cancel()
			log.Println("✅ State cache enabled")
		}
	}

	dedupe := services.NewDedupe(time.Minute)
	advancer := services.NewAdvancer(gateway, reg, cache, dedupe, cfg.Location)
	recon := services.NewReconstructor(gateway, reg, cache, cfg.AlertScanLimit, cfg.IncompleteScanLimit)
	scheduler := services.NewSchedulerService(gateway, reg, recon, advancer, expression.NewEngine(), cfg)
	cleanup := services.NewCleanupService(gateway, reg)

	if cfg.RunScheduler {
		if err := scheduler.Start(); err != nil {
			log.Fatalf("❌ Failed to start scheduler: %v", err)
		}
		defer scheduler.Stop()
	}

	router := rest.NewRouter(cfg, reg, scheduler, advancer, cleanup)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("🚀 Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("📦 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Forced shutdown: %v", err)
	}
	log.Println("✅ Server stopped")
}
