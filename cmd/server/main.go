package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"arasta-be/internal/config"
	"arasta-be/internal/db"
	"arasta-be/internal/inventory"
	"arasta-be/internal/logger"
	"arasta-be/internal/order"
	"arasta-be/internal/payment"
	"arasta-be/internal/reconciler"
	"arasta-be/internal/transport"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.L()

	database := db.InitDB(cfg)
	defer database.Close()

	invRepo := inventory.NewRepository(database)
	orderRepo := order.NewRepository(database, invRepo)
	gateway := payment.NewZarinpalGateway(cfg.MerchantID, cfg.GatewayBaseURL)
	orderSvc := order.NewService(orderRepo, gateway, cfg.CallbackBaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec := reconciler.New(orderSvc, cfg.ReconcileInterval)
	go rec.Run(ctx)

	handler := transport.NewHandler(orderSvc, database)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: handler.Routes(),
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		_ = srv.Shutdown(context.Background())
	}()

	log.Info("server started",
		zap.String("port", cfg.AppPort),
		zap.String("env", cfg.AppEnv),
		zap.Duration("reconcile_interval", cfg.ReconcileInterval),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server failed", zap.Error(err))
	}
}
