package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/Anandhalagan/LIMS/internal/archive"
	"github.com/Anandhalagan/LIMS/internal/audit"
	"github.com/Anandhalagan/LIMS/internal/billing"
	"github.com/Anandhalagan/LIMS/internal/catalog"
	"github.com/Anandhalagan/LIMS/internal/dashboard"
	"github.com/Anandhalagan/LIMS/internal/identity"
	"github.com/Anandhalagan/LIMS/internal/order"
	"github.com/Anandhalagan/LIMS/internal/patient"
	"github.com/Anandhalagan/LIMS/internal/report"
	"github.com/Anandhalagan/LIMS/pkg/config"
	"github.com/Anandhalagan/LIMS/pkg/database"
	"github.com/Anandhalagan/LIMS/pkg/encryption"
	"github.com/Anandhalagan/LIMS/pkg/lifecycle"
	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/monitoring"
)

const defaultAdminUser = "admin"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("lims-server", cfg.LogLevel)
	log.Info("Starting LIMS server")

	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.CreateSchema(ctx); err != nil {
		log.WithError(err).Error("Failed to ensure database schema")
		os.Exit(1)
	}

	encryptor, err := encryption.NewServiceFromKeyFile(cfg.Encryption.KeyPath)
	if err != nil {
		log.WithError(err).Error("Failed to initialize encryption service")
		os.Exit(1)
	}

	// Repositories
	auditRepo := audit.NewRepository(db.DB, log)
	catalogRepo := catalog.NewRepository(db.DB, log)
	patientRepo := patient.NewRepository(db.DB, log)
	orderRepo := order.NewRepository(db.DB, log)
	archiveRepo := archive.NewRepository(db.DB, log)
	dashboardRepo := dashboard.NewRepository(db.DB, log)

	// Services
	archiveSvc := archive.NewService(archiveRepo, db, encryptor, auditRepo, log)
	catalogSvc := catalog.NewService(catalogRepo, log)
	patientSvc := patient.NewService(patientRepo, db, encryptor, archiveSvc, auditRepo, log)
	orderSvc := order.NewService(orderRepo, db, catalogSvc, log)
	billingSvc := billing.NewService(orderSvc, catalogSvc, log)
	reportSvc := report.NewService(orderSvc, catalogSvc, patientSvc, log)
	identitySvc := identity.NewService(db.DB, cfg.JWT.SecretKey, cfg.JWT.Issuer,
		time.Duration(cfg.JWT.AccessTokenTTL)*time.Second, log)

	if password := os.Getenv("ADMIN_PASSWORD"); password != "" {
		if err := identitySvc.EnsureAdminUser(ctx, defaultAdminUser, password); err != nil {
			log.WithError(err).Error("Failed to ensure admin user")
			os.Exit(1)
		}
	}

	// Background components
	manager := lifecycle.NewManager(log)
	poller := dashboard.NewPoller(dashboardRepo, cfg.Dashboard.RefreshIntervalDuration(), log)
	poller.Start()
	manager.Register(poller)

	// Router
	router := mux.NewRouter()
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(log))

	if cfg.Monitoring.Enabled {
		router.Handle(cfg.Monitoring.MetricsPath, monitoring.Handler()).Methods(http.MethodGet)
		router.HandleFunc(cfg.Monitoring.HealthPath,
			monitoring.HealthHandler(map[string]monitoring.HealthChecker{"database": db})).Methods(http.MethodGet)
	}

	identity.NewHandlers(identitySvc).RegisterRoutes(router)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(identitySvc.Middleware())
	catalog.NewHandlers(catalogSvc, log).RegisterRoutes(api)
	patient.NewHandlers(patientSvc, log).RegisterRoutes(api)
	order.NewHandlers(orderSvc, log).RegisterRoutes(api)
	archive.NewHandlers(archiveSvc, log).RegisterRoutes(api)
	billing.NewHandlers(billingSvc).RegisterRoutes(api)
	report.NewHandlers(reportSvc).RegisterRoutes(api)
	dashboard.NewHandlers(poller).RegisterRoutes(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP server failed")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
	if err := manager.StopAll(shutdownCtx); err != nil {
		log.WithError(err).Error("Background components failed to stop cleanly")
	}
	log.Info("Server stopped")
}
