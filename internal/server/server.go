// FilePath: internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aptsense/hub/api"
	"github.com/aptsense/hub/api/middleware"
	"github.com/aptsense/hub/internal/cache"
	"github.com/aptsense/hub/internal/codec"
	"github.com/aptsense/hub/internal/config"
	"github.com/aptsense/hub/internal/database"
	"github.com/aptsense/hub/internal/dispatch"
	"github.com/aptsense/hub/internal/hubservice"
	"github.com/aptsense/hub/internal/monitoring"
	"github.com/aptsense/hub/internal/remote"
	"github.com/aptsense/hub/internal/repository/postgres"
	"github.com/gorilla/handlers"
	nuts "github.com/vaudience/go-nuts"
)

// Server represents our HTTP server
type Server struct {
	config     *config.Config
	srv        *http.Server
	hubservice *hubservice.HubService
	dispatcher *dispatch.Dispatcher
	monitoring *monitoring.Service
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config: cfg,
		srv:    srv,
	}
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Initialize services
	s.monitoring = monitoring.NewService(monitoring.Config{})
	s.initializeHubService()

	// Set up operator event handlers
	s.setupCleanupHandlers()

	// Setup routes
	router := api.NewRouter(
		s.hubservice,
		codec.NewElsysDecoder(),
		s.dispatcher,
		middleware.KeycloakConfig{
			URL:          s.config.Keycloak.URL,
			Realm:        s.config.Keycloak.Realm,
			ClientID:     s.config.Keycloak.ClientID,
			ClientSecret: s.config.Keycloak.ClientSecret,
		},
		s.handleHealth(),
		s.handleMetrics(),
	)
	s.srv.Handler = handlers.RecoveryHandler()(
		handlers.CompressHandler(
			handlers.CombinedLoggingHandler(os.Stdout, router)))

	// Start server
	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown()
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

// handleHealth returns a simple health check handler
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","version":"` + nuts.GetVersion() + `"}`))
	}
}

// handleMetrics exposes event counters collected by the monitoring
// service.
func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics, err := s.monitoring.GetEventMetrics("", time.Hour)
		if err != nil {
			http.Error(w, "metrics unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(metrics)
	}
}

func (s *Server) setupCleanupHandlers() {
	// Handle device deletion events
	s.hubservice.Cleanup.OnCleanup("device.deleted", func(id string) {
		nuts.L.Infof("[Cleanup] Device %s and all associated data deleted", id)
		s.monitoring.RecordEvent("device_deletion", map[string]string{
			"device_id": id,
		})
	})

	// Handle monitored attribute deletion events
	s.hubservice.Cleanup.OnCleanup("monitored_attribute.deleted", func(id string) {
		s.monitoring.RecordEvent("monitored_attribute_deletion", map[string]string{
			"monitored_attribute_id": id,
		})
	})
}

// initializeHubService creates and configures the hub service and the
// subscription dispatcher
func (s *Server) initializeHubService() {
	db := initDB(s.config.Database)

	if err := postgres.InitializeSchema(db); err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize schema: %v", err)
	}

	apartments := postgres.NewApartmentRepository(db)
	devices := postgres.NewDeviceRepository(db)
	attributes := postgres.NewAttributeRepository(db)
	monitored := postgres.NewMonitoredAttributeRepository(db)
	values := postgres.NewValueRepository(db)
	services := postgres.NewServiceRepository(db)
	subscriptions := postgres.NewSubscriptionRepository(db)

	syncClient := remote.NewClient(remote.Config{Timeout: s.config.Sync.Timeout})
	valueCache := cache.New(s.config.Redis)

	s.hubservice = hubservice.New(
		apartments, devices, attributes, monitored, values, services, subscriptions,
		syncClient, valueCache, s.config.Gateway.AttributeURIs,
	)
	if err := s.hubservice.Validate(); err != nil {
		nuts.L.Fatalf("[Server] Invalid hub service wiring: %v", err)
	}

	reporter := dispatch.NewEventReporter()
	reporter.OnFailure(func(subscriptionID, serviceID, message string) {
		s.monitoring.RecordEvent("sync_failure", map[string]string{
			"subscription_id": subscriptionID,
			"service_id":      serviceID,
			"error":           message,
		})
	})
	s.dispatcher = dispatch.New(subscriptions, services, syncClient, reporter, s.config.Dispatch.Workers)
}

func initDB(cfg config.PostgresConfig) database.DB {
	wrappedDB, err := database.NewPostgresDB(cfg)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to connect to database: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wrappedDB.GetDB().PingContext(ctx); err != nil {
		nuts.L.Fatalf("[Server] Failed to ping database: %v", err)
	}
	return wrappedDB
}
