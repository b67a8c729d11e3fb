package api

import (
	"net/http"

	"github.com/aptsense/hub/api/middleware"
	"github.com/aptsense/hub/api/resources"
	"github.com/aptsense/hub/internal/codec"
	"github.com/aptsense/hub/internal/dispatch"
	"github.com/aptsense/hub/internal/hubservice"
	"github.com/gorilla/mux"
)

type Router struct {
	router    *mux.Router
	auth      *middleware.KeycloakMiddleware
	resources *resources.Resources
}

func NewRouter(svc *hubservice.HubService, decoder codec.Decoder, dispatcher *dispatch.Dispatcher, keycloakConfig middleware.KeycloakConfig, health, metrics http.HandlerFunc) *Router {
	r := &Router{
		router:    mux.NewRouter(),
		auth:      middleware.NewKeycloakMiddleware(keycloakConfig),
		resources: resources.NewResources(svc, decoder, dispatcher),
	}
	r.resources.SetHealthCheck(health)
	r.resources.SetMetrics(metrics)

	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	// API version prefix
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/health", r.resources.HealthCheck).Methods(http.MethodGet)
	api.HandleFunc("/metrics", r.resources.Metrics).Methods(http.MethodGet)

	// Gateway callbacks authenticate by network, not by user token
	api.HandleFunc("/gateway/digita", r.resources.Gateway.ReceiveDigitaUplink).Methods(http.MethodPost)

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(r.auth.Authenticate)

	// Apartment sensors
	protected.HandleFunc("/apartment-sensors", r.resources.Devices.ListApartmentSensors).Methods(http.MethodGet)

	// Device administration
	devices := protected.PathPrefix("/devices").Subrouter()
	devices.Use(r.auth.RequireRoles([]string{"admin"}))
	devices.HandleFunc("/{id}", r.resources.Devices.UpdateDevice).Methods(http.MethodPut)
	devices.HandleFunc("/{id}", r.resources.Devices.DeleteDevice).Methods(http.MethodDelete)

	// Services and subscriptions
	protected.HandleFunc("/services", r.resources.Subscriptions.ListServices).Methods(http.MethodGet)
	subscriptions := protected.PathPrefix("/subscriptions").Subrouter()
	subscriptions.HandleFunc("", r.resources.Subscriptions.ListSubscriptions).Methods(http.MethodGet)
	subscriptions.HandleFunc("", r.resources.Subscriptions.CreateSubscription).Methods(http.MethodPost)
	subscriptions.HandleFunc("/{id}", r.resources.Subscriptions.DeleteSubscription).Methods(http.MethodDelete)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
