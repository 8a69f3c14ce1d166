package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/telavant/tmfbridge"
	"github.com/telavant/tmfbridge/internal"
	"go.uber.org/zap"
)

// Server represents the HTTP dispatch layer over the translation pipeline.
type Server struct {
	gateway tmfbridge.Gateway
	cfg     *tmfbridge.Config
	router  *mux.Router
}

// NewServer creates a new Server instance
func NewServer(gateway tmfbridge.Gateway, cfg *tmfbridge.Config, metrics *internal.Metrics) *Server {
	s := &Server{
		gateway: gateway,
		cfg:     cfg,
		router:  mux.NewRouter(),
	}
	s.router.Use(RequestID)
	s.router.Use(RequestLogger(zap.L()))
	s.router.Use(RecordLatency(metrics))
	return s
}

// RegisterRoutes registers all API routes
func (s *Server) RegisterRoutes() {
	s.router.HandleFunc("/tmf/{resource}", s.handleCollection).Methods(http.MethodGet, http.MethodPost)
	s.router.HandleFunc("/tmf/{resource}/{id}", s.handleItem).Methods(http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodDelete)
	s.router.HandleFunc("/catalogue", s.handleCatalogue).Methods(http.MethodGet)
	s.router.HandleFunc("/validate", s.handleValidate).Methods(http.MethodPost)
	s.router.HandleFunc("/admin/schema/reload", s.handleSchemaReload).Methods(http.MethodPost)
	s.router.HandleFunc("/admin/schema/info", s.handleSchemaInfo).Methods(http.MethodGet)
	s.router.HandleFunc("/admin/upstream/health", s.handleUpstreamHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

// Start starts the HTTP server on the given port
func (s *Server) Start(port string) error {
	zap.S().Infow("starting server", "port", port)
	return http.ListenAndServe(":"+port, s.router)
}

func main() {
	cfg, err := tmfbridge.Load()
	if err != nil {
		panic(err)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	sugar.Infow("configuration loaded",
		"upstream", cfg.UpstreamBaseURL,
		"schema_path", cfg.SchemaPath,
		"schema_url", cfg.SchemaURL,
		"validate_requests", cfg.ValidateRequests,
		"validate_responses", cfg.ValidateResponses,
		"metrics_enabled", cfg.MetricsEnabled)

	metrics := internal.NewMetrics()
	source := internal.NewSchemaSource(cfg, nil)
	cache, err := internal.NewSchemaCache(context.Background(), source)
	if err != nil {
		sugar.Fatalf("failed to load schema: %v", err)
	}

	registry := internal.NewRegistry()
	validator := internal.NewValidator(cache, metrics)
	catalogue := internal.NewCatalogueBuilder(cache, nil)
	proxy := internal.NewProxyClient(cfg, nil, metrics)
	gateway := internal.NewEngine(cfg, cache, registry, validator, catalogue, proxy, metrics)

	server := NewServer(gateway, cfg, metrics)
	server.RegisterRoutes()

	if err := server.Start(cfg.Port); err != nil {
		sugar.Fatalf("server error: %v", err)
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	if strings.EqualFold(level, "debug") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
