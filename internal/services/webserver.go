package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"rapports-sync/internal/common"
	"rapports-sync/internal/handlers"
	"rapports-sync/internal/interfaces"
	"rapports-sync/internal/middleware"
)

// webServer hosts the local UI: the embedded page, the sync API and the
// websocket carrying progress and selection prompts.
type webServer struct {
	config    *common.Config
	server    *http.Server
	logger    arbor.ILogger
	wsHub     *handlers.WebSocketHub
	cancelHub context.CancelFunc
	syncSvc   *SyncService
	running   bool
}

// NewWebServer wires the handler set around one SyncService. The hub owns
// the disambiguation gate consumption for the lifetime of the server.
func NewWebServer(cfg *common.Config, syncSvc *SyncService, state interfaces.StateStore, updates interfaces.UpdateChecker, logger arbor.ILogger) (interfaces.WebService, error) {
	mux := http.NewServeMux()

	wsHub := handlers.NewWebSocketHub(logger)
	syncSvc.OnProgress = wsHub.SendProgress

	apiHandlers := handlers.NewAPIHandlers(cfg, syncSvc, state, updates, wsHub, logger)
	uiHandlers := handlers.NewUIHandlers()

	ws := &webServer{
		config:  cfg,
		logger:  logger,
		wsHub:   wsHub,
		syncSvc: syncSvc,
		server: &http.Server{
			Addr:    fmt.Sprintf("localhost:%d", cfg.Collector.Port),
			Handler: mux,
		},
	}

	logMiddleware := middleware.Logging(logger)
	corsMiddleware := middleware.CORS

	mux.HandleFunc("/health", logMiddleware(corsMiddleware(apiHandlers.HealthHandler)))
	mux.HandleFunc("/version", logMiddleware(corsMiddleware(apiHandlers.VersionHandler)))
	mux.HandleFunc("/status", logMiddleware(corsMiddleware(apiHandlers.StatusHandler)))
	mux.HandleFunc("/api/sync", logMiddleware(corsMiddleware(apiHandlers.SyncHandler)))
	mux.HandleFunc("/api/update", logMiddleware(corsMiddleware(apiHandlers.UpdateHandler)))
	mux.HandleFunc("/api/update/dismiss", logMiddleware(corsMiddleware(apiHandlers.UpdateDismissHandler)))

	mux.HandleFunc("/ws", corsMiddleware(wsHub.WebSocketHandler))
	mux.HandleFunc("/", logMiddleware(uiHandlers.IndexHandler))

	return ws, nil
}

// Start starts the web server
func (ws *webServer) Start(ctx context.Context) error {
	ws.running = true

	hubCtx, cancel := context.WithCancel(ctx)
	ws.cancelHub = cancel
	go ws.wsHub.RunGate(hubCtx, ws.syncSvc.Gate())

	go func() {
		ws.logger.Info().Int("port", ws.config.Collector.Port).Msg("Starting web server")
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.logger.Error().Err(err).Msg("Web server error")
		}
	}()
	return nil
}

// Stop stops the web server
func (ws *webServer) Stop() error {
	ws.running = false
	if ws.cancelHub != nil {
		ws.cancelHub()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ws.logger.Info().Msg("Shutting down web server")
	return ws.server.Shutdown(ctx)
}

// IsRunning returns true if the web server is running
func (ws *webServer) IsRunning() bool {
	return ws.running
}
