// Package http hosts the relay's HTTP surface: the long-poll and
// WebSocket transports, a debug introspection endpoint, and the /_ping
// liveness probe carried over from original_source/src/main.rs (see
// SPEC_FULL.md's SUPPLEMENT section).
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"

	"github.com/pulsebeam-relay/signaling-relay/internal/config"
	"github.com/pulsebeam-relay/signaling-relay/internal/domain/registry"
	lphandler "github.com/pulsebeam-relay/signaling-relay/internal/handler/lp"
	wshandler "github.com/pulsebeam-relay/signaling-relay/internal/handler/ws"
	"github.com/pulsebeam-relay/signaling-relay/internal/stats"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

func NewServer(logger *slog.Logger, cfg *config.Config, manager *registry.Manager, lp *lphandler.LPHandler, ws *wshandler.WSHandler) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(mirroredCORS)

	r.Get("/_ping", ping)
	r.Get("/lp/{group}/{peer}/{conn}", lp.Poll)
	r.Post("/lp/{group}/{peer}/{conn}/send", lp.Send)
	r.Get("/ws/{group}/{peer}/{conn}", ws.ServeHTTP)
	r.Get("/debug/groups/{group}", debugGroup(manager))
	r.Get("/debug/stats", debugStats(stats.NewCollector(manager)))

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.HTTPListenAddr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // long-poll and WS both need to outlive a fixed write deadline
		},
		logger: logger,
	}
}

func ping(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Pong\n"))
}

// debugGroup exposes a group's live peer/conn set, grounded on
// original_source's query_peers/collect() debug affordance (see
// SPEC_FULL.md SUPPLEMENT).
func debugGroup(manager *registry.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID := chi.URLParam(r, "group")
		group, ok := manager.Peek(groupID)
		if !ok {
			http.Error(w, "unknown group", http.StatusNotFound)
			return
		}
		conns := group.Collect()
		type peerConn struct {
			PeerID string `json:"peer_id"`
			ConnID uint32 `json:"conn_id"`
		}
		out := make([]peerConn, len(conns))
		for i, c := range conns {
			out[i] = peerConn{PeerID: c.PeerID, ConnID: c.ConnID}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

// debugStats exposes the monitor CLI's data source: a snapshot of every
// tracked group's live mailbox count.
func debugStats(c *stats.Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(c.Collect())
	}
}

// mirroredCORS mirrors the request's Origin header with a 24h max-age,
// the same "very permissive" policy original_source/src/main.rs applies
// via tower_http::cors::CorsLayer::very_permissive().
func mirroredCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "*")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) start(context.Context) error {
	s.logger.Info("HTTP_LISTENING", slog.String("addr", s.httpServer.Addr))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP_SERVE_FAILED", slog.Any("err", err))
		}
	}()
	return nil
}

func (s *Server) stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

var Module = fx.Module("infra-http",
	fx.Provide(NewServer),
	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		lc.Append(fx.Hook{OnStart: s.start, OnStop: s.stop})
	}),
)
