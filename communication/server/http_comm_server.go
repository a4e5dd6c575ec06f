// Package server exposes a communication.Engine to renderers over HTTP and a
// websocket stream.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"dtree/communication"
)

const (
	maxBodySize     = 1 << 20
	shutdownTimeout = 5 * time.Second
)

type ServerCommunicator struct {
	engine   *communication.Engine
	gatherer prometheus.Gatherer
	upgrader websocket.Upgrader
	router   chi.Router
	closing  chan struct{}
}

// NewServerCommunicator routes the HTTP API to engine. Metrics are served
// from gatherer when it is not nil.
func NewServerCommunicator(engine *communication.Engine, gatherer prometheus.Gatherer) *ServerCommunicator {
	sc := &ServerCommunicator{
		engine:   engine,
		gatherer: gatherer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		closing: make(chan struct{}),
	}
	sc.router = sc.routes()
	return sc
}

func (sc *ServerCommunicator) Handler() http.Handler {
	return sc.router
}

func (sc *ServerCommunicator) routes() chi.Router {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Streams: sc.engine.Subscribers()})
	})
	if sc.gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(sc.gatherer, promhttp.HandlerOpts{}))
	}

	router.Route("/api", func(r chi.Router) {
		r.Get("/view", sc.handleGetView)
		r.Get("/stream", sc.handleStream)
		r.Post("/step", sc.handleSimpleAction(communication.ActionStep))
		r.Post("/auto", sc.handleSimpleAction(communication.ActionAuto))
		r.Post("/cancel", sc.handleSimpleAction(communication.ActionCancel))
		r.Post("/reset", sc.handleSimpleAction(communication.ActionReset))
		r.Put("/tree", sc.handleLoad)
		r.Post("/advise", sc.handleAdvise)

		r.Route("/nodes/{nodeID}", func(r chi.Router) {
			r.Post("/children", sc.handleAddChild)
			r.Patch("/", sc.handleUpdate)
			r.Delete("/", sc.handleDelete)
		})
	})
	return router
}

// Start serves on addr until ctx ends, then shuts down gracefully.
func (sc *ServerCommunicator) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           sc.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Msgf("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		close(sc.closing)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
