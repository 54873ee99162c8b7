package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/doodlesbykumbi/directory-sync/pkg/bootstrap"
	"github.com/doodlesbykumbi/directory-sync/pkg/config"
	"github.com/doodlesbykumbi/directory-sync/pkg/directory"
	"github.com/doodlesbykumbi/directory-sync/pkg/metrics"
	"github.com/doodlesbykumbi/directory-sync/pkg/reconcile"
	"github.com/doodlesbykumbi/directory-sync/pkg/scheduler"
	"github.com/doodlesbykumbi/directory-sync/pkg/server/middleware"
	"github.com/doodlesbykumbi/directory-sync/pkg/store"
)

// Version is reported by GET /status.
var Version = "0.1.0"

// Paths served without a bearer token.
var PublicPaths = []string{"/status", "/metrics"}

type Server struct {
	Config        *config.Config
	Registry      *reconcile.Registry
	Gateway       directory.Gateway
	Stores        map[string]store.RecordStore
	HealthStore   store.HealthStore
	Scheduler     *scheduler.Scheduler
	Metrics       *metrics.Metrics
	Router        *mux.Router
	JWTMiddleware *middleware.JWTAuthenticator
	Logger        zerolog.Logger

	app *bootstrap.App
	srv *http.Server
}

func NewServer(app *bootstrap.App, host string, port string) *Server {
	router := mux.NewRouter().UseEncodedPath()
	router.Use(middleware.Metrics(app.Metrics))

	s := &Server{
		Config:        app.Config,
		Registry:      app.Registry,
		Gateway:       app.Gateway,
		Stores:        app.Stores,
		HealthStore:   app.Health,
		Scheduler:     app.Scheduler,
		Metrics:       app.Metrics,
		Router:        router,
		JWTMiddleware: middleware.NewJWTAuthenticator(app.Config.TokenSecret, PublicPaths...),
		Logger:        app.Logger.With().Str("component", "server").Logger(),
		app:           app,
	}
	router.Use(s.JWTMiddleware.Middleware)

	s.srv = &http.Server{
		Handler: handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(
			handlers.LoggingHandler(s.Logger, router),
		),
		Addr: host + ":" + port,
		// Batch runs against large directories take a while.
		WriteTimeout: 5 * time.Minute,
		ReadTimeout:  15 * time.Second,
	}
	return s
}

// Runner returns a batch runner for model.
func (s *Server) Runner(model string, batchMemberships bool) (*reconcile.Runner, error) {
	return s.app.Runner(model, batchMemberships)
}

// Handler returns the root handler, access logging included.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.Logger.Info().Str("addr", s.srv.Addr).Msg("listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for running ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
