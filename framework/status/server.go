// Package status serves the progress of a test run over HTTP and lets a client cancel it.
//
//	GET  /status   the current Snapshot as JSON
//	POST /cancel   cancel the active run; 409 if there is none
//	GET  /metrics  Prometheus metrics
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/launchdarkly/test-engine/framework"
	"github.com/launchdarkly/test-engine/framework/helpers"

	"github.com/gorilla/mux"
)

// Target is what the server controls. *engine.Executor implements it.
type Target interface {
	Cancel()
	IsRunning() bool
}

// Server is the HTTP status endpoint.
type Server struct {
	target  Target
	tracker *Tracker
	metrics *Metrics
	logger  framework.Logger
	router  *mux.Router
}

type ServerOption helpers.ConfigOption[Server]

type serverOptionMetrics struct {
	metrics *Metrics
}

func (o serverOptionMetrics) Configure(s *Server) error {
	if o.metrics == nil {
		return errors.New("metrics must not be nil")
	}
	s.metrics = o.metrics
	return nil
}

// WithMetrics adds the /metrics endpoint.
func WithMetrics(metrics *Metrics) ServerOption {
	return serverOptionMetrics{metrics}
}

type serverOptionLogger struct {
	logger framework.Logger
}

func (o serverOptionLogger) Configure(s *Server) error {
	s.logger = o.logger
	return nil
}

func WithLogger(logger framework.Logger) ServerOption {
	return serverOptionLogger{logger}
}

func NewServer(target Target, tracker *Tracker, options ...ServerOption) (*Server, error) {
	s := &Server{
		target:  target,
		tracker: tracker,
		logger:  framework.NullLogger(),
	}
	if err := helpers.ApplyOptions(s, options...); err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	router.HandleFunc("/status", s.serveStatus).Methods("GET")
	router.HandleFunc("/cancel", s.serveCancel).Methods("POST")
	if s.metrics != nil {
		router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK) // we use this to test whether the listener is active
	}).Methods("HEAD")
	s.router = router
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) serveStatus(w http.ResponseWriter, r *http.Request) {
	data, err := json.Marshal(s.tracker.Snapshot())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) serveCancel(w http.ResponseWriter, r *http.Request) {
	if !s.target.IsRunning() {
		w.WriteHeader(http.StatusConflict)
		return
	}
	s.logger.Printf("Cancellation requested by %s", r.RemoteAddr)
	s.target.Cancel()
	w.WriteHeader(http.StatusAccepted)
}

// Start listens on the given port (0 picks a free one) and serves in the background. Stop the
// server with Shutdown on the returned http.Server.
func (s *Server) Start(port int) (*http.Server, net.Addr, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, nil, err
	}
	server := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second, // arbitrary but non-infinite timeout to avoid Slowloris Attack
	}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Status server stopped: %s", err)
		}
	}()
	s.logger.Printf("Status server listening on %s", listener.Addr())
	return server, listener.Addr(), nil
}

// Shutdown stops a server returned by Start.
func Shutdown(server *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return server.Shutdown(ctx)
}
