// File: internal/metrics/server.go
// Project: Starwake battle core
// Description: HTTP server for metrics endpoint
// Version: 1.0.0
// Author: Joshua Ferguson
// Created: 2025-01-14

package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kaspar-vey/starwake/internal/logger"
)

var log = logger.WithComponent("Metrics")

// Server provides an HTTP endpoint for Prometheus metrics.
type Server struct {
	addr       string
	collector  *MetricsCollector
	httpServer *http.Server
	wg         sync.WaitGroup
}

// NewServer creates a new metrics server.
func NewServer(addr string, collector *MetricsCollector) *Server {
	return &Server{
		addr:      addr,
		collector: collector,
	}
}

// Start begins serving metrics on the configured address.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Info("Starting metrics server on %s", s.addr)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Metrics server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	log.Info("Shutting down metrics server")
	err := s.httpServer.Shutdown(ctx)
	s.wg.Wait()
	return err
}

// handleMetrics serves Prometheus-formatted metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprint(w, s.collector.PrometheusFormat())
}

// handleHealth serves a minimal liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.collector.Snapshot()

	errorRate := 0.0
	if snap.RecorderWrites > 0 {
		errorRate = (float64(snap.RecorderErrors) / float64(snap.RecorderWrites)) * 100
	}

	status := "healthy"
	statusCode := http.StatusOK
	if errorRate > 5 {
		status = "degraded"
	}
	if errorRate > 25 {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, `{"status":"%s","uptime":"%s","ticks_processed":%d,"recorder_error_rate_percent":%.2f,"timestamp":"%s"}`,
		status,
		snap.Uptime.Round(time.Second).String(),
		snap.TicksProcessed,
		errorRate,
		time.Now().Format(time.RFC3339),
	)
}
