// Package monitoring serves prometheus metrics and the health of the running
// services over HTTP.
package monitoring

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"runtime/pprof"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "monitoring")

// StatusChecker reports the health of a service, nil when healthy.
type StatusChecker interface {
	Status() error
}

// Service provides prometheus metrics via the /metrics route and the status
// of the registered services via /healthz.
type Service struct {
	server   *http.Server
	services map[string]StatusChecker

	lock       sync.RWMutex
	failStatus error
}

// NewService sets up a monitoring server for the given address host:port.
// An empty host listens on all interfaces.
func NewService(addr string, services map[string]StatusChecker) *Service {
	s := &Service{services: services}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.healthzHandler)
	mux.HandleFunc("/goroutinez", s.goroutinezHandler)

	s.server = &http.Server{Addr: addr, Handler: mux}
	return s
}

func (s *Service) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(s.services))
	for name := range s.services {
		names = append(names, name)
	}
	sort.Strings(names)

	hasError := false
	var buf bytes.Buffer
	for _, name := range names {
		status := "OK"
		if err := s.services[name].Status(); err != nil {
			hasError = true
			status = "ERROR " + err.Error()
		}
		fmt.Fprintf(&buf, "%s: %s\n", name, status)
	}

	if hasError {
		w.WriteHeader(http.StatusInternalServerError)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.WithError(err).Error("Could not write healthz body")
	}
}

func (s *Service) goroutinezHandler(w http.ResponseWriter, _ *http.Request) {
	// #nosec G104
	w.Write(debug.Stack())
	// #nosec G104
	pprof.Lookup("goroutine").WriteTo(w, 2)
}

// Start serving in the background.
func (s *Service) Start() {
	log.WithField("endpoint", s.server.Addr).Info("Starting monitoring service")
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.WithError(err).Errorf("Could not listen on %s", s.server.Addr)
			s.lock.Lock()
			s.failStatus = err
			s.lock.Unlock()
		}
	}()
}

// Stop the server gracefully.
func (s *Service) Stop() error {
	log.Info("Stopping monitoring service")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Status reports whether the server failed to listen.
func (s *Service) Status() error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.failStatus
}
