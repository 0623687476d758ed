// Package server exposes the host's local control API: status for the
// graphical shell, a Prometheus endpoint, and a shutdown trigger. Two HTTP
// engines are supported; gin is the default, echo is selectable in config.
package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/frameloft/deskhost/internal/metrics"
)

// ServiceStatus is one managed service's externally visible state.
type ServiceStatus struct {
	Role      string    `json:"role"`
	Running   bool      `json:"running"`
	Ready     bool      `json:"ready"`
	PID       int       `json:"pid"`
	Port      int       `json:"port"`
	StartedAt time.Time `json:"started_at,omitzero"`
}

// StatusView is the host snapshot served by /status.
type StatusView struct {
	Ready        bool            `json:"ready"`
	Degraded     bool            `json:"degraded"`
	ShuttingDown bool            `json:"shutting_down"`
	Services     []ServiceStatus `json:"services"`
}

// Host is the surface the API needs from the host process.
type Host interface {
	StatusView() StatusView
	// RequestShutdown triggers the coordinator asynchronously; the HTTP
	// response must not wait behind the teardown sequence.
	RequestShutdown(trigger string)
}

// New builds the control server on addr using the configured engine
// ("gin" or "echo"). Prometheus collectors are registered on reg.
func New(addr, engine string, host Host, reg *prometheus.Registry) (*http.Server, error) {
	if err := metrics.Register(reg); err != nil {
		return nil, err
	}
	var handler http.Handler
	switch engine {
	case "echo":
		handler = newEchoHandler(host, reg)
	default:
		handler = newGinHandler(host, reg)
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}, nil
}
