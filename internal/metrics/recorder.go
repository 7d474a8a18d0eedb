package metrics

import (
	"net/http"

	"github.com/andrebq/userauth/userauth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type (
	// Recorder counts gate outcomes per route.
	Recorder struct {
		requests *prometheus.CounterVec
	}
)

var _ userauth.Recorder = (*Recorder)(nil)

func NewRecorder(reg prometheus.Registerer, namespace string) (*Recorder, error) {
	if namespace == "" {
		namespace = "userauth"
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gate_requests_total",
		Help:      "Requests handled by the authentication gate",
	}, []string{"route", "outcome"})
	if err := reg.Register(requests); err != nil {
		return nil, err
	}
	return &Recorder{requests: requests}, nil
}

func (r *Recorder) Observe(route userauth.Route, outcome userauth.Outcome) {
	r.requests.WithLabelValues(route.String(), outcome.String()).Inc()
}

// Handler exposes the metrics gathered by reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
