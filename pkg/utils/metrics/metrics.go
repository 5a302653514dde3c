package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts memory service and transport operations. The zero-cost
// no-op implementation is the default so callers never need nil checks.
type Recorder interface {
	StoreCompleted(ok bool)
	RetrieveCompleted(ok bool, hits int)
	MessageHandled(ok bool)
}

type noop struct{}

func (noop) StoreCompleted(bool)         {}
func (noop) RetrieveCompleted(bool, int) {}
func (noop) MessageHandled(bool)         {}

// Noop returns a recorder that discards everything
func Noop() Recorder {
	return noop{}
}

// Prometheus is a Recorder backed by its own registry so tests and
// multiple instances never clash on metric registration.
type Prometheus struct {
	registry  *prometheus.Registry
	stores    *prometheus.CounterVec
	retrieves *prometheus.CounterVec
	messages  *prometheus.CounterVec
	hits      prometheus.Counter
}

// NewPrometheus creates a recorder backed by a private Prometheus registry
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()

	r := &Prometheus{
		registry: reg,
		stores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remora_memory_store_total",
			Help: "Solution store operations by result",
		}, []string{"result"}),
		retrieves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remora_memory_retrieve_total",
			Help: "Solution retrieve operations by result",
		}, []string{"result"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remora_agent_message_total",
			Help: "Inbound agent messages by result",
		}, []string{"result"}),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remora_memory_retrieve_hits_total",
			Help: "Total similarity hits returned by retrieve",
		}),
	}

	reg.MustRegister(r.stores, r.retrieves, r.messages, r.hits)
	return r
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

func (r *Prometheus) StoreCompleted(ok bool) {
	r.stores.WithLabelValues(result(ok)).Inc()
}

func (r *Prometheus) RetrieveCompleted(ok bool, hits int) {
	r.retrieves.WithLabelValues(result(ok)).Inc()
	r.hits.Add(float64(hits))
}

func (r *Prometheus) MessageHandled(ok bool) {
	r.messages.WithLabelValues(result(ok)).Inc()
}

// Handler exposes the registry for the serve command's /metrics endpoint
func (r *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
