package fcgiserver

import (
	"net/http"

	"github.com/WuKongIM/wkfcgi/pkg/framer"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	directionIn  = "in"
	directionOut = "out"
)

type metrics struct {
	registry    *prometheus.Registry
	connections prometheus.Gauge
	records     *prometheus.CounterVec
	bytes       *prometheus.CounterVec
	errors      *prometheus.CounterVec
}

func newMetrics(registry *prometheus.Registry) *metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &metrics{
		registry: registry,
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fcgi",
			Name:      "connections",
			Help:      "Number of open connections.",
		}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fcgi",
			Name:      "records_total",
			Help:      "Records assembled from (in) or written to (out) connections.",
		}, []string{"direction"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fcgi",
			Name:      "bytes_total",
			Help:      "Raw bytes read from (in) or written to (out) connections.",
		}, []string{"direction"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fcgi",
			Name:      "framing_errors_total",
			Help:      "Fatal framing errors by kind.",
		}, []string{"kind"}),
	}
	registry.MustRegister(m.connections, m.records, m.bytes, m.errors)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) errorOccurred(err error) {
	m.errors.WithLabelValues(errorKind(err)).Inc()
}

func errorKind(err error) string {
	var (
		double      *framer.DoubleBindingError
		leftover    *framer.LeftoverDataError
		unsupported *framer.UnsupportedOperationError
		notImpl     *framer.NotImplementedError
	)
	switch {
	case errors.As(err, &double):
		return "double_binding"
	case errors.As(err, &leftover):
		return "leftover_data"
	case errors.As(err, &unsupported):
		return "unsupported_operation"
	case errors.As(err, &notImpl):
		return "not_implemented"
	case errors.Is(err, framer.ErrWriteAfterEnd):
		return "write_after_end"
	default:
		return "transport"
	}
}
