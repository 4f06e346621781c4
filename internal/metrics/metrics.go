package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tvstream"

var (
	once sync.Once

	// FramesTotal counts WebSocket frames by direction and opcode.
	FramesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "frames_total",
		Help:      "Total number of WebSocket frames by direction and opcode",
	}, []string{"direction", "opcode"})

	// BytesTotal counts raw stream bytes by direction.
	BytesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "bytes_total",
		Help:      "Total number of bytes read from or written to the stream",
	}, []string{"direction"})

	// MessagesTotal counts classified application messages by kind.
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "protocol",
		Name:      "messages_total",
		Help:      "Total number of classified messages by kind",
	}, []string{"kind"})

	// ErrorsTotal counts fatal errors by category.
	ErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "errors_total",
		Help:      "Total number of fatal errors by type",
	}, []string{"type"})

	// PublishErrors counts failed Kafka publishes.
	PublishErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "kafka",
		Name:      "publish_errors_total",
		Help:      "Total number of errors when publishing to Kafka",
	})

	// LastPrice is the most recent last-price update per symbol.
	LastPrice = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "quote",
		Name:      "last_price",
		Help:      "Most recent last price per symbol",
	}, []string{"symbol"})

	// TurnLatency is the time from a decoded payload to its replies being
	// handed back to the transport.
	TurnLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "turn_latency_seconds",
		Help:      "Latency of one inbound payload through the engine (seconds)",
		Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 10),
	})
)

// Register registers all collectors with the given registry.
// Called without arguments it uses prometheus.DefaultRegisterer.
func Register(registerers ...prometheus.Registerer) {
	once.Do(func() {
		var reg prometheus.Registerer
		if len(registerers) > 0 && registerers[0] != nil {
			reg = registerers[0]
		} else {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(
			FramesTotal,
			BytesTotal,
			MessagesTotal,
			ErrorsTotal,
			PublishErrors,
			LastPrice,
			TurnLatency,
		)
	})
}

func IncFrame(direction, opcode string) { FramesTotal.WithLabelValues(direction, opcode).Inc() }
func AddBytes(direction string, n int)  { BytesTotal.WithLabelValues(direction).Add(float64(n)) }
func IncMessage(kind string)            { MessagesTotal.WithLabelValues(kind).Inc() }
func IncError(errType string)           { ErrorsTotal.WithLabelValues(errType).Inc() }
