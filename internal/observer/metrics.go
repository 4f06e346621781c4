package observer

import (
	"context"

	"github.com/holtholcomb/tvstream/internal/metrics"
	"github.com/holtholcomb/tvstream/internal/protocol"
)

// MetricsSink counts messages per kind and tracks the last price per symbol.
type MetricsSink struct{}

func (MetricsSink) Observe(_ context.Context, msg *protocol.Message) {
	metrics.IncMessage(msg.Kind.String())

	if !msg.Kind.IsQuoteFieldUpdate() {
		return
	}
	q, err := msg.Quote()
	if err != nil || q.Data.Price == nil {
		return
	}
	metrics.LastPrice.WithLabelValues(q.Symbol).Set(*q.Data.Price)
}
