package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// MessageKind is the closed classification of one sub-message.
type MessageKind int

const (
	KindUnclassified MessageKind = iota
	KindEmpty
	KindPing
	KindServerHello

	// Server-signalled failures
	KindProtocolError
	KindStudyError
	KindCriticalError

	// Status notices
	KindQuoteCompleted
	KindSeriesLoading
	KindSymbolResolved
	KindTimescaleUpdate
	KindSeriesCompleted
	KindStudyCompleted
	KindStudyLoading

	// Quote field updates (qsd)
	KindQuoteBidAsk
	KindQuoteDescription
	KindQuoteLocalPopularity
	KindQuoteLastPriceTime
	KindQuoteLastPrice

	// Chart data updates (du)
	KindSeriesDataUpdate
	KindStudyDataUpdate
)

var kindNames = map[MessageKind]string{
	KindUnclassified:         "unclassified",
	KindEmpty:                "empty",
	KindPing:                 "ping",
	KindServerHello:          "server_hello",
	KindProtocolError:        "protocol_error",
	KindStudyError:           "study_error",
	KindCriticalError:        "critical_error",
	KindQuoteCompleted:       "quote_completed",
	KindSeriesLoading:        "series_loading",
	KindSymbolResolved:       "symbol_resolved",
	KindTimescaleUpdate:      "timescale_update",
	KindSeriesCompleted:      "series_completed",
	KindStudyCompleted:       "study_completed",
	KindStudyLoading:         "study_loading",
	KindQuoteBidAsk:          "quote_bid_ask",
	KindQuoteDescription:     "quote_description",
	KindQuoteLocalPopularity: "quote_local_popularity",
	KindQuoteLastPriceTime:   "quote_last_price_time",
	KindQuoteLastPrice:       "quote_last_price",
	KindSeriesDataUpdate:     "series_data_update",
	KindStudyDataUpdate:      "study_data_update",
}

// AllKinds lists every kind in declaration order.
func AllKinds() []MessageKind {
	kinds := make([]MessageKind, 0, len(kindNames))
	for k := KindUnclassified; k <= KindStudyDataUpdate; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k MessageKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("MessageKind(%d)", int(k))
}

// IsFatal reports whether the kind terminates the session.
func (k MessageKind) IsFatal() bool {
	return k == KindProtocolError || k == KindStudyError || k == KindCriticalError
}

// IsStatus reports whether the kind is a loading/completion notice.
func (k MessageKind) IsStatus() bool {
	return k >= KindQuoteCompleted && k <= KindStudyLoading
}

// IsQuoteFieldUpdate reports whether the kind is one of the quote update variants.
func (k MessageKind) IsQuoteFieldUpdate() bool {
	return k >= KindQuoteBidAsk && k <= KindQuoteLastPrice
}

// IsData reports whether the kind carries market data.
func (k MessageKind) IsData() bool {
	return k.IsQuoteFieldUpdate() || k == KindSeriesDataUpdate || k == KindStudyDataUpdate
}

// Message is one classified sub-message. It is built by the classifier and
// consumed immediately by the engine and its observer.
type Message struct {
	Kind   MessageKind
	Raw    string // Sub-message exactly as received
	PingID uint64 // Only set for KindPing
	Method string // The "m" field, when present

	value      gjson.Result
	seriesPath string
	studyPath  string
}

// Body returns the sub-message as raw JSON. It is empty for pings and
// empty messages.
func (m *Message) Body() json.RawMessage {
	if m.Kind == KindPing || m.Kind == KindEmpty {
		return nil
	}
	return json.RawMessage(m.Raw)
}

// Get returns the value at a gjson path inside the message.
func (m *Message) Get(path string) gjson.Result {
	return m.value.Get(path)
}

func (m *Message) String() string {
	switch m.Kind {
	case KindPing:
		return fmt.Sprintf("Message{kind=%s, id=%d}", m.Kind, m.PingID)
	case KindEmpty:
		return "Message{kind=empty}"
	default:
		return fmt.Sprintf("Message{kind=%s, method=%q, length=%d}", m.Kind, m.Method, len(m.Raw))
	}
}
