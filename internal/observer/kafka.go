package observer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/holtholcomb/tvstream/internal/logging"
	"github.com/holtholcomb/tvstream/internal/metrics"
	"github.com/holtholcomb/tvstream/internal/protocol"
	"go.uber.org/zap"
)

// KafkaConfig configures a KafkaSink.
type KafkaConfig struct {
	Brokers []string
	Topic   string

	// RequiredAcks is "all" (default), "leader" or "none".
	RequiredAcks string

	// Compression is "none" (default), "gzip", "snappy", "lz4" or "zstd".
	Compression string

	// Timeout bounds each broker request. Defaults to 5s.
	Timeout time.Duration

	// Symbol keys chart updates, which do not name their symbol.
	Symbol string
}

func (c *KafkaConfig) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.RequiredAcks == "" {
		c.RequiredAcks = "all"
	}
	if c.Compression == "" {
		c.Compression = "none"
	}
}

func (c KafkaConfig) validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka sink: brokers required")
	}
	if c.Topic == "" {
		return fmt.Errorf("kafka sink: topic required")
	}
	return nil
}

func buildSaramaConfig(c KafkaConfig) (*sarama.Config, error) {
	sc := sarama.NewConfig()
	sc.ClientID = "tvstream"

	switch strings.ToLower(c.RequiredAcks) {
	case "all":
		sc.Producer.RequiredAcks = sarama.WaitForAll
	case "leader":
		sc.Producer.RequiredAcks = sarama.WaitForLocal
	case "none":
		sc.Producer.RequiredAcks = sarama.NoResponse
	default:
		return nil, fmt.Errorf("kafka sink: invalid RequiredAcks %q", c.RequiredAcks)
	}

	switch strings.ToLower(c.Compression) {
	case "none":
		sc.Producer.Compression = sarama.CompressionNone
	case "gzip":
		sc.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		sc.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		sc.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		sc.Producer.Compression = sarama.CompressionZSTD
	default:
		return nil, fmt.Errorf("kafka sink: invalid Compression %q", c.Compression)
	}

	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.Timeout = c.Timeout
	return sc, nil
}

// Record is the JSON value published for each data update.
type Record struct {
	Kind       string          `json:"kind"`
	Symbol     string          `json:"symbol,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
	Payload    json.RawMessage `json:"payload"`
}

// KafkaSink publishes every market data update to a topic, keyed by symbol.
// Observe only enqueues; delivery results are drained on a separate goroutine.
// Publish failures and dropped records are logged and counted; they never stop
// the stream.
type KafkaSink struct {
	prod   sarama.AsyncProducer
	topic  string
	symbol string
	log    *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewKafkaSink connects an async producer to the brokers.
func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	sc, err := buildSaramaConfig(cfg)
	if err != nil {
		return nil, err
	}

	prod, err := sarama.NewAsyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	logging.Info("Kafka sink connected",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)
	return NewKafkaSinkWithProducer(prod, cfg.Topic, cfg.Symbol), nil
}

// NewKafkaSinkWithProducer wraps an existing producer and starts draining its
// Successes and Errors channels. The producer must be configured with
// Return.Errors set; Return.Successes is optional.
func NewKafkaSinkWithProducer(prod sarama.AsyncProducer, topic, symbol string) *KafkaSink {
	s := &KafkaSink{
		prod:   prod,
		topic:  topic,
		symbol: symbol,
		log:    logging.Named("kafka-sink"),
		now:    time.Now,
		done:   make(chan struct{}),
	}
	go s.drain()
	return s
}

func (s *KafkaSink) Observe(_ context.Context, msg *protocol.Message) {
	if !msg.Kind.IsData() {
		return
	}

	rec := Record{
		Kind:       msg.Kind.String(),
		Symbol:     s.symbol,
		ReceivedAt: s.now().UTC(),
		Payload:    msg.Body(),
	}
	if msg.Kind.IsQuoteFieldUpdate() {
		if name := msg.Get("p.1.n").String(); name != "" {
			rec.Symbol = name
		}
	}

	if err := s.enqueue(rec); err != nil {
		metrics.PublishErrors.Inc()
		s.log.Warn("Failed to publish update",
			zap.String("kind", rec.Kind),
			zap.String("topic", s.topic),
			zap.Error(err),
		)
	}
}

var (
	errSinkClosed = errors.New("kafka sink closed")
	errQueueFull  = errors.New("producer queue full, record dropped")
)

// enqueue hands the record to the producer without waiting. A full input
// queue drops the record rather than stalling the caller.
func (s *KafkaSink) enqueue(rec Record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	pm := &sarama.ProducerMessage{
		Topic:    s.topic,
		Value:    sarama.ByteEncoder(value),
		Metadata: rec.Kind,
	}
	if rec.Symbol != "" {
		pm.Key = sarama.StringEncoder(rec.Symbol)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSinkClosed
	}
	select {
	case s.prod.Input() <- pm:
		return nil
	default:
		return errQueueFull
	}
}

// drain consumes delivery results until the producer closes both channels.
func (s *KafkaSink) drain() {
	defer close(s.done)

	successes, errs := s.prod.Successes(), s.prod.Errors()
	for successes != nil || errs != nil {
		select {
		case pm, ok := <-successes:
			if !ok {
				successes = nil
				continue
			}
			s.log.Debug("Published update",
				zap.Any("kind", pm.Metadata),
				zap.Int32("partition", pm.Partition),
				zap.Int64("offset", pm.Offset),
			)
		case pe, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			metrics.PublishErrors.Inc()
			fields := []zap.Field{zap.String("topic", s.topic), zap.Error(pe.Err)}
			if pe.Msg != nil {
				fields = append(fields, zap.Any("kind", pe.Msg.Metadata))
			}
			s.log.Warn("Failed to publish update", fields...)
		}
	}
}

// Close flushes buffered records, then waits until every delivery result has
// been drained. Observe calls after Close are dropped.
func (s *KafkaSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.prod.AsyncClose()
	<-s.done
	return nil
}
