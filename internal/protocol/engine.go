package protocol

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/holtholcomb/tvstream/internal/config"
	"github.com/holtholcomb/tvstream/internal/logging"
)

// State is the engine's position in the session lifecycle.
type State int32

const (
	StateAwaitingHello State = iota
	StateBootstrapped
	StateStreaming
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAwaitingHello:
		return "awaiting_hello"
	case StateBootstrapped:
		return "bootstrapped"
	case StateStreaming:
		return "streaming"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Observer receives every classified sub-message except empty ones.
// Observe is called on the engine's goroutine and must not block for long.
type Observer interface {
	Observe(ctx context.Context, msg *Message)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, msg *Message)

func (f ObserverFunc) Observe(ctx context.Context, msg *Message) { f(ctx, msg) }

// Engine owns the application session: it classifies each inbound payload,
// bootstraps the session on the first hello, answers pings and terminates on
// server-signalled errors.
//
// Handle must be called from a single goroutine. State and Err may be read
// from any goroutine.
type Engine struct {
	classifier *Classifier
	observer   Observer
	tracer     trace.Tracer
	strict     bool
	bootstrap  []string

	state atomic.Int32
	err   atomic.Pointer[error]
}

// NewEngine builds an engine for profile. The bootstrap batch is serialized up
// front so that a bad profile fails here rather than after the hello.
func NewEngine(profile *config.Profile, observer Observer) (*Engine, error) {
	if profile == nil {
		return nil, errors.New("protocol: nil profile")
	}

	bootstrap, err := EncodeCommands(BootstrapSequence(profile.Session))
	if err != nil {
		return nil, fmt.Errorf("failed to build bootstrap sequence: %w", err)
	}

	if observer == nil {
		observer = ObserverFunc(func(context.Context, *Message) {})
	}

	return &Engine{
		classifier: NewClassifier(profile.Session.IDs),
		observer:   observer,
		tracer:     otel.Tracer("github.com/holtholcomb/tvstream/internal/protocol"),
		strict:     profile.StrictClassification,
		bootstrap:  bootstrap,
	}, nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Ready reports whether the bootstrap sequence has been emitted and the
// engine has not terminated.
func (e *Engine) Ready() bool {
	s := e.State()
	return s == StateBootstrapped || s == StateStreaming
}

// Err returns the error that terminated the engine, or nil.
func (e *Engine) Err() error {
	if p := e.err.Load(); p != nil {
		return *p
	}
	return nil
}

// Handle processes one decoded frame payload and returns the outbound
// messages for it, already enveloped and in send order. The batch may be
// empty.
//
// On any fatal condition Handle returns a nil batch and the error, and the
// engine moves to StateTerminated. Replies produced by earlier sub-messages
// of the same payload are discarded. Later calls return an ErrTypeTerminated
// error wrapping the original cause.
func (e *Engine) Handle(ctx context.Context, payload string) ([]string, error) {
	if e.State() == StateTerminated {
		return nil, &Error{Type: ErrTypeTerminated, Message: "engine already terminated", Err: e.Err()}
	}

	ctx, span := e.tracer.Start(ctx, "protocol.Engine.Handle",
		trace.WithAttributes(attribute.Int("payload.length", len(payload))))
	defer span.End()

	parts := SplitEnvelopes(payload)
	span.SetAttributes(attribute.Int("messages.count", len(parts)))

	var out []string
	for _, raw := range parts {
		msg, err := e.classifier.Classify(raw)
		if err != nil {
			return nil, e.terminate(span, err)
		}

		replies, err := e.dispatch(ctx, msg)
		if err != nil {
			return nil, e.terminate(span, err)
		}
		out = append(out, replies...)
	}

	span.SetAttributes(
		attribute.Int("replies.count", len(out)),
		attribute.String("engine.state", e.State().String()),
	)
	return out, nil
}

func (e *Engine) dispatch(ctx context.Context, msg *Message) ([]string, error) {
	switch {
	case msg.Kind == KindEmpty:
		return nil, nil

	case msg.Kind == KindServerHello:
		e.observer.Observe(ctx, msg)
		if e.State() != StateAwaitingHello {
			logging.Warn("Server hello received again, bootstrap not repeated",
				zap.String("state", e.State().String()),
			)
			return nil, nil
		}
		e.state.Store(int32(StateBootstrapped))
		logging.Info("Server hello received, bootstrapping session",
			zap.Int("commands", len(e.bootstrap)),
		)
		return e.bootstrap, nil

	case msg.Kind == KindPing:
		e.observer.Observe(ctx, msg)
		e.advance()
		logging.Debug("Answering ping", zap.Uint64("id", msg.PingID))
		return []string{PingReply(msg.PingID)}, nil

	case msg.Kind.IsFatal():
		e.observer.Observe(ctx, msg)
		return nil, &ServerError{Kind: msg.Kind, Body: msg.Body()}

	case msg.Kind == KindUnclassified:
		if e.strict {
			return nil, &Error{Type: ErrTypeUnclassified, Message: "message matches no known shape", Raw: msg.Raw}
		}
		logging.Warn("Skipping unclassified message",
			zap.String("method", msg.Method),
			zap.Int("length", len(msg.Raw)),
		)
		e.observer.Observe(ctx, msg)
		return nil, nil

	default:
		e.observer.Observe(ctx, msg)
		e.advance()
		return nil, nil
	}
}

// advance moves a bootstrapped session into streaming.
func (e *Engine) advance() {
	e.state.CompareAndSwap(int32(StateBootstrapped), int32(StateStreaming))
}

func (e *Engine) terminate(span trace.Span, err error) error {
	e.err.Store(&err)
	e.state.Store(int32(StateTerminated))

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	fields := []zap.Field{zap.Error(err)}
	var pe *Error
	if errors.As(err, &pe) && pe.Raw != "" {
		fields = append(fields, zap.String("raw", pe.Raw))
	}
	logging.Error("Protocol engine terminated", fields...)
	return err
}
