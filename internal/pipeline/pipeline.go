package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/holtholcomb/tvstream/internal/logging"
	"github.com/holtholcomb/tvstream/internal/metrics"
	"github.com/holtholcomb/tvstream/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Handler turns one inbound payload into its outbound batch.
// *protocol.Engine implements it.
type Handler interface {
	Handle(ctx context.Context, payload string) ([]string, error)
}

// Stream is the network side of the pipeline. *transport.Transport
// implements it.
type Stream interface {
	Run(ctx context.Context, ex transport.Exchanger) error
}

// StreamFunc adapts a function to the Stream interface.
type StreamFunc func(ctx context.Context, ex transport.Exchanger) error

func (f StreamFunc) Run(ctx context.Context, ex transport.Exchanger) error { return f(ctx, ex) }

// Pipeline connects a Stream and a Handler through two mailboxes. The stream
// runs on one goroutine and the handler on another; they share nothing else.
//
// A Pipeline runs once.
type Pipeline struct {
	handler  Handler
	inbound  *Mailbox[string]
	outbound *Mailbox[[]string]
}

// New creates a Pipeline around handler.
func New(handler Handler) *Pipeline {
	return &Pipeline{
		handler:  handler,
		inbound:  NewMailbox[string](),
		outbound: NewMailbox[[]string](),
	}
}

// Exchange implements transport.Exchanger. It sends payload to the handler
// goroutine and waits for the batch produced for it.
func (p *Pipeline) Exchange(ctx context.Context, payload string) ([]string, error) {
	if err := p.inbound.Send(payload); err != nil {
		return nil, &transport.Error{Type: transport.ErrTypeChannelSend, Message: "handler is no longer receiving", Err: err}
	}

	batch, err := p.outbound.Receive(ctx)
	if err != nil {
		if errors.Is(err, ErrClosed) {
			return nil, &transport.Error{Type: transport.ErrTypeChannelReceive, Message: "handler stopped before replying", Err: err}
		}
		return nil, err
	}
	return batch, nil
}

// Run drives stream and handler until both have finished. It returns the
// handler's error if the handler failed, otherwise the stream's error.
// Ending the stream cleanly (peer close, close frame or ctx cancellation)
// returns nil.
func (p *Pipeline) Run(ctx context.Context, stream Stream) error {
	g, gctx := errgroup.WithContext(ctx)

	var handlerErr error
	g.Go(func() error {
		defer p.outbound.Close()
		defer p.inbound.Close()
		handlerErr = p.runHandler(gctx)
		return handlerErr
	})
	g.Go(func() error {
		defer p.inbound.Close()
		return stream.Run(gctx, p)
	})

	err := g.Wait()
	if handlerErr != nil {
		return handlerErr
	}
	return err
}

func (p *Pipeline) runHandler(ctx context.Context) error {
	turns := 0
	defer func() {
		logging.Debug("Handler loop finished", zap.Int("turns", turns))
	}()

	for {
		payload, err := p.inbound.Receive(ctx)
		if err != nil {
			// Closed inbound or cancellation: the stream side reports why.
			return nil
		}

		start := time.Now()
		batch, err := p.handler.Handle(ctx, payload)
		if err != nil {
			metrics.IncError("protocol")
			return err
		}
		turns++

		if err := p.outbound.Send(batch); err != nil {
			return &transport.Error{Type: transport.ErrTypeChannelSend, Message: "stream is no longer receiving replies", Err: err}
		}
		metrics.TurnLatency.Observe(time.Since(start).Seconds())
	}
}
