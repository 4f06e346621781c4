package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/holtholcomb/tvstream/internal/transport"
)

// upperHandler replies with the upper-cased payload, or fails on "fail".
type upperHandler struct {
	handled []string
}

var errHandler = errors.New("handler failed")

func (h *upperHandler) Handle(_ context.Context, payload string) ([]string, error) {
	h.handled = append(h.handled, payload)
	if payload == "fail" {
		return nil, errHandler
	}
	if payload == "" {
		return nil, nil
	}
	return []string{strings.ToUpper(payload), payload}, nil
}

func TestPipelineRun(t *testing.T) {
	h := &upperHandler{}
	var got [][]string
	stream := StreamFunc(func(ctx context.Context, ex transport.Exchanger) error {
		for _, payload := range []string{"a", "", "bc"} {
			batch, err := ex.Exchange(ctx, payload)
			if err != nil {
				return err
			}
			got = append(got, batch)
		}
		return nil
	})

	if err := New(h).Run(context.Background(), stream); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := [][]string{{"A", "a"}, nil, {"BC", "bc"}}
	if len(got) != len(want) {
		t.Fatalf("got %d batches, want %d", len(got), len(want))
	}
	for i := range want {
		if strings.Join(got[i], ",") != strings.Join(want[i], ",") {
			t.Errorf("batch %d = %q, want %q", i, got[i], want[i])
		}
	}
	if strings.Join(h.handled, ",") != "a,,bc" {
		t.Errorf("handled = %q", h.handled)
	}
}

func TestPipelineHandlerFailure(t *testing.T) {
	h := &upperHandler{}
	var streamErr error
	stream := StreamFunc(func(ctx context.Context, ex transport.Exchanger) error {
		if _, err := ex.Exchange(ctx, "ok"); err != nil {
			return err
		}
		_, streamErr = ex.Exchange(ctx, "fail")
		if streamErr == nil {
			return nil
		}
		// A further send must fail too: the handler is gone.
		if _, err := ex.Exchange(ctx, "late"); !transport.IsType(err, transport.ErrTypeChannelSend) {
			t.Errorf("Exchange() after failure error = %v, want channel send error", err)
		}
		return streamErr
	})

	err := New(h).Run(context.Background(), stream)
	if !errors.Is(err, errHandler) {
		t.Fatalf("Run() error = %v, want handler error", err)
	}
	if !transport.IsType(streamErr, transport.ErrTypeChannelReceive) {
		t.Errorf("stream saw %v, want channel receive error", streamErr)
	}
	for _, p := range h.handled {
		if p == "late" {
			t.Error("payload sent after failure reached the handler")
		}
	}
}

func TestPipelineStreamFailure(t *testing.T) {
	streamErr := &transport.Error{Type: transport.ErrTypeRead, Message: "reset"}
	stream := StreamFunc(func(ctx context.Context, ex transport.Exchanger) error {
		return streamErr
	})

	err := New(&upperHandler{}).Run(context.Background(), stream)
	if !errors.Is(err, streamErr) {
		t.Errorf("Run() error = %v, want %v", err, streamErr)
	}
}

// blockingHandler never answers until ctx ends.
type blockingHandler struct{}

func (blockingHandler) Handle(ctx context.Context, _ string) ([]string, error) {
	<-ctx.Done()
	return nil, nil
}

func TestPipelineCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stream := StreamFunc(func(ctx context.Context, ex transport.Exchanger) error {
		_, err := ex.Exchange(ctx, "x")
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	done := make(chan error, 1)
	go func() { done <- New(blockingHandler{}).Run(ctx, stream) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
}
