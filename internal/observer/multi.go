package observer

import (
	"context"

	"github.com/holtholcomb/tvstream/internal/protocol"
)

// Multi returns an Observer that passes every message to each non-nil
// observer in order.
func Multi(observers ...protocol.Observer) protocol.Observer {
	var list []protocol.Observer
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	return multi(list)
}

type multi []protocol.Observer

func (m multi) Observe(ctx context.Context, msg *protocol.Message) {
	for _, o := range m {
		o.Observe(ctx, msg)
	}
}
