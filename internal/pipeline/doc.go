// Package pipeline runs a tvstream session as two goroutines: the transport
// read loop and the protocol engine. They talk only through two unbounded
// FIFO mailboxes, one per direction.
//
// The transport blocks on the reply batch for each payload before reading
// again, so at most one payload is in flight and the engine needs no locks.
// When either side stops, the other is unwound: a failed engine closes both
// mailboxes, which surfaces as a channel error on the transport side, and a
// finished transport closes the inbound mailbox, which ends the engine loop.
package pipeline
