// Package observer holds the sinks that receive classified messages from the
// protocol engine: a zap log sink, a Prometheus sink, a terminal console sink
// and a Kafka sink. Multi fans one message out to several of them.
//
// Sinks run on the engine goroutine, between reading one payload and the
// next, so they are kept short. The Kafka sink uses a synchronous producer;
// give it a broker close to the process.
package observer
