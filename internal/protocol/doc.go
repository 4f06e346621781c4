// Package protocol implements the vendor's application protocol on top of
// decoded WebSocket text payloads.
//
// # Envelopes
//
// Every logical message travels wrapped as
//
//	~m~<decimal byte length>~m~<message>
//
// and one frame payload may carry several envelopes back to back.
// SplitEnvelopes cuts a payload into sub-messages and WrapEnvelope builds the
// outbound form. Keep-alive pings are the only non-JSON messages:
//
//	~m~5~m~~h~42     server ping 42
//	~m~5~m~~h~42     client echo (identical)
//
// # Classification
//
// The Classifier maps each sub-message onto a closed set of MessageKinds with
// an ordered rule table. The first matching rule wins:
//
//  1. ~h~<id>                          KindPing
//  2. empty string                     KindEmpty
//  3. invalid JSON                     Parse error
//  4. has "release"                    KindServerHello
//  5. "m" is a known status/error name KindProtocolError ... KindStudyLoading
//  6. p.1.v.bid_size / description / local_popularity / lp_time / lp
//  7. p.1.<series id>.s / p.1.<study id>.st
//  8. otherwise                        KindUnclassified
//
// # Engine
//
// The Engine owns the session state machine:
//
//	AwaitingHello -> Bootstrapped -> Streaming
//	      any state -> Terminated (server error, parse error, unknown shape)
//
// On the first hello it emits the nine bootstrap commands built from the
// session profile (auth token, quote session, quote fields, symbol, fast
// symbol, chart session, resolve symbol, series, study). A second hello is
// observed but never re-bootstraps. Pings are echoed immediately. Data and
// status messages go to the Observer and produce no commands.
//
// Server errors (protocol_error, study_error, critical_error) terminate the
// engine with a ServerError carrying the server's message verbatim.
//
// # Usage Example
//
//	engine, err := protocol.NewEngine(profile, observer)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	replies, err := engine.Handle(ctx, payload)
//	if err != nil {
//	    // terminal: engine.State() == protocol.StateTerminated
//	}
//	for _, r := range replies {
//	    // frame-encode and write r
//	}
package protocol
