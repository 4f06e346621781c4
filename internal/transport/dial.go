package transport

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/sha1"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/holtholcomb/tvstream/internal/config"
	"github.com/holtholcomb/tvstream/internal/logging"
	"go.uber.org/zap"
)

// websocketGUID is appended to the client key to compute Sec-WebSocket-Accept.
const websocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// DialConfig configures Dial.
type DialConfig struct {
	Endpoint config.Endpoint

	// TLSConfig overrides the default client TLS settings when
	// Endpoint.TLS is set. ServerName defaults to Endpoint.Host.
	TLSConfig *tls.Config

	// Header holds extra headers sent with the Upgrade request.
	Header http.Header

	// Timeout bounds the TCP connect. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// Conn is an upgraded stream. Bytes the server sent right after the 101
// response are returned by Read before anything else.
type Conn struct {
	net.Conn
	r io.Reader
}

func (c *Conn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

// Dial connects to the endpoint, performs the TLS handshake when enabled, and
// completes the HTTP/1.1 WebSocket Upgrade. The returned Conn is ready for
// Transport.
func Dial(ctx context.Context, cfg DialConfig) (*Conn, error) {
	ep := cfg.Endpoint
	addr := ep.Address()

	dialer := &net.Dialer{Timeout: cfg.Timeout}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, ClassifyNetworkError(err, addr)
	}
	remoteAddr := raw.RemoteAddr().String()
	logging.LogConnection(remoteAddr, "connected")

	conn := raw
	// Abort a stalled handshake when ctx is cancelled.
	stop := context.AfterFunc(ctx, func() { _ = raw.Close() })
	defer stop()

	if ep.TLS {
		tlsConn := tls.Client(raw, clientTLSConfig(cfg.TLSConfig, ep.Host))
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = raw.Close()
			return nil, &Error{Type: ErrTypeTLS, Message: "TLS handshake failed", Addr: remoteAddr, Err: err}
		}
		logging.LogTLSHandshake(remoteAddr, tlsConn.ConnectionState())
		conn = tlsConn
	}

	reader, err := upgrade(conn, ep, cfg.Header, remoteAddr)
	if err != nil {
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil, &Error{Type: ErrTypeUpgrade, Message: "upgrade aborted", Addr: remoteAddr, Err: ctx.Err()}
		}
		return nil, err
	}

	if !stop() {
		// ctx fired after the handshake finished; the conn is already closed.
		return nil, &Error{Type: ErrTypeUpgrade, Message: "upgrade aborted", Addr: remoteAddr, Err: ctx.Err()}
	}
	return &Conn{Conn: conn, r: reader}, nil
}

func clientTLSConfig(base *tls.Config, host string) *tls.Config {
	var cfg *tls.Config
	if base != nil {
		cfg = base.Clone()
	} else {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS12
	}
	cfg.NextProtos = []string{"http/1.1"}
	return cfg
}

// upgrade writes the Upgrade request and validates the response head. It
// returns the reader holding any bytes already received past the head.
func upgrade(conn net.Conn, ep config.Endpoint, extra http.Header, remoteAddr string) (io.Reader, error) {
	key, err := newClientKey()
	if err != nil {
		return nil, &Error{Type: ErrTypeUpgrade, Message: "failed to generate key", Addr: remoteAddr, Err: err}
	}

	request := buildUpgradeRequest(ep, key, extra)
	logging.LogRawBytes("HTTP Upgrade request", []byte(request))
	if _, err := io.WriteString(conn, request); err != nil {
		return nil, &Error{Type: ErrTypeWrite, Message: "failed to write Upgrade request", Addr: remoteAddr, Err: err}
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, nil)
	if err != nil {
		return nil, &Error{Type: ErrTypeUpgrade, Message: "failed to read Upgrade response", Addr: remoteAddr, Err: err}
	}
	// 101 has no body; anything left in br is frame data.

	if resp.StatusCode != http.StatusSwitchingProtocols {
		_ = resp.Body.Close()
		return nil, &Error{
			Type:       ErrTypeUpgrade,
			Message:    fmt.Sprintf("unexpected status %q", resp.Status),
			Addr:       remoteAddr,
			StatusCode: resp.StatusCode,
		}
	}
	if !strings.EqualFold(resp.Header.Get("Upgrade"), "websocket") {
		return nil, &Error{
			Type:       ErrTypeUpgrade,
			Message:    fmt.Sprintf("invalid Upgrade header: %q", resp.Header.Get("Upgrade")),
			Addr:       remoteAddr,
			StatusCode: resp.StatusCode,
		}
	}
	if accept := resp.Header.Get("Sec-WebSocket-Accept"); accept != "" && accept != AcceptKey(key) {
		return nil, &Error{
			Type:       ErrTypeUpgrade,
			Message:    "Sec-WebSocket-Accept does not match the request key",
			Addr:       remoteAddr,
			StatusCode: resp.StatusCode,
		}
	}

	logging.LogUpgrade(remoteAddr, ep.Path, resp.Status)
	logging.Debug("Upgrade response headers",
		zap.String("remote_addr", remoteAddr),
		zap.Any("headers", resp.Header),
		zap.Int("buffered", br.Buffered()),
	)
	return br, nil
}

func buildUpgradeRequest(ep config.Endpoint, key string, extra http.Header) string {
	host := ep.Host
	if (ep.TLS && ep.Port != 443) || (!ep.TLS && ep.Port != 80) {
		host = ep.Address()
	}
	path := ep.Path
	if path == "" {
		path = "/"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "GET %s HTTP/1.1\r\n", path)
	fmt.Fprintf(&b, "Host: %s\r\n", host)
	b.WriteString("Connection: Upgrade\r\n")
	b.WriteString("Upgrade: websocket\r\n")
	b.WriteString("Sec-WebSocket-Version: 13\r\n")
	fmt.Fprintf(&b, "Sec-WebSocket-Key: %s\r\n", key)
	if ep.Origin != "" {
		fmt.Fprintf(&b, "Origin: %s\r\n", ep.Origin)
	}

	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range extra[name] {
			fmt.Fprintf(&b, "%s: %s\r\n", http.CanonicalHeaderKey(name), v)
		}
	}
	b.WriteString("\r\n")
	return b.String()
}

func newClientKey() (string, error) {
	var nonce [16]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(nonce[:]), nil
}

// AcceptKey computes the Sec-WebSocket-Accept value for a client key.
func AcceptKey(key string) string {
	h := sha1.New()
	h.Write([]byte(key + websocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
