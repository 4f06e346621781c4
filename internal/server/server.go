package server

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/holtholcomb/tvstream/internal/logging"
	"github.com/holtholcomb/tvstream/internal/transport"
)

const (
	// handshakeTimeout bounds the TLS handshake and the Upgrade request.
	handshakeTimeout = 10 * time.Second

	// DefaultCloseTimeout is how long a finished replay waits for the
	// client's close echo.
	DefaultCloseTimeout = 5 * time.Second
)

// Config holds the replay server configuration.
type Config struct {
	Addr     string // host:port to listen on; port 0 picks a free port
	TLS      bool
	CertPath string // PEM certificate; self-signed when empty and TLS is set
	KeyPath  string // PEM private key

	// Steps is played to every client that connects.
	Steps []Step

	// Speed scales the delays between steps: 1 keeps the captured timing,
	// 2 plays twice as fast. Zero or less sends without delay.
	Speed float64

	// CloseTimeout defaults to DefaultCloseTimeout.
	CloseTimeout time.Duration

	// Recorder, when set, receives every text payload clients send.
	Recorder *transport.Recorder
}

// Server accepts WebSocket clients and replays Steps to each of them.
type Server struct {
	config    Config
	tlsConfig *tls.Config
	listener  net.Listener

	// acceptDone is closed when the accept loop has returned, after which
	// no new sessions are added to wg.
	acceptDone chan struct{}

	// sessionCtx outlives Serve's ctx so that Shutdown can let running
	// replays finish before cancelling them.
	sessionCtx    context.Context
	cancelSession context.CancelFunc

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]net.Conn
	sessions    atomic.Int64
}

// New creates a Server. It does not listen yet.
func New(cfg Config) (*Server, error) {
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = DefaultCloseTimeout
	}
	if (cfg.CertPath == "") != (cfg.KeyPath == "") {
		return nil, fmt.Errorf("certificate and key must be provided together")
	}

	var tlsConfig *tls.Config
	if cfg.TLS {
		var err error
		if cfg.CertPath != "" {
			tlsConfig, err = NewTLSConfig(cfg.CertPath, cfg.KeyPath)
		} else {
			tlsConfig, err = NewSelfSignedTLSConfig("localhost", "127.0.0.1", "::1")
		}
		if err != nil {
			return nil, err
		}
	}

	sessionCtx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:        cfg,
		tlsConfig:     tlsConfig,
		sessionCtx:    sessionCtx,
		cancelSession: cancel,
		activeConns:   make(map[string]net.Conn),
	}, nil
}

// Listen binds the listening socket.
func (s *Server) Listen() error {
	var (
		listener net.Listener
		err      error
	)
	if s.tlsConfig != nil {
		listener, err = tls.Listen("tcp", s.config.Addr, s.tlsConfig)
	} else {
		listener, err = net.Listen("tcp", s.config.Addr)
	}
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = listener

	logging.Info("Replay server listening",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("tls", s.tlsConfig != nil),
		zap.Int("steps", len(s.config.Steps)),
		zap.Float64("speed", s.config.Speed),
	)
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenAndServe is Listen followed by Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve accepts clients until ctx is cancelled, then shuts down, giving
// running replays up to CloseTimeout to finish.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("server: Serve called before Listen")
	}

	s.acceptDone = make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		defer close(s.acceptDone)
		errCh <- s.acceptConnections()
	}()

	select {
	case <-ctx.Done():
		logging.Info("Replay server shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.CloseTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errCh:
		s.cancelSession()
		return err
	}
}

func (s *Server) acceptConnections() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				logging.Warn("Temporary accept failure", zap.Error(err))
				continue
			}
			return fmt.Errorf("accept failed: %w", err)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()

	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		logging.LogConnection(remoteAddr, "connection_closed")
	}()

	logging.LogConnection(remoteAddr, "connection_accepted")
	_ = conn.SetDeadline(time.Now().Add(handshakeTimeout))

	if tlsConn, ok := conn.(*tls.Conn); ok {
		if err := tlsConn.HandshakeContext(s.sessionCtx); err != nil {
			logging.Error("TLS handshake failed", zap.String("remote_addr", remoteAddr), zap.Error(err))
			return
		}
		logging.LogTLSHandshake(remoteAddr, tlsConn.ConnectionState())
	}

	br := bufio.NewReader(conn)
	req, err := ReadHTTPRequest(br)
	if err != nil {
		logging.Error("Failed to read HTTP request", zap.String("remote_addr", remoteAddr), zap.Error(err))
		return
	}
	LogHTTPRequestDetails(req, remoteAddr)

	if err := ValidateWebSocketUpgradeRequest(req); err != nil {
		logging.Warn("Invalid WebSocket upgrade request", zap.String("remote_addr", remoteAddr), zap.Error(err))
		_ = WriteHTTPError(conn, http.StatusBadRequest, err.Error())
		return
	}
	if err := WriteHTTP101Response(conn, req.Header.Get("Sec-WebSocket-Key")); err != nil {
		logging.Error("Failed to send HTTP 101 response", zap.String("remote_addr", remoteAddr), zap.Error(err))
		return
	}
	logging.LogUpgrade(remoteAddr, req.RequestURI, "101 Switching Protocols")
	_ = conn.SetDeadline(time.Time{})

	s.sessions.Add(1)
	sess := &session{
		conn:         conn,
		r:            br,
		remoteAddr:   remoteAddr,
		steps:        s.config.Steps,
		speed:        s.config.Speed,
		closeTimeout: s.config.CloseTimeout,
		recorder:     s.config.Recorder,
	}
	if err := sess.run(s.sessionCtx); err != nil {
		logging.Warn("Replay session ended with error", zap.String("remote_addr", remoteAddr), zap.Error(err))
		return
	}
	logging.Info("Replay session finished",
		zap.String("remote_addr", remoteAddr),
		zap.Int("sent", sess.sent),
		zap.Int64("received", sess.received.Load()),
	)
}

// Shutdown stops accepting clients and waits for running replays. When ctx
// expires first, the replays are cancelled and their connections closed.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}
	if s.acceptDone != nil {
		<-s.acceptDone
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All replay sessions finished")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, closing active connections")
		s.cancelSession()
		s.mu.Lock()
		for addr, conn := range s.activeConns {
			logging.Info("Closing active connection", zap.String("remote_addr", addr))
			_ = conn.Close()
		}
		s.mu.Unlock()
		<-done
	}

	s.cancelSession()
	return nil
}

// GetActiveConnections returns the number of connected clients.
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// Sessions returns how many clients completed the Upgrade so far.
func (s *Server) Sessions() int {
	return int(s.sessions.Load())
}
