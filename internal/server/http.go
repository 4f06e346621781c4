package server

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/holtholcomb/tvstream/internal/logging"
	"github.com/holtholcomb/tvstream/internal/transport"
)

// ReadHTTPRequest reads the Upgrade request head. Bytes past the head stay
// buffered in br.
func ReadHTTPRequest(br *bufio.Reader) (*http.Request, error) {
	req, err := http.ReadRequest(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read HTTP request: %w", err)
	}
	return req, nil
}

// ValidateWebSocketUpgradeRequest checks that req is a version 13 WebSocket
// Upgrade.
func ValidateWebSocketUpgradeRequest(req *http.Request) error {
	if req.Method != http.MethodGet {
		return fmt.Errorf("invalid method: %s (expected GET)", req.Method)
	}

	upgrade := strings.ToLower(req.Header.Get("Upgrade"))
	if upgrade != "websocket" {
		return fmt.Errorf("invalid Upgrade header: %q (expected websocket)", upgrade)
	}

	connection := strings.ToLower(req.Header.Get("Connection"))
	if !strings.Contains(connection, "upgrade") {
		return fmt.Errorf("invalid Connection header: %q (expected upgrade)", connection)
	}

	if v := req.Header.Get("Sec-WebSocket-Version"); v != "13" {
		return fmt.Errorf("invalid Sec-WebSocket-Version: %q (expected 13)", v)
	}

	if req.Header.Get("Sec-WebSocket-Key") == "" {
		return fmt.Errorf("missing Sec-WebSocket-Key header")
	}
	return nil
}

// WriteHTTP101Response completes the Upgrade for clientKey.
func WriteHTTP101Response(w io.Writer, clientKey string) error {
	response := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + transport.AcceptKey(clientKey) + "\r\n" +
		"\r\n"

	logging.LogRawBytes("HTTP 101 response", []byte(response))
	if _, err := io.WriteString(w, response); err != nil {
		return fmt.Errorf("failed to write HTTP 101 response: %w", err)
	}
	return nil
}

// WriteHTTPError rejects an Upgrade request with a plain-text status.
func WriteHTTPError(w io.Writer, status int, reason string) error {
	body := reason + "\n"
	response := fmt.Sprintf("HTTP/1.1 %d %s\r\nContent-Type: text/plain\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s",
		status, http.StatusText(status), len(body), body)
	_, err := io.WriteString(w, response)
	return err
}

// LogHTTPRequestDetails logs the Upgrade request at debug level.
func LogHTTPRequestDetails(req *http.Request, remoteAddr string) {
	logging.Debug("WebSocket upgrade request",
		zap.String("remote_addr", remoteAddr),
		zap.String("method", req.Method),
		zap.String("target", req.RequestURI),
		zap.String("host", req.Host),
		zap.String("origin", req.Header.Get("Origin")),
		zap.String("sec_websocket_key", req.Header.Get("Sec-WebSocket-Key")),
		zap.String("user_agent", req.Header.Get("User-Agent")),
	)
}
