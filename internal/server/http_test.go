package server

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestValidateWebSocketUpgradeRequest(t *testing.T) {
	valid := func() *http.Request {
		req, _ := http.NewRequest(http.MethodGet, "http://localhost/socket.io/websocket", nil)
		req.Header.Set("Upgrade", "websocket")
		req.Header.Set("Connection", "keep-alive, Upgrade")
		req.Header.Set("Sec-WebSocket-Version", "13")
		req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
		return req
	}

	tests := []struct {
		name    string
		mutate  func(*http.Request)
		wantErr string
	}{
		{"valid", func(*http.Request) {}, ""},
		{"method", func(r *http.Request) { r.Method = http.MethodPost }, "invalid method"},
		{"upgrade", func(r *http.Request) { r.Header.Set("Upgrade", "h2c") }, "invalid Upgrade"},
		{"connection", func(r *http.Request) { r.Header.Set("Connection", "close") }, "invalid Connection"},
		{"version", func(r *http.Request) { r.Header.Set("Sec-WebSocket-Version", "8") }, "invalid Sec-WebSocket-Version"},
		{"key", func(r *http.Request) { r.Header.Del("Sec-WebSocket-Key") }, "missing Sec-WebSocket-Key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)
			err := ValidateWebSocketUpgradeRequest(req)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateWebSocketUpgradeRequest() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateWebSocketUpgradeRequest() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestWriteHTTP101Response(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTTP101Response(&buf, "dGhlIHNhbXBsZSBub25jZQ=="); err != nil {
		t.Fatalf("WriteHTTP101Response() error = %v", err)
	}
	want := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n" +
		"\r\n"
	if buf.String() != want {
		t.Errorf("response = %q, want %q", buf.String(), want)
	}
}

func TestGenerateSelfSigned(t *testing.T) {
	certPEM, keyPEM, err := GenerateSelfSigned([]string{"localhost", "127.0.0.1"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateSelfSigned() error = %v", err)
	}
	if !bytes.Contains(keyPEM, []byte("PRIVATE KEY")) {
		t.Errorf("key PEM = %q", keyPEM)
	}

	block, _ := pem.Decode(certPEM)
	if block == nil {
		t.Fatal("certificate is not PEM")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("ParseCertificate() error = %v", err)
	}
	if err := cert.VerifyHostname("localhost"); err != nil {
		t.Errorf("VerifyHostname(localhost) error = %v", err)
	}
	if err := cert.VerifyHostname("127.0.0.1"); err != nil {
		t.Errorf("VerifyHostname(127.0.0.1) error = %v", err)
	}
	if cert.NotAfter.Before(time.Now()) {
		t.Errorf("NotAfter = %v, want in the future", cert.NotAfter)
	}

	if _, _, err := GenerateSelfSigned(nil, time.Hour); err == nil {
		t.Error("GenerateSelfSigned(nil) error = nil, want error")
	}
}
