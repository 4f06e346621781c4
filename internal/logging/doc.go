// Package logging provides structured logging for the streaming client.
//
// This package wraps a global zap logger with convenience functions for the
// logging patterns used across the transport, protocol engine and CLI.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Frame contents, hex dumps, ping replies
//   - Info: Connection lifecycle, bootstrap, state changes
//   - Warn: Skipped messages, repeated hello, sink failures
//   - Error: Fatal protocol or transport errors
//
// Logging is silent unless a level is given explicitly or through the
// TVSTREAM_LOG_LEVEL environment variable.
//
// # Structured Logging
//
// All log functions use structured fields:
//
//	logging.Info("Server hello received, bootstrapping session",
//	    zap.Int("commands", 9),
//	)
//
// # Specialized Logging
//
// Connection Logging:
//
//	logging.LogConnection(remoteAddr, "tcp_connected")
//	logging.LogTLSHandshake(remoteAddr, conn.ConnectionState())
//	logging.LogUpgrade(remoteAddr, path, "101 Switching Protocols")
//
// Frame Logging (debug level only):
//
//	logging.LogFrame(remoteAddr, "received", "text", payload)
//	logging.LogRawBytes("Upgrade request", request)
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Output Format
//
// Logs are written to stderr, in console format by default or JSON with
// InitializeWithFormat, so that stdout carries only streamed data.
package logging
