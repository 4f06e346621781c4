package protocol

import (
	"regexp"
	"strconv"
)

var (
	// envelopePattern delimits logical messages inside one frame payload.
	envelopePattern = regexp.MustCompile(`~m~\d+~m~`)

	// pingPattern matches a whole keep-alive sub-message.
	pingPattern = regexp.MustCompile(`^~h~(\d+)$`)
)

// SplitEnvelopes splits a decoded frame payload into its sub-messages.
//
// A payload starting with an envelope marker does not produce a leading
// empty segment. Any other empty segment (for example after a trailing
// marker) is kept and later classified as KindEmpty.
func SplitEnvelopes(payload string) []string {
	parts := envelopePattern.Split(payload, -1)
	if len(parts) > 1 && parts[0] == "" {
		parts = parts[1:]
	}
	return parts
}

// WrapEnvelope wraps one logical message as ~m~<byte length>~m~<message>.
func WrapEnvelope(message string) string {
	return "~m~" + strconv.Itoa(len(message)) + "~m~" + message
}

// PingReply returns the enveloped echo of a keep-alive ping.
func PingReply(id uint64) string {
	return WrapEnvelope("~h~" + strconv.FormatUint(id, 10))
}
