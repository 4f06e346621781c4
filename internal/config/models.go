package config

import (
	"net"
	"strconv"
)

// CurrentVersion is the session profile format version.
const CurrentVersion = 1

// Profile is the whole session profile file.
// It describes where to connect and what the session subscribes to once the
// server has said hello.
type Profile struct {
	Version  int      `yaml:"version"`
	Endpoint Endpoint `yaml:"endpoint"`
	Session  Session  `yaml:"session"`

	// StrictClassification makes unknown message shapes fatal. When false
	// they are logged and skipped.
	StrictClassification bool `yaml:"strict_classification"`
}

// Endpoint is the gateway the client dials.
type Endpoint struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Path   string `yaml:"path"`   // Request target of the Upgrade request
	Origin string `yaml:"origin"` // Sent as the Origin header
	TLS    bool   `yaml:"tls"`
}

// Address returns host:port.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// URL returns the ws:// or wss:// URL of the endpoint, for display.
func (e Endpoint) URL() string {
	scheme := "ws"
	if e.TLS {
		scheme = "wss"
	}
	host := e.Host
	if (e.TLS && e.Port != 443) || (!e.TLS && e.Port != 80) {
		host = e.Address()
	}
	return scheme + "://" + host + e.Path
}

// Session is the static data emitted verbatim by the bootstrap sequence.
type Session struct {
	AuthToken     string             `yaml:"auth_token"`
	Symbol        string             `yaml:"symbol"`         // e.g. "CRYPTO:BTCUSD"
	MarketSession string             `yaml:"market_session"` // e.g. "regular"
	IDs           SessionIDs         `yaml:"ids"`
	Quote         QuoteSubscription  `yaml:"quote"`
	Series        SeriesSubscription `yaml:"series"`
	Study         StudyAttachment    `yaml:"study"`
}

// SessionIDs are the client-chosen tokens naming each server-side session.
// They are reused for the lifetime of the connection.
type SessionIDs struct {
	Quote       string `yaml:"quote"`
	Chart       string `yaml:"chart"`
	Symbol      string `yaml:"symbol"`
	Series      string `yaml:"series"`
	StudyParent string `yaml:"study_parent"`
	Study       string `yaml:"study"`
}

// QuoteSubscription configures the quote session.
type QuoteSubscription struct {
	FastSymbols []string `yaml:"fast_symbols"`
	Fields      []string `yaml:"fields"`
}

// SeriesSubscription configures the candle series on the chart session.
type SeriesSubscription struct {
	Interval string `yaml:"interval"` // Candle interval, "1" is one minute
	Lookback int    `yaml:"lookback"` // Number of historical candles
}

// StudyAttachment configures the indicator script attached to the series.
type StudyAttachment struct {
	Script      string       `yaml:"script"`
	PineID      string       `yaml:"pine_id"`
	PineVersion string       `yaml:"pine_version"`
	Text        string       `yaml:"text"`
	Inputs      []StudyInput `yaml:"inputs"`
}

// StudyInput is one script input. It is sent as {"v":..,"f":..,"t":..}
// under its name.
type StudyInput struct {
	Name  string `yaml:"name"`
	Value any    `yaml:"v"`
	Fixed bool   `yaml:"f"`
	Type  string `yaml:"t"`
}
