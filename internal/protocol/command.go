package protocol

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/holtholcomb/tvstream/internal/config"
)

// Outbound method names
const (
	MethodSetAuthToken       = "set_auth_token"
	MethodQuoteCreateSession = "quote_create_session"
	MethodQuoteSetFields     = "quote_set_fields"
	MethodQuoteAddSymbols    = "quote_add_symbols"
	MethodQuoteFastSymbols   = "quote_fast_symbols"
	MethodChartCreateSession = "chart_create_session"
	MethodResolveSymbol      = "resolve_symbol"
	MethodCreateSeries       = "create_series"
	MethodCreateStudy        = "create_study"
)

// Command is an outbound application command: a method name and a positional
// argument list. Argument order is fixed by the vendor protocol.
type Command struct {
	Method string `json:"m"`
	Params []any  `json:"p"`
}

// Encode serializes the command and wraps it in the ~m~<len>~m~ envelope.
func (c Command) Encode() (string, error) {
	data, err := marshalJSON(c)
	if err != nil {
		return "", &Error{Type: ErrTypeSerialization, Message: "failed to encode " + c.Method, Err: err}
	}
	return WrapEnvelope(data), nil
}

// EncodeCommands encodes a batch of commands, preserving order.
func EncodeCommands(cmds []Command) ([]string, error) {
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		s, err := c.Encode()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// BuildSetAuthToken authenticates the connection.
//
//	{"m":"set_auth_token","p":["unauthorized_user_token"]}
func BuildSetAuthToken(token string) Command {
	return Command{Method: MethodSetAuthToken, Params: []any{token}}
}

// BuildQuoteCreateSession opens a quote session named quoteSession.
func BuildQuoteCreateSession(quoteSession string) Command {
	return Command{Method: MethodQuoteCreateSession, Params: []any{quoteSession}}
}

// BuildQuoteSetFields selects the quote fields the server streams for the
// session. The fields follow the session id as separate positional arguments.
func BuildQuoteSetFields(quoteSession string, fields []string) Command {
	params := make([]any, 0, len(fields)+1)
	params = append(params, quoteSession)
	for _, f := range fields {
		params = append(params, f)
	}
	return Command{Method: MethodQuoteSetFields, Params: params}
}

// BuildQuoteAddSymbols adds a symbol to the quote session. symbolSpec is the
// "="-prefixed descriptor built by SymbolSpec.
func BuildQuoteAddSymbols(quoteSession, symbolSpec string) Command {
	return Command{Method: MethodQuoteAddSymbols, Params: []any{quoteSession, symbolSpec}}
}

// BuildQuoteFastSymbols marks symbols for fast (unthrottled) updates.
func BuildQuoteFastSymbols(quoteSession string, symbols []string) Command {
	params := make([]any, 0, len(symbols)+1)
	params = append(params, quoteSession)
	for _, s := range symbols {
		params = append(params, s)
	}
	return Command{Method: MethodQuoteFastSymbols, Params: params}
}

// BuildChartCreateSession opens a chart session. The trailing empty string is
// required by the server.
func BuildChartCreateSession(chartSession string) Command {
	return Command{Method: MethodChartCreateSession, Params: []any{chartSession, ""}}
}

// BuildResolveSymbol binds symbolID on the chart session to a symbol.
func BuildResolveSymbol(chartSession, symbolID, symbolSpec string) Command {
	return Command{Method: MethodResolveSymbol, Params: []any{chartSession, symbolID, symbolSpec}}
}

// BuildCreateSeries creates the candle series.
//
// Parameters:
//   - chartSession: chart session id
//   - seriesID: id under which series updates arrive
//   - parentID: id the study is attached to
//   - symbolID: resolved symbol id
//   - interval: candle interval, "1" is one minute
//   - lookback: number of historical candles
//
// The last positional argument is always an empty string.
func BuildCreateSeries(chartSession, seriesID, parentID, symbolID, interval string, lookback int) Command {
	return Command{
		Method: MethodCreateSeries,
		Params: []any{chartSession, seriesID, parentID, symbolID, interval, lookback, ""},
	}
}

// BuildCreateStudy attaches an indicator script to the series.
//
// The final argument is an object holding the script text, pine id and
// version, plus one {"v","f","t"} object per input keyed by input name.
func BuildCreateStudy(chartSession, studyID, parentID, seriesID string, study config.StudyAttachment) Command {
	spec := map[string]any{
		"text":        study.Text,
		"pineId":      study.PineID,
		"pineVersion": study.PineVersion,
	}
	for _, in := range study.Inputs {
		spec[in.Name] = map[string]any{
			"v": in.Value,
			"f": in.Fixed,
			"t": in.Type,
		}
	}
	return Command{
		Method: MethodCreateStudy,
		Params: []any{chartSession, studyID, parentID, seriesID, study.Script, spec},
	}
}

// SymbolSpec returns the symbol descriptor used by quote_add_symbols and
// resolve_symbol, in the exact spacing the web client sends:
//
//	={"session":"regular", "symbol": "CRYPTO:BTCUSD"}
func SymbolSpec(symbol, marketSession string) string {
	return `={"session":` + quoteJSON(marketSession) + `, "symbol": ` + quoteJSON(symbol) + `}`
}

// BootstrapSequence returns the session setup commands sent once after the
// server hello, in wire order.
func BootstrapSequence(s config.Session) []Command {
	spec := SymbolSpec(s.Symbol, s.MarketSession)
	return []Command{
		BuildSetAuthToken(s.AuthToken),
		BuildQuoteCreateSession(s.IDs.Quote),
		BuildQuoteSetFields(s.IDs.Quote, s.Quote.Fields),
		BuildQuoteAddSymbols(s.IDs.Quote, spec),
		BuildQuoteFastSymbols(s.IDs.Quote, s.Quote.FastSymbols),
		BuildChartCreateSession(s.IDs.Chart),
		BuildResolveSymbol(s.IDs.Chart, s.IDs.Symbol, spec),
		BuildCreateSeries(s.IDs.Chart, s.IDs.Series, s.IDs.StudyParent, s.IDs.Symbol, s.Series.Interval, s.Series.Lookback),
		BuildCreateStudy(s.IDs.Chart, s.IDs.Study, s.IDs.StudyParent, s.IDs.Series, s.Study),
	}
}

// marshalJSON encodes v without HTML escaping and without the trailing newline
// json.Encoder adds.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func quoteJSON(s string) string {
	q, err := marshalJSON(s)
	if err != nil {
		// A Go string always encodes.
		return `""`
	}
	return q
}
