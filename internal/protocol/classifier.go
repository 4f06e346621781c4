package protocol

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/holtholcomb/tvstream/internal/config"
)

// rule maps a structural predicate to a kind. Rules are evaluated in order and
// the first match wins, so order matters where predicates overlap (a hello that
// also carries "m" is still a hello).
type rule struct {
	kind  MessageKind
	match func(v gjson.Result) bool
}

// Classifier turns raw sub-messages into Messages.
type Classifier struct {
	rules      []rule
	seriesPath string
	studyPath  string
}

// NewClassifier builds the rule table. Series and study update paths are keyed
// by the session's own series and study ids.
func NewClassifier(ids config.SessionIDs) *Classifier {
	seriesPath := "p.1." + escapePathComponent(ids.Series) + ".s"
	studyPath := "p.1." + escapePathComponent(ids.Study) + ".st"

	return &Classifier{
		seriesPath: seriesPath,
		studyPath:  studyPath,
		rules: []rule{
			{KindServerHello, hasPath("release")},
			{KindProtocolError, methodIs("protocol_error")},
			{KindStudyError, methodIs("study_error")},
			{KindCriticalError, methodIs("critical_error")},
			{KindQuoteCompleted, methodIs("quote_completed")},
			{KindSeriesLoading, methodIs("series_loading")},
			{KindSymbolResolved, methodIs("symbol_resolved")},
			{KindTimescaleUpdate, methodIs("timescale_update")},
			{KindSeriesCompleted, methodIs("series_completed")},
			{KindStudyCompleted, methodIs("study_completed")},
			{KindStudyLoading, methodIs("study_loading")},
			{KindQuoteBidAsk, hasPath("p.1.v.bid_size")},
			{KindQuoteDescription, hasPath("p.1.v.description")},
			{KindQuoteLocalPopularity, hasPath("p.1.v.local_popularity")},
			{KindQuoteLastPriceTime, hasPath("p.1.v.lp_time")},
			{KindQuoteLastPrice, hasPath("p.1.v.lp")},
			{KindSeriesDataUpdate, hasPath(seriesPath)},
			{KindStudyDataUpdate, hasPath(studyPath)},
		},
	}
}

// Classify classifies one sub-message.
//
// Pings and empty messages are recognised before any JSON parsing. Anything
// else must be valid JSON or a Parse error is returned. JSON that matches no
// rule comes back as KindUnclassified with a nil error; deciding whether that
// is fatal is up to the caller.
func (c *Classifier) Classify(raw string) (*Message, error) {
	if m := pingPattern.FindStringSubmatch(raw); m != nil {
		id, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			return nil, &Error{Type: ErrTypeParse, Message: "ping id out of range", Raw: raw, Err: err}
		}
		return &Message{Kind: KindPing, Raw: raw, PingID: id}, nil
	}

	if raw == "" {
		return &Message{Kind: KindEmpty}, nil
	}

	if !gjson.Valid(raw) {
		return nil, &Error{Type: ErrTypeParse, Message: "sub-message is not valid JSON", Raw: raw}
	}

	v := gjson.Parse(raw)
	msg := &Message{
		Kind:       KindUnclassified,
		Raw:        raw,
		value:      v,
		seriesPath: c.seriesPath,
		studyPath:  c.studyPath,
	}
	if m := v.Get("m"); m.Type == gjson.String {
		msg.Method = m.Str
	}

	for _, r := range c.rules {
		if r.match(v) {
			msg.Kind = r.kind
			break
		}
	}
	return msg, nil
}

func hasPath(path string) func(gjson.Result) bool {
	return func(v gjson.Result) bool {
		return v.Get(path).Exists()
	}
}

func methodIs(method string) func(gjson.Result) bool {
	return func(v gjson.Result) bool {
		m := v.Get("m")
		return m.Type == gjson.String && m.Str == method
	}
}

// escapePathComponent escapes everything but letters, digits and underscore so
// a session id is always read as a literal object key.
func escapePathComponent(s string) string {
	var b strings.Builder
	for _, r := range s {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
