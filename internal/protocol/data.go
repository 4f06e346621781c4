package protocol

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// QuoteUpdate is the body of a quote field update:
//
//	{"m":"qsd","p":["quote_session_id",{"n":"CRYPTO:BTCUSD","s":"ok","v":{"lp":37000.5}}]}
//
// Only the fields present in the update are set.
type QuoteUpdate struct {
	Session string    `mapstructure:"-"`
	Symbol  string    `mapstructure:"n"`
	Status  string    `mapstructure:"s"`
	Data    QuoteData `mapstructure:"v"`
}

// QuoteData holds the quote fields of one update.
type QuoteData struct {
	Price           *float64           `mapstructure:"lp"`
	PriceTime       *int64             `mapstructure:"lp_time"`
	Change          *float64           `mapstructure:"ch"`
	ChangePercent   *float64           `mapstructure:"chp"`
	Volume          *float64           `mapstructure:"volume"`
	Bid             *float64           `mapstructure:"bid"`
	Ask             *float64           `mapstructure:"ask"`
	BidSize         *float64           `mapstructure:"bid_size"`
	AskSize         *float64           `mapstructure:"ask_size"`
	Description     *string            `mapstructure:"description"`
	Exchange        *string            `mapstructure:"exchange"`
	CurrencyCode    *string            `mapstructure:"currency_code"`
	LocalPopularity map[string]float64 `mapstructure:"local_popularity"`
}

// Candle is one bar of the chart series.
type Candle struct {
	Index  int
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// StudyPoint is one plotted row of the attached study. Values excludes the
// leading timestamp.
type StudyPoint struct {
	Index  int
	Time   time.Time
	Values []float64
}

// row is the wire shape shared by series and study updates: {"i":0,"v":[...]}
type row struct {
	Index  int       `mapstructure:"i"`
	Values []float64 `mapstructure:"v"`
}

// Quote decodes a quote field update.
func (m *Message) Quote() (*QuoteUpdate, error) {
	if !m.Kind.IsQuoteFieldUpdate() {
		return nil, fmt.Errorf("message kind %s is not a quote update", m.Kind)
	}

	var q QuoteUpdate
	if err := decode(m.Get("p.1").Value(), &q); err != nil {
		return nil, fmt.Errorf("failed to decode quote update: %w", err)
	}
	q.Session = m.Get("p.0").String()
	return &q, nil
}

// SeriesBars decodes the candles carried by a series update or timescale
// update.
func (m *Message) SeriesBars() ([]Candle, error) {
	if m.Kind != KindSeriesDataUpdate && m.Kind != KindTimescaleUpdate {
		return nil, fmt.Errorf("message kind %s does not carry series data", m.Kind)
	}

	rows, err := m.rows(m.seriesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to decode series update: %w", err)
	}

	candles := make([]Candle, 0, len(rows))
	for _, r := range rows {
		if len(r.Values) < 5 {
			return nil, fmt.Errorf("series row %d has %d values, want at least 5", r.Index, len(r.Values))
		}
		c := Candle{
			Index: r.Index,
			Time:  unixSeconds(r.Values[0]),
			Open:  r.Values[1],
			High:  r.Values[2],
			Low:   r.Values[3],
			Close: r.Values[4],
		}
		if len(r.Values) > 5 {
			c.Volume = r.Values[5]
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// StudyPoints decodes the rows carried by a study update.
func (m *Message) StudyPoints() ([]StudyPoint, error) {
	if m.Kind != KindStudyDataUpdate {
		return nil, fmt.Errorf("message kind %s does not carry study data", m.Kind)
	}

	rows, err := m.rows(m.studyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to decode study update: %w", err)
	}

	points := make([]StudyPoint, 0, len(rows))
	for _, r := range rows {
		if len(r.Values) == 0 {
			continue
		}
		points = append(points, StudyPoint{
			Index:  r.Index,
			Time:   unixSeconds(r.Values[0]),
			Values: r.Values[1:],
		})
	}
	return points, nil
}

func (m *Message) rows(path string) ([]row, error) {
	v := m.Get(path)
	if !v.Exists() {
		return nil, nil
	}
	var rows []row
	if err := decode(v.Value(), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func decode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func unixSeconds(v float64) time.Time {
	sec := int64(v)
	nsec := int64((v - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}
