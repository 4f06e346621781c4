package config

// Default endpoint of the vendor's real-time gateway.
const (
	DefaultHost   = "data.tradingview.com"
	DefaultPort   = 443
	DefaultPath   = "/socket.io/websocket?&type=chart"
	DefaultOrigin = "https://www.tradingview.com"
)

// DefaultQuoteFields is the list of quote fields requested by quote_set_fields.
// Order is preserved on the wire.
var DefaultQuoteFields = []string{
	"base-currency-logoid",
	"ch",
	"chp",
	"currency-logoid",
	"currency_code",
	"currency_id",
	"base_currency_id",
	"current_session",
	"description",
	"exchange",
	"format",
	"fractional",
	"is_tradable",
	"language",
	"local_description",
	"listed_exchange",
	"logoid",
	"lp",
	"lp_time",
	"minmov",
	"minmove2",
	"original_name",
	"pricescale",
	"pro_name",
	"short_name",
	"type",
	"typespecs",
	"update_mode",
	"volume",
	"value_unit_id",
	"rchp",
	"rtc",
	"country_code",
	"provider_id",
}

// defaultStudyText is the encoded script body of the published indicator
// attached by default.
const defaultStudyText = "OvVf/cLhRZ8QR5Vpxqne7w==_pKuthoDJLaA6sn40TmHddOk0SwJb9ct8cm5JeGz0a5O4YBeoFgtEgyKwwKcVk+KQMJV96wVs+ms71b8+nds3580VFsC3U3MQvGaF+Xidbsm/vP9HK+rGeR/2iTxMfDT+sRSuAcY4mm/u9CPgHlc/1U5QoLL0+qSxw6spC2g33HJDdjZkWojBpa50yH0oELcUqVKNbKFX/RFReEzTqpc0Moo10cw8IVnBIp5Fu1SPEM2AIASQaI58LmwDyNdo2d/Rqn3u7JyRqt+TYu+asL9NynYoLVtTem2BonOTknu7NoBkQI9GJgMdxE4+jU9efxZk8jOGgP9XQPWAhX5jmZJDefGl1s2c/09TM29lPzUTFJRyyfmtZShBdiP3BqRfYXzEr6vCNetnsebCenWWkQtDjQ80ZgBV+HB8rciWhB34jXZ/MA8sGtT1lbknJbX5koliQ/pDj4tYY3Mp6eon+jvVDO6EyxTNk/9tj5h8b1Jdqy1svNAfr5MF3TfksELRGkzKFLxPNQUZz+Cn60T7vP/Qi+HDM/mfwdiYkaLXSXDQ6VkDc+K8vxJkYWRWONghVnzbeqhCYn747OB0u0xWxs1O+D0KjRq9CEjgsRLmMDqg2KLrdGRGrEpNjwy6jb31SXDQLR+IdKgSD/O71iNXXcd3KGdDXQpi0c70NuaKdUEGWIpBRjp6tFOTGp8yJHkwFJPkic9yGVQRMbqTctqbGHbaxVNvbhZdnhkl2bkTh7wkDXsYjxt2jTtAYlwq6RoJmzlKBBj2VR894emRQyipvvAz6bjxnQZC8zqxR/BF7HnzLtVMIMr+0nE0Ol0TDDkpkMsAiM5zH4212LNyOU4obRzYhwCuOR8L+W3/+fDhOHg+tSseK+d4QrFkn+qFsVHqEpeVoyIQDm1wwHsFiqN6by4Du4LtxHMRuasSzajwmxQNOe+qbbALRtpiVMFL/BVdH0bk0r43mnMC3s9CHcDB2CMCk4TjZZwNfWmQVQGqprukCQJFtqNY+SnK26rYby9/a2WnbnRW6lLcazUfwQHf6wPHfLLlNYiAayuUsPZyNZGnwvBkFZK6GG2eYZYam2XurXk2uMZRusQVuw6nDPk1R6CKg+KILriNHp2b2TM2zb4jogmbrqug3nqGky8oM9n/1lIsht+Jm8GztD99g2j/7crHI6DgZ3Bu8LKdmm7t+cnsPBLLNncdnbQhow1WZTffmi0="

// DefaultProfile returns the session profile used when no file overrides it.
// It subscribes to CRYPTO:BTCUSD quotes and 1-minute candles and attaches the
// default published indicator.
func DefaultProfile() *Profile {
	fields := make([]string, len(DefaultQuoteFields))
	copy(fields, DefaultQuoteFields)

	return &Profile{
		Version: CurrentVersion,
		Endpoint: Endpoint{
			Host:   DefaultHost,
			Port:   DefaultPort,
			Path:   DefaultPath,
			Origin: DefaultOrigin,
			TLS:    true,
		},
		Session: Session{
			AuthToken:     "unauthorized_user_token",
			Symbol:        "CRYPTO:BTCUSD",
			MarketSession: "regular",
			IDs: SessionIDs{
				Quote:       "quote_session_id",
				Chart:       "chart_session_id",
				Symbol:      "symbol_id",
				Series:      "series_id",
				StudyParent: "study_parent_id",
				Study:       "study_id",
			},
			Quote: QuoteSubscription{
				FastSymbols: []string{"INDEX:BTCUSD"},
				Fields:      fields,
			},
			Series: SeriesSubscription{
				Interval: "1",
				Lookback: 300,
			},
			Study: StudyAttachment{
				Script:      "Script@tv-scripting-101!",
				PineID:      "PUB;N16MOYK6AEJGGAoy40axs0S48GRFYcNn",
				PineVersion: "1.0",
				Text:        defaultStudyText,
				Inputs: []StudyInput{
					{Name: "in_0", Value: 1, Fixed: true, Type: "integer"},
					{Name: "in_1", Value: "close", Fixed: true, Type: "source"},
					{Name: "in_2", Value: 7, Fixed: true, Type: "integer"},
					{Name: "in_3", Value: "close", Fixed: true, Type: "source"},
					{Name: "in_4", Value: 25, Fixed: true, Type: "integer"},
					{Name: "in_5", Value: 65, Fixed: true, Type: "integer"},
					{Name: "in_6", Value: 51, Fixed: true, Type: "integer"},
					{Name: "in_7", Value: 21, Fixed: true, Type: "integer"},
				},
			},
		},
		StrictClassification: true,
	}
}
