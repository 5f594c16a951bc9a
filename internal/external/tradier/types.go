package tradier

import (
	"bytes"
	"encoding/json"
)

// oneOrMany decodes Tradier collections, which collapse to a bare object
// when they hold one element and to null when empty
type oneOrMany[T any] []T

func (m *oneOrMany[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = nil
		return nil
	}

	if b[0] == '[' {
		var many []T
		if err := json.Unmarshal(b, &many); err != nil {
			return err
		}
		*m = many
		return nil
	}

	var one T
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*m = []T{one}
	return nil
}

// Quote is a market quote
type Quote struct {
	Symbol    string   `json:"symbol"`
	Last      *float64 `json:"last"`
	Close     *float64 `json:"close"`
	PrevClose *float64 `json:"prevclose"`
	Volume    int64    `json:"volume"`
}

type quotesResponse struct {
	Quotes *struct {
		Quote oneOrMany[Quote] `json:"quote"`
	} `json:"quotes"`
}

// HistoryDay is one daily bar from /markets/history
type HistoryDay struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

type historyResponse struct {
	History *struct {
		Day oneOrMany[HistoryDay] `json:"day"`
	} `json:"history"`
}

type expirationsResponse struct {
	Expirations *struct {
		Date oneOrMany[string] `json:"date"`
	} `json:"expirations"`
}

// Greeks holds the option greeks; IVs are decimals (0.25 = 25%)
type Greeks struct {
	Delta float64 `json:"delta"`
	BidIV float64 `json:"bid_iv"`
	MidIV float64 `json:"mid_iv"`
	AskIV float64 `json:"ask_iv"`
}

// Option is one contract of an option chain
type Option struct {
	Symbol       string  `json:"symbol"`
	OptionType   string  `json:"option_type"`
	Strike       float64 `json:"strike"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	Volume       int64   `json:"volume"`
	OpenInterest int64   `json:"open_interest"`
	Greeks       *Greeks `json:"greeks"`
}

type chainResponse struct {
	Options *struct {
		Option oneOrMany[Option] `json:"option"`
	} `json:"options"`
}

// CalendarEvent is one corporate calendar entry
type CalendarEvent struct {
	BeginDate   string `json:"begin_date_time"`
	EndDate     string `json:"end_date_time"`
	EventType   int    `json:"event_type"`
	Event       string `json:"event"`
	EventStatus string `json:"event_status"`
}

type calendarResponse struct {
	Request string `json:"request"`
	Results []struct {
		Type   string `json:"type"`
		Tables struct {
			CorporateCalendars oneOrMany[CalendarEvent] `json:"corporate_calendars"`
		} `json:"tables"`
	} `json:"results"`
}
