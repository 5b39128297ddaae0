package exchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"mbostrength-go/internal/signal"
)

// ErrOffStep is returned when a price is not a whole multiple of the price step.
var ErrOffStep = errors.New("price not on step")

// wireEvent is the JSON shape shared by the websocket and replay providers.
type wireEvent struct {
	Type  string          `json:"type"`
	ID    string          `json:"id,omitempty"`
	Side  string          `json:"side,omitempty"`
	Price decimal.Decimal `json:"price"`
	Size  int             `json:"size"`
	Ts    int64           `json:"ts,omitempty"` // unix millis
}

// PriceToTicks converts a venue price into integer tick units.
func PriceToTicks(price, step decimal.Decimal) (int, error) {
	q := price.Div(step)
	if !q.Equal(q.Truncate(0)) {
		return 0, fmt.Errorf("%s / %s: %w", price, step, ErrOffStep)
	}
	return int(q.IntPart()), nil
}

// DecodeEvent parses one JSON message into an event with tick-unit prices.
func DecodeEvent(data []byte, step decimal.Decimal) (signal.Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return signal.Event{}, fmt.Errorf("decode event: %w", err)
	}
	ev := signal.Event{
		Type:    signal.EventType(strings.ToLower(w.Type)),
		OrderID: w.ID,
		Size:    w.Size,
		Ts:      time.UnixMilli(w.Ts),
	}
	if w.Ts == 0 {
		ev.Ts = time.Now()
	}

	switch ev.Type {
	case signal.Trade:
		ev.TradePrice = w.Price.Div(step).InexactFloat64()
		return ev, nil
	case signal.OrderSend:
		side, ok := signal.ParseSide(w.Side)
		if !ok {
			return signal.Event{}, fmt.Errorf("decode event %s: bad side %q", w.ID, w.Side)
		}
		ev.Side = side
	case signal.OrderReplace:
	case signal.OrderCancel:
		return requireID(ev)
	default:
		return signal.Event{}, fmt.Errorf("decode event: unknown type %q", w.Type)
	}

	px, err := PriceToTicks(w.Price, step)
	if err != nil {
		return signal.Event{}, fmt.Errorf("decode event %s: %w", w.ID, err)
	}
	ev.Price = px
	return requireID(ev)
}

func requireID(ev signal.Event) (signal.Event, error) {
	if ev.OrderID == "" {
		return signal.Event{}, fmt.Errorf("decode event: %s without id", ev.Type)
	}
	return ev, nil
}

// EncodeEvent renders an event back to the wire shape read by DecodeEvent.
func EncodeEvent(ev signal.Event, step decimal.Decimal) ([]byte, error) {
	w := wireEvent{
		Type: string(ev.Type),
		ID:   ev.OrderID,
		Size: ev.Size,
		Ts:   ev.Ts.UnixMilli(),
	}
	switch ev.Type {
	case signal.Trade:
		w.Price = decimal.NewFromFloat(ev.TradePrice).Mul(step)
	case signal.OrderSend:
		w.Side = ev.Side.String()
		w.Price = decimal.NewFromInt(int64(ev.Price)).Mul(step)
	case signal.OrderReplace:
		w.Price = decimal.NewFromInt(int64(ev.Price)).Mul(step)
	}
	return json.Marshal(w)
}
