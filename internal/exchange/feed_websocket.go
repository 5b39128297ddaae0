package exchange

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/gorilla/websocket"

	"mbostrength-go/internal/metrics"
	"mbostrength-go/internal/signal"
)

func (f *Feed) runWebsocket(ctx context.Context, out chan<- signal.Event) error {
	if f.url == "" {
		return errors.New("websocket feed requires a url")
	}

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := f.consumeStream(ctx, out)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.log.Warn().Err(err).Str("url", f.url).Msg("market data feed disconnected, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
	}
}

func (f *Feed) consumeStream(ctx context.Context, out chan<- signal.Event) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if f.subscribe != "" {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(f.subscribe)); err != nil {
			return err
		}
	}
	f.log.Info().Str("provider", ProviderWebsocket).Str("symbol", f.symbol).Msg("connected market data feed")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	// unblock ReadMessage on shutdown
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deadline := time.Now().Add(5 * time.Second)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					f.log.Warn().Err(err).Msg("feed ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		ev, err := DecodeEvent(message, f.priceStep)
		if err != nil {
			metrics.EventsRejected.WithLabelValues("decode").Inc()
			f.log.Warn().Err(err).Msg("failed to decode feed message")
			continue
		}
		if err := emit(ctx, out, ev); err != nil {
			return err
		}
	}
}
