package feed

import (
	"context"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	ierrors "fxtrader/internal/errors"
	"fxtrader/internal/schema"
	"fxtrader/pkg/exception"
	"fxtrader/pkg/oanda"
)

// WebSocket reads v20 price messages from a websocket relay.
type WebSocket struct {
	wss    *ws.WebSocket
	pairs  []schema.Instrument
	quotes Quotes
	bus    Publisher
}

type wsSubscribeRequest struct {
	Method      string   `json:"method"`
	Instruments []string `json:"instruments"`
	ID          int64    `json:"id"`
}

type wsSubscribeResponse struct {
	ID     int64 `json:"id"`
	Result any   `json:"result"`
}

func NewWebSocket(ctx context.Context, url string, pairs []schema.Instrument, quotes Quotes, bus Publisher) *WebSocket {
	return &WebSocket{
		wss:    ws.New(ctx, url),
		pairs:  pairs,
		quotes: quotes,
		bus:    bus,
	}
}

func (w *WebSocket) Close() {
	w.wss.Close()
}

func (w *WebSocket) subscribe(ctx context.Context) error {
	names := make([]string, 0, len(w.pairs))
	for _, p := range w.pairs {
		names = append(names, p.OANDA())
	}

	return w.wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, conn *ws.WebSocket) error {
			payload := wsSubscribeRequest{Method: "SUBSCRIBE", Instruments: names, ID: 1}
			if err := conn.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}
			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			var resp wsSubscribeResponse
			if err := m.Unmarshal(&resp); err != nil || resp.ID != 1 {
				return false, nil
			}
			if resp.Result != nil {
				return false, errors.Errorf("subscribe and wait, err: %+v", resp.Result)
			}
			return true, nil
		},
	}, true)
}

// Run connects, subscribes and publishes ticks until ctx is done or the
// socket closes.
func (w *WebSocket) Run(ctx context.Context) error {
	if err := w.wss.Start(ctx); err != nil {
		return ierrors.Wrapf(exception.ErrConnectionFailure, "start wss: %v", err)
	}
	defer w.wss.Close()

	if err := w.subscribe(ctx); err != nil {
		return ierrors.Wrapf(exception.ErrConnectionFailure, "subscribe: %v", err)
	}
	logs.Infof("websocket price feed subscribed, pairs: %v", w.pairs)

	ch, cancel := w.wss.Subscribe()
	defer cancel()

	for {
		select {
		case <-sys.Shutdown():
			return nil
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return ierrors.Wrap(exception.ErrStreamTerminated, "websocket closed")
			}

			msg, ok := ws.ReadMessage[oanda.PriceMessage](m)
			if !ok {
				continue
			}
			tick, ok, err := ParsePrice(msg)
			if err != nil {
				logs.Errorf("parse price message, instrument: %s, err: %+v", msg.Instrument, err)
				continue
			}
			if !ok {
				continue
			}
			if err := publishTick(ctx, w.quotes, w.bus, tick); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}
