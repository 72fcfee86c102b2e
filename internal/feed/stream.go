package feed

import (
	"bufio"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	ierrors "fxtrader/internal/errors"
	"fxtrader/internal/schema"
	"fxtrader/pkg/exception"
	"fxtrader/pkg/fixed"
	"fxtrader/pkg/oanda"
)

const _maxStreamLine = 1 << 20

// Stream consumes the OANDA v20 pricing stream, one JSON message per line.
type Stream struct {
	client    *http.Client
	baseURL   string
	accountID string
	token     string
	pairs     []schema.Instrument
	quotes    Quotes
	bus       Publisher
}

// StreamOption customizes a Stream.
type StreamOption func(*Stream)

// WithStreamURL overrides the host chosen by domain.
func WithStreamURL(url string) StreamOption {
	return func(s *Stream) {
		if url != "" {
			s.baseURL = url
		}
	}
}

// NewStream builds a price stream for pairs. The http client must not set a
// total timeout, the response never ends on its own.
func NewStream(client *http.Client, domain, accountID, token string, pairs []schema.Instrument, quotes Quotes, bus Publisher, opts ...StreamOption) *Stream {
	if client == nil {
		client = http.DefaultClient
	}
	s := &Stream{
		client:    client,
		baseURL:   oanda.StreamURL(domain),
		accountID: accountID,
		token:     token,
		pairs:     pairs,
		quotes:    quotes,
		bus:       bus,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Stream) endpoint() string {
	names := make([]string, 0, len(s.pairs))
	for _, p := range s.pairs {
		names = append(names, p.OANDA())
	}
	q := url.Values{}
	q.Set("instruments", strings.Join(names, ","))
	return s.baseURL + oanda.PricingStreamPath(s.accountID) + "?" + q.Encode()
}

// Run reads the stream until ctx is done or the connection ends. Connection
// errors are returned without retry. A cancelled ctx returns nil.
func (s *Stream) Run(ctx context.Context) error {
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint(), nil)
	if err != nil {
		return errors.Wrap(err, "new stream request")
	}
	r.Header.Set("Authorization", "Bearer "+s.token)
	r.Header.Set("Accept-Datetime-Format", "RFC3339")

	resp, err := s.client.Do(r)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return ierrors.Wrapf(exception.ErrConnectionFailure, "connect %s: %v", s.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ierrors.Wrapf(exception.ErrConnectionFailure, "stream status %d", resp.StatusCode)
	}
	logs.Infof("price stream connected, pairs: %v", s.pairs)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), _maxStreamLine)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg oanda.PriceMessage
		if err := sonic.Unmarshal(line, &msg); err != nil {
			logs.Errorf("decode price message %q, err: %+v", line, err)
			continue
		}
		if err := s.handle(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	if err := scanner.Err(); err != nil {
		return ierrors.Wrapf(exception.ErrStreamTerminated, "read stream: %v", err)
	}
	return ierrors.Wrap(exception.ErrStreamTerminated, "stream closed by server")
}

func (s *Stream) handle(ctx context.Context, msg oanda.PriceMessage) error {
	tick, ok, err := ParsePrice(msg)
	if err != nil {
		logs.Errorf("parse price message, instrument: %s, err: %+v", msg.Instrument, err)
		return nil
	}
	if !ok {
		return nil
	}
	return publishTick(ctx, s.quotes, s.bus, tick)
}

// ParsePrice converts a PRICE message into a tick using the top of book.
// Heartbeats and messages without both sides report false.
func ParsePrice(msg oanda.PriceMessage) (schema.Tick, bool, error) {
	if msg.Type != oanda.MessagePrice || len(msg.Bids) == 0 || len(msg.Asks) == 0 {
		return schema.Tick{}, false, nil
	}
	instrument, err := schema.ParseInstrument(msg.Instrument)
	if err != nil {
		return schema.Tick{}, false, err
	}
	ts, err := time.Parse(time.RFC3339Nano, msg.Time)
	if err != nil {
		return schema.Tick{}, false, errors.Wrap(err, "parse time").With("time", msg.Time)
	}
	bid, err := decimal.NewFromString(msg.Bids[0].Price)
	if err != nil {
		return schema.Tick{}, false, errors.Wrap(err, "parse bid")
	}
	ask, err := decimal.NewFromString(msg.Asks[0].Price)
	if err != nil {
		return schema.Tick{}, false, errors.Wrap(err, "parse ask")
	}
	return schema.Tick{
		Instrument: instrument,
		Time:       ts.UTC(),
		Bid:        fixed.Price(bid),
		Ask:        fixed.Price(ask),
	}, true, nil
}

// publishTick writes the quote before the tick becomes visible on the bus.
func publishTick(ctx context.Context, quotes Quotes, bus Publisher, tick schema.Tick) error {
	if err := quotes.SetTick(tick); err != nil {
		logs.Errorf("set quote %s, err: %+v", tick, err)
		return nil
	}
	if err := bus.Publish(ctx, tick); err != nil {
		return errors.Wrap(err, "publish tick").With("instrument", tick.Instrument.String())
	}
	return nil
}
