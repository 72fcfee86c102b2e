package execution

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	ierrors "fxtrader/internal/errors"
	"fxtrader/internal/schema"
	"fxtrader/pkg/exception"
	"fxtrader/pkg/oanda"
)

const (
	_defaultRequestTimeout = 15 * time.Second
	_clientTag             = "fxtrader"
)

// Broker places market orders through the OANDA v20 REST API.
type Broker struct {
	client    *http.Client
	baseURL   string
	accountID string
	token     string
	timeout   time.Duration
	newID     func() string
}

// BrokerOption customizes a Broker.
type BrokerOption func(*Broker)

// WithBaseURL overrides the REST endpoint chosen by domain.
func WithBaseURL(url string) BrokerOption {
	return func(b *Broker) {
		if url != "" {
			b.baseURL = url
		}
	}
}

// WithTimeout bounds each order request.
func WithTimeout(d time.Duration) BrokerOption {
	return func(b *Broker) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// NewBroker builds a broker sink for domain "practice" or "live".
func NewBroker(client *http.Client, domain, accountID, token string, opts ...BrokerOption) *Broker {
	if client == nil {
		client = http.DefaultClient
	}
	b := &Broker{
		client:    client,
		baseURL:   oanda.RESTURL(domain),
		accountID: accountID,
		token:     token,
		timeout:   _defaultRequestTimeout,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// marketOrder maps an order to the v20 request body.
func (b *Broker) marketOrder(order schema.Order) oanda.MarketOrderRequest {
	return oanda.MarketOrderRequest{
		Order: oanda.MarketOrder{
			Type:         "MARKET",
			Instrument:   order.Instrument.OANDA(),
			Units:        strconv.FormatInt(order.Units, 10),
			TimeInForce:  "FOK",
			PositionFill: "DEFAULT",
			ClientExtensions: &oanda.ClientExtensions{
				ID:  b.newID(),
				Tag: _clientTag,
			},
		},
	}
}

func (b *Broker) Submit(ctx context.Context, order schema.Order) error {
	if order.OrderKind != schema.OrderMarket {
		return ierrors.Wrapf(exception.ErrOrderUnsupportedType, "kind %s", order.OrderKind)
	}
	if order.Units == 0 {
		return ierrors.Wrapf(exception.ErrOrderInvalidRequest, "order for %s has no units", order.Instrument)
	}

	body := b.marketOrder(order)
	payload, err := sonic.ConfigFastest.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal order")
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+oanda.OrdersPath(b.accountID), bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "new order request")
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Authorization", "Bearer "+b.token)

	resp, err := b.client.Do(r)
	if err != nil {
		return ierrors.Wrapf(exception.ErrOrderRequestNotSent, "send order for %s: %v", order.Instrument, err)
	}
	defer resp.Body.Close()

	var data oanda.OrderResponse
	decodeErr := sonic.ConfigFastest.NewDecoder(resp.Body).Decode(&data)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ierrors.Wrapf(exception.ErrOrderResponseStatus, "status: %d, code: %s, message: %s", resp.StatusCode, data.ErrorCode, data.ErrorMessage)
	}

	if decodeErr != nil && decodeErr != io.EOF {
		return errors.Wrap(decodeErr, "decode order response").With("status", resp.StatusCode)
	}

	id := ""
	if data.OrderCreateTransaction != nil {
		id = data.OrderCreateTransaction.ID
	}
	logs.Infof("order placed, id: %s, client id: %s, instrument: %s, units: %d",
		id, body.Order.ClientExtensions.ID, order.Instrument, order.Units)
	if data.OrderCancelTransaction != nil {
		logs.Errorf("order %s cancelled by broker, reason: %s", id, data.OrderCancelTransaction.Reason)
	}
	return nil
}
