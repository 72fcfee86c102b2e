package oanda

// MarketOrderRequest is the body of POST /v3/accounts/{id}/orders.
type MarketOrderRequest struct {
	Order MarketOrder `json:"order"`
}

type MarketOrder struct {
	Type             string            `json:"type"`
	Instrument       string            `json:"instrument"`
	Units            string            `json:"units"`
	TimeInForce      string            `json:"timeInForce"`
	PositionFill     string            `json:"positionFill"`
	ClientExtensions *ClientExtensions `json:"clientExtensions,omitempty"`
}

type ClientExtensions struct {
	ID      string `json:"id"`
	Tag     string `json:"tag,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// OrderResponse carries the fields of a create order reply that are used.
type OrderResponse struct {
	OrderCreateTransaction *Transaction `json:"orderCreateTransaction,omitempty"`
	OrderFillTransaction   *Transaction `json:"orderFillTransaction,omitempty"`
	OrderCancelTransaction *Transaction `json:"orderCancelTransaction,omitempty"`
	LastTransactionID      string       `json:"lastTransactionID,omitempty"`
	ErrorCode              string       `json:"errorCode,omitempty"`
	ErrorMessage           string       `json:"errorMessage,omitempty"`
}

type Transaction struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Instrument string `json:"instrument,omitempty"`
	Units      string `json:"units,omitempty"`
	Price      string `json:"price,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// PriceMessage is one line of the pricing stream. Type is "PRICE" or
// "HEARTBEAT".
type PriceMessage struct {
	Type        string        `json:"type"`
	Instrument  string        `json:"instrument,omitempty"`
	Time        string        `json:"time"`
	Tradeable   bool          `json:"tradeable,omitempty"`
	Bids        []PriceBucket `json:"bids,omitempty"`
	Asks        []PriceBucket `json:"asks,omitempty"`
	CloseoutBid string        `json:"closeoutBid,omitempty"`
	CloseoutAsk string        `json:"closeoutAsk,omitempty"`
}

type PriceBucket struct {
	Price     string `json:"price"`
	Liquidity int64  `json:"liquidity"`
}

const (
	MessagePrice     = "PRICE"
	MessageHeartbeat = "HEARTBEAT"
)
