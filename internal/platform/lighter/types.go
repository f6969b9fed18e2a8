// Package lighter is the REST client for the Lighter perpetuals venue.
// Orders and cancels are authorised with an EIP-191 personal_sign signature
// over a prefixed JSON rendering of the request.
package lighter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alanyoungcy/hedgebot/internal/domain"
)

// DefaultBaseURL is the mainnet REST root.
const DefaultBaseURL = "https://mainnet.zklighter.elliot.ai/api/v1"

var orderBookIDs = map[string]int64{
	"BTCUSD": 0,
	"ETHUSD": 1,
	"SOLUSD": 2,
}

// CoinToSymbol maps "btc" to "BTCUSD".
func CoinToSymbol(coin string) string {
	return strings.ToUpper(strings.TrimSpace(coin)) + "USD"
}

// OrderBookID returns the numeric book id for a symbol such as "BTCUSD".
func OrderBookID(symbol string) (int64, error) {
	id, ok := orderBookIDs[strings.ToUpper(symbol)]
	if !ok {
		return 0, fmt.Errorf("%w: unknown lighter symbol %q", domain.ErrConfiguration, symbol)
	}
	return id, nil
}

// SymbolOf returns the symbol for an order book id.
func SymbolOf(orderBookID int64) (string, bool) {
	for sym, id := range orderBookIDs {
		if id == orderBookID {
			return sym, true
		}
	}
	return "", false
}

// SupportedSymbols lists the known order books.
func SupportedSymbols() []string {
	return []string{"BTCUSD", "ETHUSD", "SOLUSD"}
}

// Side and OrderType are the numeric wire enums.
const (
	SideBuy  = 0
	SideSell = 1

	OrderTypeLimit  = 0
	OrderTypeMarket = 1
)

// OrderBook is the /order_book response. Levels are [price, size] decimal
// strings, best first.
type OrderBook struct {
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
}

// orderData is the signed part of an order. Field order is the signing
// order: the message is "Order: " + json(orderData).
type orderData struct {
	OrderBookID int64  `json:"order_book_id"`
	AccountIdx  int64  `json:"account_index"`
	APIKeyIdx   int64  `json:"api_key_index"`
	Side        int    `json:"side"`
	OrderType   int    `json:"order_type"`
	Amount      string `json:"amount"`
	Recipient   string `json:"recipient"`
	ReduceOnly  bool   `json:"reduce_only"`
	Price       string `json:"price,omitempty"`
}

type signedOrder struct {
	orderData
	Signature string `json:"signature"`
}

// cancelData is the signed part of a cancel: "Cancel: " + json(cancelData).
type cancelData struct {
	AccountIdx int64  `json:"account_index"`
	APIKeyIdx  int64  `json:"api_key_index"`
	OrderID    string `json:"order_id"`
}

type signedCancel struct {
	cancelData
	Signature string `json:"signature"`
}

// OrderResponse is the reply to POST /order.
type OrderResponse struct {
	OrderID ID             `json:"order_id"`
	Status  string         `json:"status"`
	Raw     map[string]any `json:"-"`
}

// Position is one entry of GET /positions.
type Position struct {
	OrderBookID int64  `json:"order_book_id"`
	Size        string `json:"size"`
	EntryPrice  string `json:"entry_price"`
}

// Order is a venue order as returned by GET /order and GET /orders.
type Order struct {
	OrderID      ID     `json:"order_id"`
	OrderBookID  int64  `json:"order_book_id"`
	Side         int    `json:"side"`
	Price        string `json:"price"`
	Amount       string `json:"amount"`
	FilledAmount string `json:"filled_amount"`
	Status       string `json:"status"`
}

// Account is the GET /account response.
type Account struct {
	AccountIndex int64  `json:"account_index"`
	L1Address    string `json:"l1_address"`
	Collateral   string `json:"collateral"`
}

// ID tolerates numeric and string ids on the wire.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*id = ""
		return nil
	}
	*id = ID(strings.Trim(s, `"`))
	return nil
}

// decodeList accepts either a bare JSON array or an object wrapping it
// under key.
func decodeList[T any](raw []byte, key string) ([]T, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var out []T
		err := json.Unmarshal(raw, &out)
		return out, err
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	inner, ok := wrapped[key]
	if !ok {
		return nil, nil
	}
	var out []T
	err := json.Unmarshal(inner, &out)
	return out, err
}
