package nado

import (
	"encoding/json"
	"strings"
)

// X18 is an 18-decimal fixed-point integer as sent by the gateway. It
// accepts both JSON strings and bare numbers.
type X18 string

func (x *X18) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*x = ""
		return nil
	}
	*x = X18(strings.Trim(s, `"`))
	return nil
}

// envelope is the response wrapper for every query and execute call.
type envelope struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	ErrorCode int             `json:"error_code"`
}

// SymbolInfo is one entry of the symbols query.
type SymbolInfo struct {
	ProductID int64  `json:"product_id"`
	Symbol    string `json:"symbol"`
	Type      string `json:"type"`
}

// SymbolsResponse is the data of the symbols query.
type SymbolsResponse struct {
	Symbols map[string]SymbolInfo `json:"symbols"`
}

// PerpProduct is the subset of all_products used here.
type PerpProduct struct {
	ProductID      int64 `json:"product_id"`
	OraclePriceX18 X18   `json:"oracle_price_x18"`
}

// AllProducts is the data of the all_products query.
type AllProducts struct {
	SpotProducts []json.RawMessage `json:"spot_products"`
	PerpProducts []PerpProduct     `json:"perp_products"`
}

// MarketPrice is the top of book for one product.
type MarketPrice struct {
	ProductID int64 `json:"product_id"`
	BidX18    X18   `json:"bid_x18"`
	AskX18    X18   `json:"ask_x18"`
}

// MarketLiquidity is the depth query result. Each level is [priceX18, sizeX18].
type MarketLiquidity struct {
	Bids      [][2]X18 `json:"bids"`
	Asks      [][2]X18 `json:"asks"`
	Timestamp X18      `json:"timestamp"`
}

// Balance is a signed position amount.
type Balance struct {
	Amount        X18 `json:"amount"`
	VQuoteBalance X18 `json:"v_quote_balance"`
}

// PerpBalance is one perp position of a subaccount.
type PerpBalance struct {
	ProductID int64   `json:"product_id"`
	Balance   Balance `json:"balance"`
}

// SubaccountInfo is the subaccount_info query result.
type SubaccountInfo struct {
	Subaccount   string            `json:"subaccount"`
	Exists       bool              `json:"exists"`
	PerpBalances []PerpBalance     `json:"perp_balances"`
	SpotBalances []json.RawMessage `json:"spot_balances"`
}

// IsolatedPosition is one isolated-margin position.
type IsolatedPosition struct {
	Subaccount string      `json:"subaccount"`
	BaseBal    PerpBalance `json:"base_balance"`
}

// IsolatedPositions is the isolated_positions query result.
type IsolatedPositions struct {
	IsolatedPositions []IsolatedPosition `json:"isolated_positions"`
}

// OrderInfo is a resting order as reported by the gateway.
type OrderInfo struct {
	ProductID      int64  `json:"product_id"`
	Sender         string `json:"sender"`
	PriceX18       X18    `json:"price_x18"`
	Amount         X18    `json:"amount"`
	Expiration     X18    `json:"expiration"`
	Nonce          X18    `json:"nonce"`
	UnfilledAmount X18    `json:"unfilled_amount"`
	Digest         string `json:"digest"`
	PlacedAt       int64  `json:"placed_at"`
	Appendix       X18    `json:"appendix"`
}

// SubaccountOrders is the subaccount_orders query result.
type SubaccountOrders struct {
	Sender    string      `json:"sender"`
	ProductID int64       `json:"product_id"`
	Orders    []OrderInfo `json:"orders"`
}

// FeeRates is the fee_rates query result; rates are X18 fractions indexed by
// product id.
type FeeRates struct {
	TakerFeeRatesX18 []X18 `json:"taker_fee_rates_x18"`
	MakerFeeRatesX18 []X18 `json:"maker_fee_rates_x18"`
}

// OrderTx is the signed order body. Every numeric field is a base-10
// integer string.
type OrderTx struct {
	Sender     string `json:"sender"`
	PriceX18   string `json:"priceX18"`
	Amount     string `json:"amount"`
	Expiration string `json:"expiration"`
	Nonce      string `json:"nonce"`
	Appendix   string `json:"appendix"`
}

// CancelOrdersTx cancels specific orders by digest.
type CancelOrdersTx struct {
	Sender     string   `json:"sender"`
	ProductIDs []int64  `json:"productIds"`
	Digests    []string `json:"digests"`
	Nonce      string   `json:"nonce"`
}

// CancelProductOrdersTx cancels every order of the sender on the products.
type CancelProductOrdersTx struct {
	Sender     string  `json:"sender"`
	ProductIDs []int64 `json:"productIds"`
	Nonce      string  `json:"nonce"`
}

type placeOrderRequest struct {
	PlaceOrder placeOrderBody `json:"place_order"`
}

type placeOrderBody struct {
	ProductID    int64   `json:"product_id"`
	Order        OrderTx `json:"order"`
	Signature    string  `json:"signature"`
	SpotLeverage *bool   `json:"spot_leverage"`
	BorrowMargin *bool   `json:"borrow_margin"`
}

type cancelOrdersRequest struct {
	CancelOrders signedTx[CancelOrdersTx] `json:"cancel_orders"`
}

type cancelProductOrdersRequest struct {
	CancelProductOrders signedTx[CancelProductOrdersTx] `json:"cancel_product_orders"`
}

type signedTx[T any] struct {
	Tx        T      `json:"tx"`
	Signature string `json:"signature"`
}

// PlaceOrderResult is returned for an accepted order.
type PlaceOrderResult struct {
	Digest string  `json:"digest"`
	Nonce  string  `json:"-"`
	Order  OrderTx `json:"-"`
}

// CancelResult lists the orders the gateway cancelled.
type CancelResult struct {
	CancelledOrders []OrderInfo `json:"cancelled_orders"`
}
