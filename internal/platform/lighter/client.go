package lighter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/hedgebot/internal/crypto"
	"github.com/alanyoungcy/hedgebot/internal/domain"
	"github.com/alanyoungcy/hedgebot/internal/numeric"
)

// Config configures a Client.
type Config struct {
	BaseURL      string
	AccountIndex int64
	APIKeyIndex  int64
	HTTPTimeout  time.Duration
}

// Client is the Lighter REST client. A Client without a signer can only
// read public market data.
type Client struct {
	baseURL    string
	account    int64
	apiKey     int64
	signer     crypto.PersonalSigner
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client. signer may be nil for read-only use.
func NewClient(cfg Config, signer crypto.PersonalSigner, logger *slog.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		account:    cfg.AccountIndex,
		apiKey:     cfg.APIKeyIndex,
		signer:     signer,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "lighter")),
	}
}

// OrderBook returns up to depth levels per side for symbol.
func (c *Client) OrderBook(ctx context.Context, symbol string, depth int) (OrderBook, error) {
	id, err := OrderBookID(symbol)
	if err != nil {
		return OrderBook{}, err
	}
	var out OrderBook
	err = c.get(ctx, "/order_book", url.Values{
		"order_book_id": {strconv.FormatInt(id, 10)},
		"depth":         {strconv.Itoa(depth)},
	}, &out)
	return out, err
}

// OrderParams describes one order. Price is ignored for market orders.
type OrderParams struct {
	Symbol     string
	Side       domain.OrderSide
	Market     bool
	Size       decimal.Decimal
	Price      decimal.Decimal
	ReduceOnly bool
}

// CreateOrder signs and submits an order.
func (c *Client) CreateOrder(ctx context.Context, p OrderParams) (OrderResponse, error) {
	if c.signer == nil {
		return OrderResponse{}, fmt.Errorf("%w: lighter client has no signing key", domain.ErrConfiguration)
	}
	id, err := OrderBookID(p.Symbol)
	if err != nil {
		return OrderResponse{}, err
	}

	data := orderData{
		OrderBookID: id,
		AccountIdx:  c.account,
		APIKeyIdx:   c.apiKey,
		Side:        SideBuy,
		OrderType:   OrderTypeLimit,
		Amount:      numeric.ToX18String(p.Size),
		Recipient:   c.signer.Address().Hex(),
		ReduceOnly:  p.ReduceOnly,
	}
	if p.Side == domain.OrderSideSell {
		data.Side = SideSell
	}
	if p.Market {
		data.OrderType = OrderTypeMarket
	} else {
		data.Price = numeric.ToX18String(p.Price)
	}

	sig, err := c.sign(ctx, "Order: ", data)
	if err != nil {
		return OrderResponse{}, err
	}

	c.logger.DebugContext(ctx, "placing order",
		slog.String("symbol", p.Symbol),
		slog.String("side", string(p.Side)),
		slog.String("amount", data.Amount),
		slog.String("price", data.Price),
	)

	raw, err := c.post(ctx, "create_order", "/order", signedOrder{orderData: data, Signature: sig})
	if err != nil {
		return OrderResponse{}, err
	}
	var out OrderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return OrderResponse{}, &domain.SubmissionError{
			Venue: domain.VenueLighter, Op: "create_order", Body: string(raw),
			Err: fmt.Errorf("decode response: %w", err),
		}
	}
	_ = json.Unmarshal(raw, &out.Raw)
	return out, nil
}

// CancelOrder signs and submits a cancel for orderID.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if c.signer == nil {
		return fmt.Errorf("%w: lighter client has no signing key", domain.ErrConfiguration)
	}
	data := cancelData{AccountIdx: c.account, APIKeyIdx: c.apiKey, OrderID: orderID}
	sig, err := c.sign(ctx, "Cancel: ", data)
	if err != nil {
		return err
	}
	_, err = c.post(ctx, "cancel_order", "/cancel", signedCancel{cancelData: data, Signature: sig})
	return err
}

// Positions returns the account's positions.
func (c *Client) Positions(ctx context.Context) ([]Position, error) {
	raw, err := c.getRaw(ctx, "/positions", url.Values{"account_index": {strconv.FormatInt(c.account, 10)}})
	if err != nil {
		return nil, err
	}
	out, err := decodeList[Position](raw, "positions")
	if err != nil {
		return nil, fmt.Errorf("lighter: decode positions: %w", err)
	}
	return out, nil
}

// Position returns the signed position size on symbol (zero if none).
func (c *Client) Position(ctx context.Context, symbol string) (decimal.Decimal, error) {
	id, err := OrderBookID(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	positions, err := c.Positions(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	for _, p := range positions {
		if p.OrderBookID == id {
			return numeric.ParseDecimal(p.Size)
		}
	}
	return decimal.Zero, nil
}

// Order looks up one order.
func (c *Client) Order(ctx context.Context, orderID string) (Order, error) {
	var out Order
	err := c.get(ctx, "/order", url.Values{"order_id": {orderID}}, &out)
	return out, err
}

// Orders lists the account's orders, optionally restricted to symbol.
func (c *Client) Orders(ctx context.Context, symbol string) ([]Order, error) {
	params := url.Values{"account_index": {strconv.FormatInt(c.account, 10)}}
	if symbol != "" {
		id, err := OrderBookID(symbol)
		if err != nil {
			return nil, err
		}
		params.Set("order_book_id", strconv.FormatInt(id, 10))
	}
	raw, err := c.getRaw(ctx, "/orders", params)
	if err != nil {
		return nil, err
	}
	out, err := decodeList[Order](raw, "orders")
	if err != nil {
		return nil, fmt.Errorf("lighter: decode orders: %w", err)
	}
	return out, nil
}

// Account looks the account up by the signer's L1 address.
func (c *Client) Account(ctx context.Context) (Account, error) {
	if c.signer == nil {
		return Account{}, fmt.Errorf("%w: lighter client has no signing key", domain.ErrConfiguration)
	}
	var out Account
	err := c.get(ctx, "/account", url.Values{
		"by":    {"l1_address"},
		"value": {c.signer.Address().Hex()},
	}, &out)
	return out, err
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// sign returns personal_sign(prefix + json(payload)).
func (c *Client) sign(ctx context.Context, prefix string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("lighter: marshal %s payload: %w", strings.TrimSuffix(prefix, ": "), err)
	}
	sig, err := c.signer.SignPersonal(ctx, append([]byte(prefix), body...))
	if err != nil {
		return "", fmt.Errorf("%w: lighter %s: %w", domain.ErrSigning, strings.TrimSuffix(prefix, ": "), err)
	}
	return sig, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	raw, err := c.getRaw(ctx, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("lighter: GET %s: decode response: %w", path, err)
	}
	return nil
}

func (c *Client) getRaw(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("lighter: GET %s: create request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	status, raw, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("lighter: GET %s: %w", path, err)
	}
	if err := checkHTTPStatus(status, raw); err != nil {
		return nil, fmt.Errorf("lighter: GET %s: %w", path, err)
	}
	return raw, nil
}

// post submits a signed payload. Every failure is a *domain.SubmissionError.
func (c *Client) post(ctx context.Context, op, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("lighter: %s: marshal request body: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("lighter: %s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	status, raw, err := c.do(req)
	if err != nil {
		return nil, &domain.SubmissionError{Venue: domain.VenueLighter, Op: op, Err: err}
	}
	if err := checkHTTPStatus(status, raw); err != nil {
		return nil, &domain.SubmissionError{
			Venue: domain.VenueLighter, Op: op, Status: status, Body: string(raw), Err: err,
		}
	}
	return raw, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

// checkHTTPStatus maps HTTP error codes to domain errors.
func checkHTTPStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, string(body))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, string(body))
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, string(body))
	default:
		return fmt.Errorf("HTTP %d: %s", status, string(body))
	}
}
