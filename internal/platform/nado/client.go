package nado

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/hedgebot/internal/domain"
	"github.com/alanyoungcy/hedgebot/internal/numeric"
)

// APIError is a non-2xx response or a "failure" envelope from the gateway.
type APIError struct {
	Op     string
	Status int // HTTP status
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nado: %s: HTTP %d: %s", e.Op, e.Status, e.Body)
}

// Is maps well-known HTTP statuses onto domain sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case domain.ErrNotFound:
		return e.Status == http.StatusNotFound
	case domain.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case domain.ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	}
	return false
}

// ClientConfig configures a Client.
type ClientConfig struct {
	Deployment Deployment
	// GatewayURL overrides Deployment.GatewayURL when set.
	GatewayURL string
	// SubaccountName defaults to DefaultSubaccountName.
	SubaccountName string
	// OrderTTL is the order expiration window; zero means one year.
	OrderTTL    time.Duration
	HTTPTimeout time.Duration
}

// Client talks to the Nado gateway. A Client without an OrderSigner can
// only query.
type Client struct {
	gateway    string
	deployment Deployment
	httpClient *http.Client
	signer     *OrderSigner
	sender     Subaccount
	nonces     *NonceGenerator
	orderTTL   time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewClient creates a gateway client. signer may be nil for read-only use.
func NewClient(cfg ClientConfig, signer *OrderSigner, logger *slog.Logger) *Client {
	gw := cfg.GatewayURL
	if gw == "" {
		gw = cfg.Deployment.GatewayURL
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	name := cfg.SubaccountName
	if name == "" {
		name = DefaultSubaccountName
	}

	c := &Client{
		gateway:    strings.TrimRight(gw, "/"),
		deployment: cfg.Deployment,
		httpClient: &http.Client{Timeout: timeout},
		signer:     signer,
		nonces:     NewNonceGenerator(),
		orderTTL:   cfg.OrderTTL,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "nado")),
	}
	if signer != nil {
		c.sender = NewSubaccount(signer.Address(), name)
	}
	return c
}

// Sender returns the subaccount id orders are placed from.
func (c *Client) Sender() Subaccount { return c.sender }

// Deployment returns the network constants the client was built with.
func (c *Client) Deployment() Deployment { return c.deployment }

// --------------------------------------------------------------------------
// Queries
// --------------------------------------------------------------------------

// AllProducts returns every spot and perp product.
func (c *Client) AllProducts(ctx context.Context) (AllProducts, error) {
	var out AllProducts
	err := c.query(ctx, "all_products", nil, &out)
	return out, err
}

// Symbols returns the symbol -> product mapping.
func (c *Client) Symbols(ctx context.Context) (SymbolsResponse, error) {
	var out SymbolsResponse
	err := c.query(ctx, "symbols", nil, &out)
	return out, err
}

// MarketPrice returns the top of book for productID.
func (c *Client) MarketPrice(ctx context.Context, productID int64) (MarketPrice, error) {
	var out MarketPrice
	err := c.query(ctx, "market_price", url.Values{"product_id": {itoa(productID)}}, &out)
	return out, err
}

// MarketLiquidity returns up to depth levels per side for productID.
func (c *Client) MarketLiquidity(ctx context.Context, productID int64, depth int) (MarketLiquidity, error) {
	var out MarketLiquidity
	err := c.query(ctx, "market_liquidity", url.Values{
		"product_id": {itoa(productID)},
		"depth":      {strconv.Itoa(depth)},
	}, &out)
	return out, err
}

// SubaccountInfo returns balances and positions of the client's subaccount.
func (c *Client) SubaccountInfo(ctx context.Context) (SubaccountInfo, error) {
	var out SubaccountInfo
	err := c.query(ctx, "subaccount_info", url.Values{"subaccount": {c.sender.Hex()}}, &out)
	return out, err
}

// IsolatedPositions returns isolated-margin positions of the subaccount.
func (c *Client) IsolatedPositions(ctx context.Context) (IsolatedPositions, error) {
	var out IsolatedPositions
	err := c.query(ctx, "isolated_positions", url.Values{"subaccount": {c.sender.Hex()}}, &out)
	return out, err
}

// Order looks up a resting order by digest.
func (c *Client) Order(ctx context.Context, digest string) (OrderInfo, error) {
	var out OrderInfo
	err := c.query(ctx, "order", url.Values{"digest": {digest}}, &out)
	return out, err
}

// SubaccountOrders lists the subaccount's resting orders on productID.
func (c *Client) SubaccountOrders(ctx context.Context, productID int64) (SubaccountOrders, error) {
	var out SubaccountOrders
	err := c.query(ctx, "subaccount_orders", url.Values{
		"product_id": {itoa(productID)},
		"sender":     {c.sender.Hex()},
	}, &out)
	return out, err
}

// FeeRates returns the subaccount's fee schedule.
func (c *Client) FeeRates(ctx context.Context) (FeeRates, error) {
	var out FeeRates
	err := c.query(ctx, "fee_rates", url.Values{"sender": {c.sender.Hex()}}, &out)
	return out, err
}

// PerpPosition returns the signed position size on productID (zero if none).
func (c *Client) PerpPosition(ctx context.Context, productID int64) (decimal.Decimal, error) {
	info, err := c.SubaccountInfo(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	for _, b := range info.PerpBalances {
		if b.ProductID == productID {
			return numeric.FromX18(string(b.Balance.Amount))
		}
	}
	return decimal.Zero, nil
}

// --------------------------------------------------------------------------
// Execute
// --------------------------------------------------------------------------

// PlaceOrderParams describes one perp order. Size is unsigned; Side sets the
// sign of the amount.
type PlaceOrderParams struct {
	ProductID int64
	Side      domain.OrderSide
	Price     decimal.Decimal
	Size      decimal.Decimal
	Appendix  AppendixOptions
}

// PlaceOrder signs and submits an order. Signing failures wrap ErrSigning,
// venue rejections are *domain.SubmissionError.
func (c *Client) PlaceOrder(ctx context.Context, p PlaceOrderParams) (PlaceOrderResult, error) {
	if c.signer == nil {
		return PlaceOrderResult{}, fmt.Errorf("%w: nado client has no signing key", domain.ErrConfiguration)
	}
	if p.Size.Sign() <= 0 {
		return PlaceOrderResult{}, fmt.Errorf("nado: order size must be positive, got %s", p.Size)
	}
	amount := p.Size.Abs()
	if p.Side == domain.OrderSideSell {
		amount = amount.Neg()
	}
	appendix, err := EncodeAppendix(p.Appendix)
	if err != nil {
		return PlaceOrderResult{}, err
	}

	nonce := c.nonces.Next()
	tx := OrderTx{
		Sender:     c.sender.Hex(),
		PriceX18:   numeric.ToX18String(p.Price),
		Amount:     numeric.ToX18String(amount),
		Expiration: strconv.FormatUint(Expiration(c.now(), c.orderTTL), 10),
		Nonce:      nonce.String(),
		Appendix:   appendix.String(),
	}

	sig, err := c.signer.SignOrder(ctx, p.ProductID, tx)
	if err != nil {
		return PlaceOrderResult{}, err
	}

	c.logger.DebugContext(ctx, "placing order",
		slog.Int64("product_id", p.ProductID),
		slog.String("side", string(p.Side)),
		slog.String("price_x18", tx.PriceX18),
		slog.String("amount", tx.Amount),
		slog.String("digest", sig.Digest.Hex()),
	)

	var out PlaceOrderResult
	req := placeOrderRequest{PlaceOrder: placeOrderBody{
		ProductID: p.ProductID,
		Order:     tx,
		Signature: sig.Signature,
	}}
	if err := c.execute(ctx, "place_order", req, &out); err != nil {
		return PlaceOrderResult{}, err
	}
	if out.Digest == "" {
		out.Digest = sig.Digest.Hex()
	}
	out.Nonce = tx.Nonce
	out.Order = tx
	return out, nil
}

// CancelOrders cancels specific orders. productIDs and digests are parallel.
func (c *Client) CancelOrders(ctx context.Context, productIDs []int64, digests []string) (CancelResult, error) {
	if c.signer == nil {
		return CancelResult{}, fmt.Errorf("%w: nado client has no signing key", domain.ErrConfiguration)
	}
	if len(productIDs) != len(digests) {
		return CancelResult{}, fmt.Errorf("nado: %d product ids for %d digests", len(productIDs), len(digests))
	}
	tx := CancelOrdersTx{
		Sender:     c.sender.Hex(),
		ProductIDs: productIDs,
		Digests:    digests,
		Nonce:      c.nonces.Next().String(),
	}
	sig, err := c.signer.SignCancelOrders(ctx, tx)
	if err != nil {
		return CancelResult{}, err
	}
	var out CancelResult
	err = c.execute(ctx, "cancel_orders", cancelOrdersRequest{
		CancelOrders: signedTx[CancelOrdersTx]{Tx: tx, Signature: sig.Signature},
	}, &out)
	return out, err
}

// CancelProductOrders cancels every order of the subaccount on productIDs.
func (c *Client) CancelProductOrders(ctx context.Context, productIDs []int64) (CancelResult, error) {
	if c.signer == nil {
		return CancelResult{}, fmt.Errorf("%w: nado client has no signing key", domain.ErrConfiguration)
	}
	tx := CancelProductOrdersTx{
		Sender:     c.sender.Hex(),
		ProductIDs: productIDs,
		Nonce:      c.nonces.Next().String(),
	}
	sig, err := c.signer.SignCancelProductOrders(ctx, tx)
	if err != nil {
		return CancelResult{}, err
	}
	var out CancelResult
	err = c.execute(ctx, "cancel_product_orders", cancelProductOrdersRequest{
		CancelProductOrders: signedTx[CancelProductOrdersTx]{Tx: tx, Signature: sig.Signature},
	}, &out)
	return out, err
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (c *Client) query(ctx context.Context, typ string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("type", typ)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.gateway+"/query?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("nado: query %s: create request: %w", typ, err)
	}
	req.Header.Set("Accept", "application/json")

	if err := c.do(req, typ, out); err != nil {
		return fmt.Errorf("nado: query %s: %w", typ, err)
	}
	return nil
}

func (c *Client) execute(ctx context.Context, op string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("nado: %s: marshal request body: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gateway+"/execute", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("nado: %s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if err := c.do(req, op, out); err != nil {
		se := &domain.SubmissionError{Venue: domain.VenueNado, Op: op, Err: err}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			se.Status = apiErr.Status
			se.Body = apiErr.Body
		}
		return se
	}
	return nil
}

// do sends req and unwraps the {status, data|error} envelope into out.
func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Op: op, Status: resp.StatusCode, Body: string(raw)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.Status == "failure" {
		msg := env.Error
		if msg == "" {
			msg = string(raw)
		}
		return &APIError{Op: op, Status: resp.StatusCode, Body: msg}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", op, err)
	}
	return nil
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

// ParseX18 converts a wire value to a decimal.
func ParseX18(v X18) (decimal.Decimal, error) {
	return numeric.FromX18(string(v))
}
