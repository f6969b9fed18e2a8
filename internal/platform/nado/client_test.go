package nado

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/hedgebot/internal/crypto"
	"github.com/alanyoungcy/hedgebot/internal/domain"
)

const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	ks, err := crypto.NewKeySigner(testKey)
	if err != nil {
		t.Fatalf("NewKeySigner: %v", err)
	}
	d, _ := LookupDeployment("inkTestnet")
	return NewClient(ClientConfig{Deployment: d, GatewayURL: url}, NewOrderSigner(ks, d), testLogger())
}

func TestOrderSignatureRecoversSigner(t *testing.T) {
	ks, err := crypto.NewKeySigner(testKey)
	if err != nil {
		t.Fatal(err)
	}
	d, _ := LookupDeployment("inkMainnet")
	s := NewOrderSigner(ks, d)

	tx := OrderTx{
		Sender:     NewSubaccount(ks.Address(), DefaultSubaccountName).Hex(),
		PriceX18:   "100000000000000000000000",
		Amount:     "-2000000000000000",
		Expiration: "1731536000",
		Nonce:      "1782524033613824007",
		Appendix:   "513",
	}
	sig, err := s.SignOrder(context.Background(), 2, tx)
	if err != nil {
		t.Fatalf("SignOrder: %v", err)
	}

	digest, _, err := apitypes.TypedDataAndHash(OrderTypedData(d.ChainID, 2, tx))
	if err != nil {
		t.Fatal(err)
	}
	if sig.Digest != common.BytesToHash(digest) {
		t.Fatalf("digest mismatch: %s", sig.Digest.Hex())
	}
	addr, err := crypto.RecoverAddress(digest, sig.Signature)
	if err != nil {
		t.Fatal(err)
	}
	if addr != ks.Address() {
		t.Fatalf("recovered %s want %s", addr.Hex(), ks.Address().Hex())
	}

	// The verifying contract is per product, so the same body on another
	// product yields another digest.
	other, err := s.SignOrder(context.Background(), 4, tx)
	if err != nil {
		t.Fatal(err)
	}
	if other.Digest == sig.Digest {
		t.Fatal("digest does not depend on product id")
	}
}

func TestCancelSignatureUsesSequencerDomain(t *testing.T) {
	d, _ := LookupDeployment("inkMainnet")
	td := CancelProductOrdersTypedData(d.ChainID, d.Sequencer, CancelProductOrdersTx{
		Sender:     NewSubaccount(d.Sequencer, "default").Hex(),
		ProductIDs: []int64{2, 4},
		Nonce:      "1",
	})
	if td.Domain.VerifyingContract != d.Sequencer.Hex() {
		t.Fatalf("verifying contract: got %s", td.Domain.VerifyingContract)
	}
	if _, _, err := apitypes.TypedDataAndHash(td); err != nil {
		t.Fatalf("hash: %v", err)
	}
}

func TestSignOrderCancelledContext(t *testing.T) {
	ks, _ := crypto.NewKeySigner(testKey)
	d, _ := LookupDeployment("inkMainnet")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewOrderSigner(ks, d).SignOrder(ctx, 2, OrderTx{})
	if !errors.Is(err, domain.ErrSigning) {
		t.Fatalf("got %v want ErrSigning", err)
	}
}

func TestPlaceOrderSendsSignedPayload(t *testing.T) {
	var got placeOrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/execute" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":{"digest":"0xfeed"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	res, err := c.PlaceOrder(context.Background(), PlaceOrderParams{
		ProductID: 2,
		Side:      domain.OrderSideSell,
		Price:     decimal.RequireFromString("99.9"),
		Size:      decimal.RequireFromString("0.002"),
		Appendix:  AppendixOptions{ExecutionType: ExecutionIOC},
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if res.Digest != "0xfeed" {
		t.Fatalf("digest: got %s", res.Digest)
	}

	body := got.PlaceOrder
	if body.ProductID != 2 {
		t.Fatalf("product id: got %d", body.ProductID)
	}
	if body.Order.Amount != "-2000000000000000" {
		t.Fatalf("amount: got %s", body.Order.Amount)
	}
	if body.Order.PriceX18 != "99900000000000000000" {
		t.Fatalf("priceX18: got %s", body.Order.PriceX18)
	}
	if body.Order.Sender != c.Sender().Hex() {
		t.Fatalf("sender: got %s", body.Order.Sender)
	}
	app, err := ParseAppendix(body.Order.Appendix)
	if err != nil || app.ExecutionType != ExecutionIOC {
		t.Fatalf("appendix %s: %+v %v", body.Order.Appendix, app, err)
	}

	digest, _, err := apitypes.TypedDataAndHash(OrderTypedData(c.Deployment().ChainID, 2, body.Order))
	if err != nil {
		t.Fatal(err)
	}
	addr, err := crypto.RecoverAddress(digest, body.Signature)
	if err != nil || addr != c.Sender().Address() {
		t.Fatalf("signature recovers %s, %v", addr.Hex(), err)
	}
}

func TestPlaceOrderFailureEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"failure","error":"insufficient margin","error_code":2006}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.PlaceOrder(context.Background(), PlaceOrderParams{
		ProductID: 2,
		Side:      domain.OrderSideBuy,
		Price:     decimal.NewFromInt(100),
		Size:      decimal.NewFromInt(1),
	})
	if !errors.Is(err, domain.ErrSubmission) {
		t.Fatalf("got %v want ErrSubmission", err)
	}
	var se *domain.SubmissionError
	if !errors.As(err, &se) || se.Body != "insufficient margin" || se.Venue != domain.VenueNado {
		t.Fatalf("submission error: %+v", se)
	}
}

func TestPlaceOrderWithoutSigner(t *testing.T) {
	c := NewClient(ClientConfig{GatewayURL: "http://127.0.0.1:0"}, nil, testLogger())
	_, err := c.PlaceOrder(context.Background(), PlaceOrderParams{Size: decimal.NewFromInt(1)})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("got %v want ErrConfiguration", err)
	}
}

func TestQueryMapsHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.MarketLiquidity(context.Background(), 2, 20)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("got %v want ErrRateLimited", err)
	}
}

func TestMarketLiquidityAndPosition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		switch q.Get("type") {
		case "market_liquidity":
			if q.Get("product_id") != "2" || q.Get("depth") != "5" {
				http.Error(w, "bad params", http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`{"status":"success","data":{
				"bids":[["100000000000000000000","1500000000000000000"]],
				"asks":[["101000000000000000000",2000000000000000000]],
				"timestamp":"1700000000"}}`))
		case "subaccount_info":
			_, _ = w.Write([]byte(`{"status":"success","data":{"exists":true,"perp_balances":[
				{"product_id":2,"balance":{"amount":"-1500000000000000000","v_quote_balance":"0"}},
				{"product_id":4,"balance":{"amount":"0","v_quote_balance":"0"}}]}}`))
		default:
			http.Error(w, "unknown type", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	book, err := c.MarketLiquidity(ctx, 2, 5)
	if err != nil {
		t.Fatalf("MarketLiquidity: %v", err)
	}
	if len(book.Bids) != 1 || len(book.Asks) != 1 {
		t.Fatalf("levels: %+v", book)
	}
	ask, err := ParseX18(book.Asks[0][1])
	if err != nil || !ask.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("ask size: %s %v", ask, err)
	}

	pos, err := c.PerpPosition(ctx, 2)
	if err != nil {
		t.Fatalf("PerpPosition: %v", err)
	}
	if !pos.Equal(decimal.RequireFromString("-1.5")) {
		t.Fatalf("position: got %s", pos)
	}
	if pos, _ := c.PerpPosition(ctx, 3); !pos.IsZero() {
		t.Fatalf("missing product: got %s", pos)
	}
}
