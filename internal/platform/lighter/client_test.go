package lighter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/hedgebot/internal/crypto"
	"github.com/alanyoungcy/hedgebot/internal/domain"
)

const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func newTestClient(t *testing.T, url string) (*Client, *crypto.KeySigner) {
	t.Helper()
	ks, err := crypto.NewKeySigner(testKey)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(Config{BaseURL: url, AccountIndex: 7, APIKeyIndex: 2}, ks, logger), ks
}

func TestOrderBookID(t *testing.T) {
	tests := []struct {
		symbol string
		want   int64
	}{
		{"BTCUSD", 0},
		{"ethusd", 1},
		{"SOLUSD", 2},
	}
	for _, tt := range tests {
		got, err := OrderBookID(tt.symbol)
		if err != nil || got != tt.want {
			t.Fatalf("OrderBookID(%s) = %d, %v; want %d", tt.symbol, got, err, tt.want)
		}
	}
	if _, err := OrderBookID("DOGEUSD"); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("got %v want ErrConfiguration", err)
	}
	if CoinToSymbol("eth") != "ETHUSD" {
		t.Fatalf("CoinToSymbol(eth) = %s", CoinToSymbol("eth"))
	}
}

func TestCreateOrderSignsOrderedJSON(t *testing.T) {
	var body map[string]json.RawMessage
	var rawBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/order" {
			http.NotFound(w, r)
			return
		}
		rawBody, _ = io.ReadAll(r.Body)
		_ = json.Unmarshal(rawBody, &body)
		_, _ = w.Write([]byte(`{"order_id":12345,"status":"accepted"}`))
	}))
	defer srv.Close()

	c, ks := newTestClient(t, srv.URL)
	res, err := c.CreateOrder(context.Background(), OrderParams{
		Symbol: "BTCUSD",
		Side:   domain.OrderSideBuy,
		Size:   decimal.RequireFromString("0.002"),
		Price:  decimal.RequireFromString("100.1"),
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if res.OrderID != "12345" {
		t.Fatalf("order id: got %q", res.OrderID)
	}

	var sig string
	if err := json.Unmarshal(body["signature"], &sig); err != nil {
		t.Fatal(err)
	}
	signed := `{"order_book_id":0,"account_index":7,"api_key_index":2,"side":0,"order_type":0,` +
		`"amount":"2000000000000000","recipient":"` + ks.Address().Hex() + `","reduce_only":false,` +
		`"price":"100100000000000000000"}`
	if !strings.HasPrefix(string(rawBody), strings.TrimSuffix(signed, "}")) {
		t.Fatalf("body does not carry the signed fields in order:\n%s", rawBody)
	}
	addr, err := crypto.RecoverAddress(accounts.TextHash([]byte("Order: "+signed)), sig)
	if err != nil || addr != ks.Address() {
		t.Fatalf("signature recovers %s, %v", addr.Hex(), err)
	}
}

func TestCreateMarketOrderOmitsPrice(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"order_id":"abc"}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	_, err := c.CreateOrder(context.Background(), OrderParams{
		Symbol:     "ETHUSD",
		Side:       domain.OrderSideSell,
		Market:     true,
		Size:       decimal.NewFromInt(1),
		Price:      decimal.NewFromInt(3000),
		ReduceOnly: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := body["price"]; ok {
		t.Fatalf("market order carries a price: %v", body)
	}
	if body["side"] != float64(SideSell) || body["order_type"] != float64(OrderTypeMarket) || body["reduce_only"] != true {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestCreateOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":21706,"message":"invalid signature"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	_, err := c.CreateOrder(context.Background(), OrderParams{
		Symbol: "BTCUSD", Side: domain.OrderSideBuy,
		Size: decimal.NewFromInt(1), Price: decimal.NewFromInt(100),
	})
	var se *domain.SubmissionError
	if !errors.As(err, &se) {
		t.Fatalf("got %v want *SubmissionError", err)
	}
	if se.Status != http.StatusBadRequest || !strings.Contains(se.Body, "invalid signature") {
		t.Fatalf("submission error %+v", se)
	}
}

func TestPositionsAcceptsWrappedAndBareLists(t *testing.T) {
	for _, payload := range []string{
		`[{"order_book_id":0,"size":"-0.002"},{"order_book_id":1,"size":"0"}]`,
		`{"positions":[{"order_book_id":0,"size":"-0.002"}]}`,
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/positions" || r.URL.Query().Get("account_index") != "7" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(payload))
		}))

		c, _ := newTestClient(t, srv.URL)
		got, err := c.Position(context.Background(), "BTCUSD")
		srv.Close()
		if err != nil {
			t.Fatalf("Position: %v", err)
		}
		if !got.Equal(decimal.RequireFromString("-0.002")) {
			t.Fatalf("payload %s: got %s", payload, got)
		}
	}
}

func TestOrderBookQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/order_book" || q.Get("order_book_id") != "2" || q.Get("depth") != "20" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"bids":[["150.10","3"]],"asks":[["150.20","4"]]}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	book, err := c.OrderBook(context.Background(), "SOLUSD", 20)
	if err != nil {
		t.Fatal(err)
	}
	if book.Bids[0][0] != "150.10" || book.Asks[0][1] != "4" {
		t.Fatalf("book %+v", book)
	}

	if _, err := c.Order(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v want ErrNotFound", err)
	}
}
