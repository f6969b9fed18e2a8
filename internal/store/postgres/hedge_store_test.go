package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/hedgebot/internal/domain"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func sampleHedge() domain.HedgeResult {
	d := decimal.RequireFromString
	return domain.HedgeResult{
		ID:        "h1",
		Coin:      "BTC",
		Size:      d("0.1"),
		Success:   true,
		Outcome:   domain.OutcomeBothAccepted,
		Direction: &domain.HedgeDirection{LegA: domain.OrderSideSell, LegB: domain.OrderSideBuy},
		LegA: &domain.LegResult{Venue: domain.VenueNado, Side: domain.OrderSideSell, Price: d("99.9"), Size: d("0.1"),
			Accepted: true, OrderID: "0xabc", Status: domain.OrderStatusOpen},
		LegB: &domain.LegResult{Venue: domain.VenueLighter, Side: domain.OrderSideBuy, Price: d("100.1"), Size: d("0.1"),
			Accepted: true, OrderID: "77", Status: domain.OrderStatusOpen},
		ExecutionTimeMs: 12,
		Timestamp:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Message:         "ok",
	}
}

var (
	insertResult = regexp.QuoteMeta("INSERT INTO hedge_results")
	insertLeg    = regexp.QuoteMeta("INSERT INTO hedge_legs")
)

func expectResultInsert(mock pgxmock.PgxPoolIface, r domain.HedgeResult, rows int64) {
	anyArg := pgxmock.AnyArg()
	mock.ExpectExec(insertResult).
		WithArgs(r.ID, r.Coin, r.Size.String(), r.Closing, r.Success, string(r.Outcome),
			anyArg, anyArg, anyArg, anyArg, r.ExecutionTimeMs, r.Message, r.Error, r.Timestamp).
		WillReturnResult(pgxmock.NewResult("INSERT", rows))
}

func TestSaveWritesResultAndLegsInOneTransaction(t *testing.T) {
	mock := newMock(t)
	r := sampleHedge()

	mock.ExpectBegin()
	expectResultInsert(mock, r, 1)
	mock.ExpectExec(insertLeg).
		WithArgs("h1", "A", string(domain.VenueNado), "sell", "99.9", "0.1", true, "0xabc", "open", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(insertLeg).
		WithArgs("h1", "B", string(domain.VenueLighter), "buy", "100.1", "0.1", true, "77", "open", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	if err := NewHedgeStore(mock).Save(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSaveSkipsExistingID(t *testing.T) {
	mock := newMock(t)
	r := sampleHedge()

	mock.ExpectBegin()
	expectResultInsert(mock, r, 0)
	mock.ExpectCommit()

	if err := NewHedgeStore(mock).Save(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSaveRollsBackWhenALegFails(t *testing.T) {
	mock := newMock(t)
	r := sampleHedge()
	r.LegB = nil

	mock.ExpectBegin()
	expectResultInsert(mock, r, 1)
	anyArg := pgxmock.AnyArg()
	mock.ExpectExec(insertLeg).
		WithArgs(anyArg, anyArg, anyArg, anyArg, anyArg, anyArg, anyArg, anyArg, anyArg, anyArg).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := NewHedgeStore(mock).Save(context.Background(), r)
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetByID(t *testing.T) {
	mock := newMock(t)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM hedge_results WHERE id = $1")).
		WithArgs("h1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "coin", "size", "closing", "success", "outcome",
			"leg_a_side", "leg_b_side", "fill_status_a", "fill_status_b", "execution_time_ms", "message", "error", "created_at"}).
			AddRow("h1", "BTC", "0.1", false, false, "partially_accepted", "sell", "buy", "", "", int64(15), "", "lighter rejected", ts))
	mock.ExpectQuery(regexp.QuoteMeta("FROM hedge_legs WHERE hedge_id = $1")).
		WithArgs("h1").
		WillReturnRows(pgxmock.NewRows([]string{"leg", "venue", "side", "price", "size", "accepted", "order_id", "status", "error"}).
			AddRow("A", "nado", "sell", "99.9", "0.1", true, "0xabc", "open", "").
			AddRow("B", "lighter", "buy", "100.1", "0.1", false, "", "", "rejected"))

	r, err := NewHedgeStore(mock).GetByID(context.Background(), "h1")
	if err != nil {
		t.Fatal(err)
	}
	if r.Outcome != domain.OutcomePartiallyAccepted || !r.Size.Equal(decimal.RequireFromString("0.1")) {
		t.Fatalf("result %+v", r)
	}
	if r.LegA == nil || r.LegA.OrderID != "0xabc" || r.LegB == nil || r.LegB.Accepted {
		t.Fatalf("legs %+v / %+v", r.LegA, r.LegB)
	}
	if r.Prices == nil || !r.Prices.LegB.Equal(decimal.RequireFromString("100.1")) {
		t.Fatalf("prices %+v", r.Prices)
	}
	if r.FillStatus != nil {
		t.Fatalf("fill status %+v", r.FillStatus)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM hedge_results WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := NewHedgeStore(mock).GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestAuditLog(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_log (event, detail)")).
		WithArgs("hedge_open", []byte(`{"coin":"BTC"}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := NewAuditStore(mock).Log(context.Background(), "hedge_open", map[string]any{"coin": "BTC"}); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
