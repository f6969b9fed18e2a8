package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/hedgebot/internal/domain"
	"github.com/alanyoungcy/hedgebot/internal/market"
	"github.com/alanyoungcy/hedgebot/internal/platform/lighter"
	"github.com/alanyoungcy/hedgebot/internal/platform/nado"
)

// LegSubmitter signs and sends one leg on one venue.
type LegSubmitter interface {
	Venue() domain.Venue
	Submit(ctx context.Context, order domain.LegOrder) (domain.OrderAck, error)
}

// StatusSource reports the venue-side state of a submitted order.
type StatusSource interface {
	OrderStatus(ctx context.Context, coin, orderID string) (domain.OrderStatus, error)
}

type nadoOrderAPI interface {
	PlaceOrder(ctx context.Context, p nado.PlaceOrderParams) (nado.PlaceOrderResult, error)
	Order(ctx context.Context, digest string) (nado.OrderInfo, error)
}

// NadoLeg submits leg A. ioc maps to the IOC execution type, limit to the
// default (resting) type.
type NadoLeg struct {
	api      nadoOrderAPI
	products market.ProductResolver
}

// NewNadoLeg creates the Nado leg adapter.
func NewNadoLeg(api nadoOrderAPI, products market.ProductResolver) *NadoLeg {
	return &NadoLeg{api: api, products: products}
}

func (l *NadoLeg) Venue() domain.Venue { return domain.VenueNado }

func (l *NadoLeg) Submit(ctx context.Context, o domain.LegOrder) (domain.OrderAck, error) {
	symbol, err := nado.CoinToSymbol(o.Coin)
	if err != nil {
		return domain.OrderAck{}, err
	}
	pid, err := l.products.ProductID(ctx, symbol)
	if err != nil {
		return domain.OrderAck{}, err
	}

	exec := nado.ExecutionDefault
	if o.Type == domain.OrderTypeIOC {
		exec = nado.ExecutionIOC
	}

	res, err := l.api.PlaceOrder(ctx, nado.PlaceOrderParams{
		ProductID: pid,
		Side:      o.Side,
		Price:     o.Price,
		Size:      o.Size,
		Appendix:  nado.AppendixOptions{ExecutionType: exec, ReduceOnly: o.ReduceOnly},
	})
	if err != nil {
		return domain.OrderAck{}, err
	}
	return domain.OrderAck{
		OrderID: res.Digest,
		Raw: map[string]any{
			"digest":     res.Digest,
			"product_id": pid,
			"nonce":      res.Nonce,
			"price_x18":  res.Order.PriceX18,
			"amount":     res.Order.Amount,
			"appendix":   res.Order.Appendix,
		},
	}, nil
}

// OrderStatus reports open while the order rests with an unfilled amount. A
// digest the gateway no longer knows is closed (filled or cancelled).
func (l *NadoLeg) OrderStatus(ctx context.Context, coin, digest string) (domain.OrderStatus, error) {
	info, err := l.api.Order(ctx, digest)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.OrderStatusClosed, nil
	}
	if err != nil {
		return domain.OrderStatusUnknown, err
	}
	unfilled, err := nado.ParseX18(info.UnfilledAmount)
	if err != nil {
		return domain.OrderStatusUnknown, err
	}
	if unfilled.IsZero() {
		return domain.OrderStatusClosed, nil
	}
	return domain.OrderStatusOpen, nil
}

type lighterOrderAPI interface {
	CreateOrder(ctx context.Context, p lighter.OrderParams) (lighter.OrderResponse, error)
	Order(ctx context.Context, orderID string) (lighter.Order, error)
}

// LighterLeg submits leg B. ioc maps to a market order, limit to a limit
// order at the computed price.
type LighterLeg struct {
	api lighterOrderAPI
}

// NewLighterLeg creates the Lighter leg adapter.
func NewLighterLeg(api lighterOrderAPI) *LighterLeg {
	return &LighterLeg{api: api}
}

func (l *LighterLeg) Venue() domain.Venue { return domain.VenueLighter }

func (l *LighterLeg) Submit(ctx context.Context, o domain.LegOrder) (domain.OrderAck, error) {
	res, err := l.api.CreateOrder(ctx, lighter.OrderParams{
		Symbol:     lighter.CoinToSymbol(o.Coin),
		Side:       o.Side,
		Market:     o.Type != domain.OrderTypeLimit,
		Size:       o.Size,
		Price:      o.Price,
		ReduceOnly: o.ReduceOnly,
	})
	if err != nil {
		return domain.OrderAck{}, err
	}
	return domain.OrderAck{OrderID: string(res.OrderID), Raw: res.Raw}, nil
}

func (l *LighterLeg) OrderStatus(ctx context.Context, coin, orderID string) (domain.OrderStatus, error) {
	if orderID == "" {
		return domain.OrderStatusUnknown, fmt.Errorf("lighter: order accepted without an id")
	}
	o, err := l.api.Order(ctx, orderID)
	if err != nil {
		return domain.OrderStatusUnknown, err
	}
	switch strings.ToLower(o.Status) {
	case "open", "pending", "in_progress", "partially_filled":
		return domain.OrderStatusOpen, nil
	case "filled", "cancelled", "canceled", "expired":
		return domain.OrderStatusClosed, nil
	}
	if o.Amount != "" && o.FilledAmount != "" {
		amt, err1 := decimal.NewFromString(o.Amount)
		filled, err2 := decimal.NewFromString(o.FilledAmount)
		if err1 == nil && err2 == nil && filled.GreaterThanOrEqual(amt) {
			return domain.OrderStatusClosed, nil
		}
	}
	return domain.OrderStatusUnknown, nil
}
