package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnauthorized = errors.New("unauthorized")
	ErrLockHeld     = errors.New("lock already held")

	// Hedge error taxonomy. Every typed error below matches one of these via
	// errors.Is.
	ErrConfiguration    = errors.New("configuration error")
	ErrMarketData       = errors.New("market data error")
	ErrNotionalTooSmall = errors.New("notional too small")
	ErrSigning          = errors.New("signing failed")
	ErrSubmission       = errors.New("order submission failed")
	ErrPartialHedge     = errors.New("partial hedge")
)

// NotionalError reports a leg whose size x price is below the configured floor.
type NotionalError struct {
	Venue    Venue
	Notional decimal.Decimal
	Floor    decimal.Decimal
}

func (e *NotionalError) Error() string {
	return fmt.Sprintf("%s order notional too small: %s USD (minimum %s USD)",
		e.Venue, e.Notional.StringFixed(2), e.Floor.String())
}

func (e *NotionalError) Is(target error) bool { return target == ErrNotionalTooSmall }

// SubmissionError is a venue rejection. Status is the HTTP status code (0 when
// the transport itself failed) and Body the raw response, kept verbatim.
type SubmissionError struct {
	Venue  Venue
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *SubmissionError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Venue, e.Op, e.Status, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Venue, e.Op, e.Err)
	default:
		return fmt.Sprintf("%s %s: %s", e.Venue, e.Op, e.Body)
	}
}

func (e *SubmissionError) Is(target error) bool { return target == ErrSubmission }

func (e *SubmissionError) Unwrap() error { return e.Err }

// PartialHedgeError means one leg was accepted and the other failed, leaving
// unhedged directional exposure on the accepted venue.
type PartialHedgeError struct {
	AcceptedVenue   Venue
	AcceptedOrderID string
	FailedVenue     Venue
	Cause           error
}

func (e *PartialHedgeError) Error() string {
	return fmt.Sprintf("partial hedge: %s leg failed (%v); %s leg accepted as order %s and must be unwound",
		e.FailedVenue, e.Cause, e.AcceptedVenue, e.AcceptedOrderID)
}

func (e *PartialHedgeError) Is(target error) bool { return target == ErrPartialHedge }

func (e *PartialHedgeError) Unwrap() error { return e.Cause }
