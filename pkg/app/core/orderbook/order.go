package orderbook

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPrice       = errors.New("price must be positive")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInvalidTimeInForce = errors.New("time in force not allowed for order kind")
	ErrInvalidSide        = errors.New("unknown order side")
	ErrInvalidKind        = errors.New("unknown order kind")
)

// IDSource issues order ids. Ids start at 1, increase strictly and are never
// reused for the lifetime of the source. Safe for concurrent use.
type IDSource struct {
	last atomic.Uint64
}

func NewIDSource() *IDSource { return &IDSource{} }

// Next returns the next unused id.
func (s *IDSource) Next() uint64 { return s.last.Add(1) }

// Last returns the most recently issued id, 0 if none.
func (s *IDSource) Last() uint64 { return s.last.Load() }

// Order is one order's economic terms and fill state. Everything except the
// remaining quantity is fixed at creation.
type Order struct {
	id          uint64
	side        Side
	kind        Kind
	tif         TimeInForce
	price       decimal.Decimal
	originalQty int64
	remaining   int64
}

// NewOrder validates the terms and, on success, assigns the next id from ids.
// For market orders price is a reference price only and never limits execution.
func NewOrder(ids *IDSource, side Side, kind Kind, tif TimeInForce, price decimal.Decimal, qty int64) (*Order, error) {
	if !side.valid() {
		return nil, fmt.Errorf("side %d: %w", side, ErrInvalidSide)
	}
	if !kind.valid() {
		return nil, fmt.Errorf("kind %d: %w", kind, ErrInvalidKind)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("price %s: %w", price, ErrInvalidPrice)
	}
	if qty <= 0 {
		return nil, fmt.Errorf("quantity %d: %w", qty, ErrInvalidQuantity)
	}
	if !IsLegal(kind, tif) {
		return nil, fmt.Errorf("%s with %s: %w", kind, tif, ErrInvalidTimeInForce)
	}
	return &Order{
		id:          ids.Next(),
		side:        side,
		kind:        kind,
		tif:         tif,
		price:       price,
		originalQty: qty,
		remaining:   qty,
	}, nil
}

func (o *Order) ID() uint64               { return o.id }
func (o *Order) Side() Side               { return o.side }
func (o *Order) Kind() Kind               { return o.kind }
func (o *Order) TimeInForce() TimeInForce { return o.tif }
func (o *Order) Price() decimal.Decimal   { return o.price }
func (o *Order) OriginalQty() int64       { return o.originalQty }
func (o *Order) RemainingQty() int64      { return o.remaining }
func (o *Order) FilledQty() int64         { return o.originalQty - o.remaining }
func (o *Order) IsFilled() bool           { return o.remaining == 0 }

// ReduceRemaining consumes take units. It panics unless 0 < take <= remaining;
// removing a fully consumed order from storage is the caller's job.
func (o *Order) ReduceRemaining(take int64) {
	if take <= 0 || take > o.remaining {
		panic(fmt.Sprintf("orderbook: reduce order %d by %d with %d remaining", o.id, take, o.remaining))
	}
	o.remaining -= take
}

func (o *Order) String() string {
	return fmt.Sprintf("#%d %s %s/%s %d/%d @ %s",
		o.id, o.side, o.kind, o.tif, o.remaining, o.originalQty, o.price)
}
