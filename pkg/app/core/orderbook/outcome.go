package orderbook

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrRejectedInvalidTimeInForce    = errors.New("rejected: invalid time in force for order kind")
	ErrCanceledNoLiquidity           = errors.New("canceled: no liquidity on the opposite side")
	ErrCanceledInsufficientLiquidity = errors.New("canceled: insufficient liquidity at acceptable prices")
)

// Result classifies how a submission ended.
type Result int8

const (
	// ResultExecuted means the taker traded; any remainder was dropped or rested.
	ResultExecuted Result = iota
	// ResultRested means nothing traded and the order now rests on the book.
	ResultRested
	ResultRejectedInvalidTimeInForce
	ResultCanceledNoLiquidity
	ResultCanceledInsufficientLiquidity
)

func (r Result) String() string {
	switch r {
	case ResultExecuted:
		return "executed"
	case ResultRested:
		return "rested"
	case ResultRejectedInvalidTimeInForce:
		return "rejected_invalid_tif"
	case ResultCanceledNoLiquidity:
		return "canceled_no_liquidity"
	case ResultCanceledInsufficientLiquidity:
		return "canceled_insufficient_liquidity"
	default:
		return "unknown"
	}
}

// Fill is one execution between the taker and a resting maker.
type Fill struct {
	TakerID uint64
	MakerID uint64
	Side    Side // taker side
	Price   decimal.Decimal
	Qty     int64
}

// Notional returns Price * Qty.
func (f Fill) Notional() decimal.Decimal {
	return f.Price.Mul(decimal.NewFromInt(f.Qty))
}

// MatchOutcome reports everything a submission did. It is a plain value;
// rendering is left to the caller.
type MatchOutcome struct {
	TakerID uint64
	Side    Side
	Result  Result

	Filled      int64
	Notional    decimal.Decimal
	FullyFilled bool

	// RestedOrderID is the id of the order now resting for the remainder, 0 if
	// nothing rested. It equals TakerID only when the opposite side was empty;
	// a remainder left after matching rests under a fresh id.
	RestedOrderID uint64
	RestedQty     int64

	// CanceledQty is the part of the taker that neither filled nor rested.
	CanceledQty int64
	// PartialNotAllowed marks a short fill whose policy forbids partial execution.
	PartialNotAllowed bool

	Fills []Fill
}

// VWAP is Notional / Filled, zero when nothing filled.
func (m MatchOutcome) VWAP() decimal.Decimal {
	if m.Filled == 0 {
		return decimal.Zero
	}
	return m.Notional.Div(decimal.NewFromInt(m.Filled))
}

// Rested reports whether any part of the taker is now on the book.
func (m MatchOutcome) Rested() bool { return m.RestedQty > 0 }

// Err maps rejections and cancellations to their sentinel errors. It returns nil
// for executed and rested outcomes.
func (m MatchOutcome) Err() error {
	switch m.Result {
	case ResultRejectedInvalidTimeInForce:
		return ErrRejectedInvalidTimeInForce
	case ResultCanceledNoLiquidity:
		return ErrCanceledNoLiquidity
	case ResultCanceledInsufficientLiquidity:
		return ErrCanceledInsufficientLiquidity
	default:
		return nil
	}
}
