package orderbook

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

var ErrNotRestable = errors.New("only limit good-till-cancel orders can rest")

// PriceLevel aggregates the resting quantity at one price.
type PriceLevel struct {
	Price  decimal.Decimal
	Qty    int64 // total remaining qty at this price level
	Orders int
}

// OrderBook is a single-instrument book. Both sides are kept best-first
// (bids high to low, asks low to high) with arrival order preserved among
// equal prices. Every stored order has remaining quantity > 0.
type OrderBook struct {
	mu sync.RWMutex

	bids []*Order
	asks []*Order

	ids       *IDSource
	lastPrice decimal.Decimal // most recent fill price
}

// NewOrderBook creates an empty book. Remainder orders draw their ids from ids;
// a nil ids gets a private source.
func NewOrderBook(ids *IDSource) *OrderBook {
	if ids == nil {
		ids = NewIDSource()
	}
	return &OrderBook{ids: ids}
}

// IDs returns the id source shared by this book.
func (ob *OrderBook) IDs() *IDSource { return ob.ids }

// NewOrder creates an order with an id from the book's source.
func (ob *OrderBook) NewOrder(side Side, kind Kind, tif TimeInForce, price decimal.Decimal, qty int64) (*Order, error) {
	return NewOrder(ob.ids, side, kind, tif, price, qty)
}

// Submit matches taker against the opposite side and reports the outcome.
// The taker itself is neither mutated nor retained: if it rests, the book
// stores its own copy. Rejections and cancellations leave the book unchanged.
func (ob *OrderBook) Submit(taker *Order) MatchOutcome {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	out := MatchOutcome{TakerID: taker.id, Side: taker.side, Notional: decimal.Zero}

	if !IsLegal(taker.kind, taker.tif) {
		out.Result = ResultRejectedInvalidTimeInForce
		out.CanceledQty = taker.originalQty
		return out
	}
	policy := PolicyFor(taker.kind, taker.tif)

	opposite := ob.side(taker.side.Opposite())
	if len(*opposite) == 0 {
		if taker.kind == Limit && policy.RestRemainder {
			rest := *taker
			ob.insert(&rest)
			out.Result = ResultRested
			out.RestedOrderID = rest.id
			out.RestedQty = rest.remaining
			return out
		}
		out.Result = ResultCanceledNoLiquidity
		out.CanceledQty = taker.originalQty
		return out
	}

	sortBestFirst(*opposite, taker.side.Opposite())

	want := taker.originalQty
	if policy.RequireFullFill && acceptableLiquidity(taker, *opposite, want) < want {
		out.Result = ResultCanceledInsufficientLiquidity
		out.CanceledQty = want
		return out
	}

	// Execution pass: the only place resting orders are mutated.
	stillWanted := want
	for _, maker := range *opposite {
		if stillWanted == 0 || !acceptable(taker, maker) {
			break
		}
		take := min(stillWanted, maker.remaining)
		maker.ReduceRemaining(take)
		stillWanted -= take

		fill := Fill{TakerID: taker.id, MakerID: maker.id, Side: taker.side, Price: maker.price, Qty: take}
		out.Fills = append(out.Fills, fill)
		out.Filled += take
		out.Notional = out.Notional.Add(fill.Notional())
		ob.lastPrice = maker.price
	}
	out.FullyFilled = stillWanted == 0

	if policy.RequireFullFill && !out.FullyFilled {
		panic(fmt.Sprintf("orderbook: fill-or-kill order %d filled %d of %d after passing pre-check",
			taker.id, out.Filled, want))
	}
	if !out.FullyFilled && !policy.AllowPartial {
		out.PartialNotAllowed = true
	}

	if taker.kind == Limit && policy.RestRemainder && stillWanted > 0 {
		rest := &Order{
			id:          ob.ids.Next(),
			side:        taker.side,
			kind:        Limit,
			tif:         GoodTillCancel,
			price:       taker.price,
			originalQty: stillWanted,
			remaining:   stillWanted,
		}
		ob.insert(rest)
		out.RestedOrderID = rest.id
		out.RestedQty = stillWanted
	} else {
		out.CanceledQty = stillWanted
	}

	*opposite = removeFilled(*opposite)

	out.Result = ResultExecuted
	if out.Filled == 0 {
		out.Result = ResultRested
	}
	return out
}

// acceptable reports whether taker may trade at resting's price. Market orders
// accept any price.
func acceptable(taker, resting *Order) bool {
	if taker.kind == Market {
		return true
	}
	if taker.side == Buy {
		return resting.price.LessThanOrEqual(taker.price)
	}
	return resting.price.GreaterThanOrEqual(taker.price)
}

// acceptableLiquidity sums resting quantity best-first while prices stay
// acceptable, stopping early once want is covered. side must be sorted.
func acceptableLiquidity(taker *Order, side []*Order, want int64) int64 {
	var possible int64
	for _, r := range side {
		if !acceptable(taker, r) {
			break
		}
		possible += r.remaining
		if possible >= want {
			break
		}
	}
	return possible
}

func (ob *OrderBook) side(s Side) *[]*Order {
	if s == Buy {
		return &ob.bids
	}
	return &ob.asks
}

// better reports whether price a ranks strictly ahead of b on side s.
func better(s Side, a, b decimal.Decimal) bool {
	if s == Buy {
		return a.GreaterThan(b)
	}
	return a.LessThan(b)
}

func sortBestFirst(orders []*Order, s Side) {
	sort.SliceStable(orders, func(i, j int) bool {
		return better(s, orders[i].price, orders[j].price)
	})
}

// insert places o behind every order at an equal or better price.
func (ob *OrderBook) insert(o *Order) {
	side := ob.side(o.side)
	i := sort.Search(len(*side), func(i int) bool {
		return better(o.side, o.price, (*side)[i].price)
	})
	*side = append(*side, nil)
	copy((*side)[i+1:], (*side)[i:])
	(*side)[i] = o
}

func removeFilled(orders []*Order) []*Order {
	kept := orders[:0]
	for _, o := range orders {
		if o.remaining > 0 {
			kept = append(kept, o)
		}
	}
	for i := len(kept); i < len(orders); i++ {
		orders[i] = nil
	}
	return kept
}

// Place rests a limit good-till-cancel order without matching it. It is meant
// for seeding liquidity; the book keeps its own copy.
func (ob *OrderBook) Place(o *Order) error {
	if o.kind != Limit || o.tif != GoodTillCancel {
		return fmt.Errorf("order %d %s/%s: %w", o.id, o.kind, o.tif, ErrNotRestable)
	}
	if o.remaining <= 0 {
		return fmt.Errorf("order %d: %w", o.id, ErrInvalidQuantity)
	}
	ob.mu.Lock()
	defer ob.mu.Unlock()

	cp := *o
	ob.insert(&cp)
	return nil
}

// Cancel removes a resting order. It returns false if id is not on the book.
func (ob *OrderBook) Cancel(id uint64) bool {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	for _, side := range []*[]*Order{&ob.bids, &ob.asks} {
		for i, o := range *side {
			if o.id == id {
				last := len(*side) - 1
				copy((*side)[i:], (*side)[i+1:])
				(*side)[last] = nil
				*side = (*side)[:last]
				return true
			}
		}
	}
	return false
}

// Clear removes every resting order.
func (ob *OrderBook) Clear() {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	ob.bids = nil
	ob.asks = nil
}

// Bids returns a best-first copy of the buy side.
func (ob *OrderBook) Bids() []Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return snapshot(ob.bids)
}

// Asks returns a best-first copy of the sell side.
func (ob *OrderBook) Asks() []Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return snapshot(ob.asks)
}

func snapshot(orders []*Order) []Order {
	out := make([]Order, len(orders))
	for i, o := range orders {
		out[i] = *o
	}
	return out
}

// Levels aggregates one side by price, best price first.
func (ob *OrderBook) Levels(s Side) []PriceLevel {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	var levels []PriceLevel
	for _, o := range *ob.side(s) {
		if n := len(levels); n > 0 && levels[n-1].Price.Equal(o.price) {
			levels[n-1].Qty += o.remaining
			levels[n-1].Orders++
			continue
		}
		levels = append(levels, PriceLevel{Price: o.price, Qty: o.remaining, Orders: 1})
	}
	return levels
}

// BestBid returns the highest bid price.
func (ob *OrderBook) BestBid() (decimal.Decimal, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	if len(ob.bids) == 0 {
		return decimal.Zero, false
	}
	return ob.bids[0].price, true
}

// BestAsk returns the lowest ask price.
func (ob *OrderBook) BestAsk() (decimal.Decimal, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	if len(ob.asks) == 0 {
		return decimal.Zero, false
	}
	return ob.asks[0].price, true
}

// Spread returns best ask minus best bid; false if either side is empty.
func (ob *OrderBook) Spread() (decimal.Decimal, bool) {
	bid, okBid := ob.BestBid()
	ask, okAsk := ob.BestAsk()
	if !okBid || !okAsk {
		return decimal.Zero, false
	}
	return ask.Sub(bid), true
}

// LastPrice returns the price of the most recent fill, zero before any trade.
func (ob *OrderBook) LastPrice() decimal.Decimal {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.lastPrice
}

// Len returns the number of resting bids and asks.
func (ob *OrderBook) Len() (bids, asks int) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return len(ob.bids), len(ob.asks)
}
