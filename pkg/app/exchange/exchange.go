package exchange

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/lobsim/params"
	"github.com/uhyunpark/lobsim/pkg/app/core/account"
	"github.com/uhyunpark/lobsim/pkg/app/core/market"
	"github.com/uhyunpark/lobsim/pkg/app/core/orderbook"
	"github.com/uhyunpark/lobsim/pkg/storage"
	"github.com/uhyunpark/lobsim/pkg/util"
)

// Exchange is one trading session: a single market, its book, the user's
// portfolio and the tape of everything that happened.
type Exchange struct {
	mu sync.Mutex

	log     *zap.SugaredLogger
	clock   util.Clock
	verbose bool

	market    *market.Market
	book      *orderbook.OrderBook
	portfolio *account.Portfolio
	tape      *storage.Tape
	gen       *Generator

	day      int
	refPrice decimal.Decimal
}

type Option func(*Exchange)

// WithClock overrides the clock used to timestamp tape records.
func WithClock(c util.Clock) Option {
	return func(e *Exchange) { e.clock = c }
}

// New builds a session from cfg. The book starts empty; call SimulateDay to
// seed it.
func New(cfg params.Config, logger *zap.SugaredLogger, opts ...Option) (*Exchange, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if !cfg.Market.ReferencePrice.IsPositive() {
		return nil, fmt.Errorf("reference price must be positive: %s", cfg.Market.ReferencePrice)
	}
	if cfg.Portfolio.InitialBalance.IsNegative() {
		return nil, fmt.Errorf("initial balance cannot be negative: %s", cfg.Portfolio.InitialBalance)
	}

	m, err := market.NewMarket(cfg.Market.Symbol, cfg.Market.BaseAsset, cfg.Market.QuoteAsset, cfg.Market.TickSize)
	if err != nil {
		return nil, err
	}
	gen, err := NewGenerator(cfg.Liquidity)
	if err != nil {
		return nil, err
	}
	tape, err := storage.OpenTape()
	if err != nil {
		return nil, err
	}

	e := &Exchange{
		log:       logger,
		clock:     util.RealClock{},
		verbose:   cfg.Log.Verbose,
		market:    m,
		book:      orderbook.NewOrderBook(nil),
		portfolio: account.NewPortfolio(cfg.Portfolio.InitialBalance),
		tape:      tape,
		gen:       gen,
		refPrice:  m.RoundToTick(cfg.Market.ReferencePrice),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.log.Infow("exchange_ready",
		"symbol", m.Symbol,
		"reference_price", e.refPrice.String(),
		"balance", e.portfolio.Balance().String(),
	)
	return e, nil
}

func (e *Exchange) Market() *market.Market        { return e.market }
func (e *Exchange) Book() *orderbook.OrderBook    { return e.book }
func (e *Exchange) Portfolio() *account.Portfolio { return e.portfolio }
func (e *Exchange) Tape() *storage.Tape           { return e.tape }

func (e *Exchange) Day() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.day
}

func (e *Exchange) ReferencePrice() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refPrice
}

// SimulateDay moves the reference price, drops every resting order and seeds
// fresh liquidity around the new price. The first day moves away from the
// configured reference price too.
func (e *Exchange) SimulateDay() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.market.RoundToTick(e.gen.NextPrice(e.refPrice))
	e.log.Infow("price_moved", "day", e.day+1, "from", e.refPrice.String(), "to", next.String())
	e.refPrice = next

	e.book.Clear()
	for _, q := range e.gen.Quotes(e.refPrice) {
		o, err := e.book.NewOrder(q.Side, orderbook.Limit, orderbook.GoodTillCancel, e.market.RoundToTick(q.Price), q.Qty)
		if err != nil {
			return fmt.Errorf("seed %s order: %w", q.Side, err)
		}
		if err := e.book.Place(o); err != nil {
			return fmt.Errorf("seed %s order: %w", q.Side, err)
		}
	}
	e.day++

	bids, asks := e.book.Len()
	e.log.Infow("day_started", "day", e.day, "reference_price", e.refPrice.String(), "bids", bids, "asks", asks)
	return nil
}

// marketReference picks the price stamped on a market order: the best
// opposite price, else the day's reference price.
func (e *Exchange) marketReference(side orderbook.Side) decimal.Decimal {
	best := e.book.BestAsk
	if side == orderbook.Sell {
		best = e.book.BestBid
	}
	if px, ok := best(); ok {
		return px
	}
	return e.ReferencePrice()
}

// SubmitMarket submits a market order. Market orders only accept FOK or IOC.
func (e *Exchange) SubmitMarket(side orderbook.Side, tif orderbook.TimeInForce, qty int64) (orderbook.MatchOutcome, error) {
	if err := e.market.CheckTradable(); err != nil {
		return orderbook.MatchOutcome{}, err
	}
	o, err := e.book.NewOrder(side, orderbook.Market, tif, e.marketReference(side), qty)
	if err != nil {
		return orderbook.MatchOutcome{}, err
	}
	return e.Submit(o)
}

// SubmitLimit submits a limit order at price. Off-tick prices move to the
// tick on the user's safe side: buys round down, sells round up. A buy below
// one tick rounds to zero and is rejected.
func (e *Exchange) SubmitLimit(side orderbook.Side, tif orderbook.TimeInForce, price decimal.Decimal, qty int64) (orderbook.MatchOutcome, error) {
	if err := e.market.CheckTradable(); err != nil {
		return orderbook.MatchOutcome{}, err
	}
	if price.IsPositive() {
		if side == orderbook.Sell {
			price = e.market.CeilToTick(price)
		} else {
			price = e.market.FloorToTick(price)
		}
	}
	o, err := e.book.NewOrder(side, orderbook.Limit, tif, price, qty)
	if err != nil {
		return orderbook.MatchOutcome{}, err
	}
	return e.Submit(o)
}

// Submit matches o against the book, settles the portfolio and journals the
// fills. The returned error is non-nil only when the market refuses orders;
// policy rejections and cancellations are reported through the outcome.
func (e *Exchange) Submit(o *orderbook.Order) (orderbook.MatchOutcome, error) {
	if err := e.market.CheckTradable(); err != nil {
		return orderbook.MatchOutcome{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	out := e.book.Submit(o)
	if out.Filled > 0 {
		e.portfolio.Settle(out.Side, out.Filled, out.Notional)
	}
	e.journal(o, out)

	fields := []any{
		"taker", out.TakerID,
		"side", o.Side().String(),
		"kind", o.Kind().String(),
		"tif", o.TimeInForce().String(),
		"qty", o.OriginalQty(),
		"result", out.Result.String(),
		"filled", out.Filled,
		"notional", out.Notional.String(),
	}
	if out.Rested() {
		fields = append(fields, "rested_id", out.RestedOrderID, "rested_qty", out.RestedQty)
	}
	if out.CanceledQty > 0 {
		fields = append(fields, "canceled_qty", out.CanceledQty)
	}
	e.log.Infow("order_submitted", fields...)
	if e.verbose {
		for _, f := range out.Fills {
			e.log.Infow("fill", "taker", f.TakerID, "maker", f.MakerID, "price", f.Price.String(), "qty", f.Qty)
		}
	}
	return out, nil
}

func (e *Exchange) journal(o *orderbook.Order, out orderbook.MatchOutcome) {
	now := e.clock.Now()
	for _, f := range out.Fills {
		_, err := e.tape.RecordFill(storage.FillRecord{
			Day:     e.day,
			TakerID: f.TakerID,
			MakerID: f.MakerID,
			Side:    f.Side.String(),
			Price:   f.Price,
			Qty:     f.Qty,
			Time:    now,
		})
		if err != nil {
			e.log.Warnw("tape_fill_failed", "taker", f.TakerID, "err", err)
		}
	}
	_, err := e.tape.RecordOutcome(storage.OutcomeRecord{
		Day:           e.day,
		TakerID:       out.TakerID,
		Side:          o.Side().String(),
		Kind:          o.Kind().String(),
		TimeInForce:   o.TimeInForce().String(),
		Result:        out.Result.String(),
		Filled:        out.Filled,
		Notional:      out.Notional,
		VWAP:          out.VWAP(),
		RestedOrderID: out.RestedOrderID,
		RestedQty:     out.RestedQty,
		CanceledQty:   out.CanceledQty,
		Time:          now,
	})
	if err != nil {
		e.log.Warnw("tape_outcome_failed", "taker", out.TakerID, "err", err)
	}
}

// Cancel removes a resting order by id.
func (e *Exchange) Cancel(id uint64) bool {
	ok := e.book.Cancel(id)
	e.log.Infow("order_cancel", "id", id, "found", ok)
	return ok
}

// Flow submits n random taker orders around the current reference price,
// as if other participants were trading. Their fills do not touch the
// portfolio.
func (e *Exchange) Flow(n int) (executed int, err error) {
	if err := e.market.CheckTradable(); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := 0; i < n; i++ {
		f := e.gen.RandomOrder(e.refPrice)
		o, err := e.book.NewOrder(f.Side, f.Kind, f.TIF, e.market.RoundToTick(f.Price), f.Qty)
		if err != nil {
			return executed, fmt.Errorf("flow order: %w", err)
		}
		out := e.book.Submit(o)
		if out.Filled > 0 {
			executed++
		}
	}
	e.log.Infow("flow_done", "orders", n, "executed", executed, "last_price", e.book.LastPrice().String())
	return executed, nil
}

// Snapshot is a point-in-time view of the session.
type Snapshot struct {
	Symbol         string
	Day            int
	ReferencePrice decimal.Decimal
	LastPrice      decimal.Decimal
	Bids           []orderbook.PriceLevel
	Asks           []orderbook.PriceLevel
	Portfolio      account.Snapshot
}

func (e *Exchange) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Symbol:         e.market.Symbol,
		Day:            e.day,
		ReferencePrice: e.refPrice,
		LastPrice:      e.book.LastPrice(),
		Bids:           e.book.Levels(orderbook.Buy),
		Asks:           e.book.Levels(orderbook.Sell),
		Portfolio:      e.portfolio.Snapshot(),
	}
}

// RecentFills returns up to limit journaled fills, newest first.
func (e *Exchange) RecentFills(limit int) ([]storage.FillRecord, error) {
	return e.tape.RecentFills(limit)
}

// Outcomes returns every journaled submission in order.
func (e *Exchange) Outcomes() ([]storage.OutcomeRecord, error) {
	return e.tape.Outcomes()
}

func (e *Exchange) Close() error {
	e.log.Infow("exchange_closed", "day", e.day)
	return e.tape.Close()
}
