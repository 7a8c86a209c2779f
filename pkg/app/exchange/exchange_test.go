package exchange

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/uhyunpark/lobsim/params"
	"github.com/uhyunpark/lobsim/pkg/app/core/market"
	"github.com/uhyunpark/lobsim/pkg/app/core/orderbook"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var epoch = time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

func px(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testConfig() params.Config {
	cfg := params.Default()
	cfg.Liquidity.Seed = 42
	return cfg
}

func newExchange(t *testing.T, cfg params.Config) *Exchange {
	t.Helper()
	e, err := New(cfg, zap.NewNop().Sugar(), WithClock(fixedClock{epoch}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// seed places a resting limit order without going through the session.
func seed(t *testing.T, e *Exchange, side orderbook.Side, price string, qty int64) *orderbook.Order {
	t.Helper()
	o, err := e.Book().NewOrder(side, orderbook.Limit, orderbook.GoodTillCancel, px(price), qty)
	require.NoError(t, err)
	require.NoError(t, e.Book().Place(o))
	return o
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*params.Config)
	}{
		{"zero reference price", func(c *params.Config) { c.Market.ReferencePrice = decimal.Zero }},
		{"negative balance", func(c *params.Config) { c.Portfolio.InitialBalance = decimal.NewFromInt(-1) }},
		{"empty symbol", func(c *params.Config) { c.Market.Symbol = "" }},
		{"zero tick", func(c *params.Config) { c.Market.TickSize = decimal.Zero }},
		{"inverted qty range", func(c *params.Config) { c.Liquidity.MinQty, c.Liquidity.MaxQty = 50, 10 }},
		{"inverted move range", func(c *params.Config) { c.Liquidity.MinMovePct, c.Liquidity.MaxMovePct = 3, 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := New(cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestSimulateDaySeedsBothSides(t *testing.T) {
	cfg := testConfig()
	e := newExchange(t, cfg)

	require.NoError(t, e.SimulateDay())
	assert.Equal(t, 1, e.Day())
	move := e.ReferencePrice().Sub(px("100")).Abs()
	assert.True(t, move.GreaterThanOrEqual(px("1")) && move.LessThanOrEqual(px("3")),
		"first day moves off the configured price, got %s", e.ReferencePrice())

	bids, asks := e.Book().Len()
	assert.Equal(t, cfg.Liquidity.Levels, bids)
	assert.Equal(t, cfg.Liquidity.Levels, asks)

	bestBid, ok := e.Book().BestBid()
	require.True(t, ok)
	bestAsk, ok := e.Book().BestAsk()
	require.True(t, ok)
	assert.True(t, bestBid.LessThan(e.ReferencePrice()))
	assert.True(t, bestAsk.GreaterThan(e.ReferencePrice()))

	for _, o := range append(e.Book().Bids(), e.Book().Asks()...) {
		assert.True(t, o.Price().Equal(e.Market().RoundToTick(o.Price())), "price %s off tick", o.Price())
		assert.GreaterOrEqual(t, o.RemainingQty(), cfg.Liquidity.MinQty)
		assert.LessOrEqual(t, o.RemainingQty(), cfg.Liquidity.MaxQty)
	}
}

func TestSimulateDayMovesPriceAndReplacesBook(t *testing.T) {
	e := newExchange(t, testConfig())
	require.NoError(t, e.SimulateDay())
	user, err := e.SubmitLimit(orderbook.Buy, orderbook.GoodTillCancel, px("50"), 1)
	require.NoError(t, err)
	require.True(t, user.Rested())

	prev := e.ReferencePrice()
	require.NoError(t, e.SimulateDay())
	assert.Equal(t, 2, e.Day())

	move := e.ReferencePrice().Sub(prev).Abs().Div(prev).Mul(decimal.NewFromInt(100))
	assert.True(t, move.GreaterThanOrEqual(px("0.99")) && move.LessThanOrEqual(px("3.01")), "move %s%%", move)
	assert.False(t, e.Book().Cancel(user.RestedOrderID), "a new day clears yesterday's orders")
}

func TestSubmitMarketBuySettlesPortfolio(t *testing.T) {
	cfg := testConfig()
	cfg.Liquidity.Levels = 0
	e := newExchange(t, cfg)
	seed(t, e, orderbook.Sell, "100.00", 5)
	seed(t, e, orderbook.Sell, "101.00", 5)

	out, err := e.SubmitMarket(orderbook.Buy, orderbook.FillOrKill, 8)
	require.NoError(t, err)

	assert.Equal(t, orderbook.ResultExecuted, out.Result)
	assert.True(t, out.FullyFilled)
	assert.True(t, px("803").Equal(out.Notional))
	assert.True(t, px("9197").Equal(e.Portfolio().Balance()))
	assert.Equal(t, int64(8), e.Portfolio().Holdings())

	fills, err := e.RecentFills(0)
	require.NoError(t, err)
	require.Len(t, fills, 2)
	assert.True(t, px("101.00").Equal(fills[0].Price), "newest first")
	assert.Equal(t, int64(3), fills[0].Qty)
	assert.True(t, epoch.Equal(fills[0].Time))

	outcomes, err := e.Outcomes()
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "executed", outcomes[0].Result)
	assert.Equal(t, "FOK", outcomes[0].TimeInForce)
}

func TestSubmitMarketSellFallsBackToReferencePrice(t *testing.T) {
	cfg := testConfig()
	cfg.Liquidity.Levels = 0
	e := newExchange(t, cfg)

	out, err := e.SubmitMarket(orderbook.Sell, orderbook.ImmediateOrCancel, 4)
	require.NoError(t, err)

	assert.Equal(t, orderbook.ResultCanceledNoLiquidity, out.Result)
	assert.ErrorIs(t, out.Err(), orderbook.ErrCanceledNoLiquidity)
	assert.Equal(t, int64(4), out.CanceledQty)
	assert.True(t, px("10000").Equal(e.Portfolio().Balance()))
}

func TestSubmitLimitRestsAndCancels(t *testing.T) {
	cfg := testConfig()
	cfg.Liquidity.Levels = 0
	e := newExchange(t, cfg)
	seed(t, e, orderbook.Sell, "105.00", 10)

	out, err := e.SubmitLimit(orderbook.Buy, orderbook.GoodTillCancel, px("99.999"), 3)
	require.NoError(t, err)
	require.Equal(t, orderbook.ResultRested, out.Result)

	best, ok := e.Book().BestBid()
	require.True(t, ok)
	assert.True(t, px("100.00").Equal(best), "price rounds to the tick")

	assert.True(t, e.Cancel(out.RestedOrderID))
	assert.False(t, e.Cancel(out.RestedOrderID))
	_, ok = e.Book().BestBid()
	assert.False(t, ok)
}

func TestSubmitLimitInvalidInput(t *testing.T) {
	e := newExchange(t, testConfig())

	_, err := e.SubmitLimit(orderbook.Buy, orderbook.GoodTillCancel, decimal.Zero, 1)
	assert.ErrorIs(t, err, orderbook.ErrInvalidPrice)

	_, err = e.SubmitLimit(orderbook.Buy, orderbook.GoodTillCancel, px("10"), 0)
	assert.ErrorIs(t, err, orderbook.ErrInvalidQuantity)
}

func TestSubmitIllegalPairRejectedAtCreation(t *testing.T) {
	cfg := testConfig()
	cfg.Liquidity.Levels = 0
	e := newExchange(t, cfg)
	seed(t, e, orderbook.Sell, "100.00", 10)

	_, err := e.SubmitMarket(orderbook.Buy, orderbook.GoodTillCancel, 1)
	assert.ErrorIs(t, err, orderbook.ErrInvalidTimeInForce)
	_, err = e.SubmitLimit(orderbook.Buy, orderbook.ImmediateOrCancel, px("100"), 1)
	assert.ErrorIs(t, err, orderbook.ErrInvalidTimeInForce)

	assert.Zero(t, e.Portfolio().Holdings())
	outcomes, err := e.Outcomes()
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}

func TestSubmitRefusedWhenPaused(t *testing.T) {
	e := newExchange(t, testConfig())
	require.NoError(t, e.SimulateDay())
	e.Market().Pause()

	_, err := e.SubmitMarket(orderbook.Buy, orderbook.ImmediateOrCancel, 1)
	assert.True(t, errors.Is(err, market.ErrMarketPaused))

	outcomes, err := e.Outcomes()
	require.NoError(t, err)
	assert.Empty(t, outcomes, "refused orders never reach the tape")

	e.Market().Resume()
	out, err := e.SubmitMarket(orderbook.Buy, orderbook.ImmediateOrCancel, 1)
	require.NoError(t, err)
	assert.Equal(t, orderbook.ResultExecuted, out.Result)
}

func TestSellSettlesCash(t *testing.T) {
	cfg := testConfig()
	cfg.Liquidity.Levels = 0
	e := newExchange(t, cfg)
	seed(t, e, orderbook.Buy, "120.00", 10)

	out, err := e.SubmitLimit(orderbook.Sell, orderbook.FillOrKill, px("119.00"), 4)
	require.NoError(t, err)

	assert.True(t, out.FullyFilled)
	assert.True(t, px("10480").Equal(e.Portfolio().Balance()))
	assert.Equal(t, int64(-4), e.Portfolio().Holdings())
	assert.True(t, px("120.00").Equal(e.Snapshot().LastPrice))
}

func TestFlowLeavesPortfolioAlone(t *testing.T) {
	e := newExchange(t, testConfig())
	require.NoError(t, e.SimulateDay())

	_, err := e.Flow(200)
	require.NoError(t, err)

	snap := e.Snapshot()
	assert.True(t, px("10000").Equal(snap.Portfolio.Balance))
	assert.Zero(t, snap.Portfolio.Holdings)
	fills, err := e.RecentFills(0)
	require.NoError(t, err)
	assert.Empty(t, fills)

	if len(snap.Bids) > 0 && len(snap.Asks) > 0 {
		assert.True(t, snap.Bids[0].Price.LessThan(snap.Asks[0].Price), "book must not cross")
	}
}

func TestSnapshotLevels(t *testing.T) {
	cfg := testConfig()
	cfg.Liquidity.Levels = 0
	e := newExchange(t, cfg)
	seed(t, e, orderbook.Buy, "99.00", 5)
	seed(t, e, orderbook.Buy, "99.00", 7)
	seed(t, e, orderbook.Buy, "98.00", 1)
	seed(t, e, orderbook.Sell, "101.00", 2)

	snap := e.Snapshot()
	assert.Equal(t, "ACME-USD", snap.Symbol)
	require.Len(t, snap.Bids, 2)
	assert.Equal(t, int64(12), snap.Bids[0].Qty)
	assert.Equal(t, 2, snap.Bids[0].Orders)
	require.Len(t, snap.Asks, 1)
}

func TestSubmitLimitBuyNeverRoundsUp(t *testing.T) {
	cfg := testConfig()
	cfg.Liquidity.Levels = 0
	e := newExchange(t, cfg)
	seed(t, e, orderbook.Sell, "50.01", 10)

	out, err := e.SubmitLimit(orderbook.Buy, orderbook.GoodTillCancel, px("50.005"), 10)
	require.NoError(t, err)

	assert.Equal(t, orderbook.ResultRested, out.Result)
	assert.Zero(t, out.Filled)
	best, ok := e.Book().BestBid()
	require.True(t, ok)
	assert.True(t, px("50.00").Equal(best), "buy rounds down, got %s", best)

	_, err = e.SubmitLimit(orderbook.Buy, orderbook.GoodTillCancel, px("0.004"), 1)
	assert.ErrorIs(t, err, orderbook.ErrInvalidPrice)
}

func TestSubmitLimitSellNeverRoundsDown(t *testing.T) {
	cfg := testConfig()
	cfg.Liquidity.Levels = 0
	e := newExchange(t, cfg)
	seed(t, e, orderbook.Buy, "49.99", 10)

	out, err := e.SubmitLimit(orderbook.Sell, orderbook.GoodTillCancel, px("49.995"), 10)
	require.NoError(t, err)

	assert.Equal(t, orderbook.ResultRested, out.Result)
	assert.Zero(t, out.Filled)
	best, ok := e.Book().BestAsk()
	require.True(t, ok)
	assert.True(t, px("50.00").Equal(best), "sell rounds up, got %s", best)

	// Rounding up keeps a sub-tick sell at or above what the user asked for.
	require.True(t, e.Cancel(out.RestedOrderID))
	seed(t, e, orderbook.Buy, "50.00", 5)
	out, err = e.SubmitLimit(orderbook.Sell, orderbook.FillOrKill, px("50.004"), 5)
	require.NoError(t, err)
	assert.Equal(t, orderbook.ResultCanceledInsufficientLiquidity, out.Result)
}

func TestPausedMarketDoesNotConsumeIDs(t *testing.T) {
	cfg := testConfig()
	cfg.Liquidity.Levels = 0
	e := newExchange(t, cfg)
	first := seed(t, e, orderbook.Sell, "100.00", 10)

	e.Market().Pause()
	_, err := e.SubmitMarket(orderbook.Buy, orderbook.ImmediateOrCancel, 1)
	assert.ErrorIs(t, err, market.ErrMarketPaused)
	_, err = e.SubmitLimit(orderbook.Buy, orderbook.GoodTillCancel, px("99"), 1)
	assert.ErrorIs(t, err, market.ErrMarketPaused)
	assert.Equal(t, first.ID(), e.Book().IDs().Last())

	e.Market().Resume()
	out, err := e.SubmitMarket(orderbook.Buy, orderbook.ImmediateOrCancel, 1)
	require.NoError(t, err)
	assert.Equal(t, first.ID()+1, out.TakerID)
}

func TestVerboseLogsFillsAtInfo(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := testConfig()
	cfg.Liquidity.Levels = 0
	cfg.Log.Verbose = true
	e, err := New(cfg, zap.New(core).Sugar(), WithClock(fixedClock{epoch}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	seed(t, e, orderbook.Sell, "100.00", 2)
	seed(t, e, orderbook.Sell, "101.00", 2)

	_, err = e.SubmitMarket(orderbook.Buy, orderbook.ImmediateOrCancel, 3)
	require.NoError(t, err)

	fills := logs.FilterMessage("fill").All()
	require.Len(t, fills, 2)
	assert.Equal(t, zapcore.InfoLevel, fills[0].Level)
	assert.Equal(t, int64(2), fills[0].ContextMap()["qty"])
	assert.Equal(t, int64(1), fills[1].ContextMap()["qty"])
}
