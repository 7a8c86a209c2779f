package exchange

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/lobsim/params"
	"github.com/uhyunpark/lobsim/pkg/app/core/orderbook"
)

var (
	hundred  = decimal.NewFromInt(100)
	minPrice = decimal.New(1, -2) // 0.01
)

// Quote is one synthetic resting order.
type Quote struct {
	Side  orderbook.Side
	Price decimal.Decimal
	Qty   int64
}

// Generator produces day-over-day price moves, the synthetic liquidity
// placed around each day's price, and random taker flow.
type Generator struct {
	cfg params.Liquidity
	rng *rand.Rand
}

// NewGenerator validates cfg and seeds the generator. A zero seed uses the clock.
func NewGenerator(cfg params.Liquidity) (*Generator, error) {
	if cfg.Levels < 0 {
		return nil, fmt.Errorf("seed levels cannot be negative: %d", cfg.Levels)
	}
	if cfg.MinQty <= 0 || cfg.MaxQty < cfg.MinQty {
		return nil, fmt.Errorf("seed quantity range [%d, %d] invalid", cfg.MinQty, cfg.MaxQty)
	}
	if cfg.MinOffsetPct.IsNegative() || cfg.MaxOffsetPct.LessThan(cfg.MinOffsetPct) {
		return nil, fmt.Errorf("seed offset range [%s%%, %s%%] invalid", cfg.MinOffsetPct, cfg.MaxOffsetPct)
	}
	if cfg.MinMovePct < 0 || cfg.MaxMovePct < cfg.MinMovePct {
		return nil, fmt.Errorf("daily move range [%d%%, %d%%] invalid", cfg.MinMovePct, cfg.MaxMovePct)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}, nil
}

// NextPrice moves prev by a whole percentage in [MinMovePct, MaxMovePct],
// up or down with equal probability.
func (g *Generator) NextPrice(prev decimal.Decimal) decimal.Decimal {
	pct := g.cfg.MinMovePct + g.rng.Intn(g.cfg.MaxMovePct-g.cfg.MinMovePct+1)
	change := prev.Mul(decimal.NewFromInt(int64(pct))).Div(hundred)
	if g.rng.Intn(2) == 0 {
		return prev.Sub(change)
	}
	return prev.Add(change)
}

// offset draws a fractional distance from the day's price for one level.
func (g *Generator) offset(level int) decimal.Decimal {
	span := g.cfg.MaxOffsetPct.Sub(g.cfg.MinOffsetPct)
	pct := g.cfg.MinOffsetPct.Add(span.Mul(decimal.NewFromFloat(g.rng.Float64())))
	return pct.Mul(decimal.NewFromInt(int64(level))).Div(hundred)
}

func (g *Generator) qty() int64 {
	return g.cfg.MinQty + g.rng.Int63n(g.cfg.MaxQty-g.cfg.MinQty+1)
}

// Quotes builds Levels bids below and Levels asks above price, alternating
// bid and ask per level. Prices never fall below 0.01.
func (g *Generator) Quotes(price decimal.Decimal) []Quote {
	one := decimal.NewFromInt(1)
	quotes := make([]Quote, 0, 2*g.cfg.Levels)
	for i := 1; i <= g.cfg.Levels; i++ {
		bid := price.Mul(one.Sub(g.offset(i)))
		if !bid.IsPositive() {
			bid = decimal.Max(minPrice, price.Div(decimal.NewFromInt(2)))
		}
		quotes = append(quotes, Quote{Side: orderbook.Buy, Price: bid, Qty: g.qty()})

		ask := price.Mul(one.Add(g.offset(i)))
		quotes = append(quotes, Quote{Side: orderbook.Sell, Price: ask, Qty: g.qty()})
	}
	return quotes
}

// FlowOrder describes a random taker order around price.
type FlowOrder struct {
	Side  orderbook.Side
	Kind  orderbook.Kind
	TIF   orderbook.TimeInForce
	Price decimal.Decimal
	Qty   int64
}

// RandomOrder draws a taker: 70% limit GTC, 10% limit FOK, 15% market IOC,
// 5% market FOK, priced within ±2% of price.
func (g *Generator) RandomOrder(price decimal.Decimal) FlowOrder {
	o := FlowOrder{Side: orderbook.Buy, Kind: orderbook.Limit, TIF: orderbook.GoodTillCancel}
	if g.rng.Intn(2) == 1 {
		o.Side = orderbook.Sell
	}

	switch r := g.rng.Intn(100); {
	case r < 70:
	case r < 80:
		o.TIF = orderbook.FillOrKill
	case r < 95:
		o.Kind, o.TIF = orderbook.Market, orderbook.ImmediateOrCancel
	default:
		o.Kind, o.TIF = orderbook.Market, orderbook.FillOrKill
	}

	bps := int64(g.rng.Intn(401) - 200) // ±200 bps
	o.Price = price.Mul(decimal.NewFromInt(10000 + bps)).Div(decimal.NewFromInt(10000))
	if !o.Price.IsPositive() {
		o.Price = minPrice
	}
	o.Qty = g.qty()
	return o
}
