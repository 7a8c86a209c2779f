package account

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/lobsim/pkg/app/core/orderbook"
)

// Portfolio tracks the trader's cash balance and base-asset holdings.
// It performs no affordability checks: the book never consults it and
// balances may go negative.
type Portfolio struct {
	mu sync.RWMutex

	balance  decimal.Decimal // quote asset
	holdings int64           // base asset units

	// Cumulative statistics
	tradeCount  int64
	totalVolume decimal.Decimal // lifetime traded notional
}

// NewPortfolio creates a portfolio holding balance in cash and nothing else.
func NewPortfolio(balance decimal.Decimal) *Portfolio {
	return &Portfolio{balance: balance, totalVolume: decimal.Zero}
}

func (p *Portfolio) Balance() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.balance
}

func (p *Portfolio) SetBalance(balance decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balance = balance
}

func (p *Portfolio) Holdings() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.holdings
}

// Deposit adds cash to the balance
func (p *Portfolio) Deposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("deposit amount must be positive: %s", amount)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balance = p.balance.Add(amount)
	return nil
}

// Settle books an execution of qty units for notional on side: buys pay cash
// and receive holdings, sells the reverse.
func (p *Portfolio) Settle(side orderbook.Side, qty int64, notional decimal.Decimal) {
	if qty == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	switch side {
	case orderbook.Buy:
		p.balance = p.balance.Sub(notional)
		p.holdings += qty
	case orderbook.Sell:
		p.balance = p.balance.Add(notional)
		p.holdings -= qty
	default:
		panic(fmt.Sprintf("account: settle on unknown side %d", side))
	}
	p.tradeCount++
	p.totalVolume = p.totalVolume.Add(notional)
}

// Snapshot is a point-in-time copy of the portfolio.
type Snapshot struct {
	Balance     decimal.Decimal
	Holdings    int64
	TradeCount  int64
	TotalVolume decimal.Decimal
}

func (p *Portfolio) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Snapshot{
		Balance:     p.balance,
		Holdings:    p.holdings,
		TradeCount:  p.tradeCount,
		TotalVolume: p.totalVolume,
	}
}
