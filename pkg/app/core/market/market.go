package market

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

var ErrMarketPaused = errors.New("market is paused")

// Status defines the trading status of the market
type Status int8

const (
	Active Status = iota // Trading enabled
	Paused               // Trading halted
)

func (s Status) String() string {
	switch s {
	case Active:
		return "Active"
	case Paused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// Market describes the single instrument traded by the book (e.g., ACME-USD).
type Market struct {
	Symbol     string // "ACME-USD"
	BaseAsset  string // "ACME"
	QuoteAsset string // "USD"

	// TickSize: minimum price increment for generated prices (e.g., 0.01)
	TickSize decimal.Decimal

	mu     sync.RWMutex
	status Status
}

// NewMarket creates an active market with validation
func NewMarket(symbol, baseAsset, quoteAsset string, tickSize decimal.Decimal) (*Market, error) {
	m := &Market{
		Symbol:     symbol,
		BaseAsset:  baseAsset,
		QuoteAsset: quoteAsset,
		TickSize:   tickSize,
		status:     Active,
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid market params: %w", err)
	}
	return m, nil
}

// Validate checks market parameter sanity
func (m *Market) Validate() error {
	if m.Symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if m.BaseAsset == "" || m.QuoteAsset == "" {
		return fmt.Errorf("base and quote assets must be specified")
	}
	if !m.TickSize.IsPositive() {
		return fmt.Errorf("tick size must be positive")
	}
	return nil
}

// RoundToTick rounds price to the nearest multiple of TickSize, never below
// one tick.
func (m *Market) RoundToTick(price decimal.Decimal) decimal.Decimal {
	ticks := price.Div(m.TickSize).Round(0)
	if ticks.LessThan(decimal.NewFromInt(1)) {
		return m.TickSize
	}
	return ticks.Mul(m.TickSize)
}

// FloorToTick rounds price down to a multiple of TickSize. Prices below one
// tick become zero.
func (m *Market) FloorToTick(price decimal.Decimal) decimal.Decimal {
	return price.Div(m.TickSize).Floor().Mul(m.TickSize)
}

// CeilToTick rounds price up to a multiple of TickSize.
func (m *Market) CeilToTick(price decimal.Decimal) decimal.Decimal {
	return price.Div(m.TickSize).Ceil().Mul(m.TickSize)
}

func (m *Market) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Pause halts trading; submissions are refused until Resume.
func (m *Market) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = Paused
}

func (m *Market) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = Active
}

// CheckTradable returns ErrMarketPaused unless the market is active.
func (m *Market) CheckTradable() error {
	if s := m.Status(); s != Active {
		return fmt.Errorf("market %s (status: %s): %w", m.Symbol, s, ErrMarketPaused)
	}
	return nil
}
