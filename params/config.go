package params

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Market struct {
	Symbol     string
	BaseAsset  string
	QuoteAsset string
	TickSize   decimal.Decimal
	// ReferencePrice anchors the first day's synthetic liquidity.
	ReferencePrice decimal.Decimal
}

// Liquidity shapes the synthetic book generated at the start of each day.
//
// Level i (1-based) on each side sits at price*(1 ± i*u) with u drawn from
// [MinOffsetPct, MaxOffsetPct] percent; quantities are drawn from
// [MinQty, MaxQty]. Each new day moves the price by a whole percentage drawn
// from [MinMovePct, MaxMovePct], up or down with equal probability.
type Liquidity struct {
	Levels       int
	MinQty       int64
	MaxQty       int64
	MinOffsetPct decimal.Decimal
	MaxOffsetPct decimal.Decimal
	MinMovePct   int
	MaxMovePct   int
	// Seed for the generator; 0 seeds from the clock.
	Seed int64
}

type Portfolio struct {
	InitialBalance decimal.Decimal
}

type Log struct {
	File    string
	Level   string
	Verbose bool
}

type Config struct {
	Market    Market
	Liquidity Liquidity
	Portfolio Portfolio
	Log       Log
}

func Default() Config {
	return Config{
		Market: Market{
			Symbol:         "ACME-USD",
			BaseAsset:      "ACME",
			QuoteAsset:     "USD",
			TickSize:       decimal.New(1, -2),
			ReferencePrice: decimal.NewFromInt(100),
		},
		Liquidity: Liquidity{
			Levels:       5,
			MinQty:       10,
			MaxQty:       500,
			MinOffsetPct: decimal.New(5, -2), // 0.05%
			MaxOffsetPct: decimal.New(5, -1), // 0.5%
			MinMovePct:   1,
			MaxMovePct:   3,
		},
		Portfolio: Portfolio{
			InitialBalance: decimal.NewFromInt(10000),
		},
		Log: Log{
			File:  "data/lobsim.log",
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults. Malformed values keep the default.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg.Market.Symbol = getEnv("MARKET_SYMBOL", cfg.Market.Symbol)
	cfg.Market.BaseAsset = getEnv("MARKET_BASE_ASSET", cfg.Market.BaseAsset)
	cfg.Market.QuoteAsset = getEnv("MARKET_QUOTE_ASSET", cfg.Market.QuoteAsset)
	cfg.Market.TickSize = getDecimal("MARKET_TICK_SIZE", cfg.Market.TickSize)
	cfg.Market.ReferencePrice = getDecimal("MARKET_REFERENCE_PRICE", cfg.Market.ReferencePrice)

	cfg.Liquidity.Levels = getInt("SEED_LEVELS", cfg.Liquidity.Levels)
	cfg.Liquidity.MinQty = int64(getInt("SEED_MIN_QTY", int(cfg.Liquidity.MinQty)))
	cfg.Liquidity.MaxQty = int64(getInt("SEED_MAX_QTY", int(cfg.Liquidity.MaxQty)))
	cfg.Liquidity.MinOffsetPct = getDecimal("SEED_MIN_OFFSET_PCT", cfg.Liquidity.MinOffsetPct)
	cfg.Liquidity.MaxOffsetPct = getDecimal("SEED_MAX_OFFSET_PCT", cfg.Liquidity.MaxOffsetPct)
	cfg.Liquidity.MinMovePct = getInt("DAY_MIN_MOVE_PCT", cfg.Liquidity.MinMovePct)
	cfg.Liquidity.MaxMovePct = getInt("DAY_MAX_MOVE_PCT", cfg.Liquidity.MaxMovePct)
	if seed := os.Getenv("RANDOM_SEED"); seed != "" {
		if n, err := strconv.ParseInt(seed, 10, 64); err == nil {
			cfg.Liquidity.Seed = n
		}
	}

	cfg.Portfolio.InitialBalance = getDecimal("PORTFOLIO_BALANCE", cfg.Portfolio.InitialBalance)

	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	if verbose := os.Getenv("VERBOSE"); verbose != "" {
		cfg.Log.Verbose = verbose == "true"
	}

	return cfg
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
