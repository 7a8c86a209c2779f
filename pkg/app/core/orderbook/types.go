package orderbook

// Side is the direction of an order.
type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the side a taker on s matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) valid() bool { return s == Buy || s == Sell }

// Kind distinguishes market orders from limit orders.
type Kind int8

const (
	Market Kind = iota
	Limit
)

func (k Kind) String() string {
	switch k {
	case Market:
		return "MARKET"
	case Limit:
		return "LIMIT"
	default:
		return "UNKNOWN"
	}
}

func (k Kind) valid() bool { return k == Market || k == Limit }

// TimeInForce controls how long an order may wait for liquidity.
type TimeInForce int8

const (
	// FillOrKill executes all of the order immediately or none of it.
	FillOrKill TimeInForce = iota
	// ImmediateOrCancel fills what is available now and drops the rest.
	ImmediateOrCancel
	// GoodTillCancel rests any unfilled remainder on the book.
	GoodTillCancel
)

func (t TimeInForce) String() string {
	switch t {
	case FillOrKill:
		return "FOK"
	case ImmediateOrCancel:
		return "IOC"
	case GoodTillCancel:
		return "GTC"
	default:
		return "UNKNOWN"
	}
}
