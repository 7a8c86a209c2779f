package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/lobsim/pkg/app/core/orderbook"
)

var errUnknownCommand = errors.New("unknown command")

type verb int

const (
	verbOrder verb = iota
	verbCancel
	verbDay
	verbBook
	verbBalance
	verbTape
	verbFlow
	verbPause
	verbResume
	verbHelp
	verbExit
)

// command is one parsed input line.
type command struct {
	verb verb

	side  orderbook.Side
	kind  orderbook.Kind
	tif   orderbook.TimeInForce
	price decimal.Decimal
	qty   int64

	id uint64 // cancel
	n  int    // tape, flow
}

const usage = `commands:
  buy|sell market fok|ioc QTY
  buy|sell limit gtc|fok PRICE QTY
  cancel ID
  day              start the next trading day
  book             show the ladder
  balance          show cash and holdings
  tape [N]         show the last N fills (default 10)
  flow N           let other participants submit N random orders
  pause | resume   halt or reopen trading
  help
  exit`

func parseCommand(line string) (command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return command{}, errUnknownCommand
	}

	switch fields[0] {
	case "buy", "sell":
		return parseOrder(fields)
	case "cancel":
		if len(fields) != 2 {
			return command{}, fmt.Errorf("usage: cancel ID")
		}
		id, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return command{}, fmt.Errorf("bad order id %q", fields[1])
		}
		return command{verb: verbCancel, id: id}, nil
	case "day", "next":
		return command{verb: verbDay}, nil
	case "book":
		return command{verb: verbBook}, nil
	case "balance", "bal":
		return command{verb: verbBalance}, nil
	case "tape":
		c := command{verb: verbTape, n: 10}
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil || n <= 0 {
				return command{}, fmt.Errorf("bad tape length %q", fields[1])
			}
			c.n = n
		}
		return c, nil
	case "flow":
		if len(fields) != 2 {
			return command{}, fmt.Errorf("usage: flow N")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n <= 0 {
			return command{}, fmt.Errorf("bad order count %q", fields[1])
		}
		return command{verb: verbFlow, n: n}, nil
	case "pause":
		return command{verb: verbPause}, nil
	case "resume":
		return command{verb: verbResume}, nil
	case "help", "?":
		return command{verb: verbHelp}, nil
	case "exit", "quit":
		return command{verb: verbExit}, nil
	}
	return command{}, fmt.Errorf("%w: %s", errUnknownCommand, fields[0])
}

func parseOrder(fields []string) (command, error) {
	c := command{verb: verbOrder, side: orderbook.Buy}
	if fields[0] == "sell" {
		c.side = orderbook.Sell
	}
	if len(fields) < 4 {
		return command{}, fmt.Errorf("usage: %s market TIF QTY | %s limit TIF PRICE QTY", fields[0], fields[0])
	}

	switch fields[1] {
	case "market", "mkt":
		c.kind = orderbook.Market
		if len(fields) != 4 {
			return command{}, fmt.Errorf("usage: %s market fok|ioc QTY", fields[0])
		}
	case "limit", "lmt":
		c.kind = orderbook.Limit
		if len(fields) != 5 {
			return command{}, fmt.Errorf("usage: %s limit gtc|fok PRICE QTY", fields[0])
		}
	default:
		return command{}, fmt.Errorf("bad order type %q", fields[1])
	}

	// Illegal kind/TIF pairs still parse; order creation rejects them.
	switch fields[2] {
	case "fok":
		c.tif = orderbook.FillOrKill
	case "ioc":
		c.tif = orderbook.ImmediateOrCancel
	case "gtc":
		c.tif = orderbook.GoodTillCancel
	default:
		return command{}, fmt.Errorf("bad time in force %q", fields[2])
	}

	qtyField := fields[3]
	if c.kind == orderbook.Limit {
		price, err := decimal.NewFromString(fields[3])
		if err != nil {
			return command{}, fmt.Errorf("bad price %q", fields[3])
		}
		c.price = price
		qtyField = fields[4]
	}
	qty, err := strconv.ParseInt(qtyField, 10, 64)
	if err != nil {
		return command{}, fmt.Errorf("bad quantity %q", qtyField)
	}
	c.qty = qty
	return c, nil
}
