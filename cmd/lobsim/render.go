package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/lobsim/pkg/app/core/account"
	"github.com/uhyunpark/lobsim/pkg/app/core/orderbook"
	"github.com/uhyunpark/lobsim/pkg/app/exchange"
	"github.com/uhyunpark/lobsim/pkg/storage"
)

func money(d decimal.Decimal) string { return "$" + d.StringFixed(2) }

// renderBook prints asks from worst to best above the reference price and
// bids from best to worst below it.
func renderBook(w io.Writer, s exchange.Snapshot) {
	last := "-"
	if s.LastPrice.IsPositive() {
		last = s.LastPrice.StringFixed(2)
	}
	fmt.Fprintf(w, "%s  day %d  ref %s  last %s\n", s.Symbol, s.Day, s.ReferencePrice.StringFixed(2), last)
	fmt.Fprintf(w, "%-4s %12s %10s %7s\n", "", "PRICE", "QTY", "ORDERS")
	for i := len(s.Asks) - 1; i >= 0; i-- {
		l := s.Asks[i]
		fmt.Fprintf(w, "%-4s %12s %10d %7d\n", "ASK", l.Price.StringFixed(2), l.Qty, l.Orders)
	}
	fmt.Fprintf(w, "%s %s %s\n", strings.Repeat("-", 10), s.ReferencePrice.StringFixed(2), strings.Repeat("-", 10))
	for _, l := range s.Bids {
		fmt.Fprintf(w, "%-4s %12s %10d %7d\n", "BID", l.Price.StringFixed(2), l.Qty, l.Orders)
	}
	if len(s.Asks) == 0 && len(s.Bids) == 0 {
		fmt.Fprintln(w, "(book is empty)")
	}
}

func renderOutcome(w io.Writer, out orderbook.MatchOutcome) {
	side := out.Side.String()
	switch out.Result {
	case orderbook.ResultRejectedInvalidTimeInForce,
		orderbook.ResultCanceledNoLiquidity,
		orderbook.ResultCanceledInsufficientLiquidity:
		fmt.Fprintf(w, "%s #%d %v\n", side, out.TakerID, out.Err())
		return
	case orderbook.ResultRested:
		fmt.Fprintf(w, "%s #%d no match | %d resting as #%d\n", side, out.TakerID, out.RestedQty, out.RestedOrderID)
		return
	}

	fill := "PARTIAL"
	if out.FullyFilled {
		fill = "FULL"
	}
	fmt.Fprintf(w, "%s %d shares (%s) @ VWAP %s | Notional %s", side, out.Filled, fill, money(out.VWAP()), money(out.Notional))
	if out.Rested() {
		fmt.Fprintf(w, " | Remainder %d rested as #%d", out.RestedQty, out.RestedOrderID)
	} else if out.CanceledQty > 0 {
		fmt.Fprintf(w, " | %d canceled", out.CanceledQty)
	}
	fmt.Fprintln(w)
}

func renderBalance(w io.Writer, base string, p account.Snapshot) {
	fmt.Fprintf(w, "cash %s | holdings %d %s | trades %d | volume %s\n",
		money(p.Balance), p.Holdings, base, p.TradeCount, money(p.TotalVolume))
}

func renderTape(w io.Writer, fills []storage.FillRecord) {
	if len(fills) == 0 {
		fmt.Fprintln(w, "(no fills yet)")
		return
	}
	for _, f := range fills {
		fmt.Fprintf(w, "#%-5d day %-3d %-4s %6d @ %s  taker #%d maker #%d\n",
			f.Seq, f.Day, f.Side, f.Qty, f.Price.StringFixed(2), f.TakerID, f.MakerID)
	}
}
