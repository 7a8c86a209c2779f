package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/shopspring/decimal"
)

// FillRecord is one execution as journaled on the tape.
type FillRecord struct {
	Seq     uint64          `json:"seq"`
	Day     int             `json:"day"`
	TakerID uint64          `json:"takerId"`
	MakerID uint64          `json:"makerId"`
	Side    string          `json:"side"` // taker side
	Price   decimal.Decimal `json:"price"`
	Qty     int64           `json:"qty"`
	Time    time.Time       `json:"time"`
}

// OutcomeRecord summarizes one submission.
type OutcomeRecord struct {
	Seq           uint64          `json:"seq"`
	Day           int             `json:"day"`
	TakerID       uint64          `json:"takerId"`
	Side          string          `json:"side"`
	Kind          string          `json:"kind"`
	TimeInForce   string          `json:"tif"`
	Result        string          `json:"result"`
	Filled        int64           `json:"filled"`
	Notional      decimal.Decimal `json:"notional"`
	VWAP          decimal.Decimal `json:"vwap"`
	RestedOrderID uint64          `json:"restedOrderId,omitempty"`
	RestedQty     int64           `json:"restedQty,omitempty"`
	CanceledQty   int64           `json:"canceledQty,omitempty"`
	Time          time.Time       `json:"time"`
}

// Tape journals fills and outcomes in a pebble instance backed by memory.
// It lives as long as the process; nothing survives a restart.
type Tape struct {
	mu  sync.Mutex
	db  *pebble.DB
	seq uint64
}

// OpenTape opens an empty in-memory tape.
func OpenTape() (*Tape, error) {
	db, err := pebble.Open("tape", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, fmt.Errorf("open tape: %w", err)
	}
	return &Tape{db: db}, nil
}

func (t *Tape) Close() error { return t.db.Close() }

func (t *Tape) nextSeq() uint64 {
	t.seq++
	return t.seq
}

// RecordFill appends r and returns its sequence number.
func (t *Tape) RecordFill(r FillRecord) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r.Seq = t.nextSeq()
	data, err := encodeJSON(r)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal fill: %w", err)
	}
	if err := t.db.Set(seqKey(fillPrefix, r.Seq), data, pebble.NoSync); err != nil {
		return 0, fmt.Errorf("failed to save fill: %w", err)
	}
	return r.Seq, nil
}

// RecordOutcome appends r and returns its sequence number.
func (t *Tape) RecordOutcome(r OutcomeRecord) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r.Seq = t.nextSeq()
	data, err := encodeJSON(r)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal outcome: %w", err)
	}
	if err := t.db.Set(seqKey(outcomePrefix, r.Seq), data, pebble.NoSync); err != nil {
		return 0, fmt.Errorf("failed to save outcome: %w", err)
	}
	return r.Seq, nil
}

// RecentFills loads up to limit fills, newest first. limit <= 0 means all.
func (t *Tape) RecentFills(limit int) ([]FillRecord, error) {
	iter, err := t.db.NewIter(&pebble.IterOptions{
		LowerBound: fillPrefix,
		UpperBound: keyUpperBound(fillPrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("scan fills: %w", err)
	}
	defer iter.Close()

	var fills []FillRecord
	for iter.Last(); iter.Valid() && (limit <= 0 || len(fills) < limit); iter.Prev() {
		var f FillRecord
		if err := decodeJSON(iter.Value(), &f); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fill: %w", err)
		}
		fills = append(fills, f)
	}
	return fills, nil
}

// Outcomes loads every outcome in submission order.
func (t *Tape) Outcomes() ([]OutcomeRecord, error) {
	iter, err := t.db.NewIter(&pebble.IterOptions{
		LowerBound: outcomePrefix,
		UpperBound: keyUpperBound(outcomePrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("scan outcomes: %w", err)
	}
	defer iter.Close()

	var outcomes []OutcomeRecord
	for iter.First(); iter.Valid(); iter.Next() {
		var o OutcomeRecord
		if err := decodeJSON(iter.Value(), &o); err != nil {
			return nil, fmt.Errorf("failed to unmarshal outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}
