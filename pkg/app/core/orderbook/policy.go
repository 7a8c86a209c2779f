package orderbook

import "fmt"

// MatchingPolicy governs how a taker executes against the book.
type MatchingPolicy struct {
	RequireFullFill bool // all of the order must execute now or nothing does
	AllowPartial    bool // a partial immediate execution is acceptable
	RestRemainder   bool // the unfilled remainder joins the taker's own side
}

type policyKey struct {
	kind Kind
	tif  TimeInForce
}

// policies holds the only four legal (kind, time-in-force) pairs.
var policies = map[policyKey]MatchingPolicy{
	{Market, FillOrKill}:        {RequireFullFill: true},
	{Market, ImmediateOrCancel}: {AllowPartial: true},
	{Limit, FillOrKill}:         {RequireFullFill: true},
	{Limit, GoodTillCancel}:     {AllowPartial: true, RestRemainder: true},
}

// IsLegal reports whether kind may be combined with tif.
func IsLegal(kind Kind, tif TimeInForce) bool {
	_, ok := policies[policyKey{kind, tif}]
	return ok
}

// PolicyFor returns the matching policy of a legal (kind, tif) pair.
// It panics on an illegal pair; check IsLegal first.
func PolicyFor(kind Kind, tif TimeInForce) MatchingPolicy {
	p, ok := policies[policyKey{kind, tif}]
	if !ok {
		panic(fmt.Sprintf("orderbook: no matching policy for %s/%s", kind, tif))
	}
	return p
}
