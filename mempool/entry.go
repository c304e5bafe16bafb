// Package mempool models the consumer-side view of the pending
// transaction pool that the block assembler needs: entries ordered by
// ancestor feerate or gas price, and ancestor/descendant walks over
// that ordering. The pool's own admission and eviction policy lives
// outside this module; mempool only holds the indexed read view the
// assembler iterates.
package mempool

import (
	"github.com/forgecoind/forgecoind/chainhash"
	"github.com/forgecoind/forgecoind/wire"
)

// Score is the tagged ordering key for a mempool entry. Plain
// transactions order by ancestor feerate; contract transactions order
// by the gas price they bid, so a high-gas-price contract call can
// outrank a low-feerate chain of plain spends even though the two
// quantities are not directly comparable in absolute terms.
type Score struct {
	// IsGasPrice selects which field of the union is meaningful.
	IsGasPrice bool

	// Fee and Size back an AncestorFeerate score (IsGasPrice == false).
	Fee  int64
	Size uint64

	// GasPrice backs a GasPrice score (IsGasPrice == true).
	GasPrice uint64
}

// Less reports whether a ranks strictly worse than b: b should be
// preferred. Mixed-kind comparisons fall back to raw fee, since the
// only mixed case that matters in practice is comparing a plain
// package's modfees against a contract entry already expressed in
// satoshi terms by its gas price alone.
func (a Score) Less(b Score) bool {
	if a.IsGasPrice && b.IsGasPrice {
		return a.GasPrice < b.GasPrice
	}
	if !a.IsGasPrice && !b.IsGasPrice {
		// Compare feerate a.Fee/a.Size < b.Fee/b.Size without floating
		// point: cross-multiply (sizes are always positive).
		return a.Fee*int64(b.Size) < b.Fee*int64(a.Size)
	}
	if a.IsGasPrice {
		return int64(a.GasPrice) < b.Fee
	}
	return a.Fee < int64(b.GasPrice)
}

// Entry is a mempool transaction plus the cached metrics the selector
// needs: its own size/fee/sigops and the same totals summed across its
// still-unconfirmed ancestors.
type Entry struct {
	Tx *wire.MsgTx

	TxSize    uint64
	ModFee    int64
	SigOpCost int64
	GasPrice  uint64

	SizeWithAncestors    uint64
	ModFeesWithAncestors int64
	SigOpCostWithAncestors int64

	Parents  []chainhash.Hash
	Children []chainhash.Hash
}

// Hash returns the entry's transaction id, used as its identity in
// every set the selector maintains.
func (e *Entry) Hash() chainhash.Hash {
	return e.Tx.TxHash()
}

// Score returns the ordering key this entry is ranked by.
func (e *Entry) Score() Score {
	if e.Tx.HasContractOp() {
		return Score{IsGasPrice: true, GasPrice: e.GasPrice}
	}
	return Score{Fee: e.ModFeesWithAncestors, Size: e.SizeWithAncestors}
}

// ModifiedEntry shadows a mempool Entry with its ancestor metrics
// adjusted to exclude ancestors that have already been selected into
// the current block. It never holds a long-lived pointer into the
// pool's own storage: only the id and the deltas needed to recompute
// the adjusted totals on demand.
type ModifiedEntry struct {
	Hash chainhash.Hash

	SizeWithAncestors      uint64
	ModFeesWithAncestors   int64
	SigOpCostWithAncestors int64
}

// Score returns the ordering key for the modified view, in the same
// units as Entry.Score so the selector can compare them directly.
func (m *ModifiedEntry) Score(base *Entry) Score {
	if base.Tx.HasContractOp() {
		return Score{IsGasPrice: true, GasPrice: base.GasPrice}
	}
	return Score{Fee: m.ModFeesWithAncestors, Size: m.SizeWithAncestors}
}

// ApplyParentInclusion subtracts a newly-included ancestor's
// contribution from this entry's ancestor totals.
func (m *ModifiedEntry) ApplyParentInclusion(parent *Entry) {
	m.SizeWithAncestors -= parent.TxSize
	m.ModFeesWithAncestors -= parent.ModFee
	m.SigOpCostWithAncestors -= parent.SigOpCost
}
