package mempool

import (
	"sort"

	"github.com/forgecoind/forgecoind/chainhash"
)

// Pool is the indexed, read-only view over pending transactions that
// the selector consumes. Admission, eviction, and conflict handling
// are the pool owner's job; Pool only answers ordering and ancestry
// queries against whatever is currently resident.
type Pool struct {
	entries map[chainhash.Hash]*Entry
}

// New returns an empty Pool.
func New() *Pool {
	return &Pool{entries: make(map[chainhash.Hash]*Entry)}
}

// Add inserts or replaces an entry. Callers are responsible for
// keeping Parents/Children consistent across the pool.
func (p *Pool) Add(e *Entry) {
	p.entries[e.Hash()] = e
}

// Get returns the entry for hash, or nil if it is not resident.
func (p *Pool) Get(hash chainhash.Hash) *Entry {
	return p.entries[hash]
}

// Len returns the number of resident entries.
func (p *Pool) Len() int {
	return len(p.entries)
}

// IterByScore returns every resident entry ordered by
// ancestor_score_or_gas_price, best first. Ties break on the
// transaction hash, giving a stable secondary key independent of
// insertion order.
func (p *Pool) IterByScore() []*Entry {
	out := make([]*Entry, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i].Score(), out[j].Score()
		if si.Less(sj) == sj.Less(si) {
			hi, hj := out[i].Hash(), out[j].Hash()
			return string(hi[:]) < string(hj[:])
		}
		return sj.Less(si)
	})
	return out
}

// CalculateDescendants returns every resident entry reachable by
// following Children edges from entry, not including entry itself.
func (p *Pool) CalculateDescendants(entry *Entry) map[chainhash.Hash]*Entry {
	out := make(map[chainhash.Hash]*Entry)
	var walk func(h chainhash.Hash)
	walk = func(h chainhash.Hash) {
		e := p.entries[h]
		if e == nil {
			return
		}
		for _, c := range e.Children {
			if _, seen := out[c]; seen {
				continue
			}
			if child := p.entries[c]; child != nil {
				out[c] = child
				walk(c)
			}
		}
	}
	walk(entry.Hash())
	return out
}

// CalculateMempoolAncestors returns every resident entry reachable by
// following Parents edges from entry, not including entry itself. The
// limits the reference pool enforces (max ancestor count/size) are the
// pool owner's concern; the selector always calls this with no limit,
// so this view does not model them.
func (p *Pool) CalculateMempoolAncestors(entry *Entry) map[chainhash.Hash]*Entry {
	out := make(map[chainhash.Hash]*Entry)
	var walk func(h chainhash.Hash)
	walk = func(h chainhash.Hash) {
		e := p.entries[h]
		if e == nil {
			return
		}
		for _, par := range e.Parents {
			if _, seen := out[par]; seen {
				continue
			}
			if parent := p.entries[par]; parent != nil {
				out[par] = parent
				walk(par)
			}
		}
	}
	walk(entry.Hash())
	return out
}
