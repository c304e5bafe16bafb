package mempool

import (
	"testing"

	"github.com/forgecoind/forgecoind/chainhash"
	"github.com/forgecoind/forgecoind/wire"
)

func makeEntry(t *testing.T, fee int64, size uint64) *Entry {
	var prevHash chainhash.Hash
	prevHash[0] = byte(fee)
	prevHash[1] = byte(size)
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevHash, 0), []byte{byte(fee), byte(size)}, nil))
	return &Entry{
		Tx:                     tx,
		TxSize:                 size,
		ModFee:                 fee,
		SizeWithAncestors:      size,
		ModFeesWithAncestors:   fee,
		SigOpCostWithAncestors: 0,
	}
}

func TestIterByScoreOrdersByFeerate(t *testing.T) {
	p := New()
	low := makeEntry(t, 1000, 1000)  // 1 sat/byte
	high := makeEntry(t, 3000, 1000) // 3 sat/byte
	p.Add(low)
	p.Add(high)

	ordered := p.IterByScore()
	if len(ordered) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(ordered))
	}
	if ordered[0].Hash() != high.Hash() {
		t.Fatalf("expected the higher-feerate entry first")
	}
}

func TestCalculateDescendantsAndAncestors(t *testing.T) {
	p := New()
	parent := makeEntry(t, 1000, 400)
	child := makeEntry(t, 3000, 400)
	child.Parents = []chainhash.Hash{parent.Hash()}
	parent.Children = []chainhash.Hash{child.Hash()}
	p.Add(parent)
	p.Add(child)

	descendants := p.CalculateDescendants(parent)
	if len(descendants) != 1 || descendants[child.Hash()] == nil {
		t.Fatalf("expected child as sole descendant of parent")
	}

	ancestors := p.CalculateMempoolAncestors(child)
	if len(ancestors) != 1 || ancestors[parent.Hash()] == nil {
		t.Fatalf("expected parent as sole ancestor of child")
	}
}
