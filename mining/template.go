package mining

import (
	"github.com/forgecoind/forgecoind/chainhash"
	"github.com/forgecoind/forgecoind/mempool"
	"github.com/forgecoind/forgecoind/wire"
)

// opRootStateHash tags the coinbase output that carries the contract
// store's post-assembly root hash, so downstream block validation can
// find it without scanning every output's script shape.
const opRootStateHash = 0xf7

// Template is the block template under construction: the ordered
// transaction list (coinbase first, coinstake second for PoS), the
// parallel per-tx fee and sigop bookkeeping, and the contract
// root-state-hash commitment carried in the coinbase.
type Template struct {
	Txs    []*wire.MsgTx
	Fees   []int64
	SigOps []int64
	Height uint32

	CoinbaseRootStateHash []byte

	hashes     map[chainhash.Hash]bool
	accountant *accountant
	engine     *contractEngine
}

func newTemplate(height uint32, a *accountant, engine *contractEngine) *Template {
	return &Template{
		Height:     height,
		hashes:     make(map[chainhash.Hash]bool),
		accountant: a,
		engine:     engine,
	}
}

func (t *Template) hasTx(h chainhash.Hash) bool {
	return t.hashes[h]
}

// inBlockHashes returns the mempool entries already committed into
// this template, for the selector's initial "seed the modified view
// from what's already in" call. A fresh template has none.
func (t *Template) inBlockHashes() map[chainhash.Hash]*mempool.Entry {
	return nil
}

// addPlain appends a non-contract mempool entry and charges its
// cost against the accountant.
func (t *Template) addPlain(e *mempool.Entry) {
	t.Txs = append(t.Txs, e.Tx)
	t.Fees = append(t.Fees, e.ModFee)
	t.SigOps = append(t.SigOps, e.SigOpCost)
	t.hashes[e.Hash()] = true
	t.accountant.add(e.TxSize, e.TxSize*4, e.SigOpCost, e.ModFee)
}

// tryAddContract runs a contract-carrying entry through the contract
// engine's attempt protocol. valueOut is recovered from the
// transaction's own outputs and valueIn from valueOut plus the
// mempool's already-computed fee, since no UTXO lookup is available at
// this layer. The accountant is charged, and checked against the
// absolute hard caps, before the engine is ever invoked: once attempt
// succeeds it has already kept its writes into the assembly's root
// state, which cannot be undone, so every other rejection reason must
// be resolved first.
func (t *Template) tryAddContract(e *mempool.Entry) bool {
	if t.engine == nil {
		return false
	}
	if !t.accountant.testPackage(e.TxSize, e.SigOpCost) {
		return false
	}

	t.accountant.add(e.TxSize, e.TxSize*4, e.SigOpCost, e.ModFee)
	if t.accountant.exceedsHardCaps() {
		t.accountant.undo(e.TxSize, e.TxSize*4, e.SigOpCost, e.ModFee)
		return false
	}

	var valueOut int64
	for _, out := range e.Tx.TxOut {
		valueOut += out.Value
	}
	valueIn := valueOut + e.ModFee

	if _, ok := t.engine.attempt(e.Tx, valueIn, valueOut); !ok {
		t.accountant.undo(e.TxSize, e.TxSize*4, e.SigOpCost, e.ModFee)
		return false
	}

	t.Txs = append(t.Txs, e.Tx)
	t.Fees = append(t.Fees, e.ModFee)
	t.SigOps = append(t.SigOps, e.SigOpCost)
	t.hashes[e.Hash()] = true
	return true
}
