package mining

import (
	"encoding/binary"

	"github.com/forgecoind/forgecoind/chainhash"
	"github.com/forgecoind/forgecoind/chaincfg"
	"github.com/forgecoind/forgecoind/target"
	"github.com/forgecoind/forgecoind/txscript"
	"github.com/forgecoind/forgecoind/wire"
)

// Coin is a UTXO record as retrieved from the chain's coin set: the
// output plus the height it was confirmed at and whether it came from
// a coinbase/coinstake.
type Coin struct {
	Out       wire.TxOut
	Height    uint32
	IsCoinbase bool
}

// CoinLookup retrieves a coin by outpoint. The second return is false
// when the outpoint is unspent-unknown or already spent; the kernel
// search treats that as "skip this candidate", never as a fatal error.
type CoinLookup func(op wire.OutPoint) (Coin, bool)

// BlockHashAtHeight returns the hash of the ancestor block at height
// on the chain ending at prevHash, or the zero hash if no such
// ancestor exists (e.g. height is negative or beyond prevHash).
type BlockHashAtHeight func(prevHash chainhash.Hash, height uint32) chainhash.Hash

// kernelContext carries everything CheckProofOfStake needs about the
// candidate block besides the prevout and value under test.
type kernelContext struct {
	params       *chaincfg.Params
	prevHash     chainhash.Hash
	prevHeight   uint32 // height of prevHash; 0 at genesis
	nTime        uint32
	nBits        uint32
	blockHashAt  BlockHashAtHeight
}

// CheckProofOfStake implements the stake hash-target predicate: build
// ss = nTime||prevout.hash||prevout.n, folding in the block hash of
// the nearest ancestor at a height that's a multiple of ten once
// ForkV3Height has passed, then test double_sha256(ss)/value against
// the compact-bits target. coinAge is accepted but never consulted:
// the reference predicate disables its own `bnHashPos /= coinAge`
// division, and that disabled state must survive byte-for-byte rather
// than be "corrected".
func CheckProofOfStake(ctx kernelContext, prevout wire.OutPoint, value int64, coinAge uint32) bool {
	_ = coinAge

	target256, _, overflow := target.FromCompact(ctx.nBits)
	if overflow {
		return false
	}

	w := chainhash.NewHashWriter()
	var timeBuf [4]byte
	binary.LittleEndian.PutUint32(timeBuf[:], ctx.nTime)
	w.Write(timeBuf[:])
	w.Write(prevout.Hash[:])
	var idxBuf [4]byte
	binary.LittleEndian.PutUint32(idxBuf[:], prevout.Index)
	w.Write(idxBuf[:])

	if ctx.prevHeight+1 >= ctx.params.ForkV3Height {
		prevTenHeight := (ctx.prevHeight / 10) * 10
		h10 := ctx.blockHashAt(ctx.prevHash, prevTenHeight)
		w.Write(h10[:])
	}

	hashProofOfStake := w.Finalize()
	return satisfiesTarget(hashProofOfStake, value, target256)
}

// satisfiesTarget implements the hash/value <= target comparison
// itself: hash is read as a little-endian integer (byte 0 is the
// least-significant byte, the same convention chainhash.Hash.String
// reverses for display), divided by value, and compared against
// target256.
func satisfiesTarget(hash chainhash.Hash, value int64, target256 target.Uint256) bool {
	if value <= 0 {
		return false
	}
	weighted := target.SetBytesLE(hash).DivUint64(uint64(value))
	return weighted.LessOrEqual(target256)
}

// StakeCandidate is one wallet-offered UTXO the kernel search
// considers, as reported by SelectCoinsForStaking.
type StakeCandidate struct {
	Outpoint wire.OutPoint
}

// KernelResult is what the kernel search produces on success: the
// winning outpoint, its value and scriptPubKey, and the UTXO's
// confirmation depth (coinAge, carried through unused per
// CheckProofOfStake's disabled semantics).
type KernelResult struct {
	Outpoint  wire.OutPoint
	Value     int64
	ScriptPubKey []byte
	CoinAge   uint32
}

// SearchKernel iterates the wallet's staking candidates in the order
// offered and returns the first whose UTXO clears the confirmation
// floor and satisfies the stake predicate. It never fails on a missing
// or under-confirmed UTXO; those candidates are simply skipped.
func SearchKernel(ctx kernelContext, height uint32, candidates []StakeCandidate, lookup CoinLookup) (KernelResult, bool) {
	for _, cand := range candidates {
		coin, ok := lookup(cand.Outpoint)
		if !ok {
			continue
		}
		if height < ctx.params.StakeMinConfirmations || coin.Height > height-ctx.params.StakeMinConfirmations {
			continue
		}

		coinAge := height - coin.Height
		if !CheckProofOfStake(ctx, cand.Outpoint, coin.Out.Value, coinAge) {
			continue
		}

		class := txscript.GetScriptClass(coin.Out.PkScript)
		if !txscript.IsStakeableClass(class) {
			continue
		}

		return KernelResult{
			Outpoint:     cand.Outpoint,
			Value:        coin.Out.Value,
			ScriptPubKey: coin.Out.PkScript,
			CoinAge:      coinAge,
		}, true
	}
	return KernelResult{}, false
}

// BuildCoinstake assembles the coinstake transaction for a found
// kernel: one input spending the kernel outpoint, an empty first
// output, and a second output returning the staked value to the
// kernel's own scriptPubKey.
func BuildCoinstake(result KernelResult) *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(&result.Outpoint, nil, nil))
	tx.AddTxOut(wire.NewTxOut(0, nil))
	tx.AddTxOut(wire.NewTxOut(result.Value, result.ScriptPubKey))
	return tx
}
