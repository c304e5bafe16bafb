package mining

import (
	"github.com/forgecoind/forgecoind/chaincfg"
	utilmath "github.com/forgecoind/forgecoind/util/math"
)

// accountant tracks the running resource totals of the template under
// construction: weight, serialized size, sigop cost, transaction
// count, and collected fees. One accountant is used per assembly
// call and reset at the start of each.
type accountant struct {
	blockWeight uint64
	blockSize   uint64
	blockSigOps int64
	blockTxs    int
	fees        int64

	maxWeight uint64
	params    *chaincfg.Params
	height    uint32
}

// newAccountant returns an accountant reserving the coinbase's own
// budget, the way resetBlock does in the reference assembler: the
// coinbase is never run through testPackage, so its cost has to be
// pre-charged against the totals instead.
func newAccountant(params *chaincfg.Params, height uint32, maxWeight uint64) *accountant {
	a := &accountant{
		blockSize:   1000,
		blockWeight: 4000,
		blockSigOps: 400,
		blockTxs:    1,
		params:      params,
		height:      height,
	}
	abs := uint64(params.MaxBlockSize(height))
	a.maxWeight = utilmath.MaxUint64(maxWeight, 4000)
	if abs > 4000 {
		a.maxWeight = utilmath.MinUint64(a.maxWeight, abs-4000)
	}
	return a
}

// testPackage reports whether a package of the given virtual size and
// sigop cost still fits under the weight and sigop ceilings. It is a
// strict less-than against the ceiling, matching the reference
// assembler's ">=  -> reject" check.
func (a *accountant) testPackage(size uint64, sigOps int64) bool {
	if a.blockWeight+chaincfg.WitnessScaleFactor*size >= a.maxWeight {
		return false
	}
	if a.blockSigOps+sigOps >= a.params.MaxBlockSigops(a.height) {
		return false
	}
	return true
}

// add charges a package's cost against the running totals.
func (a *accountant) add(size uint64, weight uint64, sigOps int64, fee int64) {
	a.blockSize += size
	a.blockWeight += weight
	a.blockSigOps += sigOps
	a.blockTxs++
	a.fees += fee
}

// undo reverses a previous add call. The contract-tx path uses this to
// take a charge back when a transaction the accountant already
// charged turns out to be infeasible for an unrelated reason, before
// anything irreversible happens.
func (a *accountant) undo(size uint64, weight uint64, sigOps int64, fee int64) {
	a.blockSize -= size
	a.blockWeight -= weight
	a.blockSigOps -= sigOps
	a.blockTxs--
	a.fees -= fee
}

// exceedsHardCaps reports whether the totals have overrun the absolute
// ceilings that apply regardless of weight-budget accounting.
func (a *accountant) exceedsHardCaps() bool {
	return a.blockSigOps*chaincfg.WitnessScaleFactor > chaincfg.MaxBlockSigopsCost ||
		a.blockSize > uint64(a.params.MaxBlockSize(a.height))
}
