// Package mining implements block template assembly: the resource
// accountant, the ancestor-feerate package selector, the contract
// inclusion engine, the proof-of-stake kernel search, and the
// fork-height reconstructors, orchestrated by Assembler.
package mining

import "github.com/forgecoind/forgecoind/chaincfg"

// Policy holds the operator-tunable knobs the assembler reads on every
// call. These correspond to -blockmaxweight/-blockmintxfee/
// -blockversion/-printpriority.
type Policy struct {
	// BlockMaxWeight caps the weight the assembler will pack into a
	// template, clamped against the height's absolute ceiling.
	BlockMaxWeight uint64

	// BlockMinFeeRate is the floor feerate (satoshi per kilobyte)
	// below which the selector stops considering further packages.
	BlockMinFeeRate int64

	// BlockVersion is the operator's block-version override; zero means
	// "do not override". The assembler does not read it: a Template
	// carries no block header.
	BlockVersion int32

	// PrintPriority logs each accepted package's fee and txid.
	PrintPriority bool
}

// DefaultPolicy returns the policy in effect when no CLI overrides are
// given.
func DefaultPolicy() Policy {
	return Policy{
		BlockMaxWeight:  chaincfg.DefaultBlockMaxWeight,
		BlockMinFeeRate: chaincfg.DefaultBlockMinTxFee,
	}
}

// FeeForSize returns the minimum fee, in satoshi, a package of the
// given virtual size must pay to clear BlockMinFeeRate.
func (p Policy) FeeForSize(size uint64) int64 {
	return p.BlockMinFeeRate * int64(size) / 1000
}
