// Package chaincfg defines the consensus-critical per-network parameters
// that the block assembler and kernel search consult: fork heights,
// resource caps, and subsidy schedule.
package chaincfg

// Resource caps shared by every network. These mirror the historical
// Bitcoin-derived constants the assembler was built against; they are
// not per-network because no supported network has ever changed them.
const (
	// WitnessScaleFactor relates serialized size to weight: weight =
	// strippedSize*(WitnessScaleFactor-1) + totalSize.
	WitnessScaleFactor = 4

	// DefaultBlockMaxWeight is the default upper bound on block weight
	// the assembler will target, overridable by -blockmaxweight.
	DefaultBlockMaxWeight = 3_000_000

	// DefaultBlockMinTxFee is the default floor feerate (satoshi per
	// kilobyte) for package inclusion, overridable by -blockmintxfee.
	DefaultBlockMinTxFee = 1000

	// MaxBlockSerSize is the absolute ceiling on a block's serialized
	// size regardless of weight accounting.
	MaxBlockSerSize = 4_000_000

	// MaxBlockSigopsCost is the absolute ceiling on a block's sigop
	// cost (already scaled by WitnessScaleFactor) before any
	// height-dependent relaxation.
	MaxBlockSigopsCost = 80_000

	// BytecodeTimeBuffer is subtracted from the assembly deadline; once
	// within this many seconds of the deadline the contract engine
	// refuses to start any new contract attempt, since VM execution
	// itself has no internal timeout.
	BytecodeTimeBuffer = 3

	// CoinbaseFlags is the tag identifying the software that produced a
	// block. No coinbase or coinstake scriptSig built by this module
	// includes it.
	CoinbaseFlags = "/forgecoind/"

	// HolyBurnBatchSize is the maximum number of outpoints folded into
	// a single holy-burn transaction.
	HolyBurnBatchSize = 128

	// HolyBurnFee is subtracted from the total burned value of each
	// holy-burn transaction.
	HolyBurnFee = 1_000_000
)

// Params holds the consensus parameters for one network. Only the fields
// the assembler and kernel search need are modeled; full chain-validation
// parameters (PoW limits, deployment thresholds, checkpoints) belong to
// the validator, not this subsystem.
type Params struct {
	// Name is a human-readable identifier for the network.
	Name string

	// ForkV3Height is the height at which the stake kernel hash begins
	// folding in the ancestor-at-multiple-of-ten block hash (H10).
	ForkV3Height uint32

	// UBCONTRACTHeight is the height at which contract-carrying
	// transactions become eligible for inclusion.
	UBCONTRACTHeight uint32

	// ScanBadTxHeight is the first height scanned by the bad-UTXO walk
	// feeding the ForkV4Height reconstruction.
	ScanBadTxHeight uint32

	// ForkV4Height is the height at which ordinary selection is
	// replaced by the holy-burn reconstruction.
	ForkV4Height uint32

	// ForkV5Height is the height at which ordinary selection is
	// replaced by the literal refund reconstruction.
	ForkV5Height uint32

	// StakeMinConfirmations is the minimum chain depth a UTXO must
	// reach before it is eligible as a stake kernel.
	StakeMinConfirmations uint32

	// SubsidyHalvingInterval is the number of blocks between subsidy
	// halvings.
	SubsidyHalvingInterval uint32

	// BaseSubsidy is the block reward, in satoshi, before any halving.
	BaseSubsidy int64
}

// MainNetParams are the parameters for the production network. The fork
// heights, the contract activation height, the scan start and the stake
// confirmation depth are placeholder magnitudes that keep the heights'
// relative order (ScanBadTxHeight < ForkV4Height < ForkV5Height,
// UBCONTRACTHeight below ForkV4Height); they are not the live chain's
// values.
var MainNetParams = Params{
	Name:                   "mainnet",
	ForkV3Height:           1_000_000,
	UBCONTRACTHeight:       1_200_000,
	ScanBadTxHeight:        700_000,
	ForkV4Height:           1_570_000,
	ForkV5Height:           1_570_100,
	StakeMinConfirmations:  500,
	SubsidyHalvingInterval: 2_100_000,
	BaseSubsidy:            50 * 100_000_000,
}

// MaxBlockSigops returns the sigop-cost ceiling in effect at height. It is
// a flat cap today; the signature preserves room for a future
// height-gated relaxation the way MaxBlockSize historically gained one.
func (p *Params) MaxBlockSigops(height uint32) int64 {
	return MaxBlockSigopsCost
}

// MaxBlockSize returns the serialized-size ceiling in effect at height.
func (p *Params) MaxBlockSize(height uint32) int64 {
	return MaxBlockSerSize
}

// GetBlockSubsidy returns the block reward at height, halving every
// SubsidyHalvingInterval blocks down to zero.
func (p *Params) GetBlockSubsidy(height uint32) int64 {
	halvings := height / p.SubsidyHalvingInterval
	if halvings >= 64 {
		return 0
	}
	return p.BaseSubsidy >> halvings
}

// IsForkHeight reports whether height is one of the two heights at which
// ordinary mempool selection is replaced by a deterministic
// reconstruction.
func (p *Params) IsForkHeight(height uint32) bool {
	return height == p.ForkV4Height || height == p.ForkV5Height
}

// ContractsActive reports whether contract-carrying transactions may be
// included in a block at height.
func (p *Params) ContractsActive(height uint32) bool {
	return height >= p.UBCONTRACTHeight
}
