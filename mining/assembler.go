package mining

import (
	"encoding/binary"

	"github.com/forgecoind/forgecoind/chaincfg"
	"github.com/forgecoind/forgecoind/chainhash"
	"github.com/forgecoind/forgecoind/contractstate"
	"github.com/forgecoind/forgecoind/infrastructure/logger"
	"github.com/forgecoind/forgecoind/mempool"
	"github.com/forgecoind/forgecoind/util/mstime"
	"github.com/forgecoind/forgecoind/util/random"
	"github.com/forgecoind/forgecoind/wire"
)

// Assembler owns every collaborator a block template assembly call
// needs: the mempool view (C2), the resource accountant (C3), the
// contract engine (C4), hash/target arithmetic (C1, consumed through
// kernel.go and chaincfg), and the historical scan required at the two
// fork heights (C7). One Assembler is built once per node and reused
// across every CreateNewBlock/CreateNewBlockPos call.
type Assembler struct {
	Params *chaincfg.Params
	Pool   *mempool.Pool
	Policy Policy

	store     *contractstate.Store
	converter ContractConverter
	validator ContractValidator
	vm        ContractVM

	CoinLookup    CoinLookup
	BlockHashAt   BlockHashAtHeight
	BlockByHeight BlockByHeight
	AddressOf     AddressOf

	Now func() int64
}

// NewAssembler wires the collaborators required for ordinary PoW/PoS
// template assembly. The contract engine's own store/converter/
// validator/vm are optional: a nil store disables contract inclusion
// entirely, which selectPackages honours by refusing every contract-op
// transaction it encounters.
func NewAssembler(params *chaincfg.Params, pool *mempool.Pool, policy Policy, store *contractstate.Store, converter ContractConverter, validator ContractValidator, vm ContractVM) *Assembler {
	return &Assembler{
		Params:    params,
		Pool:      pool,
		Policy:    policy,
		store:     store,
		converter: converter,
		validator: validator,
		vm:        vm,
	}
}

// CreateNewBlock assembles a PoW template at height on top of prevHash.
// At either fork height this bypasses ordinary mempool selection
// entirely and instead deterministically reconstructs the mandated
// transaction set (invariant: the two fork heights are never ordinary
// blocks).
func (a *Assembler) CreateNewBlock(height uint32, prevHash chainhash.Hash, coinbaseScript []byte, deadlineUnix int64) (*Template, error) {
	onEnd := logger.LogAndMeasureExecutionTime(log, "Assembler.CreateNewBlock")
	defer onEnd()

	if height == a.Params.ForkV4Height {
		return a.buildForkV4Template(height, coinbaseScript)
	}
	if height == a.Params.ForkV5Height {
		return a.buildForkV5Template(height, coinbaseScript)
	}

	acct := newAccountant(a.Params, height, a.Policy.BlockMaxWeight)
	tmpl := newTemplate(height, acct, nil)
	tmpl.Txs = append(tmpl.Txs, placeholderCoinbase(coinbaseScript))
	tmpl.Fees = append(tmpl.Fees, 0)
	tmpl.SigOps = append(tmpl.SigOps, 0)

	engine, err := a.openEngineIfActive(height)
	if err != nil {
		return nil, err
	}
	tmpl.engine = engine
	if engine != nil {
		defer func() { _ = engine.close() }()
	}

	sel := &selector{
		pool:          a.Pool,
		accountant:    acct,
		policy:        a.Policy,
		deadline:      deadline{unix: deadlineUnix, now: a.now()},
		allowContract: engine != nil,
		tmpl:          tmpl,
	}
	sel.selectPackages()

	a.finalizeCoinbase(tmpl, acct, height)
	return tmpl, nil
}

// CreateNewBlockPos assembles a PoS template: the kernel search runs
// first (before any mempool selection) so the winning outpoint can be
// excluded from the package selector as a double-spend guard, and the
// coinstake transaction occupies slot 1, immediately after the
// coinbase.
func (a *Assembler) CreateNewBlockPos(height uint32, prevHash chainhash.Hash, prevHeight uint32, nTime, nBits uint32, coinbaseScript []byte, candidates []StakeCandidate, deadlineUnix int64) (*Template, error) {
	onEnd := logger.LogAndMeasureExecutionTime(log, "Assembler.CreateNewBlockPos")
	defer onEnd()

	if a.Params.IsForkHeight(height) {
		return nil, nil
	}
	if nTime == 0 {
		nTime = currentStakeTime()
	}

	ctx := kernelContext{
		params:      a.Params,
		prevHash:    prevHash,
		prevHeight:  prevHeight,
		nTime:       nTime,
		nBits:       nBits,
		blockHashAt: a.BlockHashAt,
	}
	kernel, found := SearchKernel(ctx, height, candidates, a.CoinLookup)
	if !found {
		return nil, nil
	}

	acct := newAccountant(a.Params, height, a.Policy.BlockMaxWeight)
	tmpl := newTemplate(height, acct, nil)
	tmpl.Txs = append(tmpl.Txs, placeholderCoinbase(coinbaseScript))
	tmpl.Fees = append(tmpl.Fees, 0)
	tmpl.SigOps = append(tmpl.SigOps, 0)

	coinstake := BuildCoinstake(kernel)
	tmpl.Txs = append(tmpl.Txs, coinstake)
	tmpl.Fees = append(tmpl.Fees, 0)
	tmpl.SigOps = append(tmpl.SigOps, 0)
	tmpl.hashes[coinstake.TxHash()] = true

	engine, err := a.openEngineIfActive(height)
	if err != nil {
		return nil, err
	}
	tmpl.engine = engine
	if engine != nil {
		defer func() { _ = engine.close() }()
	}

	stakeOutpoint := kernel.Outpoint
	sel := &selector{
		pool:          a.Pool,
		accountant:    acct,
		policy:        a.Policy,
		deadline:      deadline{unix: deadlineUnix, now: a.now()},
		allowContract: engine != nil,
		stakeOutpoint: &stakeOutpoint,
		tmpl:          tmpl,
	}
	sel.selectPackages()

	a.finalizeCoinbase(tmpl, acct, height)
	return tmpl, nil
}

// openEngineIfActive opens the contract engine once height has crossed
// the activation height, and returns (nil, nil) before it: contract
// inclusion is simply unavailable on blocks below that height, not an
// error.
func (a *Assembler) openEngineIfActive(height uint32) (*contractEngine, error) {
	if a.store == nil || !a.Params.ContractsActive(height) {
		return nil, nil
	}
	return openContractEngine(a.store, a.converter, a.validator, a.vm, a.Policy.BlockMaxWeight)
}

// finalizeCoinbase rewrites the coinbase's output value to the height
// subsidy plus collected fees and attaches the contract root-state-hash
// commitment, mirroring the reference assembler's final coinbase
// rebuild step once every other transaction's cost is known.
func (a *Assembler) finalizeCoinbase(tmpl *Template, acct *accountant, height uint32) {
	reward := a.Params.GetBlockSubsidy(height) + acct.fees
	coinbase := tmpl.Txs[0]
	coinbase.TxOut[0].Value = reward

	if tmpl.engine != nil {
		root := tmpl.engine.currentRoot()
		tmpl.CoinbaseRootStateHash = []byte(root)
		coinbase.AddTxOut(wire.NewTxOut(0, rootStateHashScript(tmpl.CoinbaseRootStateHash)))
	}
}

// placeholderCoinbase returns the minimal coinbase shape every
// assembly call starts from: one input with the null prevout and a
// single reward output paid to coinbaseScript. The input script is
// coinbaseScript followed by a random 8-byte extra nonce, so that two
// otherwise identical templates (same height, same mempool, same
// reward) do not collide on transaction id; the block height is not
// encoded in it.
func placeholderCoinbase(coinbaseScript []byte) *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	sigScript := coinbaseScript
	if extraNonce, err := random.Uint64(); err == nil {
		var nonceBuf [8]byte
		binary.LittleEndian.PutUint64(nonceBuf[:], extraNonce)
		sigScript = append(append([]byte{}, coinbaseScript...), nonceBuf[:]...)
	}
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: wire.MaxTxInSequenceNum}, sigScript, nil))
	tx.AddTxOut(wire.NewTxOut(0, coinbaseScript))
	return tx
}

// currentStakeTime returns the present Unix time in whole seconds,
// read from the millisecond-precision clock: the nTime a staker offers to CreateNewBlockPos when it has no
// better source (network-adjusted time) available.
func currentStakeTime() uint32 {
	return uint32(mstime.Now().Unix())
}

// rootStateHashScript wraps the committed root hash in a minimal
// push-data script tagged with opRootStateHash, the marker downstream
// validation scans the coinbase's outputs for.
func rootStateHashScript(root []byte) []byte {
	script := make([]byte, 0, len(root)+2)
	script = append(script, opRootStateHash, byte(len(root)))
	script = append(script, root...)
	return script
}

// buildForkV4Template reconstructs the deterministic holy-burn set: no
// mempool transaction is considered at this height at all.
func (a *Assembler) buildForkV4Template(height uint32, coinbaseScript []byte) (*Template, error) {
	tmpl := newTemplate(height, nil, nil)
	tmpl.Txs = append(tmpl.Txs, placeholderCoinbase(coinbaseScript))
	tmpl.Fees = append(tmpl.Fees, 0)
	tmpl.SigOps = append(tmpl.SigOps, 0)

	bad := ScanBadUTXOs(a.Params, a.BlockByHeight, a.AddressOf)
	for _, tx := range BuildHolyBurnTransactions(bad) {
		tmpl.Txs = append(tmpl.Txs, tx)
		tmpl.Fees = append(tmpl.Fees, 0)
		tmpl.SigOps = append(tmpl.SigOps, 0)
		tmpl.hashes[tx.TxHash()] = true
	}
	tmpl.Txs[0].TxOut[0].Value = a.Params.GetBlockSubsidy(height)
	return tmpl, nil
}

// buildForkV5Template reconstructs the single literal refund
// transaction: again, no mempool transaction is considered.
func (a *Assembler) buildForkV5Template(height uint32, coinbaseScript []byte) (*Template, error) {
	tmpl := newTemplate(height, nil, nil)
	tmpl.Txs = append(tmpl.Txs, placeholderCoinbase(coinbaseScript))
	tmpl.Fees = append(tmpl.Fees, 0)
	tmpl.SigOps = append(tmpl.SigOps, 0)

	refund := BuildRefundTransaction()
	tmpl.Txs = append(tmpl.Txs, refund)
	tmpl.Fees = append(tmpl.Fees, 0)
	tmpl.SigOps = append(tmpl.SigOps, 0)
	tmpl.hashes[refund.TxHash()] = true

	tmpl.Txs[0].TxOut[0].Value = a.Params.GetBlockSubsidy(height)
	return tmpl, nil
}

func (a *Assembler) now() func() int64 {
	if a.Now != nil {
		return a.Now
	}
	return func() int64 { return 0 }
}
