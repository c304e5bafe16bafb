package mining

import (
	"github.com/pkg/errors"

	"github.com/forgecoind/forgecoind/contractstate"
	"github.com/forgecoind/forgecoind/wire"
)

// ContractTransaction is one call extracted from a contract-carrying
// mempool transaction.
type ContractTransaction struct {
	Sender   []byte
	Callee   []byte
	Bytecode []byte
	Value    int64

	GasLimit       uint64
	GasPrice       uint64
	DepositAmount  int64
}

// ContractWithdrawInfo is a declared withdrawal from contract state
// that a transaction claims against its outputs.
type ContractWithdrawInfo struct {
	Account string
	Amount  int64
}

// ExtractedContractTx is everything a contract-carrying mempool
// transaction decomposes into before validation and execution.
type ExtractedContractTx struct {
	Txs             []ContractTransaction
	WithdrawInfos   []ContractWithdrawInfo
}

// ContractConverter turns a raw mempool transaction into its contract
// calls. Extraction failure (malformed OP sequence, unresolvable
// target) is reported through ok=false rather than an error, matching
// the reference converter's "this can only be triggered by crafting a
// raw transaction by hand" framing: it is an expected rejection path,
// not a programmer bug.
type ContractConverter interface {
	Extract(tx *wire.MsgTx) (ExtractedContractTx, bool)
}

// ContractValidator checks a single extracted call's parameters
// against the running per-block gas totals.
type ContractValidator interface {
	ValidateParams(call ContractTransaction, sumGasCoins, gasCountAllTxs int64, blockGasLimit uint64) bool
}

// ContractExecResult is what the VM reports after executing a set of
// calls against a snapshot of state.
type ContractExecResult struct {
	UsedGas       uint64
	WithdrawInfos []ContractWithdrawInfo
}

// ContractVM is the embedded execution engine, consumed only through
// this narrow interface: run the extracted calls against the state
// snapshot opened by the caller, and report gas usage and withdrawals.
// Execution is expected to use the open transaction's Get/Put to read
// and mutate state; errors are failures of this call only, never of
// the store itself.
type ContractVM interface {
	PerformByteCode(txn *contractstate.AttemptTxn, calls []ContractTransaction, hardGasLimit uint64, txFee int64) error
	ProcessResults() (ContractExecResult, error)
}

// contractEngine is C4: it brackets every contract-carrying mempool
// transaction's attempted inclusion in a snapshot/dry-run/keep-or-
// discard protocol, entirely in memory, so that a rejected transaction
// - or an entire abandoned assembly attempt - never touches the
// persistent store.
type contractEngine struct {
	assembly  *contractstate.Assembly
	converter ContractConverter
	validator ContractValidator
	vm        ContractVM

	softGasLimit   uint64
	hardGasLimit   uint64
	usedGas        uint64
	sumGasCoins    int64
	gasCountAllTxs int64
}

// openContractEngine opens a speculative assembly view over the
// persistent store. The caller must call close exactly once, on every
// exit path, to release it; close never writes to the database.
func openContractEngine(store *contractstate.Store, converter ContractConverter, validator ContractValidator, vm ContractVM, hardGasLimit uint64) (*contractEngine, error) {
	assembly, err := store.BeginAssembly()
	if err != nil {
		return nil, err
	}
	return &contractEngine{
		assembly:     assembly,
		converter:    converter,
		validator:    validator,
		vm:           vm,
		softGasLimit: hardGasLimit,
		hardGasLimit: hardGasLimit,
	}, nil
}

// close releases the engine's assembly snapshot. It is always safe to
// call, whether or not any contract transaction was accepted: nothing
// an attempt kept was ever written to the database, so there is
// nothing to undo.
func (e *contractEngine) close() error {
	e.assembly.Close()
	return nil
}

// currentRoot reports the content hash of every contract attempt kept
// so far in this assembly, for the coinbase's root-state-hash
// commitment.
func (e *contractEngine) currentRoot() string {
	return e.assembly.Root()
}

// attempt evaluates whether a contract-carrying mempool transaction
// can be added to the block under construction. valueIn/valueOut are
// the transaction's own coin totals (excluding contract
// deposits/withdrawals, which attempt folds in itself from the
// extracted calls and withdraw infos).
// fee is recomputed from vin+withdrawn-vout-deposited and checked
// against the calls' declared gas cost before anything touches state.
func (e *contractEngine) attempt(tx *wire.MsgTx, valueIn, valueOut int64) (ContractExecResult, bool) {
	extracted, ok := e.converter.Extract(tx)
	if !ok {
		log.Debugf("%s: %s", errContractRejected, tx.TxHash())
		return ContractExecResult{}, false
	}

	// sumGasCoins/gasCountAllTxs are staged locally through the whole
	// attempt, exactly like usedGas below: they are only folded into
	// the engine's persistent totals once this attempt is kept, so a
	// rejected attempt's gas never leaks into the next one's
	// ValidateParams view.
	sumGasCoins := e.sumGasCoins
	gasCountAllTxs := e.gasCountAllTxs

	var allWithdrawn, allDeposited int64
	for _, w := range extracted.WithdrawInfos {
		allWithdrawn += w.Amount
	}
	for _, call := range extracted.Txs {
		if !e.validator.ValidateParams(call, sumGasCoins, gasCountAllTxs, e.hardGasLimit) {
			return ContractExecResult{}, false
		}
		sumGasCoins += int64(call.GasLimit) * int64(call.GasPrice)
		gasCountAllTxs += int64(call.GasLimit)
		allDeposited += call.DepositAmount
	}

	txFee := valueIn + allWithdrawn - valueOut
	if txFee <= allDeposited {
		return ContractExecResult{}, false
	}
	txFee -= allDeposited
	if txFee < sumGasCoins {
		return ContractExecResult{}, false
	}

	txn := e.assembly.Txn()
	if err := e.vm.PerformByteCode(txn, extracted.Txs, e.hardGasLimit, txFee); err != nil {
		txn.Discard()
		return ContractExecResult{}, false
	}

	result, err := e.vm.ProcessResults()
	if err != nil {
		txn.Discard()
		return ContractExecResult{}, false
	}
	if e.usedGas+result.UsedGas > e.softGasLimit {
		txn.Discard()
		return ContractExecResult{}, false
	}
	if !withdrawInfosMatch(extracted.WithdrawInfos, result.WithdrawInfos) {
		txn.Discard()
		return ContractExecResult{}, false
	}

	if _, err := txn.Keep(); err != nil {
		return ContractExecResult{}, false
	}
	e.usedGas += result.UsedGas
	e.sumGasCoins = sumGasCoins
	e.gasCountAllTxs = gasCountAllTxs
	return result, true
}

// withdrawInfosMatch reports whether a and b are equal as multisets of
// (account, amount).
func withdrawInfosMatch(a, b []ContractWithdrawInfo) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[ContractWithdrawInfo]int, len(a))
	for _, w := range a {
		counts[w]++
	}
	for _, w := range b {
		counts[w]--
		if counts[w] < 0 {
			return false
		}
	}
	for _, n := range counts {
		if n != 0 {
			return false
		}
	}
	return true
}

// errContractRejected is the message attempt logs when the converter
// cannot extract a transaction's contract calls. It is not returned:
// attempt reports every rejection through its bool result.
var errContractRejected = errors.New("contract transaction rejected")
