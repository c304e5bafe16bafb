package mining

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/forgecoind/forgecoind/chaincfg"
	"github.com/forgecoind/forgecoind/contractstate"
	"github.com/forgecoind/forgecoind/mempool"
	"github.com/forgecoind/forgecoind/wire"
)

// fakeConverter returns a fixed extraction result for every call,
// regardless of the transaction passed in.
type fakeConverter struct {
	extracted ExtractedContractTx
	ok        bool
}

func (f *fakeConverter) Extract(tx *wire.MsgTx) (ExtractedContractTx, bool) {
	return f.extracted, f.ok
}

// fakeValidator always returns ok, and records the (sumGasCoins,
// gasCountAllTxs) pair it was called with so a test can assert whether
// a prior rejected attempt's gas leaked into a later call's view.
type fakeValidator struct {
	ok   bool
	seen []gasSnapshot
}

type gasSnapshot struct {
	sumGasCoins    int64
	gasCountAllTxs int64
}

func (f *fakeValidator) ValidateParams(call ContractTransaction, sumGasCoins, gasCountAllTxs int64, blockGasLimit uint64) bool {
	f.seen = append(f.seen, gasSnapshot{sumGasCoins, gasCountAllTxs})
	return f.ok
}

// fakeVM is a scriptable stand-in for the embedded execution engine.
type fakeVM struct {
	performErr error
	processErr error
	result     ContractExecResult
}

func (f *fakeVM) PerformByteCode(txn *contractstate.AttemptTxn, calls []ContractTransaction, hardGasLimit uint64, txFee int64) error {
	return f.performErr
}

func (f *fakeVM) ProcessResults() (ContractExecResult, error) {
	return f.result, f.processErr
}

func newTestEngine(t *testing.T, converter ContractConverter, validator ContractValidator, vm ContractVM, hardGasLimit uint64) *contractEngine {
	t.Helper()
	store, err := contractstate.Open(t.TempDir(), "state")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	engine, err := openContractEngine(store, converter, validator, vm, hardGasLimit)
	if err != nil {
		t.Fatalf("openContractEngine: %v", err)
	}
	t.Cleanup(func() { _ = engine.close() })
	return engine
}

var oneCall = ContractTransaction{GasLimit: 100, GasPrice: 1}

// TestAttemptRejectedOnFeeDoesNotLeakGasCounters covers the rejection
// path that happens before the VM is ever invoked: the per-call
// validation loop has already advanced a local gas total when the fee
// check below it fails. A later attempt in the same engine must still
// see zero, not the rejected attempt's gas.
func TestAttemptRejectedOnFeeDoesNotLeakGasCounters(t *testing.T) {
	converter := &fakeConverter{ok: true, extracted: ExtractedContractTx{Txs: []ContractTransaction{oneCall}}}
	validator := &fakeValidator{ok: true}
	vm := &fakeVM{}
	engine := newTestEngine(t, converter, validator, vm, 1_000_000)

	// valueIn == valueOut == 0 makes txFee == 0, which is <= the zero
	// deposit: rejected by the fee check, after the call loop has
	// already advanced the local gas totals.
	if _, ok := engine.attempt(wire.NewMsgTx(wire.TxVersion), 0, 0); ok {
		t.Fatalf("expected the fee check to reject this attempt")
	}

	engine.attempt(wire.NewMsgTx(wire.TxVersion), 0, 0)

	if len(validator.seen) != 2 {
		t.Fatalf("expected two ValidateParams calls, got %d", len(validator.seen))
	}
	if validator.seen[1] != (gasSnapshot{0, 0}) {
		t.Fatalf("second attempt saw %+v, want zero gas after a rejected first attempt", validator.seen[1])
	}
}

// TestAttemptRejectedByVMDoesNotLeakGasCounters covers rejection after
// the fee checks pass and the VM is invoked but fails.
func TestAttemptRejectedByVMDoesNotLeakGasCounters(t *testing.T) {
	converter := &fakeConverter{ok: true, extracted: ExtractedContractTx{Txs: []ContractTransaction{oneCall}}}
	validator := &fakeValidator{ok: true}
	vm := &fakeVM{performErr: errors.New("execution failed")}
	engine := newTestEngine(t, converter, validator, vm, 1_000_000)

	// txFee = 200, allDeposited = 0, sumGasCoins = 100: passes both fee
	// checks and reaches the VM, which then fails.
	if _, ok := engine.attempt(wire.NewMsgTx(wire.TxVersion), 200, 0); ok {
		t.Fatalf("expected the VM failure to reject this attempt")
	}

	engine.attempt(wire.NewMsgTx(wire.TxVersion), 0, 0)

	if len(validator.seen) != 2 {
		t.Fatalf("expected two ValidateParams calls, got %d", len(validator.seen))
	}
	if validator.seen[1] != (gasSnapshot{0, 0}) {
		t.Fatalf("second attempt saw %+v, want zero gas after a VM-rejected first attempt", validator.seen[1])
	}
}

// TestAttemptRejectedOnGasOverflowDoesNotLeakGasCounters is the S3
// scenario: the VM succeeds but reports more gas than the block's soft
// limit allows, so usedGas (and, with it, sumGasCoins/gasCountAllTxs)
// must not be folded in.
func TestAttemptRejectedOnGasOverflowDoesNotLeakGasCounters(t *testing.T) {
	converter := &fakeConverter{ok: true, extracted: ExtractedContractTx{Txs: []ContractTransaction{oneCall}}}
	validator := &fakeValidator{ok: true}
	vm := &fakeVM{result: ContractExecResult{UsedGas: 11}}
	engine := newTestEngine(t, converter, validator, vm, 10)

	if _, ok := engine.attempt(wire.NewMsgTx(wire.TxVersion), 200, 0); ok {
		t.Fatalf("expected the gas overflow to reject this attempt")
	}
	if engine.usedGas != 0 {
		t.Fatalf("usedGas must not advance on a rejected attempt, got %d", engine.usedGas)
	}

	engine.attempt(wire.NewMsgTx(wire.TxVersion), 0, 0)

	if validator.seen[1] != (gasSnapshot{0, 0}) {
		t.Fatalf("second attempt saw %+v, want zero gas after a gas-overflow-rejected first attempt", validator.seen[1])
	}
}

// TestAttemptRejectedOnWithdrawMismatchDoesNotLeakGasCounters is the
// S4 scenario: the VM succeeds but the withdrawals it reports don't
// match what the transaction declared.
func TestAttemptRejectedOnWithdrawMismatchDoesNotLeakGasCounters(t *testing.T) {
	extracted := ExtractedContractTx{Txs: []ContractTransaction{oneCall}}
	converter := &fakeConverter{ok: true, extracted: extracted}
	validator := &fakeValidator{ok: true}
	vm := &fakeVM{result: ContractExecResult{WithdrawInfos: []ContractWithdrawInfo{{Account: "alice", Amount: 1}}}}
	engine := newTestEngine(t, converter, validator, vm, 1_000_000)

	if _, ok := engine.attempt(wire.NewMsgTx(wire.TxVersion), 200, 0); ok {
		t.Fatalf("expected the withdraw-info mismatch to reject this attempt")
	}

	engine.attempt(wire.NewMsgTx(wire.TxVersion), 0, 0)

	if validator.seen[1] != (gasSnapshot{0, 0}) {
		t.Fatalf("second attempt saw %+v, want zero gas after a withdraw-mismatch-rejected first attempt", validator.seen[1])
	}
}

// TestAttemptAcceptedFoldsGasCountersIntoTheEngine is the control case:
// a genuinely accepted attempt must still advance the engine's totals,
// so the next attempt sees them.
func TestAttemptAcceptedFoldsGasCountersIntoTheEngine(t *testing.T) {
	extracted := ExtractedContractTx{Txs: []ContractTransaction{oneCall}}
	converter := &fakeConverter{ok: true, extracted: extracted}
	validator := &fakeValidator{ok: true}
	vm := &fakeVM{result: ContractExecResult{UsedGas: 5}}
	engine := newTestEngine(t, converter, validator, vm, 1_000_000)

	if _, ok := engine.attempt(wire.NewMsgTx(wire.TxVersion), 200, 0); !ok {
		t.Fatalf("expected this attempt to be accepted")
	}
	if engine.sumGasCoins != 100 || engine.gasCountAllTxs != 100 {
		t.Fatalf("accepted attempt must fold its gas into the engine, got sumGasCoins=%d gasCountAllTxs=%d", engine.sumGasCoins, engine.gasCountAllTxs)
	}

	engine.attempt(wire.NewMsgTx(wire.TxVersion), 0, 0)
	if validator.seen[1] != (gasSnapshot{100, 100}) {
		t.Fatalf("second attempt saw %+v, want the first attempt's accepted gas", validator.seen[1])
	}
}

// TestTryAddContractUndoesAccountantOnHardCapRejection exercises the
// Template-level path: a contract attempt that the engine would accept
// must never be handed to engine.attempt (and so never folded into the
// assembly's root state) once the accountant's own hard caps already
// reject it on size/sigops alone.
func TestTryAddContractUndoesAccountantOnHardCapRejection(t *testing.T) {
	extracted := ExtractedContractTx{Txs: []ContractTransaction{oneCall}}
	converter := &fakeConverter{ok: true, extracted: extracted}
	validator := &fakeValidator{ok: true}
	vm := &fakeVM{result: ContractExecResult{UsedGas: 1}}

	store, err := contractstate.Open(t.TempDir(), "state")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	engine, err := openContractEngine(store, converter, validator, vm, 1_000_000)
	if err != nil {
		t.Fatalf("openContractEngine: %v", err)
	}
	defer engine.close()

	params := &chaincfg.Params{}
	acct := newAccountant(params, 0, 1<<40)
	acct.blockSize = uint64(chaincfg.MaxBlockSerSize) // already at the absolute ceiling
	tmpl := newTemplate(0, acct, engine)

	preRoot := engine.currentRoot()
	preSize := acct.blockSize

	entry := &mempool.Entry{Tx: wire.NewMsgTx(wire.TxVersion), TxSize: 10}
	if tmpl.tryAddContract(entry) {
		t.Fatalf("expected the hard size cap to reject this entry")
	}
	if acct.blockSize != preSize {
		t.Fatalf("accountant charge was not undone: blockSize = %d, want %d", acct.blockSize, preSize)
	}
	if engine.currentRoot() != preRoot {
		t.Fatalf("engine root advanced even though the entry was rejected before attempt was ever called")
	}
	if tmpl.hasTx(entry.Hash()) {
		t.Fatalf("rejected entry must not be recorded in the template")
	}
}
