// Package wire defines the wire-level transaction and block primitives
// that the rest of the module operates on: outpoints, inputs, outputs,
// and transactions, plus the classification predicates (coinbase,
// coinstake, contract-carrying) the selector and kernel search need.
package wire

import (
	"bytes"
	"encoding/binary"

	"github.com/forgecoind/forgecoind/chainhash"
)

// TxVersion is the only transaction version this module emits.
const TxVersion = 1

// MaxTxInSequenceNum is the sequence number that disables relative
// locktime / replace-by-fee semantics for an input.
const MaxTxInSequenceNum uint32 = 0xffffffff

// OutPoint identifies a specific output of a specific previous
// transaction: the UTXO a TxIn spends.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// NewOutPoint returns a new OutPoint for the given hash and index.
func NewOutPoint(hash *chainhash.Hash, index uint32) *OutPoint {
	return &OutPoint{Hash: *hash, Index: index}
}

// IsNull reports whether the outpoint is the null outpoint used by a
// coinbase input's single, unspendable prevout.
func (o OutPoint) IsNull() bool {
	return o.Index == MaxTxInSequenceNum && o.Hash == chainhash.ZeroHash
}

// String renders the outpoint as "hash:index".
func (o OutPoint) String() string {
	return o.Hash.String() + ":" + itoa(int64(o.Index))
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// TxIn defines a transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Witness          [][]byte
	Sequence         uint32
}

// NewTxIn returns a new TxIn with the given prevout and signature script.
func NewTxIn(prevOut *OutPoint, signatureScript []byte, witness [][]byte) *TxIn {
	return &TxIn{
		PreviousOutPoint: *prevOut,
		SignatureScript:  signatureScript,
		Witness:          witness,
		Sequence:         MaxTxInSequenceNum,
	}
}

// HasWitness reports whether this input carries witness data.
func (t *TxIn) HasWitness() bool {
	return len(t.Witness) > 0
}

// SerializeSize returns an approximation of the marshalled size of the
// input, used for package-selection accounting; the real wire codec is
// outside this module's scope.
func (t *TxIn) SerializeSize() int {
	// outpoint (32+4) + sequence (4) + script with a varint-ish length byte
	return 32 + 4 + 4 + 1 + len(t.SignatureScript)
}

// TxOut defines a transaction output.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// NewTxOut returns a new TxOut with the given value and script.
func NewTxOut(value int64, pkScript []byte) *TxOut {
	return &TxOut{Value: value, PkScript: pkScript}
}

// SerializeSize returns an approximation of the marshalled size of the
// output.
func (t *TxOut) SerializeSize() int {
	return 8 + 1 + len(t.PkScript)
}

// MsgTx is a Bitcoin-style transaction: an ordered set of inputs and
// outputs plus version and locktime. Classification helpers
// (IsCoinBase/IsCoinStake/HasContractOp/...) let the selector and kernel
// search reason about a transaction without reaching into script
// internals, which are out of this module's scope.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32

	// opFlags records classification bits set by the producer/consumer of
	// this transaction (e.g. the mempool) rather than recomputed from the
	// script on every access; script parsing itself is out of scope.
	opFlags OpFlags
}

// OpFlags are classification bits attached to a transaction by whatever
// produced it (typically the mempool, on first sight of the tx). The
// selector and contract engine consult them without ever parsing a
// script themselves.
type OpFlags uint8

const (
	// OpFlagContract marks a transaction that carries at least one
	// contract opcode (OP_CREATE / OP_CALL) in one of its outputs.
	OpFlagContract OpFlags = 1 << iota
	// OpFlagOpSpend marks a transaction that spends a contract's
	// OP_SPEND output.
	OpFlagOpSpend
)

// NewMsgTx returns an empty transaction of the given version.
func NewMsgTx(version int32) *MsgTx {
	return &MsgTx{Version: version}
}

// AddTxIn appends an input.
func (m *MsgTx) AddTxIn(ti *TxIn) { m.TxIn = append(m.TxIn, ti) }

// AddTxOut appends an output.
func (m *MsgTx) AddTxOut(to *TxOut) { m.TxOut = append(m.TxOut, to) }

// SetOpFlags overwrites the classification flags for this transaction.
func (m *MsgTx) SetOpFlags(f OpFlags) { m.opFlags = f }

// HasContractOp reports whether the transaction carries a contract opcode.
func (m *MsgTx) HasContractOp() bool { return m.opFlags&OpFlagContract != 0 }

// HasOpSpend reports whether the transaction spends a contract OP_SPEND
// output.
func (m *MsgTx) HasOpSpend() bool { return m.opFlags&OpFlagOpSpend != 0 }

// IsCoinBase reports whether tx is a coinbase: exactly one input with a
// null previous outpoint.
func (m *MsgTx) IsCoinBase() bool {
	return len(m.TxIn) == 1 && m.TxIn[0].PreviousOutPoint.IsNull()
}

// IsCoinStake reports whether tx is a coinstake: first output empty
// (zero value, empty script) and at least 2 outputs, and not a coinbase.
func (m *MsgTx) IsCoinStake() bool {
	if m.IsCoinBase() || len(m.TxOut) < 2 {
		return false
	}
	first := m.TxOut[0]
	return first.Value == 0 && len(first.PkScript) == 0
}

// HasWitness reports whether any input carries witness data.
func (m *MsgTx) HasWitness() bool {
	for _, in := range m.TxIn {
		if in.HasWitness() {
			return true
		}
	}
	return false
}

// TxHash computes the transaction id: the double-SHA256 of the
// legacy (non-witness) serialization. This is a simplified encoder
// sufficient for identity and ordering purposes; full wire
// serialization/deserialization is outside this module's scope.
func (m *MsgTx) TxHash() chainhash.Hash {
	var buf bytes.Buffer
	_ = m.serialize(&buf)
	return chainhash.DoubleHashH(buf.Bytes())
}

func (m *MsgTx) serialize(buf *bytes.Buffer) error {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(m.Version))
	buf.Write(n[:])

	writeVarInt(buf, uint64(len(m.TxIn)))
	for _, in := range m.TxIn {
		buf.Write(in.PreviousOutPoint.Hash[:])
		binary.LittleEndian.PutUint32(n[:], in.PreviousOutPoint.Index)
		buf.Write(n[:])
		writeVarInt(buf, uint64(len(in.SignatureScript)))
		buf.Write(in.SignatureScript)
		binary.LittleEndian.PutUint32(n[:], in.Sequence)
		buf.Write(n[:])
	}

	writeVarInt(buf, uint64(len(m.TxOut)))
	for _, out := range m.TxOut {
		var v [8]byte
		binary.LittleEndian.PutUint64(v[:], uint64(out.Value))
		buf.Write(v[:])
		writeVarInt(buf, uint64(len(out.PkScript)))
		buf.Write(out.PkScript)
	}

	binary.LittleEndian.PutUint32(n[:], m.LockTime)
	buf.Write(n[:])
	return nil
}

// writeVarInt writes v using Bitcoin's CompactSize encoding.
func writeVarInt(buf *bytes.Buffer, v uint64) {
	switch {
	case v < 0xfd:
		buf.WriteByte(byte(v))
	case v <= 0xffff:
		buf.WriteByte(0xfd)
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(v))
		buf.Write(b[:])
	case v <= 0xffffffff:
		buf.WriteByte(0xfe)
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(v))
		buf.Write(b[:])
	default:
		buf.WriteByte(0xff)
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		buf.Write(b[:])
	}
}

// SerializeSize approximates the marshalled size of the transaction for
// weight/size accounting purposes.
func (m *MsgTx) SerializeSize() int {
	size := 4 + 4 // version + locktime
	size += varIntSize(uint64(len(m.TxIn)))
	for _, in := range m.TxIn {
		size += in.SerializeSize()
	}
	size += varIntSize(uint64(len(m.TxOut)))
	for _, out := range m.TxOut {
		size += out.SerializeSize()
	}
	return size
}

func varIntSize(v uint64) int {
	switch {
	case v < 0xfd:
		return 1
	case v <= 0xffff:
		return 3
	case v <= 0xffffffff:
		return 5
	default:
		return 9
	}
}
