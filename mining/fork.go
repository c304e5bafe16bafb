package mining

import (
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/forgecoind/forgecoind/chainhash"
	"github.com/forgecoind/forgecoind/chaincfg"
	"github.com/forgecoind/forgecoind/txscript"
	"github.com/forgecoind/forgecoind/wire"
)

// forkV4WhitelistAddresses are the two addresses whose outputs the
// bad-UTXO scan's forward propagation never marks bad; the coinstake
// value-mismatch rule does not consult them. Their
// role is not documented anywhere upstream of this constant; they are
// preserved verbatim as consensus-critical data.
var forkV4WhitelistAddresses = map[string]bool{
	"3BbKnVAatHjjzXb8uSa3SyEFCYdUA6VMy9": true,
	"1BycBHJvoSbfmsprK6QctGU7ei8MB4kAme": true,
}

// HistoricalBlock is the minimal view of a historical block the bad-
// UTXO scan needs: its transactions and whether it is a PoS block.
type HistoricalBlock struct {
	Txs          []*wire.MsgTx
	IsProofOfStake bool
}

// BlockByHeight retrieves a historical block for the scan. The scan
// never runs past chain tip, so a missing height is a programmer
// error, not a condition the scan needs to handle.
type BlockByHeight func(height uint32) HistoricalBlock

// AddressOf resolves a scriptPubKey's first destination address, the
// external Solver/ExtractDestinations collaborator the whitelist check
// consults.
type AddressOf func(pkScript []byte) string

// badOutput is one UTXO the scan has flagged, carrying the value and
// script the eventual burn transaction needs.
type badOutput struct {
	outpoint wire.OutPoint
	out      wire.TxOut
}

// ScanHolyCoins replays coinbase (index 0) and coinstake (index 1)
// output values from height 750000 up to (not including) ForkV4Height,
// seeding the rolling outpoint->value map the bad-UTXO scan checks
// coinstake inputs against.
func ScanHolyCoins(params *chaincfg.Params, blockAt BlockByHeight) map[wire.OutPoint]int64 {
	coins := make(map[wire.OutPoint]int64)
	for height := uint32(750_000); height < params.ForkV4Height; height++ {
		block := blockAt(height)
		for _, tx := range block.Txs {
			switch {
			case tx.IsCoinBase():
				coins[wire.OutPoint{Hash: tx.TxHash(), Index: 0}] = tx.TxOut[0].Value
			case tx.IsCoinStake():
				coins[wire.OutPoint{Hash: tx.TxHash(), Index: 1}] = tx.TxOut[1].Value
			}
		}
	}
	return coins
}

// ScanBadUTXOs walks [ScanBadTxHeight, ForkV4Height), flags coinstakes
// whose input value mismatches their output as bad along with their
// paired coinbase, then propagates badness forward through any
// transaction that spends a bad output, skipping outputs paid to the
// two whitelisted addresses during that propagation.
func ScanBadUTXOs(params *chaincfg.Params, blockAt BlockByHeight, addressOf AddressOf) []badOutput {
	coins := ScanHolyCoins(params, blockAt)

	var outputs []badOutput
	index := make(map[wire.OutPoint]int)
	add := func(op wire.OutPoint, out wire.TxOut) {
		if _, exists := index[op]; exists {
			return
		}
		index[op] = len(outputs)
		outputs = append(outputs, badOutput{outpoint: op, out: out})
	}
	remove := func(op wire.OutPoint) bool {
		i, ok := index[op]
		if !ok {
			return false
		}
		last := len(outputs) - 1
		outputs[i] = outputs[last]
		index[outputs[i].outpoint] = i
		outputs = outputs[:last]
		delete(index, op)
		return true
	}

	for height := params.ScanBadTxHeight; height < params.ForkV4Height; height++ {
		block := blockAt(height)
		for _, tx := range block.Txs {
			if block.IsProofOfStake && tx.IsCoinStake() {
				prevout := tx.TxIn[0].PreviousOutPoint
				if valueIn, ok := coins[prevout]; ok {
					valueOut := sumOutputs(tx)
					if valueIn != valueOut {
						add(wire.OutPoint{Hash: tx.TxHash(), Index: 1}, *tx.TxOut[1])
						coinbase := block.Txs[0]
						add(wire.OutPoint{Hash: coinbase.TxHash(), Index: 0}, *coinbase.TxOut[0])
					}
				}
			}

			if tx.IsCoinBase() {
				continue
			}
			related := false
			for _, in := range tx.TxIn {
				if remove(in.PreviousOutPoint) {
					related = true
				}
			}
			if !related {
				continue
			}

			startIndex := 0
			if block.IsProofOfStake && tx.IsCoinStake() {
				coinbase := block.Txs[0]
				add(wire.OutPoint{Hash: coinbase.TxHash(), Index: 0}, *coinbase.TxOut[0])
				startIndex = 1
			}
			for i := startIndex; i < len(tx.TxOut); i++ {
				addr := addressOf(tx.TxOut[i].PkScript)
				if forkV4WhitelistAddresses[addr] {
					continue
				}
				add(wire.OutPoint{Hash: tx.TxHash(), Index: uint32(i)}, *tx.TxOut[i])
			}
		}
	}
	return outputs
}

func sumOutputs(tx *wire.MsgTx) int64 {
	var total int64
	for _, out := range tx.TxOut {
		total += out.Value
	}
	return total
}

// burningPubKeyByte0x02With32Zeros is the compressed public key the
// well-known burn address is derived from: 0x02 followed by 32 zero
// bytes. It is not a valid curve point; the address exists only as an
// unspendable sink.
var burningPubKeyByte0x02With32Zeros = append([]byte{0x02}, make([]byte, 32)...)

// BurningAddress returns the well-known address the holy-burn
// transactions send to.
func BurningAddress() string {
	return txscript.EncodeP2PKHAddress(txscript.Hash160(burningPubKeyByte0x02With32Zeros))
}

// BuildHolyBurnTransactions groups the bad-UTXO set into batches of at
// most HolyBurnBatchSize outpoints and turns each batch into a single
// transaction spending all of them to the burn address, net of a flat
// HolyBurnFee.
func BuildHolyBurnTransactions(outputs []badOutput) []*wire.MsgTx {
	var txs []*wire.MsgTx
	burnScript := p2pkhScriptFor(BurningAddress())

	for len(outputs) > 0 {
		n := chaincfg.HolyBurnBatchSize
		if len(outputs) < n {
			n = len(outputs)
		}
		batch := outputs[len(outputs)-n:]
		outputs = outputs[:len(outputs)-n]

		tx := wire.NewMsgTx(wire.TxVersion)
		var total int64
		for _, bo := range batch {
			tx.AddTxIn(wire.NewTxIn(&bo.outpoint, nil, nil))
			total += bo.out.Value
		}
		tx.AddTxOut(wire.NewTxOut(total-chaincfg.HolyBurnFee, burnScript))
		txs = append(txs, tx)
	}
	return txs
}

// p2pkhScriptFor recovers the hash160 a base58check P2PKH address
// encodes and rebuilds its scriptPubKey. Every address this function
// is called with is a literal, consensus-critical constant in this
// file, never user input, so a decode failure is a programmer error.
func p2pkhScriptFor(address string) []byte {
	hash160, err := txscript.DecodeP2PKHAddress(address)
	if err != nil {
		panic(errors.Wrapf(err, "invalid P2PKH address %q", address))
	}
	return txscript.P2PKHScript(hash160)
}

// refundInputTxHash / refundInputIndex / refundInputScriptPubKey are
// the literal, consensus-critical input the ForkV5Height refund
// transaction spends.
var (
	refundInputTxHash         = mustHash("59ff1001a53d25636a0ab2fa6c6fad1af042971b8ef9e2ffc0dc5d6024ca82e5")
	refundInputIndex  uint32  = 0
	refundInputScript         = mustHex("76a9143625c4a2ea974760a816368fd15de771594476e788ac")
)

// refundOutputs are the three literal, consensus-critical recipients
// and amounts of the ForkV5Height refund transaction.
var refundOutputs = []struct {
	address string
	amount  int64
}{
	{"1FXDtibGqZvbxAPwEa6o2ff9zH197Z5BKt", 792809985302},
	{"14A94kvXiny71yQoCj8dftLDhQLzsdmEA5", 208950000},
	{"15wJjXvfQzo3SXqoWGbWZmNYND1Si4siqV", 1528394232994},
}

// BuildRefundTransaction reconstructs the single hand-coded
// ForkV5Height transaction: one literal input and three literal
// outputs. Every amount and address here must round-trip bit-exactly
// with the live chain; none of it is derived.
func BuildRefundTransaction() *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Hash: refundInputTxHash, Index: refundInputIndex}, refundInputScript, nil))
	for _, out := range refundOutputs {
		tx.AddTxOut(wire.NewTxOut(out.amount, p2pkhScriptFor(out.address)))
	}
	return tx
}

func mustHash(hexStr string) chainhash.Hash {
	b := mustHex(hexStr)
	var h chainhash.Hash
	// The reference txid is stored and displayed reversed (big-endian
	// display, little-endian storage); reverse on the way in so the
	// internal representation matches every other hash in this module.
	for i := 0; i < chainhash.HashSize; i++ {
		h[i] = b[chainhash.HashSize-1-i]
	}
	return h
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
