// Package txscript classifies standard output scripts and derives the
// P2PKH addresses the fork reconstructors need. Full script
// verification (Solver, ExtractDestinations, ContextualCheckTransaction)
// is an external collaborator the assembler only calls through pure
// predicates; this package implements just enough of that predicate
// surface to drive the kernel-type check and the burn-address
// derivation, not a general-purpose interpreter.
package txscript

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160"

	"github.com/pkg/errors"

	"github.com/btcsuite/btcutil/base58"
)

// ScriptClass identifies the standard shape of an output script.
type ScriptClass int

// The standard script classes the kernel-type check accepts, plus
// NonStandard for everything else.
const (
	NonStandardTy ScriptClass = iota
	PubKeyTy
	PubKeyHashTy
	ScriptHashTy
	MultiSigTy
	WitnessV0ScriptHashTy
	WitnessV0KeyHashTy
)

// Standard opcodes used only for shape matching; this is not a general
// script interpreter.
const (
	opDup            = 0x76
	opHash160        = 0xa9
	opEqualVerify    = 0x88
	opEqual          = 0x87
	opCheckSig       = 0xac
	opCheckMultiSig  = 0xae
	op0              = 0x00
	opData20         = 0x14
	opData32         = 0x20
	opData33         = 0x21
	opData65         = 0x41
)

// GetScriptClass returns the standard class of script, or NonStandardTy
// if it matches none of the recognized shapes.
func GetScriptClass(script []byte) ScriptClass {
	switch {
	case isPubKeyHash(script):
		return PubKeyHashTy
	case isScriptHash(script):
		return ScriptHashTy
	case isPubKey(script):
		return PubKeyTy
	case isWitnessV0KeyHash(script):
		return WitnessV0KeyHashTy
	case isWitnessV0ScriptHash(script):
		return WitnessV0ScriptHashTy
	case isMultiSig(script):
		return MultiSigTy
	default:
		return NonStandardTy
	}
}

// IsStakeableClass reports whether class is one of the kernel output
// types the stake search accepts as a source or destination script.
func IsStakeableClass(class ScriptClass) bool {
	switch class {
	case ScriptHashTy, MultiSigTy, PubKeyHashTy, PubKeyTy, WitnessV0ScriptHashTy, WitnessV0KeyHashTy:
		return true
	default:
		return false
	}
}

func isPubKeyHash(s []byte) bool {
	return len(s) == 25 && s[0] == opDup && s[1] == opHash160 && s[2] == opData20 &&
		s[23] == opEqualVerify && s[24] == opCheckSig
}

func isScriptHash(s []byte) bool {
	return len(s) == 23 && s[0] == opHash160 && s[1] == opData20 && s[22] == opEqual
}

func isPubKey(s []byte) bool {
	if len(s) == 35 && s[0] == opData33 && s[34] == opCheckSig {
		return true
	}
	return len(s) == 67 && s[0] == opData65 && s[66] == opCheckSig
}

func isWitnessV0KeyHash(s []byte) bool {
	return len(s) == 22 && s[0] == op0 && s[1] == opData20
}

func isWitnessV0ScriptHash(s []byte) bool {
	return len(s) == 34 && s[0] == op0 && s[1] == opData32
}

func isMultiSig(s []byte) bool {
	return len(s) > 2 && s[len(s)-1] == opCheckMultiSig
}

// Hash160 returns RIPEMD160(SHA256(b)), the digest Bitcoin-family
// addresses are built from.
func Hash160(b []byte) []byte {
	first := sha256.Sum256(b)
	r := ripemd160.New()
	r.Write(first[:])
	return r.Sum(nil)
}

// mainNetP2PKHVersion is the version byte base58check-encodes a
// pay-to-pubkey-hash address for the production network.
const mainNetP2PKHVersion = 0x00

// EncodeP2PKHAddress returns the base58check pay-to-pubkey-hash address
// for a 20-byte hash.
func EncodeP2PKHAddress(hash160 []byte) string {
	return base58.CheckEncode(hash160, mainNetP2PKHVersion)
}

// DecodeP2PKHAddress recovers the 20-byte hash160 a base58check
// pay-to-pubkey-hash address encodes, inverting EncodeP2PKHAddress.
func DecodeP2PKHAddress(address string) ([]byte, error) {
	hash160, version, err := base58.CheckDecode(address)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if version != mainNetP2PKHVersion {
		return nil, errors.Errorf("address %q has unexpected version byte 0x%02x", address, version)
	}
	return hash160, nil
}

// P2PKHScript returns the standard pay-to-pubkey-hash scriptPubKey for
// a 20-byte hash: OP_DUP OP_HASH160 <20-byte hash> OP_EQUALVERIFY
// OP_CHECKSIG.
func P2PKHScript(hash160 []byte) []byte {
	script := make([]byte, 0, 25)
	script = append(script, opDup, opHash160, opData20)
	script = append(script, hash160...)
	script = append(script, opEqualVerify, opCheckSig)
	return script
}
