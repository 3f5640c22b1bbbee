// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"github.com/polarbearzoo/NBitcoin/btcutil/er"
	"github.com/polarbearzoo/NBitcoin/txscript/opcode"
	"github.com/polarbearzoo/NBitcoin/txscript/parsescript"
	"github.com/polarbearzoo/NBitcoin/txscript/scriptbuilder"
	"github.com/polarbearzoo/NBitcoin/txscript/txscripterr"
	"github.com/polarbearzoo/NBitcoin/wire"
)

// SignatureVerifier checks whether sig is a valid signature by pubkey over
// the signature hash of subscript for input idx of tx. It is supplied by
// the caller; this package never constructs or verifies a signature itself.
type SignatureVerifier interface {
	Check(sig, pubkey, subscript []byte, tx *wire.MsgTx, idx int) bool
}

// pushes returns the raw pushed-data items of a script, in order, ignoring
// any non-push opcodes (OP_0 included as a nil/empty push). Used only to
// pull apart already-push-only signature scripts.
func pushes(script []byte) [][]byte {
	pops, err := parsescript.ParseScript(script)
	if err != nil {
		return nil
	}
	out := make([][]byte, 0, len(pops))
	for _, pop := range pops {
		if pop.Opcode.Value > opcode.OP_16 {
			continue
		}
		out = append(out, pop.Data)
	}
	return out
}

func buildPushes(items [][]byte) ([]byte, er.R) {
	b := scriptbuilder.NewScriptBuilder()
	for _, item := range items {
		if item == nil {
			b.AddOp(opcode.OP_0)
		} else {
			b.AddData(item)
		}
	}
	return b.Script()
}

// CombineSignatures merges two candidate script_sigs spending script_pubkey
// pkScript at input idx of tx, producing one that is at least as good as
// either input, preferring a fully satisfying script over a partial one.
func CombineSignatures(
	pkScript []byte,
	tx *wire.MsgTx,
	idx int,
	sigScript1, sigScript2 []byte,
	verifier SignatureVerifier,
) ([]byte, er.R) {
	class := GetScriptClass(pkScript)
	return combineSignatures(class, pkScript, tx, idx, sigScript1, sigScript2, verifier)
}

func combineSignatures(
	class ScriptClass,
	pkScript []byte,
	tx *wire.MsgTx,
	idx int,
	sigScript1, sigScript2 []byte,
	verifier SignatureVerifier,
) ([]byte, er.R) {
	switch class {
	case PubKeyTy, PubKeyHashTy:
		return combineFirstSatisfying(sigScript1, sigScript2), nil

	case ScriptHashTy:
		return combineScriptHash(pkScript, tx, idx, sigScript1, sigScript2, verifier)

	case MultiSigTy:
		return combineMultiSig(pkScript, tx, idx, sigScript1, sigScript2, verifier)

	case NullDataTy, NonStandardTy:
		fallthrough
	default:
		return combineMorePushes(sigScript1, sigScript2), nil
	}
}

// combineMorePushes returns whichever script has more pushed items, ties
// going to the first.
func combineMorePushes(sigScript1, sigScript2 []byte) []byte {
	if len(pushes(sigScript2)) > len(pushes(sigScript1)) {
		return sigScript2
	}
	return sigScript1
}

// combineFirstSatisfying returns the first candidate whose first push is
// non-empty (i.e. carries a real signature), else the second.
func combineFirstSatisfying(sigScript1, sigScript2 []byte) []byte {
	p1 := pushes(sigScript1)
	if len(p1) > 0 && len(p1[0]) > 0 {
		return sigScript1
	}
	return sigScript2
}

// combineScriptHash recurses into the inner spending scripts, treating the
// shared final push (the redeem script) as the new script_pubkey.
func combineScriptHash(
	pkScript []byte,
	tx *wire.MsgTx,
	idx int,
	sigScript1, sigScript2 []byte,
	verifier SignatureVerifier,
) ([]byte, er.R) {
	p1 := pushes(sigScript1)
	p2 := pushes(sigScript2)
	if len(p1) == 0 || len(p2) == 0 {
		return combineMorePushes(sigScript1, sigScript2), nil
	}

	redeem1 := p1[len(p1)-1]
	redeem2 := p2[len(p2)-1]
	if redeem1 == nil || redeem2 == nil || !bytesEqual(redeem1, redeem2) {
		return combineMorePushes(sigScript1, sigScript2), nil
	}

	inner1, err := buildPushes(p1[:len(p1)-1])
	if err != nil {
		return nil, err
	}
	inner2, err := buildPushes(p2[:len(p2)-1])
	if err != nil {
		return nil, err
	}

	innerClass := GetScriptClass(redeem1)
	combinedInner, err := combineSignatures(innerClass, redeem1, tx, idx, inner1, inner2, verifier)
	if err != nil {
		return nil, err
	}

	items := append(pushes(combinedInner), redeem1)
	return buildPushes(items)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// combineMultiSig merges two candidate multisig script_sigs by trying every
// pushed item from either candidate against each declared pubkey in order,
// assembling m verified signatures and padding the rest with OP_0.
func combineMultiSig(
	pkScript []byte,
	tx *wire.MsgTx,
	idx int,
	sigScript1, sigScript2 []byte,
	verifier SignatureVerifier,
) ([]byte, er.R) {
	params, err := ExtractScriptParams(pkScript)
	if err != nil {
		return nil, err
	}
	if params.Class != MultiSigTy {
		return nil, txscripterr.ScriptError(txscripterr.ErrInvalidMultisigParams,
			"script_pubkey does not parse as a multisig template")
	}

	candidates := make([][]byte, 0, 8)
	for _, data := range pushes(sigScript1) {
		if len(data) > 0 {
			candidates = append(candidates, data)
		}
	}
	for _, data := range pushes(sigScript2) {
		if len(data) > 0 {
			candidates = append(candidates, data)
		}
	}

	assembled := make([][]byte, 0, params.RequiredSigs)
	used := make([]bool, len(candidates))
	for _, pubKey := range params.PubKeys {
		if len(assembled) >= params.RequiredSigs {
			break
		}
		for i, sig := range candidates {
			if used[i] {
				continue
			}
			if verifier.Check(sig, pubKey, pkScript, tx, idx) {
				assembled = append(assembled, sig)
				used[i] = true
				break
			}
		}
	}

	// Pad any unfilled signature slots with OP_0.
	for len(assembled) < params.RequiredSigs {
		assembled = append(assembled, nil)
	}

	// CHECKMULTISIG pops one extra stack item due to a historic off-by-one
	// bug; this leading OP_0 satisfies that consumption and must not be
	// removed.
	items := append([][]byte{nil}, assembled...)
	return buildPushes(items)
}
