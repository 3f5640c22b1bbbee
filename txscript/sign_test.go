// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"testing"

	"github.com/polarbearzoo/NBitcoin/chainhash"
	"github.com/polarbearzoo/NBitcoin/txscript/opcode"
	"github.com/polarbearzoo/NBitcoin/txscript/scriptbuilder"
	"github.com/polarbearzoo/NBitcoin/wire"
)

// fixedVerifier treats any (sig, pubkey) pair present in its accept set as
// valid, regardless of tx/idx/subscript -- enough to exercise the combiner's
// selection logic without a real EC signature verifier.
type fixedVerifier map[string]bool

func sigKey(sig, pubkey []byte) string {
	return string(sig) + "|" + string(pubkey)
}

func (f fixedVerifier) Check(sig, pubkey, subscript []byte, tx *wire.MsgTx, idx int) bool {
	return f[sigKey(sig, pubkey)]
}

func dummyTx() *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, 0), nil))
	tx.AddTxOut(wire.NewTxOut(1, nil))
	return tx
}

// TestCombineSignaturesMultisig reproduces spec scenario 4: combining two
// partial 2-of-3 multisig script_sigs, each carrying one valid signature in
// a different slot, yields both signatures in declaration order.
func TestCombineSignaturesMultisig(t *testing.T) {
	pubA, pubB, pubC := testPubKey(0xaa), testPubKey(0xbb), testPubKey(0xcc)
	sigA, sigB := []byte("sigA"), []byte("sigB")

	pkScript, err := MultiSigScript([][]byte{pubA, pubB, pubC}, 2)
	if err != nil {
		t.Fatalf("MultiSigScript: %v", err)
	}

	sigScript1 := mustScript(t, scriptbuilder.NewScriptBuilder().
		AddOp(opcode.OP_0).AddData(sigA).AddOp(opcode.OP_0))
	sigScript2 := mustScript(t, scriptbuilder.NewScriptBuilder().
		AddOp(opcode.OP_0).AddOp(opcode.OP_0).AddData(sigB))

	verifier := fixedVerifier{
		sigKey(sigA, pubA): true,
		sigKey(sigB, pubB): true,
	}

	combined, err := CombineSignatures(pkScript, dummyTx(), 0, sigScript1, sigScript2, verifier)
	if err != nil {
		t.Fatalf("CombineSignatures: %v", err)
	}

	want := mustScript(t, scriptbuilder.NewScriptBuilder().
		AddOp(opcode.OP_0).AddData(sigA).AddData(sigB))
	if !bytes.Equal(combined, want) {
		t.Errorf("combined multisig: want %x got %x", want, combined)
	}
}

// TestCombineSignaturesPubKeyHash ensures the P2PKH combiner prefers the
// candidate that actually carries a signature.
func TestCombineSignaturesPubKeyHash(t *testing.T) {
	pubKeyHash := make([]byte, 20)
	pubKeyHash[0] = 0x01
	pkScript, err := PayToPubKeyHashScript(pubKeyHash)
	if err != nil {
		t.Fatalf("PayToPubKeyHashScript: %v", err)
	}

	empty := mustScript(t, scriptbuilder.NewScriptBuilder())
	withSig := mustScript(t, scriptbuilder.NewScriptBuilder().
		AddData([]byte("sig")).AddData(testPubKey(0xaa)))

	combined, err := CombineSignatures(pkScript, dummyTx(), 0, empty, withSig, fixedVerifier{})
	if err != nil {
		t.Fatalf("CombineSignatures: %v", err)
	}
	if !bytes.Equal(combined, withSig) {
		t.Errorf("want the signed candidate, got %x", combined)
	}
}
