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
	"github.com/polarbearzoo/NBitcoin/txscript/params"
	"github.com/polarbearzoo/NBitcoin/txscript/scriptbuilder"
	"github.com/polarbearzoo/NBitcoin/wire"
)

// serializeWithHashType builds the expected sentinel-free digest by hand:
// SHA256d(tx'.Serialize() || LE32(hashType)).
func serializeWithHashType(t *testing.T, tx *wire.MsgTx, hashType params.SigHashType) []byte {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	buf.WriteByte(byte(hashType))
	buf.WriteByte(byte(hashType >> 8))
	buf.WriteByte(byte(hashType >> 16))
	buf.WriteByte(byte(hashType >> 24))
	return chainhash.DoubleHashB(buf.Bytes())
}

func outPoint(b byte) *wire.OutPoint {
	var h chainhash.Hash
	h[0] = b
	return wire.NewOutPoint(&h, 0)
}

// TestCalcSignatureHashScenario1 reproduces spec scenario 1: SigHashAll on a
// 1-in 1-out transaction whose subscript is a P2PKH template.
func TestCalcSignatureHashScenario1(t *testing.T) {
	keyHash := make([]byte, 20)
	keyHash[0] = 0xaa
	subscript := mustScript(t, scriptbuilder.NewScriptBuilder().
		AddOp(opcode.OP_DUP).AddOp(opcode.OP_HASH160).AddData(keyHash).
		AddOp(opcode.OP_EQUALVERIFY).AddOp(opcode.OP_CHECKSIG))

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(outPoint(0x01), []byte("garbage-stripped-before-hashing")))
	tx.AddTxOut(wire.NewTxOut(5000, []byte("pkscript")))

	got, err := CalcSignatureHash(subscript, params.SigHashAll, tx, 0)
	if err != nil {
		t.Fatalf("CalcSignatureHash: %v", err)
	}

	expectedTx := wire.NewMsgTx(wire.TxVersion)
	expectedTx.AddTxIn(wire.NewTxIn(outPoint(0x01), subscript))
	expectedTx.AddTxOut(wire.NewTxOut(5000, []byte("pkscript")))
	want := serializeWithHashType(t, expectedTx, params.SigHashAll)

	if !bytes.Equal(got, want) {
		t.Errorf("scenario 1: want %x got %x", want, got)
	}
}

// TestCalcSignatureHashScenario2 reproduces spec scenario 2: SigHashSingle |
// AnyOneCanPay on input 1 of a 3-in 2-out transaction.
func TestCalcSignatureHashScenario2(t *testing.T) {
	subscript := mustScript(t, scriptbuilder.NewScriptBuilder().AddOp(opcode.OP_CHECKSIG))

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(outPoint(0x01), nil))
	tx.AddTxIn(wire.NewTxIn(outPoint(0x02), nil))
	tx.AddTxIn(wire.NewTxIn(outPoint(0x03), nil))
	tx.AddTxOut(wire.NewTxOut(1000, []byte("out0")))
	tx.AddTxOut(wire.NewTxOut(2000, []byte("out1")))

	hashType := params.SigHashSingle | params.SigHashAnyOneCanPay
	got, err := CalcSignatureHash(subscript, hashType, tx, 1)
	if err != nil {
		t.Fatalf("CalcSignatureHash: %v", err)
	}

	expectedTx := wire.NewMsgTx(wire.TxVersion)
	expectedTx.AddTxIn(wire.NewTxIn(outPoint(0x02), subscript))
	expectedTx.AddTxOut(wire.NewTxOut(-1, nil))
	expectedTx.AddTxOut(wire.NewTxOut(2000, []byte("out1")))
	want := serializeWithHashType(t, expectedTx, hashType)

	if !bytes.Equal(got, want) {
		t.Errorf("scenario 2: want %x got %x", want, got)
	}
}

// TestCalcSignatureHashOutOfRangeInput covers the boundary behavior in spec
// section 8: idx == len(tx.TxIn) must return the uint256(1) sentinel rather
// than panicking or silently hashing a mismatched index.
func TestCalcSignatureHashOutOfRangeInput(t *testing.T) {
	subscript := mustScript(t, scriptbuilder.NewScriptBuilder().AddOp(opcode.OP_CHECKSIG))

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(outPoint(0x01), nil))
	tx.AddTxOut(wire.NewTxOut(1, nil))

	want := make([]byte, 32)
	want[0] = 0x01

	for _, hashType := range []params.SigHashType{
		params.SigHashAll,
		params.SigHashAll | params.SigHashAnyOneCanPay,
	} {
		got, err := CalcSignatureHash(subscript, hashType, tx, len(tx.TxIn))
		if err != nil {
			t.Fatalf("CalcSignatureHash: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("hashType %v: want sentinel %x got %x", hashType, want, got)
		}
	}
}

// TestCalcSignatureHashOutOfRangeSingleOutput covers the SigHashSingle
// out-of-range-output sentinel from spec section 8.
func TestCalcSignatureHashOutOfRangeSingleOutput(t *testing.T) {
	subscript := mustScript(t, scriptbuilder.NewScriptBuilder().AddOp(opcode.OP_CHECKSIG))

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(outPoint(0x01), nil))
	tx.AddTxIn(wire.NewTxIn(outPoint(0x02), nil))
	tx.AddTxOut(wire.NewTxOut(1, nil))

	want := make([]byte, 32)
	want[0] = 0x01

	got, err := CalcSignatureHash(subscript, params.SigHashSingle, tx, 1)
	if err != nil {
		t.Fatalf("CalcSignatureHash: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("want sentinel %x got %x", want, got)
	}
}
