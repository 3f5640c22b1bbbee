// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"testing"

	"github.com/polarbearzoo/NBitcoin/btcutil"
	"github.com/polarbearzoo/NBitcoin/txscript/opcode"
	"github.com/polarbearzoo/NBitcoin/txscript/scriptbuilder"
)

func testPubKey(fill byte) []byte {
	pk := make([]byte, 33)
	pk[0] = 0x02
	for i := 1; i < len(pk); i++ {
		pk[i] = fill
	}
	return pk
}

// TestExtractScriptParams exercises the template registry across the
// standard script shapes.
func TestExtractScriptParams(t *testing.T) {
	pubKey := testPubKey(0xaa)
	pubKeyHash := make([]byte, 20)
	pubKeyHash[0] = 0x11
	scriptHash := make([]byte, 20)
	scriptHash[0] = 0x22

	p2pk, err := PayToPubKeyScript(pubKey)
	if err != nil {
		t.Fatalf("PayToPubKeyScript: %v", err)
	}
	p2pkh, err := PayToPubKeyHashScript(pubKeyHash)
	if err != nil {
		t.Fatalf("PayToPubKeyHashScript: %v", err)
	}
	p2sh, err := PayToScriptHashScript(scriptHash)
	if err != nil {
		t.Fatalf("PayToScriptHashScript: %v", err)
	}
	multisig, err := MultiSigScript([][]byte{pubKey, testPubKey(0xbb)}, 2)
	if err != nil {
		t.Fatalf("MultiSigScript: %v", err)
	}
	nullData, err := NullDataScript([]byte("hello"))
	if err != nil {
		t.Fatalf("NullDataScript: %v", err)
	}

	tests := []struct {
		name   string
		script []byte
		class  ScriptClass
		check  func(TemplateParams) bool
	}{
		{"p2pk", p2pk, PubKeyTy, func(p TemplateParams) bool {
			return bytes.Equal(p.PubKey, pubKey)
		}},
		{"p2pkh", p2pkh, PubKeyHashTy, func(p TemplateParams) bool {
			return bytes.Equal(p.PubKeyHash, pubKeyHash)
		}},
		{"p2sh", p2sh, ScriptHashTy, func(p TemplateParams) bool {
			return bytes.Equal(p.ScriptHash, scriptHash)
		}},
		{"multisig", multisig, MultiSigTy, func(p TemplateParams) bool {
			return p.RequiredSigs == 2 && len(p.PubKeys) == 2
		}},
		{"nulldata", nullData, NullDataTy, func(p TemplateParams) bool {
			return bytes.Equal(p.Data, []byte("hello"))
		}},
	}

	for _, test := range tests {
		params, err := ExtractScriptParams(test.script)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.name, err)
			continue
		}
		if params.Class != test.class {
			t.Errorf("%s: want class %v got %v", test.name, test.class, params.Class)
			continue
		}
		if !test.check(params) {
			t.Errorf("%s: extracted params did not match: %+v", test.name, params)
		}
	}
}

// TestExtractSignerParams exercises the signer(script_sig) half of the
// template registry: the P2PKH case recovers the spending pubkey's hash, the
// P2SH case recovers the redeem script's hash only when that redeem script
// itself matches a recognized template, and anything else falls back to
// NonStandardTy.
func TestExtractSignerParams(t *testing.T) {
	pubKey := testPubKey(0xaa)

	p2pkhSig := mustScript(t, scriptbuilder.NewScriptBuilder().
		AddData([]byte{0x30, 0x01, 0x02}).AddData(pubKey))

	redeemScript := mustScript(t, scriptbuilder.NewScriptBuilder().
		AddOp(opcode.OP_DUP).AddOp(opcode.OP_HASH160).
		AddData(make([]byte, 20)).AddOp(opcode.OP_EQUALVERIFY).AddOp(opcode.OP_CHECKSIG))
	p2shSig := mustScript(t, scriptbuilder.NewScriptBuilder().
		AddData([]byte{0x30, 0x01, 0x02}).AddData(redeemScript))

	nonStandardSig := mustScript(t, scriptbuilder.NewScriptBuilder().
		AddOp(opcode.OP_CHECKSIG))

	tests := []struct {
		name   string
		script []byte
		class  ScriptClass
		check  func(TemplateParams) bool
	}{
		{"p2pkh signer", p2pkhSig, PubKeyHashTy, func(p TemplateParams) bool {
			return bytes.Equal(p.PubKeyHash, btcutil.Hash160(pubKey))
		}},
		{"p2sh signer", p2shSig, ScriptHashTy, func(p TemplateParams) bool {
			return bytes.Equal(p.ScriptHash, btcutil.Hash160(redeemScript))
		}},
		{"non standard signer", nonStandardSig, NonStandardTy, func(p TemplateParams) bool {
			return true
		}},
	}

	for _, test := range tests {
		got, err := ExtractSignerParams(test.script)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.name, err)
			continue
		}
		if got.Class != test.class {
			t.Errorf("%s: want class %v got %v", test.name, test.class, got.Class)
			continue
		}
		if !test.check(got) {
			t.Errorf("%s: extracted params did not match: %+v", test.name, got)
		}
	}
}

// TestGetScriptClass ensures NullDataScript rejects data over
// MaxDataCarrierSize and GetScriptClass falls back to NonStandardTy for a
// script that matches no template.
func TestGetScriptClass(t *testing.T) {
	nonStandard, err := NullDataScript(make([]byte, 90))
	if err == nil {
		t.Fatalf("expected NullDataScript to reject oversize data")
	}
	_ = nonStandard

	if got := GetScriptClass([]byte{0xff, 0xff}); got != NonStandardTy {
		t.Errorf("want NonStandardTy got %v", got)
	}
}
