// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"reflect"
	"testing"

	"github.com/polarbearzoo/NBitcoin/txscript/opcode"
	"github.com/polarbearzoo/NBitcoin/txscript/parsescript"
	"github.com/polarbearzoo/NBitcoin/txscript/scriptbuilder"
)

// TestParseOpcode tests for opcode parsing with bad data templates.
func TestParseOpcode(t *testing.T) {
	// Override one entry of the opcode table, making it invalid by setting
	// it to the wrong length.
	fakeArray := make(map[byte]opcode.Opcode)
	fakeArray[opcode.OP_PUSHDATA4] = opcode.Opcode{Value: opcode.OP_PUSHDATA4, Length: -8}

	// This script would be fine if -8 was a valid length.
	_, err := parsescript.ParseScriptTemplate([]byte{opcode.OP_PUSHDATA4, 0x1, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00}, fakeArray)
	if err == nil {
		t.Errorf("no error with dodgy opcode array!")
	}
}

// TestUnparsingInvalidOpcodes tests for errors when unparsing parsed
// opcodes whose declared data length disagrees with their Data slice.
func TestUnparsingInvalidOpcodes(t *testing.T) {
	tests := []struct {
		name    string
		pop     *parsescript.ParsedOpcode
		wantErr bool
	}{
		{
			name:    "OP_0",
			pop:     &parsescript.ParsedOpcode{Opcode: opcode.Lookup(opcode.OP_0), Data: nil},
			wantErr: false,
		},
		{
			name:    "OP_0 with stray data",
			pop:     &parsescript.ParsedOpcode{Opcode: opcode.Lookup(opcode.OP_0), Data: make([]byte, 1)},
			wantErr: true,
		},
		{
			name:    "OP_DATA_1 short",
			pop:     &parsescript.ParsedOpcode{Opcode: opcode.Lookup(opcode.OP_DATA_1), Data: nil},
			wantErr: true,
		},
		{
			name:    "OP_DATA_1 exact",
			pop:     &parsescript.ParsedOpcode{Opcode: opcode.Lookup(opcode.OP_DATA_1), Data: make([]byte, 1)},
			wantErr: false,
		},
		{
			name:    "OP_DATA_1 long",
			pop:     &parsescript.ParsedOpcode{Opcode: opcode.Lookup(opcode.OP_DATA_1), Data: make([]byte, 2)},
			wantErr: true,
		},
		{
			name:    "OP_DATA_75 exact",
			pop:     &parsescript.ParsedOpcode{Opcode: opcode.Lookup(opcode.OP_DATA_75), Data: make([]byte, 75)},
			wantErr: false,
		},
		{
			name:    "OP_PUSHDATA1 exact",
			pop:     &parsescript.ParsedOpcode{Opcode: opcode.Lookup(opcode.OP_PUSHDATA1), Data: make([]byte, 255)},
			wantErr: false,
		},
		{
			name:    "OP_PUSHDATA2 exact",
			pop:     &parsescript.ParsedOpcode{Opcode: opcode.Lookup(opcode.OP_PUSHDATA2), Data: make([]byte, 256)},
			wantErr: false,
		},
		{
			name:    "OP_PUSHDATA4 exact",
			pop:     &parsescript.ParsedOpcode{Opcode: opcode.Lookup(opcode.OP_PUSHDATA4), Data: make([]byte, 65536)},
			wantErr: false,
		},
		{
			name:    "OP_CHECKSIG",
			pop:     &parsescript.ParsedOpcode{Opcode: opcode.Lookup(opcode.OP_CHECKSIG), Data: nil},
			wantErr: false,
		},
		{
			name:    "OP_CHECKSIG with stray data",
			pop:     &parsescript.ParsedOpcode{Opcode: opcode.Lookup(opcode.OP_CHECKSIG), Data: make([]byte, 1)},
			wantErr: true,
		},
	}

	for _, test := range tests {
		_, err := popBytes(test.pop)
		gotErr := err != nil
		if gotErr != test.wantErr {
			t.Errorf("%s: wantErr=%v gotErr=%v (%v)", test.name, test.wantErr, gotErr, err)
		}
	}
}

func mustScript(t *testing.T, b *scriptbuilder.ScriptBuilder) []byte {
	t.Helper()
	script, err := b.Script()
	if err != nil {
		t.Fatalf("unexpected error building script: %v", err)
	}
	return script
}

// TestPushedData ensures the PushedData function extracts the expected data
// out of various scripts.
func TestPushedData(t *testing.T) {
	pubKeyHash := make([]byte, 20)
	pubKeyHash[0] = 0x01

	tests := []struct {
		name   string
		script []byte
		out    [][]byte
	}{
		{
			name: "zero then data push",
			script: mustScript(t, scriptbuilder.NewScriptBuilder().
				AddOp(opcode.OP_0).AddData([]byte{0xde, 0xad, 0xbe, 0xef})),
			out: [][]byte{nil, {0xde, 0xad, 0xbe, 0xef}},
		},
		{
			name:   "p2pkh",
			script: mustScript(t, payToPubKeyHashBuilder(pubKeyHash)),
			out:    [][]byte{pubKeyHash},
		},
	}

	for _, test := range tests {
		data, err := PushedData(test.script)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.name, err)
			continue
		}
		if !reflect.DeepEqual(data, test.out) {
			t.Errorf("%s: want %x got %x", test.name, test.out, data)
		}
	}
}

func payToPubKeyHashBuilder(hash []byte) *scriptbuilder.ScriptBuilder {
	return scriptbuilder.NewScriptBuilder().
		AddOp(opcode.OP_DUP).AddOp(opcode.OP_HASH160).
		AddData(hash).AddOp(opcode.OP_EQUALVERIFY).AddOp(opcode.OP_CHECKSIG)
}

// TestHasCanonicalPush ensures the canonicalPush function and
// IsPushOnlyScript agree for a range of encodable integers and data sizes.
func TestHasCanonicalPush(t *testing.T) {
	for i := -2; i < 1024; i++ {
		script := mustScript(t, scriptbuilder.NewScriptBuilder().AddInt64(int64(i)))
		if !IsPushOnlyScript(script) {
			t.Errorf("IsPushOnlyScript: int %d failed: %x", i, script)
			continue
		}
		pops, err := parsescript.ParseScript(script)
		if err != nil {
			t.Errorf("ParseScript: int %d failed: %v", i, err)
			continue
		}
		for _, pop := range pops {
			if !canonicalPush(pop) {
				t.Errorf("canonicalPush: int %d failed: %x", i, script)
			}
		}
	}

	for _, size := range []int{0, 1, 16, 75, 76, 255, 256, 519, 520} {
		data := make([]byte, size)
		for i := range data {
			data[i] = 0x49
		}
		script := mustScript(t, scriptbuilder.NewScriptBuilder().AddData(data))
		if !IsPushOnlyScript(script) {
			t.Errorf("IsPushOnlyScript: size %d failed: too long to print", size)
			continue
		}
		pops, err := parsescript.ParseScript(script)
		if err != nil {
			t.Errorf("ParseScript: size %d failed: %v", size, err)
			continue
		}
		for _, pop := range pops {
			if !canonicalPush(pop) {
				t.Errorf("canonicalPush: size %d failed", size)
			}
		}
	}
}

// TestGetPreciseSigOps ensures the precise signature operation counting
// mechanism, which includes signatures in P2SH scripts, works as expected.
func TestGetPreciseSigOps(t *testing.T) {
	scriptHash := make([]byte, 20)
	scriptHash[0] = 0x43
	pkScript := mustScript(t, scriptbuilder.NewScriptBuilder().
		AddOp(opcode.OP_HASH160).AddData(scriptHash).AddOp(opcode.OP_EQUAL))

	tests := []struct {
		name      string
		scriptSig []byte
		nSigOps   int
	}{
		{
			name:      "scriptSig doesn't parse",
			scriptSig: []byte{opcode.OP_PUSHDATA1, 0x02},
			nSigOps:   0,
		},
		{
			name: "scriptSig isn't push only",
			scriptSig: mustScript(t, scriptbuilder.NewScriptBuilder().
				AddOp(opcode.OP_1).AddOp(opcode.OP_DUP)),
			nSigOps: 0,
		},
		{
			name:      "scriptSig length 0",
			scriptSig: nil,
			nSigOps:   0,
		},
		{
			name: "no script at the end",
			scriptSig: mustScript(t, scriptbuilder.NewScriptBuilder().
				AddOp(opcode.OP_1).AddOp(opcode.OP_1)),
			nSigOps: 0,
		},
	}

	for _, test := range tests {
		count := GetPreciseSigOpCount(test.scriptSig, pkScript, true)
		if count != test.nSigOps {
			t.Errorf("%s: expected count of %d, got %d", test.name, test.nSigOps, count)
		}
	}
}

// TestRemoveOpcodes ensures that removing opcodes from scripts behaves as
// expected.
func TestRemoveOpcodes(t *testing.T) {
	script := mustScript(t, scriptbuilder.NewScriptBuilder().
		AddData([]byte("abc")).AddOp(opcode.OP_CODESEPARATOR).AddData([]byte("def")))

	pops, err := parsescript.ParseScript(script)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	result, count := removeOpcode(pops, opcode.OP_CODESEPARATOR)
	if count != 1 {
		t.Fatalf("removeOpcode: want count 1 got %d", count)
	}
	for _, pop := range result {
		if pop.Opcode.Value == opcode.OP_CODESEPARATOR {
			t.Fatalf("removeOpcode: OP_CODESEPARATOR survived removal")
		}
	}

	want := mustScript(t, scriptbuilder.NewScriptBuilder().
		AddData([]byte("abc")).AddData([]byte("def")))
	got, err := unparseScript(result)
	if err != nil {
		t.Fatalf("unparseScript: unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("removeOpcode: want %x got %x", want, got)
	}

	// When the opcode is absent, count is 0 and the original slice must be
	// returned unchanged (reference-identity preserved).
	noMatch, zeroCount := removeOpcode(result, opcode.OP_CODESEPARATOR)
	if zeroCount != 0 {
		t.Fatalf("removeOpcode: want count 0 got %d", zeroCount)
	}
	if &noMatch[0] != &result[0] {
		t.Errorf("removeOpcode: expected original slice to be preserved when count is 0")
	}
}

// TestRemoveOpcodeByData ensures that removing data carrying opcodes based
// on the data they contain works as expected.
func TestRemoveOpcodeByData(t *testing.T) {
	sigBytes := []byte{0x01, 0x02, 0x03, 0x04}
	script := mustScript(t, scriptbuilder.NewScriptBuilder().
		AddData(sigBytes).AddOp(opcode.OP_CHECKSIG))

	pops, err := parsescript.ParseScript(script)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	result, count := removeOpcodeByData(pops, sigBytes)
	if count != 1 {
		t.Fatalf("removeOpcodeByData: want count 1 got %d", count)
	}
	for _, pop := range result {
		if pop.Data != nil && len(pop.Data) == len(sigBytes) {
			t.Fatalf("removeOpcodeByData: matching push survived removal")
		}
	}

	// No match present -> count 0, original slice preserved.
	noMatch, zeroCount := removeOpcodeByData(result, sigBytes)
	if zeroCount != 0 {
		t.Fatalf("removeOpcodeByData: want count 0 got %d", zeroCount)
	}
	if len(result) > 0 && &noMatch[0] != &result[0] {
		t.Errorf("removeOpcodeByData: expected original slice to be preserved when count is 0")
	}
}

// TestIsPayToScriptHash ensures the IsPayToScriptHash function returns the
// expected results for all the passed scripts.
func TestIsPayToScriptHash(t *testing.T) {
	scriptHash := make([]byte, 20)
	p2sh := mustScript(t, scriptbuilder.NewScriptBuilder().
		AddOp(opcode.OP_HASH160).AddData(scriptHash).AddOp(opcode.OP_EQUAL))
	if !IsPayToScriptHash(p2sh) {
		t.Errorf("IsPayToScriptHash: expected true for canonical P2SH script")
	}

	notP2sh := mustScript(t, scriptbuilder.NewScriptBuilder().
		AddOp(opcode.OP_HASH160).AddData(scriptHash).AddOp(opcode.OP_CHECKSIG))
	if IsPayToScriptHash(notP2sh) {
		t.Errorf("IsPayToScriptHash: expected false for non-P2SH script")
	}
}

// TestIsPushOnlyScript ensures the IsPushOnlyScript function returns the
// expected results.
func TestIsPushOnlyScript(t *testing.T) {
	pushOnly := mustScript(t, scriptbuilder.NewScriptBuilder().
		AddData([]byte("this is a test")))
	if !IsPushOnlyScript(pushOnly) {
		t.Errorf("IsPushOnlyScript: expected true for push-only script")
	}

	notPushOnly := mustScript(t, scriptbuilder.NewScriptBuilder().
		AddData([]byte("this is a test")).AddOp(opcode.OP_DUP))
	if IsPushOnlyScript(notPushOnly) {
		t.Errorf("IsPushOnlyScript: expected false for script with non-push op")
	}

	if IsPushOnlyScript([]byte{opcode.OP_PUSHDATA4, 0x1}) {
		t.Errorf("IsPushOnlyScript: expected false for malformed script")
	}
}

// TestIsUnspendable ensures the IsUnspendable function returns the expected
// results.
func TestIsUnspendable(t *testing.T) {
	tests := []struct {
		name   string
		script []byte
		want   bool
	}{
		{
			name:   "empty",
			script: []byte{},
			want:   false,
		},
		{
			name:   "OP_RETURN only",
			script: []byte{opcode.OP_RETURN},
			want:   true,
		},
		{
			name:   "OP_RETURN with data",
			script: mustScript(t, scriptbuilder.NewScriptBuilder().AddOp(opcode.OP_RETURN).AddData([]byte{0x01})),
			want:   true,
		},
		{
			name: "p2pkh",
			script: mustScript(t, payToPubKeyHashBuilder(make([]byte, 20))),
			want: false,
		},
		{
			name:   "malformed",
			script: []byte{opcode.OP_PUSHDATA4, 0x1},
			want:   true,
		},
	}

	for _, test := range tests {
		got := IsUnspendable(test.script)
		if got != test.want {
			t.Errorf("%s: want %v got %v", test.name, test.want, got)
		}
	}
}
