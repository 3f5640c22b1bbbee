// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"

	"github.com/polarbearzoo/NBitcoin/btcutil"
	"github.com/polarbearzoo/NBitcoin/btcutil/er"
	"github.com/polarbearzoo/NBitcoin/txscript/opcode"
	"github.com/polarbearzoo/NBitcoin/txscript/parsescript"
	"github.com/polarbearzoo/NBitcoin/txscript/scriptbuilder"
	"github.com/polarbearzoo/NBitcoin/txscript/txscripterr"
)

const (
	// MaxDataCarrierSize is the maximum number of bytes allowed in pushed
	// data to be considered a nulldata transaction
	MaxDataCarrierSize = 80

	// StandardVerifyFlags are the script flags that describe the checks
	// a caller wants applied on top of consensus validity. Note these
	// flags are more strict than consensus requires, and this package
	// does not itself enforce them -- it only names the bit positions an
	// external interpreter would use.
	StandardVerifyFlags = ScriptBip16 |
		ScriptVerifyDERSignatures |
		ScriptVerifyStrictEncoding |
		ScriptVerifyMinimalData |
		ScriptDiscourageUpgradableNops |
		ScriptVerifyCleanStack |
		ScriptVerifyLowS |
		ScriptVerifyNullDummy
)

// ScriptClass is an enumeration for the list of standard types of script.
type ScriptClass byte

// Classes of script payment known about.
const (
	NonStandardTy ScriptClass = iota // None of the recognized forms.
	PubKeyTy                        // Pay pubkey.
	PubKeyHashTy                     // Pay pubkey hash.
	ScriptHashTy                     // Pay to script hash.
	MultiSigTy                       // Multi signature.
	NullDataTy                       // Empty data-only (provably prunable).
)

// scriptClassToName houses the human-readable strings which describe each
// script class.
var scriptClassToName = []string{
	NonStandardTy: "nonstandard",
	PubKeyTy:      "pubkey",
	PubKeyHashTy:  "pubkeyhash",
	ScriptHashTy:  "scripthash",
	MultiSigTy:    "multisig",
	NullDataTy:    "nulldata",
}

// String implements the Stringer interface by returning the name of
// the enum script class. If the enum is invalid then "Invalid" will be
// returned.
func (t ScriptClass) String() string {
	if int(t) >= len(scriptClassToName) || int(t) < 0 {
		return "Invalid"
	}
	return scriptClassToName[t]
}

// isPubkey returns true if the script passed is a pay-to-pubkey transaction,
// false otherwise.
func isPubkey(pops []parsescript.ParsedOpcode) bool {
	// Valid pubkeys are either 33 or 65 bytes.
	return len(pops) == 2 &&
		(len(pops[0].Data) == 33 || len(pops[0].Data) == 65) &&
		pops[1].Opcode.Value == opcode.OP_CHECKSIG
}

// isPubkeyHash returns true if the script passed is a pay-to-pubkey-hash
// transaction, false otherwise.
func isPubkeyHash(pops []parsescript.ParsedOpcode) bool {
	return len(pops) == 5 &&
		pops[0].Opcode.Value == opcode.OP_DUP &&
		pops[1].Opcode.Value == opcode.OP_HASH160 &&
		pops[2].Opcode.Value == opcode.OP_DATA_20 &&
		pops[3].Opcode.Value == opcode.OP_EQUALVERIFY &&
		pops[4].Opcode.Value == opcode.OP_CHECKSIG

}

// isMultiSig returns true if the passed script is a multisig transaction, false
// otherwise.
func isMultiSig(pops []parsescript.ParsedOpcode) bool {
	// The absolute minimum is 1 pubkey:
	// OP_1 <pubkey> OP_1 OP_CHECKMULTISIG
	l := len(pops)
	if l < 4 {
		return false
	}
	if !isSmallInt(pops[0].Opcode) {
		return false
	}
	if !isSmallInt(pops[l-2].Opcode) {
		return false
	}
	if pops[l-1].Opcode.Value != opcode.OP_CHECKMULTISIG {
		return false
	}

	// Verify the number of pubkeys specified matches the actual number
	// of pubkeys provided.
	if l-2-1 != asSmallInt(pops[l-2].Opcode) {
		return false
	}

	for _, pop := range pops[1 : l-2] {
		// Valid pubkeys are either 33 or 65 bytes.
		if len(pop.Data) != 33 && len(pop.Data) != 65 {
			return false
		}
	}
	return true
}

// isNullData returns true if the passed script is a null data transaction,
// false otherwise.
func isNullData(pops []parsescript.ParsedOpcode) bool {
	// A nulldata transaction is either a single OP_RETURN or an
	// OP_RETURN SMALLDATA (where SMALLDATA is a data push up to
	// MaxDataCarrierSize bytes).
	l := len(pops)
	if l == 1 && pops[0].Opcode.Value == opcode.OP_RETURN {
		return true
	}

	return l == 2 &&
		pops[0].Opcode.Value == opcode.OP_RETURN &&
		(isSmallInt(pops[1].Opcode) || pops[1].Opcode.Value <=
			opcode.OP_PUSHDATA4) &&
		len(pops[1].Data) <= MaxDataCarrierSize
}

// typeOfScript returns the type of the script being inspected from the known
// standard types.
func typeOfScript(pops []parsescript.ParsedOpcode) ScriptClass {
	if isPubkey(pops) {
		return PubKeyTy
	} else if isPubkeyHash(pops) {
		return PubKeyHashTy
	} else if isScriptHash(pops) {
		return ScriptHashTy
	} else if isMultiSig(pops) {
		return MultiSigTy
	} else if isNullData(pops) {
		return NullDataTy
	}
	return NonStandardTy
}

// GetScriptClass returns the class of the script passed.
//
// NonStandardTy will be returned when the script does not parse.
func GetScriptClass(script []byte) ScriptClass {
	pops, err := parsescript.ParseScript(script)
	if err != nil {
		return NonStandardTy
	}
	return typeOfScript(pops)
}

// TemplateParams holds the shape-specific payload extracted by
// ExtractScriptParams for whichever template a script_pubkey matched. Only
// the fields relevant to Class are populated.
type TemplateParams struct {
	Class ScriptClass

	// PubKey holds the serialized public key for PubKeyTy.
	PubKey []byte

	// PubKeyHash holds the 20-byte key hash for PubKeyHashTy.
	PubKeyHash []byte

	// ScriptHash holds the 20-byte script hash for ScriptHashTy.
	ScriptHash []byte

	// RequiredSigs and PubKeys describe an m-of-n MultiSigTy script.
	RequiredSigs int
	PubKeys      [][]byte

	// Data holds the carried payload for NullDataTy.
	Data []byte
}

// ExtractScriptParams recognizes a script_pubkey against the standard
// template set (P2PK, P2PKH, P2SH, multisig, null-data) and returns the
// shape-specific parameters it carries. NonStandardTy is returned, with no
// other fields populated, when the script does not match any template;
// when the script does not parse, the zero TemplateParams (whose Class is
// NonStandardTy) is returned together with the parse error.
func ExtractScriptParams(pkScript []byte) (TemplateParams, er.R) {
	pops, err := parsescript.ParseScript(pkScript)
	if err != nil {
		return TemplateParams{}, err
	}

	class := typeOfScript(pops)
	switch class {
	case PubKeyTy:
		return TemplateParams{Class: class, PubKey: pops[0].Data}, nil

	case PubKeyHashTy:
		return TemplateParams{Class: class, PubKeyHash: pops[2].Data}, nil

	case ScriptHashTy:
		return TemplateParams{Class: class, ScriptHash: pops[1].Data}, nil

	case MultiSigTy:
		numPubKeys := asSmallInt(pops[len(pops)-2].Opcode)
		pubKeys := make([][]byte, 0, numPubKeys)
		for i := 0; i < numPubKeys; i++ {
			pubKeys = append(pubKeys, pops[i+1].Data)
		}
		return TemplateParams{
			Class:        class,
			RequiredSigs: asSmallInt(pops[0].Opcode),
			PubKeys:      pubKeys,
		}, nil

	case NullDataTy:
		if len(pops) == 2 {
			return TemplateParams{Class: class, Data: pops[1].Data}, nil
		}
		return TemplateParams{Class: class}, nil

	default:
		return TemplateParams{Class: NonStandardTy}, nil
	}
}

// ExtractSignerParams inspects a spending script_sig and returns the
// key-hash (P2PKH) or script-hash (P2SH) it implies, the mirror image of
// ExtractScriptParams on the output side. A P2PKH script_sig is exactly
// <sig> <pubkey>; a P2SH script_sig is one or more pushes followed by a
// redeem script that itself matches a recognized script_pubkey template.
// Scripts matching neither shape return {Class: NonStandardTy}.
func ExtractSignerParams(sigScript []byte) (TemplateParams, er.R) {
	sigPops, err := parsescript.ParseScript(sigScript)
	if err != nil {
		return TemplateParams{Class: NonStandardTy}, nil
	}
	if len(sigPops) == 0 || !parsescript.IsPushOnly(sigPops) {
		return TemplateParams{Class: NonStandardTy}, nil
	}

	redeem := sigPops[len(sigPops)-1].Data
	if len(redeem) > 0 {
		redeemPops, rerr := parsescript.ParseScript(redeem)
		if rerr == nil && typeOfScript(redeemPops) != NonStandardTy {
			return TemplateParams{
				Class:      ScriptHashTy,
				ScriptHash: btcutil.Hash160(redeem),
			}, nil
		}
	}

	if len(sigPops) == 2 && len(sigPops[0].Data) > 0 && len(sigPops[1].Data) > 0 {
		return TemplateParams{
			Class:      PubKeyHashTy,
			PubKeyHash: btcutil.Hash160(sigPops[1].Data),
		}, nil
	}

	return TemplateParams{Class: NonStandardTy}, nil
}

// CalcMultiSigStats returns the number of public keys and signatures from
// a multi-signature transaction script.  The passed script MUST already be
// known to be a multi-signature script.
func CalcMultiSigStats(script []byte) (int, int, er.R) {
	pops, err := parsescript.ParseScript(script)
	if err != nil {
		return 0, 0, err
	}

	// A multi-signature script is of the pattern:
	//  NUM_SIGS PUBKEY PUBKEY PUBKEY... NUM_PUBKEYS OP_CHECKMULTISIG
	// Therefore the number of signatures is the oldest item on the stack
	// and the number of pubkeys is the 2nd to last.  Also, the absolute
	// minimum for a multi-signature script is 1 pubkey, so at least 4
	// items must be on the stack per:
	//  OP_1 PUBKEY OP_1 OP_CHECKMULTISIG
	if len(pops) < 4 {
		str := fmt.Sprintf("script %x is not a multisig script", script)
		return 0, 0, txscripterr.ScriptError(txscripterr.ErrNotMultisigScript, str)
	}

	numSigs := asSmallInt(pops[0].Opcode)
	numPubKeys := asSmallInt(pops[len(pops)-2].Opcode)
	return numPubKeys, numSigs, nil
}

// PayToPubKeyHashScript creates a new script to pay a transaction output to
// a 20-byte pubkey hash. It is expected that the input is a valid hash.
func PayToPubKeyHashScript(pubKeyHash []byte) ([]byte, er.R) {
	return scriptbuilder.NewScriptBuilder().AddOp(opcode.OP_DUP).AddOp(opcode.OP_HASH160).
		AddData(pubKeyHash).AddOp(opcode.OP_EQUALVERIFY).AddOp(opcode.OP_CHECKSIG).Script()
}

// PayToScriptHashScript creates a new script to pay a transaction output to
// a script hash. It is expected that the input is a valid hash.
func PayToScriptHashScript(scriptHash []byte) ([]byte, er.R) {
	return scriptbuilder.NewScriptBuilder().AddOp(opcode.OP_HASH160).AddData(scriptHash).
		AddOp(opcode.OP_EQUAL).Script()
}

// PayToPubKeyScript creates a new script to pay a transaction output to a
// public key. It is expected that the input is a valid serialized pubkey.
func PayToPubKeyScript(serializedPubKey []byte) ([]byte, er.R) {
	return scriptbuilder.NewScriptBuilder().AddData(serializedPubKey).
		AddOp(opcode.OP_CHECKSIG).Script()
}

// NullDataScript creates a provably-prunable script containing OP_RETURN
// followed by the passed data.  An Error with the error code ErrTooMuchNullData
// will be returned if the length of the passed data exceeds MaxDataCarrierSize.
func NullDataScript(data []byte) ([]byte, er.R) {
	if len(data) > MaxDataCarrierSize {
		str := fmt.Sprintf("data size %d is larger than max "+
			"allowed size %d", len(data), MaxDataCarrierSize)
		return nil, txscripterr.ScriptError(txscripterr.ErrTooMuchNullData, str)
	}

	return scriptbuilder.NewScriptBuilder().AddOp(opcode.OP_RETURN).AddData(data).Script()
}

// MultiSigScript returns a valid script for a multisignature redemption where
// nrequired of the keys in pubKeys are required to have signed the
// transaction for success.  An Error with the error code
// ErrTooManyRequiredSigs will be returned if nrequired is larger than the
// number of keys provided.
func MultiSigScript(pubKeys [][]byte, nrequired int) ([]byte, er.R) {
	if len(pubKeys) < nrequired {
		str := fmt.Sprintf("unable to generate multisig script with "+
			"%d required signatures when there are only %d public "+
			"keys available", nrequired, len(pubKeys))
		return nil, txscripterr.ScriptError(txscripterr.ErrTooManyRequiredSigs, str)
	}

	builder := scriptbuilder.NewScriptBuilder().AddInt64(int64(nrequired))
	for _, key := range pubKeys {
		builder.AddData(key)
	}
	builder.AddInt64(int64(len(pubKeys)))
	builder.AddOp(opcode.OP_CHECKMULTISIG)

	return builder.Script()
}

// PushedData returns an array of byte slices containing any pushed data found
// in the passed script.  This includes OP_0, but not OP_1 - OP_16.
func PushedData(script []byte) ([][]byte, er.R) {
	pops, err := parsescript.ParseScript(script)
	if err != nil {
		return nil, err
	}

	var data [][]byte
	for _, pop := range pops {
		if pop.Data != nil {
			data = append(data, pop.Data)
		} else if pop.Opcode.Value == opcode.OP_0 {
			data = append(data, nil)
		}
	}
	return data, nil
}
