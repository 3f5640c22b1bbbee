// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscripterr

import (
	"github.com/polarbearzoo/NBitcoin/btcutil/er"
)

// Err identifies a kind of script error.
var Err er.ErrorType = er.NewErrorType("txscript.Err")

// These constants are used to identify a specific Error.
var (
	// ErrInternal is returned if internal consistency checks fail. In
	// practice this error should never be seen as it would mean there is
	// an error in the re-encoding logic.
	ErrInternal = Err.Code("ErrInternal")

	// ErrNotMultisigScript is returned from CalcMultiSigStats when the
	// provided script is not a multisig script.
	ErrNotMultisigScript = Err.Code("ErrNotMultisigScript")

	// ErrTooManyRequiredSigs is returned from MultiSigScript when the
	// specified number of required signatures is larger than the number
	// of provided public keys.
	ErrTooManyRequiredSigs = Err.Code("ErrTooManyRequiredSigs")

	// ErrTooMuchNullData is returned from NullDataScript when the length
	// of the provided data exceeds MaxDataCarrierSize.
	ErrTooMuchNullData = Err.Code("ErrTooMuchNullData")

	// ErrMalformedPush is returned when a data push opcode tries to push
	// more bytes than are left in the script.
	ErrMalformedPush = Err.Code("ErrMalformedPush")

	// ErrMinimalData is returned when a script contains push operations
	// that do not use the minimal opcode required to encode their data.
	ErrMinimalData = Err.Code("ErrMinimalData")

	// ErrUnsupportedTemplate identifies a script shape the signature
	// combiner does not recognize. Nothing in this module returns it: the
	// combiner merges such scripts by keeping the candidate with more
	// pushed items.
	ErrUnsupportedTemplate = Err.Code("ErrUnsupportedTemplate")

	// ErrInvalidMultisigParams is returned when the signature combiner is
	// asked to merge against a script_pubkey that does not parse as
	// multisig when a multisig template was required.
	ErrInvalidMultisigParams = Err.Code("ErrInvalidMultisigParams")
)

// ScriptError creates an Error given a set of arguments.
func ScriptError(c *er.ErrorCode, desc string) er.R {
	return c.New(desc, nil)
}
