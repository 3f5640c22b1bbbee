// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package scriptbuilder provides a builder for assembling raw bitcoin
// scripts one operation at a time, replacing the operator-overloaded
// concatenation idiom with explicit append calls that materialize a
// canonical byte buffer on Script().
package scriptbuilder

import (
	"github.com/polarbearzoo/NBitcoin/btcutil/er"
	"github.com/polarbearzoo/NBitcoin/txscript/opcode"
	"github.com/polarbearzoo/NBitcoin/txscript/params"
)

// ErrScriptNotCanonical identifies errors raised while building scripts.
var Err = er.NewErrorType("scriptbuilder.Err")
var ErrScriptNotCanonical = Err.Code("ErrScriptNotCanonical")

// DefaultScriptAlloc is the default size used for the backing array
// for a script being built by the ScriptBuilder. The array will
// dynamically grow as needed, but this figure is intended to provide
// enough space for vast majority of scripts without needing to grow.
const DefaultScriptAlloc = 500

// ScriptBuilder provides a facility for building custom scripts. It
// allows the clear construction of scripts without having to manually
// calculate the raw bytes involved.
type ScriptBuilder struct {
	script []byte
	err    er.R
}

// AddOp pushes the passed opcode to the end of the script. The script
// will not be modified if pushing the opcode would cause the script to
// exceed the maximum allowed script size.
func (b *ScriptBuilder) AddOp(op byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}

	if len(b.script)+1 > params.MaxScriptSize {
		b.err = ErrScriptNotCanonical.New("adding an opcode would exceed the maximum allowed canonical script length of "+itoa(params.MaxScriptSize), nil)
		return b
	}

	b.script = append(b.script, op)
	return b
}

// AddOps pushes the passed opcodes to the end of the script.
func (b *ScriptBuilder) AddOps(opcodes []byte) *ScriptBuilder {
	for _, op := range opcodes {
		b.AddOp(op)
		if b.err != nil {
			break
		}
	}
	return b
}

// AddInt64 pushes the passed integer to the end of the script using the
// canonical minimal encoding for small integers (OP_0, OP_1NEGATE,
// OP_1..OP_16) and a signed little-endian data push otherwise.
func (b *ScriptBuilder) AddInt64(val int64) *ScriptBuilder {
	if b.err != nil {
		return b
	}

	if val == 0 {
		b.script = append(b.script, opcode.OP_0)
		return b
	}
	if val == -1 || (val >= 1 && val <= 16) {
		b.script = append(b.script, byte((opcode.OP_1-1)+val))
		return b
	}

	return b.AddData(serializeNum(val))
}

func serializeNum(val int64) []byte {
	if val == 0 {
		return nil
	}

	negative := val < 0
	absoluteVal := val
	if negative {
		absoluteVal = -val
	}

	result := make([]byte, 0, 9)
	for absoluteVal > 0 {
		result = append(result, byte(absoluteVal&0xff))
		absoluteVal >>= 8
	}

	if result[len(result)-1]&0x80 != 0 {
		extraByte := byte(0x00)
		if negative {
			extraByte = 0x80
		}
		result = append(result, extraByte)
	} else if negative {
		result[len(result)-1] |= 0x80
	}

	return result
}

// AddData pushes the passed data to the end of the script, choosing the
// shortest canonical encoding per the get_push_op selection rules:
// empty or a single 0x00 byte -> OP_0, single byte in 1..16 -> OP_n,
// single byte 0x81 ->
// OP_1NEGATE, otherwise a direct push / PUSHDATA1/2/4 by length.
func (b *ScriptBuilder) AddData(data []byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}

	dataSize := canonicalDataSize(data)
	if len(b.script)+dataSize > params.MaxScriptSize {
		b.err = ErrScriptNotCanonical.New("adding data of size "+itoa(len(data))+" bytes would exceed the maximum allowed canonical script length of "+itoa(params.MaxScriptSize), nil)
		return b
	}

	if len(data) > params.MaxScriptElementSize {
		b.err = ErrScriptNotCanonical.New("adding data of size "+itoa(len(data))+" bytes would exceed the maximum allowed script element size of "+itoa(params.MaxScriptElementSize), nil)
		return b
	}

	b.addData(data)
	return b
}

func (b *ScriptBuilder) addData(data []byte) {
	dataLen := len(data)
	switch {
	case dataLen == 0 || (dataLen == 1 && data[0] == 0):
		b.script = append(b.script, opcode.OP_0)
		return

	case dataLen == 1 && data[0] <= 16:
		b.script = append(b.script, byte((opcode.OP_1-1)+int(data[0])))
		return

	case dataLen == 1 && data[0] == 0x81:
		b.script = append(b.script, opcode.OP_1NEGATE)
		return
	}

	switch {
	case dataLen < opcode.OP_PUSHDATA1:
		b.script = append(b.script, byte((opcode.OP_DATA_1-1)+dataLen))
	case dataLen <= 0xff:
		b.script = append(b.script, opcode.OP_PUSHDATA1, byte(dataLen))
	case dataLen <= 0xffff:
		buf := make([]byte, 2)
		buf[0] = byte(dataLen)
		buf[1] = byte(dataLen >> 8)
		b.script = append(b.script, opcode.OP_PUSHDATA2)
		b.script = append(b.script, buf...)
	default:
		buf := make([]byte, 4)
		buf[0] = byte(dataLen)
		buf[1] = byte(dataLen >> 8)
		buf[2] = byte(dataLen >> 16)
		buf[3] = byte(dataLen >> 24)
		b.script = append(b.script, opcode.OP_PUSHDATA4)
		b.script = append(b.script, buf...)
	}

	b.script = append(b.script, data...)
}

// canonicalDataSize returns the number of bytes the canonical encoding
// of data would occupy.
func canonicalDataSize(data []byte) int {
	dataLen := len(data)

	if dataLen == 0 || (dataLen == 1 && (data[0] <= 16 || data[0] == 0x81)) {
		return 1
	}

	if dataLen < opcode.OP_PUSHDATA1 {
		return 1 + dataLen
	} else if dataLen <= 0xff {
		return 2 + dataLen
	} else if dataLen <= 0xffff {
		return 3 + dataLen
	}

	return 5 + dataLen
}

// Reset resets the script so it has no content.
func (b *ScriptBuilder) Reset() *ScriptBuilder {
	b.script = b.script[0:0]
	b.err = nil
	return b
}

// Script returns the currently built script. When any errors occurred
// while building the script, the script will be returned up to the
// point of the first error along with the error.
func (b *ScriptBuilder) Script() ([]byte, er.R) {
	return b.script, b.err
}

// NewScriptBuilder returns a new instance of a script builder. See
// ScriptBuilder for details.
func NewScriptBuilder() *ScriptBuilder {
	return &ScriptBuilder{
		script: make([]byte, 0, DefaultScriptAlloc),
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
