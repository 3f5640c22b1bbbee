// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/polarbearzoo/NBitcoin/btcutil/er"
	"github.com/polarbearzoo/NBitcoin/chainhash"
)

// MessageEncoding selects the serialization used when a Message's BtcEncode
// or BtcDecode is invoked. This module defines only the base (legacy)
// encoding since it carries no segregated-witness transaction format.
type MessageEncoding uint32

const (
	// BaseEncoding is the original wire message encoding.
	BaseEncoding MessageEncoding = 1 << iota
)

// littleEndian is the byte order used for all numeric fields on the wire.
var littleEndian = binary.LittleEndian

// bigEndianPort is the byte order used for the port field of a NetAddress,
// which historically follows network (big-endian) byte order rather than
// the little-endian convention used everywhere else on the wire.
var bigEndianPort = binary.BigEndian

// binaryFreeList provides a free list of buffers used for serializing and
// deserializing primitive numeric types to avoid a heap allocation per call.
type binaryFreeList chan []byte

// Borrow returns a byte slice from the free list with a length of 8. A new
// buffer is allocated if one is not available on the free list.
func (l binaryFreeList) Borrow() []byte {
	var buf []byte
	select {
	case buf = <-l:
	default:
		buf = make([]byte, 8)
	}
	return buf[:8]
}

// Return puts the provided byte slice back on the free list.
func (l binaryFreeList) Return(buf []byte) {
	select {
	case l <- buf:
	default:
		// Let it go to the garbage collector.
	}
}

// Uint8 reads a single byte from the provided reader using a buffer from the
// free list and returns it as a uint8.
func (l binaryFreeList) Uint8(r io.Reader) (uint8, er.R) {
	buf := l.Borrow()
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return 0, er.E(err)
	}
	return buf[0], nil
}

// Uint16 reads two bytes from the provided reader using a buffer from the
// free list, converts it to a number using the provided byte order, and
// returns the resulting uint16.
func (l binaryFreeList) Uint16(r io.Reader, byteOrder binary.ByteOrder) (uint16, er.R) {
	buf := l.Borrow()
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf[:2]); err != nil {
		return 0, er.E(err)
	}
	return byteOrder.Uint16(buf[:2]), nil
}

// Uint32 reads four bytes from the provided reader using a buffer from the
// free list, converts it to a number using the provided byte order, and
// returns the resulting uint32.
func (l binaryFreeList) Uint32(r io.Reader, byteOrder binary.ByteOrder) (uint32, er.R) {
	buf := l.Borrow()
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return 0, er.E(err)
	}
	return byteOrder.Uint32(buf[:4]), nil
}

// Uint64 reads eight bytes from the provided reader using a buffer from the
// free list, converts it to a number using the provided byte order, and
// returns the resulting uint64.
func (l binaryFreeList) Uint64(r io.Reader, byteOrder binary.ByteOrder) (uint64, er.R) {
	buf := l.Borrow()
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf[:8]); err != nil {
		return 0, er.E(err)
	}
	return byteOrder.Uint64(buf[:8]), nil
}

// PutUint8 copies the provided uint8 into a buffer from the free list and
// writes the resulting byte to the given writer.
func (l binaryFreeList) PutUint8(w io.Writer, val uint8) er.R {
	buf := l.Borrow()
	defer l.Return(buf)
	buf[0] = val
	_, err := w.Write(buf[:1])
	return er.E(err)
}

// PutUint16 serializes the provided uint16 using the given byte order into a
// buffer from the free list and writes the resulting two bytes to the given
// writer.
func (l binaryFreeList) PutUint16(w io.Writer, byteOrder binary.ByteOrder, val uint16) er.R {
	buf := l.Borrow()
	defer l.Return(buf)
	byteOrder.PutUint16(buf[:2], val)
	_, err := w.Write(buf[:2])
	return er.E(err)
}

// PutUint32 serializes the provided uint32 using the given byte order into a
// buffer from the free list and writes the resulting four bytes to the given
// writer.
func (l binaryFreeList) PutUint32(w io.Writer, byteOrder binary.ByteOrder, val uint32) er.R {
	buf := l.Borrow()
	defer l.Return(buf)
	byteOrder.PutUint32(buf[:4], val)
	_, err := w.Write(buf[:4])
	return er.E(err)
}

// PutUint64 serializes the provided uint64 using the given byte order into a
// buffer from the free list and writes the resulting eight bytes to the
// given writer.
func (l binaryFreeList) PutUint64(w io.Writer, byteOrder binary.ByteOrder, val uint64) er.R {
	buf := l.Borrow()
	defer l.Return(buf)
	byteOrder.PutUint64(buf[:8], val)
	_, err := w.Write(buf[:8])
	return er.E(err)
}

// binarySerializer is the free-list backed helper shared by every message
// codec for reading and writing fixed-size numeric fields.
var binarySerializer binaryFreeList = make(chan []byte, 16)

// readElement reads the next sequence of bytes from r using little endian
// depending on the concrete type of element.
func readElement(r io.Reader, element interface{}) er.R {
	switch e := element.(type) {
	case *int32:
		rv, err := binarySerializer.Uint32(r, littleEndian)
		if err != nil {
			return err
		}
		*e = int32(rv)
		return nil

	case *uint8:
		rv, err := binarySerializer.Uint8(r)
		if err != nil {
			return err
		}
		*e = rv
		return nil

	case *FilterType:
		rv, err := binarySerializer.Uint8(r)
		if err != nil {
			return err
		}
		*e = FilterType(rv)
		return nil

	case *uint32:
		rv, err := binarySerializer.Uint32(r, littleEndian)
		if err != nil {
			return err
		}
		*e = rv
		return nil

	case *int64:
		rv, err := binarySerializer.Uint64(r, littleEndian)
		if err != nil {
			return err
		}
		*e = int64(rv)
		return nil

	case *uint64:
		rv, err := binarySerializer.Uint64(r, littleEndian)
		if err != nil {
			return err
		}
		*e = rv
		return nil

	case *bool:
		rv, err := binarySerializer.Uint8(r)
		if err != nil {
			return err
		}
		*e = rv != 0
		return nil

	case *chainhash.Hash:
		_, errr := io.ReadFull(r, e[:])
		if errr != nil {
			return er.E(errr)
		}
		return nil
	}

	// The fast path was unavailable, so use reflection over the generic
	// binary read path as a fallback.
	return er.E(binary.Read(r, littleEndian, element))
}

// writeElement writes the little endian representation of element to w.
func writeElement(w io.Writer, element interface{}) er.R {
	switch e := element.(type) {
	case int32:
		return binarySerializer.PutUint32(w, littleEndian, uint32(e))

	case uint8:
		return binarySerializer.PutUint8(w, e)

	case FilterType:
		return binarySerializer.PutUint8(w, uint8(e))

	case uint32:
		return binarySerializer.PutUint32(w, littleEndian, e)

	case int64:
		return binarySerializer.PutUint64(w, littleEndian, uint64(e))

	case uint64:
		return binarySerializer.PutUint64(w, littleEndian, e)

	case bool:
		var b uint8
		if e {
			b = 1
		}
		return binarySerializer.PutUint8(w, b)

	case chainhash.Hash:
		_, errr := w.Write(e[:])
		return er.E(errr)

	case *chainhash.Hash:
		_, errr := w.Write(e[:])
		return er.E(errr)
	}

	return er.E(binary.Write(w, littleEndian, element))
}

// ReadVarInt reads a variable length integer from r and returns it as a
// uint64.
func ReadVarInt(r io.Reader, pver uint32) (uint64, er.R) {
	discriminant, err := binarySerializer.Uint8(r)
	if err != nil {
		return 0, err
	}

	var rv uint64
	switch discriminant {
	case 0xff:
		sv, err := binarySerializer.Uint64(r, littleEndian)
		if err != nil {
			return 0, err
		}
		rv = sv

		// The encoding is not canonical if the value could have been
		// encoded using fewer bytes.
		min := uint64(0x100000000)
		if rv < min {
			return 0, messageError("ReadVarInt", fmt.Sprintf(
				"%d is not a canonically-encoded varint", rv))
		}

	case 0xfe:
		sv, err := binarySerializer.Uint32(r, littleEndian)
		if err != nil {
			return 0, err
		}
		rv = uint64(sv)

		min := uint64(0x10000)
		if rv < min {
			return 0, messageError("ReadVarInt", fmt.Sprintf(
				"%d is not a canonically-encoded varint", rv))
		}

	case 0xfd:
		sv, err := binarySerializer.Uint16(r, littleEndian)
		if err != nil {
			return 0, err
		}
		rv = uint64(sv)

		min := uint64(0xfd)
		if rv < min {
			return 0, messageError("ReadVarInt", fmt.Sprintf(
				"%d is not a canonically-encoded varint", rv))
		}

	default:
		rv = uint64(discriminant)
	}

	return rv, nil
}

// WriteVarInt serializes val to w using a variable number of bytes depending
// on its value.
func WriteVarInt(w io.Writer, pver uint32, val uint64) er.R {
	if val < 0xfd {
		return binarySerializer.PutUint8(w, uint8(val))
	}

	if val <= math.MaxUint16 {
		if err := binarySerializer.PutUint8(w, 0xfd); err != nil {
			return err
		}
		return binarySerializer.PutUint16(w, littleEndian, uint16(val))
	}

	if val <= math.MaxUint32 {
		if err := binarySerializer.PutUint8(w, 0xfe); err != nil {
			return err
		}
		return binarySerializer.PutUint32(w, littleEndian, uint32(val))
	}

	if err := binarySerializer.PutUint8(w, 0xff); err != nil {
		return err
	}
	return binarySerializer.PutUint64(w, littleEndian, val)
}

// VarIntSerializeSize returns the number of bytes it would take to serialize
// val as a variable length integer.
func VarIntSerializeSize(val uint64) int {
	if val < 0xfd {
		return 1
	}
	if val <= math.MaxUint16 {
		return 3
	}
	if val <= math.MaxUint32 {
		return 5
	}
	return 9
}

// ReadVarString reads a variable length string from r and returns it as a Go
// string. A varstring is encoded as a varint containing the length of the
// string followed by the bytes that represent the string itself.
func ReadVarString(r io.Reader, pver uint32) (string, er.R) {
	count, err := ReadVarInt(r, pver)
	if err != nil {
		return "", err
	}

	if count > MaxMessagePayload {
		return "", messageError("ReadVarString", fmt.Sprintf(
			"variable length string is too long [count %d, max %d]",
			count, MaxMessagePayload))
	}

	buf := make([]byte, count)
	if _, errr := io.ReadFull(r, buf); errr != nil {
		return "", er.E(errr)
	}
	return string(buf), nil
}

// WriteVarString serializes str to w as a varint containing the length of
// the string followed by the bytes that represent the string itself.
func WriteVarString(w io.Writer, pver uint32, str string) er.R {
	if err := WriteVarInt(w, pver, uint64(len(str))); err != nil {
		return err
	}
	_, err := w.Write([]byte(str))
	return er.E(err)
}

// ReadVarBytes reads a variable length byte array. A byte array is encoded
// as a varInt containing the length of the array followed by the bytes
// themselves. An error is returned if the length is greater than the passed
// maxAllowed parameter which helps protect against memory exhaustion attacks
// and forced panics through malformed messages. The fieldName parameter is
// only used for the error message so it provides more context in the error.
func ReadVarBytes(r io.Reader, pver uint32, maxAllowed uint32, fieldName string) ([]byte, er.R) {
	count, err := ReadVarInt(r, pver)
	if err != nil {
		return nil, err
	}

	if count > uint64(maxAllowed) {
		return nil, messageError("ReadVarBytes", fmt.Sprintf(
			"%s is larger than the max allowed size [count %d, max %d]",
			fieldName, count, maxAllowed))
	}

	b := make([]byte, count)
	if _, errr := io.ReadFull(r, b); errr != nil {
		return nil, er.E(errr)
	}
	return b, nil
}

// WriteVarBytes serializes a variable length byte array to w as a varint
// containing the number of bytes, followed by the bytes themselves.
func WriteVarBytes(w io.Writer, pver uint32, bs []byte) er.R {
	if err := WriteVarInt(w, pver, uint64(len(bs))); err != nil {
		return err
	}
	_, err := w.Write(bs)
	return er.E(err)
}
