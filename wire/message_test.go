// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"

	"github.com/polarbearzoo/NBitcoin/chainhash"
	"github.com/polarbearzoo/NBitcoin/wire/protocol"
)

// TestMessageRoundTrip ensures WriteMessageN followed by ReadMessageN
// reproduces the original message, at a protocol version recent enough to
// carry the post-MempoolGdVersion checksum field.
func TestMessageRoundTrip(t *testing.T) {
	pver := protocol.ProtocolVersion
	msg := NewMsgPing(0xdeadbeef)

	var buf bytes.Buffer
	n, err := WriteMessageN(&buf, msg, pver, protocol.MainNet)
	if err != nil {
		t.Fatalf("WriteMessageN: %v", err)
	}
	if n != buf.Len() {
		t.Errorf("WriteMessageN: reported %d bytes, buffer holds %d", n, buf.Len())
	}

	_, gotMsg, _, err := ReadMessageN(&buf, pver, protocol.MainNet)
	if err != nil {
		t.Fatalf("ReadMessageN: %v", err)
	}

	gotPing, ok := gotMsg.(*MsgPing)
	if !ok {
		t.Fatalf("ReadMessageN: want *MsgPing got %T", gotMsg)
	}
	if gotPing.Nonce != msg.Nonce {
		t.Errorf("round trip: want nonce %d got %d", msg.Nonce, gotPing.Nonce)
	}
}

// TestMessageRoundTripNoChecksum exercises the pre-MempoolGdVersion header
// shape, which carries no checksum field at all.
func TestMessageRoundTripNoChecksum(t *testing.T) {
	pver := protocol.BIP0031Version
	msg := NewMsgPing(0x1234)

	var buf bytes.Buffer
	if _, err := WriteMessageN(&buf, msg, pver, protocol.MainNet); err != nil {
		t.Fatalf("WriteMessageN: %v", err)
	}

	_, gotMsg, _, err := ReadMessageN(&buf, pver, protocol.MainNet)
	if err != nil {
		t.Fatalf("ReadMessageN: %v", err)
	}
	if gotMsg.(*MsgPing).Nonce != msg.Nonce {
		t.Errorf("round trip (no checksum): nonce mismatch")
	}
}

// TestPayloadTooLarge covers the boundary behavior from spec section 8: a
// header declaring length == MaxMessagePayload+1 is rejected without ever
// attempting to read that much payload.
func TestPayloadTooLarge(t *testing.T) {
	var header [4 + CommandSize + 4]byte
	littleEndian.PutUint32(header[0:4], uint32(protocol.MainNet))
	copy(header[4:4+CommandSize], CmdPing)
	littleEndian.PutUint32(header[4+CommandSize:], MaxMessagePayload+1)

	_, _, _, err := ReadMessageN(bytes.NewReader(header[:]), protocol.ProtocolVersion, protocol.MainNet)
	if err == nil {
		t.Fatalf("expected ErrPayloadTooLarge, got nil")
	}
	if !ErrPayloadTooLarge.Is(err) {
		t.Errorf("want ErrPayloadTooLarge got %v", err)
	}
}

// TestBadMagic ensures a stream containing no occurrence of the expected
// network magic is rejected with ErrBadMagic rather than hanging or
// silently returning a zero message.
func TestBadMagic(t *testing.T) {
	msg := NewMsgPing(1)
	var buf bytes.Buffer
	if _, err := WriteMessageN(&buf, msg, protocol.ProtocolVersion, protocol.TestNet3); err != nil {
		t.Fatalf("WriteMessageN: %v", err)
	}

	_, _, _, err := ReadMessageN(&buf, protocol.ProtocolVersion, protocol.MainNet)
	if err == nil {
		t.Fatalf("expected ErrBadMagic, got nil")
	}
	if !ErrBadMagic.Is(err) {
		t.Errorf("want ErrBadMagic got %v", err)
	}
}

// TestBadChecksum flips one byte of an otherwise well-formed payload and
// confirms the envelope rejects it rather than handing a corrupted payload
// to the codec.
func TestBadChecksum(t *testing.T) {
	pver := protocol.ProtocolVersion
	msg := NewMsgPing(0xabad1dea)

	var buf bytes.Buffer
	if _, err := WriteMessageN(&buf, msg, pver, protocol.MainNet); err != nil {
		t.Fatalf("WriteMessageN: %v", err)
	}

	raw := buf.Bytes()
	payloadStart := 4 + CommandSize + 4 + 4 // magic + command + length + checksum
	raw[payloadStart] ^= 0xff

	_, _, _, err := ReadMessageN(bytes.NewReader(raw), pver, protocol.MainNet)
	if err == nil {
		t.Fatalf("expected ErrBadChecksum, got nil")
	}
	if !ErrBadChecksum.Is(err) {
		t.Errorf("want ErrBadChecksum got %v", err)
	}
}

// TestUnknownCommandDispatch ensures a command tag with no registered codec
// decodes to MsgUnknown carrying the raw payload rather than failing, per
// the envelope's "unknown commands are logged but accepted" policy.
func TestUnknownCommandDispatch(t *testing.T) {
	pver := protocol.ProtocolVersion

	var payloadBuf fixedWriter
	if err := WriteVarBytes(&payloadBuf, pver, []byte("hello")); err != nil {
		t.Fatalf("WriteVarBytes: %v", err)
	}
	payload := payloadBuf.buf

	var buf bytes.Buffer
	var header [4 + CommandSize + 4]byte
	littleEndian.PutUint32(header[0:4], uint32(protocol.MainNet))
	copy(header[4:4+CommandSize], "notarealcmd")
	littleEndian.PutUint32(header[4+CommandSize:], uint32(len(payload)))
	buf.Write(header[:])
	checksum := chainhash.DoubleHashB(payload)
	buf.Write(checksum[:4])
	buf.Write(payload)

	_, gotMsg, gotPayload, err := ReadMessageN(&buf, pver, protocol.MainNet)
	if err != nil {
		t.Fatalf("ReadMessageN: %v", err)
	}
	unk, ok := gotMsg.(*MsgUnknown)
	if !ok {
		t.Fatalf("want *MsgUnknown got %T", gotMsg)
	}
	if unk.CommandTag != "notarealcmd" {
		t.Errorf("want command tag %q got %q", "notarealcmd", unk.CommandTag)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Errorf("want raw payload %x got %x", payload, gotPayload)
	}
}
