// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/polarbearzoo/NBitcoin/btcutil/er"
)

// MsgPing implements the Message interface and represents a bitcoin ping
// message. It is used to ensure the connection to a remote peer is still
// valid, and is usually sent at a predetermined interval.
//
// This version of the message carries an identifying nonce at all
// negotiated protocol versions; pver is accepted only so the signature
// matches the Message interface.
type MsgPing struct {
	Nonce uint64
}

// BtcDecode decodes r using the bitcoin protocol encoding into the
// receiver. This is part of the Message interface implementation.
func (msg *MsgPing) BtcDecode(r io.Reader, pver uint32, enc MessageEncoding) er.R {
	return readElement(r, &msg.Nonce)
}

// BtcEncode encodes the receiver to w using the bitcoin protocol encoding.
// This is part of the Message interface implementation.
func (msg *MsgPing) BtcEncode(w io.Writer, pver uint32, enc MessageEncoding) er.R {
	return writeElement(w, msg.Nonce)
}

// Command returns the protocol command string for the message. This is
// part of the Message interface implementation.
func (msg *MsgPing) Command() string {
	return CmdPing
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgPing) MaxPayloadLength(pver uint32) uint32 {
	return 8
}

// NewMsgPing returns a new ping message that conforms to the Message
// interface using the passed nonce.
func NewMsgPing(nonce uint64) *MsgPing {
	return &MsgPing{Nonce: nonce}
}
