// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"

	"github.com/polarbearzoo/NBitcoin/btcutil/er"
	"github.com/polarbearzoo/NBitcoin/wire/protocol"
)

// MaxUserAgentLen is the maximum allowed length for the user agent field in
// a version message.
const MaxUserAgentLen = 256

// DefaultUserAgent is the user agent used when no other is configured.
const DefaultUserAgent = "/nbitcoin:0.1.0/"

// MsgVersion implements the Message interface and represents a bitcoin
// version message. It is used to exchange protocol and connection
// parameters during a peer's initial handshake and carries no consensus
// significance of its own.
type MsgVersion struct {
	ProtocolVersion int32
	Services        protocol.ServiceFlag
	Timestamp       int64
	AddrYou         NetAddress
	AddrMe          NetAddress
	Nonce           uint64
	UserAgent       string
	LastBlock       int32
	DisableRelayTx  bool
}

// NetAddress is the minimal peer address carried by a version message: an
// address pair has no meaning outside of that handshake in this module,
// since the connection manager that would otherwise consume it is an
// external collaborator.
type NetAddress struct {
	Services protocol.ServiceFlag
	IP       [16]byte
	Port     uint16
}

// HasService returns whether the specified service is supported.
func (msg *MsgVersion) HasService(service protocol.ServiceFlag) bool {
	return msg.Services&service == service
}

// AddService adds service as a supported service by the peer generating the
// message.
func (msg *MsgVersion) AddService(service protocol.ServiceFlag) {
	msg.Services |= service
}

func readNetAddress(r io.Reader, na *NetAddress) er.R {
	if err := readElement(r, &na.Services); err != nil {
		return err
	}
	if _, errr := io.ReadFull(r, na.IP[:]); errr != nil {
		return er.E(errr)
	}
	port, err := binarySerializer.Uint16(r, bigEndianPort)
	if err != nil {
		return err
	}
	na.Port = port
	return nil
}

func writeNetAddress(w io.Writer, na *NetAddress) er.R {
	if err := writeElement(w, na.Services); err != nil {
		return err
	}
	if _, errr := w.Write(na.IP[:]); errr != nil {
		return er.E(errr)
	}
	return binarySerializer.PutUint16(w, bigEndianPort, na.Port)
}

// BtcDecode decodes r using the bitcoin protocol encoding into the
// receiver. This is part of the Message interface implementation.
func (msg *MsgVersion) BtcDecode(r io.Reader, pver uint32, enc MessageEncoding) er.R {
	if err := readElement(r, &msg.ProtocolVersion); err != nil {
		return err
	}
	if err := readElement(r, &msg.Services); err != nil {
		return err
	}
	if err := readElement(r, &msg.Timestamp); err != nil {
		return err
	}
	if err := readNetAddress(r, &msg.AddrYou); err != nil {
		return err
	}
	if err := readNetAddress(r, &msg.AddrMe); err != nil {
		return err
	}
	if err := readElement(r, &msg.Nonce); err != nil {
		return err
	}
	userAgent, err := ReadVarString(r, pver)
	if err != nil {
		return err
	}
	if len(userAgent) > MaxUserAgentLen {
		return messageError("MsgVersion.BtcDecode", fmt.Sprintf(
			"user agent too long [len %v, max %v]", len(userAgent),
			MaxUserAgentLen))
	}
	msg.UserAgent = userAgent

	if err := readElement(r, &msg.LastBlock); err != nil {
		return err
	}

	// DisableRelayTx is optional: its absence (a short read) is not an
	// error, it just means the field is not present on the wire.
	var relay bool
	if err := readElement(r, &relay); err == nil {
		msg.DisableRelayTx = !relay
	}

	return nil
}

// BtcEncode encodes the receiver to w using the bitcoin protocol encoding.
// This is part of the Message interface implementation.
func (msg *MsgVersion) BtcEncode(w io.Writer, pver uint32, enc MessageEncoding) er.R {
	if err := writeElement(w, msg.ProtocolVersion); err != nil {
		return err
	}
	if err := writeElement(w, msg.Services); err != nil {
		return err
	}
	if err := writeElement(w, msg.Timestamp); err != nil {
		return err
	}
	if err := writeNetAddress(w, &msg.AddrYou); err != nil {
		return err
	}
	if err := writeNetAddress(w, &msg.AddrMe); err != nil {
		return err
	}
	if err := writeElement(w, msg.Nonce); err != nil {
		return err
	}
	if err := WriteVarString(w, pver, msg.UserAgent); err != nil {
		return err
	}
	if err := writeElement(w, msg.LastBlock); err != nil {
		return err
	}
	return writeElement(w, !msg.DisableRelayTx)
}

// Command returns the protocol command string for the message. This is
// part of the Message interface implementation.
func (msg *MsgVersion) Command() string {
	return CmdVersion
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgVersion) MaxPayloadLength(pver uint32) uint32 {
	return 4 + 8 + 8 + 26 + 26 + 8 + uint32(VarIntSerializeSize(MaxUserAgentLen)) +
		MaxUserAgentLen + 4 + 1
}

// NewMsgVersion returns a new version message that conforms to the Message
// interface using the passed parameters and defaults for the remaining
// fields.
func NewMsgVersion(me *NetAddress, you *NetAddress, nonce uint64, lastBlock int32) *MsgVersion {
	return &MsgVersion{
		ProtocolVersion: int32(protocol.ProtocolVersion),
		Services:        0,
		Timestamp:       0,
		AddrYou:         *you,
		AddrMe:          *me,
		Nonce:           nonce,
		UserAgent:       DefaultUserAgent,
		LastBlock:       lastBlock,
		DisableRelayTx:  false,
	}
}
