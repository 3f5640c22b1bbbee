// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire implements the bitcoin peer-to-peer message envelope: magic
// scanning, checksum verification, and command-tag dispatch to typed
// payloads through a codec registry populated at startup.
package wire

import (
	"context"
	"fmt"
	"io"

	"github.com/polarbearzoo/NBitcoin/btcutil/er"
	"github.com/polarbearzoo/NBitcoin/chainhash"
	"github.com/polarbearzoo/NBitcoin/pktlog/log"
	"github.com/polarbearzoo/NBitcoin/wire/protocol"
)

const (
	// MaxMessagePayload is the maximum bytes a message payload can be.
	MaxMessagePayload = protocol.MaxMessagePayload

	// MaxVarIntPayload is the maximum payload size for a variable length
	// integer.
	MaxVarIntPayload = 9

	// CommandSize is the fixed size of all commands in the common bitcoin
	// message header. Shorter commands must be zero padded.
	CommandSize = 12

	// MaxBlockPayload carries no meaning for this module since it has no
	// block subsystem; transaction messages are bounded by
	// MaxMessagePayload like every other payload.
)

// Commands used in bitcoin message headers which describe the type of
// message.
const (
	CmdVersion   = "version"
	CmdVerAck    = "verack"
	CmdPing      = "ping"
	CmdPong      = "pong"
	CmdTx        = "tx"
	CmdCFCheckpt = "cfcheckpt"
	CmdCFHeaders = "cfheaders"
	CmdCFilter   = "cfilter"
)

// Err identifies the closed set of envelope-level failures. These are
// distinct from MessageError (malformed payload content) since they
// terminate the connection's decoder rather than describe one bad message.
var Err = er.NewErrorType("wire.Err")

var (
	// ErrPayloadTooLarge signals that a header's length field exceeded
	// MaxMessagePayload.
	ErrPayloadTooLarge = Err.Code("ErrPayloadTooLarge")

	// ErrBadChecksum signals that the computed checksum of a decoded
	// payload disagreed with the header's checksum field.
	ErrBadChecksum = Err.Code("ErrBadChecksum")

	// ErrBadMagic signals that the expected network magic was not found
	// before the end of the stream.
	ErrBadMagic = Err.Code("ErrBadMagic")

	// ErrTruncated signals that the byte source ended mid-header or
	// mid-payload.
	ErrTruncated = Err.Code("ErrTruncated")

	// ErrCancelled signals that the caller's cancellation signal fired
	// before a message could be fully read.
	ErrCancelled = Err.Code("ErrCancelled")
)

// Message is the interface that describes a bitcoin message. A type that
// implements this interface can be transmitted on the bitcoin peer-to-peer
// network and read back in via the codec registry keyed on its Command.
type Message interface {
	BtcDecode(io.Reader, uint32, MessageEncoding) er.R
	BtcEncode(io.Writer, uint32, MessageEncoding) er.R
	Command() string
	MaxPayloadLength(uint32) uint32
}

// makeEmptyMessage creates a message of the appropriate concrete type based
// on the command.
func makeEmptyMessage(command string) (Message, er.R) {
	ctor, ok := messageRegistry[command]
	if !ok {
		return nil, messageError("makeEmptyMessage",
			fmt.Sprintf("unhandled command [%s]", command))
	}
	return ctor(), nil
}

// messageRegistry maps a 12-byte (NUL-padded down to its ASCII name)
// command tag to a constructor for the concrete payload type. It is
// populated once in init() below and is read-only thereafter: lookups are
// safe for concurrent readers with no coordination.
var messageRegistry = map[string]func() Message{}

// RegisterPayloadCodec adds command to the payload codec registry. It is
// intended to be called from init() functions only; registering the same
// command twice overwrites the earlier entry.
func RegisterPayloadCodec(command string, ctor func() Message) {
	messageRegistry[command] = ctor
}

func init() {
	RegisterPayloadCodec(CmdTx, func() Message { return &MsgTx{} })
	RegisterPayloadCodec(CmdVersion, func() Message { return &MsgVersion{} })
	RegisterPayloadCodec(CmdVerAck, func() Message { return &MsgVerAck{} })
	RegisterPayloadCodec(CmdPing, func() Message { return &MsgPing{} })
	RegisterPayloadCodec(CmdPong, func() Message { return &MsgPong{} })
	RegisterPayloadCodec(CmdCFCheckpt, func() Message { return &MsgCFCheckpt{} })
	RegisterPayloadCodec(CmdCFHeaders, func() Message { return &MsgCFHeaders{} })
	RegisterPayloadCodec(CmdCFilter, func() Message { return &MsgCFilter{} })
}

// MsgUnknown is returned for a command tag which has no registered codec.
// It carries the raw payload bytes untouched; per the envelope's error
// policy an unknown command is not a failure.
type MsgUnknown struct {
	CommandTag string
	Payload    []byte
}

func (m *MsgUnknown) BtcDecode(r io.Reader, pver uint32, enc MessageEncoding) er.R {
	buf, err := ReadVarBytes(r, pver, MaxMessagePayload, "unknown payload")
	if err != nil {
		return err
	}
	m.Payload = buf
	return nil
}

func (m *MsgUnknown) BtcEncode(w io.Writer, pver uint32, enc MessageEncoding) er.R {
	_, errr := w.Write(m.Payload)
	return er.E(errr)
}

func (m *MsgUnknown) Command() string { return m.CommandTag }

func (m *MsgUnknown) MaxPayloadLength(pver uint32) uint32 { return MaxMessagePayload }

// messageHeader defines the header fields that precede a message's payload
// on the wire, not including the magic already consumed by discoverMagic.
type messageHeader struct {
	command  string
	length   uint32
	checksum [4]byte
}

// readMessageHeader reads the command and length fields of a bitcoin
// message header out of r. The caller must have already consumed the
// leading network magic via discoverMagic.
func readMessageHeader(r io.Reader) (int, *messageHeader, er.R) {
	var headerBytes [CommandSize + 4]byte
	n, errr := io.ReadFull(r, headerBytes[:])
	if errr != nil {
		return n, nil, ErrTruncated.New("reading message header", er.E(errr))
	}

	hdr := messageHeader{}

	command := headerBytes[0:CommandSize]
	end := 0
	for end < len(command) && command[end] != 0 {
		end++
	}
	hdr.command = string(command[:end])

	hdr.length = littleEndian.Uint32(headerBytes[CommandSize : CommandSize+4])

	return n, &hdr, nil
}

// discoverMagic scans r one byte at a time until the four bytes of the
// given network magic are observed (SEEK_MAGIC). It returns the number of
// bytes consumed.
func discoverMagic(r io.Reader, btcnet protocol.BitcoinNet) (int, er.R) {
	var want [4]byte
	littleEndian.PutUint32(want[:], uint32(btcnet))

	var window [4]byte
	total := 0
	for {
		var b [1]byte
		n, errr := io.ReadFull(r, b[:])
		total += n
		if errr != nil {
			return total, ErrTruncated.New("seeking network magic", er.E(errr))
		}
		copy(window[:3], window[1:])
		window[3] = b[0]
		if window == want {
			return total, nil
		}
	}
}

// checkCancelled returns ErrCancelled if ctx has already been cancelled.
// Called at every read boundary so cancellation is honored without
// consuming a partial payload as though it were a complete message.
func checkCancelled(ctx context.Context) er.R {
	select {
	case <-ctx.Done():
		return ErrCancelled.New("read cancelled", er.E(ctx.Err()))
	default:
		return nil
	}
}

// ReadMessageWithEncodingN reads, validates, and parses the next bitcoin
// message from r, honoring ctx's cancellation at every read boundary. It
// returns the number of bytes read in addition to the parsed Message and
// the raw payload bytes, to be used mainly for logging/diagnostics.
//
// This implements the envelope's full state machine: SEEK_MAGIC ->
// READ_HEADER -> READ_PAYLOAD -> VERIFY_CHECKSUM -> DECODE -> EMIT.
func ReadMessageWithEncodingN(
	ctx context.Context,
	r io.Reader,
	pver uint32,
	btcnet protocol.BitcoinNet,
	enc MessageEncoding,
) (int, Message, []byte, er.R) {
	totalBytes := 0

	// SEEK_MAGIC
	if err := checkCancelled(ctx); err != nil {
		return totalBytes, nil, nil, err
	}
	n, err := discoverMagic(r, btcnet)
	totalBytes += n
	if err != nil {
		if ErrTruncated.Is(err) {
			return totalBytes, nil, nil, ErrBadMagic.New(
				"network magic not found before end of stream", err)
		}
		return totalBytes, nil, nil, err
	}

	// READ_HEADER
	if err := checkCancelled(ctx); err != nil {
		return totalBytes, nil, nil, err
	}
	n, hdr, err := readMessageHeader(r)
	totalBytes += n
	if err != nil {
		return totalBytes, nil, nil, err
	}

	if hdr.length > MaxMessagePayload {
		return totalBytes, nil, nil, ErrPayloadTooLarge.New(
			fmt.Sprintf("payload exceeds max length - header "+
				"indicates %d bytes, but max message payload is %d "+
				"bytes", hdr.length, MaxMessagePayload), nil)
	}

	hasChecksum := pver >= protocol.MempoolGdVersion
	if hasChecksum {
		if err := checkCancelled(ctx); err != nil {
			return totalBytes, nil, nil, err
		}
		cn, errr := io.ReadFull(r, hdr.checksum[:])
		totalBytes += cn
		if errr != nil {
			return totalBytes, nil, nil, ErrTruncated.New(
				"reading checksum", er.E(errr))
		}
	}

	// READ_PAYLOAD
	if err := checkCancelled(ctx); err != nil {
		return totalBytes, nil, nil, err
	}
	payload := make([]byte, hdr.length)
	pn, errr := io.ReadFull(r, payload)
	totalBytes += pn
	if errr != nil {
		return totalBytes, nil, nil, ErrTruncated.New("reading payload", er.E(errr))
	}

	// VERIFY_CHECKSUM
	if hasChecksum {
		checksum := chainhash.DoubleHashB(payload)
		if !bytesEqual4(hdr.checksum, checksum) {
			return totalBytes, nil, nil, ErrBadChecksum.New(
				fmt.Sprintf("payload checksum failed - header "+
					"indicates %x, but actual checksum is %x",
					hdr.checksum, checksum[:4]), nil)
		}
	}

	// DECODE
	msg, err := makeEmptyMessage(hdr.command)
	if err != nil {
		// Unknown command tags are not a decode failure: they are
		// surfaced as a MsgUnknown carrying the raw bytes.
		log.Debugf("received unhandled command [%s], %d byte payload", hdr.command, len(payload))
		msg = &MsgUnknown{CommandTag: hdr.command, Payload: payload}
		return totalBytes, msg, payload, nil
	}

	pr := newFixedReader(payload)
	if err := msg.BtcDecode(pr, pver, enc); err != nil {
		return totalBytes, nil, nil, err
	}

	// EMIT
	return totalBytes, msg, payload, nil
}

// ReadMessageN is the uncancellable convenience form of
// ReadMessageWithEncodingN using BaseEncoding.
func ReadMessageN(r io.Reader, pver uint32, btcnet protocol.BitcoinNet) (int, Message, []byte, er.R) {
	return ReadMessageWithEncodingN(context.Background(), r, pver, btcnet, BaseEncoding)
}

// WriteMessageWithEncodingN writes a bitcoin message to w including the
// necessary header information and returns the number of bytes written.
func WriteMessageWithEncodingN(
	w io.Writer,
	msg Message,
	pver uint32,
	btcnet protocol.BitcoinNet,
	enc MessageEncoding,
) (int, er.R) {
	cmd := msg.Command()
	if len(cmd) > CommandSize {
		return 0, messageError("WriteMessage",
			fmt.Sprintf("command [%s] is too long [max %v]", cmd, CommandSize))
	}

	var payloadBuf fixedWriter
	if err := msg.BtcEncode(&payloadBuf, pver, enc); err != nil {
		return 0, err
	}
	payload := payloadBuf.buf

	lenp := uint32(len(payload))
	if lenp > MaxMessagePayload {
		return 0, ErrPayloadTooLarge.New(
			fmt.Sprintf("message payload is too large - encoded "+
				"%d bytes, but maximum message payload is %d bytes",
				lenp, MaxMessagePayload), nil)
	}
	if maxAllowed := msg.MaxPayloadLength(pver); lenp > maxAllowed {
		return 0, messageError("WriteMessage", fmt.Sprintf(
			"message payload is too large - encoded %d bytes, "+
				"but maximum message payload size for messages of "+
				"type [%s] is %d", lenp, cmd, maxAllowed))
	}

	var header [4 + CommandSize + 4]byte
	littleEndian.PutUint32(header[0:4], uint32(btcnet))
	copy(header[4:4+CommandSize], cmd)
	littleEndian.PutUint32(header[4+CommandSize:4+CommandSize+4], lenp)

	total := 0
	n, errr := w.Write(header[:])
	total += n
	if errr != nil {
		return total, er.E(errr)
	}

	if pver >= protocol.MempoolGdVersion {
		checksum := chainhash.DoubleHashB(payload)
		cn, errr := w.Write(checksum[:4])
		total += cn
		if errr != nil {
			return total, er.E(errr)
		}
	}

	pn, errr := w.Write(payload)
	total += pn
	if errr != nil {
		return total, er.E(errr)
	}

	return total, nil
}

// WriteMessageN is the convenience form of WriteMessageWithEncodingN using
// BaseEncoding.
func WriteMessageN(w io.Writer, msg Message, pver uint32, btcnet protocol.BitcoinNet) (int, er.R) {
	return WriteMessageWithEncodingN(w, msg, pver, btcnet, BaseEncoding)
}

func bytesEqual4(a [4]byte, b []byte) bool {
	if len(b) < 4 {
		return false
	}
	return a[0] == b[0] && a[1] == b[1] && a[2] == b[2] && a[3] == b[3]
}

// fixedWriter accumulates bytes written via BtcEncode into a growable
// buffer, used so WriteMessage can learn the encoded payload length before
// committing anything to the caller's writer.
type fixedWriter struct {
	buf []byte
}

func (f *fixedWriter) Write(p []byte) (int, error) {
	f.buf = append(f.buf, p...)
	return len(p), nil
}

// newFixedReader wraps an owned payload buffer so BtcDecode reads only from
// memory already verified against the checksum.
func newFixedReader(b []byte) io.Reader {
	return &fixedReader{buf: b}
}

type fixedReader struct {
	buf []byte
	pos int
}

func (f *fixedReader) Read(p []byte) (int, error) {
	if f.pos >= len(f.buf) {
		return 0, io.EOF
	}
	n := copy(p, f.buf[f.pos:])
	f.pos += n
	return n, nil
}
