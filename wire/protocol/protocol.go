// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package protocol defines the network magic values and per-connection
// protocol version constants shared by the wire message envelope.
package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// ProtocolVersion is the latest protocol version this package is aware of.
const ProtocolVersion uint32 = 70016

// MultipleAddressVersion is the protocol version which added multiple
// addresses per message (pver >= MultipleAddressVersion).
const MultipleAddressVersion uint32 = 209

// NetAddressTimeVersion is the protocol version which added the timestamp
// field to the network address.
const NetAddressTimeVersion uint32 = 31402

// BIP0031Version is the protocol version AFTER which a pong message and the
// nonce field in ping is used.
const BIP0031Version uint32 = 60000

// MempoolGdVersion is the protocol version which added the checksum field
// in the message header. Any connection negotiated at or
// above this version includes a checksum; below it the header has no
// checksum field at all.
const MempoolGdVersion uint32 = 60002

// FeeFilterVersion is the protocol version which added a new feefilter
// message.
const FeeFilterVersion uint32 = 70013

// MaxMessagePayload is the maximum bytes a message payload can be. This
// applies to the uncompressed payload, and thus a 32 MiB payload limit.
const MaxMessagePayload = 0x0200_0000 // 32 MiB

// BitcoinNet represents which bitcoin network a message belongs to.
type BitcoinNet uint32

const (
	// MainNet represents the main bitcoin network.
	MainNet BitcoinNet = 0xd9b4bef9

	// TestNet represents the regression test network.
	TestNet BitcoinNet = 0xdab5bffa

	// TestNet3 represents the test network (version 3).
	TestNet3 BitcoinNet = 0x0709110b

	// SimNet represents the simulation test network.
	SimNet BitcoinNet = 0x12141c16
)

// bnStrings is a map of bitcoin networks back to their constant names for
// pretty printing.
var bnStrings = map[BitcoinNet]string{
	MainNet:  "MainNet",
	TestNet:  "TestNet",
	TestNet3: "TestNet3",
	SimNet:   "SimNet",
}

// String returns the BitcoinNet in human-readable form.
func (n BitcoinNet) String() string {
	if s, ok := bnStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown BitcoinNet (%d)", uint32(n))
}

// ServiceFlag identifies services supported by a bitcoin peer.
type ServiceFlag uint32

const (
	// SFNodeNetwork denotes a peer that can serve the complete block chain.
	SFNodeNetwork ServiceFlag = 1 << iota

	// SFNodeGetUTXO denotes a peer that can respond to a getutxo request.
	SFNodeGetUTXO

	// SFNodeBloom denotes a peer that can handle bloom-filtered
	// connections.
	SFNodeBloom

	// SFNodeWitness denotes a peer that can handle segregated-witness
	// encoded blocks and transactions. Accepted as a remote advertisement
	// even though this module does not produce witness-encoded data.
	SFNodeWitness

	// SFNodeXthin denotes a peer that supports xthin blocks.
	SFNodeXthin

	// SFNodeBit5 is reserved for a service bit not yet assigned a name.
	SFNodeBit5

	// SFNodeCF denotes a peer that supports committed filters (BIP157).
	SFNodeCF

	// SFNode2X is signalled by peers that support the Segwit2x hard fork.
	SFNode2X
)

// sfStrings is a map of service flags back to their constant names for
// pretty printing.
var sfStrings = map[ServiceFlag]string{
	SFNodeNetwork: "SFNodeNetwork",
	SFNodeGetUTXO: "SFNodeGetUTXO",
	SFNodeBloom:   "SFNodeBloom",
	SFNodeWitness: "SFNodeWitness",
	SFNodeXthin:   "SFNodeXthin",
	SFNodeBit5:    "SFNodeBit5",
	SFNodeCF:      "SFNodeCF",
	SFNode2X:      "SFNode2X",
}

// orderedSFStrings lists the service flags in bit order so String composes
// a deterministic "|"-joined rendering.
var orderedSFStrings = []ServiceFlag{
	SFNodeNetwork, SFNodeGetUTXO, SFNodeBloom, SFNodeWitness,
	SFNodeXthin, SFNodeBit5, SFNodeCF, SFNode2X,
}

// String returns the ServiceFlag in human-readable form.
func (f ServiceFlag) String() string {
	if f == 0 {
		return "0x0"
	}

	s := ""
	rem := f
	for _, flag := range orderedSFStrings {
		if rem&flag == flag {
			s += sfStrings[flag] + "|"
			rem ^= flag
		}
	}

	s = strings.TrimSuffix(s, "|")
	if rem != 0 {
		s += "|0x" + strconv.FormatUint(uint64(rem), 16)
	}
	return strings.TrimPrefix(s, "|")
}
