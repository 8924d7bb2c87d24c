// Package kxwire implements the six tagged gossip wire messages and their
// common 12-byte header, per spec §4.4. All integers are big-endian; every
// message must fit in MaxMessageSize bytes since there is no multi-datagram
// reassembly.
package kxwire

import (
	"bytes"
	"errors"

	"github.com/adred-codev/kxgossip/pkg/kxcodec"
)

// Type identifies which of the six wire messages a datagram carries.
type Type byte

const (
	TypeHello      Type = 0x01
	TypeWelcome    Type = 0x02
	TypeMemberList Type = 0x03
	TypeAck        Type = 0x04
	TypeData       Type = 0x05
	TypeStatus     Type = 0x06
)

func (t Type) String() string {
	switch t {
	case TypeHello:
		return "HELLO"
	case TypeWelcome:
		return "WELCOME"
	case TypeMemberList:
		return "MEMBER_LIST"
	case TypeAck:
		return "ACK"
	case TypeData:
		return "DATA"
	case TypeStatus:
		return "STATUS"
	default:
		return "UNKNOWN"
	}
}

func (t Type) valid() bool {
	return t >= TypeHello && t <= TypeStatus
}

// protocolID is the literal 5-byte tag every message starts with: "ptcs\0".
var protocolID = [5]byte{'p', 't', 'c', 's', 0}

// HeaderSize is the fixed 12-byte framing prefix every message carries.
const HeaderSize = 5 + 1 + 2 + 4

// MaxMessageSize bounds any single encoded message, including its header,
// to fit in one UDP datagram (spec §4.4).
const MaxMessageSize = 512

// ErrInvalidMessage is returned when a decode sees a mismatched protocol id,
// an out-of-range type tag, or a payload that doesn't parse.
var ErrInvalidMessage = errors.New("kxwire: invalid message")

// ErrBufferNotEnough is returned by EncodeInto and PatchSequenceNum when the
// caller-supplied buffer is shorter than the structure it must hold.
var ErrBufferNotEnough = errors.New("kxwire: buffer not enough")

// Header is the 12-byte frame prefix common to every message.
type Header struct {
	Type        Type
	SequenceNum uint32
}

// putHeader writes h onto buf[0:HeaderSize]. reserved is always zero.
func putHeader(buf []byte, h Header) {
	copy(buf[0:5], protocolID[:])
	buf[5] = byte(h.Type)
	kxcodec.PutUint16(buf[6:8], 0) // reserved
	kxcodec.PutUint32(buf[8:12], h.SequenceNum)
}

// DecodeHeader parses the 12-byte header from buf. Any buffer shorter than
// HeaderSize, with a mismatched protocol id, or with an out-of-range type
// byte is rejected as ErrInvalidMessage (spec §4.4).
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrInvalidMessage
	}
	if !bytes.Equal(buf[0:5], protocolID[:]) {
		return Header{}, ErrInvalidMessage
	}
	t := Type(buf[5])
	if !t.valid() {
		return Header{}, ErrInvalidMessage
	}
	return Header{Type: t, SequenceNum: kxcodec.Uint32(buf[8:12])}, nil
}

// PatchSequenceNum overwrites the 4-byte sequence-number field of an
// already-encoded message in place, without touching the rest of the
// buffer. This is the deliberate shared-buffer mutation spec §4.5
// describes: the outbound queue lets several envelopes reference one
// encoded payload, and each patches its own sequence number in immediately
// before sending.
func PatchSequenceNum(buf []byte, seq uint32) error {
	if len(buf) < HeaderSize {
		return ErrBufferNotEnough
	}
	kxcodec.PutUint32(buf[8:12], seq)
	return nil
}
