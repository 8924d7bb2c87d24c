package kxwire

import (
	"github.com/adred-codev/kxgossip/pkg/kxcodec"
	"github.com/adred-codev/kxgossip/pkg/kxmember"
	"github.com/adred-codev/kxgossip/pkg/kxvclock"
)

// Message is implemented by each of the six payload types. Encode produces
// the full wire buffer (header + payload) for the given sequence number;
// Type identifies which tag the message carries.
type Message interface {
	Type() Type
	payloadSize() int
	encodePayload(buf []byte) (int, error)
}

// Encode builds the full wire representation of msg — header followed by
// payload — assigning it sequence number seq. Returns ErrInvalidMessage if
// the encoded size would exceed MaxMessageSize.
func Encode(seq uint32, msg Message) ([]byte, error) {
	size := HeaderSize + msg.payloadSize()
	if size > MaxMessageSize {
		return nil, ErrInvalidMessage
	}
	buf := make([]byte, size)
	putHeader(buf, Header{Type: msg.Type(), SequenceNum: seq})
	if _, err := msg.encodePayload(buf[HeaderSize:]); err != nil {
		return nil, err
	}
	return buf, nil
}

// EncodeInto behaves like Encode but writes into a caller-supplied buffer
// (typically a slot from the outbound buffer pool), returning the number of
// bytes written.
func EncodeInto(buf []byte, seq uint32, msg Message) (int, error) {
	size := HeaderSize + msg.payloadSize()
	if size > MaxMessageSize {
		return 0, ErrInvalidMessage
	}
	if len(buf) < size {
		return 0, ErrBufferNotEnough
	}
	putHeader(buf, Header{Type: msg.Type(), SequenceNum: seq})
	if _, err := msg.encodePayload(buf[HeaderSize:size]); err != nil {
		return 0, err
	}
	return size, nil
}

// Decode parses a full wire buffer, returning its header and the decoded
// payload as one of *Hello, *Welcome, *MemberList, *Ack, *Data, *Status.
func Decode(buf []byte) (Header, Message, error) {
	h, err := DecodeHeader(buf)
	if err != nil {
		return Header{}, nil, err
	}
	payload := buf[HeaderSize:]
	var msg Message
	switch h.Type {
	case TypeHello:
		msg, err = decodeHello(payload)
	case TypeWelcome:
		msg, err = decodeWelcome(payload)
	case TypeMemberList:
		msg, err = decodeMemberList(payload)
	case TypeAck:
		msg, err = decodeAck(payload)
	case TypeData:
		msg, err = decodeData(payload)
	case TypeStatus:
		msg, err = decodeStatus(payload)
	default:
		return Header{}, nil, ErrInvalidMessage
	}
	if err != nil {
		return Header{}, nil, err
	}
	return h, msg, nil
}

// Hello announces self to a seed or newcomer peer.
type Hello struct {
	Self *kxmember.Member
}

func (*Hello) Type() Type { return TypeHello }

func (m *Hello) payloadSize() int { return m.Self.EncodedSize() }

func (m *Hello) encodePayload(buf []byte) (int, error) {
	return m.Self.Encode(buf)
}

func decodeHello(buf []byte) (*Hello, error) {
	self, _, err := kxmember.Decode(buf)
	if err != nil {
		return nil, ErrInvalidMessage
	}
	return &Hello{Self: self}, nil
}

// Welcome replies to a HELLO, carrying the sequence number being
// acknowledged alongside the welcoming peer's own identity.
type Welcome struct {
	HelloSequenceNum uint32
	Self             *kxmember.Member
}

func (*Welcome) Type() Type { return TypeWelcome }

func (m *Welcome) payloadSize() int { return kxcodec.Uint32Size + m.Self.EncodedSize() }

func (m *Welcome) encodePayload(buf []byte) (int, error) {
	kxcodec.PutUint32(buf, m.HelloSequenceNum)
	n, err := m.Self.Encode(buf[kxcodec.Uint32Size:])
	return kxcodec.Uint32Size + n, err
}

func decodeWelcome(buf []byte) (*Welcome, error) {
	if len(buf) < kxcodec.Uint32Size {
		return nil, ErrInvalidMessage
	}
	helloSeq := kxcodec.Uint32(buf)
	self, _, err := kxmember.Decode(buf[kxcodec.Uint32Size:])
	if err != nil {
		return nil, ErrInvalidMessage
	}
	return &Welcome{HelloSequenceNum: helloSeq, Self: self}, nil
}

// MemberList ships a batch of known members to a peer. A large membership
// is split across multiple self-contained MemberList messages; see
// SplitMemberList.
type MemberList struct {
	Members []*kxmember.Member
}

func (*MemberList) Type() Type { return TypeMemberList }

func (m *MemberList) payloadSize() int {
	size := kxcodec.Uint16Size
	for _, member := range m.Members {
		size += member.EncodedSize()
	}
	return size
}

func (m *MemberList) encodePayload(buf []byte) (int, error) {
	if len(m.Members) > 0xFFFF {
		return 0, ErrInvalidMessage
	}
	kxcodec.PutUint16(buf, uint16(len(m.Members)))
	off := kxcodec.Uint16Size
	for _, member := range m.Members {
		n, err := member.Encode(buf[off:])
		if err != nil {
			return 0, err
		}
		off += n
	}
	return off, nil
}

func decodeMemberList(buf []byte) (*MemberList, error) {
	if len(buf) < kxcodec.Uint16Size {
		return nil, ErrInvalidMessage
	}
	count := int(kxcodec.Uint16(buf))
	off := kxcodec.Uint16Size
	members := make([]*kxmember.Member, 0, count)
	for i := 0; i < count; i++ {
		member, n, err := kxmember.Decode(buf[off:])
		if err != nil {
			return nil, ErrInvalidMessage
		}
		members = append(members, member)
		off += n
	}
	return &MemberList{Members: members}, nil
}

// memberListBudget is the payload budget reserved for one MEMBER_LIST
// message: MaxMessageSize minus the common header and the u16 count field.
const memberListBudget = MaxMessageSize - HeaderSize - kxcodec.Uint16Size

// SplitMemberList packs members into as few self-contained MemberList
// messages as fit within MaxMessageSize each (spec §4.4: "a large
// membership is split across multiple MEMBER_LIST messages, each
// self-contained").
func SplitMemberList(members []*kxmember.Member) []*MemberList {
	if len(members) == 0 {
		return []*MemberList{{Members: nil}}
	}
	var batches []*MemberList
	var current []*kxmember.Member
	used := 0
	for _, m := range members {
		sz := m.EncodedSize()
		if used+sz > memberListBudget && len(current) > 0 {
			batches = append(batches, &MemberList{Members: current})
			current = nil
			used = 0
		}
		current = append(current, m)
		used += sz
	}
	if len(current) > 0 {
		batches = append(batches, &MemberList{Members: current})
	}
	return batches
}

// Ack acknowledges receipt of a prior message by sequence number.
type Ack struct {
	AckSequenceNum uint32
}

func (*Ack) Type() Type { return TypeAck }

func (*Ack) payloadSize() int { return kxcodec.Uint32Size }

func (m *Ack) encodePayload(buf []byte) (int, error) {
	kxcodec.PutUint32(buf, m.AckSequenceNum)
	return kxcodec.Uint32Size, nil
}

func decodeAck(buf []byte) (*Ack, error) {
	if len(buf) < kxcodec.Uint32Size {
		return nil, ErrInvalidMessage
	}
	return &Ack{AckSequenceNum: kxcodec.Uint32(buf)}, nil
}

// MaxDataSize bounds a DATA message's payload to fit within MaxMessageSize
// alongside its header and vector record.
const MaxDataSize = MaxMessageSize - HeaderSize - kxvclock.EncodedSize - kxcodec.Uint16Size

// Data carries one gossiped application payload, versioned by a vector
// record for causal comparison.
type Data struct {
	Record  kxvclock.Record
	Payload []byte
}

func (*Data) Type() Type { return TypeData }

func (m *Data) payloadSize() int {
	return kxvclock.EncodedSize + kxcodec.Uint16Size + len(m.Payload)
}

func (m *Data) encodePayload(buf []byte) (int, error) {
	if len(m.Payload) > MaxDataSize {
		return 0, ErrInvalidMessage
	}
	m.Record.Encode(buf)
	off := kxvclock.EncodedSize
	kxcodec.PutUint16(buf[off:], uint16(len(m.Payload)))
	off += kxcodec.Uint16Size
	off += copy(buf[off:], m.Payload)
	return off, nil
}

func decodeData(buf []byte) (*Data, error) {
	if len(buf) < kxvclock.EncodedSize+kxcodec.Uint16Size {
		return nil, ErrInvalidMessage
	}
	rec := kxvclock.DecodeRecord(buf)
	off := kxvclock.EncodedSize
	size := int(kxcodec.Uint16(buf[off:]))
	off += kxcodec.Uint16Size
	if len(buf) < off+size {
		return nil, ErrInvalidMessage
	}
	payload := make([]byte, size)
	copy(payload, buf[off:off+size])
	return &Data{Record: rec, Payload: payload}, nil
}

// Status carries a full vector clock snapshot for anti-entropy exchange.
type Status struct {
	Clock *kxvclock.Clock
}

func (*Status) Type() Type { return TypeStatus }

func (m *Status) payloadSize() int {
	return kxcodec.Uint16Size + m.Clock.Len()*kxvclock.EncodedSize
}

func (m *Status) encodePayload(buf []byte) (int, error) {
	records := m.Clock.Records()
	kxcodec.PutUint16(buf, uint16(len(records)))
	off := kxcodec.Uint16Size
	for _, r := range records {
		r.Encode(buf[off:])
		off += kxvclock.EncodedSize
	}
	return off, nil
}

func decodeStatus(buf []byte) (*Status, error) {
	if len(buf) < kxcodec.Uint16Size {
		return nil, ErrInvalidMessage
	}
	count := int(kxcodec.Uint16(buf))
	off := kxcodec.Uint16Size
	clock := kxvclock.New()
	for i := 0; i < count; i++ {
		if len(buf) < off+kxvclock.EncodedSize {
			return nil, ErrInvalidMessage
		}
		r := kxvclock.DecodeRecord(buf[off:])
		clock.Set(r.MemberID, r.Seq)
		off += kxvclock.EncodedSize
	}
	return &Status{Clock: clock}, nil
}
