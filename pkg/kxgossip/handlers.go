package kxgossip

import (
	"fmt"
	"net"

	"github.com/adred-codev/kxgossip/pkg/kxmember"
	"github.com/adred-codev/kxgossip/pkg/kxnet"
	"github.com/adred-codev/kxgossip/pkg/kxoutbound"
	"github.com/adred-codev/kxgossip/pkg/kxvclock"
	"github.com/adred-codev/kxgossip/pkg/kxwire"
)

// ProcessReceive drains at most one datagram from the socket and dispatches
// it to the matching handler (spec §4.6 process_receive). A datagram that
// fails to decode, or that arrives for a message type the engine's current
// state doesn't accept, is discarded without returning an error — spec §7
// draws a distinction between malformed/unexpected input, which the engine
// tolerates, and local resource failures, which it surfaces.
func (e *Engine) ProcessReceive() error {
	n, from, err := e.conn.ReadFrom(e.inputBuf[:])
	if err == kxnet.ErrWouldBlock {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReadFailed, err)
	}

	hdr, msg, err := kxwire.Decode(e.inputBuf[:n])
	if err != nil {
		e.metrics.ObserveDropped("decode_error")
		return nil
	}
	e.metrics.ObserveReceived(hdr.Type.String())

	switch m := msg.(type) {
	case *kxwire.Hello:
		e.handleHello(from, hdr, m)
	case *kxwire.Welcome:
		e.handleWelcome(m)
	case *kxwire.MemberList:
		e.handleMemberList(from, hdr, m)
	case *kxwire.Ack:
		e.handleAck(m)
	case *kxwire.Data:
		e.handleData(from, hdr, m)
	case *kxwire.Status:
		e.handleStatus(from, hdr, m)
	}
	return nil
}

// enqueueAck queues a fire-and-forget ACK to sender for the sequence number
// being acknowledged.
func (e *Engine) enqueueAck(sender *net.UDPAddr, seq uint32) {
	buf, err := kxwire.Encode(0, &kxwire.Ack{AckSequenceNum: seq})
	if err != nil {
		return
	}
	e.queue.Enqueue(sender, buf, kxoutbound.FireAndForgetAttempts)
}

// handleHello is valid only while StateConnected (spec §4.6): it welcomes
// the sender, ships it the current membership if any is known, announces
// the newcomer to everyone else already known, and finally admits the
// newcomer to the member set.
func (e *Engine) handleHello(from *net.UDPAddr, hdr kxwire.Header, m *kxwire.Hello) {
	if e.state != StateConnected {
		e.metrics.ObserveDropped("bad_state")
		return
	}

	welcomeBuf, err := kxwire.Encode(0, &kxwire.Welcome{HelloSequenceNum: hdr.SequenceNum, Self: e.self})
	if err != nil {
		return
	}
	e.queue.Enqueue(from, welcomeBuf, kxoutbound.FireAndForgetAttempts)

	existing := e.members.Members()
	for _, batch := range kxwire.SplitMemberList(existing) {
		if len(batch.Members) == 0 {
			continue
		}
		buf, err := kxwire.Encode(0, batch)
		if err != nil {
			continue
		}
		e.queue.Enqueue(from, buf, kxoutbound.AckableAttempts)
	}

	if len(existing) > 0 {
		announceBuf, err := kxwire.Encode(0, &kxwire.MemberList{Members: []*kxmember.Member{m.Self}})
		if err == nil {
			e.queue.EnqueueFanout(addrsOf(existing), announceBuf, kxoutbound.AckableAttempts)
		}
	}

	e.members.Put(m.Self)
}

// handleWelcome completes a join: it records the welcomer as a known peer,
// promotes the engine to StateConnected, and removes the outstanding HELLO
// envelope the WELCOME acknowledges (spec §4.6).
func (e *Engine) handleWelcome(m *kxwire.Welcome) {
	e.members.Put(m.Self)
	e.state = StateConnected
	e.queue.RemoveBySequence(m.HelloSequenceNum)
}

// handleMemberList is valid only while StateConnected: it merges the
// carried members into the set and ACKs the sender.
func (e *Engine) handleMemberList(from *net.UDPAddr, hdr kxwire.Header, m *kxwire.MemberList) {
	if e.state != StateConnected {
		e.metrics.ObserveDropped("bad_state")
		return
	}
	e.members.Put(m.Members...)
	e.enqueueAck(from, hdr.SequenceNum)
}

// handleAck removes the acknowledged envelope from the outbound queue, if
// still present. ACKs for envelopes already evicted or already removed by
// an earlier ACK are silently ignored.
func (e *Engine) handleAck(m *kxwire.Ack) {
	e.queue.RemoveBySequence(m.AckSequenceNum)
}

// handleData is valid only while StateConnected: it ACKs the sender
// unconditionally, then compares the carried record against the local data
// clock. Strictly new information is recorded in the data log, delivered to
// the DataReceiver, and re-gossiped to RumorFactor random peers (spec §4.6).
func (e *Engine) handleData(from *net.UDPAddr, hdr kxwire.Header, m *kxwire.Data) {
	if e.state != StateConnected {
		e.metrics.ObserveDropped("bad_state")
		return
	}
	e.enqueueAck(from, hdr.SequenceNum)

	if kxvclock.CompareWithRecord(e.dataClock, m.Record, true) != kxvclock.Before {
		return
	}

	e.log.Put(m.Record, m.Payload)
	e.metrics.ObserveDataLogAppend()
	if e.receiver != nil {
		e.receiver(m.Payload)
	}

	peers := e.members.RandomMembers(RumorFactor)
	if len(peers) == 0 {
		return
	}
	buf, err := kxwire.Encode(0, m)
	if err != nil {
		return
	}
	e.queue.EnqueueFanout(addrsOf(peers), buf, kxoutbound.AckableAttempts)
}

// handleStatus is valid only while StateConnected: it ACKs the sender, then
// runs anti-entropy. If the local data log holds records the sender is
// behind on, those DATA messages are pushed directly; if the local clock is
// behind the sender's, a STATUS snapshot is sent back so the sender
// reciprocates (spec §4.6). A CONFLICT does both.
func (e *Engine) handleStatus(from *net.UDPAddr, hdr kxwire.Header, m *kxwire.Status) {
	if e.state != StateConnected {
		e.metrics.ObserveDropped("bad_state")
		return
	}
	e.enqueueAck(from, hdr.SequenceNum)

	cmp := kxvclock.Compare(e.dataClock, m.Clock, false)
	if cmp == kxvclock.After || cmp == kxvclock.Conflict {
		for _, rec := range e.log.All() {
			if kxvclock.CompareWithRecord(m.Clock, rec.Version, false) != kxvclock.Before {
				continue
			}
			buf, err := kxwire.Encode(0, &kxwire.Data{Record: rec.Version, Payload: rec.Data})
			if err != nil {
				continue
			}
			e.queue.Enqueue(from, buf, kxoutbound.AckableAttempts)
		}
	}
	if cmp == kxvclock.Before || cmp == kxvclock.Conflict {
		buf, err := kxwire.Encode(0, &kxwire.Status{Clock: e.dataClock})
		if err == nil {
			e.queue.Enqueue(from, buf, kxoutbound.AckableAttempts)
		}
	}
}
