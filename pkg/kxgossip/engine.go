// Package kxgossip implements the gossip cluster-membership and
// data-dissemination engine described in spec §1-§9: a single-threaded,
// non-reentrant state machine driven entirely by its owner calling
// ProcessReceive, ProcessSend, and Tick in a loop (spec §5 concurrency
// model). It owns no goroutines and does no I/O beyond what those three
// calls perform through the kxnet.Conn it was built with.
package kxgossip

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/rs/zerolog"

	"github.com/adred-codev/kxgossip/pkg/kxdatalog"
	"github.com/adred-codev/kxgossip/pkg/kxmember"
	"github.com/adred-codev/kxgossip/pkg/kxnet"
	"github.com/adred-codev/kxgossip/pkg/kxoutbound"
	"github.com/adred-codev/kxgossip/pkg/kxvclock"
	"github.com/adred-codev/kxgossip/pkg/kxwire"
)

// GossipTickInterval is GOSSIP_TICK_INTERVAL from spec §3: the minimum
// spacing between two STATUS anti-entropy rounds triggered by Tick.
const GossipTickInterval = 1000 * time.Millisecond

// RumorFactor is MESSAGE_RUMOR_FACTOR from spec §3: the number of randomly
// chosen peers a DATA re-gossip or STATUS round fans out to.
const RumorFactor = 3

// DataReceiver is invoked with the payload of every DATA message the engine
// accepts as new information (spec §4.6 DATA handling, §6 data_receiver).
type DataReceiver func(data []byte)

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithConn substitutes conn for a real kxnet.Bind-ed socket — the hook
// tests use to run an Engine against a kxnet.MockNetwork.
func WithConn(conn kxnet.Conn) Option {
	return func(e *Engine) { e.conn = conn }
}

// WithLogger attaches a logger. The default is zerolog's Nop logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics attaches a MetricsRecorder. The default is a no-op recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithSendRateLimit caps ProcessSend's datagram rate. Unset means
// unlimited, matching the spec's reference engine.
func WithSendRateLimit(limiter *rate.Limiter) Option {
	return func(e *Engine) { e.limiter = limiter }
}

// Engine is one gossip participant: a bound socket, a member set, the
// outbound envelope queue and shared buffer pool, a vector clock, and the
// bounded data log (spec §3 Engine state).
type Engine struct {
	conn       kxnet.Conn
	self       *kxmember.Member
	members    *kxmember.Set
	pool       *kxoutbound.Pool
	queue      *kxoutbound.Queue
	dataSeq    uint32
	dataClock  *kxvclock.Clock
	log        *kxdatalog.Log
	state      State
	lastGossip time.Time
	receiver   DataReceiver
	logger     zerolog.Logger
	metrics    MetricsRecorder
	limiter    *rate.Limiter

	inputBuf [kxwire.MaxMessageSize]byte
}

// New binds a UDP socket on addr and returns an Engine in StateInitialized,
// ready for Join (spec §4.6 construction). receiver may be nil if the
// caller doesn't need DATA payloads delivered.
func New(addr *net.UDPAddr, receiver DataReceiver, opts ...Option) (*Engine, error) {
	e := &Engine{
		members:   kxmember.NewSet(),
		pool:      kxoutbound.NewPool(),
		dataClock: kxvclock.New(),
		log:       kxdatalog.New(),
		state:     StateInitialized,
		receiver:  receiver,
		logger:    zerolog.Nop(),
		metrics:   noopMetrics{},
	}
	e.queue = kxoutbound.NewQueue(e.pool)

	for _, opt := range opts {
		opt(e)
	}

	if e.conn == nil {
		conn, err := kxnet.Bind(addr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInitFailed, err)
		}
		e.conn = conn
	}
	e.self = kxmember.New(e.conn.LocalAddr())

	e.logger.Debug().Str("addr", e.self.Addr.String()).Msg("engine initialized")
	return e, nil
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State { return e.state }

// Self returns the engine's own member identity.
func (e *Engine) Self() *kxmember.Member { return e.self }

// Members returns a snapshot of the engine's known peers, excluding itself.
func (e *Engine) Members() []*kxmember.Member { return e.members.Members() }

// Conn exposes the underlying net.PacketConn for a host's readiness
// multiplexer (spec §6 socket_fd). Returns nil when running against a
// kxnet.MockNetwork, which has no real descriptor.
func (e *Engine) Conn() net.PacketConn {
	if e.conn == nil {
		return nil
	}
	return e.conn.PacketConn()
}

// Join transitions the engine out of StateInitialized. With no seeds, the
// engine becomes StateConnected immediately (it starts its own cluster).
// With seeds, a HELLO is enqueued to each and the engine becomes
// StateJoining until a WELCOME promotes it (spec §4.6).
func (e *Engine) Join(seeds []*net.UDPAddr) error {
	if e.state != StateInitialized {
		return ErrBadState
	}
	if len(seeds) == 0 {
		e.state = StateConnected
		return nil
	}

	buf, err := kxwire.Encode(0, &kxwire.Hello{Self: e.self})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	e.queue.EnqueueFanout(seeds, buf, kxoutbound.AckableAttempts)
	e.state = StateJoining
	return nil
}

// Close releases the underlying socket and marks the engine destroyed. No
// further calls are valid afterward.
func (e *Engine) Close() error {
	e.state = StateDestroyed
	return e.conn.Close()
}

// SendData originates a new gossiped payload: it assigns the next sequence
// number for this originator, records it in the data log, and fans it out
// to RumorFactor random peers (spec §4.6 send_data).
func (e *Engine) SendData(data []byte) error {
	if e.state != StateConnected {
		return ErrBadState
	}
	e.dataSeq++
	rec := e.dataClock.Set(e.self.ID(), e.dataSeq)
	e.log.Put(rec, data)
	e.metrics.ObserveDataLogAppend()

	peers := e.members.RandomMembers(RumorFactor)
	if len(peers) == 0 {
		return nil
	}
	buf, err := kxwire.Encode(0, &kxwire.Data{Record: rec, Payload: data})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	e.queue.EnqueueFanout(addrsOf(peers), buf, kxoutbound.AckableAttempts)
	return nil
}

// Tick drives periodic STATUS anti-entropy gossip (spec §4.6 tick): at most
// once every GossipTickInterval, it fans a STATUS snapshot of the data
// clock out to RumorFactor random peers. It always returns the duration
// remaining until the next tick is due, so callers can sleep or schedule a
// timer accordingly.
func (e *Engine) Tick() (time.Duration, error) {
	now := time.Now()
	if e.state == StateConnected && !now.Before(e.lastGossip.Add(GossipTickInterval)) {
		peers := e.members.RandomMembers(RumorFactor)
		if len(peers) > 0 {
			buf, err := kxwire.Encode(0, &kxwire.Status{Clock: e.dataClock})
			if err != nil {
				return 0, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
			}
			e.queue.EnqueueFanout(addrsOf(peers), buf, kxoutbound.AckableAttempts)
		}
		e.lastGossip = now
	}
	remaining := e.lastGossip.Add(GossipTickInterval).Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// ProcessSend drains the outbound queue: envelopes that have exhausted
// their retry budget evict their peer (for acknowledgeable messages) or are
// simply dropped (fire-and-forget); envelopes not yet due for a retry are
// skipped; everything else is sent, patching in its own sequence number
// immediately beforehand since it may share a buffer slot with other
// envelopes (spec §4.6 process_send). Returns the number of datagrams sent.
func (e *Engine) ProcessSend() (int, error) {
	now := time.Now()
	sent := 0

	for _, env := range e.queue.Entries() {
		if _, live := e.queue.FindBySequence(env.SequenceNum); !live {
			continue // evicted earlier in this same drain
		}

		if env.Exhausted() {
			if env.MaxAttempts > kxoutbound.FireAndForgetAttempts {
				e.members.RemoveByAddress(env.Recipient)
				e.queue.RemoveByRecipient(env.Recipient)
				e.metrics.ObservePeerEvicted()
			} else {
				e.queue.Remove(env)
			}
			e.metrics.ObserveEnvelopeEvicted()
			continue
		}

		if !env.ReadyToSend(now) {
			continue
		}

		if e.limiter != nil && !e.limiter.Allow() {
			continue
		}

		buf := e.queue.Buffer(env)
		if err := kxwire.PatchSequenceNum(buf, env.SequenceNum); err != nil {
			return sent, fmt.Errorf("%w: %v", ErrBufferNotEnough, err)
		}
		if _, err := e.conn.WriteTo(buf, env.Recipient); err != nil {
			return sent, fmt.Errorf("%w: %v", ErrWriteFailed, err)
		}
		sent++
		e.metrics.ObserveSent(kxwire.Type(buf[5]).String())
		env.RecordAttempt(now)
		if env.FireAndForget() {
			e.queue.Remove(env)
		}
	}

	e.metrics.SetMemberCount(e.members.Size())
	return sent, nil
}

func addrsOf(members []*kxmember.Member) []*net.UDPAddr {
	addrs := make([]*net.UDPAddr, len(members))
	for i, m := range members {
		addrs[i] = m.Addr
	}
	return addrs
}
