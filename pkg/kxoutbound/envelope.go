package kxoutbound

import (
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryInterval is MESSAGE_RETRY_INTERVAL from spec §4.6: 10 seconds
// between retry attempts for acknowledgeable messages.
const RetryInterval = 10 * time.Second

// AckableAttempts and FireAndForgetAttempts are the two max_attempts values
// spec §3 fixes: WELCOME and ACK are fire-and-forget (1 attempt); every
// other message expects an ACK and gets 3 attempts.
const (
	AckableAttempts      = 3
	FireAndForgetAttempts = 1
)

// newRetryPolicy returns the fixed-interval backoff policy shared by every
// acknowledgeable envelope. Expressing the spec's constant 10s retry
// interval as a backoff.ConstantBackOff keeps the policy idiomatic and
// swappable without changing the invariant the spec fixes: a flat interval,
// not an exponential one.
func newRetryPolicy() backoff.BackOff {
	return backoff.NewConstantBackOff(RetryInterval)
}

// Envelope is per-recipient metadata wrapping a slot in the shared buffer
// pool with addressing and retry information (spec §3).
type Envelope struct {
	SequenceNum uint32
	SlotIndex   int
	Length      int
	Recipient   *net.UDPAddr

	AttemptNum  int
	AttemptTS   time.Time
	MaxAttempts int

	retry    backoff.BackOff
	nextWait time.Duration
}

// ReadyToSend reports whether enough time has passed since the last
// attempt for a retry to be due. The first attempt (AttemptNum == 0) is
// always ready; spec §4.6 step 2 only throttles retries, not the initial
// send. The wait itself comes from the envelope's own backoff.BackOff,
// queried in RecordAttempt — ConstantBackOff always hands back
// RetryInterval, but the decision runs through the policy object rather
// than re-deriving the constant here.
func (e *Envelope) ReadyToSend(now time.Time) bool {
	if e.AttemptNum == 0 {
		return true
	}
	return !now.Before(e.AttemptTS.Add(e.nextWait))
}

// Exhausted reports whether the envelope has used up its retry budget.
func (e *Envelope) Exhausted() bool {
	return e.AttemptNum >= e.MaxAttempts
}

// RecordAttempt marks that the envelope was just sent at now, advancing its
// attempt counter and retry clock, and asks the backoff policy for the wait
// before the next attempt is due.
func (e *Envelope) RecordAttempt(now time.Time) {
	e.AttemptNum++
	e.AttemptTS = now
	e.nextWait = e.retry.NextBackOff()
}

// FireAndForget reports whether this envelope should be removed
// immediately after its first successful send (spec §4.6 step 4).
func (e *Envelope) FireAndForget() bool {
	return e.MaxAttempts <= FireAndForgetAttempts
}
