package kxgossip

import "errors"

// Error taxonomy from spec §7. Every failure is surfaced to the caller as
// one of these sentinels (wrapped with context via fmt.Errorf's %w where
// useful); the engine itself never aborts the process.
var (
	ErrInitFailed       = errors.New("kxgossip: init failed")
	ErrAllocationFailed = errors.New("kxgossip: allocation failed")
	ErrBadState         = errors.New("kxgossip: bad state")
	ErrInvalidMessage   = errors.New("kxgossip: invalid message")
	ErrBufferNotEnough  = errors.New("kxgossip: buffer not enough")
	ErrNotFound         = errors.New("kxgossip: not found")
	ErrWriteFailed      = errors.New("kxgossip: write failed")
	ErrReadFailed       = errors.New("kxgossip: read failed")
)
