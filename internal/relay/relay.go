// Package relay implements the one-shot byte relay: accept exactly one sender
// and one receiver on a single TCP port, pipe bytes from the former to the
// latter, and stop.
//
// The relay is byte-transparent. It never parses, checksums, encrypts or
// decrypts the stream; whatever framing the session advertises is produced and
// consumed by the peers.
package relay

import (
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultPort           = 9000
	DefaultBindAddress    = "0.0.0.0"
	DefaultPairingTimeout = 2 * time.Minute
	// DefaultBufferSize is the fixed copy buffer, chosen so that arbitrarily
	// large payloads relay in bounded memory.
	DefaultBufferSize = 128 * 1024
)

var (
	// ErrBind indicates the listening port could not be bound. Fatal.
	ErrBind = errors.New("unable to bind relay port")
	// ErrPairingTimeout indicates the second peer never arrived in time.
	ErrPairingTimeout = errors.New("timed out waiting for second peer")
	// ErrStreamIO indicates a peer connection failed mid-transfer.
	ErrStreamIO = errors.New("peer connection failed mid-transfer")
)

// Config holds the operator-tunable knobs of a relay run.
type Config struct {
	BindAddress    string
	Port           int
	PairingTimeout time.Duration
	BufferSize     int
}

func (c Config) withDefaults() Config {
	if c.BindAddress == "" {
		c.BindAddress = DefaultBindAddress
	}
	if c.PairingTimeout == 0 {
		c.PairingTimeout = DefaultPairingTimeout
	}
	if c.BufferSize == 0 {
		c.BufferSize = DefaultBufferSize
	}
	return c
}

// State tracks the lifecycle of the single relay session.
type State int

const (
	WaitingForSender State = iota
	WaitingForReceiver
	Streaming
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case WaitingForSender:
		return "waiting_for_sender"
	case WaitingForReceiver:
		return "waiting_for_receiver"
	case Streaming:
		return "streaming"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
