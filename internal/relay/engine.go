package relay

import (
	"fmt"
	"io"
	"net"
	"sync/atomic"
)

// stream copies the sender's byte stream to the receiver through a fixed-size
// buffer until the sender half-closes, then forwards the half-close. Bytes are
// never reordered, duplicated, dropped or transformed.
func (s *Server) stream(sender, receiver net.Conn) (int64, error) {
	buf := make([]byte, s.config.BufferSize)

	var copyDone atomic.Bool
	var receiverGone atomic.Bool

	// The copy loop can sit blocked on a sender read with no way to notice
	// the receiver going away. Watch the receiver socket on the side and
	// unblock the copy by closing the sender when it dies.
	watch := make(chan struct{})
	go func() {
		defer close(watch)
		probe := make([]byte, 1)
		for {
			if _, err := receiver.Read(probe); err != nil {
				break
			}
			// A receiver is not expected to send anything; drop stray bytes
			// and keep watching.
		}
		if !copyDone.Load() {
			receiverGone.Store(true)
			sender.Close()
		}
	}()

	n, err := io.CopyBuffer(receiver, sender, buf)
	copyDone.Store(true)

	if err != nil {
		// Tear the receiver down rather than let a truncated stream pass
		// for a complete one.
		sender.Close()
		receiver.Close()
		<-watch
		if receiverGone.Load() {
			return n, fmt.Errorf("%w: receiver disconnected", ErrStreamIO)
		}
		return n, fmt.Errorf("%w: sender: %s", ErrStreamIO, err)
	}

	// Orderly sender EOF: forward the half-close so the receiver sees a
	// clean end of stream.
	if tc, ok := receiver.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
	}
	sender.Close()
	receiver.Close()
	<-watch
	return n, nil
}
