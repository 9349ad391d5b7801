package relay_test

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net"
	"testing"
	"time"

	"github.com/bytechute/chute/internal/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startRelay(t *testing.T, config relay.Config) (*relay.Server, string, chan error) {
	t.Helper()
	if config.BindAddress == "" {
		config.BindAddress = "127.0.0.1"
	}
	srv := relay.New(config, zap.NewNop())
	require.NoError(t, srv.Listen())

	errC := make(chan error, 1)
	go func() {
		errC <- srv.Run(context.Background())
	}()
	return srv, fmt.Sprintf("127.0.0.1:%d", srv.Port()), errC
}

// dialSender connects the first peer and waits until the relay has assigned
// it the sender role, so the next dial is deterministically the receiver.
func dialSender(t *testing.T, srv *relay.Server, addr string) *net.TCPConn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return srv.State() == relay.WaitingForReceiver
	}, 5*time.Second, time.Millisecond)
	return conn.(*net.TCPConn)
}

func TestRelayDeliversExactBytes(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	sizes := map[string]int{
		"empty stream":      0,
		"single buffer":     1000,
		"multiple buffers":  3 << 20,
		"exact buffer size": relay.DefaultBufferSize,
	}
	for name, size := range sizes {
		t.Run(name, func(t *testing.T) {
			payload := make([]byte, size)
			_, err := rng.Read(payload)
			require.NoError(t, err)

			srv, addr, errC := startRelay(t, relay.Config{PairingTimeout: 5 * time.Second})
			sender := dialSender(t, srv, addr)
			receiver, err := net.Dial("tcp", addr)
			require.NoError(t, err)
			defer receiver.Close()

			go func() {
				defer sender.Close()
				if _, err := sender.Write(payload); err != nil {
					return
				}
				sender.CloseWrite()
			}()

			got, err := io.ReadAll(receiver)
			require.NoError(t, err)
			assert.Equal(t, payload, got)

			require.NoError(t, <-errC)
			assert.Equal(t, relay.Done, srv.State())
		})
	}
}

// The relay must pass arbitrary bytes untouched: feeding it garbage that is
// not valid checksum or cipher framing still succeeds at the transport level.
func TestRelayIsByteTransparent(t *testing.T) {
	payload := []byte("Salted__not actually a cipher stream\x00\xff\xfe followed by no digest")

	srv, addr, errC := startRelay(t, relay.Config{PairingTimeout: 5 * time.Second})
	sender := dialSender(t, srv, addr)
	receiver, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer receiver.Close()

	go func() {
		defer sender.Close()
		sender.Write(payload)
		sender.CloseWrite()
	}()

	got, err := io.ReadAll(receiver)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	require.NoError(t, <-errC)
}

func TestRelayConcreteScenario(t *testing.T) {
	srv, addr, errC := startRelay(t, relay.Config{PairingTimeout: 5 * time.Second})

	sender := dialSender(t, srv, addr)
	_, err := sender.Write([]byte{0x41, 0x42, 0x43})
	require.NoError(t, err)

	receiver, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer receiver.Close()

	require.NoError(t, sender.CloseWrite())

	got, err := io.ReadAll(receiver)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x41, 0x42, 0x43}, got)

	require.NoError(t, <-errC)
	assert.Equal(t, relay.Done, srv.State())
	sender.Close()
}

func TestPairingTimeout(t *testing.T) {
	srv, addr, errC := startRelay(t, relay.Config{PairingTimeout: 200 * time.Millisecond})

	sender := dialSender(t, srv, addr)
	defer sender.Close()

	err := <-errC
	require.ErrorIs(t, err, relay.ErrPairingTimeout)
	assert.Equal(t, relay.Failed, srv.State())

	// The lone sender is hung up on, not left dangling.
	sender.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err = sender.Read(make([]byte, 1))
	assert.Error(t, err)
}

func TestThirdConnectionRefused(t *testing.T) {
	srv, addr, errC := startRelay(t, relay.Config{PairingTimeout: 5 * time.Second})

	sender := dialSender(t, srv, addr)
	receiver, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer receiver.Close()

	require.Eventually(t, func() bool {
		return srv.State() == relay.Streaming
	}, 5*time.Second, time.Millisecond)

	// The listening socket is gone as soon as both roles are filled.
	third, err := net.DialTimeout("tcp", addr, time.Second)
	if err == nil {
		third.Close()
		t.Fatal("third connection was accepted while a transfer is in progress")
	}

	// The in-progress transfer is unaffected.
	payload := []byte("still flowing")
	go func() {
		defer sender.Close()
		sender.Write(payload)
		sender.CloseWrite()
	}()
	got, err := io.ReadAll(receiver)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	require.NoError(t, <-errC)
}

func TestSenderAbortPropagates(t *testing.T) {
	const k = 1000
	payload := make([]byte, k)
	rng := rand.New(rand.NewSource(13))
	_, err := rng.Read(payload)
	require.NoError(t, err)

	srv, addr, errC := startRelay(t, relay.Config{PairingTimeout: 5 * time.Second})
	sender := dialSender(t, srv, addr)
	receiver, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer receiver.Close()

	_, err = sender.Write(payload)
	require.NoError(t, err)

	// Make sure all k bytes actually made it through the relay first.
	got := make([]byte, k)
	receiver.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err = io.ReadFull(receiver, got)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// Forcibly reset the sender connection mid-stream.
	require.NoError(t, sender.SetLinger(0))
	require.NoError(t, sender.Close())

	// The receiver observes a close after exactly k bytes: no padding, no hang.
	rest, _ := io.ReadAll(receiver)
	assert.Empty(t, rest)

	require.ErrorIs(t, <-errC, relay.ErrStreamIO)
	assert.Equal(t, relay.Failed, srv.State())
}

func TestReceiverAbortFailsSession(t *testing.T) {
	srv, addr, errC := startRelay(t, relay.Config{PairingTimeout: 5 * time.Second})
	sender := dialSender(t, srv, addr)
	defer sender.Close()
	receiver, err := net.Dial("tcp", addr)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return srv.State() == relay.Streaming
	}, 5*time.Second, time.Millisecond)
	require.NoError(t, receiver.Close())

	// The relay notices the receiver is gone even though the sender is idle,
	// and hangs up on the sender as well.
	require.ErrorIs(t, <-errC, relay.ErrStreamIO)
	assert.Equal(t, relay.Failed, srv.State())

	sender.SetWriteDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, err := sender.Write(make([]byte, 32*1024)); err != nil {
			break
		}
	}
}

func TestBindError(t *testing.T) {
	first := relay.New(relay.Config{BindAddress: "127.0.0.1"}, zap.NewNop())
	require.NoError(t, first.Listen())
	defer first.Close()

	second := relay.New(relay.Config{BindAddress: "127.0.0.1", Port: first.Port()}, zap.NewNop())
	err := second.Listen()
	require.ErrorIs(t, err, relay.ErrBind)
}

func TestCancelWhileWaitingForSender(t *testing.T) {
	srv := relay.New(relay.Config{BindAddress: "127.0.0.1"}, zap.NewNop())
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	errC := make(chan error, 1)
	go func() {
		errC <- srv.Run(ctx)
	}()
	cancel()

	require.ErrorIs(t, <-errC, context.Canceled)
	assert.Equal(t, relay.Failed, srv.State())
}
