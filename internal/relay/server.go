package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Server owns the listening socket and the two peer sockets for the lifetime
// of one relay session. It serves at most one transfer and is not reusable.
type Server struct {
	config    Config
	logger    *zap.Logger
	listener  net.Listener
	closeOnce sync.Once

	mu    sync.Mutex
	state State
}

func New(config Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		config: config.withDefaults(),
		logger: logger,
	}
}

// State returns the current lifecycle state of the session.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Server) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.logger.Debug("session state changed", zap.Stringer("state", state))
}

// Listen binds the relay port. A port of 0 binds an ephemeral port, which
// Port reports once bound.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.config.BindAddress, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %s", ErrBind, addr, err)
	}
	s.listener = listener
	return nil
}

// Port returns the bound port.
func (s *Server) Port() int {
	if s.listener == nil {
		return s.config.Port
	}
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Close releases the listening socket. Safe to call more than once.
func (s *Server) Close() {
	s.closeListener()
}

// closeListener closes the listening socket. Safe to call more than once.
func (s *Server) closeListener() {
	s.closeOnce.Do(func() {
		if s.listener != nil {
			_ = s.listener.Close()
		}
	})
}

// Run performs the one-shot relay session: pair a sender and a receiver, copy
// the byte stream between them, and return. The first accepted connection is
// the sender, the second the receiver; the wait for the second is bounded by
// the pairing timeout. Run returns nil only when the full sender stream was
// delivered and the session reached Done.
func (s *Server) Run(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			s.setState(Failed)
			return err
		}
	}
	defer s.closeListener()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.closeListener()
		case <-done:
		}
	}()

	s.logger.Info("relay listening",
		zap.String("address", s.listener.Addr().String()),
		zap.Duration("pairing_timeout", s.config.PairingTimeout))

	sender, err := s.listener.Accept()
	if err != nil {
		s.setState(Failed)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("accepting sender: %w", err)
	}
	defer sender.Close()
	s.setState(WaitingForReceiver)
	s.logger.Info("sender connected", zap.String("remote_address", sender.RemoteAddr().String()))

	// The wait for the second role is bounded; the first was not.
	if tl, ok := s.listener.(*net.TCPListener); ok {
		_ = tl.SetDeadline(time.Now().Add(s.config.PairingTimeout))
	}
	receiver, err := s.listener.Accept()
	if err != nil {
		s.setState(Failed)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			s.logger.Warn("no receiver arrived in time",
				zap.Duration("pairing_timeout", s.config.PairingTimeout))
			return fmt.Errorf("%w (%s)", ErrPairingTimeout, s.config.PairingTimeout)
		}
		return fmt.Errorf("accepting receiver: %w", err)
	}
	defer receiver.Close()
	s.logger.Info("receiver connected", zap.String("remote_address", receiver.RemoteAddr().String()))

	// Both roles are filled. Stop listening before streaming starts so a
	// third connection cannot even reach the accept queue.
	s.closeListener()
	s.logger.Info("listener closed, further connections are refused")
	s.setState(Streaming)

	start := time.Now()
	n, err := s.stream(sender, receiver)
	if err != nil {
		s.setState(Failed)
		s.logger.Error("transfer failed", zap.Int64("bytes_relayed", n), zap.Error(err))
		return err
	}
	s.setState(Done)
	s.logger.Info("transfer complete",
		zap.Int64("bytes_relayed", n),
		zap.Duration("duration", time.Since(start)))
	return nil
}
