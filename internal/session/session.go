// Package session holds the descriptor for a single relay run.
package session

import (
	"fmt"
	"net"
	"strconv"

	"github.com/bytechute/chute/internal/mode"
	"github.com/bytechute/chute/internal/password"
)

const (
	DefaultPort     = 9000
	DefaultFilename = "file"
)

// Session is the descriptor created once at startup. It is immutable for the
// lifetime of the process: once announced, none of its values change.
type Session struct {
	host     string
	port     int
	filename string
	password string
}

// Announcement is the read-only view of the session handed to the display
// layer before the relay starts accepting connections.
type Announcement struct {
	Host     string
	Port     int
	Filename string
	Password string
	Modes    []mode.Descriptor
}

// New constructs a session descriptor. The filename and port fall back to
// their defaults when zero, and a random password is generated when none is
// supplied.
func New(host string, port int, filename, pass string) (Session, error) {
	if host == "" {
		return Session{}, fmt.Errorf("session requires a public host")
	}
	if port == 0 {
		port = DefaultPort
	}
	if filename == "" {
		filename = DefaultFilename
	}
	if pass == "" {
		generated, err := password.Generate()
		if err != nil {
			return Session{}, fmt.Errorf("generating password: %w", err)
		}
		pass = generated
	}
	return Session{
		host:     host,
		port:     port,
		filename: filename,
		password: pass,
	}, nil
}

func (s Session) Host() string     { return s.host }
func (s Session) Port() int        { return s.port }
func (s Session) Filename() string { return s.filename }
func (s Session) Password() string { return s.password }

// Addr returns the host:port pair clients are told to connect to.
func (s Session) Addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

// Announcement returns the session parameters for the display layer.
func (s Session) Announcement() Announcement {
	return Announcement{
		Host:     s.host,
		Port:     s.port,
		Filename: s.filename,
		Password: s.password,
		Modes:    mode.All(),
	}
}
