// Package mode defines the transfer modes a chute session advertises.
//
// Modes only describe what the two peers agree to put on the wire. The relay
// itself forwards bytes untouched no matter which mode the session uses.
package mode

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

type Mode int

const (
	// Plain is a raw byte passthrough with no framing.
	Plain Mode = iota
	// Integrity appends a fixed-length checksum digest after the payload.
	Integrity
	// EncryptedIntegrity enciphers the payload under a password-derived key
	// and appends a checksum digest over the transmitted bytes.
	EncryptedIntegrity
)

// Descriptor describes a mode to the announcement layer.
type Descriptor struct {
	Mode    Mode
	Name    string
	Summary string

	// Trailer is set when the sender appends a checksum digest after the payload.
	Trailer bool
	// Enciphered is set when the transmitted payload is cipher output.
	Enciphered bool
}

var descriptors = []Descriptor{
	{
		Mode:    Plain,
		Name:    "plain",
		Summary: "raw bytes, no checksum, no encryption",
	},
	{
		Mode:    Integrity,
		Name:    "sha256",
		Summary: "raw bytes followed by a sha256 digest the receiver verifies",
		Trailer: true,
	},
	{
		Mode:       EncryptedIntegrity,
		Name:       "encrypted",
		Summary:    "aes-256-cbc ciphertext followed by a sha256 digest the receiver verifies",
		Trailer:    true,
		Enciphered: true,
	},
}

// All returns the descriptors for every advertised mode, in announcement order.
func All() []Descriptor {
	all := make([]Descriptor, len(descriptors))
	copy(all, descriptors)
	return all
}

// Names returns the CLI names of every mode.
func Names() []string {
	names := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		names = append(names, d.Name)
	}
	return names
}

func (m Mode) String() string {
	for _, d := range descriptors {
		if d.Mode == m {
			return d.Name
		}
	}
	return "unknown"
}

// Describe returns the descriptor for the given mode.
func (m Mode) Describe() Descriptor {
	for _, d := range descriptors {
		if d.Mode == m {
			return d
		}
	}
	return Descriptor{Mode: m, Name: "unknown"}
}

// Parse maps a CLI name to its mode.
func Parse(s string) (Mode, error) {
	if !slices.Contains(Names(), s) {
		return 0, fmt.Errorf("unknown mode %q, valid modes: %s", s, strings.Join(Names(), "|"))
	}
	for _, d := range descriptors {
		if d.Name == s {
			return d.Mode, nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}
