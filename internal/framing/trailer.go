// Package framing implements the byte-level framings the chute clients put on
// the wire. The relay never touches any of this: framing is produced by the
// sending peer and consumed by the receiving peer.
package framing

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"hash"
	"io"
)

// TrailerSize is the length of the checksum digest appended after the payload
// in the integrity framings.
const TrailerSize = sha256.Size

var (
	// ErrTrailerMissing indicates the stream ended before a full digest arrived.
	ErrTrailerMissing = errors.New("stream shorter than checksum trailer")
	// ErrChecksumMismatch indicates the received digest does not match the payload.
	ErrChecksumMismatch = errors.New("checksum trailer does not match received payload")
)

// TrailerWriter tees written bytes into a sha256 digest and appends the digest
// to the underlying writer on Close.
type TrailerWriter struct {
	w      io.Writer
	h      hash.Hash
	closed bool
}

func NewTrailerWriter(w io.Writer) *TrailerWriter {
	return &TrailerWriter{w: w, h: sha256.New()}
}

func (t *TrailerWriter) Write(p []byte) (int, error) {
	t.h.Write(p)
	return t.w.Write(p)
}

// Close writes the digest trailer. It does not close the underlying writer.
func (t *TrailerWriter) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	_, err := t.w.Write(t.h.Sum(nil))
	return err
}

// TrailerReader reads a payload-plus-trailer stream, withholding the final
// TrailerSize bytes from the payload it exposes. After the payload has been
// drained to io.EOF, Verify reports whether the withheld digest matches.
type TrailerReader struct {
	r       io.Reader
	h       hash.Hash
	pending []byte
	digest  []byte
	scratch []byte
	eof     bool
	err     error
}

func NewTrailerReader(r io.Reader) *TrailerReader {
	return &TrailerReader{
		r:       r,
		h:       sha256.New(),
		scratch: make([]byte, 32*1024),
	}
}

func (t *TrailerReader) Read(p []byte) (int, error) {
	for {
		// Everything beyond a potential trailer is payload and can be released.
		release := len(t.pending) - TrailerSize
		if t.eof {
			release = len(t.pending)
		}
		if release > 0 {
			if release > len(p) {
				release = len(p)
			}
			n := copy(p, t.pending[:release])
			t.h.Write(p[:n])
			t.pending = append(t.pending[:0], t.pending[n:]...)
			return n, nil
		}
		if t.eof {
			return 0, io.EOF
		}
		if t.err != nil {
			return 0, t.err
		}

		n, err := t.r.Read(t.scratch)
		t.pending = append(t.pending, t.scratch[:n]...)
		switch {
		case errors.Is(err, io.EOF):
			if len(t.pending) < TrailerSize {
				t.err = ErrTrailerMissing
				return 0, t.err
			}
			cut := len(t.pending) - TrailerSize
			t.digest = append([]byte(nil), t.pending[cut:]...)
			t.pending = t.pending[:cut]
			t.eof = true
		case err != nil:
			t.err = err
		}
	}
}

// Verify compares the withheld trailer against the digest of the released
// payload. The stream must have been drained to io.EOF first.
func (t *TrailerReader) Verify() error {
	if !t.eof || len(t.pending) > 0 {
		return errors.New("payload not fully drained")
	}
	if subtle.ConstantTimeCompare(t.digest, t.h.Sum(nil)) != 1 {
		return ErrChecksumMismatch
	}
	return nil
}
