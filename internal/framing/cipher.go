package framing

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// The encrypted framing is byte-compatible with
//
//	openssl enc -aes-256-cbc -pbkdf2 -salt -pass pass:<password>
//
// so a peer with nothing but bash and openssl can talk to a chute client:
// a "Salted__" magic, 8 bytes of random salt, then CBC blocks with PKCS#7
// padding. Key and IV come from a single PBKDF2-SHA256 derivation.
const (
	saltMagic     = "Salted__"
	saltSize      = 8
	kdfIterations = 10_000
	keySize       = 32
)

var (
	// ErrCiphertext indicates a stream that is not valid cipher output.
	ErrCiphertext = errors.New("malformed ciphertext stream")
	// ErrDecrypt indicates a padding failure: corrupted data or a wrong password.
	ErrDecrypt = errors.New("decryption failed, wrong password or corrupted data")
)

func deriveKeyIV(password string, salt []byte) (key, iv []byte) {
	k := pbkdf2.Key([]byte(password), salt, kdfIterations, keySize+aes.BlockSize, sha256.New)
	return k[:keySize], k[keySize:]
}

// Encrypter enciphers written bytes under a password-derived key. The final
// padded block is only written on Close. It does not close the underlying
// writer.
type Encrypter struct {
	w      io.Writer
	mode   cipher.BlockMode
	carry  []byte
	closed bool
}

func NewEncrypter(w io.Writer, password string) (*Encrypter, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return newEncrypterWithSalt(w, password, salt)
}

func newEncrypterWithSalt(w io.Writer, password string, salt []byte) (*Encrypter, error) {
	key, iv := deriveKeyIV(password, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	header := append([]byte(saltMagic), salt...)
	if _, err := w.Write(header); err != nil {
		return nil, fmt.Errorf("writing salt header: %w", err)
	}
	return &Encrypter{
		w:    w,
		mode: cipher.NewCBCEncrypter(block, iv),
	}, nil
}

func (e *Encrypter) Write(p []byte) (int, error) {
	if e.closed {
		return 0, errors.New("write on closed encrypter")
	}
	e.carry = append(e.carry, p...)
	full := len(e.carry) &^ (aes.BlockSize - 1)
	if full == 0 {
		return len(p), nil
	}
	e.mode.CryptBlocks(e.carry[:full], e.carry[:full])
	if _, err := e.w.Write(e.carry[:full]); err != nil {
		return 0, err
	}
	e.carry = append(e.carry[:0], e.carry[full:]...)
	return len(p), nil
}

// Close pads and writes the final block.
func (e *Encrypter) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	pad := aes.BlockSize - len(e.carry)%aes.BlockSize
	for i := 0; i < pad; i++ {
		e.carry = append(e.carry, byte(pad))
	}
	e.mode.CryptBlocks(e.carry, e.carry)
	_, err := e.w.Write(e.carry)
	return err
}

// Decrypter deciphers a password-encrypted stream. The final block carries the
// padding and can only be resolved once the underlying reader hits EOF, so one
// block is always held back until then.
type Decrypter struct {
	r        io.Reader
	password string
	mode     cipher.BlockMode
	raw      []byte
	out      []byte
	scratch  []byte
	inited   bool
	eof      bool
	err      error
}

func NewDecrypter(r io.Reader, password string) *Decrypter {
	return &Decrypter{
		r:        r,
		password: password,
		scratch:  make([]byte, 32*1024),
	}
}

func (d *Decrypter) init() error {
	header := make([]byte, len(saltMagic)+saltSize)
	if _, err := io.ReadFull(d.r, header); err != nil {
		return fmt.Errorf("%w: missing salt header", ErrCiphertext)
	}
	if string(header[:len(saltMagic)]) != saltMagic {
		return fmt.Errorf("%w: bad salt header magic", ErrCiphertext)
	}
	key, iv := deriveKeyIV(d.password, header[len(saltMagic):])
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	d.mode = cipher.NewCBCDecrypter(block, iv)
	return nil
}

func (d *Decrypter) Read(p []byte) (int, error) {
	if !d.inited {
		if err := d.init(); err != nil {
			d.err = err
			return 0, err
		}
		d.inited = true
	}
	for {
		if len(d.out) > 0 {
			n := copy(p, d.out)
			d.out = d.out[n:]
			return n, nil
		}
		if d.eof {
			return 0, io.EOF
		}
		if d.err != nil {
			return 0, d.err
		}

		n, err := d.r.Read(d.scratch)
		d.raw = append(d.raw, d.scratch[:n]...)
		switch {
		case errors.Is(err, io.EOF):
			if len(d.raw) == 0 || len(d.raw)%aes.BlockSize != 0 {
				d.err = fmt.Errorf("%w: ciphertext not block-aligned", ErrCiphertext)
				continue
			}
			d.mode.CryptBlocks(d.raw, d.raw)
			plain, uerr := unpad(d.raw)
			if uerr != nil {
				d.err = uerr
				continue
			}
			d.out = plain
			d.raw = nil
			d.eof = true
		case err != nil:
			d.err = err
		default:
			// Decrypt all full blocks except the last one, which may be the
			// padded final block.
			usable := len(d.raw)&^(aes.BlockSize-1) - aes.BlockSize
			if usable > 0 {
				d.mode.CryptBlocks(d.raw[:usable], d.raw[:usable])
				d.out = append([]byte(nil), d.raw[:usable]...)
				d.raw = append(d.raw[:0], d.raw[usable:]...)
			}
		}
	}
}

func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 || len(b)%aes.BlockSize != 0 {
		return nil, ErrDecrypt
	}
	pad := int(b[len(b)-1])
	if pad < 1 || pad > aes.BlockSize || pad > len(b) {
		return nil, ErrDecrypt
	}
	for _, c := range b[len(b)-pad:] {
		if int(c) != pad {
			return nil, ErrDecrypt
		}
	}
	return b[:len(b)-pad], nil
}
