package password

import (
	crypto_rand "crypto/rand"
	"encoding/binary"
	"fmt"
	math_rand "math/rand"
	"regexp"
)

// Length is the number of characters in a generated password.
const Length = 10

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generate generates a random alphanumeric password.
func Generate() (string, error) {
	rng, err := random()
	if err != nil {
		return "", fmt.Errorf("creating rng: %w", err)
	}

	b := make([]byte, Length)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b), nil
}

func IsValid(passStr string) bool {
	re := regexp.MustCompile(`^[A-Za-z0-9]+$`)
	return len(passStr) > 0 && re.MatchString(passStr)
}

func random() (*math_rand.Rand, error) {
	var b [8]byte
	_, err := crypto_rand.Read(b[:])
	if err != nil {
		return nil, err
	}
	return math_rand.New(math_rand.NewSource(int64(binary.LittleEndian.Uint64(b[:])))), nil
}
