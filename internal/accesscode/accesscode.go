// Package accesscode generates the short codes students type to reach an exam.
package accesscode

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// Alphabet is the set of characters a code is drawn from.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// Length is the number of characters in a code.
	Length = 6
)

// Generator returns a candidate access code. Uniqueness is enforced by the store.
type Generator func() (string, error)

// Random draws Length characters uniformly from Alphabet.
func Random() (string, error) {
	return randomFrom(Alphabet, Length)
}

// FromAlphabet returns a generator over a custom alphabet and length.
func FromAlphabet(alphabet string, length int) Generator {
	return func() (string, error) {
		return randomFrom(alphabet, length)
	}
}

func randomFrom(alphabet string, length int) (string, error) {
	if alphabet == "" || length <= 0 {
		return "", fmt.Errorf("invalid code shape: alphabet %q, length %d", alphabet, length)
	}
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b), nil
}
