package otpcode

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

const (
	digits       = "0123456789"
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// DefaultLength is the code length used when none is configured.
	DefaultLength = 6
)

// Alphabet names accepted by New.
const (
	AlphabetNumeric      = "numeric"
	AlphabetAlphanumeric = "alphanumeric"
)

// ErrInvalidLength is returned for a non-positive length.
var ErrInvalidLength = errors.New("otpcode: length must be positive")

// Generator produces a single code per call.
type Generator interface {
	Generate() (string, error)
}

// Code generates fixed-length codes from one alphabet.
type Code struct {
	alphabet string
	length   int
}

// NewNumeric returns a digits-only generator.
func NewNumeric(length int) *Code {
	return &Code{alphabet: digits, length: length}
}

// NewAlphanumeric returns an A-Z0-9 generator.
func NewAlphanumeric(length int) *Code {
	return &Code{alphabet: alphanumeric, length: length}
}

// New picks the generator by alphabet name. A length of zero means
// DefaultLength and an unknown alphabet means numeric.
func New(alphabet string, length int) *Code {
	if length == 0 {
		length = DefaultLength
	}
	if strings.EqualFold(alphabet, AlphabetAlphanumeric) {
		return NewAlphanumeric(length)
	}

	return NewNumeric(length)
}

// Generate returns the next code.
func (c *Code) Generate() (string, error) {
	return pick(c.alphabet, c.length)
}

// Numeric returns a uniform random digit string of the given length.
func Numeric(length int) (string, error) {
	return pick(digits, length)
}

// Alphanumeric returns a uniform random A-Z0-9 string of the given length.
func Alphanumeric(length int) (string, error) {
	return pick(alphanumeric, length)
}

func pick(alphabet string, n int) (string, error) {
	if n <= 0 {
		return "", ErrInvalidLength
	}

	var sb strings.Builder
	sb.Grow(n)

	max := big.NewInt(int64(len(alphabet)))
	for range n {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(alphabet[idx.Int64()])
	}

	return sb.String(), nil
}
