package security

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// PasscodeAlphabet omits characters that are easy to confuse when read aloud at the shrine.
const PasscodeAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

var (
	errNegativeLength = errors.New("length must be non-negative")
	errEmptyAlphabet  = errors.New("alphabet must not be empty")
)

// RandomString returns a cryptographically secure, unbiased string of the requested length.
func RandomString(length int, alphabet string) (string, error) {
	if length < 0 {
		return "", errNegativeLength
	}
	if length == 0 {
		return "", nil
	}
	if len(alphabet) == 0 {
		return "", errEmptyAlphabet
	}

	value := make([]byte, length)
	for index := range value {
		position, err := randomIndex(len(alphabet))
		if err != nil {
			return "", err
		}
		value[index] = alphabet[position]
	}

	return string(value), nil
}

func randomIndex(n int) (int, error) {
	position, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(position.Int64()), nil
}

// CryptoRand draws indexes from crypto/rand. It satisfies fortune.Rand.
type CryptoRand struct{}

// Intn panics when n <= 0 or the system entropy source fails, like math/rand.
func (CryptoRand) Intn(n int) int {
	if n <= 0 {
		panic("security: invalid argument to Intn")
	}
	position, err := randomIndex(n)
	if err != nil {
		panic(err)
	}
	return position
}
