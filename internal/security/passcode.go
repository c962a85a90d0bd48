package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyPasscode = errors.New("passcode must not be empty")

const fingerprintLabel = "shrine.session-gate.v1"

// Fingerprint derives a short stable tag for a passcode. Sessions carry it so
// that rotating the passcode invalidates every session issued under the old one.
func Fingerprint(passcode string) string {
	mac := hmac.New(sha256.New, []byte(fingerprintLabel))
	mac.Write([]byte(passcode))
	return hex.EncodeToString(mac.Sum(nil))[:16]
}

// PasscodeHash keeps only the bcrypt digest of a secret passcode in memory.
type PasscodeHash struct {
	digest      []byte
	fingerprint string
}

func NewPasscodeHash(passcode string) (PasscodeHash, error) {
	if strings.TrimSpace(passcode) == "" {
		return PasscodeHash{}, ErrEmptyPasscode
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return PasscodeHash{}, err
	}
	return PasscodeHash{digest: digest, fingerprint: Fingerprint(passcode)}, nil
}

func (hash PasscodeHash) Matches(candidate string) bool {
	if len(hash.digest) == 0 || candidate == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash.digest, []byte(candidate)) == nil
}

func (hash PasscodeHash) Fingerprint() string {
	return hash.fingerprint
}
