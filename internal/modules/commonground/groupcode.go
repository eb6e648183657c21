package commonground

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"strings"
)

const (
	GroupCodeLength = 8
	// Crockford base32: no I, L, O or U.
	groupCodeAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
)

// NewGroupCode returns a random join code (40 bits of entropy).
func NewGroupCode() (string, error) {
	return newGroupCodeFrom(rand.Reader)
}

func newGroupCodeFrom(r io.Reader) (string, error) {
	buf := make([]byte, GroupCodeLength)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("group code: %w", err)
	}
	out := make([]byte, GroupCodeLength)
	for i, b := range buf {
		out[i] = groupCodeAlphabet[b&31]
	}
	return string(out), nil
}

// NormalizeGroupCode upper-cases, strips separators and folds the Crockford
// look-alikes (I, L -> 1; O -> 0).
func NormalizeGroupCode(raw string) string {
	var sb strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(raw)) {
		switch r {
		case '-', ' ':
			continue
		case 'I', 'L':
			r = '1'
		case 'O':
			r = '0'
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// GroupCodeMatches compares codes in constant time after normalization.
func GroupCodeMatches(stored, presented string) bool {
	s := NormalizeGroupCode(stored)
	p := NormalizeGroupCode(presented)
	if s == "" || p == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s), []byte(p)) == 1
}
