// Package cryptox holds the low-level cryptographic primitives used by the
// server: Argon2id password digests in PHC string form, random byte
// generation and SHA-256 fingerprints.
package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2idID = "argon2id"

// Upper bounds applied when decoding a stored hash, so a corrupted row cannot
// make verification allocate unbounded memory.
const (
	maxMemoryKiB   = 1024 * 1024
	maxTime        = 64
	maxParallelism = 64
)

// ErrMalformedHash is returned when an encoded hash cannot be parsed.
var ErrMalformedHash = errors.New("malformed argon2id hash")

// Argon2idParams are the work parameters of an Argon2id digest.
// Memory is expressed in KiB.
type Argon2idParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2idParams follow the OWASP baseline for Argon2id
// (19 MiB, 2 iterations, 1 lane) with a 128-bit salt and 256-bit key.
var DefaultArgon2idParams = Argon2idParams{
	Memory:      19 * 1024,
	Time:        2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

var b64 = base64.RawStdEncoding

// HashArgon2id derives an Argon2id key for password using a fresh random salt
// and returns it encoded as
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<parallelism>$<salt>$<key>
//
// Salt and key are unpadded standard base64. The string carries everything
// VerifyArgon2id needs.
func HashArgon2id(password []byte, p Argon2idParams) (string, error) {
	salt, err := RandomBytes(int(p.SaltLength))
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey(password, salt, p.Time, p.Memory, p.Parallelism, p.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2idID,
		argon2.Version,
		p.Memory,
		p.Time,
		p.Parallelism,
		b64.EncodeToString(salt),
		b64.EncodeToString(key),
	), nil
}

// VerifyArgon2id recomputes the digest of password with the salt and
// parameters embedded in encoded and compares the result in constant time.
// It returns ErrMalformedHash if encoded cannot be decoded.
func VerifyArgon2id(password []byte, encoded string) (bool, error) {
	p, salt, key, err := decodeArgon2id(encoded)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey(password, salt, p.Time, p.Memory, p.Parallelism, uint32(len(key)))

	return subtle.ConstantTimeCompare(candidate, key) == 1, nil
}

func decodeArgon2id(encoded string) (Argon2idParams, []byte, []byte, error) {
	var p Argon2idParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != argon2idID {
		return p, nil, nil, ErrMalformedHash
	}

	version, ok := parseParam(parts[2], "v", 32)
	if !ok || version != argon2.Version {
		return p, nil, nil, ErrMalformedHash
	}

	fields := strings.Split(parts[3], ",")
	if len(fields) != 3 {
		return p, nil, nil, ErrMalformedHash
	}
	m, okM := parseParam(fields[0], "m", 32)
	t, okT := parseParam(fields[1], "t", 32)
	l, okL := parseParam(fields[2], "p", 8)
	if !okM || !okT || !okL {
		return p, nil, nil, ErrMalformedHash
	}
	p.Memory, p.Time, p.Parallelism = uint32(m), uint32(t), uint8(l)

	if p.Memory == 0 || p.Memory > maxMemoryKiB ||
		p.Time == 0 || p.Time > maxTime ||
		p.Parallelism == 0 || p.Parallelism > maxParallelism {
		return p, nil, nil, ErrMalformedHash
	}

	salt, err := b64.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, ErrMalformedHash
	}

	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrMalformedHash
	}

	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))

	return p, salt, key, nil
}

// parseParam reads a "key=value" segment holding a canonical decimal: no
// sign, no leading zeros, nothing after the digits.
func parseParam(field, key string, bitSize int) (uint64, bool) {
	v, ok := strings.CutPrefix(field, key+"=")
	if !ok || v == "" || (len(v) > 1 && v[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, bitSize)
	return n, err == nil
}
