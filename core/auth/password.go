package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Hashes are self-describing, so these can change
// without invalidating stored credentials.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonSaltLen = 16
	argonKeyLen  = 32

	maxPasswordLen = 128
)

var ErrInvalidHash = errors.New("malformed password hash")

// HashPassword produces a PHC-encoded Argon2id hash. The pepper is mixed
// into the password before hashing and never stored.
func HashPassword(password, pepper string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	if len(password) > maxPasswordLen {
		return "", fmt.Errorf("password exceeds %d characters", maxPasswordLen)
	}
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password+pepper), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// VerifyPassword checks a plaintext password against a stored hash.
// Bare hex strings are treated as legacy SHA-256 digests from accounts
// created before the Argon2 rollout.
func VerifyPassword(password, encoded, pepper string) bool {
	encoded = strings.TrimSpace(encoded)
	if password == "" || encoded == "" || len(password) > maxPasswordLen {
		return false
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		return verifyLegacySHA256(password, encoded)
	}
	salt, want, params, err := decodeHash(encoded)
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(password+pepper), salt, params.time, params.memory, params.threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
}

func decodeHash(encoded string) ([]byte, []byte, argonParams, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, nil, argonParams{}, ErrInvalidHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, argonParams{}, ErrInvalidHash
	}
	if version != argon2.Version {
		return nil, nil, argonParams{}, ErrInvalidHash
	}
	var p argonParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return nil, nil, argonParams{}, ErrInvalidHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, argonParams{}, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, argonParams{}, ErrInvalidHash
	}
	return salt, key, p, nil
}

func verifyLegacySHA256(password, storedHex string) bool {
	digest := sha256.Sum256([]byte(password))
	return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(digest[:])), []byte(strings.ToLower(storedHex))) == 1
}

// NeedsRehash reports whether a stored hash predates the Argon2 rollout
// and should be upgraded on next successful login.
func NeedsRehash(encoded string) bool {
	return !strings.HasPrefix(strings.TrimSpace(encoded), "$argon2id$")
}
