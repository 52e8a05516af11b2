package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dstepanov2008/shopauth/internal/common"
	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. The salt and all parameters are embedded in the
// encoded output, so stored hashes remain verifiable if these change.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16

	// maxHashMemory caps the m parameter accepted from stored hashes
	// (KiB); anything above 4 GiB is corrupt data, not a tuning choice.
	maxHashMemory = 4 * 1024 * 1024
)

// HashPassword derives an argon2id hash with a fresh random salt and returns
// it in PHC string format: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>.
func HashPassword(password string) (string, error) {
	salt := common.GenerateRandByteArray(argonSaltLen)
	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// VerifyPassword re-derives the key with the parameters and salt stored in
// encoded and compares in constant time. A false result means the password
// does not match; a non-nil error means the stored hash is corrupt
// (common.ErrMalformedHash) and must be treated as a data-integrity fault,
// not as an authentication failure.
func VerifyPassword(password, encoded string) (bool, error) {
	params, salt, key, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
}

func decodeHash(encoded string) (argonParams, []byte, []byte, error) {
	var p argonParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, fmt.Errorf("%w: unexpected format", common.ErrMalformedHash)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("%w: bad version field", common.ErrMalformedHash)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: unsupported argon2 version %d", common.ErrMalformedHash, version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return p, nil, nil, fmt.Errorf("%w: bad parameter field", common.ErrMalformedHash)
	}
	// argon2.IDKey panics on zero rounds/threads, and memory must cover
	// 8 KiB per thread; a stored hash violating that is corrupt, not slow.
	if p.time < 1 || p.threads < 1 || p.memory < 8*uint32(p.threads) || p.memory > maxHashMemory {
		return p, nil, nil, fmt.Errorf("%w: implausible parameters", common.ErrMalformedHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: bad salt encoding", common.ErrMalformedHash)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: bad key encoding", common.ErrMalformedHash)
	}
	if len(key) == 0 {
		return p, nil, nil, fmt.Errorf("%w: empty key", common.ErrMalformedHash)
	}

	return p, salt, key, nil
}
