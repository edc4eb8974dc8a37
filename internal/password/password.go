package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Params tune the argon2id cost. The zero value is not usable; use
// DefaultParams unless benchmarking says otherwise.
type Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

// DefaultParams follow the argon2id recommendations for interactive logins.
var DefaultParams = Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 2,
	KeyLen:  32,
	SaltLen: 16,
}

var errInvalidHash = errors.New("invalid password hash")

// Hasher produces and verifies argon2id password hashes.
type Hasher struct {
	params Params
}

// NewHasher creates a Hasher with the given cost parameters.
func NewHasher(params Params) *Hasher {
	if params.Time == 0 {
		params = DefaultParams
	}
	return &Hasher{params: params}
}

// Hash returns an encoded argon2id hash string including parameters and salt.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	sum := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Verify checks a password against an encoded argon2id hash in constant time.
// Cost parameters come from the hash itself so old hashes keep verifying
// after DefaultParams change.
func (h *Hasher) Verify(password, hash string) (bool, error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, errInvalidHash
	}

	version, err := parsePrefixedInt(parts[2], "v=")
	if err != nil || int(version) != argon2.Version {
		return false, errInvalidHash
	}

	costs := strings.Split(parts[3], ",")
	if len(costs) != 3 {
		return false, errInvalidHash
	}
	mem, memErr := parsePrefixedInt(costs[0], "m=")
	timeCost, timeErr := parsePrefixedInt(costs[1], "t=")
	threads, threadErr := parsePrefixedInt(costs[2], "p=")
	if memErr != nil || timeErr != nil || threadErr != nil || threads > 255 {
		return false, errInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, errInvalidHash
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, errInvalidHash
	}

	actual := argon2.IDKey([]byte(password), salt, uint32(timeCost), uint32(mem), uint8(threads), uint32(len(expected)))
	return subtle.ConstantTimeCompare(actual, expected) == 1, nil
}

func parsePrefixedInt(value, prefix string) (uint64, error) {
	if !strings.HasPrefix(value, prefix) {
		return 0, errInvalidHash
	}
	return strconv.ParseUint(strings.TrimPrefix(value, prefix), 10, 32)
}
