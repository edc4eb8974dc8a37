package password_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Gideon-Phiri/secure-auth-service/internal/password"
)

// fastParams keeps argon2 cheap in tests without changing the encoded format.
var fastParams = password.Params{
	Time:    1,
	Memory:  8 * 1024,
	Threads: 1,
	KeyLen:  32,
	SaltLen: 16,
}

func TestHashAndVerify(t *testing.T) {
	hasher := password.NewHasher(fastParams)

	hash, err := hasher.Hash("Sup3r$ecret")
	require.NoError(t, err)
	require.Contains(t, hash, "$argon2id$")

	ok, err := hasher.Verify("Sup3r$ecret", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = hasher.Verify("wrong-password", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashesAreSalted(t *testing.T) {
	hasher := password.NewHasher(fastParams)

	first, err := hasher.Hash("Sup3r$ecret")
	require.NoError(t, err)
	second, err := hasher.Hash("Sup3r$ecret")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestVerifyUsesParamsFromHash(t *testing.T) {
	old := password.NewHasher(fastParams)
	hash, err := old.Hash("Sup3r$ecret")
	require.NoError(t, err)

	// A hasher configured with different costs must still verify hashes
	// produced under the old parameters.
	current := password.NewHasher(password.Params{
		Time: 2, Memory: 16 * 1024, Threads: 2, KeyLen: 32, SaltLen: 16,
	})
	ok, err := current.Verify("Sup3r$ecret", hash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	hasher := password.NewHasher(fastParams)

	for _, hash := range []string{
		"",
		"not-a-hash",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA",
	} {
		_, err := hasher.Verify("anything", hash)
		require.Error(t, err, "hash %q", hash)
	}
}

func TestPolicyValidate(t *testing.T) {
	policy := password.DefaultPolicy

	cases := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"valid", "Abcdef1!", ""},
		{"too short", "Ab1!", "Password must be at least 8 characters long"},
		{"no uppercase", "abcdef1!", "Password must contain at least one uppercase letter"},
		{"no lowercase", "ABCDEF1!", "Password must contain at least one lowercase letter"},
		{"no digit", "Abcdefg!", "Password must contain at least one digit"},
		{"no special", "Abcdefg1", "Password must contain at least one special character"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := policy.Validate(tc.password)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tc.wantErr)
		})
	}
}
