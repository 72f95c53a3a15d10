package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	apperrors "whitelist-bot/internal/common/errors"
)

var base58Runes = []rune(Base58Alphabet)

func TestBase58AlphabetShape(t *testing.T) {
	require.Len(t, Base58Alphabet, 58)
	for _, banned := range "0OIl" {
		assert.NotContains(t, Base58Alphabet, string(banned))
	}
}

func TestIsValidAddressExamples(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  bool
	}{
		{"solana address", "3N2pXmP9k3Rvz4ZkQW8PUBrGBcgeQKSmLFsJJTnjnvBE", true},
		{"leading zero", "0N2pXmP9k3Rvz4ZkQW8PUBrGBcgeQKSmLFsJJTnjnvBE", false},
		{"surrounding whitespace", "  3N2pXmP9k3Rvz4ZkQW8PUBrGBcgeQKSmLFsJJTnjnvBE\n", true},
		{"inner space", "3N2pXmP9k3Rvz4Zk QW8PUBrGBcgeQKSmLFsJJTnjnvB", false},
		{"exactly 32", strings.Repeat("1", 32), true},
		{"exactly 44", strings.Repeat("z", 44), true},
		{"31 chars", strings.Repeat("a", 31), false},
		{"45 chars", strings.Repeat("a", 45), false},
		{"empty", "", false},
		{"embedded in longer text", "wallet: 3N2pXmP9k3Rvz4ZkQW8PUBrGBcgeQKSmLFsJJTnjnvBE", false},
		{"ethereum style", "0x52908400098527886E0F7030069857D2E4169EE7", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsValidAddress(tc.input))
		})
	}
}

func TestIsValidAddressAcceptsAnyBase58OfAllowedLength(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		addr := rapid.StringOfN(rapid.SampledFrom(base58Runes), MinAddressLength, MaxAddressLength, -1).Draw(t, "addr")
		if !IsValidAddress(addr) {
			t.Fatalf("expected %q to be valid", addr)
		}
	})
}

func TestIsValidAddressRejectsAmbiguousCharacters(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		addr := rapid.StringOfN(rapid.SampledFrom(base58Runes), MinAddressLength-1, MaxAddressLength-1, -1).Draw(t, "addr")
		bad := rapid.SampledFrom([]string{"0", "O", "I", "l"}).Draw(t, "bad")
		pos := rapid.IntRange(0, len(addr)).Draw(t, "pos")

		candidate := addr[:pos] + bad + addr[pos:]
		if IsValidAddress(candidate) {
			t.Fatalf("expected %q to be rejected", candidate)
		}
	})
}

func TestIsValidAddressRejectsOutOfRangeLengths(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		short := rapid.StringOfN(rapid.SampledFrom(base58Runes), 0, MinAddressLength-1, -1).Draw(t, "short")
		long := rapid.StringOfN(rapid.SampledFrom(base58Runes), MaxAddressLength+1, 120, -1).Draw(t, "long")
		if IsValidAddress(short) {
			t.Fatalf("expected short %q to be rejected", short)
		}
		if IsValidAddress(long) {
			t.Fatalf("expected long %q to be rejected", long)
		}
	})
}

func TestValidateAddressAgreesWithIsValid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		candidate := rapid.String().Draw(t, "candidate")
		err := ValidateAddress(candidate)
		if (err == nil) != IsValidAddress(candidate) {
			t.Fatalf("ValidateAddress(%q)=%v disagrees with IsValidAddress", candidate, err)
		}
		if err != nil && !apperrors.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestNormalizeAddressDoesNotChangeCase(t *testing.T) {
	assert.Equal(t, "AbCd", NormalizeAddress("\t AbCd  "))
}
