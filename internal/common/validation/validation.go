package validation

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "whitelist-bot/internal/common/errors"
)

const (
	MinAddressLength = 32
	MaxAddressLength = 44

	// Base58Alphabet excludes 0, O, I and l.
	Base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
)

var addressRegex = regexp.MustCompile(fmt.Sprintf(`^[1-9A-HJ-NP-Za-km-z]{%d,%d}$`, MinAddressLength, MaxAddressLength))

// NormalizeAddress trims surrounding whitespace and nothing else.
func NormalizeAddress(candidate string) string {
	return strings.TrimSpace(candidate)
}

// IsValidAddress reports whether candidate, once trimmed, is a base-58 string
// of 32 to 44 characters. It does not check existence or checksum.
func IsValidAddress(candidate string) bool {
	return addressRegex.MatchString(NormalizeAddress(candidate))
}

// ValidateAddress is IsValidAddress with a ValidationError explaining the rejection.
func ValidateAddress(candidate string) error {
	addr := NormalizeAddress(candidate)
	if addr == "" {
		return apperrors.NewValidationError("wallet", "address cannot be empty")
	}
	if n := len(addr); n < MinAddressLength || n > MaxAddressLength {
		return apperrors.NewValidationError("wallet",
			fmt.Sprintf("address must be %d-%d characters long, got %d", MinAddressLength, MaxAddressLength, n))
	}
	if !addressRegex.MatchString(addr) {
		return apperrors.NewValidationError("wallet", "address contains characters outside the base58 alphabet")
	}
	return nil
}
