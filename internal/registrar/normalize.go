package registrar

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrInvalidBrand is returned for a brand name that is empty after trimming.
	ErrInvalidBrand = errors.New("registrar: brand name is required")

	// ErrInvalidLabel marks a non-empty brand name that cannot form a domain
	// label. CheckDomains reports it per domain instead of failing.
	ErrInvalidLabel = errors.New("registrar: invalid domain name")
)

// NormalizeBrand turns user input into the single ASCII label queried at the
// registrar: trimmed, NFKC-folded, lowercased and IDNA-encoded.
//
// For a name that cannot be a label it still returns the folded, lowercased
// name together with an error wrapping ErrInvalidLabel, so callers can name
// the domains they refuse to look up.
func NormalizeBrand(raw string) (string, error) {
	s := strings.ToLower(norm.NFKC.String(strings.TrimSpace(raw)))
	if s == "" {
		return "", ErrInvalidBrand
	}
	if strings.Contains(s, ".") {
		return s, fmt.Errorf("%w: %q must be a single label", ErrInvalidLabel, raw)
	}
	ascii, err := idna.Lookup.ToASCII(s)
	if err != nil {
		return s, fmt.Errorf("%w: %v", ErrInvalidLabel, err)
	}
	return ascii, nil
}

// NormalizeTLD lowercases a TLD and strips surrounding space and a leading dot.
func NormalizeTLD(raw string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), ".")
}
