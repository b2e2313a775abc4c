package events

import (
	"strings"

	"github.com/holiman/uint256"

	"acre/crypto"
)

func normalizeAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return ""
	}
	return strings.ToUpper(trimmed)
}

// FormatAmount renders an amount in base-10, treating nil as zero.
func FormatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

// FormatAddress renders an identity for event attributes.
func FormatAddress(addr crypto.Address) string {
	return addr.String()
}
