package vault

import (
	"strings"

	"github.com/holiman/uint256"

	"acre/crypto"
)

// DefaultShareSymbol is used when the configuration leaves the share symbol
// empty.
const DefaultShareSymbol = "stBTC"

// Config is the explicit configuration a vault is created with. After
// construction every field is changed only through the governance setters.
type Config struct {
	Owner                crypto.Address
	PauseAdmin           crypto.Address
	Treasury             crypto.Address
	MinimumDepositAmount *uint256.Int
	EntryFeeBps          uint64
	ExitFeeBps           uint64
	AssetSymbol          string
	ShareSymbol          string
}

// Clone returns a deep copy of the configuration.
func (c Config) Clone() Config {
	out := c
	if c.MinimumDepositAmount != nil {
		out.MinimumDepositAmount = c.MinimumDepositAmount.Clone()
	}
	return out
}

func (c Config) normalize() Config {
	out := c.Clone()
	if out.MinimumDepositAmount == nil {
		out.MinimumDepositAmount = new(uint256.Int)
	}
	out.AssetSymbol = strings.TrimSpace(out.AssetSymbol)
	out.ShareSymbol = strings.TrimSpace(out.ShareSymbol)
	if out.ShareSymbol == "" {
		out.ShareSymbol = DefaultShareSymbol
	}
	return out
}

func (c Config) validate(self crypto.Address) error {
	if c.Owner.IsZero() || c.Treasury.IsZero() {
		return ErrZeroAddress
	}
	if c.Treasury == self {
		return ErrDisallowedAddress
	}
	return nil
}
