package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/holiman/uint256"

	"acre/core"
	"acre/crypto"
	"acre/native/vault"
	"acre/storage"
)

// ValidateConfig checks the configuration and converts it into the typed
// genesis used to construct a node.
func ValidateConfig(c *Config) (core.Config, error) {
	var out core.Config
	if c == nil {
		return out, fmt.Errorf("config: nil config")
	}
	var err error
	if out.Vault.Owner, err = requireAddress("vault.Owner", c.Vault.Owner); err != nil {
		return out, err
	}
	if out.Vault.Treasury, err = requireAddress("vault.Treasury", c.Vault.Treasury); err != nil {
		return out, err
	}
	if out.Vault.PauseAdmin, err = optionalAddress("vault.PauseAdmin", c.Vault.PauseAdmin); err != nil {
		return out, err
	}
	if out.Vault.MinimumDepositAmount, err = parseAmount("vault.MinimumDepositAmount", c.Vault.MinimumDepositAmount); err != nil {
		return out, err
	}
	out.Vault.EntryFeeBps = c.Vault.EntryFeeBps
	out.Vault.ExitFeeBps = c.Vault.ExitFeeBps
	out.Vault.AssetSymbol = strings.TrimSpace(c.Vault.AssetSymbol)
	out.Vault.ShareSymbol = strings.TrimSpace(c.Vault.ShareSymbol)
	if out.Vault.ShareSymbol == "" {
		out.Vault.ShareSymbol = vault.DefaultShareSymbol
	}

	if out.AllocatorOwner, err = optionalAddress("allocator.Owner", c.Allocator.Owner); err != nil {
		return out, err
	}
	for i, raw := range c.Allocator.Maintainers {
		addr, err := requireAddress(fmt.Sprintf("allocator.Maintainers[%d]", i), raw)
		if err != nil {
			return out, err
		}
		out.Maintainers = append(out.Maintainers, addr)
	}
	if strings.TrimSpace(c.Allocator.VenueGranularity) != "" {
		if out.VenueGranularity, err = parseAmount("allocator.VenueGranularity", c.Allocator.VenueGranularity); err != nil {
			return out, err
		}
	}

	seen := make(map[crypto.Address]struct{}, len(c.Genesis))
	for i, acct := range c.Genesis {
		field := fmt.Sprintf("genesis[%d]", i)
		addr, err := requireAddress(field+".Address", acct.Address)
		if err != nil {
			return out, err
		}
		if _, dup := seen[addr]; dup {
			return out, fmt.Errorf("%s: duplicate account %s", field, addr)
		}
		seen[addr] = struct{}{}
		amount, err := parseAmount(field+".Amount", acct.Amount)
		if err != nil {
			return out, err
		}
		out.Balances = append(out.Balances, core.GenesisBalance{Account: addr, Amount: amount})
	}

	switch strings.ToLower(strings.TrimSpace(c.StorageBackend)) {
	case "", storage.BackendMemory, storage.BackendLevelDB, storage.BackendBolt:
	default:
		return out, fmt.Errorf("config: unknown StorageBackend %q", c.StorageBackend)
	}
	return out, nil
}

// StorePath returns the on-disk location of the configured backend.
func (c *Config) StorePath() string {
	dir := c.DataDir
	if dir == "" {
		dir = "."
	}
	switch strings.ToLower(strings.TrimSpace(c.StorageBackend)) {
	case storage.BackendBolt:
		return filepath.Join(dir, "state.db")
	case storage.BackendLevelDB:
		return filepath.Join(dir, "leveldb")
	default:
		return ""
	}
}

// OpenStore opens the configured storage backend.
func (c *Config) OpenStore() (storage.Database, error) {
	return storage.Open(c.StorageBackend, c.StorePath())
}

func requireAddress(field, raw string) (crypto.Address, error) {
	addr, err := optionalAddress(field, raw)
	if err != nil {
		return addr, err
	}
	if addr.IsZero() {
		return addr, fmt.Errorf("%s: address required", field)
	}
	return addr, nil
}

func optionalAddress(field, raw string) (crypto.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return crypto.ZeroAddress, nil
	}
	addr, err := crypto.DecodeAddress(raw)
	if err != nil {
		return addr, fmt.Errorf("%s: %w", field, err)
	}
	return addr, nil
}

func parseAmount(field, raw string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return new(uint256.Int), nil
	}
	value, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid amount %q: %w", field, raw, err)
	}
	return value, nil
}
