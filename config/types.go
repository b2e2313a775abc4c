package config

// DefaultMinimumDeposit is 0.001 of an 18-decimal asset.
const DefaultMinimumDeposit = "1000000000000000"

// Vault holds the vault parameters. Addresses accept bech32 or 0x hex and
// amounts are base-10 strings so they survive TOML's 64-bit integers.
type Vault struct {
	Owner                string `toml:"Owner"`
	PauseAdmin           string `toml:"PauseAdmin"`
	Treasury             string `toml:"Treasury"`
	MinimumDepositAmount string `toml:"MinimumDepositAmount"`
	EntryFeeBps          uint64 `toml:"EntryFeeBps"`
	ExitFeeBps           uint64 `toml:"ExitFeeBps"`
	AssetSymbol          string `toml:"AssetSymbol"`
	ShareSymbol          string `toml:"ShareSymbol"`
}

// Allocator holds the allocator roles and the venue withdrawal granularity.
type Allocator struct {
	Owner            string   `toml:"Owner"`
	Maintainers      []string `toml:"Maintainers"`
	VenueGranularity string   `toml:"VenueGranularity"`
}

// GenesisAccount seeds an asset balance on first start.
type GenesisAccount struct {
	Address string `toml:"Address"`
	Amount  string `toml:"Amount"`
}
