package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"

	"acre/crypto"
	"acre/storage"
)

func init() {
	crypto.KeystoreScryptN = keystore.LightScryptN
	crypto.KeystoreScryptP = keystore.LightScryptP
}

var (
	testOwner    = crypto.BytesToAddress([]byte{0x01}).String()
	testTreasury = crypto.BytesToAddress([]byte{0x03}).Hex()
	testKeeper   = crypto.BytesToAddress([]byte{0x04}).String()
	testHolder   = crypto.BytesToAddress([]byte{0x0a}).String()
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesSections(t *testing.T) {
	path := writeConfig(t, `DataDir = "./data"
StorageBackend = "bolt"
OperatorKeystorePath = "keys/operator.keystore"

[vault]
Owner = "`+testOwner+`"
Treasury = "`+testTreasury+`"
MinimumDepositAmount = "1000000000000000"
EntryFeeBps = 5
ExitFeeBps = 10
AssetSymbol = "tBTC"

[allocator]
Maintainers = ["`+testKeeper+`"]
VenueGranularity = "10000000000"

[[genesis]]
Address = "`+testHolder+`"
Amount = "5000000000000000000"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageBackend != storage.BackendBolt {
		t.Fatalf("unexpected backend %q", cfg.StorageBackend)
	}
	if cfg.OperatorPassphraseEnv != DefaultPassphraseEnv {
		t.Fatalf("expected default passphrase env, got %q", cfg.OperatorPassphraseEnv)
	}
	if want := filepath.Join(filepath.Dir(path), "keys", "operator.keystore"); cfg.OperatorKeystorePath != want {
		t.Fatalf("keystore path not resolved against config dir: %s", cfg.OperatorKeystorePath)
	}
	if cfg.StorePath() != filepath.Join("data", "state.db") {
		t.Fatalf("unexpected store path %s", cfg.StorePath())
	}

	genesis, err := ValidateConfig(cfg)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if genesis.Vault.Owner.String() != testOwner {
		t.Fatalf("owner mismatch: %s", genesis.Vault.Owner)
	}
	if genesis.Vault.Treasury.Hex() != testTreasury {
		t.Fatalf("treasury mismatch: %s", genesis.Vault.Treasury.Hex())
	}
	if genesis.Vault.EntryFeeBps != 5 || genesis.Vault.ExitFeeBps != 10 {
		t.Fatalf("unexpected fees %d/%d", genesis.Vault.EntryFeeBps, genesis.Vault.ExitFeeBps)
	}
	if genesis.Vault.MinimumDepositAmount.Dec() != "1000000000000000" {
		t.Fatalf("unexpected minimum %s", genesis.Vault.MinimumDepositAmount.Dec())
	}
	if genesis.Vault.ShareSymbol != "stBTC" {
		t.Fatalf("expected default share symbol, got %q", genesis.Vault.ShareSymbol)
	}
	if len(genesis.Maintainers) != 1 || genesis.Maintainers[0].String() != testKeeper {
		t.Fatalf("unexpected maintainers %v", genesis.Maintainers)
	}
	if genesis.VenueGranularity.Uint64() != 10_000_000_000 {
		t.Fatalf("unexpected granularity %s", genesis.VenueGranularity.Dec())
	}
	if len(genesis.Balances) != 1 || genesis.Balances[0].Amount.Dec() != "5000000000000000000" {
		t.Fatalf("unexpected genesis balances %+v", genesis.Balances)
	}
}

func TestLoadRejectsDispatcherField(t *testing.T) {
	path := writeConfig(t, `Dispatcher = "`+testOwner+`"`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "Dispatcher") {
		t.Fatalf("expected dispatcher rejection, got %v", err)
	}
}

func TestLoadCreatesDefault(t *testing.T) {
	t.Setenv(DefaultPassphraseEnv, "pw")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load default: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not persisted: %v", err)
	}
	key, err := cfg.LoadOperator("pw")
	if err != nil {
		t.Fatalf("load operator: %v", err)
	}
	operator := key.Address().String()
	if cfg.Vault.Owner != operator || cfg.Allocator.Maintainers[0] != operator {
		t.Fatalf("default roles should belong to the operator key")
	}
	if _, err := ValidateConfig(cfg); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Vault.Owner != operator {
		t.Fatalf("reload produced a new operator")
	}
}

func TestValidateConfigRejects(t *testing.T) {
	base := func() *Config {
		return &Config{
			Vault: Vault{Owner: testOwner, Treasury: testTreasury},
		}
	}
	cases := map[string]func(*Config){
		"missing owner":     func(c *Config) { c.Vault.Owner = "" },
		"bad treasury":      func(c *Config) { c.Vault.Treasury = "0x1234" },
		"bad minimum":       func(c *Config) { c.Vault.MinimumDepositAmount = "-1" },
		"bad maintainer":    func(c *Config) { c.Allocator.Maintainers = []string{""} },
		"unknown backend":   func(c *Config) { c.StorageBackend = "rocksdb" },
		"duplicate genesis": func(c *Config) {
			c.Genesis = []GenesisAccount{{Address: testHolder, Amount: "1"}, {Address: testHolder, Amount: "2"}}
		},
	}
	if _, err := ValidateConfig(base()); err != nil {
		t.Fatalf("base config must validate: %v", err)
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(cfg)
			if _, err := ValidateConfig(cfg); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidateConfigAcceptsFeesAboveScale(t *testing.T) {
	cfg := &Config{Vault: Vault{Owner: testOwner, Treasury: testTreasury, EntryFeeBps: 10_001, ExitFeeBps: 20_000}}
	genesis, err := ValidateConfig(cfg)
	if err != nil {
		t.Fatalf("fee rates above the basis point scale are uncapped: %v", err)
	}
	if genesis.Vault.EntryFeeBps != 10_001 || genesis.Vault.ExitFeeBps != 20_000 {
		t.Fatalf("unexpected fees %d/%d", genesis.Vault.EntryFeeBps, genesis.Vault.ExitFeeBps)
	}
}

func TestOpenStoreMemory(t *testing.T) {
	cfg := &Config{StorageBackend: storage.BackendMemory}
	db, err := cfg.OpenStore()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()
	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
}
