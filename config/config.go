package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"acre/crypto"
	"acre/internal/passphrase"
	"acre/storage"
)

// DefaultPassphraseEnv names the environment variable holding the operator
// keystore passphrase when the config does not override it.
const DefaultPassphraseEnv = "ACRE_OPERATOR_PASSPHRASE"

type Config struct {
	DataDir               string           `toml:"DataDir"`
	StorageBackend        string           `toml:"StorageBackend"`
	OperatorKeystorePath  string           `toml:"OperatorKeystorePath"`
	OperatorPassphraseEnv string           `toml:"OperatorPassphraseEnv"`
	Vault                 Vault            `toml:"vault"`
	Allocator             Allocator        `toml:"allocator"`
	Genesis               []GenesisAccount `toml:"genesis"`
}

// Load loads the configuration from the given path. A missing file is
// replaced by a default configuration controlled by a freshly generated
// operator key.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	for _, undecoded := range meta.Undecoded() {
		if len(undecoded) == 1 && undecoded[0] == "Dispatcher" {
			return nil, fmt.Errorf("config file %s sets Dispatcher; the allocator is always installed as dispatcher", path)
		}
	}

	if strings.TrimSpace(cfg.StorageBackend) == "" {
		cfg.StorageBackend = storage.BackendLevelDB
	}
	if strings.TrimSpace(cfg.OperatorPassphraseEnv) == "" {
		cfg.OperatorPassphraseEnv = DefaultPassphraseEnv
	}
	if cfg.Allocator.Maintainers == nil {
		cfg.Allocator.Maintainers = []string{}
	}
	if cfg.OperatorKeystorePath != "" && !filepath.IsAbs(cfg.OperatorKeystorePath) {
		cfg.OperatorKeystorePath = filepath.Join(filepath.Dir(path), cfg.OperatorKeystorePath)
	}
	return cfg, nil
}

// LoadOperator decrypts the operator key referenced by the configuration.
func (c *Config) LoadOperator(passphrase string) (*crypto.PrivateKey, error) {
	if strings.TrimSpace(c.OperatorKeystorePath) == "" {
		return nil, fmt.Errorf("config: OperatorKeystorePath not set")
	}
	return crypto.LoadFromKeystore(c.OperatorKeystorePath, passphrase)
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	pass, err := passphrase.NewSource(DefaultPassphraseEnv).Get()
	if err != nil {
		return nil, err
	}
	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, pass); err != nil {
		return nil, err
	}
	operator := key.Address().String()

	cfg := &Config{
		DataDir:               "./acre-data",
		StorageBackend:        storage.BackendLevelDB,
		OperatorKeystorePath:  keystorePath,
		OperatorPassphraseEnv: DefaultPassphraseEnv,
		Vault: Vault{
			Owner:                operator,
			PauseAdmin:           operator,
			Treasury:             operator,
			MinimumDepositAmount: DefaultMinimumDeposit,
			AssetSymbol:          "tBTC",
			ShareSymbol:          "stBTC",
		},
		Allocator: Allocator{
			Owner:       operator,
			Maintainers: []string{operator},
		},
		Genesis: []GenesisAccount{},
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "operator.keystore")
}
