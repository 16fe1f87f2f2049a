package config

import (
	"os"

	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"

	"github.com/totegamma/concrnt-adz"
	"github.com/totegamma/concrnt-adz/internal/domain"
)

type Config struct {
	NodeInfo NodeInfo `yaml:"nodeInfo"`
	Server   Server   `yaml:"server"`
}

type NodeInfo struct {
	FQDN     string `yaml:"fqdn"`
	Layer    string `yaml:"layer"`
	ModuleID string `yaml:"moduleID"`

	// ---
	EscrowAccount adz.AccountID
}

type Server struct {
	Listen         string `yaml:"listen"`
	Storage        string `yaml:"storage"` // memory, postgres, sqlite
	PostgresDsn    string `yaml:"postgresDsn"`
	SqlitePath     string `yaml:"sqlitePath"`
	RedisAddr      string `yaml:"redisAddr"`
	RedisPassword  string `yaml:"redisPassword"`
	RedisDB        int    `yaml:"redisDB"`
	MemcachedAddr  string `yaml:"memcachedAddr"`
	LedgerEndpoint string `yaml:"ledgerEndpoint"`
	EnableTrace    bool   `yaml:"enableTrace"`
	TraceEndpoint  string `yaml:"traceEndpoint"`
	LogMode        string `yaml:"logMode"`
}

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSqlite   = "sqlite"
)

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to decode config")
	}

	config.applyDefaults()

	switch config.Server.Storage {
	case StorageMemory, StoragePostgres, StorageSqlite:
	default:
		return Config{}, errors.Errorf("unknown storage %q", config.Server.Storage)
	}

	escrow, err := adz.ModuleAccount(config.NodeInfo.ModuleID)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to derive escrow account")
	}
	config.NodeInfo.EscrowAccount = escrow

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.NodeInfo.ModuleID == "" {
		c.NodeInfo.ModuleID = adz.DefaultModuleID
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8000"
	}
	if c.Server.Storage == "" {
		c.Server.Storage = StorageMemory
	}
	if c.Server.Storage == StorageSqlite && c.Server.SqlitePath == "" {
		c.Server.SqlitePath = "adz.db"
	}
}

// Domain is the subset of the config the use-case and interface layers see.
func (c Config) Domain() domain.Config {
	return domain.Config{
		FQDN:          c.NodeInfo.FQDN,
		Layer:         c.NodeInfo.Layer,
		ModuleID:      c.NodeInfo.ModuleID,
		EscrowAccount: c.NodeInfo.EscrowAccount,
	}
}
