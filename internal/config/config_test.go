package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/concrnt-adz"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
nodeInfo:
  fqdn: ads.example.com
  moduleID: py/market
server:
  listen: ":9000"
  storage: sqlite
  redisAddr: localhost:6379
`)

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ads.example.com", conf.NodeInfo.FQDN)
	assert.Equal(t, ":9000", conf.Server.Listen)
	assert.Equal(t, StorageSqlite, conf.Server.Storage)
	assert.Equal(t, "adz.db", conf.Server.SqlitePath)

	want, err := adz.ModuleAccount("py/market")
	require.NoError(t, err)
	assert.Equal(t, want, conf.NodeInfo.EscrowAccount)
	assert.Equal(t, want, conf.Domain().EscrowAccount)
}

func TestLoadDefaults(t *testing.T) {
	conf, err := Load(writeConfig(t, "nodeInfo:\n  fqdn: localhost\n"))
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, conf.Server.Storage)
	assert.Equal(t, ":8000", conf.Server.Listen)
	assert.Equal(t, adz.DefaultModuleID, conf.NodeInfo.ModuleID)
	assert.True(t, adz.IsAccountID(conf.NodeInfo.EscrowAccount))
}

func TestLoadRejectsUnknownStorage(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  storage: leveldb\n"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
