package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWhenFileAbsent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Server.WorkerThreads)
	require.Equal(t, 1<<16, cfg.Protocol.MaxBodyLength)
}

func TestLoadParsesYAMLSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	body := `
server:
  port: 7001
  worker_threads: 8
  listen_backlog: 256
fix_session:
  min_heartbeat: 2s
  max_heartbeat: 2h
timing_wheel:
  slots: 1024
  tick: 50ms
protocol:
  max_buffer_size: 2097152
  max_body_length: 131072
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7001, cfg.Server.Port)
	require.Equal(t, 8, cfg.Server.WorkerThreads)
	require.Equal(t, 2*time.Second, cfg.FixSession.MinHeartBtInt)
	require.Equal(t, 1024, cfg.TimingWheel.Slots)
	require.Equal(t, 2097152, cfg.Protocol.MaxBufferSize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7001\n"), 0o644))
	t.Setenv("GATEWAY_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.Server.Port)
}

func TestLoadRejectsInvalidWorkerThreads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  worker_threads: 0\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadSeedsAccountPasswordFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	body := `
accounts:
  - account_id: ACC1
    starting_balance: 50000
    password: hunter2
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Accounts, 1)
	require.Equal(t, "ACC1", cfg.Accounts[0].AccountID)
	require.Equal(t, "hunter2", cfg.Accounts[0].Password)
}
