// Package config loads the gateway's startup configuration from a YAML
// file in five sections, then layers environment-variable overrides on
// top of whatever the file (or the built-in defaults) supplied.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Server holds the gateway's listener settings.
type Server struct {
	Port          int `yaml:"port"`
	WorkerThreads int `yaml:"worker_threads"`
	ListenBacklog int `yaml:"listen_backlog"`
}

// Client corresponds to [client]. gatewayd reads only DefaultHeartBtInt,
// as the heartbeat interval of each accepted session; ServerHost and
// ServerPort are not read (the vendor feed is dialed at MDVendorAddr).
type Client struct {
	ServerHost        string        `yaml:"server_host"`
	ServerPort        int           `yaml:"server_port"`
	DefaultHeartBtInt time.Duration `yaml:"default_heartbeat"`
}

// FixSession corresponds to [fix_session].
type FixSession struct {
	MinHeartBtInt  time.Duration `yaml:"min_heartbeat"`
	MaxHeartBtInt  time.Duration `yaml:"max_heartbeat"`
	LogoutTimeout  time.Duration `yaml:"logout_timeout"`
	TestReqTimeout time.Duration `yaml:"test_request_timeout"`
}

// TimingWheel corresponds to [timing_wheel].
type TimingWheel struct {
	Slots   int           `yaml:"slots"`
	TickDur time.Duration `yaml:"tick"`
}

// Protocol corresponds to [protocol].
type Protocol struct {
	MaxBufferSize int `yaml:"max_buffer_size"`
	MaxBodyLength int `yaml:"max_body_length"`
}

// InstrumentConfig is one static contract row the catalog loads at
// startup.
type InstrumentConfig struct {
	InstrumentID   string  `yaml:"instrument_id"`
	Exchange       string  `yaml:"exchange"`
	ProductID      string  `yaml:"product_id"`
	PriceTick      float64 `yaml:"price_tick"`
	VolumeMultiple float64 `yaml:"volume_multiple"`
	MarginRate     float64 `yaml:"margin_rate"`
}

// AccountConfig seeds an account's ledger entry with a starting balance
// the first time it's seen; a restart prefers whatever the persistence
// layer already has on file over this value. Password, if set, is the
// plaintext dashboard login password for this account; the admin server
// hashes it once at startup and checks logins against that hash only.
type AccountConfig struct {
	AccountID       string  `yaml:"account_id"`
	StartingBalance float64 `yaml:"starting_balance"`
	Password        string  `yaml:"password"`
}

// Config is the gateway's full startup configuration.
type Config struct {
	Server      Server      `yaml:"server"`
	Client      Client      `yaml:"client"`
	FixSession  FixSession  `yaml:"fix_session"`
	TimingWheel TimingWheel `yaml:"timing_wheel"`
	Protocol    Protocol    `yaml:"protocol"`

	// Instruments seeds the catalog, one row per tradeable contract.
	Instruments []InstrumentConfig `yaml:"instruments"`

	// Accounts pre-provisions starting balances for known counterparties,
	// the same way Instruments pre-provisions the catalog.
	Accounts []AccountConfig `yaml:"accounts"`

	// DBPath and AdminAddr are environment-only settings, mixed in
	// alongside the structured fields above.
	DBPath       string
	AdminAddr    string
	JWTSecret    string
	MDVendorAddr string
}

func defaults() Config {
	return Config{
		Server:      Server{Port: 5001, WorkerThreads: 4, ListenBacklog: 128},
		Client:      Client{ServerHost: "127.0.0.1", ServerPort: 5001, DefaultHeartBtInt: 30 * time.Second},
		FixSession:  FixSession{MinHeartBtInt: time.Second, MaxHeartBtInt: time.Hour, LogoutTimeout: 5 * time.Second, TestReqTimeout: 10 * time.Second},
		TimingWheel: TimingWheel{Slots: 512, TickDur: 100 * time.Millisecond},
		Protocol:    Protocol{MaxBufferSize: 1 << 20, MaxBodyLength: 1 << 16},
		Instruments: []InstrumentConfig{
			{InstrumentID: "TEST", Exchange: "SIM", ProductID: "TEST", PriceTick: 1, VolumeMultiple: 1, MarginRate: 0.1},
		},
		Accounts: []AccountConfig{
			{AccountID: "CLIENT1", StartingBalance: 1000000, Password: "changeme"},
		},
		DBPath:       "./data/gateway.db",
		AdminAddr:    ":8090",
		JWTSecret:    "dev-secret",
		MDVendorAddr: "127.0.0.1:7001",
	}
}

// Load reads path (a YAML file of five top-level sections) if it exists,
// falling back to built-in defaults for anything the file omits, then
// applies environment-variable overrides on top (defaults, then file, then
// env). A .env file in the working directory (best-effort, missing is not
// an error) is loaded into the process environment first, so it can set
// any of the environment overrides, GATEWAY_MDVENDOR_ADDR included.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Server.WorkerThreads < 1 {
		return nil, fmt.Errorf("config: worker_threads must be >= 1, got %d", cfg.Server.WorkerThreads)
	}
	if cfg.Protocol.MaxBufferSize < cfg.Protocol.MaxBodyLength {
		return nil, fmt.Errorf("config: max_buffer_size (%d) must be >= max_body_length (%d)", cfg.Protocol.MaxBufferSize, cfg.Protocol.MaxBodyLength)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Server.Port = getEnvInt("GATEWAY_PORT", cfg.Server.Port)
	cfg.Server.WorkerThreads = getEnvInt("GATEWAY_WORKER_THREADS", cfg.Server.WorkerThreads)
	cfg.DBPath = getEnv("GATEWAY_DB_PATH", cfg.DBPath)
	cfg.AdminAddr = getEnv("GATEWAY_ADMIN_ADDR", cfg.AdminAddr)
	cfg.JWTSecret = getEnv("GATEWAY_JWT_SECRET", cfg.JWTSecret)
	cfg.MDVendorAddr = getEnv("GATEWAY_MDVENDOR_ADDR", cfg.MDVendorAddr)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
