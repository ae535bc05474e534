// ════════════════════════════════════════════════════════════════════════════════════════════════
// Configuration Snapshot
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: tick2trade
// Component: Config
//
// Description:
//   Loaded once before any thread starts: file (YAML or TOML, by
//   extension) → ${VAR} expansion → env credentials → defaults →
//   validation. The result is never mutated afterwards; the hot loop gets
//   copies of the values it needs.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"tick2trade/codec"
	"tick2trade/strategy"
)

// Credential environment variables. They override the file.
const (
	EnvAPIKey    = "TICK2TRADE_API_KEY"
	EnvAPISecret = "TICK2TRADE_API_SECRET"
)

var (
	ErrUnknownFormat      = errors.New("config: unknown file format")
	ErrMissingCredentials = errors.New("config: api key and secret are required")
)

// Config is the root configuration.
type Config struct {
	MarketA Endpoint `yaml:"market_a" toml:"market_a"`
	MarketB Endpoint `yaml:"market_b" toml:"market_b"`
	Trade   Endpoint `yaml:"trade" toml:"trade"`

	Instrument  Instrument  `yaml:"instrument" toml:"instrument"`
	Strategy    Strategy    `yaml:"strategy" toml:"strategy"`
	Risk        Risk        `yaml:"risk" toml:"risk"`
	Transport   Transport   `yaml:"transport" toml:"transport"`
	Threads     Threads     `yaml:"threads" toml:"threads"`
	Recorder    Recorder    `yaml:"recorder" toml:"recorder"`
	Log         Log         `yaml:"log" toml:"log"`
	Credentials Credentials `yaml:"credentials" toml:"credentials"`
}

// Instrument is the executable contract on venue B.
type Instrument struct {
	Symbol        string        `yaml:"symbol" toml:"symbol"`
	Category      string        `yaml:"category" toml:"category"`
	OrderType     string        `yaml:"order_type" toml:"order_type"`
	TimeInForce   string        `yaml:"time_in_force" toml:"time_in_force"`
	PriceDecimals int           `yaml:"price_decimals" toml:"price_decimals"`
	QtyDecimals   int           `yaml:"qty_decimals" toml:"qty_decimals"`
	RecvWindow    time.Duration `yaml:"recv_window" toml:"recv_window"`
}

// Strategy holds the signal parameters.
type Strategy struct {
	Threshold float64 `yaml:"threshold" toml:"threshold"`
	MaxQty    float64 `yaml:"max_qty" toml:"max_qty"`
	QtyStep   float64 `yaml:"qty_step" toml:"qty_step"`
	MaxLive   int     `yaml:"max_live" toml:"max_live"`
}

// Risk holds the Safe Mode triggers.
type Risk struct {
	AckTimeout   time.Duration `yaml:"ack_timeout" toml:"ack_timeout"`
	LatencyLimit time.Duration `yaml:"latency_limit" toml:"latency_limit"`
	LatencyTicks int           `yaml:"latency_ticks" toml:"latency_ticks"`
	AuthTTL      time.Duration `yaml:"auth_ttl" toml:"auth_ttl"`

	// MaxLoss is a decimal string; empty or "0" disables the loss guard.
	MaxLoss string `yaml:"max_loss" toml:"max_loss"`

	maxLoss decimal.Decimal
}

// Transport tunes the stream state machines.
type Transport struct {
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" toml:"handshake_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval" toml:"ping_interval"`
	PollTimeout      time.Duration `yaml:"poll_timeout" toml:"poll_timeout"`
	BackoffBase      time.Duration `yaml:"backoff_base" toml:"backoff_base"`
	BackoffMax       time.Duration `yaml:"backoff_max" toml:"backoff_max"`
	DrainTimeout     time.Duration `yaml:"drain_timeout" toml:"drain_timeout"`
	SocketBuffer     int           `yaml:"socket_buffer" toml:"socket_buffer"`
	ReadBuffer       int           `yaml:"read_buffer" toml:"read_buffer"`
	InsecureTLS      bool          `yaml:"insecure_tls" toml:"insecure_tls"`
}

// Threads places the two loops. A negative core leaves the thread unbound.
// GCPercent 0 keeps the runtime default; a negative value disables the
// collector and leaves heap control to the recorder's heap guard.
type Threads struct {
	HotCore   int `yaml:"hot_core" toml:"hot_core"`
	ColdCore  int `yaml:"cold_core" toml:"cold_core"`
	RingSize  int `yaml:"ring_size" toml:"ring_size"`
	GCPercent int `yaml:"gc_percent" toml:"gc_percent"`
}

// Recorder configures the cold sinks. Empty paths disable a sink.
type Recorder struct {
	SQLitePath      string        `yaml:"sqlite_path" toml:"sqlite_path"`
	JournalPath     string        `yaml:"journal_path" toml:"journal_path"`
	JournalMaxMB    int           `yaml:"journal_max_mb" toml:"journal_max_mb"`
	JournalBackups  int           `yaml:"journal_backups" toml:"journal_backups"`
	JournalCompress bool          `yaml:"journal_compress" toml:"journal_compress"`
	BatchSize       int           `yaml:"batch_size" toml:"batch_size"`
	FlushEvery      time.Duration `yaml:"flush_every" toml:"flush_every"`
	StatsEvery      time.Duration `yaml:"stats_every" toml:"stats_every"`
	HeapSoftMB      int           `yaml:"heap_soft_mb" toml:"heap_soft_mb"`
	HeapHardMB      int           `yaml:"heap_hard_mb" toml:"heap_hard_mb"`
}

// Log configures debug.Setup.
type Log struct {
	Level      string `yaml:"level" toml:"level"`
	Path       string `yaml:"path" toml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	Console    bool   `yaml:"console" toml:"console"`
	Async      bool   `yaml:"async" toml:"async"`
}

// Credentials sign the trade stream auth op.
type Credentials struct {
	APIKey    string `yaml:"api_key" toml:"api_key"`
	APISecret string `yaml:"api_secret" toml:"api_secret"`
}

// Load reads path, applies env overrides and defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(filepath.Ext(path), data)
}

// Parse decodes data in the format named by ext (".yaml", ".yml",
// ".toml") and finishes it like Load.
func Parse(ext string, data []byte) (*Config, error) {
	expanded := []byte(os.ExpandEnv(string(data)))

	var cfg Config
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("config: parse toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Credentials.APIKey = v
	}
	if v := os.Getenv(EnvAPISecret); v != "" {
		c.Credentials.APISecret = v
	}
}

// Venue returns the order formatting parameters for venue B.
func (c *Config) Venue() codec.Venue {
	return codec.Venue{
		Symbol:        c.Instrument.Symbol,
		Category:      c.Instrument.Category,
		OrderType:     c.Instrument.OrderType,
		TimeInForce:   c.Instrument.TimeInForce,
		PriceDecimals: c.Instrument.PriceDecimals,
		QtyDecimals:   c.Instrument.QtyDecimals,
		RecvWindowMs:  c.Instrument.RecvWindow.Milliseconds(),
	}
}

// Params returns the signal parameters.
func (s Strategy) Params() strategy.Params {
	return strategy.Params{
		Threshold: s.Threshold,
		MaxQty:    s.MaxQty,
		QtyStep:   s.QtyStep,
		MaxLive:   s.MaxLive,
	}
}

// MaxLossDecimal is MaxLoss as validated.
func (r *Risk) MaxLossDecimal() decimal.Decimal { return r.maxLoss }
