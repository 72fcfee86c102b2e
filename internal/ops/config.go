// Package ops loads run configuration from JSON or YAML files plus the
// broker secrets from the environment.
package ops

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gopkg.in/yaml.v3"

	"fxtrader/internal/portfolio"
	"fxtrader/internal/schema"
	"fxtrader/internal/strategy"
	"fxtrader/pkg/conn"
	"fxtrader/pkg/oanda"
)

// FileConfig mirrors the config file layout.
type FileConfig struct {
	Instruments  []string        `json:"instruments" yaml:"instruments"`
	HomeCurrency string          `json:"homeCurrency" yaml:"homeCurrency"`
	Equity       string          `json:"equity" yaml:"equity"`
	RiskPerTrade string          `json:"riskPerTrade" yaml:"riskPerTrade"`
	Leverage     int64           `json:"leverage" yaml:"leverage"`
	Heartbeat    string          `json:"heartbeat" yaml:"heartbeat"`
	MaxIters     int             `json:"maxIters" yaml:"maxIters"`
	QueueSize    int             `json:"queueSize" yaml:"queueSize"`
	DataDir      string          `json:"dataDir" yaml:"dataDir"`
	OutputDir    string          `json:"outputDir" yaml:"outputDir"`
	WALDir       string          `json:"walDir" yaml:"walDir"`
	MetricsAddr  string          `json:"metricsAddr" yaml:"metricsAddr"`
	Strategy     StrategyConfig  `json:"strategy" yaml:"strategy"`
	Broker       BrokerConfig    `json:"broker" yaml:"broker"`
	Ledger       LedgerConfig    `json:"ledger" yaml:"ledger"`
	Profiling    ProfilingConfig `json:"profiling" yaml:"profiling"`
}

type StrategyConfig struct {
	Name   string         `json:"name" yaml:"name"`
	Params map[string]int `json:"params" yaml:"params"`
}

// BrokerConfig selects the OANDA environment. Credentials normally come from
// the environment instead of the file.
type BrokerConfig struct {
	Domain       string `json:"domain" yaml:"domain"`
	AccountID    string `json:"accountId" yaml:"accountId"`
	AccessToken  string `json:"accessToken" yaml:"accessToken"`
	RESTURL      string `json:"restUrl" yaml:"restUrl"`
	StreamURL    string `json:"streamUrl" yaml:"streamUrl"`
	WebSocketURL string `json:"websocketUrl" yaml:"websocketUrl"`
	Workers      int    `json:"workers" yaml:"workers"`
	QueueSize    int    `json:"queueSize" yaml:"queueSize"`
	// Simulated keeps live prices but fills orders locally.
	Simulated bool `json:"simulated" yaml:"simulated"`
}

type LedgerConfig struct {
	Postgres *PostgresConfig `json:"postgres" yaml:"postgres"`
}

type PostgresConfig struct {
	Host      string `json:"host" yaml:"host"`
	Port      int    `json:"port" yaml:"port"`
	User      string `json:"user" yaml:"user"`
	Password  string `json:"password" yaml:"password"`
	Database  string `json:"database" yaml:"database"`
	SSLMode   string `json:"sslMode" yaml:"sslMode"`
	RunID     string `json:"runId" yaml:"runId"`
	BatchSize int    `json:"batchSize" yaml:"batchSize"`
}

type ProfilingConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	ServerAddress string `json:"serverAddress" yaml:"serverAddress"`
	AppName       string `json:"appName" yaml:"appName"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Instruments  []schema.Instrument
	HomeCurrency string
	Equity       decimal.Decimal
	RiskPerTrade decimal.Decimal
	Leverage     int64
	Heartbeat    time.Duration
	MaxIters     int
	QueueSize    int
	DataDir      string
	OutputDir    string
	WALDir       string
	MetricsAddr  string
	Strategy     StrategyConfig
	Broker       BrokerConfig
	Postgres     *PostgresConfig
	Profiling    ProfilingConfig
}

// Default is the configuration used when no file is given.
func Default() FileConfig {
	return FileConfig{
		Instruments:  []string{"GBPUSD"},
		HomeCurrency: "GBP",
		Equity:       "100000.00",
		RiskPerTrade: "0.02",
		Leverage:     20,
		Heartbeat:    "0s",
		MaxIters:     10_000_000_000,
		QueueSize:    1024,
		DataDir:      "data",
		OutputDir:    "output",
		WALDir:       "wal",
		Strategy:     StrategyConfig{Name: strategy.NameAlternator},
		Broker: BrokerConfig{
			Domain:    oanda.DomainPractice,
			Workers:   1,
			QueueSize: 64,
		},
		Profiling: ProfilingConfig{
			ServerAddress: "http://localhost:4040",
			AppName:       "fxtrader",
		},
	}
}

// Load reads path over the defaults. The format follows the extension,
// .yaml/.yml for YAML and anything else for JSON. An empty path resolves
// the defaults.
func Load(path string) (Loaded, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Loaded{}, errors.Wrap(err, "read config").With("path", path)
		}
		if err := Decode(path, data, &cfg); err != nil {
			return Loaded{}, err
		}
	}
	return cfg.Resolve()
}

// Decode unmarshals data into cfg by the extension of path.
func Decode(path string, data []byte, cfg *FileConfig) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return errors.Wrap(err, "decode yaml").With("path", path)
		}
	default:
		if err := sonic.Unmarshal(data, cfg); err != nil {
			return errors.Wrap(err, "decode json").With("path", path)
		}
	}
	return nil
}

// Resolve parses and validates the file values.
func (c FileConfig) Resolve() (Loaded, error) {
	if len(c.Instruments) == 0 {
		return Loaded{}, errors.New("no instruments configured")
	}
	instruments := make([]schema.Instrument, 0, len(c.Instruments))
	seen := map[schema.Instrument]bool{}
	for _, s := range c.Instruments {
		i, err := schema.ParseInstrument(s)
		if err != nil {
			return Loaded{}, errors.Wrap(err, "instrument").With("value", s)
		}
		if seen[i] {
			return Loaded{}, errors.Errorf("duplicate instrument %s", i)
		}
		seen[i] = true
		instruments = append(instruments, i)
	}

	home := strings.ToUpper(strings.TrimSpace(c.HomeCurrency))
	if len(home) != 3 {
		return Loaded{}, errors.Errorf("home currency %q", c.HomeCurrency)
	}

	equity, err := decimal.NewFromString(c.Equity)
	if err != nil || equity.Sign() <= 0 {
		return Loaded{}, errors.Errorf("equity %q must be a positive decimal", c.Equity)
	}
	risk, err := decimal.NewFromString(c.RiskPerTrade)
	if err != nil || risk.Sign() <= 0 || risk.GreaterThan(decimal.NewFromInt(1)) {
		return Loaded{}, errors.Errorf("riskPerTrade %q must be in (0, 1]", c.RiskPerTrade)
	}
	if !equity.Mul(risk).Floor().IsPositive() {
		return Loaded{}, errors.Errorf("equity %s with risk %s trades zero units", equity, risk)
	}

	var heartbeat time.Duration
	if c.Heartbeat != "" {
		heartbeat, err = time.ParseDuration(c.Heartbeat)
		if err != nil || heartbeat < 0 {
			return Loaded{}, errors.Errorf("heartbeat %q", c.Heartbeat)
		}
	}
	if c.MaxIters < 0 {
		return Loaded{}, errors.Errorf("maxIters %d", c.MaxIters)
	}
	if c.QueueSize <= 0 {
		return Loaded{}, errors.Errorf("queueSize %d", c.QueueSize)
	}

	name := c.Strategy.Name
	if name == "" {
		name = strategy.NameAlternator
	}
	if _, err := strategy.New(name, instruments, c.Strategy.Params); err != nil {
		return Loaded{}, errors.Wrap(err, "strategy").With("name", name)
	}

	switch strings.ToLower(c.Broker.Domain) {
	case "", oanda.DomainPractice, oanda.DomainLive:
	default:
		return Loaded{}, errors.Errorf("broker domain %q", c.Broker.Domain)
	}

	return Loaded{
		Instruments:  instruments,
		HomeCurrency: home,
		Equity:       equity,
		RiskPerTrade: risk,
		Leverage:     c.Leverage,
		Heartbeat:    heartbeat,
		MaxIters:     c.MaxIters,
		QueueSize:    c.QueueSize,
		DataDir:      c.DataDir,
		OutputDir:    c.OutputDir,
		WALDir:       c.WALDir,
		MetricsAddr:  c.MetricsAddr,
		Strategy:     StrategyConfig{Name: name, Params: c.Strategy.Params},
		Broker:       c.Broker,
		Postgres:     c.Ledger.Postgres,
		Profiling:    c.Profiling,
	}, nil
}

// Portfolio returns the portfolio sizing section.
func (l Loaded) Portfolio() portfolio.Config {
	return portfolio.Config{
		Home:         l.HomeCurrency,
		Equity:       l.Equity,
		RiskPerTrade: l.RiskPerTrade,
		Leverage:     l.Leverage,
		Instruments:  l.Instruments,
	}
}

// NewStrategy builds the configured strategy.
func (l Loaded) NewStrategy() (strategy.Strategy, error) {
	return strategy.New(l.Strategy.Name, l.Instruments, l.Strategy.Params)
}

// PostgresOption maps the ledger store settings to a connection option.
func (l Loaded) PostgresOption() (conn.Option, bool) {
	if l.Postgres == nil {
		return conn.Option{}, false
	}
	return conn.Option{
		Host:     l.Postgres.Host,
		Port:     l.Postgres.Port,
		User:     l.Postgres.User,
		Password: l.Postgres.Password,
		Database: l.Postgres.Database,
		SSLMode:  l.Postgres.SSLMode,
		Params:   map[string]string{"application_name": "fxtrader"},
	}, true
}
