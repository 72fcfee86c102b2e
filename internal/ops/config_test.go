package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxtrader/internal/schema"
	"fxtrader/internal/strategy"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	l, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []schema.Instrument{"GBPUSD"}, l.Instruments)
	assert.Equal(t, "GBP", l.HomeCurrency)
	assert.Equal(t, "100000", l.Equity.String())
	assert.Equal(t, "0.02", l.RiskPerTrade.String())
	assert.Equal(t, strategy.NameAlternator, l.Strategy.Name)
	assert.Zero(t, l.Heartbeat)
	assert.Nil(t, l.Postgres)

	pc := l.Portfolio()
	assert.Equal(t, "GBP", pc.Home)
	assert.Equal(t, int64(20), pc.Leverage)
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "run.json", `{
		"instruments": ["GBP_USD", "eurusd"],
		"homeCurrency": "usd",
		"equity": "7500",
		"riskPerTrade": "0.02",
		"heartbeat": "250ms",
		"strategy": {"name": "ma_cross", "params": {"short_window": 5, "long_window": 20}},
		"ledger": {"postgres": {"host": "db", "database": "fx", "runId": "bt-1"}}
	}`)

	l, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []schema.Instrument{"GBPUSD", "EURUSD"}, l.Instruments)
	assert.Equal(t, "USD", l.HomeCurrency)
	assert.Equal(t, 250*time.Millisecond, l.Heartbeat)
	assert.Equal(t, 20, l.Strategy.Params[strategy.ParamLongWindow])
	assert.Equal(t, 1024, l.QueueSize)

	opt, ok := l.PostgresOption()
	require.True(t, ok)
	assert.Equal(t, "db", opt.Host)
	assert.Equal(t, "bt-1", l.Postgres.RunID)

	s, err := l.NewStrategy()
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "run.yaml", `
instruments: [GBPUSD]
homeCurrency: GBP
equity: "100000"
maxIters: 500
broker:
  domain: live
  workers: 4
profiling:
  enabled: true
`)

	l, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500, l.MaxIters)
	assert.Equal(t, "live", l.Broker.Domain)
	assert.Equal(t, 4, l.Broker.Workers)
	assert.True(t, l.Profiling.Enabled)
	assert.Equal(t, "fxtrader", l.Profiling.AppName)
}

func TestResolveRejects(t *testing.T) {
	testCases := []struct {
		desc   string
		mutate func(c *FileConfig)
	}{
		{"no instruments", func(c *FileConfig) { c.Instruments = nil }},
		{"bad instrument", func(c *FileConfig) { c.Instruments = []string{"GBPUS"} }},
		{"duplicate instrument", func(c *FileConfig) { c.Instruments = []string{"GBPUSD", "GBP_USD"} }},
		{"home currency", func(c *FileConfig) { c.HomeCurrency = "POUND" }},
		{"equity", func(c *FileConfig) { c.Equity = "-1" }},
		{"risk above one", func(c *FileConfig) { c.RiskPerTrade = "1.5" }},
		{"zero trade units", func(c *FileConfig) { c.Equity = "10"; c.RiskPerTrade = "0.01" }},
		{"heartbeat", func(c *FileConfig) { c.Heartbeat = "soon" }},
		{"queue size", func(c *FileConfig) { c.QueueSize = 0 }},
		{"strategy", func(c *FileConfig) { c.Strategy.Name = "martingale" }},
		{"domain", func(c *FileConfig) { c.Broker.Domain = "sandbox" }},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			_, err := cfg.Resolve()
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.json"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "bad.json", "{"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvAccessToken, "token-1")
	t.Setenv(EnvAccountID, "001-001")
	t.Setenv(EnvPGPassword, "pg-secret")

	l, err := Load("")
	require.NoError(t, err)
	assert.Error(t, l.RequireBroker())

	l.Postgres = &PostgresConfig{Host: "db"}
	l.ApplyEnv()
	assert.Equal(t, "token-1", l.Broker.AccessToken)
	assert.Equal(t, "001-001", l.Broker.AccountID)
	assert.Equal(t, "pg-secret", l.Postgres.Password)
	assert.NoError(t, l.RequireBroker())
}

func TestLoadDotEnv(t *testing.T) {
	path := writeConfig(t, "test.env", "FXTRADER_DOTENV_CHECK=loaded\n")
	t.Setenv("FXTRADER_DOTENV_CHECK", "")
	require.NoError(t, os.Unsetenv("FXTRADER_DOTENV_CHECK"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("FXTRADER_DOTENV_CHECK"))

	assert.Error(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
