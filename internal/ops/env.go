package ops

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/yanun0323/errors"
)

// Environment variables read by ApplyEnv.
const (
	EnvAccessToken = "OANDA_ACCESS_TOKEN"
	EnvAccountID   = "OANDA_ACCOUNT_ID"
	EnvDomain      = "OANDA_DOMAIN"
	EnvPGPassword  = "FXTRADER_PG_PASSWORD"
)

// LoadDotEnv loads the given .env files, or ./.env when none are given.
// A missing default file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
	}
	if err := godotenv.Load(files...); err != nil {
		return errors.Wrap(err, "load dotenv")
	}
	return nil
}

// ApplyEnv overrides secrets with environment values when they are set.
func (l *Loaded) ApplyEnv() {
	if v := os.Getenv(EnvAccessToken); v != "" {
		l.Broker.AccessToken = v
	}
	if v := os.Getenv(EnvAccountID); v != "" {
		l.Broker.AccountID = v
	}
	if v := os.Getenv(EnvDomain); v != "" {
		l.Broker.Domain = v
	}
	if v := os.Getenv(EnvPGPassword); v != "" && l.Postgres != nil {
		l.Postgres.Password = v
	}
}

// RequireBroker checks that live trading has credentials.
func (l Loaded) RequireBroker() error {
	if l.Broker.AccountID == "" {
		return errors.Errorf("broker account id is empty, set %s", EnvAccountID)
	}
	if l.Broker.AccessToken == "" {
		return errors.Errorf("broker access token is empty, set %s", EnvAccessToken)
	}
	return nil
}
