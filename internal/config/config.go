package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds service configuration.
// Precedence: env (MORTALITY_*) > config file > defaults.
type Config struct {
	Addr       string `mapstructure:"addr"`
	RiskPath   string `mapstructure:"risk_path"`
	CausesPath string `mapstructure:"causes_path"`
	TopK       int    `mapstructure:"top_k"`
}

// Load reads configuration from env and an optional yaml file
// (./mortality.yaml unless cfgFile points elsewhere). A missing file is
// fine; defaults cover everything.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MORTALITY")
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("risk_path", "data/death rate of countries and its causes.csv")
	v.SetDefault("causes_path", "data/cause_of_deaths2.csv")
	v.SetDefault("top_k", 10)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("mortality")
		v.SetConfigType("yaml")
	}
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
