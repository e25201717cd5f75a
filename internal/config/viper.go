package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// NewViper returns a viper instance configured for PROMPTBATCH_* environment
// variables and an optional config file.
//
// Search order when configFile is empty:
//   - $HOME/.promptbatch/config.(yaml|yml|json|toml|...)
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("PROMPTBATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("stagger-ms", DefaultStaggerMs)
	v.SetDefault("output", "text")

	if strings.TrimSpace(configFile) != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
		return v, nil
	}

	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return v, nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(filepath.Join(home, ".promptbatch"))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, err
	}

	return v, nil
}
