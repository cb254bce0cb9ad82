// Package config loads daemon configuration from a YAML file with
// LABSTOCK_* environment overrides.
package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Env string
	} `mapstructure:"app"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Storage struct {
		Driver      string
		SQLitePath  string `mapstructure:"sqlite_path"`
		PostgresDSN string `mapstructure:"postgres_dsn"`
	} `mapstructure:"storage"`

	Blob struct {
		Driver string
		FSRoot string `mapstructure:"fs_root"`
		S3     struct {
			Region          string
			Bucket          string
			Endpoint        string
			AccessKeyID     string `mapstructure:"access_key_id"`
			SecretAccessKey string `mapstructure:"secret_access_key"`
			PathStyle       bool   `mapstructure:"path_style"`
		} `mapstructure:"s3"`
	} `mapstructure:"blob"`

	Metrics struct {
		Enabled bool
		Driver  string
	} `mapstructure:"metrics"`
}

// Load reads the config file at path. A missing file is not an error; the
// defaults plus environment overrides still apply.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("LABSTOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.env", "prod")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", "data/labstock.db")
	v.SetDefault("blob.driver", "fs")
	v.SetDefault("blob.fs_root", "data/blobs")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.driver", "prometheus")

	var c Config
	if err := v.ReadInConfig(); err != nil {
		// a missing file falls back to defaults, a malformed one fails
		if !errors.Is(err, fs.ErrNotExist) {
			return c, err
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}
