package main

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// config holds the CLI's defaults, loaded from fiorefs-config.yaml (or
// the environment) the same way the teacher's LoadDMGConfig loads
// apfs-config.yaml.
type config struct {
	Path       string `mapstructure:"path"`
	BlockSize  uint64 `mapstructure:"block_size"`
	VolumeSize uint64 `mapstructure:"volume_size"`
}

// loadConfig reads fiorefs-config.yaml from the working directory (or
// $HOME/.fiorefs, /etc/fiorefs), falling back to built-in defaults when
// no file is present.
func loadConfig() (*config, error) {
	viper.SetConfigName("fiorefs-config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.fiorefs")
	viper.AddConfigPath("/etc/fiorefs")

	viper.SetDefault("path", "fiorefs.img")
	viper.SetDefault("block_size", 512)
	viper.SetDefault("volume_size", 1<<20) // 1 MiB

	viper.SetEnvPrefix("FIOREFS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading fiorefs-config.yaml: %w", err)
		}
	}

	var c config
	if err := viper.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshaling fiorefs config: %w", err)
	}
	return &c, nil
}

// resolvePath returns the --path flag value if set, else the config's
// default path.
func resolvePath(c *config) string {
	if volumePath != "" {
		return volumePath
	}
	return c.Path
}
