package main

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"github.com/weberc2/blockfs/pkg/filesystem"
	"gopkg.in/yaml.v2"
)

const (
	envVarPrefix = "BLOCKFS"
	appName      = "blockfs"
)

type Config struct {
	Addr              string `envconfig:"ADDR" default:"127.0.0.1:8080" yaml:"addr"`
	filesystem.Config `yaml:",inline"`
}

// LoadConfig reads the YAML file named by BLOCKFS_CONFIG_FILE (default
// `$HOME/.config/blockfs.yaml`) and then applies BLOCKFS_* environment
// variables on top. A missing file is not an error.
func LoadConfig() (*Config, error) {
	configFile := os.Getenv(envVarPrefix + "_CONFIG_FILE")
	if configFile == "" {
		configFile = filepath.Join(
			os.Getenv("HOME"),
			".config",
			appName+".yaml",
		)
	}

	c := Config{Config: filesystem.DefaultConfig("")}
	data, err := ioutil.ReadFile(configFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.UnmarshalStrict(data, &c); err != nil {
			return nil, fmt.Errorf("unmarshaling config file: %w", err)
		}
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}

	return &c, nil
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf(
			"missing required configuration: addr / %s_ADDR",
			envVarPrefix,
		)
	}
	if err := c.Config.Validate(); err != nil {
		return fmt.Errorf(
			"%w (devicePath / %s_DEVICE_PATH, blockCount / %s_BLOCK_COUNT)",
			err,
			envVarPrefix,
			envVarPrefix,
		)
	}
	return nil
}
