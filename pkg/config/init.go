package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fystack/kvcache/pkg/common/pathutil"
	"github.com/fystack/kvcache/pkg/kvstore"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

const envPrefix = "KVCACHE"

var environments = []string{"development", "test", "production"}

type AppConfig struct {
	Environment string      `mapstructure:"environment"`
	Debug       bool        `mapstructure:"debug"`
	Store       StoreConfig `mapstructure:"store"`
}

type StoreConfig struct {
	Path          string `mapstructure:"path"`
	Autosync      bool   `mapstructure:"autosync"`
	FileMode      uint32 `mapstructure:"file_mode"`
	FlushAttempts uint   `mapstructure:"flush_attempts"`
}

// Options translates the store section into kvstore options.
func (c StoreConfig) Options() []kvstore.Option {
	return []kvstore.Option{
		kvstore.WithAutosync(c.Autosync),
		kvstore.WithFileMode(os.FileMode(c.FileMode)),
		kvstore.WithFlushAttempts(c.FlushAttempts),
	}
}

func (c *AppConfig) Validate() error {
	if !lo.Contains(environments, c.Environment) {
		return fmt.Errorf("invalid environment %q: must be one of %s", c.Environment, strings.Join(environments, ", "))
	}
	if err := pathutil.ValidateFilePath(c.Store.Path); err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	if c.Store.FlushAttempts < 1 {
		return fmt.Errorf("store.flush_attempts must be at least 1")
	}
	if c.Store.FileMode == 0 || c.Store.FileMode > 0777 {
		return fmt.Errorf("store.file_mode %#o out of range", c.Store.FileMode)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("debug", false)
	viper.SetDefault("store.path", kvstore.DefaultPath)
	viper.SetDefault("store.autosync", false)
	viper.SetDefault("store.file_mode", 0600)
	viper.SetDefault("store.flush_attempts", 1)
}

// InitViperConfig reads configFile, or config.yaml from the working directory
// when configFile is empty. A missing config.yaml is not an error; KVCACHE_*
// environment variables and defaults still apply. When a config file is read,
// LoadConfig resolves a relative store.path against its directory.
func InitViperConfig(configFile string) error {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config") // name of config file (without extension)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func LoadConfig() (*AppConfig, error) {
	var config AppConfig
	decoderConfig := &mapstructure.DecoderConfig{
		Result:           &config,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}

	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(viper.AllSettings()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := resolveStorePath(&config.Store); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// resolveStorePath anchors a relative store.path to the directory of the
// config file in use, so the store does not move with the working directory.
func resolveStorePath(c *StoreConfig) error {
	used := viper.ConfigFileUsed()
	if used == "" || c.Path == "" || filepath.IsAbs(c.Path) {
		return nil
	}
	path, err := pathutil.SafePath(filepath.Dir(used), c.Path)
	if err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	c.Path = path
	return nil
}
