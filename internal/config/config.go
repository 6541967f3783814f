package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kong/portpurge/internal/util/viper"
	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

// Empty type to represent the _type_ Config. Genesis is to support a key in a Context
type Key struct{}

// Config is a global instance of the Key type
var ConfigKey = Key{}

// Hook is the read side of the configuration system that commands depend on.
// Values resolve flag > environment > config file > default.
type Hook interface {
	GetString(key string) string
	GetBool(key string) bool
	GetInt(key string) int
	GetIntOrElse(key string, orElse int) int
	GetDuration(key string) time.Duration
	IsSet(key string) bool
	SetDefault(key string, value any)
	// BindFlag takes a specific configuration path and
	// binds it to a specific flag
	BindFlag(configPath string, f *pflag.Flag) error
	// The file path used to load this configuration, empty when none was given
	GetPath() string
}

// ViperConfig implements Hook on top of a viper instance.
type ViperConfig struct {
	*v.Viper
	Path string
}

func (c *ViperConfig) GetIntOrElse(key string, orElse int) int {
	if c.IsSet(key) {
		return c.GetInt(key)
	}
	return orElse
}

func (c *ViperConfig) BindFlag(configPath string, f *pflag.Flag) error {
	if f == nil {
		return fmt.Errorf("cannot bind %q to an undefined flag", configPath)
	}
	return c.BindPFlag(configPath, f)
}

func (c *ViperConfig) GetPath() string {
	return c.Path
}

// GetConfig returns the configuration for this invocation. The config file is
// optional and never written; when path is empty only flags, environment
// variables and defaults are consulted.
func GetConfig(path string) (*ViperConfig, error) {
	path = strings.TrimSpace(os.ExpandEnv(path))
	if path == "" {
		return &ViperConfig{Viper: viper.NewEnvViper()}, nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("the provided config file path does not exist: %s", path)
	}
	vip, err := viper.NewViperE(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return &ViperConfig{Viper: vip, Path: path}, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. Variables that are already set keep their value.
func LoadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
