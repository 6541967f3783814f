package viper

import (
	"strings"

	"github.com/kong/portpurge/internal/meta"
	v "github.com/spf13/viper"
)

// NewViperE builds a viper that reads the given config file, failing when the
// file cannot be read or parsed.
func NewViperE(path string) (*v.Viper, error) {
	rv := NewEnvViper()
	rv.SetConfigFile(path)
	if err := rv.ReadInConfig(); err != nil {
		return nil, err
	}
	return rv, nil
}

// NewEnvViper builds a viper with no backing file. Keys resolve from bound
// flags, then from PORT_* environment variables, then from defaults.
func NewEnvViper() *v.Viper {
	rv := v.New()
	ConfigureEnvVars(rv, meta.EnvPrefix)
	return rv
}

// ConfigureEnvVars maps "client-id" style keys onto PREFIX_CLIENT_ID.
func ConfigureEnvVars(rv *v.Viper, prefix string) {
	rv.SetEnvPrefix(prefix)
	rv.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	rv.AutomaticEnv()
}
