package config

import (
	"time"

	"github.com/spf13/pflag"
)

// MockConfigHook implements config.Hook. Unset funcs return zero values.
type MockConfigHook struct {
	GetStringMock    func(key string) string
	GetBoolMock      func(key string) bool
	GetIntMock       func(key string) int
	GetIntOrElseMock func(key string, orElse int) int
	GetDurationMock  func(key string) time.Duration
	IsSetMock        func(key string) bool
	SetDefaultMock   func(key string, value any)
	BindFlagMock     func(string, *pflag.Flag) error
	GetPathMock      func() string
}

func (m *MockConfigHook) GetString(key string) string {
	if m.GetStringMock == nil {
		return ""
	}
	return m.GetStringMock(key)
}

func (m *MockConfigHook) GetBool(key string) bool {
	if m.GetBoolMock == nil {
		return false
	}
	return m.GetBoolMock(key)
}

func (m *MockConfigHook) GetInt(key string) int {
	if m.GetIntMock == nil {
		return 0
	}
	return m.GetIntMock(key)
}

func (m *MockConfigHook) GetIntOrElse(key string, orElse int) int {
	if m.GetIntOrElseMock != nil {
		return m.GetIntOrElseMock(key, orElse)
	}
	return orElse
}

func (m *MockConfigHook) GetDuration(key string) time.Duration {
	if m.GetDurationMock == nil {
		return 0
	}
	return m.GetDurationMock(key)
}

func (m *MockConfigHook) IsSet(key string) bool {
	if m.IsSetMock == nil {
		return false
	}
	return m.IsSetMock(key)
}

func (m *MockConfigHook) SetDefault(key string, value any) {
	if m.SetDefaultMock != nil {
		m.SetDefaultMock(key, value)
	}
}

func (m *MockConfigHook) BindFlag(configPath string, f *pflag.Flag) error {
	if m.BindFlagMock == nil {
		return nil
	}
	return m.BindFlagMock(configPath, f)
}

func (m *MockConfigHook) GetPath() string {
	if m.GetPathMock == nil {
		return ""
	}
	return m.GetPathMock()
}
