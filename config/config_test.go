package config

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeErrorMessage(t *testing.T) {
	fallback := "operation failed"
	testErr := errors.New("internal database error")

	// nil err 返回 fallback
	assert.Equal(t, fallback, SafeErrorMessage(nil, fallback))

	// release 模式返回 fallback，不暴露错误详情
	GlobalConfig = &Config{Server: ServerConfig{Mode: "release"}}
	defer func() { GlobalConfig = nil }()
	assert.Equal(t, fallback, SafeErrorMessage(testErr, fallback))

	// debug 模式返回 err.Error()
	GlobalConfig = &Config{Server: ServerConfig{Mode: "debug"}}
	assert.Equal(t, "internal database error", SafeErrorMessage(testErr, fallback))

	// GlobalConfig 为 nil 时视为开发环境
	GlobalConfig = nil
	assert.Equal(t, "internal database error", SafeErrorMessage(testErr, fallback))
}

func TestLoadConfig_Defaults(t *testing.T) {
	defer func() { GlobalConfig = nil }()

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, 10*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "rule", cfg.Insight.Mode)
	assert.Equal(t, "message", cfg.Insight.Fallback)
	assert.Equal(t, "₹", cfg.Insight.CurrencySymbol)
	assert.Same(t, cfg, GetConfig())
}

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	defer func() { GlobalConfig = nil }()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
database:
  driver: sqlite
  sqlite_path: /tmp/test.db
ai:
  enabled: true
  timeout_seconds: 3
insight:
  mode: ai
  fallback: rule
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("EXPENSEAI_AI_MODEL", "llama3")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/test.db", cfg.Database.SQLitePath)
	assert.True(t, cfg.AI.Enabled)
	assert.Equal(t, 3*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "llama3", cfg.AI.Model)
	assert.Equal(t, "ai", cfg.Insight.Mode)
	assert.Equal(t, "rule", cfg.Insight.Fallback)
	// 未覆盖的保持默认
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoadConfig_RejectsUnknownEnum(t *testing.T) {
	defer func() { GlobalConfig = nil }()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("insight:\n  mode: magic\n"), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insight mode")
	assert.Nil(t, GlobalConfig)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Database: DatabaseConfig{Driver: "sqlite"},
		Insight:  InsightConfig{Mode: "ai", Fallback: "message"},
	}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.Database.Driver = "postgres"
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Insight.Fallback = "silence"
	assert.Error(t, bad.Validate())
}

func TestGetConfig_PanicsWhenUninitialized(t *testing.T) {
	GlobalConfig = nil
	assert.Panics(t, func() { GetConfig() })
}

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logger := setupLogger(LogConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "***", mask("abc"))
	assert.Equal(t, "sk****yz", mask("sk1234yz"))
}
