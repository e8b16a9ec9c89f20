package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brbranch/notion_knowledge_mcp/internal/notion"
)

// clearEnv はテスト中の環境変数を空にする
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvNotionToken, EnvNotionDatabaseID, EnvNotionBaseURL, EnvLogLevel, EnvLogFormat} {
		t.Setenv(key, "")
	}
	// .envを拾わないよう空のディレクトリで実行する
	t.Chdir(t.TempDir())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, notion.DefaultBaseURL, cfg.Notion.BaseURL)
	assert.Equal(t, notion.DefaultVersion, cfg.Notion.Version)
	assert.Equal(t, TransportStdio, cfg.Server.Transport)
	assert.Equal(t, 8765, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_NOTION_SECRET", "secret-from-env")

	path := writeConfig(t, `
notion:
  token: ${TEST_NOTION_SECRET}
  database_id: db-123
server:
  transport: http
  port: 9000
  cors_origins:
    - https://example.com
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "secret-from-env", cfg.Notion.Token)
	assert.Equal(t, "db-123", cfg.Notion.DatabaseID)
	assert.Equal(t, notion.DefaultBaseURL, cfg.Notion.BaseURL, "unset keys keep defaults")
	assert.Equal(t, TransportHTTP, cfg.Server.Transport)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, []string{"https://example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.NoError(t, cfg.CredentialsError())
	assert.NoError(t, cfg.Server.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
notion:
  token: file-token
  database_id: file-db
`)
	t.Setenv(EnvNotionToken, "env-token")
	t.Setenv(EnvNotionBaseURL, "http://localhost:1234/v1")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Notion.Token)
	assert.Equal(t, "file-db", cfg.Notion.DatabaseID)
	assert.Equal(t, "http://localhost:1234/v1", cfg.Notion.BaseURL)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	// clearEnvで空文字を設定しているため、godotenvに上書きさせるには未設定にする
	require.NoError(t, os.Unsetenv(EnvNotionDatabaseID))
	t.Cleanup(func() { os.Unsetenv(EnvNotionDatabaseID) })
	require.NoError(t, os.WriteFile(".env", []byte(EnvNotionDatabaseID+"=db-from-dotenv\n"), 0o600))

	cfg, err := Load(writeConfig(t, "notion:\n  token: tok\n"))
	require.NoError(t, err)

	assert.Equal(t, "db-from-dotenv", cfg.Notion.DatabaseID)
	assert.Equal(t, "tok", cfg.Notion.Token)
}

func TestLoad_DotEnvExpandsConfigFile(t *testing.T) {
	clearEnv(t)
	const key = "NOTION_KNOWLEDGE_DOTENV_TOKEN"
	require.NoError(t, os.Unsetenv(key))
	t.Cleanup(func() { os.Unsetenv(key) })
	require.NoError(t, os.WriteFile(".env", []byte(key+"=from-dotenv\n"), 0o600))

	cfg, err := Load(writeConfig(t, "notion:\n  token: ${"+key+"}\n  database_id: db\n"))
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.Notion.Token)
	assert.Equal(t, "db", cfg.Notion.DatabaseID)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, "notion: [unterminated"))
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestConfigChecks(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr []error
	}{
		{
			name: "valid stdio",
			modify: func(c *Config) {
				c.Notion.Token = "t"
				c.Notion.DatabaseID = "d"
			},
		},
		{
			name:    "missing both credentials",
			modify:  func(c *Config) {},
			wantErr: []error{ErrTokenRequired, ErrDatabaseIDRequired},
		},
		{
			name: "missing database id",
			modify: func(c *Config) {
				c.Notion.Token = "t"
			},
			wantErr: []error{ErrDatabaseIDRequired},
		},
		{
			name: "invalid transport",
			modify: func(c *Config) {
				c.Notion.Token = "t"
				c.Notion.DatabaseID = "d"
				c.Server.Transport = "sse"
			},
			wantErr: []error{ErrInvalidTransport},
		},
		{
			name: "invalid http port",
			modify: func(c *Config) {
				c.Notion.Token = "t"
				c.Notion.DatabaseID = "d"
				c.Server.Transport = TransportHTTP
				c.Server.Port = 70000
			},
			wantErr: []error{ErrInvalidPort},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := errors.Join(cfg.Server.Validate(), cfg.CredentialsError())
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.True(t, errors.Is(err, want), "expected %v in %v", want, err)
			}
		})
	}
}

func TestCredentialsError_IgnoresServer(t *testing.T) {
	cfg := Default()
	cfg.Notion.Token = "t"
	cfg.Notion.DatabaseID = "d"
	cfg.Server.Transport = "bogus"

	assert.NoError(t, cfg.CredentialsError())
	assert.ErrorIs(t, cfg.Server.Validate(), ErrInvalidTransport)
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/a/b", filepath.Join(home, "a", "b")},
		{"~user/x", "~user/x"},
		{"/abs/path", "/abs/path"},
	}
	for _, tt := range tests {
		got, err := ExpandTilde(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := DefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, DefaultConfigDir, DefaultConfigFile), path)
}
