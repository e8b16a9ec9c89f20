// Package config loads notion-knowledge-mcp settings from a YAML file, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/brbranch/notion_knowledge_mcp/internal/notion"
)

// 環境変数名の定数
const (
	EnvNotionToken      = "NOTION_TOKEN"
	EnvNotionDatabaseID = "NOTION_DATABASE_ID"
	EnvNotionBaseURL    = "NOTION_BASE_URL"
	EnvLogLevel         = "KNOWLEDGE_MCP_LOG_LEVEL"
	EnvLogFormat        = "KNOWLEDGE_MCP_LOG_FORMAT"
)

// トランスポート種別
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// エラー定義
var (
	ErrTokenRequired      = errors.New(EnvNotionToken + " is required")
	ErrDatabaseIDRequired = errors.New(EnvNotionDatabaseID + " is required")
	ErrInvalidTransport   = errors.New("invalid transport")
	ErrInvalidPort        = errors.New("invalid port")
)

// Config はアプリケーション全体の設定
type Config struct {
	Notion  NotionConfig  `yaml:"notion"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// NotionConfig はNotion APIの接続設定
type NotionConfig struct {
	Token      string `yaml:"token"`
	DatabaseID string `yaml:"database_id"`
	BaseURL    string `yaml:"base_url"`
	Version    string `yaml:"version"`
}

// ServerConfig はトランスポート設定
type ServerConfig struct {
	Transport   string   `yaml:"transport"`
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// LoggingConfig はログ設定
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Notion: NotionConfig{
			BaseURL: notion.DefaultBaseURL,
			Version: notion.DefaultVersion,
		},
		Server: ServerConfig{
			Transport:   TransportStdio,
			Host:        "localhost",
			Port:        8765,
			CORSOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load は設定を読み込む
// 優先順位: 環境変数（.env含む） > 設定ファイル > デフォルト
// .envは設定ファイルより先に読み込むので、設定ファイル内の ${VAR} からも参照できる。
// pathが空の場合はデフォルトパスを使い、ファイルが存在しなければデフォルト設定のまま進む。
// 検証は行わないので、呼び出し側でServer.ValidateとCredentialsErrorを呼ぶこと
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get default config path: %w", err)
		}
		path = defaultPath
	}

	// .envは存在すれば読み込む（既存の環境変数は上書きしない）
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := Default()
	if err := loadFile(cfg, path, explicit); err != nil {
		return nil, err
	}

	ApplyEnvOverrides(cfg)
	return cfg, nil
}

// loadFile はYAML設定ファイルを読み込む
// 値の中の ${VAR} は環境変数で展開する
func loadFile(cfg *Config, path string, explicit bool) error {
	expanded, err := ExpandTilde(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// ApplyEnvOverrides は環境変数による設定上書きを適用する
// cfg を直接変更する
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvNotionToken); v != "" {
		cfg.Notion.Token = v
	}
	if v := os.Getenv(EnvNotionDatabaseID); v != "" {
		cfg.Notion.DatabaseID = v
	}
	if v := os.Getenv(EnvNotionBaseURL); v != "" {
		cfg.Notion.BaseURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Logging.Format = v
	}
}

// Validate はトランスポート設定を検証する
func (s ServerConfig) Validate() error {
	switch s.Transport {
	case TransportStdio:
		return nil
	case TransportHTTP:
		if s.Port < 1 || s.Port > 65535 {
			return fmt.Errorf("%w: %d", ErrInvalidPort, s.Port)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q (must be %q or %q)", ErrInvalidTransport, s.Transport, TransportStdio, TransportHTTP)
	}
}

// CredentialsError は資格情報の不足をまとめて返す（errors.Isでそれぞれ判定可能）
func (c *Config) CredentialsError() error {
	var errs []error
	if c.Notion.Token == "" {
		errs = append(errs, ErrTokenRequired)
	}
	if c.Notion.DatabaseID == "" {
		errs = append(errs, ErrDatabaseIDRequired)
	}
	return errors.Join(errs...)
}
