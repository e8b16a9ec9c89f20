// Package logging builds the slog loggers used by notion-knowledge-mcp.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format はログの出力形式
type Format string

// 出力形式
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config はロガー設定
type Config struct {
	Level  slog.Level
	Format Format
	// Output は出力先。stdioトランスポートではstdoutを使わないこと（既定はstderr）
	Output io.Writer
}

// New は設定からロガーを生成する
func New(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(cfg.Output, opts)
	default:
		handler = slog.NewTextHandler(cfg.Output, opts)
	}
	return slog.New(handler)
}

// Nop は何も出力しないロガーを返す
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel はレベル文字列を解釈する。未知の値はInfo
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseFormat は出力形式文字列を解釈する。未知の値はtext
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatJSON)) {
		return FormatJSON
	}
	return FormatText
}
