// Package bootstrap provides common initialization logic for notion-knowledge-mcp.
package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/brbranch/notion_knowledge_mcp/internal/config"
	"github.com/brbranch/notion_knowledge_mcp/internal/jsonrpc"
	"github.com/brbranch/notion_knowledge_mcp/internal/logging"
	"github.com/brbranch/notion_knowledge_mcp/internal/notion"
	"github.com/brbranch/notion_knowledge_mcp/internal/service"
)

// Options はコマンドラインからの上書き値
// ゼロ値のフィールドは設定ファイル/環境変数の値を使う
type Options struct {
	ConfigPath string
	Transport  string
	Host       string
	Port       int
	LogLevel   string
	Version    string
	// LogOutput はログ出力先（既定はstderr）
	LogOutput io.Writer
}

// Services は初期化されたサービス群を保持
type Services struct {
	Config *config.Config
	Logger *slog.Logger

	// Knowledge と Handler は資格情報が揃っている場合のみ非nil
	Knowledge service.KnowledgeService
	Handler   *jsonrpc.Handler

	// ConfigErr は不足している資格情報のエラー
	// stdio/CLIでは起動失敗、HTTPでは全リクエストに500を返すために使う
	ConfigErr error
}

// Initialize は設定を読み込み、必要なサービスを初期化する
// 資格情報の不足はエラーにせず Services.ConfigErr に設定する。
// 返されたcleanupは常に呼び出すこと
func Initialize(opts Options) (*Services, func(), error) {
	// 1. 設定読み込み
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyOptions(cfg, opts)

	if err := cfg.Server.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid server config: %w", err)
	}

	// 2. ロガー
	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: logging.ParseFormat(cfg.Logging.Format),
		Output: opts.LogOutput,
	})

	services := &Services{
		Config: cfg,
		Logger: logger,
	}
	if err := cfg.CredentialsError(); err != nil {
		services.ConfigErr = err
		return services, func() {}, nil
	}

	// 3. Notionクライアント
	httpClient := &http.Client{}
	client, err := notion.NewClient(cfg.Notion.Token,
		notion.WithBaseURL(cfg.Notion.BaseURL),
		notion.WithVersion(cfg.Notion.Version),
		notion.WithHTTPClient(httpClient),
		notion.WithLogger(logger.With(slog.String("component", "notion"))),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create notion client: %w", err)
	}

	// 4. サービスとディスパッチャ
	knowledge, err := service.NewKnowledgeService(client, cfg.Notion.DatabaseID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create knowledge service: %w", err)
	}
	services.Knowledge = knowledge
	services.Handler = jsonrpc.New(knowledge,
		jsonrpc.WithLogger(logger.With(slog.String("component", "jsonrpc"))),
		jsonrpc.WithVersion(opts.Version),
	)

	cleanup := func() {
		httpClient.CloseIdleConnections()
	}
	return services, cleanup, nil
}

// applyOptions はコマンドラインの値で設定を上書きする
func applyOptions(cfg *config.Config, opts Options) {
	if opts.Transport != "" {
		cfg.Server.Transport = opts.Transport
	}
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Server.Port = opts.Port
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
}
