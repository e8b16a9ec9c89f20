package main

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/brbranch/notion_knowledge_mcp/internal/bootstrap"
	"github.com/brbranch/notion_knowledge_mcp/internal/config"
	"github.com/brbranch/notion_knowledge_mcp/internal/transport/http"
	"github.com/brbranch/notion_knowledge_mcp/internal/transport/stdio"
)

// serveOptions はserveコマンドのフラグ
type serveOptions struct {
	Transport string
	Host      string
	Port      int
}

func addServeFlags(cmd *cobra.Command, opts *serveOptions) {
	cmd.Flags().StringVarP(&opts.Transport, "transport", "t", "", "Transport type: stdio, http (default from config, stdio)")
	cmd.Flags().StringVar(&opts.Host, "host", "", "HTTP host (default from config, localhost)")
	cmd.Flags().IntVarP(&opts.Port, "port", "p", 0, "HTTP port (default from config, 8765)")
}

// newServeCmd はserveコマンドを生成する
func newServeCmd(global *globalOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio or HTTP)",
		Example: `  knowledge-mcp serve
  knowledge-mcp serve -t http -p 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, global, opts)
		},
	}
	addServeFlags(cmd, opts)
	return cmd
}

// runServe はserveコマンドを実行
func runServe(cmd *cobra.Command, global *globalOptions, opts *serveOptions) error {
	services, cleanup, err := bootstrap.Initialize(bootstrap.Options{
		ConfigPath: global.ConfigPath,
		Transport:  opts.Transport,
		Host:       opts.Host,
		Port:       opts.Port,
		LogLevel:   global.LogLevel,
		Version:    version,
		LogOutput:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	cfg := services.Config

	switch cfg.Server.Transport {
	case config.TransportStdio:
		// stdioでは設定不足は起動失敗
		if services.ConfigErr != nil {
			return fmt.Errorf("invalid configuration: %w", services.ConfigErr)
		}
		server := stdio.New(services.Handler,
			stdio.WithReader(cmd.InOrStdin()),
			stdio.WithWriter(cmd.OutOrStdout()),
			stdio.WithLogger(services.Logger),
		)
		return server.Run(ctx)
	case config.TransportHTTP:
		// HTTPでは起動し、全リクエストに500を返す
		var dispatcher http.Dispatcher
		if services.Handler != nil {
			dispatcher = services.Handler
		}
		server := http.New(dispatcher, http.Config{
			Addr:        net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
			CORSOrigins: cfg.Server.CORSOrigins,
			Version:     version,
			DatabaseID:  cfg.Notion.DatabaseID,
			ConfigErr:   services.ConfigErr,
			Logger:      services.Logger.With(slog.String("component", "http")),
		})
		return server.Run(ctx)
	default:
		return fmt.Errorf("unknown transport: %s", cfg.Server.Transport)
	}
}
