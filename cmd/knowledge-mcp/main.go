package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// ビルド時変数（-ldflags で変更可能）
var version = "dev"

// errSilent は既にメッセージを出力済みで、終了コードだけ返したい場合のエラー
var errSilent = errors.New("silent failure")

var errorColor = color.New(color.FgRed)

// globalOptions は全コマンド共通のフラグ
type globalOptions struct {
	ConfigPath string
	LogLevel   string
}

func main() {
	if err := execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// execute はコマンドを実行する（テスト容易性のため分離）
// SIGINT/SIGTERMでcontextをキャンセルする
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errSilent) {
		errorColor.Fprintf(stderr, "error: %v\n", err)
	}
	return err
}

// newRootCmd はルートコマンドを生成する
// サブコマンドなしの場合はserveとして動作する
func newRootCmd() *cobra.Command {
	global := &globalOptions{}
	serveOpts := &serveOptions{}

	root := &cobra.Command{
		Use:   "knowledge-mcp",
		Short: "Notion Knowledge Base MCP Server",
		Long: `knowledge-mcp exposes a Notion database as a programming knowledge base
through the Model Context Protocol (stdio or HTTP).

Required configuration:
  NOTION_TOKEN         Notion integration token
  NOTION_DATABASE_ID   Target database id`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, global, serveOpts)
		},
	}

	root.PersistentFlags().StringVarP(&global.ConfigPath, "config", "c", "", "Config file path (default ~/.notion-knowledge-mcp/config.yaml)")
	root.PersistentFlags().StringVar(&global.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	addServeFlags(root, serveOpts)

	root.AddCommand(
		newServeCmd(global),
		newCallCmd(global),
		newToolsCmd(),
		newVersionCmd(),
	)
	return root
}

// newVersionCmd はversionコマンドを生成する
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "knowledge-mcp version %s\n", version)
		},
	}
}
