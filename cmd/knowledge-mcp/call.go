package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/brbranch/notion_knowledge_mcp/internal/bootstrap"
	"github.com/brbranch/notion_knowledge_mcp/internal/jsonrpc"
)

// newCallCmd はcallコマンドを生成する
func newCallCmd(global *globalOptions) *cobra.Command {
	var argsJSON string
	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Call a tool once and print the result",
		Example: `  knowledge-mcp call get_knowledge_stats
  knowledge-mcp call search_knowledge --args '{"query":"goroutine","limit":5}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, global, args[0], argsJSON)
		},
	}
	cmd.Flags().StringVarP(&argsJSON, "args", "a", "{}", "Tool arguments as a JSON object")
	return cmd
}

// runCall はツールを1回呼び出して結果を表示する
// ツールがエラー結果を返した場合は赤字で表示し、非0で終了する
func runCall(cmd *cobra.Command, global *globalOptions, name, argsJSON string) error {
	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return fmt.Errorf("--args must be a JSON object: %w", err)
	}

	services, cleanup, err := bootstrap.Initialize(bootstrap.Options{
		ConfigPath: global.ConfigPath,
		LogLevel:   global.LogLevel,
		Version:    version,
		LogOutput:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer cleanup()

	if services.ConfigErr != nil {
		return fmt.Errorf("invalid configuration: %w", services.ConfigErr)
	}

	result, err := services.Handler.CallTool(cmd.Context(), name, args)
	if err != nil {
		return err
	}

	if result.IsError {
		errorColor.Fprintln(cmd.ErrOrStderr(), result.Text())
		return errSilent
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Text())
	return nil
}

// newToolsCmd はtoolsコマンドを生成する
// ツール定義は静的なので設定なしで表示できる
func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, tool := range jsonrpc.New(nil).Tools() {
				fmt.Fprintf(w, "%s\t%s\n", tool.Name, tool.Description)
			}
			w.Flush()
		},
	}
}
