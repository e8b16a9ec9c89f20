package jsonrpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/brbranch/notion_knowledge_mcp/internal/model"
)

// handleInitialize は initialize メソッドを処理
// パラメータは記録にのみ使い、不正でもエラーにしない
func (h *Handler) handleInitialize(_ context.Context, params json.RawMessage) (any, error) {
	var p model.InitializeParams
	if len(params) > 0 && json.Unmarshal(params, &p) == nil {
		h.logger.Info("client initialized",
			slog.String("client", p.ClientInfo.Name),
			slog.String("clientVersion", p.ClientInfo.Version),
			slog.String("protocolVersion", p.ProtocolVersion))
	}

	return &model.InitializeResult{
		ProtocolVersion: model.ProtocolVersion,
		ServerInfo: model.ServerInfo{
			Name:        model.ServerName,
			Version:     h.version,
			Description: "Notion Knowledge Base MCP Server",
		},
		Capabilities: model.Capabilities{
			Tools: &model.ToolsCapability{},
		},
	}, nil
}

// handleToolsList は tools/list メソッドを処理
func (h *Handler) handleToolsList(_ context.Context) (any, error) {
	return &model.ToolsListResult{
		Tools: h.Tools(),
	}, nil
}

// handleToolsCall は tools/call メソッドを処理
func (h *Handler) handleToolsCall(ctx context.Context, params json.RawMessage) (any, error) {
	var p model.ToolsCallParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &invalidParamsError{message: "invalid tools/call params: " + err.Error()}
		}
	}

	// ツール名必須チェック
	if p.Name == "" {
		return nil, &invalidRequestError{message: "params.name is required"}
	}

	return h.CallTool(ctx, p.Name, p.Arguments)
}

// Tools は登録済みツールの定義を返す
func (h *Handler) Tools() []model.Tool {
	return tools.list
}

// CallTool はツールを実行する
// 未登録ツール・引数不正はerrorを返し、その場合リモートへのリクエストは行わない。
// 実行時の失敗はisError付きの結果として返す
func (h *Handler) CallTool(ctx context.Context, name string, args map[string]any) (*model.ToolsCallResult, error) {
	tool, ok := tools.lookup(name)
	if !ok {
		return nil, &toolNotFoundError{name: name}
	}
	if args == nil {
		args = map[string]any{}
	}

	if err := tool.validate(args); err != nil {
		return nil, err
	}

	callID := uuid.NewString()
	logger := h.logger.With(slog.String("call_id", callID), slog.String("tool", name))
	start := time.Now()

	result, err := tool.call(h, ctx, tool.withDefaults(args))
	if err != nil {
		logger.Warn("tool arguments rejected", slog.Any("error", err))
		return nil, err
	}

	logger.Info("tool call finished",
		slog.Duration("duration", time.Since(start)),
		slog.Bool("isError", result.IsError))
	return result, nil
}
