// Package jsonrpc implements the MCP JSON-RPC 2.0 dispatcher for notion-knowledge-mcp.
package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/brbranch/notion_knowledge_mcp/internal/logging"
	"github.com/brbranch/notion_knowledge_mcp/internal/model"
	"github.com/brbranch/notion_knowledge_mcp/internal/service"
)

// ServerVersion はサーバーのバージョン（WithVersionで上書き可能）
var ServerVersion = "1.0.0"

// Handler はJSON-RPCリクエストを処理する
// 呼び出し間で状態を持たないので、複数goroutineから同時に使ってよい
type Handler struct {
	knowledge service.KnowledgeService
	logger    *slog.Logger
	version   string
}

// Option はHandlerのオプション
type Option func(*Handler)

// WithLogger はロガーを設定
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithVersion はinitializeで返すバージョンを設定
func WithVersion(version string) Option {
	return func(h *Handler) {
		if version != "" {
			h.version = version
		}
	}
}

// New は新しいHandlerを生成
func New(knowledge service.KnowledgeService, opts ...Option) *Handler {
	h := &Handler{
		knowledge: knowledge,
		logger:    logging.Nop(),
		version:   ServerVersion,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle はJSON-RPCリクエストをパースしてディスパッチ
// 戻り値は *model.Response または *model.ErrorResponse のJSON bytes。
// 応答不要の通知の場合はnilを返す
func (h *Handler) Handle(ctx context.Context, requestBytes []byte) []byte {
	// 1. パース
	if !json.Valid(requestBytes) {
		return h.encode(model.NewParseError("invalid JSON"))
	}
	var req model.Request
	if err := json.Unmarshal(requestBytes, &req); err != nil {
		return h.encode(model.NewInvalidRequest(nil, err.Error()))
	}

	// 2. バージョン確認
	if req.JSONRPC != "2.0" {
		return h.encode(model.NewInvalidRequest(req.ID, "jsonrpc must be 2.0"))
	}

	// 3. method確認
	if req.Method == "" {
		return h.encode(model.NewInvalidRequest(req.ID, "method is required"))
	}

	// 4. 通知は処理のみで応答しない
	if req.IsNotification() && strings.HasPrefix(req.Method, "notifications/") {
		h.logger.Debug("notification received", slog.String("method", req.Method))
		return nil
	}

	// 5. ディスパッチ
	result, err := h.dispatch(ctx, req.Method, req.Params)
	if err != nil {
		return h.encode(h.mapError(req.ID, err))
	}

	// 6. 成功レスポンス
	return h.encode(model.NewResponse(req.ID, result))
}

// dispatch はメソッドに応じて適切なハンドラーを呼び出す
func (h *Handler) dispatch(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "initialize":
		return h.handleInitialize(ctx, params)
	case "ping":
		return struct{}{}, nil
	case "tools/list":
		return h.handleToolsList(ctx)
	case "tools/call":
		return h.handleToolsCall(ctx, params)
	default:
		return nil, &methodNotFoundError{method: method}
	}
}

// mapError はエラーをJSON-RPCエラーに変換
func (h *Handler) mapError(id json.RawMessage, err error) *model.ErrorResponse {
	// method not found
	var mnfErr *methodNotFoundError
	if errors.As(err, &mnfErr) {
		return model.NewMethodNotFound(id, mnfErr.method)
	}

	// tool not found
	var tnfErr *toolNotFoundError
	if errors.As(err, &tnfErr) {
		return model.NewErrorResponse(id, model.ErrCodeMethodNotFound, "Tool not found", tnfErr.name)
	}

	// invalid request
	var irErr *invalidRequestError
	if errors.As(err, &irErr) {
		return model.NewInvalidRequest(id, irErr.message)
	}

	// invalid params
	var ipErr *invalidParamsError
	if errors.As(err, &ipErr) {
		var data any
		if len(ipErr.details) > 0 {
			data = ipErr.details
		}
		return model.NewInvalidParams(id, ipErr.message, data)
	}

	// internal error
	return model.NewInternalError(id, err.Error())
}

func (h *Handler) encode(resp any) []byte {
	b, err := json.Marshal(resp)
	if err != nil {
		h.logger.Error("failed to encode response", slog.Any("error", err))
		b, _ = json.Marshal(model.NewInternalError(nil, "failed to encode response"))
	}
	return b
}

// methodNotFoundError はメソッド未検出エラー
type methodNotFoundError struct {
	method string
}

func (e *methodNotFoundError) Error() string {
	return "method not found: " + e.method
}

// toolNotFoundError は未登録ツールのエラー
type toolNotFoundError struct {
	name string
}

func (e *toolNotFoundError) Error() string {
	return "unknown tool: " + e.name
}

// invalidRequestError はエンベロープ/必須パラメータ不備のエラー
type invalidRequestError struct {
	message string
}

func (e *invalidRequestError) Error() string {
	return e.message
}

// invalidParamsError はツール引数の検証エラー
type invalidParamsError struct {
	message string
	details []string
}

func (e *invalidParamsError) Error() string {
	return e.message
}

// IsProtocolError はCallToolのエラーがプロトコルレベル（未登録ツール・引数不正）かを返す
func IsProtocolError(err error) bool {
	var tnfErr *toolNotFoundError
	var ipErr *invalidParamsError
	return errors.As(err, &tnfErr) || errors.As(err, &ipErr)
}
