// Package http implements the HTTP transport for notion-knowledge-mcp.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/brbranch/notion_knowledge_mcp/internal/format"
	"github.com/brbranch/notion_knowledge_mcp/internal/jsonrpc"
	"github.com/brbranch/notion_knowledge_mcp/internal/logging"
	"github.com/brbranch/notion_knowledge_mcp/internal/model"
)

// MaxBodySize はリクエストボディの上限（1MB）
const MaxBodySize = 1024 * 1024

// timestampLayout はミリ秒付きISO 8601
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Handler はJSON-RPCリクエストを処理する
// nilを返した場合は通知として扱い、202を返す
type Handler interface {
	Handle(ctx context.Context, requestBytes []byte) []byte
}

// ToolProvider はツール一覧と直接呼び出しを提供する
type ToolProvider interface {
	Tools() []model.Tool
	CallTool(ctx context.Context, name string, args map[string]any) (*model.ToolsCallResult, error)
}

// Dispatcher は /mcp と補助エンドポイントの両方を処理する
// *jsonrpc.Handler がこれを満たす
type Dispatcher interface {
	Handler
	ToolProvider
}

// Config はHTTPサーバー設定
type Config struct {
	Addr        string   // listen address (例: "127.0.0.1:8765")
	CORSOrigins []string // 許可するオリジンリスト、"*"で全許可、空ならCORS無効
	Version     string   // /health で返すバージョン
	DatabaseID  string   // トップページに表示するデータベースID

	// ConfigErr が非nilの場合、すべてのルートが500を返す（Dispatcherはnilでよい）
	ConfigErr error

	Logger *slog.Logger
}

// Server はHTTP JSON-RPCサーバー
type Server struct {
	dispatcher Dispatcher
	config     Config
	logger     *slog.Logger
	router     chi.Router
	srv        *http.Server
}

// New は新しいServerを生成
func New(dispatcher Dispatcher, config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	s := &Server{
		dispatcher: dispatcher,
		config:     config,
		logger:     logger,
	}
	s.router = s.routes()

	s.srv = &http.Server{
		Addr:              config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// routes はルーティングを構築
func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.cors)
	r.Use(s.requireConfig)
	r.Use(chimiddleware.RequestSize(MaxBodySize))

	r.Post("/mcp", s.handleRPC)
	r.Get("/health", s.handleHealth)
	r.Get("/tools", s.handleTools)
	r.Post("/call", s.handleCall)
	r.Get("/", s.handleIndex)
	r.NotFound(s.handleIndex)

	return r
}

// Handler はルーターを返す（テスト用）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はサーバーを起動し、contextがキャンセルされるまで実行
func (s *Server) Run(ctx context.Context) error {
	if s.config.ConfigErr != nil {
		s.logger.Error("configuration incomplete, all requests will fail",
			slog.Any("error", s.config.ConfigErr))
	}

	// contextキャンセル時にShutdownを呼ぶ
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown failed", slog.Any("error", err))
		}
	}()

	s.logger.Info("http transport started", slog.String("addr", s.config.Addr))
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		// Graceful shutdownはエラーではない
		return nil
	}
	return err
}

// handleRPC はJSON-RPCリクエストを処理
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	// Content-Type確認
	if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		http.Error(w, "Unsupported Media Type", http.StatusUnsupportedMediaType)
		return
	}

	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	respBytes := s.dispatcher.Handle(r.Context(), body)
	if respBytes == nil {
		// 通知には本文なしで応答
		w.WriteHeader(http.StatusAccepted)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(respBytes)
}

// healthResponse は /health のレスポンス
type healthResponse struct {
	Status          string           `json:"status"`
	ProtocolVersion string           `json:"protocolVersion"`
	ServerInfo      model.ServerInfo `json:"serverInfo"`
}

// handleHealth はヘルスチェック
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:          "ok",
		ProtocolVersion: model.ProtocolVersion,
		ServerInfo: model.ServerInfo{
			Name:    model.ServerName,
			Version: s.config.Version,
		},
	})
}

// handleTools はツール一覧を返す
func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, model.ToolsListResult{Tools: s.dispatcher.Tools()})
}

// callRequest は旧形式の /call リクエスト
type callRequest struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// callResponse は旧形式の /call レスポンス
type callResponse struct {
	Result    string `json:"result"`
	IsError   bool   `json:"isError"`
	Timestamp string `json:"timestamp"`
}

// handleCall は旧形式のツール呼び出し
// ツールのエラーも200で返し、isErrorで区別する
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	var req callRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON: " + err.Error()})
		return
	}
	if req.Method == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "method is required"})
		return
	}

	resp := callResponse{Timestamp: time.Now().UTC().Format(timestampLayout)}
	result, err := s.dispatcher.CallTool(r.Context(), req.Method, req.Params)
	switch {
	case err == nil:
		resp.Result = result.Text()
		resp.IsError = result.IsError
	case jsonrpc.IsProtocolError(err):
		// 未登録ツール・引数不正は呼び出し側の誤りとして結果に載せる
		resp.Result = format.ToolError(err)
		resp.IsError = true
	default:
		s.logger.Error("tool call failed", slog.String("tool", req.Method), slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleIndex はプレーンテキストの案内ページ
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	base := "http://" + r.Host
	if r.TLS != nil {
		base = "https://" + r.Host
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎉 Notion Knowledge MCP Server\n")
	fmt.Fprintf(&b, "=============================\n\n")
	fmt.Fprintf(&b, "📊 服務狀態: ✅ 正常運行 (MCP %s)\n", model.ProtocolVersion)
	fmt.Fprintf(&b, "🔗 MCP 端點: %s/mcp\n", base)
	if s.config.DatabaseID != "" {
		fmt.Fprintf(&b, "💾 資料庫 ID: %s\n", s.config.DatabaseID)
	}
	b.WriteString("\n🛠️ MCP 協議端點:\n")
	b.WriteString("• POST /mcp - JSON-RPC 2.0 MCP 協議\n")
	b.WriteString("• GET  /health - 健康檢查\n")
	b.WriteString("\n📡 舊版 API 端點 (兼容性):\n")
	b.WriteString("• GET  /tools - 工具列表\n")
	b.WriteString("• POST /call - 工具調用\n")

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, b.String())
}

// readBody はボディを読み取る。失敗時はレスポンスを書き込んでfalseを返す
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

// errorBody はJSONのエラーレスポンス
type errorBody struct {
	Error string `json:"error"`
	Help  string `json:"help,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
