// Package notion implements a minimal client for the Notion REST API.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/brbranch/notion_knowledge_mcp/internal/logging"
)

const (
	DefaultBaseURL = "https://api.notion.com/v1"
	DefaultVersion = "2022-06-28"
)

// MaxPageSize はdatabase queryで指定できるpage_sizeの上限
const MaxPageSize = 100

// エラー定義
var (
	ErrTokenRequired      = errors.New("notion token is required")
	ErrDatabaseIDRequired = errors.New("notion database id is required")
	ErrRequestFailed      = errors.New("notion request failed")
	ErrInvalidResponse    = errors.New("invalid notion response")
)

// APIError は2xx以外のレスポンスを表す
// Bodyはレスポンス本文をそのまま保持する
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion API error (status %d): %s", e.StatusCode, e.Body)
}

func (e *APIError) Is(target error) bool {
	return target == ErrRequestFailed
}

// Client はNotion APIクライアント
// 1操作につき1リクエスト、リトライは行わない
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	version    string
	logger     *slog.Logger
}

// Option はClientのオプション
type Option func(*Client)

// WithBaseURL はベースURLを設定
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithVersion はNotion-Versionヘッダーを設定
func WithVersion(version string) Option {
	return func(c *Client) {
		if version != "" {
			c.version = version
		}
	}
}

// WithHTTPClient はHTTPクライアントを設定
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger はロガーを設定
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient は新しいClientを作成
func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrTokenRequired
	}

	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    DefaultBaseURL,
		token:      token,
		version:    DefaultVersion,
		logger:     logging.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// CreatePage はページを作成する（POST /pages）
func (c *Client) CreatePage(ctx context.Context, req *CreatePageRequest) (*Page, error) {
	var page Page
	if err := c.post(ctx, "/pages", req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// QueryDatabase はデータベースを検索する（POST /databases/{id}/query）
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, req *QueryRequest) (*QueryResponse, error) {
	if databaseID == "" {
		return nil, ErrDatabaseIDRequired
	}

	var resp QueryResponse
	if err := c.post(ctx, "/databases/"+databaseID+"/query", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// post はJSONボディでPOSTし、レスポンスをoutにデコードする
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	reqJSON, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: failed to encode request: %v", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqJSON))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// context.Canceledやcontext.DeadlineExceededはそのまま返す
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrRequestFailed, err)
	}

	c.logger.Debug("notion request",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
