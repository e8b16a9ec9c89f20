package model

import "encoding/json"

// Request はJSON-RPC 2.0リクエスト
// IDはバイト列のまま保持し、レスポンスへそのまま返す
type Request struct {
	JSONRPC string          `json:"jsonrpc"`          // 常に "2.0"
	ID      json.RawMessage `json:"id,omitempty"`     // string | number | null | 省略
	Method  string          `json:"method"`           // メソッド名
	Params  json.RawMessage `json:"params,omitempty"` // 任意のオブジェクト、省略可
}

// IsNotification はIDなしのリクエスト（通知）かを返す
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0
}

// Response はJSON-RPC 2.0レスポンス（成功時）
type Response struct {
	JSONRPC string          `json:"jsonrpc"` // 常に "2.0"
	ID      json.RawMessage `json:"id"`      // リクエストのIDと同一（省略時はnull）
	Result  any             `json:"result"`  // 結果オブジェクト
}

// ErrorResponse はJSON-RPC 2.0エラーレスポンス
type ErrorResponse struct {
	JSONRPC string          `json:"jsonrpc"` // 常に "2.0"
	ID      json.RawMessage `json:"id"`      // リクエストのIDと同一（パース失敗時はnull）
	Error   RPCError        `json:"error"`   // エラーオブジェクト
}

// RPCError はJSON-RPC 2.0エラーオブジェクト
type RPCError struct {
	Code    int    `json:"code"`           // エラーコード
	Message string `json:"message"`        // エラーメッセージ
	Data    any    `json:"data,omitempty"` // 追加情報、省略可
}

// JSON-RPC 2.0 標準エラーコード
const (
	ErrCodeParseError     = -32700 // Invalid JSON
	ErrCodeInvalidRequest = -32600 // Invalid Request
	ErrCodeMethodNotFound = -32601 // Method not found
	ErrCodeInvalidParams  = -32602 // Invalid params
	ErrCodeInternalError  = -32603 // Internal error
)

// NewResponse は成功レスポンスを生成
func NewResponse(id json.RawMessage, result any) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      normalizeID(id),
		Result:  result,
	}
}

// NewErrorResponse はエラーレスポンスを生成
func NewErrorResponse(id json.RawMessage, code int, message string, data any) *ErrorResponse {
	return &ErrorResponse{
		JSONRPC: "2.0",
		ID:      normalizeID(id),
		Error: RPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// NewParseError はパースエラーレスポンスを生成（IDはnull）
func NewParseError(data any) *ErrorResponse {
	return NewErrorResponse(nil, ErrCodeParseError, "Parse error", data)
}

// NewInvalidRequest は無効リクエストエラーレスポンスを生成
func NewInvalidRequest(id json.RawMessage, data any) *ErrorResponse {
	return NewErrorResponse(id, ErrCodeInvalidRequest, "Invalid Request", data)
}

// NewMethodNotFound はメソッド未検出エラーレスポンスを生成
func NewMethodNotFound(id json.RawMessage, method string) *ErrorResponse {
	return NewErrorResponse(id, ErrCodeMethodNotFound, "Method not found", method)
}

// NewInvalidParams は無効パラメータエラーレスポンスを生成
func NewInvalidParams(id json.RawMessage, message string, data any) *ErrorResponse {
	return NewErrorResponse(id, ErrCodeInvalidParams, message, data)
}

// NewInternalError は内部エラーレスポンスを生成
func NewInternalError(id json.RawMessage, message string) *ErrorResponse {
	return NewErrorResponse(id, ErrCodeInternalError, message, nil)
}

// normalizeID は省略されたIDをnullに揃える
func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
