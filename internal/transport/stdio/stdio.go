// Package stdio implements the line-delimited stdio transport for notion-knowledge-mcp.
package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/brbranch/notion_knowledge_mcp/internal/logging"
	"github.com/brbranch/notion_knowledge_mcp/internal/model"
)

// MaxBufferSize は1行の最大サイズ（1MB）
const MaxBufferSize = 1024 * 1024

// Handler はJSON-RPCリクエストを処理するインターフェース
// nilを返した場合は何も書き込まない（通知）
type Handler interface {
	Handle(ctx context.Context, requestBytes []byte) []byte
}

// Server はstdio JSON-RPCサーバー
// 1行ずつ順番に処理し、前の応答を書き終えるまで次の行を読まない
type Server struct {
	handler Handler
	reader  io.Reader
	writer  io.Writer
	logger  *slog.Logger
}

// Option はサーバーオプション
type Option func(*Server)

// WithReader はreaderを設定（テスト用）
func WithReader(r io.Reader) Option {
	return func(s *Server) {
		s.reader = r
	}
}

// WithWriter はwriterを設定（テスト用）
func WithWriter(w io.Writer) Option {
	return func(s *Server) {
		s.writer = w
	}
}

// WithLogger はロガーを設定
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New は新しいServerを生成
func New(handler Handler, opts ...Option) *Server {
	s := &Server{
		handler: handler,
		reader:  os.Stdin,
		writer:  os.Stdout,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run はサーバーを起動し、EOFまたはcontextがキャンセルされるまで実行
func (s *Server) Run(ctx context.Context) error {
	reader := bufio.NewReaderSize(s.reader, MaxBufferSize)

	s.logger.Info("stdio transport started")

	for {
		// コンテキストキャンセルをチェック
		if err := ctx.Err(); err != nil {
			return err
		}

		line, tooLong, err := readLine(reader)
		if err != nil && !errors.Is(err, io.EOF) {
			s.logger.Error("failed to read stdin", slog.Any("error", err))
			return err
		}
		eof := err != nil

		switch {
		case tooLong:
			// 行を読み捨ててエラー応答を返し、次の行へ進む
			s.logger.Warn("request line too long", slog.Int("max_bytes", MaxBufferSize))
			if err := s.write(lineTooLongResponse()); err != nil {
				return err
			}
		case len(bytes.TrimSpace(line)) > 0:
			if response := s.handler.Handle(ctx, line); response != nil {
				if err := s.write(response); err != nil {
					return err
				}
			}
		}

		if eof {
			s.logger.Info("stdin closed")
			return nil
		}
	}
}

// write はレスポンスを1行 + 改行で書き込む
func (s *Server) write(response []byte) error {
	if _, err := s.writer.Write(append(response, '\n')); err != nil {
		s.logger.Error("failed to write response", slog.Any("error", err))
		return err
	}
	return nil
}

// readLine は改行を除いた1行を返す
// MaxBufferSizeに収まらない行は改行まで読み捨ててtooLongを返す
func readLine(r *bufio.Reader) (line []byte, tooLong bool, err error) {
	line, err = r.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		for errors.Is(err, bufio.ErrBufferFull) {
			_, err = r.ReadSlice('\n')
		}
		return nil, true, err
	}
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	return line, false, err
}

func lineTooLongResponse() []byte {
	b, _ := json.Marshal(model.NewInvalidRequest(nil, fmt.Sprintf("request line exceeds %d bytes", MaxBufferSize)))
	return b
}
