package http

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// configHelp は設定不足時にクライアントへ返す案内
const configHelp = "請檢查環境變數設定"

// cors はCORSヘッダーを設定し、プリフライトに応答する
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin, ok := s.allowedOrigin(r.Header.Get("Origin")); ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}

		// Preflightリクエスト
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allowedOrigin は返すべき Access-Control-Allow-Origin の値を返す
func (s *Server) allowedOrigin(origin string) (string, bool) {
	// CORS無効
	if len(s.config.CORSOrigins) == 0 {
		return "", false
	}
	if slices.Contains(s.config.CORSOrigins, "*") {
		return "*", true
	}
	if origin == "" {
		return "", false
	}
	if slices.Contains(s.config.CORSOrigins, origin) {
		return origin, true
	}
	return "", false
}

// requireConfig は設定不足の間すべてのリクエストに500を返す
func (s *Server) requireConfig(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.ConfigErr != nil {
			writeJSON(w, http.StatusInternalServerError, errorBody{
				Error: s.config.ConfigErr.Error(),
				Help:  configHelp,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// logRequests はリクエストをdebugレベルで記録する
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)))
	})
}
