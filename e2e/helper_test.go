//go:build e2e

package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brbranch/notion_knowledge_mcp/internal/jsonrpc"
	"github.com/brbranch/notion_knowledge_mcp/internal/notion"
	"github.com/brbranch/notion_knowledge_mcp/internal/service"
)

const testDatabaseID = "db-e2e"

// fakeNotion はページをメモリに保持するNotion APIのスタブ
// filter(select equals / and)、最終更新の降順、page_sizeに対応する
type fakeNotion struct {
	mu      sync.Mutex
	pages   []notion.Page
	clock   time.Time
	queries int
	// failWith が0以外ならそのステータスで全リクエストを失敗させる
	failWith int
}

func newFakeNotion(t *testing.T) (*fakeNotion, *httptest.Server) {
	t.Helper()
	f := &fakeNotion{clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	r := chi.NewRouter()
	r.Post("/pages", f.createPage)
	r.Post("/databases/{id}/query", f.queryDatabase)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeNotion) createPage(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail(w) {
		return
	}

	var req notion.CreatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Parent.DatabaseID != testDatabaseID {
		writeError(w, http.StatusNotFound, "object_not_found", "Could not find database")
		return
	}

	f.clock = f.clock.Add(time.Minute)
	id := fmt.Sprintf("page-%d", len(f.pages)+1)
	page := notion.Page{
		Object:         "page",
		ID:             id,
		URL:            "https://www.notion.so/" + id,
		LastEditedTime: f.clock,
		Properties:     req.Properties,
	}
	f.pages = append(f.pages, page)
	writeJSON(w, page)
}

func (f *fakeNotion) queryDatabase(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.fail(w) {
		return
	}
	if chi.URLParam(r, "id") != testDatabaseID {
		writeError(w, http.StatusNotFound, "object_not_found", "Could not find database")
		return
	}

	var req notion.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	var results []notion.Page
	for _, p := range f.pages {
		if req.Filter == nil || matches(&p, req.Filter) {
			results = append(results, p)
		}
	}
	if len(req.Sorts) > 0 {
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].LastEditedTime.After(results[j].LastEditedTime)
		})
	}
	hasMore := false
	if req.PageSize > 0 && len(results) > req.PageSize {
		results = results[:req.PageSize]
		hasMore = true
	}
	writeJSON(w, notion.QueryResponse{Object: "list", Results: results, HasMore: hasMore})
}

func (f *fakeNotion) fail(w http.ResponseWriter) bool {
	if f.failWith == 0 {
		return false
	}
	writeError(w, f.failWith, "unauthorized", "API token is invalid.")
	return true
}

func (f *fakeNotion) pageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pages)
}

func (f *fakeNotion) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

func matches(p *notion.Page, filter *notion.Filter) bool {
	if len(filter.And) > 0 {
		for i := range filter.And {
			if !matches(p, &filter.And[i]) {
				return false
			}
		}
		return true
	}
	return filter.Select != nil && p.SelectName(filter.Property) == filter.Select.Equals
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"object":"error","status":%d,"code":%q,"message":%q}`, status, code, message)
}

// setupTestHandler は実際のNotionクライアントとサービスでHandlerを構築
func setupTestHandler(t *testing.T) (*jsonrpc.Handler, *fakeNotion) {
	t.Helper()

	fake, srv := newFakeNotion(t)

	client, err := notion.NewClient("e2e-token", notion.WithBaseURL(srv.URL), notion.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("failed to create notion client: %v", err)
	}
	svc, err := service.NewKnowledgeService(client, testDatabaseID)
	if err != nil {
		t.Fatalf("failed to create knowledge service: %v", err)
	}
	return jsonrpc.New(svc, jsonrpc.WithVersion("e2e")), fake
}

// RawResponse はレスポンスの汎用表現
type RawResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    any    `json:"data,omitempty"`
	} `json:"error,omitempty"`
}

// ToolResult は tools/call の結果
type ToolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

// Text はcontentのテキストを連結して返す
func (r *ToolResult) Text() string {
	var parts []string
	for _, c := range r.Content {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "")
}

var nextID = 0

// callTool は tools/call を送ってツール結果を返す
func callTool(t *testing.T, h *jsonrpc.Handler, name string, args map[string]any) *ToolResult {
	t.Helper()

	nextID++
	reqBytes, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      nextID,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	var resp RawResponse
	if err := json.Unmarshal(h.Handle(t.Context(), reqBytes), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("%s failed: %d %s (%v)", name, resp.Error.Code, resp.Error.Message, resp.Error.Data)
	}

	var result ToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("failed to unmarshal tool result: %v", err)
	}
	return &result
}
