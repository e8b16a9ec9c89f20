// Package service implements the knowledge base operations on top of a Notion database.
package service

import (
	"context"
	"errors"

	"github.com/brbranch/notion_knowledge_mcp/internal/notion"
)

// KnowledgeService は知識ベースの追加・検索・一覧・統計を提供
type KnowledgeService interface {
	AddKnowledge(ctx context.Context, req *AddKnowledgeRequest) (*AddKnowledgeResponse, error)
	Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error)
	ListRecent(ctx context.Context, req *ListRecentRequest) (*ListRecentResponse, error)
	Stats(ctx context.Context) (*StatsResponse, error)
}

// Store はリモートのドキュメントストア
// *notion.Client がこれを満たす
type Store interface {
	CreatePage(ctx context.Context, req *notion.CreatePageRequest) (*notion.Page, error)
	QueryDatabase(ctx context.Context, databaseID string, req *notion.QueryRequest) (*notion.QueryResponse, error)
}

// エラー定義
var (
	ErrDatabaseIDRequired = errors.New("database id is required")
)

// Notionデータベースのプロパティ名
const (
	PropTitle        = "標題"
	PropProject      = "專案名稱"
	PropType         = "知識類型"
	PropImportance   = "重要程度"
	PropKeywords     = "關鍵字"
	PropLanguage     = "程式語言"
	PropFilePath     = "檔案路徑"
	PropLastModified = "最後修改"
)

// ページサイズの上限
const (
	MaxSearchPageSize = 100
	MaxRecentPageSize = 20
	StatsPageSize     = 100
)
