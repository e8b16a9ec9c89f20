package service

import "github.com/brbranch/notion_knowledge_mcp/internal/model"

// AddKnowledgeRequest は知識追加リクエスト
// 空文字/空スライスのオプション項目はNotionへ送らない
type AddKnowledgeRequest struct {
	Title      string
	Content    string
	Project    string
	Type       string
	Keywords   []string
	Language   string
	Importance string
	FilePath   string
}

// AddKnowledgeResponse は知識追加レスポンス
type AddKnowledgeResponse struct {
	ID         string
	URL        string
	Title      string
	Project    string
	Type       string
	Importance string
}

// SearchRequest は検索リクエスト
type SearchRequest struct {
	Query         string
	ProjectFilter string // 空なら全プロジェクト
	TypeFilter    string // 空なら全タイプ
	Limit         int    // 最大MaxSearchPageSize
}

// SearchResponse は検索レスポンス
// Recordsはストアの返却順（最終更新の降順）を保つ
type SearchResponse struct {
	Query         string
	ProjectFilter string
	TypeFilter    string
	Records       []model.KnowledgeRecord
}

// ListRecentRequest は最近の知識一覧リクエスト
type ListRecentRequest struct {
	Limit int // 最大MaxRecentPageSize
}

// ListRecentResponse は最近の知識一覧レスポンス
type ListRecentResponse struct {
	Records []model.KnowledgeRecord
}

// Count は集計の1行
type Count struct {
	Name  string
	Count int
}

// StatsResponse は統計レスポンス
// 各集計は件数の降順、同数は結果内での初出順
type StatsResponse struct {
	Total      int
	ByProject  []Count
	ByType     []Count
	ByLanguage []Count // 言語未設定のレコードは含まない
}
