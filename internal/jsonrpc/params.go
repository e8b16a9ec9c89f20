package jsonrpc

import (
	"math"
	"reflect"

	"github.com/go-viper/mapstructure/v2"

	"github.com/brbranch/notion_knowledge_mcp/internal/service"
)

// AddKnowledgeParams は add_knowledge の引数
type AddKnowledgeParams struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Project    string   `json:"project"`
	Type       string   `json:"type"`
	Keywords   []string `json:"keywords"`
	Language   string   `json:"language"`
	Importance string   `json:"importance"`
	FilePath   string   `json:"file_path"`
}

// ToRequest はサービスリクエストに変換
func (p *AddKnowledgeParams) ToRequest() *service.AddKnowledgeRequest {
	return &service.AddKnowledgeRequest{
		Title:      p.Title,
		Content:    p.Content,
		Project:    p.Project,
		Type:       p.Type,
		Keywords:   p.Keywords,
		Language:   p.Language,
		Importance: p.Importance,
		FilePath:   p.FilePath,
	}
}

// SearchKnowledgeParams は search_knowledge の引数
type SearchKnowledgeParams struct {
	Query         string `json:"query"`
	ProjectFilter string `json:"project_filter"`
	TypeFilter    string `json:"type_filter"`
	Limit         int    `json:"limit"`
}

// ToRequest はサービスリクエストに変換
func (p *SearchKnowledgeParams) ToRequest() *service.SearchRequest {
	return &service.SearchRequest{
		Query:         p.Query,
		ProjectFilter: p.ProjectFilter,
		TypeFilter:    p.TypeFilter,
		Limit:         p.Limit,
	}
}

// GetRecentKnowledgeParams は get_recent_knowledge の引数
type GetRecentKnowledgeParams struct {
	Limit int `json:"limit"`
}

// ToRequest はサービスリクエストに変換
func (p *GetRecentKnowledgeParams) ToRequest() *service.ListRecentRequest {
	return &service.ListRecentRequest{Limit: p.Limit}
}

// decodeArgs はツール引数のmapを構造体へデコードする
// JSON由来の数値（float64/json.Number）はintフィールドへ変換される
func decodeArgs(args map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     target,
		DecodeHook: saturateInt,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return &invalidParamsError{message: "invalid arguments: " + err.Error()}
	}
	return nil
}

// saturateInt はintの範囲外の数値をMaxInt/MinIntに丸める
func saturateInt(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}
	v, ok := data.(float64)
	if !ok {
		return data, nil
	}
	switch {
	case v >= float64(math.MaxInt):
		return math.MaxInt, nil
	case v <= float64(math.MinInt):
		return math.MinInt, nil
	}
	return data, nil
}
