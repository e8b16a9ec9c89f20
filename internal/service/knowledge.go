package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/brbranch/notion_knowledge_mcp/internal/model"
	"github.com/brbranch/notion_knowledge_mcp/internal/notion"
)

// knowledgeService はKnowledgeServiceの実装
type knowledgeService struct {
	store      Store
	databaseID string
}

// NewKnowledgeService はKnowledgeServiceの新しいインスタンスを作成
func NewKnowledgeService(store Store, databaseID string) (KnowledgeService, error) {
	if databaseID == "" {
		return nil, ErrDatabaseIDRequired
	}
	return &knowledgeService{
		store:      store,
		databaseID: databaseID,
	}, nil
}

// AddKnowledge は知識をページとして作成する
func (s *knowledgeService) AddKnowledge(ctx context.Context, req *AddKnowledgeRequest) (*AddKnowledgeResponse, error) {
	if err := notion.CheckContent(req.Content); err != nil {
		return nil, err
	}

	project := withDefault(req.Project, model.DefaultProject)
	kind := withDefault(req.Type, model.DefaultType)
	importance := withDefault(req.Importance, model.DefaultImportance)

	properties := map[string]notion.Property{
		PropTitle:      notion.TitleProperty(req.Title),
		PropProject:    notion.SelectProperty(project),
		PropType:       notion.SelectProperty(kind),
		PropImportance: notion.SelectProperty(importance),
	}

	// オプション項目は値があるときだけ送る
	if len(req.Keywords) > 0 {
		properties[PropKeywords] = notion.MultiSelectProperty(req.Keywords)
	}
	if req.Language != "" {
		properties[PropLanguage] = notion.SelectProperty(req.Language)
	}
	if req.FilePath != "" {
		properties[PropFilePath] = notion.RichTextProperty(req.FilePath)
	}

	page, err := s.store.CreatePage(ctx, &notion.CreatePageRequest{
		Parent:     notion.Parent{DatabaseID: s.databaseID},
		Properties: properties,
		Children:   notion.MarkdownToBlocks(req.Content),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &AddKnowledgeResponse{
		ID:         page.ID,
		URL:        page.URL,
		Title:      req.Title,
		Project:    project,
		Type:       kind,
		Importance: importance,
	}, nil
}

// Search はフィルタ付きで最新レコードを取得し、タイトルの部分一致で絞り込む
// 全文検索ではなく、取得したページ内のタイトルのみを対象にした近似検索
func (s *knowledgeService) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	var filters []notion.Filter
	if req.ProjectFilter != "" {
		filters = append(filters, notion.SelectEquals(PropProject, req.ProjectFilter))
	}
	if req.TypeFilter != "" {
		filters = append(filters, notion.SelectEquals(PropType, req.TypeFilter))
	}

	query := &notion.QueryRequest{
		Sorts:    lastModifiedDesc(),
		PageSize: clampLimit(req.Limit, 10, MaxSearchPageSize),
	}
	switch len(filters) {
	case 0:
	case 1:
		query.Filter = &filters[0]
	default:
		query.Filter = &notion.Filter{And: filters}
	}

	resp, err := s.store.QueryDatabase(ctx, s.databaseID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query database: %w", err)
	}

	// Caserは状態を持つので呼び出しごとに生成する
	fold := cases.Fold()
	needle := fold.String(req.Query)

	records := make([]model.KnowledgeRecord, 0, len(resp.Results))
	for i := range resp.Results {
		r := recordFromPage(&resp.Results[i])
		if strings.Contains(fold.String(r.DisplayTitle()), needle) {
			records = append(records, r)
		}
	}

	return &SearchResponse{
		Query:         req.Query,
		ProjectFilter: req.ProjectFilter,
		TypeFilter:    req.TypeFilter,
		Records:       records,
	}, nil
}

// ListRecent は最終更新の新しい順にレコードを返す
func (s *knowledgeService) ListRecent(ctx context.Context, req *ListRecentRequest) (*ListRecentResponse, error) {
	resp, err := s.store.QueryDatabase(ctx, s.databaseID, &notion.QueryRequest{
		Sorts:    lastModifiedDesc(),
		PageSize: clampLimit(req.Limit, 5, MaxRecentPageSize),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query database: %w", err)
	}

	return &ListRecentResponse{Records: recordsFromPages(resp.Results)}, nil
}

// Stats は先頭StatsPageSize件を集計する（ページングはしない）
func (s *knowledgeService) Stats(ctx context.Context) (*StatsResponse, error) {
	resp, err := s.store.QueryDatabase(ctx, s.databaseID, &notion.QueryRequest{
		PageSize: StatsPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query database: %w", err)
	}

	return computeStats(recordsFromPages(resp.Results)), nil
}

func lastModifiedDesc() []notion.Sort {
	return []notion.Sort{{Property: PropLastModified, Direction: notion.Descending}}
}

// clampLimit は1未満ならdef、上限を超えるならceilingを返す
func clampLimit(limit, def, ceiling int) int {
	if limit < 1 {
		limit = def
	}
	return min(limit, ceiling)
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// recordFromPage はNotionページを知識レコードに変換する
// 欠けているプロパティは空値のまま（表示時に補完する）
func recordFromPage(p *notion.Page) model.KnowledgeRecord {
	return model.KnowledgeRecord{
		ID:             p.ID,
		Title:          p.TitleText(PropTitle),
		Project:        p.SelectName(PropProject),
		Type:           p.SelectName(PropType),
		Importance:     p.SelectName(PropImportance),
		Keywords:       p.MultiSelectNames(PropKeywords),
		Language:       p.SelectName(PropLanguage),
		FilePath:       p.RichTextValue(PropFilePath),
		LastEditedTime: p.LastEditedTime,
		URL:            p.URL,
	}
}

func recordsFromPages(pages []notion.Page) []model.KnowledgeRecord {
	records := make([]model.KnowledgeRecord, len(pages))
	for i := range pages {
		records[i] = recordFromPage(&pages[i])
	}
	return records
}
