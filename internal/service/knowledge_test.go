package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brbranch/notion_knowledge_mcp/internal/model"
	"github.com/brbranch/notion_knowledge_mcp/internal/notion"
)

// mockStore はリクエストを記録するStore
type mockStore struct {
	createPageFunc    func(ctx context.Context, req *notion.CreatePageRequest) (*notion.Page, error)
	queryDatabaseFunc func(ctx context.Context, databaseID string, req *notion.QueryRequest) (*notion.QueryResponse, error)

	created    []*notion.CreatePageRequest
	queries    []*notion.QueryRequest
	databaseID string
}

func (m *mockStore) CreatePage(ctx context.Context, req *notion.CreatePageRequest) (*notion.Page, error) {
	m.created = append(m.created, req)
	if m.createPageFunc != nil {
		return m.createPageFunc(ctx, req)
	}
	return &notion.Page{ID: "new-page", URL: "https://notion.so/new-page"}, nil
}

func (m *mockStore) QueryDatabase(ctx context.Context, databaseID string, req *notion.QueryRequest) (*notion.QueryResponse, error) {
	m.databaseID = databaseID
	m.queries = append(m.queries, req)
	if m.queryDatabaseFunc != nil {
		return m.queryDatabaseFunc(ctx, databaseID, req)
	}
	return &notion.QueryResponse{}, nil
}

// returning は固定のページ一覧を返すStoreを生成
func returning(pages ...notion.Page) *mockStore {
	return &mockStore{queryDatabaseFunc: func(context.Context, string, *notion.QueryRequest) (*notion.QueryResponse, error) {
		return &notion.QueryResponse{Results: pages}, nil
	}}
}

type pageOpt func(*notion.Page)

func withSelect(prop, name string) pageOpt {
	return func(p *notion.Page) { p.Properties[prop] = notion.SelectProperty(name) }
}

func withKeywords(names ...string) pageOpt {
	return func(p *notion.Page) { p.Properties[PropKeywords] = notion.MultiSelectProperty(names) }
}

func page(id, title string, opts ...pageOpt) notion.Page {
	p := notion.Page{
		ID:             id,
		URL:            "https://notion.so/" + id,
		LastEditedTime: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Properties:     map[string]notion.Property{},
	}
	if title != "" {
		p.Properties[PropTitle] = notion.Property{Title: []notion.RichText{{PlainText: title}}}
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func newService(t *testing.T, store Store) KnowledgeService {
	t.Helper()
	svc, err := NewKnowledgeService(store, "db-1")
	require.NoError(t, err)
	return svc
}

func TestNewKnowledgeService_RequiresDatabaseID(t *testing.T) {
	_, err := NewKnowledgeService(&mockStore{}, "")
	assert.ErrorIs(t, err, ErrDatabaseIDRequired)
}

// === AddKnowledge ===

func TestAddKnowledge_Defaults(t *testing.T) {
	store := &mockStore{}
	svc := newService(t, store)

	resp, err := svc.AddKnowledge(context.Background(), &AddKnowledgeRequest{
		Title:   "Channel patterns",
		Content: "plain body",
	})
	require.NoError(t, err)

	require.Len(t, store.created, 1)
	req := store.created[0]
	assert.Equal(t, "db-1", req.Parent.DatabaseID)
	assert.Equal(t, map[string]notion.Property{
		PropTitle:      notion.TitleProperty("Channel patterns"),
		PropProject:    notion.SelectProperty(model.DefaultProject),
		PropType:       notion.SelectProperty(model.DefaultType),
		PropImportance: notion.SelectProperty(model.DefaultImportance),
	}, req.Properties)
	require.Len(t, req.Children, 1)
	assert.Equal(t, notion.ParagraphBlock("plain body"), req.Children[0])

	assert.Equal(t, &AddKnowledgeResponse{
		ID:         "new-page",
		URL:        "https://notion.so/new-page",
		Title:      "Channel patterns",
		Project:    model.DefaultProject,
		Type:       model.DefaultType,
		Importance: model.DefaultImportance,
	}, resp)
}

func TestAddKnowledge_Keywords(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		want     *notion.Property
	}{
		{"nil", nil, nil},
		{"empty", []string{}, nil},
		{"two", []string{"x", "y"}, &notion.Property{MultiSelect: []notion.SelectOption{{Name: "x"}, {Name: "y"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			_, err := newService(t, store).AddKnowledge(context.Background(), &AddKnowledgeRequest{
				Title: "t", Content: "c", Keywords: tt.keywords,
			})
			require.NoError(t, err)

			prop, ok := store.created[0].Properties[PropKeywords]
			if tt.want == nil {
				assert.False(t, ok, "keywords property must be omitted")
				return
			}
			require.True(t, ok)
			assert.Equal(t, *tt.want, prop)
		})
	}
}

func TestAddKnowledge_OptionalFields(t *testing.T) {
	store := &mockStore{}
	svc := newService(t, store)

	_, err := svc.AddKnowledge(context.Background(), &AddKnowledgeRequest{
		Title:      "t",
		Content:    "c",
		Project:    "後端API",
		Type:       "代碼片段",
		Language:   "Go",
		Importance: "高",
		FilePath:   "cmd/main.go",
	})
	require.NoError(t, err)

	props := store.created[0].Properties
	assert.Equal(t, notion.SelectProperty("後端API"), props[PropProject])
	assert.Equal(t, notion.SelectProperty("代碼片段"), props[PropType])
	assert.Equal(t, notion.SelectProperty("Go"), props[PropLanguage])
	assert.Equal(t, notion.SelectProperty("高"), props[PropImportance])
	assert.Equal(t, notion.RichTextProperty("cmd/main.go"), props[PropFilePath])
}

func TestAddKnowledge_OmitsEmptyLanguageAndFilePath(t *testing.T) {
	store := &mockStore{}

	_, err := newService(t, store).AddKnowledge(context.Background(), &AddKnowledgeRequest{Title: "t", Content: "c"})
	require.NoError(t, err)

	props := store.created[0].Properties
	assert.NotContains(t, props, PropLanguage)
	assert.NotContains(t, props, PropFilePath)
	assert.NotContains(t, props, PropKeywords)
}

func TestAddKnowledge_MarkdownContent(t *testing.T) {
	store := &mockStore{}

	_, err := newService(t, store).AddKnowledge(context.Background(), &AddKnowledgeRequest{
		Title:   "t",
		Content: "# Heading\n\nbody text\n\n```go\nfmt.Println()\n```\n",
	})
	require.NoError(t, err)

	children := store.created[0].Children
	require.Len(t, children, 3)
	assert.Equal(t, notion.BlockHeading1, children[0].Type)
	assert.Equal(t, notion.BlockParagraph, children[1].Type)
	assert.Equal(t, notion.BlockCode, children[2].Type)
}

func TestAddKnowledge_StoreError(t *testing.T) {
	apiErr := &notion.APIError{StatusCode: 400, Body: "validation_error"}
	store := &mockStore{createPageFunc: func(context.Context, *notion.CreatePageRequest) (*notion.Page, error) {
		return nil, apiErr
	}}

	_, err := newService(t, store).AddKnowledge(context.Background(), &AddKnowledgeRequest{Title: "t", Content: "c"})

	require.Error(t, err)
	assert.ErrorIs(t, err, notion.ErrRequestFailed)
	var got *notion.APIError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 400, got.StatusCode)
}

func TestAddKnowledge_ContentTooLarge(t *testing.T) {
	store := &mockStore{}

	_, err := newService(t, store).AddKnowledge(context.Background(), &AddKnowledgeRequest{
		Title:   "t",
		Content: strings.Repeat("あ", notion.MaxContentLength+1),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, notion.ErrContentTooLarge)
	assert.Empty(t, store.created)
}

func TestAddKnowledge_ContentAtLimit(t *testing.T) {
	store := &mockStore{}

	_, err := newService(t, store).AddKnowledge(context.Background(), &AddKnowledgeRequest{
		Title:   "t",
		Content: strings.Repeat("あ", notion.MaxContentLength),
	})
	require.NoError(t, err)

	children := store.created[0].Children
	assert.LessOrEqual(t, len(children), notion.MaxChildren)
}

// === Search ===

func TestSearch_TitleMatchKeepsStoreOrder(t *testing.T) {
	store := returning(
		page("1", "React hooks"),
		page("2", "Go generics"),
		page("3", "Testing REACT components"),
	)

	resp, err := newService(t, store).Search(context.Background(), &SearchRequest{Query: "react", Limit: 10})
	require.NoError(t, err)

	require.Len(t, resp.Records, 2)
	assert.Equal(t, "1", resp.Records[0].ID)
	assert.Equal(t, "3", resp.Records[1].ID)
	assert.Equal(t, "react", resp.Query)

	require.Len(t, store.queries, 1)
	q := store.queries[0]
	assert.Equal(t, 10, q.PageSize)
	assert.Nil(t, q.Filter)
	assert.Equal(t, []notion.Sort{{Property: PropLastModified, Direction: notion.Descending}}, q.Sorts)
	assert.Equal(t, "db-1", store.databaseID)
}

func TestSearch_CaseFoldingIsUnicodeAware(t *testing.T) {
	store := returning(page("1", "STRASSE notes"), page("2", "Ünicode Tips"))

	resp, err := newService(t, store).Search(context.Background(), &SearchRequest{Query: "ünicode"})
	require.NoError(t, err)

	require.Len(t, resp.Records, 1)
	assert.Equal(t, "2", resp.Records[0].ID)
}

func TestSearch_UntitledMatchesPlaceholder(t *testing.T) {
	store := returning(page("1", ""), page("2", "Docker"))

	resp, err := newService(t, store).Search(context.Background(), &SearchRequest{Query: model.UntitledPlaceholder})
	require.NoError(t, err)

	require.Len(t, resp.Records, 1)
	assert.Equal(t, "1", resp.Records[0].ID)
}

func TestSearch_Filters(t *testing.T) {
	tests := []struct {
		name string
		req  *SearchRequest
		want *notion.Filter
	}{
		{
			name: "project only",
			req:  &SearchRequest{Query: "q", ProjectFilter: "Web應用"},
			want: &notion.Filter{Property: PropProject, Select: &notion.SelectFilter{Equals: "Web應用"}},
		},
		{
			name: "type only",
			req:  &SearchRequest{Query: "q", TypeFilter: "解決方案"},
			want: &notion.Filter{Property: PropType, Select: &notion.SelectFilter{Equals: "解決方案"}},
		},
		{
			name: "both",
			req:  &SearchRequest{Query: "q", ProjectFilter: "Web應用", TypeFilter: "解決方案"},
			want: &notion.Filter{And: []notion.Filter{
				{Property: PropProject, Select: &notion.SelectFilter{Equals: "Web應用"}},
				{Property: PropType, Select: &notion.SelectFilter{Equals: "解決方案"}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			resp, err := newService(t, store).Search(context.Background(), tt.req)
			require.NoError(t, err)

			assert.Equal(t, tt.want, store.queries[0].Filter)
			assert.Equal(t, tt.req.ProjectFilter, resp.ProjectFilter)
			assert.Equal(t, tt.req.TypeFilter, resp.TypeFilter)
		})
	}
}

func TestSearch_PageSizeClamped(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{0, 10},
		{1, 1},
		{50, 50},
		{100, 100},
		{500, 100},
		{math.MaxInt, 100},
	}
	for _, tt := range tests {
		store := &mockStore{}
		_, err := newService(t, store).Search(context.Background(), &SearchRequest{Query: "q", Limit: tt.limit})
		require.NoError(t, err)
		assert.Equal(t, tt.want, store.queries[0].PageSize, "limit %d", tt.limit)
	}
}

func TestSearch_StoreError(t *testing.T) {
	store := &mockStore{queryDatabaseFunc: func(context.Context, string, *notion.QueryRequest) (*notion.QueryResponse, error) {
		return nil, context.DeadlineExceeded
	}}

	_, err := newService(t, store).Search(context.Background(), &SearchRequest{Query: "q"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// === ListRecent ===

func TestListRecent_PageSize(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{0, 5},
		{3, 3},
		{20, 20},
		{30, 20},
		{math.MaxInt, 20},
	}
	for _, tt := range tests {
		store := &mockStore{}
		_, err := newService(t, store).ListRecent(context.Background(), &ListRecentRequest{Limit: tt.limit})
		require.NoError(t, err)

		q := store.queries[0]
		assert.Equal(t, tt.want, q.PageSize, "limit %d", tt.limit)
		assert.Nil(t, q.Filter)
		assert.Equal(t, []notion.Sort{{Property: PropLastModified, Direction: notion.Descending}}, q.Sorts)
	}
}

func TestListRecent_Records(t *testing.T) {
	store := returning(
		page("a", "First", withSelect(PropProject, "DevOps工具"), withSelect(PropType, "配置文件"), withKeywords("k8s")),
		page("b", ""),
	)

	resp, err := newService(t, store).ListRecent(context.Background(), &ListRecentRequest{Limit: 5})
	require.NoError(t, err)

	require.Len(t, resp.Records, 2)
	first := resp.Records[0]
	assert.Equal(t, "First", first.Title)
	assert.Equal(t, "DevOps工具", first.Project)
	assert.Equal(t, "配置文件", first.Type)
	assert.Equal(t, []string{"k8s"}, first.Keywords)
	assert.Equal(t, "https://notion.so/a", first.URL)

	second := resp.Records[1]
	assert.Equal(t, model.UntitledPlaceholder, second.DisplayTitle())
	assert.Equal(t, model.UnsetPlaceholder, second.DisplayProject())
	assert.Equal(t, model.UnsetPlaceholder, second.DisplayType())
}

// === Stats ===

func TestStats_SortedByCount(t *testing.T) {
	store := returning(
		page("1", "x", withSelect(PropProject, "B"), withSelect(PropType, "T1")),
		page("2", "x", withSelect(PropProject, "A"), withSelect(PropType, "T1"), withSelect(PropLanguage, "Go")),
		page("3", "x", withSelect(PropProject, "A"), withSelect(PropType, "T2")),
	)

	resp, err := newService(t, store).Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, []Count{{Name: "A", Count: 2}, {Name: "B", Count: 1}}, resp.ByProject)
	assert.Equal(t, []Count{{Name: "T1", Count: 2}, {Name: "T2", Count: 1}}, resp.ByType)
	assert.Equal(t, []Count{{Name: "Go", Count: 1}}, resp.ByLanguage)

	q := store.queries[0]
	assert.Equal(t, StatsPageSize, q.PageSize)
	assert.Nil(t, q.Filter)
}

func TestStats_TiesKeepFirstSeenOrder(t *testing.T) {
	store := returning(
		page("1", "x", withSelect(PropProject, "C")),
		page("2", "x", withSelect(PropProject, "A")),
		page("3", "x", withSelect(PropProject, "B")),
	)

	resp, err := newService(t, store).Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Count{{"C", 1}, {"A", 1}, {"B", 1}}, resp.ByProject)
}

func TestStats_MissingValuesUsePlaceholder(t *testing.T) {
	store := returning(page("1", "x"), page("2", "y"))

	resp, err := newService(t, store).Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Count{{Name: model.UnsetPlaceholder, Count: 2}}, resp.ByProject)
	assert.Equal(t, []Count{{Name: model.UnsetPlaceholder, Count: 2}}, resp.ByType)
	assert.Empty(t, resp.ByLanguage)
}

func TestStats_Empty(t *testing.T) {
	resp, err := newService(t, &mockStore{}).Stats(context.Background())
	require.NoError(t, err)

	assert.Zero(t, resp.Total)
	assert.Empty(t, resp.ByProject)
}
