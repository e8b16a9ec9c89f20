package notion

import "time"

// Parent はページの親（データベース）
type Parent struct {
	DatabaseID string `json:"database_id"`
}

// TextContent はrich textのテキスト部分
type TextContent struct {
	Content string `json:"content"`
}

// RichText はNotionのrich textオブジェクト
// 書き込み時はText、読み込み時はPlainTextも参照する
type RichText struct {
	Type      string       `json:"type,omitempty"`
	Text      *TextContent `json:"text,omitempty"`
	PlainText string       `json:"plain_text,omitempty"`
}

// content はテキスト内容を返す（text.content優先、なければplain_text）
func (r RichText) content() string {
	if r.Text != nil && r.Text.Content != "" {
		return r.Text.Content
	}
	return r.PlainText
}

// SelectOption はselect/multi_selectの選択肢
type SelectOption struct {
	Name string `json:"name"`
}

// Property はページプロパティ
// 種類ごとのフィールドはどれも省略可能で、存在しない場合はアクセサがフォールバック値を返す
type Property struct {
	Type        string         `json:"type,omitempty"`
	Title       []RichText     `json:"title,omitempty"`
	RichText    []RichText     `json:"rich_text,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
}

// TitleProperty はtitleプロパティを生成
func TitleProperty(text string) Property {
	return Property{Title: []RichText{{Text: &TextContent{Content: text}}}}
}

// RichTextProperty はrich_textプロパティを生成
func RichTextProperty(text string) Property {
	return Property{RichText: []RichText{{Text: &TextContent{Content: text}}}}
}

// SelectProperty はselectプロパティを生成
func SelectProperty(name string) Property {
	return Property{Select: &SelectOption{Name: name}}
}

// MultiSelectProperty はmulti_selectプロパティを生成
func MultiSelectProperty(names []string) Property {
	options := make([]SelectOption, len(names))
	for i, n := range names {
		options[i] = SelectOption{Name: n}
	}
	return Property{MultiSelect: options}
}

// Page はNotionのページ
type Page struct {
	Object         string              `json:"object,omitempty"`
	ID             string              `json:"id"`
	URL            string              `json:"url"`
	LastEditedTime time.Time           `json:"last_edited_time"`
	Properties     map[string]Property `json:"properties"`
}

// TitleText はtitleプロパティの先頭テキストを返す（なければ空文字）
func (p *Page) TitleText(name string) string {
	prop, ok := p.Properties[name]
	if !ok || len(prop.Title) == 0 {
		return ""
	}
	return prop.Title[0].content()
}

// RichTextValue はrich_textプロパティを連結したテキストを返す（なければ空文字）
func (p *Page) RichTextValue(name string) string {
	prop, ok := p.Properties[name]
	if !ok {
		return ""
	}
	var s string
	for _, rt := range prop.RichText {
		s += rt.content()
	}
	return s
}

// SelectName はselectプロパティの選択値を返す（なければ空文字）
func (p *Page) SelectName(name string) string {
	prop, ok := p.Properties[name]
	if !ok || prop.Select == nil {
		return ""
	}
	return prop.Select.Name
}

// MultiSelectNames はmulti_selectプロパティの選択値一覧を返す（なければnil）
func (p *Page) MultiSelectNames(name string) []string {
	prop, ok := p.Properties[name]
	if !ok || len(prop.MultiSelect) == 0 {
		return nil
	}
	names := make([]string, 0, len(prop.MultiSelect))
	for _, o := range prop.MultiSelect {
		names = append(names, o.Name)
	}
	return names
}

// CreatePageRequest は POST /pages のリクエスト
type CreatePageRequest struct {
	Parent     Parent              `json:"parent"`
	Properties map[string]Property `json:"properties"`
	Children   []Block             `json:"children,omitempty"`
}

// SelectFilter はselectの条件
type SelectFilter struct {
	Equals string `json:"equals"`
}

// Filter はdatabase queryのフィルタ
// 単一条件（Property + Select）か複合条件（And）のどちらか
type Filter struct {
	Property string        `json:"property,omitempty"`
	Select   *SelectFilter `json:"select,omitempty"`
	And      []Filter      `json:"and,omitempty"`
}

// SelectEquals はselect一致条件を生成
func SelectEquals(property, value string) Filter {
	return Filter{Property: property, Select: &SelectFilter{Equals: value}}
}

// Sort はdatabase queryのソート条件
type Sort struct {
	Property  string `json:"property,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Direction string `json:"direction"`
}

// ソート方向
const (
	Ascending  = "ascending"
	Descending = "descending"
)

// QueryRequest は POST /databases/{id}/query のリクエスト
type QueryRequest struct {
	Filter   *Filter `json:"filter,omitempty"`
	Sorts    []Sort  `json:"sorts,omitempty"`
	PageSize int     `json:"page_size,omitempty"`
}

// QueryResponse は database query のレスポンス
type QueryResponse struct {
	Object     string `json:"object,omitempty"`
	Results    []Page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
}
