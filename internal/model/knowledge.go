package model

import "time"

// 表示用のプレースホルダー
const (
	UntitledPlaceholder = "無標題"
	UnsetPlaceholder    = "未設定"
)

// プロジェクト分類（Notionのselectオプションと一致させる）
var Projects = []string{"Web應用", "Mobile應用", "後端API", "DevOps工具", "數據分析", "其他"}

// 知識タイプ
var KnowledgeTypes = []string{"代碼片段", "解決方案", "錯誤記錄", "學習筆記", "配置文件", "最佳實踐"}

// プログラミング言語（空文字は未指定）
var Languages = []string{"JavaScript", "TypeScript", "Python", "Go", "Rust", "Java", "HTML/CSS", "SQL", "Shell", ""}

// 重要度
var Importances = []string{"高", "中", "低"}

// デフォルト値
const (
	DefaultProject    = "其他"
	DefaultType       = "學習筆記"
	DefaultImportance = "中"
)

// KnowledgeRecord はNotionデータベース上の知識エントリ
// 未設定のプロパティは空文字/nilのまま保持し、表示時にプレースホルダーへ置き換える
type KnowledgeRecord struct {
	ID             string
	Title          string
	Project        string
	Type           string
	Importance     string
	Keywords       []string
	Language       string
	FilePath       string
	LastEditedTime time.Time
	URL            string
}

// DisplayTitle はタイトル（未設定なら「無標題」）を返す
func (r *KnowledgeRecord) DisplayTitle() string {
	if r.Title == "" {
		return UntitledPlaceholder
	}
	return r.Title
}

// DisplayProject はプロジェクト（未設定なら「未設定」）を返す
func (r *KnowledgeRecord) DisplayProject() string {
	return orUnset(r.Project)
}

// DisplayType は知識タイプ（未設定なら「未設定」）を返す
func (r *KnowledgeRecord) DisplayType() string {
	return orUnset(r.Type)
}

func orUnset(s string) string {
	if s == "" {
		return UnsetPlaceholder
	}
	return s
}

// WithEmpty は先頭に空文字を加えたenumを返す（フィルタ未指定用）
func WithEmpty(enum []string) []string {
	out := make([]string, 0, len(enum)+1)
	out = append(out, "")
	return append(out, enum...)
}
