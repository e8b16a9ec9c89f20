// Package format renders knowledge base results as human-readable text.
package format

import (
	"errors"
	"fmt"
	"strings"

	"github.com/brbranch/notion_knowledge_mcp/internal/notion"
	"github.com/brbranch/notion_knowledge_mcp/internal/service"
)

// Added は追加完了メッセージを返す
func Added(resp *service.AddKnowledgeResponse) string {
	return strings.Join([]string{
		"✅ 知識已成功保存到 Notion",
		"📄 標題: " + resp.Title,
		"📁 專案: " + resp.Project,
		"📋 類型: " + resp.Type,
		"🔗 連結: " + resp.URL,
	}, "\n")
}

// SearchResults は検索結果を番号付きで返す
func SearchResults(resp *service.SearchResponse) string {
	if len(resp.Records) == 0 {
		return fmt.Sprintf("🔍 搜索 \"%s\" 沒有找到相關結果", resp.Query)
	}

	lines := []string{fmt.Sprintf("🔍 搜索 \"%s\" 找到 %d 個結果:\n", resp.Query, len(resp.Records))}
	for i := range resp.Records {
		r := &resp.Records[i]
		lines = append(lines,
			fmt.Sprintf("%d. 📄 %s", i+1, r.DisplayTitle()),
			fmt.Sprintf("   📁 專案: %s | 📋 類型: %s", r.DisplayProject(), r.DisplayType()))
		if len(r.Keywords) > 0 {
			lines = append(lines, "   🏷️ 標籤: "+strings.Join(r.Keywords, ", "))
		}
		lines = append(lines, "   🔗 連結: "+r.URL, "")
	}
	return strings.Join(lines, "\n")
}

// RecentResults は最近の知識一覧を返す（キーワードは表示しない）
func RecentResults(resp *service.ListRecentResponse) string {
	if len(resp.Records) == 0 {
		return "📅 最近的知識條目: 沒有找到結果"
	}

	lines := []string{fmt.Sprintf("📅 最近的知識條目 (%d 個):\n", len(resp.Records))}
	for i := range resp.Records {
		r := &resp.Records[i]
		lines = append(lines,
			fmt.Sprintf("%d. 📄 %s", i+1, r.DisplayTitle()),
			fmt.Sprintf("   📁 %s | 📋 %s", r.DisplayProject(), r.DisplayType()),
			"   🔗 "+r.URL,
			"")
	}
	return strings.Join(lines, "\n")
}

// Stats は統計レポートを返す
func Stats(resp *service.StatsResponse) string {
	if resp.Total == 0 {
		return "📊 知識庫統計: 暫無數據"
	}

	lines := []string{
		"📊 程式開發知識庫統計報告",
		"==============================",
		"",
		fmt.Sprintf("📈 總計: %d 個知識條目", resp.Total),
		"",
		"📁 按專案分布:",
	}
	lines = appendCounts(lines, resp.ByProject)

	lines = append(lines, "", "📋 按類型分布:")
	lines = appendCounts(lines, resp.ByType)

	if len(resp.ByLanguage) > 0 {
		lines = append(lines, "", "💻 按程式語言分布:")
		lines = appendCounts(lines, resp.ByLanguage)
	}
	return strings.Join(lines, "\n")
}

func appendCounts(lines []string, counts []service.Count) []string {
	for _, c := range counts {
		lines = append(lines, fmt.Sprintf("  • %s: %d 個", c.Name, c.Count))
	}
	return lines
}

// 操作ごとのエラーメッセージ
const (
	OpAdd    = "add"
	OpSearch = "search"
	OpRecent = "recent"
	OpStats  = "stats"
)

var failureLabels = map[string][2]string{
	// {HTTPエラー時, その他のエラー時}
	OpAdd:    {"保存失敗", "添加知識時發生錯誤"},
	OpSearch: {"搜索失敗", "搜索時發生錯誤"},
	OpRecent: {"獲取最近知識失敗", "獲取最近知識時發生錯誤"},
	OpStats:  {"獲取統計失敗", "獲取統計時發生錯誤"},
}

// Failure は下流エラーをメッセージにする
// HTTPエラーはステータスコードと本文をそのまま含める
func Failure(op string, err error) string {
	labels, ok := failureLabels[op]
	if !ok {
		return ToolError(err)
	}

	var apiErr *notion.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("❌ %s: %d - %s", labels[0], apiErr.StatusCode, apiErr.Body)
	}
	return fmt.Sprintf("❌ %s: %s", labels[1], err.Error())
}

// ToolError は想定外のツール実行エラーを返す
func ToolError(err error) string {
	return "❌ 工具執行錯誤: " + err.Error()
}
