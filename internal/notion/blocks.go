package notion

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	// MaxRichTextLength はrich text 1要素あたりの最大文字数
	MaxRichTextLength = 2000
	// MaxChildren はページ作成時に渡せるchildrenの最大数
	MaxChildren = 100
	// MaxContentLength は1ページに保存できる本文の最大文字数
	MaxContentLength = MaxChildren * MaxRichTextLength
)

// ErrContentTooLarge は本文がMaxContentLengthを超えたときに返される
var ErrContentTooLarge = errors.New("content too large")

// CheckContent は本文が1回のページ作成で欠けずに保存できるかを確認する
func CheckContent(content string) error {
	if n := utf8.RuneCountInString(content); n > MaxContentLength {
		return fmt.Errorf("%w: %d characters (max %d)", ErrContentTooLarge, n, MaxContentLength)
	}
	return nil
}

// ブロック種別
const (
	BlockParagraph        = "paragraph"
	BlockHeading1         = "heading_1"
	BlockHeading2         = "heading_2"
	BlockHeading3         = "heading_3"
	BlockBulletedListItem = "bulleted_list_item"
	BlockNumberedListItem = "numbered_list_item"
	BlockCode             = "code"
	BlockQuote            = "quote"
	BlockDivider          = "divider"
)

// TextBlock はrich textを持つブロックの本体
type TextBlock struct {
	RichText []RichText `json:"rich_text"`
}

// CodeBlock はcodeブロックの本体
type CodeBlock struct {
	RichText []RichText `json:"rich_text"`
	Language string     `json:"language"`
}

// Block はページのchildrenに渡すブロック
// Typeに対応するフィールドだけが設定される
type Block struct {
	Object           string     `json:"object"`
	Type             string     `json:"type"`
	Paragraph        *TextBlock `json:"paragraph,omitempty"`
	Heading1         *TextBlock `json:"heading_1,omitempty"`
	Heading2         *TextBlock `json:"heading_2,omitempty"`
	Heading3         *TextBlock `json:"heading_3,omitempty"`
	BulletedListItem *TextBlock `json:"bulleted_list_item,omitempty"`
	NumberedListItem *TextBlock `json:"numbered_list_item,omitempty"`
	Code             *CodeBlock `json:"code,omitempty"`
	Quote            *TextBlock `json:"quote,omitempty"`
	Divider          *struct{}  `json:"divider,omitempty"`
}

// ParagraphBlock はparagraphブロックを生成
func ParagraphBlock(s string) Block {
	return textBlock(BlockParagraph, s)
}

func textBlock(kind, s string) Block {
	tb := &TextBlock{RichText: splitRichText(s)}
	b := Block{Object: "block", Type: kind}
	switch kind {
	case BlockHeading1:
		b.Heading1 = tb
	case BlockHeading2:
		b.Heading2 = tb
	case BlockHeading3:
		b.Heading3 = tb
	case BlockBulletedListItem:
		b.BulletedListItem = tb
	case BlockNumberedListItem:
		b.NumberedListItem = tb
	case BlockQuote:
		b.Quote = tb
	default:
		b.Type = BlockParagraph
		b.Paragraph = tb
	}
	return b
}

func codeBlock(s, lang string) Block {
	return Block{
		Object: "block",
		Type:   BlockCode,
		Code:   &CodeBlock{RichText: splitRichText(s), Language: codeLanguage(lang)},
	}
}

func dividerBlock() Block {
	return Block{Object: "block", Type: BlockDivider, Divider: &struct{}{}}
}

// splitRichText はテキストをMaxRichTextLength文字ごとのrich textに分割する
func splitRichText(s string) []RichText {
	if s == "" {
		return []RichText{{Type: "text", Text: &TextContent{Content: ""}}}
	}

	var out []RichText
	for len(s) > 0 {
		n := 0
		i := 0
		for i < len(s) && n < MaxRichTextLength {
			_, size := utf8.DecodeRuneInString(s[i:])
			i += size
			n++
		}
		out = append(out, RichText{Type: "text", Text: &TextContent{Content: s[:i]}})
		s = s[i:]
	}
	return out
}

// notionLanguages はNotionのcodeブロックが受け付ける言語名
var notionLanguages = map[string]string{
	"js":         "javascript",
	"javascript": "javascript",
	"ts":         "typescript",
	"typescript": "typescript",
	"py":         "python",
	"python":     "python",
	"go":         "go",
	"golang":     "go",
	"rust":       "rust",
	"rs":         "rust",
	"java":       "java",
	"html":       "html",
	"css":        "css",
	"sql":        "sql",
	"sh":         "shell",
	"shell":      "shell",
	"bash":       "bash",
	"json":       "json",
	"yaml":       "yaml",
	"yml":        "yaml",
	"markdown":   "markdown",
	"md":         "markdown",
	"dockerfile": "docker",
	"docker":     "docker",
}

func codeLanguage(info string) string {
	if lang, ok := notionLanguages[strings.ToLower(strings.TrimSpace(info))]; ok {
		return lang
	}
	return "plain text"
}

// MarkdownToBlocks はMarkdown本文をNotionのブロック列に変換する
// インライン装飾はそのまま文字列として残す。
// 変換結果が空、またはMaxChildrenを超える場合は段落ブロックにフォールバックする
func MarkdownToBlocks(content string) []Block {
	source := []byte(content)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var blocks []Block
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		blocks = append(blocks, convertNode(n, source)...)
	}

	if len(blocks) == 0 || len(blocks) > MaxChildren {
		return paragraphChunks(content)
	}
	return blocks
}

// paragraphChunks は本文全体をMaxRichTextLength文字ごとの段落にする
// CheckContentを通った本文ならMaxChildren以内に収まる
func paragraphChunks(content string) []Block {
	var blocks []Block
	for _, rt := range splitRichText(content) {
		blocks = append(blocks, Block{
			Object:    "block",
			Type:      BlockParagraph,
			Paragraph: &TextBlock{RichText: []RichText{rt}},
		})
	}
	return blocks
}

func convertNode(n ast.Node, source []byte) []Block {
	switch node := n.(type) {
	case *ast.Heading:
		kind := BlockHeading3
		switch node.Level {
		case 1:
			kind = BlockHeading1
		case 2:
			kind = BlockHeading2
		}
		return []Block{textBlock(kind, linesText(node, source))}
	case *ast.Paragraph, *ast.TextBlock:
		return []Block{textBlock(BlockParagraph, linesText(node, source))}
	case *ast.FencedCodeBlock:
		lang := ""
		if node.Info != nil {
			lang = string(node.Language(source))
		}
		return []Block{codeBlock(strings.TrimSuffix(linesText(node, source), "\n"), lang)}
	case *ast.CodeBlock:
		return []Block{codeBlock(strings.TrimSuffix(linesText(node, source), "\n"), "")}
	case *ast.List:
		kind := BlockBulletedListItem
		if node.IsOrdered() {
			kind = BlockNumberedListItem
		}
		var items []Block
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			items = append(items, textBlock(kind, childrenText(item, source)))
		}
		return items
	case *ast.Blockquote:
		return []Block{textBlock(BlockQuote, childrenText(node, source))}
	case *ast.ThematicBreak:
		return []Block{dividerBlock()}
	default:
		s := strings.TrimSpace(linesText(n, source))
		if s == "" {
			return nil
		}
		return []Block{textBlock(BlockParagraph, s)}
	}
}

// linesText はブロックノードの元テキスト行を連結する
func linesText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	if _, isCode := n.(*ast.FencedCodeBlock); isCode {
		return buf.String()
	}
	if _, isCode := n.(*ast.CodeBlock); isCode {
		return buf.String()
	}
	return strings.TrimRight(buf.String(), "\n")
}

// childrenText は子ブロックのテキストを改行で連結する
func childrenText(n ast.Node, source []byte) string {
	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Type() == ast.TypeBlock && c.Lines().Len() > 0 {
			parts = append(parts, linesText(c, source))
			continue
		}
		if s := childrenText(c, source); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
