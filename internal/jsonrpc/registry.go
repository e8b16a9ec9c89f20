package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/brbranch/notion_knowledge_mcp/internal/model"
)

// ツール名
const (
	ToolAddKnowledge       = "add_knowledge"
	ToolSearchKnowledge    = "search_knowledge"
	ToolGetRecentKnowledge = "get_recent_knowledge"
	ToolGetKnowledgeStats  = "get_knowledge_stats"
)

func intPtr(v int) *int { return &v }

// toolDefinitions はtools/listで返すツール定義（順序もこのまま返す）
var toolDefinitions = []model.Tool{
	{
		Name:        ToolAddKnowledge,
		Description: "添加新知識到程式開發知識庫",
		InputSchema: model.JSONSchema{
			Type: "object",
			Properties: map[string]model.JSONSchema{
				"title":   {Type: "string", Description: "知識條目標題"},
				"content": {Type: "string", Description: "詳細內容，支援 Markdown 格式"},
				"project": {
					Type:        "string",
					Description: "專案分類",
					Enum:        model.Projects,
					Default:     model.DefaultProject,
				},
				"type": {
					Type:        "string",
					Description: "知識類型",
					Enum:        model.KnowledgeTypes,
					Default:     model.DefaultType,
				},
				"keywords": {
					Type:        "array",
					Items:       &model.JSONSchema{Type: "string"},
					Description: "關鍵字標籤",
					Default:     []string{},
				},
				"language": {
					Type:        "string",
					Description: "程式語言",
					Enum:        model.Languages,
					Default:     "",
				},
				"importance": {
					Type:        "string",
					Description: "重要程度",
					Enum:        model.Importances,
					Default:     model.DefaultImportance,
				},
				"file_path": {
					Type:        "string",
					Description: "相關檔案路徑（可選）",
					Default:     "",
				},
			},
			Required: []string{"title", "content"},
		},
	},
	{
		Name:        ToolSearchKnowledge,
		Description: "在知識庫中搜索相關內容（僅比對標題）",
		InputSchema: model.JSONSchema{
			Type: "object",
			Properties: map[string]model.JSONSchema{
				"query": {Type: "string", Description: "搜索關鍵字"},
				"project_filter": {
					Type:        "string",
					Description: "按專案過濾",
					Enum:        model.WithEmpty(model.Projects),
					Default:     "",
				},
				"type_filter": {
					Type:        "string",
					Description: "按知識類型過濾",
					Enum:        model.WithEmpty(model.KnowledgeTypes),
					Default:     "",
				},
				"limit": {Type: "integer", Description: "返回結果數量", Default: 10, Minimum: intPtr(1)},
			},
			Required: []string{"query"},
		},
	},
	{
		Name:        ToolGetRecentKnowledge,
		Description: "獲取最近的知識條目",
		InputSchema: model.JSONSchema{
			Type: "object",
			Properties: map[string]model.JSONSchema{
				"limit": {Type: "integer", Description: "返回數量", Default: 5, Minimum: intPtr(1)},
			},
		},
	},
	{
		Name:        ToolGetKnowledgeStats,
		Description: "獲取知識庫統計信息",
		InputSchema: model.JSONSchema{
			Type:       "object",
			Properties: map[string]model.JSONSchema{},
		},
	},
}

// toolFunc はデフォルト適用済みの引数でツールを実行する
// 戻り値のerrorは引数の解釈に失敗した場合のみ（下流のエラーは結果のisErrorで返す）
type toolFunc func(h *Handler, ctx context.Context, args map[string]any) (*model.ToolsCallResult, error)

type toolEntry struct {
	def    model.Tool
	schema *jsonschema.Schema
	call   toolFunc
}

// registry はツール名からツールを引く
type registry struct {
	tools map[string]*toolEntry
	list  []model.Tool
}

// newRegistry はツール定義のスキーマをコンパイルして登録する
func newRegistry(defs []model.Tool, funcs map[string]toolFunc) (*registry, error) {
	r := &registry{
		tools: make(map[string]*toolEntry, len(defs)),
		list:  defs,
	}
	for _, def := range defs {
		call, ok := funcs[def.Name]
		if !ok {
			return nil, fmt.Errorf("no handler for tool %q", def.Name)
		}
		if _, dup := r.tools[def.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", def.Name)
		}
		schema, err := compileSchema(def.Name, def.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %q: %w", def.Name, err)
		}
		r.tools[def.Name] = &toolEntry{def: def, schema: schema, call: call}
	}
	return r, nil
}

func mustNewRegistry(defs []model.Tool, funcs map[string]toolFunc) *registry {
	r, err := newRegistry(defs, funcs)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *registry) lookup(name string) (*toolEntry, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// compileSchema はツールのinputSchemaをJSON Schemaとしてコンパイルする
func compileSchema(name string, s model.JSONSchema) (*jsonschema.Schema, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	url := name + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	return compiler.Compile(url)
}

// validate は引数をスキーマで検証する
func (t *toolEntry) validate(args map[string]any) error {
	err := t.schema.Validate(args)
	if err == nil {
		return nil
	}

	var details []string
	if verr, ok := err.(*jsonschema.ValidationError); ok {
		collectCauses(verr, &details)
	} else {
		details = append(details, err.Error())
	}
	sort.Strings(details)
	return &invalidParamsError{
		message: fmt.Sprintf("invalid arguments for %s: %s", t.def.Name, strings.Join(details, "; ")),
		details: details,
	}
}

// collectCauses は末端の検証エラーを「場所: メッセージ」形式で集める
func collectCauses(err *jsonschema.ValidationError, out *[]string) {
	if len(err.Causes) == 0 {
		loc := strings.TrimPrefix(err.InstanceLocation, "/")
		if loc == "" {
			*out = append(*out, err.Message)
		} else {
			*out = append(*out, loc+": "+err.Message)
		}
		return
	}
	for _, cause := range err.Causes {
		collectCauses(cause, out)
	}
}

// withDefaults は省略されたプロパティにスキーマのデフォルト値を補う
// 入力のmapは変更しない
func (t *toolEntry) withDefaults(args map[string]any) map[string]any {
	out := make(map[string]any, len(t.def.InputSchema.Properties))
	for k, v := range args {
		out[k] = v
	}
	for name, prop := range t.def.InputSchema.Properties {
		if _, ok := out[name]; ok || prop.Default == nil {
			continue
		}
		out[name] = prop.Default
	}
	return out
}
