package jsonrpc

import (
	"context"

	"github.com/brbranch/notion_knowledge_mcp/internal/format"
	"github.com/brbranch/notion_knowledge_mcp/internal/model"
)

// tools はツール定義と実装の対応表
var tools = mustNewRegistry(toolDefinitions, map[string]toolFunc{
	ToolAddKnowledge:       (*Handler).callAddKnowledge,
	ToolSearchKnowledge:    (*Handler).callSearchKnowledge,
	ToolGetRecentKnowledge: (*Handler).callGetRecentKnowledge,
	ToolGetKnowledgeStats:  (*Handler).callGetKnowledgeStats,
})

// callAddKnowledge は add_knowledge を実行
func (h *Handler) callAddKnowledge(ctx context.Context, args map[string]any) (*model.ToolsCallResult, error) {
	var p AddKnowledgeParams
	if err := decodeArgs(args, &p); err != nil {
		return nil, err
	}

	resp, err := h.knowledge.AddKnowledge(ctx, p.ToRequest())
	if err != nil {
		return model.NewErrorResult(format.Failure(format.OpAdd, err)), nil
	}
	return model.NewTextResult(format.Added(resp)), nil
}

// callSearchKnowledge は search_knowledge を実行
func (h *Handler) callSearchKnowledge(ctx context.Context, args map[string]any) (*model.ToolsCallResult, error) {
	var p SearchKnowledgeParams
	if err := decodeArgs(args, &p); err != nil {
		return nil, err
	}

	resp, err := h.knowledge.Search(ctx, p.ToRequest())
	if err != nil {
		return model.NewErrorResult(format.Failure(format.OpSearch, err)), nil
	}
	return model.NewTextResult(format.SearchResults(resp)), nil
}

// callGetRecentKnowledge は get_recent_knowledge を実行
func (h *Handler) callGetRecentKnowledge(ctx context.Context, args map[string]any) (*model.ToolsCallResult, error) {
	var p GetRecentKnowledgeParams
	if err := decodeArgs(args, &p); err != nil {
		return nil, err
	}

	resp, err := h.knowledge.ListRecent(ctx, p.ToRequest())
	if err != nil {
		return model.NewErrorResult(format.Failure(format.OpRecent, err)), nil
	}
	return model.NewTextResult(format.RecentResults(resp)), nil
}

// callGetKnowledgeStats は get_knowledge_stats を実行
func (h *Handler) callGetKnowledgeStats(ctx context.Context, _ map[string]any) (*model.ToolsCallResult, error) {
	resp, err := h.knowledge.Stats(ctx)
	if err != nil {
		return model.NewErrorResult(format.Failure(format.OpStats, err)), nil
	}
	return model.NewTextResult(format.Stats(resp)), nil
}
