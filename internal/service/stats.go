package service

import (
	"sort"

	"github.com/brbranch/notion_knowledge_mcp/internal/model"
)

// counter は初出順を保ったまま件数を数える
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(name string) {
	if _, ok := c.counts[name]; !ok {
		c.order = append(c.order, name)
	}
	c.counts[name]++
}

// sorted は件数の降順で返す。同数は初出順
func (c *counter) sorted() []Count {
	out := make([]Count, len(c.order))
	for i, name := range c.order {
		out[i] = Count{Name: name, Count: c.counts[name]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

func computeStats(records []model.KnowledgeRecord) *StatsResponse {
	byProject := newCounter()
	byType := newCounter()
	byLanguage := newCounter()

	for i := range records {
		r := &records[i]
		byProject.add(r.DisplayProject())
		byType.add(r.DisplayType())
		if r.Language != "" {
			byLanguage.add(r.Language)
		}
	}

	return &StatsResponse{
		Total:      len(records),
		ByProject:  byProject.sorted(),
		ByType:     byType.sorted(),
		ByLanguage: byLanguage.sorted(),
	}
}
