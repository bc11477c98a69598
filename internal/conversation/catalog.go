package conversation

import (
	"sort"
	"strings"

	"faqbot/internal/dataset"
	"faqbot/internal/domain"
)

// categoryDef is the curated display metadata for a known topic.
type categoryDef struct {
	id          string
	name        string
	description string
}

// Curated topics in presentation order. Labels outside this table still
// work when the dataset carries them; they just render without the
// curated copy.
var categoryDefs = []categoryDef{
	{id: "about", name: "💡 PIP-Makerとは？", description: "PIP-Makerの基本的な概要と特徴について説明します。"},
	{id: "cases", name: "📈 PIP-Makerの導入事例", description: "実際の導入事例と成功例をご紹介します。"},
	{id: "features", name: "⚙️ PIP-Makerの機能", description: "PIP-Makerの主要機能と使い方について説明します。"},
	{id: "pricing", name: "💰 PIP-Makerの料金プラン / ライセンスルール", description: "料金体系とライセンス情報についてご案内します。"},
	{id: "other", name: "❓ その他", description: "上記以外のご質問やご相談についてお答えします。"},
	{id: "general", name: "💬 全般", description: "PIP-Maker全般についてのご質問にお答えします。"},
}

// SnapshotProvider hands out the current dataset view.
type SnapshotProvider interface {
	Snapshot() *dataset.Snapshot
}

// Catalog resolves selectable categories and curated questions against
// the live dataset snapshot. The category set is whatever the loaded
// data actually carries; the definition table only decorates it.
type Catalog struct {
	source SnapshotProvider
}

// NewCatalog wraps a snapshot source.
func NewCatalog(source SnapshotProvider) *Catalog {
	return &Catalog{source: source}
}

// Categories lists the selectable topics: curated ones first in table
// order, then any remaining dataset labels alphabetical by id.
func (c *Catalog) Categories() []domain.CategoryOption {
	snap := c.source.Snapshot()
	seen := make(map[string]bool)
	var out []domain.CategoryOption
	for _, def := range categoryDefs {
		if snap.HasCategory(def.id) {
			out = append(out, domain.CategoryOption{ID: def.id, Name: def.name, Description: def.description})
			seen[def.id] = true
		}
	}
	for cat := range snap.Summary() {
		if !seen[cat] {
			out = append(out, domain.CategoryOption{ID: cat, Name: cat})
		}
	}
	// Map iteration above is unordered; keep the listing deterministic.
	tail := out[len(seen):]
	sort.Slice(tail, func(i, j int) bool { return tail[i].ID < tail[j].ID })
	return out
}

// Category resolves a selectable topic. Only labels present in the
// loaded dataset exist, regardless of the curated table.
func (c *Catalog) Category(id string) (domain.CategoryOption, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	if !c.source.Snapshot().HasCategory(id) {
		return domain.CategoryOption{}, false
	}
	for _, def := range categoryDefs {
		if def.id == id {
			return domain.CategoryOption{ID: def.id, Name: def.name, Description: def.description}, true
		}
	}
	return domain.CategoryOption{ID: id, Name: id}, true
}

// FAQOptions lists the curated questions of a category in display order.
func (c *Catalog) FAQOptions(categoryID string) []domain.FAQOption {
	entries := c.source.Snapshot().FAQsByCategory(categoryID)
	out := make([]domain.FAQOption, 0, len(entries))
	for _, e := range entries {
		out = append(out, domain.FAQOption{ID: e.FAQID, Question: e.Question})
	}
	return out
}

// FAQ resolves a curated question by FAQ id or ordinal entry id.
func (c *Catalog) FAQ(id string) (domain.QAEntry, bool) {
	return c.source.Snapshot().FAQByID(id)
}
