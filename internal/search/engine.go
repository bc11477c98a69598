// Package search ranks knowledge-base entries against a free-text query.
// Scoring is purely lexical: a token-overlap ratio blended with an
// edit-distance ratio, both computed over normalized text. There is no
// model and no randomness; identical inputs always produce identical
// output, which the conversation tests rely on.
package search

import (
	"sort"

	"github.com/agnivade/levenshtein"

	"faqbot/internal/domain"
)

// Blend weights. Visitor queries are short and keyword-driven, so token
// overlap dominates; the sequence ratio keeps near-miss phrasings apart.
const (
	tokenOverlapWeight = 0.6
	sequenceWeight     = 0.4
)

// defaultTopK bounds the result set when the caller passes no limit.
const defaultTopK = 5

// Corpus is the read-only candidate source consumed by the engine.
// *dataset.Snapshot satisfies it.
type Corpus interface {
	Entries() []domain.QAEntry
	EntriesInCategory(label string) []domain.QAEntry
	HasCategory(label string) bool
}

// Engine scores and ranks candidates. It holds no per-call state and is
// safe for concurrent use.
type Engine struct {
	topK int
}

// NewEngine creates an engine returning at most topK results per search.
func NewEngine(topK int) *Engine {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Engine{topK: topK}
}

// Search scores every candidate question against the query and returns
// the ranked results clearing the threshold, best first. Ties keep
// dataset order. An empty or whitespace-only query yields no results and
// no error.
//
// A non-empty category restricts candidates before scoring. When no entry
// at all carries the category, the restriction is dropped rather than
// returning nothing for an over-specific label.
func (e *Engine) Search(c Corpus, query, category string, threshold float64) []domain.MatchResult {
	queryNorm := Normalize(query)
	if queryNorm == "" {
		return nil
	}
	queryTokens := tokenSet(Tokenize(queryNorm))

	candidates := c.Entries()
	if category != "" {
		if filtered := c.EntriesInCategory(category); len(filtered) > 0 {
			candidates = filtered
		}
	}

	var results []domain.MatchResult
	for _, entry := range candidates {
		score, matched := e.score(queryNorm, queryTokens, entry.Question)
		if score < threshold {
			continue
		}
		results = append(results, domain.MatchResult{
			Entry:        entry,
			Score:        score,
			MatchedTerms: matched,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > e.topK {
		results = results[:e.topK]
	}
	return results
}

// score blends the token-overlap ratio with the sequence ratio and
// returns the shared tokens in sorted order.
func (e *Engine) score(queryNorm string, queryTokens map[string]struct{}, question string) (float64, []string) {
	questionNorm := Normalize(question)
	if questionNorm == "" {
		return 0, nil
	}
	questionTokens := tokenSet(Tokenize(questionNorm))

	var shared []string
	for t := range queryTokens {
		if _, ok := questionTokens[t]; ok {
			shared = append(shared, t)
		}
	}
	sort.Strings(shared)

	union := len(questionTokens)
	for t := range queryTokens {
		if _, ok := questionTokens[t]; !ok {
			union++
		}
	}
	overlap := 0.0
	if union > 0 {
		overlap = float64(len(shared)) / float64(union)
	}

	score := tokenOverlapWeight*overlap + sequenceWeight*sequenceRatio(queryNorm, questionNorm)
	return score, shared
}

// sequenceRatio is 1 minus the normalized Levenshtein distance between
// the two strings, measured in runes.
func sequenceRatio(a, b string) float64 {
	longest := len([]rune(a))
	if lb := len([]rune(b)); lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
