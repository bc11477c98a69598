// Package citation turns ranked matches into the bounded, display-ready
// source list attached to search answers.
package citation

import (
	"fmt"

	"faqbot/internal/domain"
)

// defaultExcerptRunes bounds excerpt length when the caller passes no limit.
const defaultExcerptRunes = 200

// ellipsis marks a truncated excerpt.
const ellipsis = "..."

// Composer formats citations deterministically: no randomness, no
// external calls, match order preserved.
type Composer struct {
	excerptRunes int
}

// NewComposer creates a composer truncating excerpts to excerptRunes.
func NewComposer(excerptRunes int) *Composer {
	if excerptRunes <= 0 {
		excerptRunes = defaultExcerptRunes
	}
	return &Composer{excerptRunes: excerptRunes}
}

// Compose projects the top maxItems matches into a citation set.
// Showing = min(len(matches), maxItems); HasMore reports whether sources
// were cut off.
func (c *Composer) Compose(matches []domain.MatchResult, maxItems int) domain.CitationSet {
	if maxItems < 0 {
		maxItems = 0
	}
	showing := len(matches)
	if showing > maxItems {
		showing = maxItems
	}

	items := make([]domain.Citation, 0, showing)
	for i, m := range matches[:showing] {
		items = append(items, domain.Citation{
			ID:          fmt.Sprintf("source_%d", i+1),
			Title:       m.Entry.Question,
			Excerpt:     truncate(m.Entry.Answer, c.excerptRunes),
			SourceLabel: m.Entry.Reference,
			Confidence:  m.Score,
			Verified:    m.Entry.Reference != "",
		})
	}

	return domain.CitationSet{
		Items:        items,
		TotalSources: len(matches),
		Showing:      showing,
		HasMore:      len(matches) > showing,
	}
}

// truncate bounds s to limit runes, appending the ellipsis marker when
// anything was cut.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + ellipsis
}
