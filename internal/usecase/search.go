package usecase

import (
	"context"
	"errors"
	"strings"

	"faqbot/internal/citation"
	"faqbot/internal/dataset"
	"faqbot/internal/domain"
	"faqbot/internal/notify"
	"faqbot/internal/search"
)

const noMatchMessage = "申し訳ございません。ご質問に該当する回答が見つかりませんでした。\n" +
	"表現を変えてもう一度お試しいただくか、お問い合わせフォームをご利用ください。"

// SnapshotSource hands out the current dataset view.
type SnapshotSource interface {
	Snapshot() *dataset.Snapshot
}

// SearchInput is one free-text query.
type SearchInput struct {
	Query          string
	Category       string
	ConversationID string
}

// SearchService answers free-text questions from the loaded dataset.
// It also serves as the conversation flow's search side channel.
type SearchService struct {
	source    SnapshotSource
	engine    *search.Engine
	composer  *citation.Composer
	notifier  notify.Notifier
	threshold float64
	maxItems  int
}

// NewSearchService wires the search pipeline.
func NewSearchService(source SnapshotSource, engine *search.Engine, composer *citation.Composer, notifier notify.Notifier, threshold float64, maxItems int) (*SearchService, error) {
	if source == nil {
		return nil, errors.New("usecase: snapshot source must not be nil")
	}
	if engine == nil {
		return nil, errors.New("usecase: search engine must not be nil")
	}
	if composer == nil {
		return nil, errors.New("usecase: citation composer must not be nil")
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if threshold < 0 || threshold > 1 {
		return nil, errors.New("usecase: threshold must be in [0,1]")
	}
	if maxItems <= 0 {
		maxItems = 3
	}
	return &SearchService{
		source:    source,
		engine:    engine,
		composer:  composer,
		notifier:  notifier,
		threshold: threshold,
		maxItems:  maxItems,
	}, nil
}

// Search answers one query. A query matching nothing is not an error;
// the answer just points at the contact form instead.
func (s *SearchService) Search(ctx context.Context, in SearchInput) (domain.Directive, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return domain.Directive{}, &Error{Code: ErrorValidation, Reason: "empty_query", Fields: []string{"query"}}
	}

	snap := s.source.Snapshot()
	if snap == nil || snap.Len() == 0 {
		return domain.Directive{}, newError(ErrorDataset, "dataset_not_loaded", nil)
	}

	matches := s.engine.Search(snap, query, in.Category, s.threshold)
	if len(matches) == 0 {
		s.notifier.Notify(notify.SearchMissEvent{
			ConversationID: in.ConversationID,
			Query:          query,
			Category:       in.Category,
		})
		return domain.Directive{
			Kind:    domain.DirectiveSearchResult,
			Message: noMatchMessage,
		}, nil
	}

	top := matches[0]
	citations := s.composer.Compose(matches, s.maxItems)
	return domain.Directive{
		Kind:        domain.DirectiveSearchResult,
		Message:     top.Entry.Answer,
		Question:    top.Entry.Question,
		FAQID:       top.Entry.FAQID,
		SourceLabel: top.Entry.Reference,
		Confidence:  top.Score,
		Citations:   &citations,
	}, nil
}

// Resolve adapts Search to the conversation flow's side channel.
func (s *SearchService) Resolve(ctx context.Context, query, category string) (domain.Directive, error) {
	return s.Search(ctx, SearchInput{Query: query, Category: category})
}
