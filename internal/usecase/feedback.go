package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"faqbot/internal/domain"
	"faqbot/internal/notify"
)

// FeedbackArchiver persists answer ratings.
// *repository.Archive satisfies it.
type FeedbackArchiver interface {
	PutFeedback(ctx context.Context, rec domain.FeedbackRecord) error
}

// FeedbackInput is one rating on an answer.
type FeedbackInput struct {
	ConversationID string
	FAQID          string
	Query          string
	Rating         string
	Comment        string
}

// FeedbackService records answer ratings and raises an alert on
// negative ones.
type FeedbackService struct {
	archive  FeedbackArchiver
	notifier notify.Notifier
	now      func() time.Time
}

// NewFeedbackService wires feedback recording.
func NewFeedbackService(archive FeedbackArchiver, notifier notify.Notifier) (*FeedbackService, error) {
	if archive == nil {
		return nil, errors.New("usecase: feedback archive must not be nil")
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &FeedbackService{archive: archive, notifier: notifier, now: time.Now}, nil
}

// Record validates and stores one rating.
func (s *FeedbackService) Record(ctx context.Context, in FeedbackInput) error {
	var fields []string
	convID := strings.TrimSpace(in.ConversationID)
	if convID == "" {
		fields = append(fields, "conversation_id")
	}
	rating := domain.Rating(strings.TrimSpace(in.Rating))
	if !rating.Valid() {
		fields = append(fields, "rating")
	}
	if len(fields) > 0 {
		return &Error{Code: ErrorValidation, Reason: "invalid_feedback", Fields: fields}
	}

	rec := domain.FeedbackRecord{
		ConversationID: convID,
		FAQID:          strings.TrimSpace(in.FAQID),
		Query:          strings.TrimSpace(in.Query),
		Rating:         rating,
		Comment:        strings.TrimSpace(in.Comment),
		Timestamp:      s.now(),
	}
	if err := s.archive.PutFeedback(ctx, rec); err != nil {
		return newError(ErrorInternal, "feedback_archive_error", err)
	}

	s.notifier.Notify(notify.FeedbackEvent{
		ConversationID: rec.ConversationID,
		FAQID:          rec.FAQID,
		Query:          rec.Query,
		Rating:         string(rec.Rating),
		Comment:        rec.Comment,
	})
	return nil
}
