package usecase

import (
	"context"
	"errors"
	"strings"

	"faqbot/internal/conversation"
	"faqbot/internal/domain"
	"faqbot/internal/ident"
	"faqbot/internal/notify"
)

// InquiryArchiver persists accepted contact-form submissions.
// *repository.Archive satisfies it.
type InquiryArchiver interface {
	PutInquiry(ctx context.Context, sub domain.InquirySubmission) error
}

// HandleInput is one conversation event from a client.
type HandleInput struct {
	ConversationID string
	Event          domain.Event
}

// HandleOutput is the applied event's result.
type HandleOutput struct {
	ConversationID string
	State          domain.State
	Directive      domain.Directive
}

// ConversationService drives sessions through the guided flow and
// archives the inquiries they produce.
type ConversationService struct {
	store    *conversation.Store
	machine  *conversation.Machine
	archive  InquiryArchiver
	notifier notify.Notifier
}

// NewConversationService wires the conversation flow.
func NewConversationService(store *conversation.Store, machine *conversation.Machine, archive InquiryArchiver, notifier notify.Notifier) (*ConversationService, error) {
	if store == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if machine == nil {
		return nil, errors.New("usecase: machine must not be nil")
	}
	if archive == nil {
		return nil, errors.New("usecase: inquiry archive must not be nil")
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &ConversationService{store: store, machine: machine, archive: archive, notifier: notifier}, nil
}

// Handle applies one event to the identified conversation. An empty
// conversation id on a welcome event starts a new session; on any other
// event it is a validation error.
func (s *ConversationService) Handle(ctx context.Context, in HandleInput) (HandleOutput, error) {
	convID := strings.TrimSpace(in.ConversationID)
	if in.Event == nil {
		return HandleOutput{}, &Error{Code: ErrorValidation, Reason: "missing_event", Fields: []string{"event"}}
	}

	creating := false
	if convID == "" {
		if _, ok := in.Event.(domain.WelcomeEvent); !ok {
			return HandleOutput{}, &Error{Code: ErrorValidation, Reason: "missing_conversation_id", Fields: []string{"conversation_id"}}
		}
		convID = newConversationID()
		creating = true
	}

	var out HandleOutput
	transact := func(sess *domain.ConversationSession) error {
		prev := *sess
		outcome, err := s.machine.Apply(ctx, sess, in.Event)
		if err != nil {
			return err
		}
		if outcome.Inquiry != nil {
			if err := s.archive.PutInquiry(ctx, *outcome.Inquiry); err != nil {
				// A submission that was not stored was not accepted.
				activity := sess.LastActivityAt
				*sess = prev
				sess.LastActivityAt = activity
				return newError(ErrorInternal, "inquiry_archive_error", err)
			}
			s.notifier.Notify(notify.InquiryEvent{
				InquiryID:      outcome.Inquiry.InquiryID,
				ConversationID: outcome.Inquiry.ConversationID,
				Name:           outcome.Inquiry.Name,
				Company:        outcome.Inquiry.Company,
				Email:          outcome.Inquiry.Email,
				Message:        outcome.Inquiry.Message,
				SubmittedAt:    outcome.Inquiry.SubmittedAt,
			})
		}
		out = HandleOutput{
			ConversationID: sess.ConversationID,
			State:          sess.State,
			Directive:      outcome.Directive,
		}
		return nil
	}

	var err error
	if creating {
		err = s.store.TransactOrCreate(convID, transact)
	} else {
		err = s.store.Transact(convID, transact)
	}
	if err != nil {
		return HandleOutput{}, mapConversationError(err)
	}
	return out, nil
}

// mapConversationError translates flow errors into usecase codes. An
// error already carrying a code passes through untouched.
func mapConversationError(err error) error {
	var ucErr *Error
	if errors.As(err, &ucErr) {
		return err
	}

	var notFound *conversation.NotFoundError
	if errors.As(err, &notFound) {
		return newError(ErrorNotFound, notFound.Kind+"_not_found", err)
	}
	var transition *conversation.TransitionError
	if errors.As(err, &transition) {
		return newError(ErrorTransition, "illegal_transition", err)
	}
	var validation *conversation.ValidationError
	if errors.As(err, &validation) {
		return &Error{Code: ErrorValidation, Reason: "invalid_form", Fields: validation.Fields, Err: err}
	}
	return newError(ErrorInternal, "conversation_error", err)
}

var newConversationID = ident.ConversationID
