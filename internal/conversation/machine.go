// Package conversation tracks each visitor session through the guided
// flow (topic selection, curated questions, contact form) and owns the
// legality of every transition.
package conversation

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"faqbot/internal/domain"
)

const (
	welcomeMessage = "こんにちは！PIP-Makerについてお答えできる範囲でお答えします。\n興味があることを以下から選んでください。"
	faqPrompt      = "よくあるご質問から選択するか、直接ご質問をご入力ください。"
	inquiryPrompt  = "お問い合わせフォームにご記入ください。担当者よりご連絡いたします。"
	inquiryThanks  = "お問合せありがとうございました！担当者からお返事いたしますので、少々お待ちください。"

	// estimatedResponseTime is quoted on every acceptance receipt.
	estimatedResponseTime = "1営業日以内"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// CategorySource resolves selectable categories and curated questions.
// *Catalog satisfies it.
type CategorySource interface {
	Categories() []domain.CategoryOption
	Category(id string) (domain.CategoryOption, bool)
	FAQOptions(categoryID string) []domain.FAQOption
	FAQ(id string) (domain.QAEntry, bool)
}

// SearchResolver answers a free-text query. The machine treats it as a
// side channel: whatever it returns never changes the session phase.
type SearchResolver interface {
	Resolve(ctx context.Context, query, category string) (domain.Directive, error)
}

// IDSource issues inquiry ids at acceptance time.
type IDSource interface {
	InquiryID() string
}

// Outcome is what applying one event produces: the directive for the
// client and, for an accepted contact form, the submission record.
type Outcome struct {
	Directive domain.Directive
	Inquiry   *domain.InquirySubmission
}

// Machine applies events to sessions. It holds no session state itself;
// callers pass the session under the store's per-conversation lock.
type Machine struct {
	catalog CategorySource
	search  SearchResolver
	ids     IDSource
	now     func() time.Time
}

// NewMachine validates and wires the machine's collaborators.
func NewMachine(catalog CategorySource, search SearchResolver, ids IDSource) (*Machine, error) {
	if catalog == nil {
		return nil, errors.New("conversation: catalog must not be nil")
	}
	if search == nil {
		return nil, errors.New("conversation: search resolver must not be nil")
	}
	if ids == nil {
		return nil, errors.New("conversation: id source must not be nil")
	}
	return &Machine{catalog: catalog, search: search, ids: ids, now: time.Now}, nil
}

// Apply runs one event against the session and returns the resulting
// directive. A failed guard returns an error and leaves the session
// unchanged except for its activity timestamp, which always advances so
// an active but error-prone visitor is not expired mid-conversation.
func (m *Machine) Apply(ctx context.Context, sess *domain.ConversationSession, ev domain.Event) (Outcome, error) {
	sess.LastActivityAt = m.now()

	switch e := ev.(type) {
	case domain.WelcomeEvent:
		return m.applyWelcome(sess)
	case domain.SelectCategoryEvent:
		return m.applySelectCategory(sess, e)
	case domain.SelectFAQEvent:
		return m.applySelectFAQ(sess, e)
	case domain.FreeTextQueryEvent:
		return m.applyFreeText(ctx, sess, e)
	case domain.StartInquiryEvent:
		return m.applyStartInquiry(sess)
	case domain.SubmitInquiryEvent:
		return m.applySubmitInquiry(sess, e)
	case domain.RestartEvent:
		return m.applyRestart(sess)
	default:
		return Outcome{}, &TransitionError{State: string(sess.State), Event: eventName(ev)}
	}
}

func (m *Machine) applyWelcome(sess *domain.ConversationSession) (Outcome, error) {
	if sess.State != domain.StateInitial {
		return Outcome{}, &TransitionError{State: string(sess.State), Event: "welcome"}
	}
	sess.State = domain.StateCategorySelection
	sess.InteractionCount++
	return Outcome{Directive: m.welcomeDirective()}, nil
}

func (m *Machine) welcomeDirective() domain.Directive {
	return domain.Directive{
		Kind:       domain.DirectiveCategorySelection,
		Message:    welcomeMessage,
		Categories: m.catalog.Categories(),
	}
}

func (m *Machine) applySelectCategory(sess *domain.ConversationSession, e domain.SelectCategoryEvent) (Outcome, error) {
	// Legal while picking a topic and while browsing FAQs; the
	// "more questions" affordance re-enters the category listing.
	if sess.State != domain.StateCategorySelection && sess.State != domain.StateFAQSelection {
		return Outcome{}, &TransitionError{State: string(sess.State), Event: "category"}
	}
	cat, ok := m.catalog.Category(e.CategoryID)
	if !ok {
		return Outcome{}, &NotFoundError{Kind: "category", ID: e.CategoryID}
	}

	sess.State = domain.StateFAQSelection
	sess.SelectedCategory = cat.ID
	sess.InteractionCount++

	message := faqPrompt
	if cat.Description != "" {
		message = cat.Description + "\n\n" + faqPrompt
	}
	return Outcome{Directive: domain.Directive{
		Kind:              domain.DirectiveFAQSelection,
		Message:           message,
		Category:          &cat,
		FAQs:              m.catalog.FAQOptions(cat.ID),
		ShowInquiryButton: true,
	}}, nil
}

func (m *Machine) applySelectFAQ(sess *domain.ConversationSession, e domain.SelectFAQEvent) (Outcome, error) {
	if sess.State != domain.StateFAQSelection {
		return Outcome{}, &TransitionError{State: string(sess.State), Event: "faq"}
	}
	entry, ok := m.catalog.FAQ(e.FAQID)
	if !ok {
		return Outcome{}, &NotFoundError{Kind: "faq", ID: e.FAQID}
	}

	sess.SelectedFAQID = e.FAQID
	sess.InteractionCount++

	return Outcome{Directive: domain.Directive{
		Kind:              domain.DirectiveFAQAnswer,
		Message:           entry.Answer,
		FAQID:             e.FAQID,
		Question:          entry.Question,
		SourceLabel:       entry.Reference,
		ShowInquiryButton: true,
		ShowMoreQuestions: true,
		ShowFeedback:      true,
	}}, nil
}

func (m *Machine) applyFreeText(ctx context.Context, sess *domain.ConversationSession, e domain.FreeTextQueryEvent) (Outcome, error) {
	if sess.State.Terminal() {
		return Outcome{}, &TransitionError{State: string(sess.State), Event: "search"}
	}
	category := e.Category
	if category == "" {
		category = sess.SelectedCategory
	}
	directive, err := m.search.Resolve(ctx, e.Query, category)
	if err != nil {
		return Outcome{}, err
	}
	sess.InteractionCount++

	// Side channel: phase stays put, but the contact form is offered as
	// the next step alongside feedback.
	directive.ShowInquiryButton = true
	directive.ShowFeedback = true
	return Outcome{Directive: directive}, nil
}

func (m *Machine) applyStartInquiry(sess *domain.ConversationSession) (Outcome, error) {
	if sess.State.Terminal() {
		return Outcome{}, &TransitionError{State: string(sess.State), Event: "inquiry"}
	}
	sess.State = domain.StateInquiryForm
	sess.InteractionCount++
	return Outcome{Directive: domain.Directive{
		Kind:    domain.DirectiveInquiryForm,
		Message: inquiryPrompt,
	}}, nil
}

func (m *Machine) applySubmitInquiry(sess *domain.ConversationSession, e domain.SubmitInquiryEvent) (Outcome, error) {
	if sess.State != domain.StateInquiryForm {
		return Outcome{}, &TransitionError{State: string(sess.State), Event: "inquiry"}
	}
	if fields := invalidFormFields(e.Form); len(fields) > 0 {
		return Outcome{}, &ValidationError{Fields: fields}
	}

	submission := &domain.InquirySubmission{
		InquiryID:      m.ids.InquiryID(),
		ConversationID: sess.ConversationID,
		Name:           strings.TrimSpace(e.Form.Name),
		Company:        strings.TrimSpace(e.Form.Company),
		Email:          strings.TrimSpace(e.Form.Email),
		Message:        strings.TrimSpace(e.Form.Message),
		SubmittedAt:    m.now(),
	}
	sess.State = domain.StateCompleted
	sess.InteractionCount++

	return Outcome{
		Directive: domain.Directive{
			Kind:                  domain.DirectiveInquiryCompleted,
			Message:               inquiryThanks,
			InquiryID:             submission.InquiryID,
			EstimatedResponseTime: estimatedResponseTime,
		},
		Inquiry: submission,
	}, nil
}

func (m *Machine) applyRestart(sess *domain.ConversationSession) (Outcome, error) {
	// Restart discards everything and re-enters the flow with a fresh
	// session object for the same id, landing directly on the category
	// listing the welcome step would emit.
	now := m.now()
	*sess = domain.ConversationSession{
		ConversationID:   sess.ConversationID,
		State:            domain.StateCategorySelection,
		InteractionCount: 1,
		CreatedAt:        now,
		LastActivityAt:   now,
	}
	return Outcome{Directive: m.welcomeDirective()}, nil
}

// invalidFormFields returns the names of missing or malformed form
// fields, empty when the form passes.
func invalidFormFields(form domain.InquiryForm) []string {
	var fields []string
	if strings.TrimSpace(form.Name) == "" {
		fields = append(fields, "name")
	}
	if strings.TrimSpace(form.Company) == "" {
		fields = append(fields, "company")
	}
	email := strings.TrimSpace(form.Email)
	if email == "" || !emailPattern.MatchString(email) {
		fields = append(fields, "email")
	}
	if strings.TrimSpace(form.Message) == "" {
		fields = append(fields, "inquiry")
	}
	return fields
}

func eventName(ev domain.Event) string {
	switch ev.(type) {
	case domain.WelcomeEvent:
		return "welcome"
	case domain.SelectCategoryEvent:
		return "category"
	case domain.SelectFAQEvent:
		return "faq"
	case domain.FreeTextQueryEvent:
		return "search"
	case domain.StartInquiryEvent:
		return "inquiry"
	case domain.SubmitInquiryEvent:
		return "inquiry"
	case domain.RestartEvent:
		return "restart"
	default:
		return "unknown"
	}
}
