package domain

// Event is one inbound conversation action. The set is closed: every
// concrete event carries the unexported marker so the state machine can
// switch exhaustively instead of branching on strings.
type Event interface {
	isEvent()
}

// WelcomeEvent opens a newly created conversation.
type WelcomeEvent struct{}

// SelectCategoryEvent picks a topic category.
type SelectCategoryEvent struct {
	CategoryID string
}

// SelectFAQEvent picks a curated question.
type SelectFAQEvent struct {
	FAQID string
}

// FreeTextQueryEvent asks a free-form question. It never changes the
// conversation phase.
type FreeTextQueryEvent struct {
	Query    string
	Category string
}

// StartInquiryEvent opens the contact form.
type StartInquiryEvent struct{}

// SubmitInquiryEvent submits the contact form.
type SubmitInquiryEvent struct {
	Form InquiryForm
}

// RestartEvent discards the session and begins a fresh conversation.
type RestartEvent struct{}

func (WelcomeEvent) isEvent()        {}
func (SelectCategoryEvent) isEvent() {}
func (SelectFAQEvent) isEvent()      {}
func (FreeTextQueryEvent) isEvent()  {}
func (StartInquiryEvent) isEvent()   {}
func (SubmitInquiryEvent) isEvent()  {}
func (RestartEvent) isEvent()        {}

// DirectiveKind tags the closed set of UI instructions the state machine
// can emit.
type DirectiveKind string

const (
	DirectiveCategorySelection DirectiveKind = "category_selection"
	DirectiveFAQSelection      DirectiveKind = "faq_selection"
	DirectiveFAQAnswer         DirectiveKind = "faq_answer"
	DirectiveSearchResult      DirectiveKind = "search_result"
	DirectiveInquiryForm       DirectiveKind = "inquiry_form"
	DirectiveInquiryCompleted  DirectiveKind = "inquiry_completed"
)

// CategoryOption is one selectable topic shown to the visitor.
type CategoryOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// FAQOption is one selectable curated question.
type FAQOption struct {
	ID       string `json:"id"`
	Question string `json:"question"`
}

// Directive is the structured instruction the state machine emits in
// response to an event. The client renders it verbatim; which fields are
// populated depends on Kind.
type Directive struct {
	Kind    DirectiveKind `json:"type"`
	Message string        `json:"message"`

	Categories []CategoryOption `json:"categories,omitempty"`
	Category   *CategoryOption  `json:"category,omitempty"`
	FAQs       []FAQOption      `json:"faqs,omitempty"`

	FAQID       string       `json:"faq_id,omitempty"`
	SourceLabel string       `json:"source,omitempty"`
	Question    string       `json:"question,omitempty"`
	Confidence  float64      `json:"confidence,omitempty"`
	Citations   *CitationSet `json:"citations,omitempty"`

	InquiryID             string `json:"inquiry_id,omitempty"`
	EstimatedResponseTime string `json:"estimated_response_time,omitempty"`

	// Affordances: next actions the client may offer.
	ShowInquiryButton bool `json:"show_inquiry_button,omitempty"`
	ShowMoreQuestions bool `json:"show_more_questions,omitempty"`
	ShowFeedback      bool `json:"show_feedback,omitempty"`
}
