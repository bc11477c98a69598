package domain

import "time"

// State is the primary conversation phase. Free-text search is a side
// channel and never changes the phase.
type State string

const (
	StateInitial           State = "initial"
	StateCategorySelection State = "category_selection"
	StateFAQSelection      State = "faq_selection"
	StateInquiryForm       State = "inquiry_form"
	StateCompleted         State = "completed"
)

// Terminal reports whether no further events except a restart are legal.
func (s State) Terminal() bool { return s == StateCompleted }

// ConversationSession is the single server-owned record of one visitor's
// progress. It is addressed by ConversationID and mutated only through
// state-machine-validated transitions.
type ConversationSession struct {
	ConversationID   string
	State            State
	SelectedCategory string
	SelectedFAQID    string
	InteractionCount int
	CreatedAt        time.Time
	LastActivityAt   time.Time
}

// Rating is a visitor's verdict on an interaction.
type Rating string

const (
	RatingPositive Rating = "positive"
	RatingNegative Rating = "negative"
)

// Valid reports whether the rating is one of the two accepted values.
func (r Rating) Valid() bool { return r == RatingPositive || r == RatingNegative }

// FeedbackRecord is one feedback submission. Records are write-once; a
// conversation may produce several, each forwarded independently.
type FeedbackRecord struct {
	ConversationID string
	FAQID          string
	Query          string
	Rating         Rating
	Comment        string
	Timestamp      time.Time
}

// InquiryForm is the raw contact-form input before validation.
type InquiryForm struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Email   string `json:"email"`
	Message string `json:"inquiry"`
}

// InquirySubmission is an accepted contact-form submission.
type InquirySubmission struct {
	InquiryID      string
	ConversationID string
	Name           string
	Company        string
	Email          string
	Message        string
	SubmittedAt    time.Time
}
