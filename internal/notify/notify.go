// Package notify fans operational events out to alert sinks. Delivery
// is fire-and-forget: a slow or broken sink never blocks the request
// path.
package notify

import "time"

// Event is a notification payload. The variants are closed; sinks
// type-switch over them to format their output.
type Event interface {
	isEvent()
}

// InquiryEvent announces an accepted contact form.
type InquiryEvent struct {
	InquiryID      string
	ConversationID string
	Name           string
	Company        string
	Email          string
	Message        string
	SubmittedAt    time.Time
}

// FeedbackEvent announces a recorded answer rating.
type FeedbackEvent struct {
	ConversationID string
	FAQID          string
	Query          string
	Rating         string
	Comment        string
}

// SearchMissEvent announces a free-text query that matched nothing,
// which is the main signal for dataset gaps.
type SearchMissEvent struct {
	ConversationID string
	Query          string
	Category       string
}

// DatasetEvent announces a dataset reload result.
type DatasetEvent struct {
	Path    string
	Entries int
	Err     error
}

func (InquiryEvent) isEvent()    {}
func (FeedbackEvent) isEvent()   {}
func (SearchMissEvent) isEvent() {}
func (DatasetEvent) isEvent()    {}

// Notifier accepts events for delivery. Implementations must not block.
type Notifier interface {
	Notify(ev Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(Event) {}
