// Package ident issues the identifiers the service hands out: session
// ids for conversations, correlation ids for error responses, and
// sortable inquiry ids for submitted contact forms.
package ident

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// seams for tests
var (
	newUUID = uuid.NewString
	now     = time.Now
)

// ConversationID returns a fresh session identifier.
func ConversationID() string {
	return "conv_" + newUUID()
}

// CorrelationID returns an opaque id tying an error response to its
// log lines.
func CorrelationID() string {
	return newUUID()
}

// Source issues inquiry ids. ULIDs sort by creation time, which keeps
// the inquiry archive scannable in submission order.
type Source struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewSource creates an id source with monotonic entropy so ids issued
// within the same millisecond still sort in issue order.
func NewSource() *Source {
	return &Source{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// InquiryID returns a fresh inquiry identifier.
func (s *Source) InquiryID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return "inq_" + ulid.MustNew(ulid.Timestamp(now()), s.entropy).String()
}
