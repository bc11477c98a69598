package conversation

import (
	"fmt"
	"strings"
)

// NotFoundError reports an unknown conversation, category, or FAQ id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("conversation: unknown %s %q", e.Kind, e.ID)
}

// TransitionError reports an event that is not legal in the session's
// current state. The session is left untouched apart from its activity
// timestamp.
type TransitionError struct {
	State string
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("conversation: event %q not allowed in state %q", e.Event, e.State)
}

// ValidationError reports inquiry-form fields that are missing or
// invalid. It is caller input, never a system fault.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "conversation: invalid inquiry fields: " + strings.Join(e.Fields, ", ")
}
