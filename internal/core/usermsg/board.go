// Package usermsg collects the messages shown to the user after a recoverable failure.
package usermsg

import (
	"sync"

	"gwin/internal/core/apperror"
)

// Category groups messages the way the presentation layer displays them.
type Category string

const (
	EntityValidation    Category = "entity_validation"
	ForeignKeyViolation Category = "foreign_key_violation"
	Configuration       Category = "configuration"
	FieldNotFound       Category = "field_not_found"
	NotFound            Category = "not_found"
	Information         Category = "information"
)

// Message is one entry on the board.
type Message struct {
	Category Category       `json:"category"`
	Code     string         `json:"code,omitempty"`
	Text     string         `json:"text"`
	Details  map[string]any `json:"details,omitempty"`
}

// Board is a per business object message list.
type Board struct {
	mu       sync.Mutex
	messages []Message
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{}
}

// Add appends a message.
func (b *Board) Add(category Category, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, Message{Category: category, Text: text})
}

// AddError appends the user-facing form of err. Errors that are not AppErrors are ignored:
// those are faults for the caller, not messages for the user.
func (b *Board) AddError(err error) {
	appErr, ok := apperror.AsAppError(err)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, Message{
		Category: CategoryOf(appErr.Code),
		Code:     appErr.Code,
		Text:     appErr.Message,
		Details:  appErr.Details,
	})
}

// Messages returns a copy of the current messages.
func (b *Board) Messages() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// Drain returns the current messages and clears the board.
func (b *Board) Drain() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.messages
	b.messages = nil
	return out
}

// Len returns the number of pending messages.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}

// CategoryOf maps an AppError code to a display category.
func CategoryOf(code string) Category {
	switch code {
	case apperror.CodeForeignKeyViolation:
		return ForeignKeyViolation
	case apperror.CodeConfiguration:
		return Configuration
	case apperror.CodeFieldNotFound:
		return FieldNotFound
	case apperror.CodeNotFound:
		return NotFound
	case apperror.CodeValidation, apperror.CodeDuplicate, apperror.CodeInvalidInput,
		apperror.CodeUnsupportedCriterion, apperror.CodeBusinessRule:
		return EntityValidation
	default:
		return Information
	}
}
