package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

type (
	// Status is the persisted payment state. Pending transitions to Paid
	// exactly once; Paid is terminal.
	Status string

	Money struct {
		Cents int64
	}

	// Payment is the sole persistent entity. Amounts are stored in cents,
	// due dates at calendar-day granularity (midnight UTC).
	Payment struct {
		ID        string
		OwnerID   string
		Title     string
		Amount    Money
		DueDate   time.Time
		Status    Status
		Notes     string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// PaymentDraft carries the caller-supplied fields for create and update.
	// Amount arrives as decimal text the way the store delivers it.
	PaymentDraft struct {
		Title   string
		Amount  string
		DueDate time.Time
		Notes   string
	}
)

// Error taxonomy. Every layer wraps one of these so the HTTP boundary can map
// failures without inspecting messages.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("payment not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrUnauthenticated  = errors.New("not authenticated")
)

var (
	ErrEmptyTitle    = fmt.Errorf("%w: title is required", ErrValidation)
	ErrMissingDue    = fmt.Errorf("%w: due date is required", ErrValidation)
	ErrMissingAmount = fmt.Errorf("%w: amount is required", ErrValidation)
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid:
		return true
	default:
		return false
	}
}

// Validate checks required-field presence only; anything beyond that is out
// of scope for the drafts the UI submits.
func (d PaymentDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(d.Amount) == "" {
		return ErrMissingAmount
	}
	if _, err := ParseAmount(d.Amount); err != nil {
		return err
	}
	if d.DueDate.IsZero() {
		return ErrMissingDue
	}
	return nil
}

// Day truncates t to its calendar day in UTC. Classification compares due
// dates at this granularity so a payment due "today" is never overdue.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
