// Package http provides the JSON API server and its handlers.
//
// This file implements parsing and validation of request payloads and
// query parameters shared across handlers.
package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"paydue/internal/core"
)

const dueDateLayout = "2006-01-02"

// paymentRequest is the JSON body for create and update.
type paymentRequest struct {
	Title   string `json:"title"`
	Amount  string `json:"amount"`
	DueDate string `json:"due_date"`
	Notes   string `json:"notes"`
}

// ParsePaymentDraft decodes and validates a payment body into a draft.
func ParsePaymentDraft(r *http.Request) (core.PaymentDraft, error) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return core.PaymentDraft{}, fmt.Errorf("%w: malformed JSON body", core.ErrValidation)
	}

	draft := core.PaymentDraft{
		Title:  strings.TrimSpace(req.Title),
		Amount: strings.TrimSpace(req.Amount),
		Notes:  strings.TrimSpace(req.Notes),
	}

	if due := strings.TrimSpace(req.DueDate); due != "" {
		parsed, err := time.Parse(dueDateLayout, due)
		if err != nil {
			return core.PaymentDraft{}, fmt.Errorf("%w: due_date must be YYYY-MM-DD", core.ErrValidation)
		}
		draft.DueDate = parsed
	}

	if err := draft.Validate(); err != nil {
		return core.PaymentDraft{}, err
	}
	return draft, nil
}

// ParseListFilters extracts the status filter and search term for list
// endpoints. An unknown status value falls back to "all".
func ParseListFilters(query url.Values) (core.StatusFilter, string) {
	filter := core.FilterAll
	switch core.StatusFilter(strings.TrimSpace(query.Get("status"))) {
	case core.FilterPending:
		filter = core.FilterPending
	case core.FilterPaid:
		filter = core.FilterPaid
	case core.FilterOverdue:
		filter = core.FilterOverdue
	case core.FilterDueSoon:
		filter = core.FilterDueSoon
	}
	return filter, strings.TrimSpace(query.Get("q"))
}

// ParseMonthParam extracts the optional ?month=YYYY-MM selector.
func ParseMonthParam(query url.Values) (*core.Month, error) {
	raw := strings.TrimSpace(query.Get("month"))
	if raw == "" {
		return nil, nil
	}
	month, err := core.ParseMonth(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: month must be YYYY-MM", core.ErrValidation)
	}
	return &month, nil
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
