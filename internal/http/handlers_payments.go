package http

import (
	"net/http"
	"time"

	"paydue/internal/core"
)

// paymentResponse is the wire shape of a payment. Amount is formatted
// decimal text for display; amount_cents is the exact integer value.
type paymentResponse struct {
	ID             string              `json:"id"`
	Title          string              `json:"title"`
	Amount         string              `json:"amount"`
	AmountCents    int64               `json:"amount_cents"`
	DueDate        string              `json:"due_date"`
	Status         core.Status         `json:"status"`
	Classification core.Classification `json:"classification"`
	Notes          string              `json:"notes"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func toPaymentResponse(p core.Payment, now time.Time) paymentResponse {
	return paymentResponse{
		ID:             p.ID,
		Title:          p.Title,
		Amount:         p.Amount.String(),
		AmountCents:    p.Amount.Cents,
		DueDate:        p.DueDate.Format(dueDateLayout),
		Status:         p.Status,
		Classification: core.Classify(p, now),
		Notes:          p.Notes,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func toPaymentResponses(payments []core.Payment, now time.Time) []paymentResponse {
	out := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p, now))
	}
	return out
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())

	filter, searchTerm := ParseListFilters(r.URL.Query())

	payments, err := s.payments.List(r.Context(), owner.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	now := time.Now()
	filtered := core.FilterPayments(payments, now, filter, searchTerm)
	writeJSON(w, http.StatusOK, map[string]any{
		"payments": toPaymentResponses(filtered, now),
	})
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())

	draft, err := ParsePaymentDraft(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	payment, err := s.payments.Create(r.Context(), owner.ID, draft)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPaymentResponse(payment, time.Now()))
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())

	draft, err := ParsePaymentDraft(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	payment, err := s.payments.Update(r.Context(), owner.ID, r.PathValue("id"), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentResponse(payment, time.Now()))
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())

	if err := s.payments.Delete(r.Context(), owner.ID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())

	payment, err := s.payments.MarkPaid(r.Context(), owner.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentResponse(payment, time.Now()))
}

// handleRevalidate drops the owner's cached collection so the next list
// reflects writes made outside this process.
func (s *Server) handleRevalidate(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())
	s.payments.Revalidate(owner.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "revalidated"})
}
