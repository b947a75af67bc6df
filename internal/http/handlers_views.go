package http

import (
	"fmt"
	"net/http"
	"time"

	"paydue/internal/core"
	"paydue/internal/export"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())

	payments, err := s.payments.List(r.Context(), owner.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	stats := core.ComputeDashboard(payments, time.Now())
	writeJSON(w, http.StatusOK, map[string]any{
		"total":              stats.Total,
		"pending":            stats.Pending,
		"overdue":            stats.Overdue,
		"total_amount":       stats.TotalAmount.String(),
		"total_amount_cents": stats.TotalAmount.Cents,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())

	month, err := ParseMonthParam(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	payments, err := s.payments.List(r.Context(), owner.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	history := core.ComputeHistory(payments, month)
	months := core.AvailableMonths(payments)
	monthStrings := make([]string, 0, len(months))
	for _, m := range months {
		monthStrings = append(monthStrings, m.String())
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"payments":           toPaymentResponses(history.Payments, time.Now()),
		"total_amount":       history.TotalAmount.String(),
		"total_amount_cents": history.TotalAmount.Cents,
		"total_payments":     history.TotalPayments,
		"available_months":   monthStrings,
	})
}

func (s *Server) handleHistoryCSV(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())

	month, err := ParseMonthParam(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	payments, err := s.payments.List(r.Context(), owner.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	history := core.ComputeHistory(payments, month)

	filename := "payment-history.csv"
	if month != nil {
		filename = fmt.Sprintf("payment-history-%s.csv", month)
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := export.WriteCSV(w, history.Payments); err != nil {
		slogError(r, "Writing CSV export failed", err)
	}
}

func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())

	payment, err := s.payments.Get(r.Context(), owner.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if payment.Status != core.StatusPaid {
		writeError(w, r, fmt.Errorf("%w: receipt requires a paid payment", core.ErrValidation))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("receipt-%s.pdf", export.ReceiptID(payment.ID))))

	if err := export.WriteReceipt(w, payment, time.Now()); err != nil {
		slogError(r, "Writing receipt PDF failed", err)
	}
}
