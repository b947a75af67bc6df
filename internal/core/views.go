package core

import (
	"strings"
	"time"
)

const (
	FilterAll     StatusFilter = "all"
	FilterPending StatusFilter = "pending"
	FilterPaid    StatusFilter = "paid"
	FilterOverdue StatusFilter = "overdue"
	FilterDueSoon StatusFilter = "due_soon"
)

type (
	// StatusFilter selects a classification bucket for the dashboard list.
	// FilterAll is the identity filter.
	StatusFilter string

	// DashboardStats is the per-render summary shown above the payment list.
	// TotalAmount covers Pending records only: it is the "money at risk"
	// figure, so Paid amounts are excluded.
	DashboardStats struct {
		Total       int
		Pending     int
		Overdue     int
		TotalAmount Money
	}
)

func (f StatusFilter) IsValid() bool {
	switch f {
	case FilterAll, FilterPending, FilterPaid, FilterOverdue, FilterDueSoon:
		return true
	default:
		return false
	}
}

// FilterPayments returns the payments passing BOTH the search predicate and
// the status predicate. Search is a case-insensitive substring match against
// title or notes; an empty term matches everything. Input order is preserved,
// so FilterAll with an empty term is the identity.
func FilterPayments(payments []Payment, now time.Time, filter StatusFilter, searchTerm string) []Payment {
	term := strings.ToLower(strings.TrimSpace(searchTerm))
	out := make([]Payment, 0, len(payments))
	for _, p := range payments {
		if !matchesSearch(p, term) {
			continue
		}
		if !matchesStatus(p, now, filter) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesSearch(p Payment, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Title), term) ||
		strings.Contains(strings.ToLower(p.Notes), term)
}

func matchesStatus(p Payment, now time.Time, filter StatusFilter) bool {
	switch filter {
	case "", FilterAll:
		return true
	case FilterPending:
		return p.Status == StatusPending
	case FilterPaid:
		return p.Status == StatusPaid
	case FilterOverdue:
		return Classify(p, now) == ClassOverdue
	case FilterDueSoon:
		return Classify(p, now) == ClassDueSoon
	default:
		return false
	}
}

// ComputeDashboard derives the summary counters from the full collection.
func ComputeDashboard(payments []Payment, now time.Time) DashboardStats {
	stats := DashboardStats{Total: len(payments)}
	for _, p := range payments {
		if p.Status != StatusPending {
			continue
		}
		stats.Pending++
		if IsOverdue(p, now) {
			stats.Overdue++
		}
		stats.TotalAmount = stats.TotalAmount.Add(p.Amount)
	}
	return stats
}
