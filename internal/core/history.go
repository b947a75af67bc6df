package core

import (
	"sort"
	"time"
)

type (
	// Month identifies a calendar month for history filtering.
	Month struct {
		Year  int
		Month time.Month
	}

	// History is the derived view over Paid records, optionally restricted
	// to a calendar month by last-update timestamp.
	History struct {
		Payments      []Payment
		TotalAmount   Money
		TotalPayments int
	}
)

// MonthOf returns the calendar month containing t (UTC).
func MonthOf(t time.Time) Month {
	u := t.UTC()
	return Month{Year: u.Year(), Month: u.Month()}
}

// Start returns the first instant of the month.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last instant of the month.
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// Contains reports whether t falls within [Start, End] inclusive.
func (m Month) Contains(t time.Time) bool {
	u := t.UTC()
	return !u.Before(m.Start()) && !u.After(m.End())
}

func (m Month) String() string {
	return m.Start().Format("2006-01")
}

// ComputeHistory restricts the collection to Paid records, optionally to
// those whose updated_at falls within the given month, and aggregates totals.
// The result is sorted by updated_at descending: most recently paid first,
// deliberately distinct from the dashboard's due-date ordering.
func ComputeHistory(payments []Payment, month *Month) History {
	var h History
	for _, p := range payments {
		if p.Status != StatusPaid {
			continue
		}
		if month != nil && !month.Contains(p.UpdatedAt) {
			continue
		}
		h.Payments = append(h.Payments, p)
		h.TotalAmount = h.TotalAmount.Add(p.Amount)
		h.TotalPayments++
	}
	sort.SliceStable(h.Payments, func(i, j int) bool {
		return h.Payments[i].UpdatedAt.After(h.Payments[j].UpdatedAt)
	})
	return h
}

// AvailableMonths returns the distinct year-months present among Paid
// records, most recent first. It populates the history month selector.
func AvailableMonths(payments []Payment) []Month {
	seen := make(map[Month]struct{})
	for _, p := range payments {
		if p.Status != StatusPaid {
			continue
		}
		seen[MonthOf(p.UpdatedAt)] = struct{}{}
	}
	months := make([]Month, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool {
		return months[i].Start().After(months[j].Start())
	})
	return months
}

// ParseMonth parses "2006-01" into a Month.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, err
	}
	return MonthOf(t), nil
}
