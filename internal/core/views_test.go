package core

import (
	"testing"
	"time"
)

func samplePayments(now time.Time) []Payment {
	return []Payment{
		{ID: "1", Title: "Rent", Amount: Money{Cents: 120000}, Status: StatusPending, DueDate: now.AddDate(0, 0, 3)},
		{ID: "2", Title: "Internet", Amount: Money{Cents: 1999}, Status: StatusPending, DueDate: now.AddDate(0, 0, -2)},
		{ID: "3", Title: "Gym membership", Notes: "cancel soon", Amount: Money{Cents: 501}, Status: StatusPending, DueDate: now.AddDate(0, 0, 20)},
		{ID: "4", Title: "Electricity", Amount: Money{Cents: 7500}, Status: StatusPaid, DueDate: now.AddDate(0, 0, -10), UpdatedAt: now},
	}
}

func ids(ps []Payment) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestFilterPayments(t *testing.T) {
	now := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	payments := samplePayments(now)

	tests := []struct {
		name   string
		filter StatusFilter
		search string
		want   []string
	}{
		{"all with empty search is identity", FilterAll, "", []string{"1", "2", "3", "4"}},
		{"pending only", FilterPending, "", []string{"1", "2", "3"}},
		{"paid only", FilterPaid, "", []string{"4"}},
		{"overdue only", FilterOverdue, "", []string{"2"}},
		{"due soon only", FilterDueSoon, "", []string{"1"}},
		{"search matches title case-insensitively", FilterAll, "rEnT", []string{"1"}},
		{"search matches notes", FilterAll, "cancel", []string{"3"}},
		{"search and status combine with AND", FilterPending, "electricity", nil},
		{"no match", FilterAll, "mortgage", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(FilterPayments(payments, now, tt.filter, tt.search))
			if len(got) != len(tt.want) {
				t.Fatalf("FilterPayments() returned %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("FilterPayments()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestComputeDashboard(t *testing.T) {
	now := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

	t.Run("empty collection", func(t *testing.T) {
		stats := ComputeDashboard(nil, now)
		if stats.Total != 0 || stats.Pending != 0 || stats.Overdue != 0 || stats.TotalAmount.Cents != 0 {
			t.Errorf("ComputeDashboard(nil) = %+v, want zeroes", stats)
		}
	})

	t.Run("mixed collection", func(t *testing.T) {
		stats := ComputeDashboard(samplePayments(now), now)
		if stats.Total != 4 {
			t.Errorf("Total = %d, want 4", stats.Total)
		}
		if stats.Pending != 3 {
			t.Errorf("Pending = %d, want 3", stats.Pending)
		}
		if stats.Overdue != 1 {
			t.Errorf("Overdue = %d, want 1", stats.Overdue)
		}
		// Paid amounts are excluded from the money-at-risk figure.
		want := int64(120000 + 1999 + 501)
		if stats.TotalAmount.Cents != want {
			t.Errorf("TotalAmount = %d cents, want %d", stats.TotalAmount.Cents, want)
		}
	})

	t.Run("fractional amounts sum exactly", func(t *testing.T) {
		a, _ := NewMoney("19.99")
		b, _ := NewMoney("5.01")
		payments := []Payment{
			{Status: StatusPending, Amount: a, DueDate: now},
			{Status: StatusPending, Amount: b, DueDate: now},
		}
		stats := ComputeDashboard(payments, now)
		if stats.TotalAmount.Cents != 2500 {
			t.Errorf("TotalAmount = %d cents, want 2500", stats.TotalAmount.Cents)
		}
		if stats.TotalAmount.String() != "25.00" {
			t.Errorf("TotalAmount.String() = %s, want 25.00", stats.TotalAmount.String())
		}
	})
}
