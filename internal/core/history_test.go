package core

import (
	"testing"
	"time"
)

func paidAt(id string, cents int64, updated time.Time) Payment {
	return Payment{ID: id, Title: id, Amount: Money{Cents: cents}, Status: StatusPaid, UpdatedAt: updated}
}

func TestComputeHistory(t *testing.T) {
	march := Month{Year: 2025, Month: time.March}
	payments := []Payment{
		paidAt("early-march", 1000, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)),
		paidAt("late-march", 2500, time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)),
		paidAt("february", 9900, time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC)),
		{ID: "still-pending", Status: StatusPending, Amount: Money{Cents: 500}, UpdatedAt: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
	}

	t.Run("month filter includes both boundaries", func(t *testing.T) {
		h := ComputeHistory(payments, &march)
		if h.TotalPayments != 2 {
			t.Fatalf("TotalPayments = %d, want 2", h.TotalPayments)
		}
		if h.TotalAmount.Cents != 3500 {
			t.Errorf("TotalAmount = %d cents, want 3500", h.TotalAmount.Cents)
		}
		// Most recently paid first.
		if h.Payments[0].ID != "late-march" || h.Payments[1].ID != "early-march" {
			t.Errorf("unexpected order: %s, %s", h.Payments[0].ID, h.Payments[1].ID)
		}
	})

	t.Run("paid in a different month excluded", func(t *testing.T) {
		h := ComputeHistory(payments, &march)
		for _, p := range h.Payments {
			if p.ID == "february" {
				t.Error("payment updated in February leaked into March history")
			}
		}
	})

	t.Run("nil month covers everything paid", func(t *testing.T) {
		h := ComputeHistory(payments, nil)
		if h.TotalPayments != 3 {
			t.Errorf("TotalPayments = %d, want 3", h.TotalPayments)
		}
		if h.TotalAmount.Cents != 1000+2500+9900 {
			t.Errorf("TotalAmount = %d cents", h.TotalAmount.Cents)
		}
	})

	t.Run("pending records never appear", func(t *testing.T) {
		h := ComputeHistory(payments, nil)
		for _, p := range h.Payments {
			if p.Status != StatusPaid {
				t.Errorf("non-paid payment %s in history", p.ID)
			}
		}
	})
}

func TestAvailableMonths(t *testing.T) {
	payments := []Payment{
		paidAt("a", 100, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)),
		paidAt("b", 100, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)),
		paidAt("c", 100, time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)),
		{ID: "d", Status: StatusPending, UpdatedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
	}

	months := AvailableMonths(payments)
	if len(months) != 2 {
		t.Fatalf("AvailableMonths() returned %d months, want 2", len(months))
	}
	if months[0].String() != "2025-03" || months[1].String() != "2025-01" {
		t.Errorf("AvailableMonths() = [%s, %s], want most recent first", months[0], months[1])
	}
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2025-03")
	if err != nil {
		t.Fatalf("ParseMonth() error = %v", err)
	}
	if m.Year != 2025 || m.Month != time.March {
		t.Errorf("ParseMonth() = %+v", m)
	}
	if !m.Contains(time.Date(2025, 3, 31, 23, 59, 59, 999999999, time.UTC)) {
		t.Error("Contains() = false for last instant of month")
	}
	if m.Contains(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("Contains() = true for first instant of next month")
	}

	if _, err := ParseMonth("March 2025"); err == nil {
		t.Error("ParseMonth() accepted malformed input")
	}
}
