package core

import "time"

const (
	ClassPaid    Classification = "paid"
	ClassOverdue Classification = "overdue"
	ClassDueSoon Classification = "due_soon"
	ClassPending Classification = "pending"
)

// Classification is the derived, non-persistent state computed fresh from
// status, due date and "now". Exactly one classification applies to a payment.
type Classification string

// DueSoonWindow is the forward-looking half-open interval [today, today+7d)
// used to flag payments needing imminent attention.
const DueSoonWindow = 7 * 24 * time.Hour

// Classify buckets a payment relative to now. Paid is terminal; for pending
// payments the due date is compared at calendar-day granularity:
//
//	due < today           -> overdue (strictly before; due today is not overdue)
//	today <= due < today+7 -> due_soon (upper bound exclusive)
//	otherwise             -> pending
func Classify(p Payment, now time.Time) Classification {
	if p.Status == StatusPaid {
		return ClassPaid
	}
	today := Day(now)
	due := Day(p.DueDate)
	if due.Before(today) {
		return ClassOverdue
	}
	if due.Before(today.AddDate(0, 0, 7)) {
		return ClassDueSoon
	}
	return ClassPending
}

// IsOverdue reports whether a pending payment's due date lies strictly in the
// past relative to now.
func IsOverdue(p Payment, now time.Time) bool {
	return p.Status == StatusPending && Day(p.DueDate).Before(Day(now))
}

// IsDueSoon reports whether a pending payment falls inside the due-soon
// window.
func IsDueSoon(p Payment, now time.Time) bool {
	return Classify(p, now) == ClassDueSoon
}
