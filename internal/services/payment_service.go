package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"paydue/internal/cache"
	"paydue/internal/core"
)

// storeTimeout bounds every store call so a hung backend surfaces as an
// error instead of wedging the request.
const storeTimeout = 5 * time.Second

// PaymentStore is the slice of the repository the service needs.
type PaymentStore interface {
	ListPayments(ctx context.Context, ownerID string) ([]core.Payment, error)
	GetPayment(ctx context.Context, ownerID, id string) (core.Payment, error)
	CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error)
	UpdatePayment(ctx context.Context, p core.Payment) (core.Payment, error)
	DeletePayment(ctx context.Context, ownerID, id string) error
	MarkPaid(ctx context.Context, ownerID, id string) (core.Payment, int64, error)
}

// SyncPublisher queues a paid payment for the spreadsheet worker.
type SyncPublisher interface {
	PublishPaymentSync(ctx context.Context, id string, version int64) error
}

// PaymentService orchestrates payment operations across the store, the
// per-owner collection cache and the export queue.
type PaymentService struct {
	store     PaymentStore
	publisher SyncPublisher
	cache     *cache.LRUCache[[]core.Payment]
}

func NewPaymentService(store PaymentStore, publisher SyncPublisher, collectionCache *cache.LRUCache[[]core.Payment]) *PaymentService {
	return &PaymentService{
		store:     store,
		publisher: publisher,
		cache:     collectionCache,
	}
}

func requireOwner(ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("%w: no owner resolved", core.ErrUnauthenticated)
	}
	return nil
}

// List returns the owner's full collection, serving from cache when the
// staleness window allows.
func (s *PaymentService) List(ctx context.Context, ownerID string) ([]core.Payment, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	if cached, ok := s.cache.Get(ownerID); ok {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	payments, err := s.store.ListPayments(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ownerID, payments)
	return payments, nil
}

// Get loads a single payment owned by ownerID.
func (s *PaymentService) Get(ctx context.Context, ownerID, id string) (core.Payment, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Payment{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	return s.store.GetPayment(ctx, ownerID, id)
}

// Create validates the draft and persists a new pending payment. The
// cached collection is patched in place rather than invalidated.
func (s *PaymentService) Create(ctx context.Context, ownerID string, draft core.PaymentDraft) (core.Payment, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Payment{}, err
	}
	if err := draft.Validate(); err != nil {
		return core.Payment{}, err
	}

	cents, err := core.ParseAmount(draft.Amount)
	if err != nil {
		return core.Payment{}, err
	}

	payment := core.Payment{
		OwnerID: ownerID,
		Title:   draft.Title,
		Amount:  core.Money{Cents: cents},
		DueDate: core.Day(draft.DueDate),
		Status:  core.StatusPending,
		Notes:   draft.Notes,
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	created, err := s.store.CreatePayment(ctx, payment)
	if err != nil {
		return core.Payment{}, fmt.Errorf("create payment: %w", err)
	}

	s.cache.Update(ownerID, func(payments []core.Payment) []core.Payment {
		// Keep the cached collection in the store's due_date order, ties
		// retaining creation order.
		next := append([]core.Payment(nil), payments...)
		i := sort.Search(len(next), func(i int) bool {
			return next[i].DueDate.After(created.DueDate)
		})
		next = append(next, core.Payment{})
		copy(next[i+1:], next[i:])
		next[i] = created
		return next
	})

	slog.InfoContext(ctx, "Payment created",
		"id", created.ID,
		"owner_id", ownerID,
		"amount_cents", created.Amount.Cents)

	return created, nil
}

// Update rewrites a payment's editable fields. Status is untouched here;
// the only status transition goes through MarkPaid.
func (s *PaymentService) Update(ctx context.Context, ownerID, id string, draft core.PaymentDraft) (core.Payment, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Payment{}, err
	}
	if err := draft.Validate(); err != nil {
		return core.Payment{}, err
	}

	cents, err := core.ParseAmount(draft.Amount)
	if err != nil {
		return core.Payment{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	current, err := s.store.GetPayment(ctx, ownerID, id)
	if err != nil {
		return core.Payment{}, err
	}

	current.Title = draft.Title
	current.Amount = core.Money{Cents: cents}
	current.DueDate = core.Day(draft.DueDate)
	current.Notes = draft.Notes

	updated, err := s.store.UpdatePayment(ctx, current)
	if err != nil {
		return core.Payment{}, fmt.Errorf("update payment: %w", err)
	}

	s.replaceCached(ownerID, updated)

	return updated, nil
}

// Delete removes a payment owned by ownerID.
func (s *PaymentService) Delete(ctx context.Context, ownerID, id string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.store.DeletePayment(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}

	s.cache.Update(ownerID, func(payments []core.Payment) []core.Payment {
		kept := payments[:0:0]
		for _, p := range payments {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		return kept
	})

	slog.InfoContext(ctx, "Payment deleted", "id", id, "owner_id", ownerID)
	return nil
}

// MarkPaid transitions a payment to paid and queues it for spreadsheet
// export. A publish failure does not fail the request; the worker's
// periodic pass picks the row up later.
func (s *PaymentService) MarkPaid(ctx context.Context, ownerID, id string) (core.Payment, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Payment{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	paid, version, err := s.store.MarkPaid(ctx, ownerID, id)
	if err != nil {
		return core.Payment{}, fmt.Errorf("mark paid: %w", err)
	}

	s.replaceCached(ownerID, paid)

	if s.publisher == nil {
		slog.WarnContext(ctx, "Sync publisher not available, relying on periodic export pass", "id", id)
		return paid, nil
	}
	if err := s.publisher.PublishPaymentSync(ctx, paid.ID, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", paid.ID, "version", version, "error", err)
	}

	return paid, nil
}

// Revalidate drops the cached collection so the next List hits the store.
func (s *PaymentService) Revalidate(ownerID string) {
	s.cache.Delete(ownerID)
}

func (s *PaymentService) replaceCached(ownerID string, updated core.Payment) {
	s.cache.Update(ownerID, func(payments []core.Payment) []core.Payment {
		next := append([]core.Payment(nil), payments...)
		for i, p := range next {
			if p.ID == updated.ID {
				next[i] = updated
				break
			}
		}
		sort.SliceStable(next, func(i, j int) bool {
			return next[i].DueDate.Before(next[j].DueDate)
		})
		return next
	})
}
