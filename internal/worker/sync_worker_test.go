package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"paydue/internal/amqp"
	"paydue/internal/core"
	"paydue/internal/sheets/memory"
	"paydue/internal/storage"
)

type fakeExportStore struct {
	payments map[string]core.Payment
	states   map[string]storage.ExportState
}

func newFakeExportStore() *fakeExportStore {
	return &fakeExportStore{
		payments: make(map[string]core.Payment),
		states:   make(map[string]storage.ExportState),
	}
}

func (f *fakeExportStore) add(p core.Payment, state storage.ExportState) {
	f.payments[p.ID] = p
	f.states[p.ID] = state
}

func (f *fakeExportStore) PaymentByID(ctx context.Context, id string) (core.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return core.Payment{}, fmt.Errorf("get: %w", core.ErrNotFound)
	}
	return p, nil
}

func (f *fakeExportStore) PendingExportPayments(ctx context.Context, limit int) ([]storage.PendingExportPayment, error) {
	var out []storage.PendingExportPayment
	for id, state := range f.states {
		if state == storage.ExportPending && len(out) < limit {
			out = append(out, storage.PendingExportPayment{ID: id, Version: 2})
		}
	}
	return out, nil
}

func (f *fakeExportStore) MarkExported(ctx context.Context, id string) error {
	if _, ok := f.states[id]; !ok {
		return fmt.Errorf("mark exported: %w", core.ErrNotFound)
	}
	f.states[id] = storage.ExportSynced
	return nil
}

func (f *fakeExportStore) MarkExportError(ctx context.Context, id string) error {
	if _, ok := f.states[id]; !ok {
		return fmt.Errorf("mark export error: %w", core.ErrNotFound)
	}
	f.states[id] = storage.ExportError
	return nil
}

func paidPayment(id string) core.Payment {
	return core.Payment{
		ID:        id,
		OwnerID:   "owner-1",
		Title:     "Rent",
		Amount:    core.Money{Cents: 120000},
		DueDate:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Status:    core.StatusPaid,
		UpdatedAt: time.Now().UTC(),
	}
}

func TestHandleSyncMessage(t *testing.T) {
	store := newFakeExportStore()
	sheet := memory.New()
	store.add(paidPayment("p-1"), storage.ExportPending)

	w := NewSyncWorker(store, sheet, 10)
	msg := amqp.NewPaymentSyncMessage("p-1", 2)

	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if rows := sheet.Rows(); len(rows) != 1 || rows[0].ID != "p-1" {
		t.Errorf("expected one appended row, got %+v", rows)
	}
	if store.states["p-1"] != storage.ExportSynced {
		t.Errorf("expected synced state, got %s", store.states["p-1"])
	}
}

func TestHandleSyncMessage_GoneIsDropped(t *testing.T) {
	w := NewSyncWorker(newFakeExportStore(), memory.New(), 10)
	msg := amqp.NewPaymentSyncMessage("missing", 2)

	// A deleted payment must not requeue forever.
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Errorf("expected nil for missing payment, got %v", err)
	}
}

func TestHandleSyncMessage_SkipsUnpaid(t *testing.T) {
	store := newFakeExportStore()
	sheet := memory.New()
	p := paidPayment("p-1")
	p.Status = core.StatusPending
	store.add(p, storage.ExportNone)

	w := NewSyncWorker(store, sheet, 10)
	if err := w.HandleSyncMessage(context.Background(), amqp.NewPaymentSyncMessage("p-1", 1)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sheet.Rows()) != 0 {
		t.Error("unpaid payment must not reach the sheet")
	}
}

func TestHandleSyncMessage_SheetFailureMarksError(t *testing.T) {
	store := newFakeExportStore()
	sheet := memory.New()
	sheet.FailWith(errors.New("quota exceeded"))
	store.add(paidPayment("p-1"), storage.ExportPending)

	w := NewSyncWorker(store, sheet, 10)
	if err := w.HandleSyncMessage(context.Background(), amqp.NewPaymentSyncMessage("p-1", 2)); err == nil {
		t.Fatal("expected error from sheet failure")
	}
	if store.states["p-1"] != storage.ExportError {
		t.Errorf("expected error state, got %s", store.states["p-1"])
	}
}

func TestProcessPendingPayments(t *testing.T) {
	store := newFakeExportStore()
	sheet := memory.New()
	store.add(paidPayment("p-1"), storage.ExportPending)
	store.add(paidPayment("p-2"), storage.ExportPending)
	store.add(paidPayment("p-3"), storage.ExportSynced)

	w := NewSyncWorker(store, sheet, 10)
	if err := w.ProcessPendingPayments(context.Background()); err != nil {
		t.Fatalf("process pending: %v", err)
	}

	if len(sheet.Rows()) != 2 {
		t.Errorf("expected 2 exported rows, got %d", len(sheet.Rows()))
	}
	if store.states["p-1"] != storage.ExportSynced || store.states["p-2"] != storage.ExportSynced {
		t.Errorf("expected pending rows synced: %+v", store.states)
	}
}

func TestStartupSyncCheck(t *testing.T) {
	store := newFakeExportStore()
	sheet := memory.New()
	store.add(paidPayment("p-1"), storage.ExportPending)

	w := NewSyncWorker(store, sheet, 10)
	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("startup check: %v", err)
	}
	if store.states["p-1"] != storage.ExportSynced {
		t.Errorf("expected backlog drained, got %s", store.states["p-1"])
	}
}
