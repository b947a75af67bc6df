package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"paydue/internal/core"
)

func samplePayment() core.Payment {
	return core.Payment{
		ID:        "f6a2c9d0-1111-4222-8333-944455566677",
		OwnerID:   "owner-1",
		Title:     "Electric bill",
		Amount:    core.Money{Cents: 8450},
		DueDate:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:    core.StatusPaid,
		Notes:     "budget billing",
		CreatedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 3, 14, 16, 40, 0, 0, time.UTC),
	}
}

func TestReceiptID(t *testing.T) {
	if got := ReceiptID("f6a2c9d0-1111-4222-8333-944455566677"); got != "f6a2c9d0" {
		t.Errorf("ReceiptID = %q, want f6a2c9d0", got)
	}
	if got := ReceiptID("short"); got != "short" {
		t.Errorf("ReceiptID of short id = %q, want short", got)
	}
}

func TestWriteReceipt(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)

	if err := WriteReceipt(&buf, samplePayment(), now); err != nil {
		t.Fatalf("write receipt: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("expected PDF magic header")
	}
	if buf.Len() < 500 {
		t.Errorf("suspiciously small PDF: %d bytes", buf.Len())
	}
}

func TestWriteReceipt_OmitsEmptyNotes(t *testing.T) {
	p := samplePayment()
	p.Notes = ""

	var buf bytes.Buffer
	if err := WriteReceipt(&buf, p, time.Now()); err != nil {
		t.Fatalf("write receipt: %v", err)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	second := samplePayment()
	second.Title = `Water, "quarterly"`
	second.Status = core.StatusPending
	second.Notes = ""

	if err := WriteCSV(&buf, []core.Payment{samplePayment(), second}); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}

	header := strings.Join(records[0], "|")
	if header != "Title|Amount|Due Date|Status|Notes|Created At" {
		t.Errorf("unexpected header: %s", header)
	}

	first := records[1]
	if first[0] != "Electric bill" || first[1] != "84.50" || first[2] != "2026-03-15" || first[3] != "paid" {
		t.Errorf("unexpected first row: %v", first)
	}

	// Embedded comma and quotes survive the round trip.
	if records[2][0] != `Water, "quarterly"` {
		t.Errorf("quoting broken: %q", records[2][0])
	}
}

func TestWriteCSV_EmptySelection(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Errorf("expected header only, got %d lines", len(lines))
	}
}
