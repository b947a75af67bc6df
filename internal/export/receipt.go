// Package export renders payment data into portable documents: a PDF
// receipt for a single payment and a CSV table for a history selection.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"paydue/internal/core"
)

// ReceiptID derives the short receipt identifier from a payment id.
func ReceiptID(paymentID string) string {
	if len(paymentID) <= 8 {
		return paymentID
	}
	return paymentID[:8]
}

// WriteReceipt renders a one-page PDF receipt for the payment.
func WriteReceipt(w io.Writer, p core.Payment, now time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Payment Receipt", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, "Payment Receipt")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(110, 110, 110)
	pdf.Cell(0, 6, fmt.Sprintf("Receipt #%s", ReceiptID(p.ID)))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Generated on %s", now.Format("January 2, 2006")))
	pdf.Ln(12)

	pdf.SetTextColor(0, 0, 0)
	writeField(pdf, "Title", p.Title)
	writeField(pdf, "Amount", p.Amount.String())
	writeField(pdf, "Due Date", p.DueDate.Format("2006-01-02"))
	writeField(pdf, "Status", string(p.Status))
	if p.Notes != "" {
		writeField(pdf, "Notes", p.Notes)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render receipt pdf: %w", err)
	}
	return nil
}

func writeField(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(40, 8, label)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 8, value, "", "L", false)
	pdf.Ln(1)
}
