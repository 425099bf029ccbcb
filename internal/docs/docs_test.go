package docs

import (
	"bytes"
	"strings"
	"testing"

	"tourdesk/internal/core"
)

func sampleData() DocumentData {
	return DocumentData{
		Settings: core.Settings{
			AgencyName:      "Tourdesk Travel",
			AgencyAddress:   "12 Harbour St",
			AgencyPhone:     "+1 555 0100",
			TaxNumber:       "TT-4821",
			DefaultCurrency: "USD",
		},
		Client: core.Client{Name: "Nur Demir", Phone: "+1 555 0199"},
		Booking: core.Booking{
			Reference:   "BK-A1B2C3D4E5",
			Destination: "Istanbul",
			TravelDate:  core.NewDate(2026, 9, 10),
			ReturnDate:  core.NewDate(2026, 9, 20),
			HotelName:   "Pera Palace",
			Status:      core.StatusOpen,
			Passengers: []core.Passenger{
				{Name: "Ada Kaya", PassportNumber: "U1234567", PassportExpiry: core.NewDate(2028, 1, 15)},
			},
			Items: []core.ServiceItem{
				{Kind: "flight", Description: "IST-CDG return", Quantity: 2, UnitPrice: core.Money{Cents: 90000, Currency: "USD"}},
			},
			Total: core.Money{Cents: 250000, Currency: "USD"},
			Paid:  core.Money{Cents: 100000, Currency: "USD"},
		},
	}
}

func TestVoucherRendersBookingDetails(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	var buf bytes.Buffer
	if err := r.Voucher(&buf, sampleData()); err != nil {
		t.Fatalf("Voucher() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Tourdesk Travel",
		"BK-A1B2C3D4E5",
		"Istanbul",
		"Ada Kaya",
		"U1234567",
		"Pera Palace",
		"10 Sep 2026",
		"VCH-",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("voucher missing %q", want)
		}
	}
	// A voucher is not a financial document.
	if strings.Contains(out, "$2,500.00") {
		t.Error("voucher must not show money amounts")
	}
}

func TestInvoiceRendersTotals(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	var buf bytes.Buffer
	if err := r.Invoice(&buf, sampleData()); err != nil {
		t.Fatalf("Invoice() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"INV-",
		"Nur Demir",
		"IST-CDG return",
		"$900.00",   // unit price
		"$1,800.00", // line total
		"$2,500.00", // total
		"$1,000.00", // paid
		"$1,500.00", // balance due
		"One thousand five hundred and 00/100 USD",
		"TT-4821",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("invoice missing %q", want)
		}
	}
}

func TestDocumentNumbersAreDistinct(t *testing.T) {
	a, b := NewInvoiceNumber(), NewInvoiceNumber()
	if a == b {
		t.Errorf("consecutive invoice numbers collide: %q", a)
	}
	if !strings.HasPrefix(a, "INV-") || len(a) != 14 {
		t.Errorf("invoice number format = %q", a)
	}
	if v := NewVoucherNumber(); !strings.HasPrefix(v, "VCH-") {
		t.Errorf("voucher number format = %q", v)
	}
}
