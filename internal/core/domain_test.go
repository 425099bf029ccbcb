package core

import (
	"errors"
	"testing"
	"time"
)

func validBooking() Booking {
	return Booking{
		ClientID:    1,
		AgentID:     1,
		Destination: "Sharm El Sheikh",
		TravelDate:  NewDate(2026, 10, 1),
		Status:      StatusOpen,
		Passengers:  []Passenger{{Name: "Mona Adel"}},
		Items: []ServiceItem{
			{Kind: "hotel", Description: "5 nights half board", Quantity: 5, UnitPrice: Money{Cents: 20000, Currency: "USD"}},
		},
		Total: Money{Cents: 100000, Currency: "USD"},
	}
}

func TestBookingValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Booking)
		wantErr bool
	}{
		{"valid", func(b *Booking) {}, false},
		{"empty destination", func(b *Booking) { b.Destination = " " }, true},
		{"missing client", func(b *Booking) { b.ClientID = 0 }, true},
		{"zero travel date", func(b *Booking) { b.TravelDate = Date{} }, true},
		{"return before travel", func(b *Booking) { b.ReturnDate = NewDate(2026, 9, 1) }, true},
		{"bad status", func(b *Booking) { b.Status = "draft" }, true},
		{"zero total", func(b *Booking) { b.Total.Cents = 0 }, true},
		{"paid over total", func(b *Booking) { b.Paid.Cents = b.Total.Cents + 1 }, true},
		{"no passengers", func(b *Booking) { b.Passengers = nil }, true},
		{"passport without expiry", func(b *Booking) {
			b.Passengers[0].PassportNumber = "A1234567"
		}, true},
		{"passport with expiry", func(b *Booking) {
			b.Passengers[0].PassportNumber = "A1234567"
			b.Passengers[0].PassportExpiry = NewDate(2030, 1, 1)
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBooking()
			tt.mutate(&b)
			err := b.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBookingDue(t *testing.T) {
	b := validBooking()
	b.Paid = Money{Cents: 30000, Currency: "USD"}
	if got := b.Due().Cents; got != 70000 {
		t.Errorf("Due() = %d, want 70000", got)
	}
}

func TestBookingItemsTotal(t *testing.T) {
	b := validBooking()
	if got := b.ItemsTotal().Cents; got != 100000 {
		t.Errorf("ItemsTotal() = %d, want 100000", got)
	}
}

func TestAgentCommission(t *testing.T) {
	tests := []struct {
		name string
		bps  int64
		in   int64
		want int64
	}{
		{"five percent", 500, 100000, 5000},
		{"zero", 0, 100000, 0},
		{"rounds half up", 333, 100, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Agent{Name: "Sara", CommissionBps: tt.bps}
			got := a.Commission(Money{Cents: tt.in, Currency: "USD"})
			if got.Cents != tt.want {
				t.Errorf("Commission(%d) = %d, want %d", tt.in, got.Cents, tt.want)
			}
		})
	}
}

func TestTransactionValidate(t *testing.T) {
	tx := Transaction{
		Kind:        KindPayment,
		Direction:   Credit,
		TreasuryID:  1,
		Amount:      Money{Cents: 500, Currency: "USD"},
		Description: "deposit",
	}
	if err := tx.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	bad := tx
	bad.Kind = "loan"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("Validate() error = %v, want ErrInvalidKind", err)
	}

	bad = tx
	bad.Direction = "sideways"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidDirection) {
		t.Errorf("Validate() error = %v, want ErrInvalidDirection", err)
	}
}

func TestTransactionSigned(t *testing.T) {
	tx := Transaction{Direction: Credit, Amount: Money{Cents: 250}}
	if got := tx.Signed(); got != 250 {
		t.Errorf("Signed() credit = %d, want 250", got)
	}
	tx.Direction = Debit
	if got := tx.Signed(); got != -250 {
		t.Errorf("Signed() debit = %d, want -250", got)
	}
}

func TestDateDaysUntil(t *testing.T) {
	now := time.Date(2026, 8, 23, 15, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		d    Date
		want int
	}{
		{"same day", NewDate(2026, 8, 23), 0},
		{"tomorrow", NewDate(2026, 8, 24), 1},
		{"next week", NewDate(2026, 8, 30), 7},
		{"yesterday", NewDate(2026, 8, 22), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.DaysUntil(now); got != tt.want {
				t.Errorf("DaysUntil() = %d, want %d", got, tt.want)
			}
		})
	}
}
