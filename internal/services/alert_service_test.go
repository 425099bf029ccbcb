package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tourdesk/internal/alerts"
	"tourdesk/internal/core"
)

func TestAlertsFlagUnderpaidImminentBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Move the seeded booking's travel date inside the financial window.
	bookings := NewBookingService(f.repo, nil)
	soon := time.Now().UTC().AddDate(0, 0, 2)
	b, err := bookings.CreateBooking(ctx, core.Booking{
		ClientID:    f.client.ID,
		Destination: "Amman",
		TravelDate:  core.NewDate(soon.Year(), int(soon.Month()), soon.Day()),
		Passengers:  []core.Passenger{{Name: "Ada Kaya"}},
		Total:       core.Money{Cents: 90000, Currency: "USD"},
	})
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}

	svc := NewAlertService(f.repo, "")
	got, err := svc.Alerts(ctx)
	if err != nil {
		t.Fatalf("Alerts() error = %v", err)
	}

	var found bool
	for _, a := range got {
		if a.BookingID == b.ID && a.Kind == alerts.KindFinancial {
			found = true
			if a.Priority == alerts.PriorityNormal {
				t.Errorf("alert two days out should not be normal priority: %+v", a)
			}
		}
	}
	if !found {
		t.Fatalf("no financial alert for booking %d in %+v", b.ID, got)
	}
}

func TestAlertsCacheInvalidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	svc := NewAlertService(f.repo, "")
	first, err := svc.Alerts(ctx)
	if err != nil {
		t.Fatalf("Alerts() error = %v", err)
	}

	// A new imminent booking is invisible until the cache is dropped.
	bookings := NewBookingService(f.repo, nil)
	soon := time.Now().UTC().AddDate(0, 0, 1)
	if _, err := bookings.CreateBooking(ctx, core.Booking{
		ClientID:    f.client.ID,
		Destination: "Amman",
		TravelDate:  core.NewDate(soon.Year(), int(soon.Month()), soon.Day()),
		Passengers:  []core.Passenger{{Name: "Ada Kaya"}},
		Total:       core.Money{Cents: 90000, Currency: "USD"},
	}); err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}

	cached, err := svc.Alerts(ctx)
	if err != nil {
		t.Fatalf("Alerts() error = %v", err)
	}
	if len(cached) != len(first) {
		t.Fatalf("cache miss: got %d alerts, want %d", len(cached), len(first))
	}

	svc.Invalidate()
	fresh, err := svc.Alerts(ctx)
	if err != nil {
		t.Fatalf("Alerts() error = %v", err)
	}
	if len(fresh) <= len(first) {
		t.Errorf("after invalidation got %d alerts, want more than %d", len(fresh), len(first))
	}
}

func TestThresholdsRulesFileOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("financial_days: 30\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewAlertService(f.repo, path)
	got, err := svc.Thresholds(ctx)
	if err != nil {
		t.Fatalf("Thresholds() error = %v", err)
	}
	if got.FinancialDays != 30 {
		t.Errorf("FinancialDays = %d, want 30 from rules file", got.FinancialDays)
	}
	// Values the file does not set come from settings.
	if got.PassportDays != 180 {
		t.Errorf("PassportDays = %d, want 180", got.PassportDays)
	}

	// A broken rules file falls back to settings.
	broken := NewAlertService(f.repo, filepath.Join(t.TempDir(), "missing.yaml"))
	got, err = broken.Thresholds(ctx)
	if err != nil {
		t.Fatalf("Thresholds() error = %v", err)
	}
	if got.FinancialDays != 7 {
		t.Errorf("FinancialDays = %d, want settings default 7", got.FinancialDays)
	}
}
