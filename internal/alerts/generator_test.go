package alerts

import (
	"os"
	"path/filepath"
	"testing"

	"tourdesk/internal/core"
)

func TestGenerateSortsAndFilters(t *testing.T) {
	paidLater := openBooking()
	paidLater.ID = 1
	paidLater.Reference = "BK-1"
	paidLater.Paid.Cents = 0
	paidLater.TravelDate = core.NewDate(2026, 8, 29) // normal financial

	overdue := openBooking()
	overdue.ID = 2
	overdue.Reference = "BK-2"
	overdue.Paid.Cents = 0
	overdue.TravelDate = core.NewDate(2026, 8, 20) // urgent financial

	cancelled := openBooking()
	cancelled.ID = 3
	cancelled.Status = core.StatusCancelled
	cancelled.Paid.Cents = 0
	cancelled.TravelDate = core.NewDate(2026, 8, 20)

	got := Generate([]core.Booking{paidLater, overdue, cancelled}, DefaultThresholds, testNow)
	if len(got) != 2 {
		t.Fatalf("Generate() returned %d alerts, want 2", len(got))
	}
	if got[0].BookingID != 2 || got[0].Priority != PriorityUrgent {
		t.Errorf("first alert = %+v, want urgent for booking 2", got[0])
	}
	if got[1].BookingID != 1 {
		t.Errorf("second alert booking = %d, want 1", got[1].BookingID)
	}
}

func TestGenerateDisabledRule(t *testing.T) {
	b := openBooking()
	b.Paid.Cents = 0
	thresholds := DefaultThresholds
	thresholds.FinancialDays = 0

	got := Generate([]core.Booking{b}, thresholds, testNow)
	for _, a := range got {
		if a.Kind == KindFinancial {
			t.Errorf("financial rule produced an alert while disabled: %+v", a)
		}
	}
}

func TestLoadThresholdsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := "financial_days: 14\nflight_days: 5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadThresholdsFile(path, DefaultThresholds)
	if err != nil {
		t.Fatalf("LoadThresholdsFile() error = %v", err)
	}
	if got.FinancialDays != 14 {
		t.Errorf("FinancialDays = %d, want 14", got.FinancialDays)
	}
	if got.FlightDays != 5 {
		t.Errorf("FlightDays = %d, want 5", got.FlightDays)
	}
	// Unset fields keep the base values.
	if got.PassportDays != DefaultThresholds.PassportDays {
		t.Errorf("PassportDays = %d, want %d", got.PassportDays, DefaultThresholds.PassportDays)
	}

	if _, err := LoadThresholdsFile(filepath.Join(dir, "missing.yaml"), DefaultThresholds); err == nil {
		t.Error("LoadThresholdsFile() with missing file expected error")
	}
}
