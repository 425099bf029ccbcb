package alerts

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"tourdesk/internal/core"
)

// DefaultThresholds are used until settings override them.
var DefaultThresholds = core.AlertThresholds{
	FinancialDays: 7,
	PassportDays:  180,
	FlightDays:    3,
	HotelDays:     3,
}

// windowFor returns the configured day window for a rule kind.
func windowFor(t core.AlertThresholds, kind Kind) int {
	switch kind {
	case KindFinancial:
		return t.FinancialDays
	case KindPassport:
		return t.PassportDays
	case KindFlight:
		return t.FlightDays
	case KindHotel:
		return t.HotelDays
	default:
		return 0
	}
}

// Generate evaluates every registered rule against every open booking and
// returns the alerts sorted urgent-first, then by due date. Cancelled and
// completed bookings never alert; a non-positive window disables its rule.
func Generate(bookings []core.Booking, thresholds core.AlertThresholds, now time.Time) []Alert {
	var out []Alert
	for _, b := range bookings {
		if b.Status != core.StatusOpen {
			continue
		}
		for kind, checker := range ruleRegistry {
			window := windowFor(thresholds, kind)
			if window <= 0 {
				continue
			}
			out = append(out, checker.Evaluate(b, now, window)...)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		if !out[i].DueDate.Equal(out[j].DueDate.Time) {
			return out[i].DueDate.Before(out[j].DueDate.Time)
		}
		return out[i].BookingID < out[j].BookingID
	})
	return out
}

// LoadThresholdsFile reads threshold overrides from a YAML file. Fields left
// out of the file keep the values in base.
func LoadThresholdsFile(path string, base core.AlertThresholds) (core.AlertThresholds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read alert rules file: %w", err)
	}
	overrides := base
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return base, fmt.Errorf("parse alert rules file: %w", err)
	}
	return overrides, nil
}
