// Package alerts derives prioritized notices from booking state.
//
// Each alert kind (financial, passport, flight, hotel) has its own rule
// checker that encapsulates the date-threshold comparison for that kind.
package alerts

import (
	"fmt"
	"time"

	"tourdesk/internal/core"
)

// Kind identifies the rule that produced an alert.
type Kind string

const (
	KindFinancial Kind = "financial"
	KindPassport  Kind = "passport"
	KindFlight    Kind = "flight"
	KindHotel     Kind = "hotel"
)

// Priority orders alerts for display; lower sorts first.
type Priority int

const (
	PriorityUrgent Priority = iota
	PriorityHigh
	PriorityNormal
)

func (p Priority) String() string {
	switch p {
	case PriorityUrgent:
		return "urgent"
	case PriorityHigh:
		return "high"
	default:
		return "normal"
	}
}

// Alert is a derived notice about a booking.
type Alert struct {
	Kind       Kind
	Priority   Priority
	BookingID  int64
	BookingRef string
	Message    string
	DueDate    core.Date
	DaysLeft   int
}

// RuleChecker is the strategy interface for one alert kind. Implementations
// return zero or more alerts for a booking given the configured day window.
type RuleChecker interface {
	Evaluate(b core.Booking, now time.Time, days int) []Alert
}

// priorityFor grades proximity: past-due dates are urgent, dates inside the
// nearest third of the window are high, the rest of the window is normal.
func priorityFor(daysLeft, window int) Priority {
	switch {
	case daysLeft < 0:
		return PriorityUrgent
	case daysLeft*3 <= window:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}

// FinancialChecker flags open bookings with an unpaid balance when the travel
// date is inside the window.
type FinancialChecker struct{}

func (FinancialChecker) Evaluate(b core.Booking, now time.Time, days int) []Alert {
	due := b.Due()
	if due.Cents <= 0 {
		return nil
	}
	daysLeft := b.TravelDate.DaysUntil(now)
	if daysLeft > days {
		return nil
	}
	return []Alert{{
		Kind:       KindFinancial,
		Priority:   priorityFor(daysLeft, days),
		BookingID:  b.ID,
		BookingRef: b.Reference,
		Message:    fmt.Sprintf("%s due on booking %s, travel in %d day(s)", due.Display(), b.Reference, daysLeft),
		DueDate:    b.TravelDate,
		DaysLeft:   daysLeft,
	}}
}

// PassportChecker flags passengers whose passport expires within the window
// counted from the travel date. Many destinations require six months of
// validity, so the window is usually large.
type PassportChecker struct{}

func (PassportChecker) Evaluate(b core.Booking, now time.Time, days int) []Alert {
	var out []Alert
	for _, p := range b.Passengers {
		if p.PassportNumber == "" || p.PassportExpiry.IsEmpty() {
			continue
		}
		daysPastTravel := p.PassportExpiry.DaysUntil(b.TravelDate.Time)
		if daysPastTravel > days {
			continue
		}
		out = append(out, Alert{
			Kind:       KindPassport,
			Priority:   priorityFor(daysPastTravel, days),
			BookingID:  b.ID,
			BookingRef: b.Reference,
			Message:    fmt.Sprintf("passport of %s expires %s, booking %s", p.Name, p.PassportExpiry.Format("2006-01-02"), b.Reference),
			DueDate:    p.PassportExpiry,
			DaysLeft:   p.PassportExpiry.DaysUntil(now),
		})
	}
	return out
}

// FlightChecker flags upcoming flight departures inside the window.
type FlightChecker struct{}

func (FlightChecker) Evaluate(b core.Booking, now time.Time, days int) []Alert {
	if b.FlightDeparture.IsEmpty() {
		return nil
	}
	daysLeft := b.FlightDeparture.DaysUntil(now)
	if daysLeft > days || daysLeft < 0 {
		// Departed flights are history, not alerts.
		return nil
	}
	return []Alert{{
		Kind:       KindFlight,
		Priority:   priorityFor(daysLeft, days),
		BookingID:  b.ID,
		BookingRef: b.Reference,
		Message:    fmt.Sprintf("flight for booking %s departs in %d day(s)", b.Reference, daysLeft),
		DueDate:    b.FlightDeparture,
		DaysLeft:   daysLeft,
	}}
}

// HotelChecker flags upcoming hotel check-ins inside the window.
type HotelChecker struct{}

func (HotelChecker) Evaluate(b core.Booking, now time.Time, days int) []Alert {
	if b.HotelCheckIn.IsEmpty() {
		return nil
	}
	daysLeft := b.HotelCheckIn.DaysUntil(now)
	if daysLeft > days || daysLeft < 0 {
		return nil
	}
	name := b.HotelName
	if name == "" {
		name = "hotel"
	}
	return []Alert{{
		Kind:       KindHotel,
		Priority:   priorityFor(daysLeft, days),
		BookingID:  b.ID,
		BookingRef: b.Reference,
		Message:    fmt.Sprintf("check-in at %s for booking %s in %d day(s)", name, b.Reference, daysLeft),
		DueDate:    b.HotelCheckIn,
		DaysLeft:   daysLeft,
	}}
}

// ruleRegistry maps alert kinds to their checkers for O(1) lookup.
var ruleRegistry = map[Kind]RuleChecker{
	KindFinancial: FinancialChecker{},
	KindPassport:  PassportChecker{},
	KindFlight:    FlightChecker{},
	KindHotel:     HotelChecker{},
}

// GetRuleChecker returns the checker for an alert kind.
func GetRuleChecker(kind Kind) (RuleChecker, error) {
	checker, ok := ruleRegistry[kind]
	if !ok {
		return nil, fmt.Errorf("unknown alert kind: %s", kind)
	}
	return checker, nil
}

// RegisterRuleChecker registers a checker for a new alert kind.
func RegisterRuleChecker(kind Kind, checker RuleChecker) {
	ruleRegistry[kind] = checker
}
