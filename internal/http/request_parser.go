package http

import (
	"net/http"
	"strconv"
	"strings"

	"tourdesk/internal/core"
)

// sanitizeInput removes potentially dangerous characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	// Remove control characters except tab, newline, carriage return
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func formString(r *http.Request, name string) string {
	return sanitizeInput(r.Form.Get(name))
}

func formInt64(r *http.Request, name string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(r.Form.Get(name)), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func formInt(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.Form.Get(name)))
	if err != nil {
		return fallback
	}
	return v
}

// formAmountCents parses a decimal money field ("1250.50" or "1250,50").
func formAmountCents(r *http.Request, name string) (int64, error) {
	return core.ParseDecimalToCents(strings.TrimSpace(r.Form.Get(name)))
}

// formDate parses an optional YYYY-MM-DD field; empty input yields the unset date.
func formDate(r *http.Request, name string) (core.Date, error) {
	v := strings.TrimSpace(r.Form.Get(name))
	if v == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(v)
}

// parsePassengers reads the parallel passenger form arrays. Rows with an
// empty name are skipped so trailing blank rows in the form do no harm.
func parsePassengers(r *http.Request) ([]core.Passenger, error) {
	names := r.Form["passenger_name"]
	passports := r.Form["passport_number"]
	expiries := r.Form["passport_expiry"]

	var out []core.Passenger
	for i, name := range names {
		name = sanitizeInput(name)
		if name == "" {
			continue
		}
		p := core.Passenger{Name: name}
		if i < len(passports) {
			p.PassportNumber = sanitizeInput(passports[i])
		}
		if i < len(expiries) && strings.TrimSpace(expiries[i]) != "" {
			d, err := core.ParseDate(expiries[i])
			if err != nil {
				return nil, err
			}
			p.PassportExpiry = d
		}
		out = append(out, p)
	}
	return out, nil
}

// parseServiceItems reads the parallel service-line form arrays.
func parseServiceItems(r *http.Request, currency string) ([]core.ServiceItem, error) {
	kinds := r.Form["item_kind"]
	descriptions := r.Form["item_description"]
	quantities := r.Form["item_quantity"]
	prices := r.Form["item_unit_price"]

	var out []core.ServiceItem
	for i, desc := range descriptions {
		desc = sanitizeInput(desc)
		if desc == "" {
			continue
		}
		it := core.ServiceItem{Description: desc, Quantity: 1, Kind: "other"}
		if i < len(kinds) && sanitizeInput(kinds[i]) != "" {
			it.Kind = sanitizeInput(kinds[i])
		}
		if i < len(quantities) {
			if q, err := strconv.ParseInt(strings.TrimSpace(quantities[i]), 10, 64); err == nil && q > 0 {
				it.Quantity = q
			}
		}
		if i < len(prices) {
			cents, err := core.ParseDecimalToCents(prices[i])
			if err != nil {
				return nil, err
			}
			it.UnitPrice = core.Money{Cents: cents, Currency: currency}
		}
		out = append(out, it)
	}
	return out, nil
}
