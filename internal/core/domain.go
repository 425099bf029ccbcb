package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// Transaction kinds.
	KindPayment    TransactionKind = "payment"
	KindRefund     TransactionKind = "refund"
	KindExpense    TransactionKind = "expense"
	KindTransfer   TransactionKind = "transfer"
	KindAdjustment TransactionKind = "adjustment"

	// Transaction directions relative to the treasury account.
	Credit Direction = "credit"
	Debit  Direction = "debit"

	// Booking statuses.
	StatusOpen      BookingStatus = "open"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"

	// User roles.
	RoleAdmin      UserRole = "admin"
	RoleAccountant UserRole = "accountant"
	RoleAgent      UserRole = "agent"
)

type (
	TransactionKind string
	Direction       string
	BookingStatus   string
	UserRole        string

	Date struct {
		time.Time
	}

	// Passenger is a traveller on a booking. Passport data drives expiry alerts.
	Passenger struct {
		ID             int64
		Name           string
		PassportNumber string
		PassportExpiry Date
	}

	// ServiceItem is a priced line on a booking (flight, hotel, visa, ...).
	ServiceItem struct {
		ID          int64
		Kind        string
		Description string
		Quantity    int64
		UnitPrice   Money
	}

	// Booking is a client's travel file aggregating services, passengers and payments.
	Booking struct {
		ID              int64
		Reference       string
		ClientID        int64
		AgentID         int64
		Destination     string
		TravelDate      Date
		ReturnDate      Date // optional
		FlightDeparture Date // optional; drives flight alerts
		HotelName       string
		HotelCheckIn    Date // optional; drives hotel alerts
		Status          BookingStatus
		Passengers      []Passenger
		Items           []ServiceItem
		Total           Money
		Paid            Money
		Notes           string
		CreatedAt       time.Time
	}

	// Client is a customer ledger account. A positive balance means the client
	// still owes the agency.
	Client struct {
		ID      int64
		Name    string
		Phone   string
		Email   string
		Balance Money
	}

	// Agent is a sales-agent ledger account. CommissionBps is the commission in
	// basis points of the booking total; a positive balance means the agency owes
	// the agent.
	Agent struct {
		ID            int64
		Name          string
		Phone         string
		CommissionBps int64
		Balance       Money
	}

	// Treasury is a named cash or bank balance account credited or debited by
	// transactions. Rate converts its currency to the agency default currency.
	Treasury struct {
		ID       int64
		Name     string
		Currency string
		Balance  Money
		Rate     ExchangeRate
	}

	// Transaction is a single treasury movement, optionally tied to a booking
	// and client. Voided transactions stay on record with reversed effects.
	Transaction struct {
		ID          int64
		Reference   string
		Kind        TransactionKind
		Direction   Direction
		TreasuryID  int64
		BookingID   int64 // 0 when not booking-related
		ClientID    int64 // 0 when not client-related
		Amount      Money
		Description string
		Voided      bool
		CreatedAt   time.Time
	}

	User struct {
		ID       int64
		Username string
		FullName string
		Role     UserRole
	}

	// AlertThresholds holds the configurable day windows for each alert rule.
	// A zero or negative value disables the rule.
	AlertThresholds struct {
		FinancialDays int `yaml:"financial_days"`
		PassportDays  int `yaml:"passport_days"`
		FlightDays    int `yaml:"flight_days"`
		HotelDays     int `yaml:"hotel_days"`
	}

	// Settings is the persisted agency configuration.
	Settings struct {
		AgencyName      string
		AgencyAddress   string
		AgencyPhone     string
		TaxNumber       string
		DefaultCurrency string
		Thresholds      AlertThresholds
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDestination = errors.New("empty destination")
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrInvalidDirection = errors.New("invalid transaction direction")
	ErrInvalidStatus    = errors.New("invalid booking status")
	ErrInvalidCurrency  = errors.New("invalid currency code")
	ErrOverpayment      = errors.New("payment exceeds amount due")
	ErrAlreadyVoided    = errors.New("transaction already voided")
	ErrNotFound         = errors.New("not found")
)

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// IsEmpty reports whether the date is unset (optional dates use the zero value).
func (d Date) IsEmpty() bool { return d.IsZero() }

// DaysUntil returns whole days from now's date to d, negative when d is past.
func (d Date) DaysUntil(now time.Time) int {
	a := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func (p Passenger) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	// Passport data is optional but must be complete when present.
	if p.PassportNumber != "" && p.PassportExpiry.IsEmpty() {
		return errors.New("passport number given without expiry date")
	}
	return nil
}

// LineTotal returns quantity times unit price.
func (it ServiceItem) LineTotal() Money {
	return Money{Cents: it.Quantity * it.UnitPrice.Cents, Currency: it.UnitPrice.Currency}
}

func (it ServiceItem) Validate() error {
	if strings.TrimSpace(it.Description) == "" {
		return errors.New("empty service description")
	}
	if it.Quantity < 1 {
		return errors.New("service quantity must be at least 1")
	}
	if err := it.UnitPrice.Validate(); err != nil {
		return err
	}
	return nil
}

// Due returns the outstanding amount on the booking.
func (b Booking) Due() Money {
	return Money{Cents: b.Total.Cents - b.Paid.Cents, Currency: b.Total.Currency}
}

// ItemsTotal returns the sum of all service lines.
func (b Booking) ItemsTotal() Money {
	var cents int64
	for _, it := range b.Items {
		cents += it.Quantity * it.UnitPrice.Cents
	}
	return Money{Cents: cents, Currency: b.Total.Currency}
}

func (b Booking) Validate() error {
	if strings.TrimSpace(b.Destination) == "" {
		return ErrEmptyDestination
	}
	if len(b.Destination) > 200 {
		return errors.New("destination too long (max 200 characters)")
	}
	if b.ClientID == 0 {
		return errors.New("booking requires a client")
	}
	if err := b.TravelDate.Validate(); err != nil {
		return errors.New("invalid travel date: " + err.Error())
	}
	if !b.ReturnDate.IsEmpty() && b.ReturnDate.Before(b.TravelDate.Time) {
		return errors.New("return date before travel date")
	}
	switch b.Status {
	case StatusOpen, StatusCompleted, StatusCancelled:
	default:
		return ErrInvalidStatus
	}
	if err := b.Total.Validate(); err != nil {
		return err
	}
	if b.Paid.Cents < 0 || b.Paid.Cents > b.Total.Cents {
		return ErrOverpayment
	}
	if len(b.Passengers) == 0 {
		return errors.New("booking requires at least one passenger")
	}
	for _, p := range b.Passengers {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	for _, it := range b.Items {
		if err := it.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c Client) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 200 {
		return errors.New("client name too long (max 200 characters)")
	}
	return nil
}

func (a Agent) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if a.CommissionBps < 0 || a.CommissionBps > 10000 {
		return errors.New("commission must be between 0 and 10000 basis points")
	}
	return nil
}

// Commission returns the agent's commission on the given amount, rounded half-up.
func (a Agent) Commission(total Money) Money {
	cents := (total.Cents*a.CommissionBps + 5000) / 10000
	return Money{Cents: cents, Currency: total.Currency}
}

func (t Treasury) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if len(t.Currency) != 3 {
		return ErrInvalidCurrency
	}
	return nil
}

func (tx Transaction) Validate() error {
	switch tx.Kind {
	case KindPayment, KindRefund, KindExpense, KindTransfer, KindAdjustment:
	default:
		return ErrInvalidKind
	}
	switch tx.Direction {
	case Credit, Debit:
	default:
		return ErrInvalidDirection
	}
	if tx.TreasuryID == 0 {
		return errors.New("transaction requires a treasury")
	}
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(tx.Description)) == 0 {
		return errors.New("empty transaction description")
	}
	return nil
}

// Signed returns the transaction amount with the treasury-side sign applied.
func (tx Transaction) Signed() int64 {
	if tx.Direction == Debit {
		return -tx.Amount.Cents
	}
	return tx.Amount.Cents
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return errors.New("empty username")
	}
	switch u.Role {
	case RoleAdmin, RoleAccountant, RoleAgent:
	default:
		return errors.New("invalid user role")
	}
	return nil
}

func (s Settings) Validate() error {
	if strings.TrimSpace(s.AgencyName) == "" {
		return errors.New("empty agency name")
	}
	if len(s.DefaultCurrency) != 3 {
		return ErrInvalidCurrency
	}
	return nil
}
