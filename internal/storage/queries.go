package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tourdesk/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same query methods
// run standalone or inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries is the statement layer over the tourdesk schema.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns the same queries bound to a transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Dates are stored as YYYY-MM-DD text; empty string means unset.

func dateText(d core.Date) string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format("2006-01-02")
}

func textDate(s string) core.Date {
	if s == "" {
		return core.Date{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return core.Date{}
	}
	return core.Date{Time: t}
}

func wrapNotFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return err
}

// --- clients ---

func (q *Queries) CreateClient(ctx context.Context, c core.Client) (core.Client, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO clients (name, phone, email, balance_cents, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.Name, c.Phone, c.Email, c.Balance.Cents, time.Now().UTC())
	if err != nil {
		return core.Client{}, fmt.Errorf("insert client: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.Client{}, fmt.Errorf("client insert id: %w", err)
	}
	return c, nil
}

func (q *Queries) GetClient(ctx context.Context, id int64) (core.Client, error) {
	var c core.Client
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, phone, email, balance_cents FROM clients WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Balance.Cents)
	if err != nil {
		return core.Client{}, wrapNotFound(err, "client")
	}
	return c, nil
}

func (q *Queries) ListClients(ctx context.Context) ([]core.Client, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, phone, email, balance_cents FROM clients ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var out []core.Client
	for rows.Next() {
		var c core.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Balance.Cents); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateClient(ctx context.Context, c core.Client) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE clients SET name = ?, phone = ?, email = ? WHERE id = ?`,
		c.Name, c.Phone, c.Email, c.ID)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	return nil
}

func (q *Queries) AdjustClientBalance(ctx context.Context, id, deltaCents int64) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE clients SET balance_cents = balance_cents + ? WHERE id = ?`, deltaCents, id)
	if err != nil {
		return fmt.Errorf("adjust client balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("client %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// --- agents ---

func (q *Queries) CreateAgent(ctx context.Context, a core.Agent) (core.Agent, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO agents (name, phone, commission_bps, balance_cents, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.Name, a.Phone, a.CommissionBps, a.Balance.Cents, time.Now().UTC())
	if err != nil {
		return core.Agent{}, fmt.Errorf("insert agent: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return core.Agent{}, fmt.Errorf("agent insert id: %w", err)
	}
	return a, nil
}

func (q *Queries) GetAgent(ctx context.Context, id int64) (core.Agent, error) {
	var a core.Agent
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, phone, commission_bps, balance_cents FROM agents WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.Phone, &a.CommissionBps, &a.Balance.Cents)
	if err != nil {
		return core.Agent{}, wrapNotFound(err, "agent")
	}
	return a, nil
}

func (q *Queries) ListAgents(ctx context.Context) ([]core.Agent, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, phone, commission_bps, balance_cents FROM agents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var out []core.Agent
	for rows.Next() {
		var a core.Agent
		if err := rows.Scan(&a.ID, &a.Name, &a.Phone, &a.CommissionBps, &a.Balance.Cents); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q *Queries) AdjustAgentBalance(ctx context.Context, id, deltaCents int64) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE agents SET balance_cents = balance_cents + ? WHERE id = ?`, deltaCents, id)
	if err != nil {
		return fmt.Errorf("adjust agent balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("agent %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// --- treasuries ---

func (q *Queries) CreateTreasury(ctx context.Context, t core.Treasury) (core.Treasury, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO treasuries (name, currency, balance_cents, rate, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.Name, t.Currency, t.Balance.Cents, t.Rate.String(), time.Now().UTC())
	if err != nil {
		return core.Treasury{}, fmt.Errorf("insert treasury: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return core.Treasury{}, fmt.Errorf("treasury insert id: %w", err)
	}
	t.Balance.Currency = t.Currency
	return t, nil
}

func scanTreasury(scan func(...any) error) (core.Treasury, error) {
	var t core.Treasury
	var rate string
	if err := scan(&t.ID, &t.Name, &t.Currency, &t.Balance.Cents, &rate); err != nil {
		return core.Treasury{}, err
	}
	t.Balance.Currency = t.Currency
	if r, err := core.ParseRate(rate); err == nil {
		t.Rate = r
	}
	return t, nil
}

func (q *Queries) GetTreasury(ctx context.Context, id int64) (core.Treasury, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, name, currency, balance_cents, rate FROM treasuries WHERE id = ?`, id)
	t, err := scanTreasury(row.Scan)
	if err != nil {
		return core.Treasury{}, wrapNotFound(err, "treasury")
	}
	return t, nil
}

func (q *Queries) ListTreasuries(ctx context.Context) ([]core.Treasury, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, currency, balance_cents, rate FROM treasuries ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list treasuries: %w", err)
	}
	defer rows.Close()

	var out []core.Treasury
	for rows.Next() {
		t, err := scanTreasury(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan treasury: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) AdjustTreasuryBalance(ctx context.Context, id, deltaCents int64) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE treasuries SET balance_cents = balance_cents + ? WHERE id = ?`, deltaCents, id)
	if err != nil {
		return fmt.Errorf("adjust treasury balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("treasury %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (q *Queries) UpdateTreasuryRate(ctx context.Context, id int64, rate core.ExchangeRate) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE treasuries SET rate = ? WHERE id = ?`, rate.String(), id)
	if err != nil {
		return fmt.Errorf("update treasury rate: %w", err)
	}
	return nil
}

// --- users ---

func (q *Queries) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO users (username, full_name, role) VALUES (?, ?, ?)`,
		u.Username, u.FullName, string(u.Role))
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user insert id: %w", err)
	}
	return u, nil
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	var u core.User
	err := q.db.QueryRowContext(ctx,
		`SELECT id, username, full_name, role FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.FullName, &u.Role)
	if err != nil {
		return core.User{}, wrapNotFound(err, "user")
	}
	return u, nil
}

func (q *Queries) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, username, full_name, role FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.Role); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// --- settings ---

func (q *Queries) GetSettings(ctx context.Context) (core.Settings, error) {
	var s core.Settings
	err := q.db.QueryRowContext(ctx,
		`SELECT agency_name, agency_address, agency_phone, tax_number, default_currency,
		        financial_days, passport_days, flight_days, hotel_days
		 FROM settings WHERE id = 1`).
		Scan(&s.AgencyName, &s.AgencyAddress, &s.AgencyPhone, &s.TaxNumber, &s.DefaultCurrency,
			&s.Thresholds.FinancialDays, &s.Thresholds.PassportDays,
			&s.Thresholds.FlightDays, &s.Thresholds.HotelDays)
	if err != nil {
		return core.Settings{}, wrapNotFound(err, "settings")
	}
	return s, nil
}

func (q *Queries) UpdateSettings(ctx context.Context, s core.Settings) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE settings SET agency_name = ?, agency_address = ?, agency_phone = ?, tax_number = ?,
		        default_currency = ?, financial_days = ?, passport_days = ?, flight_days = ?, hotel_days = ?
		 WHERE id = 1`,
		s.AgencyName, s.AgencyAddress, s.AgencyPhone, s.TaxNumber, s.DefaultCurrency,
		s.Thresholds.FinancialDays, s.Thresholds.PassportDays,
		s.Thresholds.FlightDays, s.Thresholds.HotelDays)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

// --- bookings ---

func (q *Queries) InsertBooking(ctx context.Context, b core.Booking) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO bookings (reference, client_id, agent_id, destination, travel_date, return_date,
		        flight_departure, hotel_name, hotel_checkin, status, total_cents, paid_cents, currency,
		        notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Reference, b.ClientID, b.AgentID, b.Destination,
		dateText(b.TravelDate), dateText(b.ReturnDate), dateText(b.FlightDeparture),
		b.HotelName, dateText(b.HotelCheckIn), string(b.Status),
		b.Total.Cents, b.Paid.Cents, b.Total.Currency, b.Notes, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("booking insert id: %w", err)
	}
	return id, nil
}

func (q *Queries) InsertPassenger(ctx context.Context, bookingID int64, p core.Passenger) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO passengers (booking_id, name, passport_number, passport_expiry) VALUES (?, ?, ?, ?)`,
		bookingID, p.Name, p.PassportNumber, dateText(p.PassportExpiry))
	if err != nil {
		return fmt.Errorf("insert passenger: %w", err)
	}
	return nil
}

func (q *Queries) InsertServiceItem(ctx context.Context, bookingID int64, it core.ServiceItem) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO service_items (booking_id, kind, description, quantity, unit_cents) VALUES (?, ?, ?, ?, ?)`,
		bookingID, it.Kind, it.Description, it.Quantity, it.UnitPrice.Cents)
	if err != nil {
		return fmt.Errorf("insert service item: %w", err)
	}
	return nil
}

func scanBooking(scan func(...any) error) (core.Booking, error) {
	var b core.Booking
	var travel, ret, flight, checkin, status, currency string
	err := scan(&b.ID, &b.Reference, &b.ClientID, &b.AgentID, &b.Destination,
		&travel, &ret, &flight, &b.HotelName, &checkin, &status,
		&b.Total.Cents, &b.Paid.Cents, &currency, &b.Notes, &b.CreatedAt)
	if err != nil {
		return core.Booking{}, err
	}
	b.TravelDate = textDate(travel)
	b.ReturnDate = textDate(ret)
	b.FlightDeparture = textDate(flight)
	b.HotelCheckIn = textDate(checkin)
	b.Status = core.BookingStatus(status)
	b.Total.Currency = currency
	b.Paid.Currency = currency
	return b, nil
}

const bookingColumns = `id, reference, client_id, agent_id, destination, travel_date, return_date,
	flight_departure, hotel_name, hotel_checkin, status, total_cents, paid_cents, currency, notes, created_at`

func (q *Queries) GetBooking(ctx context.Context, id int64) (core.Booking, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row.Scan)
	if err != nil {
		return core.Booking{}, wrapNotFound(err, "booking")
	}
	return b, nil
}

func (q *Queries) GetBookingByReference(ctx context.Context, ref string) (core.Booking, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE reference = ?`, ref)
	b, err := scanBooking(row.Scan)
	if err != nil {
		return core.Booking{}, wrapNotFound(err, "booking")
	}
	return b, nil
}

func (q *Queries) collectBookings(rows *sql.Rows) ([]core.Booking, error) {
	defer rows.Close()
	var out []core.Booking
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListBookings returns bookings, optionally filtered by status ("" means all),
// newest first.
func (q *Queries) ListBookings(ctx context.Context, status core.BookingStatus) ([]core.Booking, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = q.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC`)
	} else {
		rows, err = q.db.QueryContext(ctx,
			`SELECT `+bookingColumns+` FROM bookings WHERE status = ? ORDER BY created_at DESC`, string(status))
	}
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return q.collectBookings(rows)
}

// ListAgentBookings returns the bookings sold by an agent, newest first.
func (q *Queries) ListAgentBookings(ctx context.Context, agentID int64) ([]core.Booking, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE agent_id = ? ORDER BY created_at DESC`, agentID)
	if err != nil {
		return nil, fmt.Errorf("list agent bookings: %w", err)
	}
	return q.collectBookings(rows)
}

// SearchBookings matches the reference, destination or client name.
func (q *Queries) SearchBookings(ctx context.Context, term string) ([]core.Booking, error) {
	like := "%" + term + "%"
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE reference LIKE ? OR destination LIKE ?
		    OR client_id IN (SELECT id FROM clients WHERE name LIKE ?)
		 ORDER BY created_at DESC`, like, like, like)
	if err != nil {
		return nil, fmt.Errorf("search bookings: %w", err)
	}
	return q.collectBookings(rows)
}

func (q *Queries) ListPassengers(ctx context.Context, bookingID int64) ([]core.Passenger, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, passport_number, passport_expiry FROM passengers WHERE booking_id = ? ORDER BY id`,
		bookingID)
	if err != nil {
		return nil, fmt.Errorf("list passengers: %w", err)
	}
	defer rows.Close()

	var out []core.Passenger
	for rows.Next() {
		var p core.Passenger
		var expiry string
		if err := rows.Scan(&p.ID, &p.Name, &p.PassportNumber, &expiry); err != nil {
			return nil, fmt.Errorf("scan passenger: %w", err)
		}
		p.PassportExpiry = textDate(expiry)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q *Queries) ListServiceItems(ctx context.Context, bookingID int64) ([]core.ServiceItem, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT si.id, si.kind, si.description, si.quantity, si.unit_cents, b.currency
		 FROM service_items si JOIN bookings b ON b.id = si.booking_id
		 WHERE si.booking_id = ? ORDER BY si.id`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list service items: %w", err)
	}
	defer rows.Close()

	var out []core.ServiceItem
	for rows.Next() {
		var it core.ServiceItem
		if err := rows.Scan(&it.ID, &it.Kind, &it.Description, &it.Quantity, &it.UnitPrice.Cents, &it.UnitPrice.Currency); err != nil {
			return nil, fmt.Errorf("scan service item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (q *Queries) AdjustBookingPaid(ctx context.Context, id, deltaCents int64) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE bookings SET paid_cents = paid_cents + ? WHERE id = ?`, deltaCents, id)
	if err != nil {
		return fmt.Errorf("adjust booking paid: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("booking %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (q *Queries) UpdateBookingStatus(ctx context.Context, id int64, status core.BookingStatus) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("booking %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// --- transactions ---

func (q *Queries) InsertTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO transactions (reference, kind, direction, treasury_id, booking_id, client_id,
		        amount_cents, currency, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.Reference, string(tx.Kind), string(tx.Direction), tx.TreasuryID, tx.BookingID, tx.ClientID,
		tx.Amount.Cents, tx.Amount.Currency, tx.Description, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction insert id: %w", err)
	}
	return id, nil
}

func scanTransaction(scan func(...any) error) (core.Transaction, error) {
	var tx core.Transaction
	var kind, direction string
	var voided int64
	err := scan(&tx.ID, &tx.Reference, &kind, &direction, &tx.TreasuryID, &tx.BookingID, &tx.ClientID,
		&tx.Amount.Cents, &tx.Amount.Currency, &tx.Description, &voided, &tx.CreatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Kind = core.TransactionKind(kind)
	tx.Direction = core.Direction(direction)
	tx.Voided = voided != 0
	return tx, nil
}

const transactionColumns = `id, reference, kind, direction, treasury_id, booking_id, client_id,
	amount_cents, currency, description, voided, created_at`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row.Scan)
	if err != nil {
		return core.Transaction{}, wrapNotFound(err, "transaction")
	}
	return tx, nil
}

func (q *Queries) collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (q *Queries) ListBookingTransactions(ctx context.Context, bookingID int64) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE booking_id = ? ORDER BY created_at`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list booking transactions: %w", err)
	}
	return q.collectTransactions(rows)
}

func (q *Queries) ListClientTransactions(ctx context.Context, clientID int64) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE client_id = ? ORDER BY created_at`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list client transactions: %w", err)
	}
	return q.collectTransactions(rows)
}

// ListTreasuryTransactions returns a treasury's movements for a given month.
func (q *Queries) ListTreasuryTransactions(ctx context.Context, treasuryID int64, year, month int) ([]core.Transaction, error) {
	prefix := fmt.Sprintf("%04d-%02d", year, month)
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE treasury_id = ? AND substr(created_at, 1, 7) = ?
		 ORDER BY created_at`, treasuryID, prefix)
	if err != nil {
		return nil, fmt.Errorf("list treasury transactions: %w", err)
	}
	return q.collectTransactions(rows)
}

// TreasuryMonthTotal is the signed movement of one treasury over a month.
type TreasuryMonthTotal struct {
	TreasuryID int64
	Credits    int64
	Debits     int64
}

func (q *Queries) TreasuryMonthTotals(ctx context.Context, year, month int) ([]TreasuryMonthTotal, error) {
	prefix := fmt.Sprintf("%04d-%02d", year, month)
	rows, err := q.db.QueryContext(ctx,
		`SELECT treasury_id,
		        COALESCE(SUM(CASE WHEN direction = 'credit' THEN amount_cents ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN direction = 'debit' THEN amount_cents ELSE 0 END), 0)
		 FROM transactions
		 WHERE voided = 0 AND substr(created_at, 1, 7) = ?
		 GROUP BY treasury_id`, prefix)
	if err != nil {
		return nil, fmt.Errorf("treasury month totals: %w", err)
	}
	defer rows.Close()

	var out []TreasuryMonthTotal
	for rows.Next() {
		var t TreasuryMonthTotal
		if err := rows.Scan(&t.TreasuryID, &t.Credits, &t.Debits); err != nil {
			return nil, fmt.Errorf("scan month total: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) MarkTransactionVoided(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET voided = 1 WHERE id = ? AND voided = 0`, id)
	if err != nil {
		return fmt.Errorf("mark transaction voided: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrAlreadyVoided
	}
	return nil
}

// PendingExportTransaction is the minimal row an export message refers to.
type PendingExportTransaction struct {
	ID        int64
	CreatedAt time.Time
}

func (q *Queries) ListPendingExport(ctx context.Context, limit int) ([]PendingExportTransaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, created_at FROM transactions
		 WHERE exported = 0 AND export_error = 0 AND voided = 0
		 ORDER BY created_at LIMIT ?`, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending export: %w", err)
	}
	defer rows.Close()

	var out []PendingExportTransaction
	for rows.Next() {
		var p PendingExportTransaction
		if err := rows.Scan(&p.ID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q *Queries) MarkExported(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET exported = 1, export_error = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

func (q *Queries) MarkExportError(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET export_error = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	return nil
}
