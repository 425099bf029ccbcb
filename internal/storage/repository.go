package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tourdesk/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Queries exposes the statement layer for reads outside a transaction.
func (r *SQLiteRepository) Queries() *Queries {
	return r.queries
}

// ExecTx runs fn inside a transaction, rolling back on error. Ledger writes
// that touch several balances go through here so they commit atomically.
func (r *SQLiteRepository) ExecTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetBookingFull loads a booking with its passengers and service lines.
func (r *SQLiteRepository) GetBookingFull(ctx context.Context, id int64) (core.Booking, error) {
	b, err := r.queries.GetBooking(ctx, id)
	if err != nil {
		return core.Booking{}, err
	}

	b.Passengers, err = r.queries.ListPassengers(ctx, id)
	if err != nil {
		return core.Booking{}, err
	}

	b.Items, err = r.queries.ListServiceItems(ctx, id)
	if err != nil {
		return core.Booking{}, err
	}

	return b, nil
}

// ListOpenBookingsFull loads open bookings with passengers for the alert scan.
func (r *SQLiteRepository) ListOpenBookingsFull(ctx context.Context) ([]core.Booking, error) {
	bookings, err := r.queries.ListBookings(ctx, core.StatusOpen)
	if err != nil {
		return nil, err
	}

	for i := range bookings {
		bookings[i].Passengers, err = r.queries.ListPassengers(ctx, bookings[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

// TreasuryMonthReport is one treasury's position over a month, with the
// movement converted to the agency default currency via the treasury rate.
type TreasuryMonthReport struct {
	Treasury     core.Treasury
	Credits      core.Money
	Debits       core.Money
	Net          core.Money
	NetInDefault core.Money
}

// MonthOverview is the treasury dashboard for one month.
type MonthOverview struct {
	Year     int
	Month    int
	Reports  []TreasuryMonthReport
	TotalNet core.Money // sum of nets converted to the default currency
}

// ReadMonthOverview aggregates all treasuries' movements for a month.
func (r *SQLiteRepository) ReadMonthOverview(ctx context.Context, year, month int, defaultCurrency string) (MonthOverview, error) {
	overview := MonthOverview{
		Year:     year,
		Month:    month,
		TotalNet: core.Money{Currency: defaultCurrency},
	}

	treasuries, err := r.queries.ListTreasuries(ctx)
	if err != nil {
		return overview, err
	}

	totals, err := r.queries.TreasuryMonthTotals(ctx, year, month)
	if err != nil {
		return overview, err
	}
	byTreasury := make(map[int64]TreasuryMonthTotal, len(totals))
	for _, t := range totals {
		byTreasury[t.TreasuryID] = t
	}

	for _, t := range treasuries {
		tot := byTreasury[t.ID]
		net := core.Money{Cents: tot.Credits - tot.Debits, Currency: t.Currency}
		report := TreasuryMonthReport{
			Treasury:     t,
			Credits:      core.Money{Cents: tot.Credits, Currency: t.Currency},
			Debits:       core.Money{Cents: tot.Debits, Currency: t.Currency},
			Net:          net,
			NetInDefault: t.Rate.Convert(net, defaultCurrency),
		}
		overview.Reports = append(overview.Reports, report)
		overview.TotalNet.Cents += report.NetInDefault.Cents
	}

	return overview, nil
}

// ClientStatement is a client ledger: the running balance plus every movement.
type ClientStatement struct {
	Client       core.Client
	Bookings     []core.Booking
	Transactions []core.Transaction
}

func (r *SQLiteRepository) GetClientStatement(ctx context.Context, clientID int64) (ClientStatement, error) {
	var st ClientStatement
	var err error

	st.Client, err = r.queries.GetClient(ctx, clientID)
	if err != nil {
		return st, err
	}

	bookings, err := r.queries.ListBookings(ctx, "")
	if err != nil {
		return st, err
	}
	for _, b := range bookings {
		if b.ClientID == clientID {
			st.Bookings = append(st.Bookings, b)
		}
	}

	st.Transactions, err = r.queries.ListClientTransactions(ctx, clientID)
	if err != nil {
		return st, err
	}

	return st, nil
}

// AgentStatement is an agent's sales history with accrued commission.
type AgentStatement struct {
	Agent           core.Agent
	Bookings        []core.Booking
	TotalCommission core.Money
}

func (r *SQLiteRepository) GetAgentStatement(ctx context.Context, agentID int64) (AgentStatement, error) {
	var st AgentStatement
	var err error

	st.Agent, err = r.queries.GetAgent(ctx, agentID)
	if err != nil {
		return st, err
	}

	st.Bookings, err = r.queries.ListAgentBookings(ctx, agentID)
	if err != nil {
		return st, err
	}

	for _, b := range st.Bookings {
		c := st.Agent.Commission(b.Total)
		st.TotalCommission.Cents += c.Cents
		st.TotalCommission.Currency = c.Currency
	}

	return st, nil
}

// MarkExported flags a transaction as written to the external ledger sheet.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	if err := r.queries.MarkExported(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction marked as exported", "id", id)
	return nil
}

func (r *SQLiteRepository) MarkExportError(ctx context.Context, id int64) error {
	if err := r.queries.MarkExportError(ctx, id); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Transaction marked with export error", "id", id)
	return nil
}
