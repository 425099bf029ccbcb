package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tourdesk/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "tourdesk.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedClient(t *testing.T, repo *SQLiteRepository, name string) core.Client {
	t.Helper()
	c, err := repo.Queries().CreateClient(context.Background(), core.Client{Name: name})
	if err != nil {
		t.Fatalf("CreateClient() error = %v", err)
	}
	return c
}

func seedTreasury(t *testing.T, repo *SQLiteRepository, name, currency string) core.Treasury {
	t.Helper()
	tr, err := repo.Queries().CreateTreasury(context.Background(), core.Treasury{Name: name, Currency: currency})
	if err != nil {
		t.Fatalf("CreateTreasury() error = %v", err)
	}
	return tr
}

func seedBooking(t *testing.T, repo *SQLiteRepository, clientID int64, ref string, totalCents int64) core.Booking {
	t.Helper()
	ctx := context.Background()
	b := core.Booking{
		Reference:   ref,
		ClientID:    clientID,
		Destination: "Istanbul",
		TravelDate:  core.NewDate(2026, 9, 10),
		Status:      core.StatusOpen,
		Total:       core.Money{Cents: totalCents, Currency: "USD"},
	}
	id, err := repo.Queries().InsertBooking(ctx, b)
	if err != nil {
		t.Fatalf("InsertBooking() error = %v", err)
	}
	if err := repo.Queries().InsertPassenger(ctx, id, core.Passenger{Name: "Ada Kaya"}); err != nil {
		t.Fatalf("InsertPassenger() error = %v", err)
	}
	b.ID = id
	return b
}

func TestMigrationsSeedSettings(t *testing.T) {
	repo := newTestRepo(t)

	s, err := repo.Queries().GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if s.DefaultCurrency != "USD" {
		t.Errorf("DefaultCurrency = %q, want USD", s.DefaultCurrency)
	}
	if s.Thresholds.PassportDays != 180 {
		t.Errorf("PassportDays = %d, want 180", s.Thresholds.PassportDays)
	}
}

func TestClientRoundTripAndBalance(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := seedClient(t, repo, "Nur Demir")
	if c.ID == 0 {
		t.Fatal("CreateClient() returned zero id")
	}

	if err := repo.Queries().AdjustClientBalance(ctx, c.ID, 125000); err != nil {
		t.Fatalf("AdjustClientBalance() error = %v", err)
	}
	if err := repo.Queries().AdjustClientBalance(ctx, c.ID, -50000); err != nil {
		t.Fatalf("AdjustClientBalance() error = %v", err)
	}

	got, err := repo.Queries().GetClient(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetClient() error = %v", err)
	}
	if got.Balance.Cents != 75000 {
		t.Errorf("balance = %d, want 75000", got.Balance.Cents)
	}

	if err := repo.Queries().AdjustClientBalance(ctx, 999, 100); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("AdjustClientBalance(missing) error = %v, want ErrNotFound", err)
	}
}

func TestBookingFullRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := seedClient(t, repo, "Nur Demir")
	b := seedBooking(t, repo, c.ID, "BK-2026-0001", 250000)
	if err := repo.Queries().InsertServiceItem(ctx, b.ID, core.ServiceItem{
		Kind:        "flight",
		Description: "IST-CDG return",
		Quantity:    2,
		UnitPrice:   core.Money{Cents: 90000, Currency: "USD"},
	}); err != nil {
		t.Fatalf("InsertServiceItem() error = %v", err)
	}

	got, err := repo.GetBookingFull(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBookingFull() error = %v", err)
	}
	if got.Reference != "BK-2026-0001" {
		t.Errorf("reference = %q", got.Reference)
	}
	if got.Total.Currency != "USD" || got.Total.Cents != 250000 {
		t.Errorf("total = %+v", got.Total)
	}
	if len(got.Passengers) != 1 || got.Passengers[0].Name != "Ada Kaya" {
		t.Errorf("passengers = %+v", got.Passengers)
	}
	if len(got.Items) != 1 || got.Items[0].UnitPrice.Cents != 90000 {
		t.Errorf("items = %+v", got.Items)
	}
	if !got.TravelDate.Equal(core.NewDate(2026, 9, 10).Time) {
		t.Errorf("travel date = %v", got.TravelDate)
	}
	if !got.ReturnDate.IsEmpty() {
		t.Errorf("return date should be unset, got %v", got.ReturnDate)
	}

	if _, err := repo.GetBookingFull(ctx, 999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetBookingFull(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSearchBookingsMatchesClientName(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := seedClient(t, repo, "Nur Demir")
	seedBooking(t, repo, c.ID, "BK-2026-0001", 100000)

	got, err := repo.Queries().SearchBookings(ctx, "Demir")
	if err != nil {
		t.Fatalf("SearchBookings() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("SearchBookings(Demir) returned %d bookings, want 1", len(got))
	}

	got, err = repo.Queries().SearchBookings(ctx, "nowhere")
	if err != nil {
		t.Fatalf("SearchBookings() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("SearchBookings(nowhere) returned %d bookings, want 0", len(got))
	}
}

func TestExecTxRollsBackOnError(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := seedClient(t, repo, "Nur Demir")
	sentinel := errors.New("boom")

	err := repo.ExecTx(ctx, func(q *Queries) error {
		if err := q.AdjustClientBalance(ctx, c.ID, 10000); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("ExecTx() error = %v, want sentinel", err)
	}

	got, err := repo.Queries().GetClient(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetClient() error = %v", err)
	}
	if got.Balance.Cents != 0 {
		t.Errorf("balance after rollback = %d, want 0", got.Balance.Cents)
	}
}

func TestVoidTransactionOnlyOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tr := seedTreasury(t, repo, "Main Safe", "USD")
	id, err := repo.Queries().InsertTransaction(ctx, core.Transaction{
		Reference:   "TX-0001",
		Kind:        core.KindPayment,
		Direction:   core.Credit,
		TreasuryID:  tr.ID,
		Amount:      core.Money{Cents: 50000, Currency: "USD"},
		Description: "deposit",
	})
	if err != nil {
		t.Fatalf("InsertTransaction() error = %v", err)
	}

	if err := repo.Queries().MarkTransactionVoided(ctx, id); err != nil {
		t.Fatalf("MarkTransactionVoided() error = %v", err)
	}
	if err := repo.Queries().MarkTransactionVoided(ctx, id); !errors.Is(err, core.ErrAlreadyVoided) {
		t.Errorf("second void error = %v, want ErrAlreadyVoided", err)
	}

	got, err := repo.Queries().GetTransaction(ctx, id)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if !got.Voided {
		t.Error("transaction not flagged voided")
	}
}

func TestUserRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u, err := repo.Queries().CreateUser(ctx, core.User{Username: "nadia", FullName: "Nadia Aziz", Role: core.RoleAccountant})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.ID == 0 {
		t.Fatal("CreateUser() returned zero id")
	}

	got, err := repo.Queries().GetUserByUsername(ctx, "nadia")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if got.FullName != "Nadia Aziz" || got.Role != core.RoleAccountant {
		t.Errorf("user = %+v", got)
	}

	if _, err := repo.Queries().GetUserByUsername(ctx, "ghost"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetUserByUsername(missing) error = %v, want ErrNotFound", err)
	}

	all, err := repo.Queries().ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ListUsers() = %d users, want 1", len(all))
	}
}

func TestMonthOverviewConvertsNet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	usd := seedTreasury(t, repo, "USD Cash", "USD")
	eur, err := repo.Queries().CreateTreasury(ctx, core.Treasury{
		Name: "EUR Bank", Currency: "EUR", Rate: mustRate(t, "1.10"),
	})
	if err != nil {
		t.Fatalf("CreateTreasury() error = %v", err)
	}

	insert := func(treasuryID int64, ref string, dir core.Direction, cents int64, currency string) {
		t.Helper()
		_, err := repo.Queries().InsertTransaction(ctx, core.Transaction{
			Reference: ref, Kind: core.KindPayment, Direction: dir,
			TreasuryID: treasuryID, Amount: core.Money{Cents: cents, Currency: currency},
			Description: "t",
		})
		if err != nil {
			t.Fatalf("InsertTransaction() error = %v", err)
		}
	}
	insert(usd.ID, "TX-1", core.Credit, 100000, "USD")
	insert(usd.ID, "TX-2", core.Debit, 30000, "USD")
	insert(eur.ID, "TX-3", core.Credit, 10000, "EUR")

	// Voided movements are excluded from the overview.
	voidID, err := repo.Queries().InsertTransaction(ctx, core.Transaction{
		Reference: "TX-4", Kind: core.KindPayment, Direction: core.Credit,
		TreasuryID: usd.ID, Amount: core.Money{Cents: 999900, Currency: "USD"},
		Description: "t",
	})
	if err != nil {
		t.Fatalf("InsertTransaction() error = %v", err)
	}
	if err := repo.Queries().MarkTransactionVoided(ctx, voidID); err != nil {
		t.Fatalf("MarkTransactionVoided() error = %v", err)
	}

	now := time.Now().UTC()
	overview, err := repo.ReadMonthOverview(ctx, now.Year(), int(now.Month()), "USD")
	if err != nil {
		t.Fatalf("ReadMonthOverview() error = %v", err)
	}
	if len(overview.Reports) != 2 {
		t.Fatalf("reports = %d, want 2", len(overview.Reports))
	}
	// 70000 USD net + 10000 EUR * 1.10 = 81000 USD cents total.
	if overview.TotalNet.Cents != 81000 {
		t.Errorf("TotalNet = %d, want 81000", overview.TotalNet.Cents)
	}
}

func TestPendingExportLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tr := seedTreasury(t, repo, "Main Safe", "USD")
	id, err := repo.Queries().InsertTransaction(ctx, core.Transaction{
		Reference: "TX-0001", Kind: core.KindPayment, Direction: core.Credit,
		TreasuryID: tr.ID, Amount: core.Money{Cents: 50000, Currency: "USD"},
		Description: "deposit",
	})
	if err != nil {
		t.Fatalf("InsertTransaction() error = %v", err)
	}

	pending, err := repo.Queries().ListPendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingExport() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id {
		t.Fatalf("pending = %+v, want one row for id %d", pending, id)
	}

	if err := repo.MarkExported(ctx, id); err != nil {
		t.Fatalf("MarkExported() error = %v", err)
	}
	pending, err = repo.Queries().ListPendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingExport() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after export = %d rows, want 0", len(pending))
	}
}

func mustRate(t *testing.T, s string) core.ExchangeRate {
	t.Helper()
	r, err := core.ParseRate(s)
	if err != nil {
		t.Fatalf("ParseRate(%q) error = %v", s, err)
	}
	return r
}
