package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"tourdesk/internal/core"
	"tourdesk/internal/services"
	"tourdesk/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.SQLiteRepository) {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	bookings := services.NewBookingService(repo, nil)
	ledger := services.NewLedgerService(repo, nil)
	alertsSvc := services.NewAlertService(repo, "")

	srv, err := NewServer(":0", bookings, ledger, alertsSvc, repo)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	return srv, repo
}

func seedTestClient(t *testing.T, repo *storage.SQLiteRepository, name string) core.Client {
	t.Helper()
	c, err := repo.Queries().CreateClient(context.Background(), core.Client{Name: name})
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return c
}

func seedTestTreasury(t *testing.T, repo *storage.SQLiteRepository, name, currency string) core.Treasury {
	t.Helper()
	tr, err := repo.Queries().CreateTreasury(context.Background(), core.Treasury{Name: name, Currency: currency})
	if err != nil {
		t.Fatalf("seed treasury: %v", err)
	}
	return tr
}

func postForm(srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthAndIndex(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := get(srv, path); rr.Code != 200 {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	rr := get(srv, "/")
	if rr.Code != 200 {
		t.Fatalf("index status=%d", rr.Code)
	}
	// Agency name comes from the seeded settings row.
	if !strings.Contains(rr.Body.String(), "Tourdesk Travel") {
		t.Fatalf("index body missing agency name")
	}
}

func TestCreateBookingAndPaymentFlow(t *testing.T) {
	srv, repo := newTestServer(t)
	client := seedTestClient(t, repo, "Imani Okafor")
	treasury := seedTestTreasury(t, repo, "Main Safe", "USD")

	travel := time.Now().UTC().AddDate(1, 0, 0).Format("2006-01-02")
	form := url.Values{
		"client_id":        {intToString(client.ID)},
		"destination":      {"Zanzibar"},
		"travel_date":      {travel},
		"passenger_name":   {"Imani Okafor"},
		"item_kind":        {"flight"},
		"item_description": {"Return flight"},
		"item_quantity":    {"2"},
		"item_unit_price":  {"450.00"},
	}
	rr := postForm(srv, "/bookings", form)
	if rr.Code != 200 {
		t.Fatalf("create booking status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "success") {
		t.Fatalf("expected success fragment, got: %s", rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), "booking:created") {
		t.Fatalf("missing booking:created trigger: %q", rr.Header().Get("HX-Trigger"))
	}

	list, err := repo.Queries().ListBookings(context.Background(), core.StatusOpen)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one booking, got %d (err=%v)", len(list), err)
	}
	booking := list[0]
	if booking.Total.Cents != 90000 {
		t.Fatalf("total derived from lines = %d, want 90000", booking.Total.Cents)
	}
	id := intToString(booking.ID)

	// Detail page shows the reference and payment form.
	rr = get(srv, "/bookings/"+id)
	if rr.Code != 200 || !strings.Contains(rr.Body.String(), booking.Reference) {
		t.Fatalf("detail status=%d, body missing reference", rr.Code)
	}

	// Record a payment.
	rr = postForm(srv, "/bookings/"+id+"/payments", url.Values{
		"treasury_id": {intToString(treasury.ID)},
		"amount":      {"300.00"},
	})
	if rr.Code != 200 {
		t.Fatalf("payment status=%d body=%s", rr.Code, rr.Body.String())
	}

	// Paying more than the remaining due is rejected.
	rr = postForm(srv, "/bookings/"+id+"/payments", url.Values{
		"treasury_id": {intToString(treasury.ID)},
		"amount":      {"700.00"},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("overpayment status=%d, want 422", rr.Code)
	}

	got, err := repo.Queries().GetBooking(context.Background(), booking.ID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if got.Paid.Cents != 30000 {
		t.Fatalf("paid = %d, want 30000", got.Paid.Cents)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	srv, repo := newTestServer(t)
	client := seedTestClient(t, repo, "Imani Okafor")

	// Missing destination.
	rr := postForm(srv, "/bookings", url.Values{
		"client_id":      {intToString(client.ID)},
		"travel_date":    {"2027-03-01"},
		"passenger_name": {"Imani Okafor"},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing destination status=%d, want 422", rr.Code)
	}

	// Bad travel date format.
	rr = postForm(srv, "/bookings", url.Values{
		"client_id":      {intToString(client.ID)},
		"destination":    {"Cairo"},
		"travel_date":    {"03/01/2027"},
		"passenger_name": {"Imani Okafor"},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad date status=%d, want 422", rr.Code)
	}
}

func TestClientEndpoints(t *testing.T) {
	srv, repo := newTestServer(t)

	rr := postForm(srv, "/clients", url.Values{"name": {""}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty name status=%d, want 422", rr.Code)
	}

	rr = postForm(srv, "/clients", url.Values{"name": {"Nadia Hassan"}, "phone": {"+201000000"}})
	if rr.Code != 200 {
		t.Fatalf("create client status=%d", rr.Code)
	}

	clients, err := repo.Queries().ListClients(context.Background())
	if err != nil || len(clients) != 1 {
		t.Fatalf("expected one client, got %d (err=%v)", len(clients), err)
	}

	rr = get(srv, "/clients/"+intToString(clients[0].ID)+"/statement")
	if rr.Code != 200 || !strings.Contains(rr.Body.String(), "Nadia Hassan") {
		t.Fatalf("statement status=%d, body missing client name", rr.Code)
	}

	if rr := get(srv, "/clients/9999/statement"); rr.Code != http.StatusNotFound {
		t.Fatalf("missing client status=%d, want 404", rr.Code)
	}
}

func TestVoucherAndInvoice(t *testing.T) {
	srv, repo := newTestServer(t)
	client := seedTestClient(t, repo, "Imani Okafor")

	travel := time.Now().UTC().AddDate(1, 0, 0).Format("2006-01-02")
	rr := postForm(srv, "/bookings", url.Values{
		"client_id":        {intToString(client.ID)},
		"destination":      {"Zanzibar"},
		"travel_date":      {travel},
		"passenger_name":   {"Imani Okafor"},
		"item_description": {"Beach package"},
		"item_unit_price":  {"1200.00"},
	})
	if rr.Code != 200 {
		t.Fatalf("create booking status=%d", rr.Code)
	}
	list, _ := repo.Queries().ListBookings(context.Background(), "")
	id := intToString(list[0].ID)

	rr = get(srv, "/bookings/"+id+"/voucher")
	if rr.Code != 200 {
		t.Fatalf("voucher status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Zanzibar") || !strings.Contains(body, "Imani Okafor") {
		t.Fatalf("voucher missing booking details")
	}
	if strings.Contains(body, "1,200.00") {
		t.Fatalf("voucher must not show money amounts")
	}

	rr = get(srv, "/bookings/"+id+"/invoice")
	if rr.Code != 200 || !strings.Contains(rr.Body.String(), "1,200.00") {
		t.Fatalf("invoice status=%d, body missing total", rr.Code)
	}

	if rr := get(srv, "/bookings/9999/invoice"); rr.Code != http.StatusNotFound {
		t.Fatalf("missing booking invoice status=%d, want 404", rr.Code)
	}
}

func TestSettingsUpdateInvalidatesAlerts(t *testing.T) {
	srv, repo := newTestServer(t)

	rr := postForm(srv, "/settings", url.Values{
		"agency_name":      {"Horizon Tours"},
		"default_currency": {"EUR"},
		"financial_days":   {"14"},
	})
	if rr.Code != 200 {
		t.Fatalf("update settings status=%d body=%s", rr.Code, rr.Body.String())
	}

	settings, err := repo.Queries().GetSettings(context.Background())
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if settings.AgencyName != "Horizon Tours" || settings.DefaultCurrency != "EUR" {
		t.Fatalf("settings not persisted: %+v", settings)
	}
	if settings.Thresholds.FinancialDays != 14 {
		t.Fatalf("financial days = %d, want 14", settings.Thresholds.FinancialDays)
	}
	// Untouched thresholds keep their previous values.
	if settings.Thresholds.PassportDays != 180 {
		t.Fatalf("passport days = %d, want 180", settings.Thresholds.PassportDays)
	}
}

func TestPartials(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := get(srv, "/ui/alerts")
	if rr.Code != 200 || !strings.Contains(rr.Body.String(), `id="alerts"`) {
		t.Fatalf("alerts partial status=%d", rr.Code)
	}

	rr = get(srv, "/ui/month-overview")
	if rr.Code != 200 || !strings.Contains(rr.Body.String(), `id="month-overview"`) {
		t.Fatalf("overview partial status=%d", rr.Code)
	}

	// Out-of-range month falls back to the current one.
	rr = get(srv, "/ui/month-overview?year=2026&month=13")
	if rr.Code != 200 {
		t.Fatalf("overview with bad month status=%d", rr.Code)
	}
}

func TestTreasuryEndpoints(t *testing.T) {
	srv, repo := newTestServer(t)

	rr := postForm(srv, "/treasuries", url.Values{
		"name":     {"Bank EUR"},
		"currency": {"EUR"},
		"rate":     {"1.10"},
	})
	if rr.Code != 200 {
		t.Fatalf("create treasury status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = postForm(srv, "/treasuries", url.Values{"name": {"Bad"}, "currency": {"EURO"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad currency status=%d, want 422", rr.Code)
	}

	treasuries, err := repo.Queries().ListTreasuries(context.Background())
	if err != nil || len(treasuries) != 1 {
		t.Fatalf("expected one treasury, got %d (err=%v)", len(treasuries), err)
	}

	rr = postForm(srv, "/treasuries/movements", url.Values{
		"treasury_id": {intToString(treasuries[0].ID)},
		"kind":        {"expense"},
		"direction":   {"debit"},
		"amount":      {"50.00"},
		"description": {"Office rent"},
	})
	if rr.Code != 200 {
		t.Fatalf("movement status=%d body=%s", rr.Code, rr.Body.String())
	}

	got, _ := repo.Queries().GetTreasury(context.Background(), treasuries[0].ID)
	if got.Balance.Cents != -5000 {
		t.Fatalf("treasury balance = %d, want -5000", got.Balance.Cents)
	}
}

func intToString(v int64) string {
	return strconv.FormatInt(v, 10)
}
