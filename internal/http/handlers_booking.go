package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tourdesk/internal/core"
	"tourdesk/internal/services"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	settings, err := s.repo.Queries().GetSettings(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Load settings error", "error", err)
		http.Error(w, "settings unavailable", http.StatusInternalServerError)
		return
	}

	bookings, err := s.bookings.ListBookings(ctx, core.StatusOpen)
	if err != nil {
		slog.ErrorContext(ctx, "List bookings error", "error", err)
	}
	if len(bookings) > 10 {
		bookings = bookings[:10]
	}

	data := struct {
		Settings core.Settings
		Recent   []core.Booking
	}{Settings: settings, Recent: bookings}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(ctx, "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		bookings []core.Booking
		err      error
	)
	term := sanitizeInput(r.URL.Query().Get("q"))
	status := core.BookingStatus(sanitizeInput(r.URL.Query().Get("status")))
	if term != "" {
		bookings, err = s.bookings.SearchBookings(ctx, term)
	} else {
		bookings, err = s.bookings.ListBookings(ctx, status)
	}
	if err != nil {
		slog.ErrorContext(ctx, "List bookings error", "error", err, "q", term)
		http.Error(w, "bookings unavailable", http.StatusInternalServerError)
		return
	}

	clients, err := s.repo.Queries().ListClients(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "List clients error", "error", err)
	}
	agents, err := s.repo.Queries().ListAgents(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "List agents error", "error", err)
	}
	treasuries, err := s.repo.Queries().ListTreasuries(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "List treasuries error", "error", err)
	}
	settings, err := s.repo.Queries().GetSettings(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Load settings error", "error", err)
	}

	data := struct {
		Bookings   []core.Booking
		Clients    []core.Client
		Agents     []core.Agent
		Treasuries []core.Treasury
		Query      string
		Status     core.BookingStatus
		Currency   string
	}{bookings, clients, agents, treasuries, term, status, settings.DefaultCurrency}

	if err := s.templates.ExecuteTemplate(w, "bookings.html", data); err != nil {
		slog.ErrorContext(ctx, "Bookings template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(ctx, "Parse form error", "error", err, "url", r.URL.Path)
		writeErrorFragment(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	settings, err := s.repo.Queries().GetSettings(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Load settings error", "error", err)
		writeErrorFragment(w, http.StatusInternalServerError, "Settings unavailable")
		return
	}
	currency := formString(r, "currency")
	if currency == "" {
		currency = settings.DefaultCurrency
	}

	travelDate, err := formDate(r, "travel_date")
	if err != nil {
		writeErrorFragment(w, http.StatusUnprocessableEntity, "Invalid travel date")
		return
	}
	returnDate, err := formDate(r, "return_date")
	if err != nil {
		writeErrorFragment(w, http.StatusUnprocessableEntity, "Invalid return date")
		return
	}
	flightDeparture, err := formDate(r, "flight_departure")
	if err != nil {
		writeErrorFragment(w, http.StatusUnprocessableEntity, "Invalid flight departure date")
		return
	}
	hotelCheckIn, err := formDate(r, "hotel_checkin")
	if err != nil {
		writeErrorFragment(w, http.StatusUnprocessableEntity, "Invalid hotel check-in date")
		return
	}

	passengers, err := parsePassengers(r)
	if err != nil {
		writeErrorFragment(w, http.StatusUnprocessableEntity, "Invalid passport expiry date")
		return
	}
	items, err := parseServiceItems(r, currency)
	if err != nil {
		writeErrorFragment(w, http.StatusUnprocessableEntity, "Invalid service line amount")
		return
	}

	var totalCents int64
	if v := formString(r, "total"); v != "" {
		totalCents, err = formAmountCents(r, "total")
		if err != nil {
			writeErrorFragment(w, http.StatusUnprocessableEntity, "Invalid total amount")
			return
		}
	}

	var depositCents int64
	depositTreasuryID := formInt64(r, "deposit_treasury_id")
	if v := formString(r, "deposit"); v != "" {
		depositCents, err = formAmountCents(r, "deposit")
		if err != nil {
			writeErrorFragment(w, http.StatusUnprocessableEntity, "Invalid deposit amount")
			return
		}
		if depositTreasuryID == 0 {
			writeErrorFragment(w, http.StatusUnprocessableEntity, "A deposit needs a treasury")
			return
		}
	}

	booking := core.Booking{
		ClientID:        formInt64(r, "client_id"),
		AgentID:         formInt64(r, "agent_id"),
		Destination:     formString(r, "destination"),
		TravelDate:      travelDate,
		ReturnDate:      returnDate,
		FlightDeparture: flightDeparture,
		HotelName:       formString(r, "hotel_name"),
		HotelCheckIn:    hotelCheckIn,
		Passengers:      passengers,
		Items:           items,
		Total:           core.Money{Cents: totalCents, Currency: currency},
		Notes:           formString(r, "notes"),
	}

	created, err := s.bookings.CreateBooking(ctx, booking)
	if err != nil {
		slog.ErrorContext(ctx, "Create booking error", "error", err, "destination", booking.Destination)
		writeErrorFragment(w, http.StatusUnprocessableEntity, "Could not create booking: "+err.Error())
		return
	}

	// A deposit taken at the counter is an ordinary payment on the new booking.
	if depositCents > 0 {
		tx, err := s.ledger.PostPayment(ctx, services.PaymentInput{
			BookingID:   created.ID,
			TreasuryID:  depositTreasuryID,
			AmountCents: depositCents,
			Description: "Deposit on " + created.Reference,
		})
		if err != nil {
			slog.ErrorContext(ctx, "Post deposit error", "error", err, "booking_id", created.ID)
			s.alertsSvc.Invalidate()
			setTrigger(w, "booking:created", map[string]any{"id": created.ID, "reference": created.Reference})
			writeErrorFragment(w, http.StatusUnprocessableEntity,
				"Booking "+created.Reference+" created, but the deposit failed: "+err.Error())
			return
		}
		s.afterLedgerWrite(tx.CreatedAt)
	}

	s.alertsSvc.Invalidate()
	setTrigger(w, "booking:created", map[string]any{"id": created.ID, "reference": created.Reference})
	writeSuccessFragment(w, "Booking "+created.Reference+" created for "+created.Destination+
		" ("+created.Total.Display()+")")
}

func (s *Server) handleBookingDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid booking id", http.StatusBadRequest)
		return
	}

	booking, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.ErrorContext(ctx, "Get booking error", "error", err, "id", id)
		http.Error(w, "booking unavailable", http.StatusInternalServerError)
		return
	}

	client, err := s.repo.Queries().GetClient(ctx, booking.ClientID)
	if err != nil {
		slog.ErrorContext(ctx, "Get client error", "error", err, "id", booking.ClientID)
	}
	transactions, err := s.repo.Queries().ListBookingTransactions(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "List booking transactions error", "error", err, "id", id)
	}
	treasuries, err := s.repo.Queries().ListTreasuries(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "List treasuries error", "error", err)
	}

	data := struct {
		Booking      core.Booking
		Client       core.Client
		Transactions []core.Transaction
		Treasuries   []core.Treasury
	}{booking, client, transactions, treasuries}

	if err := s.templates.ExecuteTemplate(w, "booking_detail.html", data); err != nil {
		slog.ErrorContext(ctx, "Booking detail template execution failed", "error", err, "id", id)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleBookingStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		writeErrorFragment(w, http.StatusBadRequest, "Invalid booking id")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeErrorFragment(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	status := core.BookingStatus(formString(r, "status"))
	if err := s.bookings.SetStatus(ctx, id, status); err != nil {
		slog.ErrorContext(ctx, "Set booking status error", "error", err, "id", id, "status", string(status))
		if errors.Is(err, core.ErrInvalidStatus) {
			writeErrorFragment(w, http.StatusUnprocessableEntity, "Invalid status")
			return
		}
		if errors.Is(err, core.ErrNotFound) {
			writeErrorFragment(w, http.StatusNotFound, "Booking not found")
			return
		}
		writeErrorFragment(w, http.StatusInternalServerError, "Could not change status")
		return
	}

	s.alertsSvc.Invalidate()
	setTrigger(w, "booking:updated", map[string]any{"id": id, "status": string(status)})
	writeSuccessFragment(w, "Status changed to "+string(status))
}

// handleAlerts renders the alert list partial for the dashboard.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	items, err := s.alertsSvc.Alerts(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Alert scan error", "error", err)
		_, _ = w.Write([]byte(`<section id="alerts" class="alerts"><div class="placeholder">Alerts unavailable</div></section>`))
		return
	}

	data := struct {
		Alerts []alertRow
		Now    time.Time
	}{Now: time.Now()}
	for _, a := range items {
		data.Alerts = append(data.Alerts, alertRow{
			Kind:       string(a.Kind),
			Priority:   a.Priority.String(),
			BookingID:  a.BookingID,
			BookingRef: a.BookingRef,
			Message:    a.Message,
			DaysLeft:   a.DaysLeft,
		})
	}

	if err := s.templates.ExecuteTemplate(w, "alerts.html", data); err != nil {
		slog.ErrorContext(ctx, "Alerts template execution failed", "error", err)
		_, _ = w.Write([]byte(`<section id="alerts" class="alerts"><div class="placeholder">Error rendering alerts</div></section>`))
	}
}

type alertRow struct {
	Kind       string
	Priority   string
	BookingID  int64
	BookingRef string
	Message    string
	DaysLeft   int
}
