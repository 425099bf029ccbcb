package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tourdesk/internal/core"
	"tourdesk/internal/services"
)

func (s *Server) paymentInput(r *http.Request) (services.PaymentInput, error) {
	id, err := pathID(r)
	if err != nil {
		return services.PaymentInput{}, errors.New("invalid booking id")
	}
	if err := r.ParseForm(); err != nil {
		return services.PaymentInput{}, errors.New("invalid request format")
	}
	cents, err := formAmountCents(r, "amount")
	if err != nil {
		return services.PaymentInput{}, errors.New("invalid amount")
	}
	return services.PaymentInput{
		BookingID:   id,
		TreasuryID:  formInt64(r, "treasury_id"),
		AmountCents: cents,
		Description: formString(r, "description"),
	}, nil
}

func (s *Server) handlePostPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	in, err := s.paymentInput(r)
	if err != nil {
		writeErrorFragment(w, http.StatusUnprocessableEntity, capitalize(err.Error()))
		return
	}

	tx, err := s.ledger.PostPayment(ctx, in)
	if err != nil {
		slog.ErrorContext(ctx, "Post payment error", "error", err, "booking_id", in.BookingID)
		switch {
		case errors.Is(err, core.ErrOverpayment):
			writeErrorFragment(w, http.StatusUnprocessableEntity, "Payment exceeds the amount due")
		case errors.Is(err, services.ErrCurrencyMismatch):
			writeErrorFragment(w, http.StatusUnprocessableEntity, "Treasury currency does not match the booking")
		case errors.Is(err, core.ErrNotFound):
			writeErrorFragment(w, http.StatusNotFound, "Booking or treasury not found")
		default:
			writeErrorFragment(w, http.StatusInternalServerError, "Could not record payment")
		}
		return
	}

	s.afterLedgerWrite(tx.CreatedAt)
	setTrigger(w, "ledger:posted", map[string]any{"transaction_id": tx.ID, "booking_id": in.BookingID})
	writeSuccessFragment(w, "Payment "+tx.Reference+" recorded ("+tx.Amount.Display()+")")
}

func (s *Server) handlePostRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	in, err := s.paymentInput(r)
	if err != nil {
		writeErrorFragment(w, http.StatusUnprocessableEntity, capitalize(err.Error()))
		return
	}

	tx, err := s.ledger.PostRefund(ctx, in)
	if err != nil {
		slog.ErrorContext(ctx, "Post refund error", "error", err, "booking_id", in.BookingID)
		switch {
		case errors.Is(err, services.ErrCurrencyMismatch):
			writeErrorFragment(w, http.StatusUnprocessableEntity, "Treasury currency does not match the booking")
		case errors.Is(err, core.ErrNotFound):
			writeErrorFragment(w, http.StatusNotFound, "Booking or treasury not found")
		case errors.Is(err, core.ErrInvalidAmount):
			writeErrorFragment(w, http.StatusUnprocessableEntity, "Refund exceeds the paid amount")
		default:
			writeErrorFragment(w, http.StatusInternalServerError, "Could not record refund")
		}
		return
	}

	s.afterLedgerWrite(tx.CreatedAt)
	setTrigger(w, "ledger:posted", map[string]any{"transaction_id": tx.ID, "booking_id": in.BookingID})
	writeSuccessFragment(w, "Refund "+tx.Reference+" recorded ("+tx.Amount.Display()+")")
}

func (s *Server) handleTreasuryMovement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		writeErrorFragment(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	cents, err := formAmountCents(r, "amount")
	if err != nil {
		writeErrorFragment(w, http.StatusUnprocessableEntity, "Invalid amount")
		return
	}

	in := services.TreasuryMovementInput{
		TreasuryID:  formInt64(r, "treasury_id"),
		Kind:        core.TransactionKind(formString(r, "kind")),
		Direction:   core.Direction(formString(r, "direction")),
		AmountCents: cents,
		Description: formString(r, "description"),
	}

	tx, err := s.ledger.PostTreasuryMovement(ctx, in)
	if err != nil {
		slog.ErrorContext(ctx, "Post treasury movement error", "error", err, "treasury_id", in.TreasuryID)
		switch {
		case errors.Is(err, core.ErrNotFound):
			writeErrorFragment(w, http.StatusNotFound, "Treasury not found")
		case errors.Is(err, core.ErrInvalidKind), errors.Is(err, core.ErrInvalidDirection):
			writeErrorFragment(w, http.StatusUnprocessableEntity, "Invalid movement kind or direction")
		default:
			writeErrorFragment(w, http.StatusUnprocessableEntity, "Could not record movement: "+err.Error())
		}
		return
	}

	s.afterLedgerWrite(tx.CreatedAt)
	setTrigger(w, "ledger:posted", map[string]any{"transaction_id": tx.ID})
	writeSuccessFragment(w, "Movement "+tx.Reference+" recorded ("+tx.Amount.Display()+")")
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		writeErrorFragment(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	cents, err := formAmountCents(r, "amount")
	if err != nil {
		writeErrorFragment(w, http.StatusUnprocessableEntity, "Invalid amount")
		return
	}

	outTx, inTx, err := s.ledger.Transfer(ctx, services.TransferInput{
		FromTreasuryID: formInt64(r, "from_treasury_id"),
		ToTreasuryID:   formInt64(r, "to_treasury_id"),
		AmountCents:    cents,
		Description:    formString(r, "description"),
	})
	if err != nil {
		slog.ErrorContext(ctx, "Transfer error", "error", err)
		if errors.Is(err, core.ErrNotFound) {
			writeErrorFragment(w, http.StatusNotFound, "Treasury not found")
			return
		}
		writeErrorFragment(w, http.StatusUnprocessableEntity, "Could not record transfer: "+err.Error())
		return
	}

	s.afterLedgerWrite(outTx.CreatedAt)
	setTrigger(w, "ledger:posted", map[string]any{"transaction_id": outTx.ID})
	writeSuccessFragment(w, "Transferred "+outTx.Amount.Display()+" ("+inTx.Amount.Display()+" received)")
}

func (s *Server) handleVoidTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		writeErrorFragment(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	if err := s.ledger.VoidTransaction(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Void transaction error", "error", err, "id", id)
		switch {
		case errors.Is(err, core.ErrAlreadyVoided):
			writeErrorFragment(w, http.StatusConflict, "Transaction is already voided")
		case errors.Is(err, core.ErrNotFound):
			writeErrorFragment(w, http.StatusNotFound, "Transaction not found")
		default:
			writeErrorFragment(w, http.StatusInternalServerError, "Could not void transaction")
		}
		return
	}

	s.afterLedgerWrite(time.Now())
	setTrigger(w, "ledger:voided", map[string]any{"transaction_id": id})
	writeSuccessFragment(w, "Transaction voided")
}

// afterLedgerWrite drops caches covering the written month.
func (s *Server) afterLedgerWrite(at time.Time) {
	if at.IsZero() {
		at = time.Now()
	}
	s.invalidateOverview(at.Year(), int(at.Month()))
	s.alertsSvc.Invalidate()
}

// handleMonthOverview renders the monthly treasury overview partial.
func (s *Server) handleMonthOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	now := time.Now()
	year := now.Year()
	month := int(now.Month())
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			month = m
		}
	}
	if month < 1 || month > 12 {
		slog.WarnContext(ctx, "Invalid month parameter", "year", year, "month", month, "corrected_to", int(now.Month()))
		month = int(now.Month())
	}

	ov, err := s.getOverview(ctx, year, month)
	if err != nil {
		slog.ErrorContext(ctx, "Month overview error", "error", err, "year", year, "month", month)
		_, _ = w.Write([]byte(`<section id="month-overview" class="month-overview"><div class="placeholder">Error loading overview</div></section>`))
		return
	}

	if err := s.templates.ExecuteTemplate(w, "month_overview.html", ov); err != nil {
		slog.ErrorContext(ctx, "Template execution error", "error", err, "template", "month_overview.html", "year", year, "month", month)
		_, _ = w.Write([]byte(`<section id="month-overview" class="month-overview"><div class="placeholder">Error rendering overview</div></section>`))
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
