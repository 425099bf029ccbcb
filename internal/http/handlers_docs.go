package http

import (
	"errors"
	"log/slog"
	"net/http"

	"tourdesk/internal/core"
	"tourdesk/internal/docs"
)

func (s *Server) documentData(r *http.Request) (docs.DocumentData, error) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		return docs.DocumentData{}, core.ErrNotFound
	}

	booking, err := s.repo.GetBookingFull(ctx, id)
	if err != nil {
		return docs.DocumentData{}, err
	}
	client, err := s.repo.Queries().GetClient(ctx, booking.ClientID)
	if err != nil {
		return docs.DocumentData{}, err
	}
	settings, err := s.repo.Queries().GetSettings(ctx)
	if err != nil {
		return docs.DocumentData{}, err
	}

	return docs.DocumentData{
		Settings: settings,
		Booking:  booking,
		Client:   client,
	}, nil
}

func (s *Server) handleVoucher(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, err := s.documentData(r)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.ErrorContext(ctx, "Voucher data error", "error", err, "url", r.URL.Path)
		http.Error(w, "voucher unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.Voucher(w, data); err != nil {
		slog.ErrorContext(ctx, "Voucher render error", "error", err, "booking_id", data.Booking.ID)
	}
}

func (s *Server) handleInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, err := s.documentData(r)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.ErrorContext(ctx, "Invoice data error", "error", err, "url", r.URL.Path)
		http.Error(w, "invoice unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.Invoice(w, data); err != nil {
		slog.ErrorContext(ctx, "Invoice render error", "error", err, "booking_id", data.Booking.ID)
	}
}
