package services

import (
	"context"
	"fmt"
	"log/slog"

	"tourdesk/internal/amqp"
	"tourdesk/internal/core"
	"tourdesk/internal/storage"
)

// BookingService creates bookings and propagates their ledger effects:
// the client's balance grows by the booking total, and the selling agent's
// balance grows by the commission, atomically with the booking insert.
type BookingService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewBookingService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *BookingService {
	return &BookingService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

func (s *BookingService) CreateBooking(ctx context.Context, b core.Booking) (core.Booking, error) {
	if b.Reference == "" {
		b.Reference = NewBookingReference()
	}
	if b.Status == "" {
		b.Status = core.StatusOpen
	}
	// An unset total is derived from the service lines.
	if b.Total.Cents == 0 && len(b.Items) > 0 {
		b.Total = b.ItemsTotal()
	}
	if err := b.Validate(); err != nil {
		return core.Booking{}, fmt.Errorf("validate booking: %w", err)
	}

	var agent core.Agent
	if b.AgentID != 0 {
		var err error
		agent, err = s.storage.Queries().GetAgent(ctx, b.AgentID)
		if err != nil {
			return core.Booking{}, fmt.Errorf("load agent: %w", err)
		}
	}

	err := s.storage.ExecTx(ctx, func(q *storage.Queries) error {
		id, err := q.InsertBooking(ctx, b)
		if err != nil {
			return err
		}
		b.ID = id

		for _, p := range b.Passengers {
			if err := q.InsertPassenger(ctx, id, p); err != nil {
				return err
			}
		}
		for _, it := range b.Items {
			if err := q.InsertServiceItem(ctx, id, it); err != nil {
				return err
			}
		}

		if err := q.AdjustClientBalance(ctx, b.ClientID, b.Total.Cents); err != nil {
			return err
		}
		if b.AgentID != 0 {
			commission := agent.Commission(b.Total)
			if commission.Cents > 0 {
				if err := q.AdjustAgentBalance(ctx, b.AgentID, commission.Cents); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return core.Booking{}, fmt.Errorf("create booking: %w", err)
	}

	slog.InfoContext(ctx, "Booking created",
		"id", b.ID,
		"reference", b.Reference,
		"client_id", b.ClientID,
		"agent_id", b.AgentID,
		"destination", b.Destination,
		"total_cents", b.Total.Cents,
		"currency", b.Total.Currency)

	return b, nil
}

// SetStatus moves a booking between open, completed and cancelled.
func (s *BookingService) SetStatus(ctx context.Context, id int64, status core.BookingStatus) error {
	switch status {
	case core.StatusOpen, core.StatusCompleted, core.StatusCancelled:
	default:
		return core.ErrInvalidStatus
	}

	if err := s.storage.Queries().UpdateBookingStatus(ctx, id, status); err != nil {
		return fmt.Errorf("set booking status: %w", err)
	}

	slog.InfoContext(ctx, "Booking status changed", "id", id, "status", string(status))
	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (core.Booking, error) {
	return s.storage.GetBookingFull(ctx, id)
}

func (s *BookingService) ListBookings(ctx context.Context, status core.BookingStatus) ([]core.Booking, error) {
	return s.storage.Queries().ListBookings(ctx, status)
}

func (s *BookingService) SearchBookings(ctx context.Context, term string) ([]core.Booking, error) {
	return s.storage.Queries().SearchBookings(ctx, term)
}

// Close closes both storage and AMQP connections.
func (s *BookingService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close booking service: %v", errs)
	}

	return nil
}
