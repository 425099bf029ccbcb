package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tourdesk/internal/amqp"
	"tourdesk/internal/core"
	"tourdesk/internal/storage"
)

var ErrCurrencyMismatch = errors.New("treasury currency does not match booking currency")

// LedgerService posts treasury transactions and keeps every affected balance
// consistent: a payment credits the treasury, reduces the client's debt and
// raises the booking's paid amount in a single database transaction. Export
// events go to AMQP after commit and never fail the request.
type LedgerService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewLedgerService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// PaymentInput is a client payment or refund against a booking.
type PaymentInput struct {
	BookingID   int64
	TreasuryID  int64
	AmountCents int64
	Description string
}

// PostPayment records a client payment on a booking. Payments above the
// outstanding amount are rejected.
func (s *LedgerService) PostPayment(ctx context.Context, in PaymentInput) (core.Transaction, error) {
	booking, treasury, err := s.loadBookingAndTreasury(ctx, in)
	if err != nil {
		return core.Transaction{}, err
	}
	if in.AmountCents > booking.Due().Cents {
		return core.Transaction{}, core.ErrOverpayment
	}

	tx := core.Transaction{
		Reference:   NewTransactionReference(),
		Kind:        core.KindPayment,
		Direction:   core.Credit,
		TreasuryID:  treasury.ID,
		BookingID:   booking.ID,
		ClientID:    booking.ClientID,
		Amount:      core.Money{Cents: in.AmountCents, Currency: booking.Total.Currency},
		Description: in.Description,
	}
	if tx.Description == "" {
		tx.Description = "Payment on " + booking.Reference
	}
	return s.postBookingTransaction(ctx, tx)
}

// PostRefund returns money to a client on a booking. Refunds above the paid
// amount are rejected.
func (s *LedgerService) PostRefund(ctx context.Context, in PaymentInput) (core.Transaction, error) {
	booking, treasury, err := s.loadBookingAndTreasury(ctx, in)
	if err != nil {
		return core.Transaction{}, err
	}
	if in.AmountCents > booking.Paid.Cents {
		return core.Transaction{}, fmt.Errorf("refund exceeds paid amount: %w", core.ErrInvalidAmount)
	}

	tx := core.Transaction{
		Reference:   NewTransactionReference(),
		Kind:        core.KindRefund,
		Direction:   core.Debit,
		TreasuryID:  treasury.ID,
		BookingID:   booking.ID,
		ClientID:    booking.ClientID,
		Amount:      core.Money{Cents: in.AmountCents, Currency: booking.Total.Currency},
		Description: in.Description,
	}
	if tx.Description == "" {
		tx.Description = "Refund on " + booking.Reference
	}
	return s.postBookingTransaction(ctx, tx)
}

func (s *LedgerService) loadBookingAndTreasury(ctx context.Context, in PaymentInput) (core.Booking, core.Treasury, error) {
	booking, err := s.storage.Queries().GetBooking(ctx, in.BookingID)
	if err != nil {
		return core.Booking{}, core.Treasury{}, fmt.Errorf("load booking: %w", err)
	}
	treasury, err := s.storage.Queries().GetTreasury(ctx, in.TreasuryID)
	if err != nil {
		return core.Booking{}, core.Treasury{}, fmt.Errorf("load treasury: %w", err)
	}
	// Booking money moves through a treasury of the same currency; cross
	// currency settlement goes through a transfer first.
	if treasury.Currency != booking.Total.Currency {
		return core.Booking{}, core.Treasury{}, ErrCurrencyMismatch
	}
	if in.AmountCents <= 0 {
		return core.Booking{}, core.Treasury{}, core.ErrInvalidAmount
	}
	return booking, treasury, nil
}

// postBookingTransaction applies a payment or refund with all its balance
// effects. The treasury moves by the signed amount, the client's debt moves
// opposite to it, and the booking paid amount moves with it.
func (s *LedgerService) postBookingTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	err := s.storage.ExecTx(ctx, func(q *storage.Queries) error {
		id, err := q.InsertTransaction(ctx, tx)
		if err != nil {
			return err
		}
		tx.ID = id

		if err := q.AdjustTreasuryBalance(ctx, tx.TreasuryID, tx.Signed()); err != nil {
			return err
		}
		if err := q.AdjustClientBalance(ctx, tx.ClientID, -tx.Signed()); err != nil {
			return err
		}
		return q.AdjustBookingPaid(ctx, tx.BookingID, tx.Signed())
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("post transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction posted",
		"id", tx.ID,
		"reference", tx.Reference,
		"kind", string(tx.Kind),
		"booking_id", tx.BookingID,
		"amount_cents", tx.Amount.Cents,
		"currency", tx.Amount.Currency)

	s.publishEvent(ctx, tx.ID, amqp.ActionCreated)
	return tx, nil
}

// TreasuryMovementInput is a treasury movement with no booking attached,
// such as an office expense or a cash-count adjustment.
type TreasuryMovementInput struct {
	TreasuryID  int64
	Kind        core.TransactionKind
	Direction   core.Direction
	AmountCents int64
	Description string
}

// PostTreasuryMovement records an expense or adjustment against a treasury.
func (s *LedgerService) PostTreasuryMovement(ctx context.Context, in TreasuryMovementInput) (core.Transaction, error) {
	if in.Kind != core.KindExpense && in.Kind != core.KindAdjustment {
		return core.Transaction{}, core.ErrInvalidKind
	}
	treasury, err := s.storage.Queries().GetTreasury(ctx, in.TreasuryID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load treasury: %w", err)
	}

	tx := core.Transaction{
		Reference:   NewTransactionReference(),
		Kind:        in.Kind,
		Direction:   in.Direction,
		TreasuryID:  treasury.ID,
		Amount:      core.Money{Cents: in.AmountCents, Currency: treasury.Currency},
		Description: in.Description,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	err = s.storage.ExecTx(ctx, func(q *storage.Queries) error {
		id, err := q.InsertTransaction(ctx, tx)
		if err != nil {
			return err
		}
		tx.ID = id
		return q.AdjustTreasuryBalance(ctx, tx.TreasuryID, tx.Signed())
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("post treasury movement: %w", err)
	}

	slog.InfoContext(ctx, "Treasury movement posted",
		"id", tx.ID,
		"reference", tx.Reference,
		"kind", string(tx.Kind),
		"treasury_id", tx.TreasuryID,
		"amount_cents", tx.Amount.Cents)

	s.publishEvent(ctx, tx.ID, amqp.ActionCreated)
	return tx, nil
}

// TransferInput moves money between two treasuries. The amount is in the
// source treasury's currency; the receiving amount is derived from both
// treasury rates.
type TransferInput struct {
	FromTreasuryID int64
	ToTreasuryID   int64
	AmountCents    int64
	Description    string
}

// Transfer posts the debit and credit legs of a treasury transfer atomically.
func (s *LedgerService) Transfer(ctx context.Context, in TransferInput) (core.Transaction, core.Transaction, error) {
	if in.FromTreasuryID == in.ToTreasuryID {
		return core.Transaction{}, core.Transaction{}, errors.New("transfer requires two distinct treasuries")
	}
	from, err := s.storage.Queries().GetTreasury(ctx, in.FromTreasuryID)
	if err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("load source treasury: %w", err)
	}
	to, err := s.storage.Queries().GetTreasury(ctx, in.ToTreasuryID)
	if err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("load destination treasury: %w", err)
	}

	settings, err := s.storage.Queries().GetSettings(ctx)
	if err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("load settings: %w", err)
	}

	outAmount := core.Money{Cents: in.AmountCents, Currency: from.Currency}
	// Convert through the default currency: source rate up, destination rate down.
	inAmount := to.Rate.ConvertBack(from.Rate.Convert(outAmount, settings.DefaultCurrency), to.Currency)

	description := in.Description
	if description == "" {
		description = fmt.Sprintf("Transfer %s to %s", from.Name, to.Name)
	}

	outTx := core.Transaction{
		Reference:   NewTransactionReference(),
		Kind:        core.KindTransfer,
		Direction:   core.Debit,
		TreasuryID:  from.ID,
		Amount:      outAmount,
		Description: description,
	}
	inTx := core.Transaction{
		Reference:   NewTransactionReference(),
		Kind:        core.KindTransfer,
		Direction:   core.Credit,
		TreasuryID:  to.ID,
		Amount:      inAmount,
		Description: description,
	}
	if err := outTx.Validate(); err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("validate transfer: %w", err)
	}
	if err := inTx.Validate(); err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("validate transfer: %w", err)
	}

	err = s.storage.ExecTx(ctx, func(q *storage.Queries) error {
		outID, err := q.InsertTransaction(ctx, outTx)
		if err != nil {
			return err
		}
		outTx.ID = outID
		inID, err := q.InsertTransaction(ctx, inTx)
		if err != nil {
			return err
		}
		inTx.ID = inID

		if err := q.AdjustTreasuryBalance(ctx, from.ID, outTx.Signed()); err != nil {
			return err
		}
		return q.AdjustTreasuryBalance(ctx, to.ID, inTx.Signed())
	})
	if err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("post transfer: %w", err)
	}

	slog.InfoContext(ctx, "Transfer posted",
		"out_id", outTx.ID,
		"in_id", inTx.ID,
		"from_treasury", from.ID,
		"to_treasury", to.ID,
		"out_cents", outTx.Amount.Cents,
		"in_cents", inTx.Amount.Cents)

	s.publishEvent(ctx, outTx.ID, amqp.ActionCreated)
	s.publishEvent(ctx, inTx.ID, amqp.ActionCreated)
	return outTx, inTx, nil
}

// VoidTransaction reverses a transaction's balance effects and keeps the row
// on record flagged as voided. Voiding twice is rejected.
func (s *LedgerService) VoidTransaction(ctx context.Context, id int64) error {
	tx, err := s.storage.Queries().GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}
	if tx.Voided {
		return core.ErrAlreadyVoided
	}

	err = s.storage.ExecTx(ctx, func(q *storage.Queries) error {
		// MarkTransactionVoided guards against a concurrent void.
		if err := q.MarkTransactionVoided(ctx, id); err != nil {
			return err
		}
		if err := q.AdjustTreasuryBalance(ctx, tx.TreasuryID, -tx.Signed()); err != nil {
			return err
		}
		if tx.ClientID != 0 {
			if err := q.AdjustClientBalance(ctx, tx.ClientID, tx.Signed()); err != nil {
				return err
			}
		}
		if tx.BookingID != 0 {
			if err := q.AdjustBookingPaid(ctx, tx.BookingID, -tx.Signed()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("void transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction voided",
		"id", id,
		"reference", tx.Reference,
		"kind", string(tx.Kind),
		"amount_cents", tx.Amount.Cents)

	s.publishEvent(ctx, id, amqp.ActionVoided)
	return nil
}

func (s *LedgerService) publishEvent(ctx context.Context, transactionID int64, action string) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping ledger event")
		return
	}
	if err := s.amqpClient.PublishLedgerEvent(ctx, transactionID, action); err != nil {
		// The row is committed; the export worker's startup sweep picks it up.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"transaction_id", transactionID, "action", action, "error", err)
	}
}
