package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"carrental/internal/domain"
	"carrental/internal/flutterwave"
	"carrental/internal/metrics"
	"carrental/internal/repository"
)

// Messages shown to the user at the end of the payment redirect.
const (
	MessagePaymentVerified = "Payment verified successfully, car rented!"
	MessagePaymentFailed   = "Payment failed or cancelled."
)

// ConfirmationService finalizes rentals from gateway redirects and webhooks.
// Every transition is conditional on the rental still being pending, so
// duplicate or concurrent notifications for one tx_ref are harmless.
type ConfirmationService struct {
	tx         repository.Transactor
	rentalRepo repository.RentalRepository
	gateway    PaymentGateway
	cache      CacheInvalidator
	currency   string
	logger     *slog.Logger
}

// NewConfirmationService creates a new ConfirmationService. cache may be nil.
func NewConfirmationService(
	tx repository.Transactor,
	rentalRepo repository.RentalRepository,
	gateway PaymentGateway,
	cache CacheInvalidator,
	currency string,
	logger *slog.Logger,
) *ConfirmationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfirmationService{
		tx:         tx,
		rentalRepo: rentalRepo,
		gateway:    gateway,
		cache:      cache,
		currency:   currency,
		logger:     logger,
	}
}

// RedirectParams are the query parameters of the payment redirect.
type RedirectParams struct {
	Status        string
	TxRef         string
	TransactionID string
}

// Outcome is the result of a confirmation attempt.
type Outcome struct {
	Rental *domain.Rental // nil when no rental matched
}

// Paid reports whether the rental ended up paid.
func (o *Outcome) Paid() bool {
	return o != nil && o.Rental != nil && o.Rental.Status == domain.RentalStatusPaid
}

// Message returns the user-facing text for the outcome.
func (o *Outcome) Message() string {
	if o.Paid() {
		return MessagePaymentVerified
	}
	return MessagePaymentFailed
}

// MarkPaid moves the rental to paid and flags its car as rented, in one
// transaction. A rental that is already paid is returned unchanged; a failed
// rental is never revived.
func (s *ConfirmationService) MarkPaid(ctx context.Context, txRef string) (*domain.Rental, error) {
	var result *domain.Rental
	var rented bool

	err := s.tx.InTx(ctx, func(repos repository.Repositories) error {
		rental, err := getRentalByTxRef(ctx, repos.Rentals, txRef)
		if err != nil {
			return err
		}

		switch rental.Status {
		case domain.RentalStatusPaid:
			result = rental
			return nil
		case domain.RentalStatusFailed:
			s.logger.WarnContext(ctx, "payment confirmed for failed rental, not reviving",
				"rental_id", rental.ID, "tx_ref", txRef)
			result = rental
			return nil
		}

		moved, err := repos.Rentals.TransitionStatus(ctx, rental.ID, domain.RentalStatusPending, domain.RentalStatusPaid)
		if err != nil {
			return fmt.Errorf("mark rental paid: %w", err)
		}
		if !moved {
			// Another confirmation finished first.
			current, err := repos.Rentals.GetByID(ctx, rental.ID)
			if err != nil {
				return err
			}
			result = current
			return nil
		}

		if err := repos.Cars.SetRented(ctx, rental.CarID, true); err != nil {
			return fmt.Errorf("mark car rented: %w", err)
		}

		rental.Status = domain.RentalStatusPaid
		result = rental
		rented = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rented {
		invalidateCars(ctx, s.cache, s.logger)
	}
	return result, nil
}

// MarkFailed moves a pending rental to failed. Terminal rentals are
// returned unchanged.
func (s *ConfirmationService) MarkFailed(ctx context.Context, txRef string) (*domain.Rental, error) {
	rental, err := getRentalByTxRef(ctx, s.rentalRepo, txRef)
	if err != nil {
		return nil, err
	}
	if rental.Status.IsTerminal() {
		return rental, nil
	}

	moved, err := s.rentalRepo.TransitionStatus(ctx, rental.ID, domain.RentalStatusPending, domain.RentalStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("mark rental failed: %w", err)
	}
	if !moved {
		return s.rentalRepo.GetByID(ctx, rental.ID)
	}

	rental.Status = domain.RentalStatusFailed
	return rental, nil
}

// HandleRedirect processes the browser redirect from the payment page. The
// status hint is untrusted: success is only recorded after the gateway
// verifies the transaction.
func (s *ConfirmationService) HandleRedirect(ctx context.Context, p RedirectParams) (*Outcome, error) {
	txRef := strings.TrimSpace(p.TxRef)
	if txRef == "" {
		metrics.PaymentConfirmations.WithLabelValues(metrics.SourceCallback, metrics.OutcomeRejected).Inc()
		return nil, ErrInvalidCallback
	}

	rental, err := getRentalByTxRef(ctx, s.rentalRepo, txRef)
	if err != nil {
		if errors.Is(err, ErrRentalNotFound) {
			s.logger.WarnContext(ctx, "payment redirect for unknown tx_ref", "tx_ref", txRef)
			metrics.PaymentConfirmations.WithLabelValues(metrics.SourceCallback, metrics.OutcomeIgnored).Inc()
			return &Outcome{}, nil
		}
		return nil, err
	}

	confirmed := false
	if successHint(p.Status) {
		confirmed, err = s.verify(ctx, rental, p.TransactionID)
		if err != nil {
			return nil, err
		}
	}

	var final *domain.Rental
	if confirmed {
		final, err = s.MarkPaid(ctx, txRef)
	} else {
		final, err = s.MarkFailed(ctx, txRef)
	}
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Rental: final}
	s.record(ctx, metrics.SourceCallback, outcome)
	return outcome, nil
}

// HandleWebhook processes a server-to-server gateway event. Events that do
// not announce a successful charge, and charges for unknown rentals, are
// logged and acknowledged. Only unexpected failures are returned.
func (s *ConfirmationService) HandleWebhook(ctx context.Context, event flutterwave.WebhookEvent) (*Outcome, error) {
	if !event.SuccessfulCharge() {
		s.logger.InfoContext(ctx, "ignoring webhook event",
			"event", event.Event, "status", event.Data.Status, "tx_ref", event.Data.TxRef)
		metrics.PaymentConfirmations.WithLabelValues(metrics.SourceWebhook, metrics.OutcomeIgnored).Inc()
		return &Outcome{}, nil
	}

	txRef := strings.TrimSpace(event.Data.TxRef)
	rental, err := getRentalByTxRef(ctx, s.rentalRepo, txRef)
	if err != nil {
		if errors.Is(err, ErrRentalNotFound) {
			s.logger.WarnContext(ctx, "webhook for unknown tx_ref", "tx_ref", txRef)
			metrics.PaymentConfirmations.WithLabelValues(metrics.SourceWebhook, metrics.OutcomeIgnored).Inc()
			return &Outcome{}, nil
		}
		return nil, err
	}

	if rental.Status.IsTerminal() {
		s.logger.InfoContext(ctx, "webhook for settled rental",
			"rental_id", rental.ID, "status", rental.Status)
		metrics.PaymentConfirmations.WithLabelValues(metrics.SourceWebhook, metrics.OutcomeIgnored).Inc()
		return &Outcome{Rental: rental}, nil
	}

	confirmed, err := s.verify(ctx, rental, strconv.FormatInt(event.Data.ID, 10))
	if err != nil {
		return nil, err
	}
	if !confirmed {
		metrics.PaymentConfirmations.WithLabelValues(metrics.SourceWebhook, metrics.OutcomeRejected).Inc()
		return &Outcome{Rental: rental}, nil
	}

	final, err := s.MarkPaid(ctx, txRef)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Rental: final}
	s.record(ctx, metrics.SourceWebhook, outcome)
	return outcome, nil
}

// verify asks the gateway for the transaction and checks it against the
// rental. A gateway that answers without confirming yields false; an
// unreachable gateway yields an error.
func (s *ConfirmationService) verify(ctx context.Context, rental *domain.Rental, transactionID string) (bool, error) {
	if strings.TrimSpace(transactionID) == "" || transactionID == "0" {
		s.logger.WarnContext(ctx, "payment notification without transaction id", "tx_ref", rental.TxRef)
		return false, nil
	}

	tx, err := s.gateway.VerifyTransaction(ctx, transactionID)
	if err != nil {
		if verificationRejected(err) {
			s.logger.WarnContext(ctx, "gateway rejected transaction verification",
				"tx_ref", rental.TxRef, "transaction_id", transactionID, "error", err)
			return false, nil
		}
		return false, fmt.Errorf("verify transaction: %w", err)
	}

	if reason := mismatch(rental, tx, s.currency); reason != "" {
		s.logger.WarnContext(ctx, "transaction verification did not confirm payment",
			"tx_ref", rental.TxRef, "transaction_id", transactionID, "reason", reason)
		return false, nil
	}
	return true, nil
}

// mismatch returns why a verified transaction does not pay for the rental,
// or "" if it does.
func mismatch(rental *domain.Rental, tx *flutterwave.Transaction, currency string) string {
	switch {
	case !tx.Successful():
		return "status " + tx.Status
	case tx.TxRef != rental.TxRef:
		return "tx_ref mismatch"
	case tx.Meta.RentalID != "" && tx.Meta.RentalID != rental.ID:
		return "rental id mismatch"
	case tx.Amount < rental.TotalPrice:
		return "amount below total price"
	case currency != "" && !strings.EqualFold(tx.Currency, currency):
		return "currency mismatch"
	}
	return ""
}

func (s *ConfirmationService) record(ctx context.Context, source string, o *Outcome) {
	outcome := metrics.OutcomeFailed
	if o.Paid() {
		outcome = metrics.OutcomePaid
	}
	metrics.PaymentConfirmations.WithLabelValues(source, outcome).Inc()
	s.logger.InfoContext(ctx, "payment confirmation processed",
		"source", source, "rental_id", o.Rental.ID, "status", o.Rental.Status)
}

func successHint(status string) bool {
	return flutterwave.IsSuccessful(status) || strings.EqualFold(strings.TrimSpace(status), "completed")
}

func getRentalByTxRef(ctx context.Context, repo repository.RentalRepository, txRef string) (*domain.Rental, error) {
	if txRef == "" {
		return nil, ErrRentalNotFound
	}
	rental, err := repo.GetByTxRef(ctx, txRef)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrRentalNotFound, err)
		}
		return nil, fmt.Errorf("get rental: %w", err)
	}
	return rental, nil
}
