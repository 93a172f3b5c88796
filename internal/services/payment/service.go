// Package payment creates GoCardless payments and projects payment state onto orders.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/kevin07696/gocardless-service/pkg/observability"
	"github.com/kevin07696/gocardless-service/pkg/timeutil"
	"github.com/shopspring/decimal"
)

// Config holds the order statuses applied while a payment is still in flight
// and the dashboard links used in order notes
type Config struct {
	SubscriptionStatus domain.OrderStatus
	RenewalStatus      domain.OrderStatus
	DefaultStatus      domain.OrderStatus
	RetryStatus        domain.OrderStatus

	// PaymentURLFormat and MandateURLFormat take the resource id as their only verb
	PaymentURLFormat string
	MandateURLFormat string

	MaxMandateReplacementAttempts int
}

// DefaultConfig returns the statuses the host platform expects
func DefaultConfig() Config {
	return Config{
		SubscriptionStatus:            domain.OrderStatusProcessing,
		RenewalStatus:                 domain.OrderStatusProcessing,
		DefaultStatus:                 domain.OrderStatusOnHold,
		RetryStatus:                   domain.OrderStatusOnHold,
		PaymentURLFormat:              "https://manage.gocardless.com/payments/%s",
		MandateURLFormat:              "https://manage.gocardless.com/mandates/%s",
		MaxMandateReplacementAttempts: 3,
	}
}

// Service implements ports.PaymentHandler and ports.PaymentEventHandler
type Service struct {
	db            ports.DBPort
	orders        ports.OrderRepository
	store         ports.ResourceStore
	recorder      ports.ResourceRecorder
	scheduler     ports.StatusCheckScheduler
	client        ports.GoCardlessClient
	mandates      ports.MandateResolver
	subscriptions ports.SubscriptionPaymentStrategy
	preOrders     ports.PreOrderStrategy
	cfg           Config
	logger        ports.Logger
	now           func() time.Time
}

var (
	_ ports.PaymentHandler      = (*Service)(nil)
	_ ports.PaymentEventHandler = (*Service)(nil)
)

// NewService creates a new payment service
func NewService(
	db ports.DBPort,
	orders ports.OrderRepository,
	store ports.ResourceStore,
	recorder ports.ResourceRecorder,
	scheduler ports.StatusCheckScheduler,
	client ports.GoCardlessClient,
	mandates ports.MandateResolver,
	cfg Config,
	logger ports.Logger,
) *Service {
	if cfg.MaxMandateReplacementAttempts <= 0 {
		cfg.MaxMandateReplacementAttempts = 3
	}
	return &Service{
		db:        db,
		orders:    orders,
		store:     store,
		recorder:  recorder,
		scheduler: scheduler,
		client:    client,
		mandates:  mandates,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// WithSubscriptions enables subscription-aware behaviour
func (s *Service) WithSubscriptions(subscriptions ports.SubscriptionPaymentStrategy) *Service {
	s.subscriptions = subscriptions
	return s
}

// WithPreOrders enables pre-order handling after mandate creation
func (s *Service) WithPreOrders(preOrders ports.PreOrderStrategy) *Service {
	s.preOrders = preOrders
	return s
}

// WithClock overrides the clock used for paid-at stamps and status checks
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// OnMandateCreated collects the order total against a freshly created mandate.
// Pre-orders charged upon release are parked instead.
func (s *Service) OnMandateCreated(ctx context.Context, orderID, mandateID string) error {
	s.logger.Info("Mandate created",
		ports.String("order_id", orderID),
		ports.String("mandate_id", mandateID))

	if s.preOrders != nil {
		order, err := s.orders.GetByID(ctx, nil, orderID)
		if err != nil {
			return err
		}
		if s.preOrders.ChargedUponRelease(order) {
			return s.preOrders.MarkPreOrdered(ctx, order)
		}
	}

	_, err := s.CreatePayment(ctx, orderID, mandateID, nil)
	return err
}

// CreatePayment debits the mandate for amount, or the order total when amount
// is nil. A mandate_replaced error migrates every reference to the new mandate
// and retries with the original amount, at most MaxMandateReplacementAttempts times.
func (s *Service) CreatePayment(ctx context.Context, orderID, mandateID string, amount *decimal.Decimal) (*domain.Payment, error) {
	order, err := s.orders.GetByID(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}

	charge := order.Total
	if amount != nil && !amount.IsZero() {
		charge = *amount
	}

	minorUnits := domain.ToMinorUnits(charge, order.Currency)
	if minorUnits <= 0 {
		if _, err := s.orders.PaymentComplete(ctx, nil, order.ID, "", domain.OrderStatusProcessing, s.now()); err != nil {
			return nil, fmt.Errorf("mark zero total order paid: %w", err)
		}
		s.logger.Info("Nothing to collect, order marked paid", ports.String("order_id", order.ID))
		return nil, nil
	}

	// Switching payment method on a subscription or paid elsewhere meanwhile
	if !order.NeedsPayment() {
		s.logger.Info("Order no longer needs payment",
			ports.String("order_id", order.ID),
			ports.String("status", string(order.Status)))
		return nil, nil
	}

	description := domain.PaymentDescription(order)
	current := mandateID
	for replacements := 0; ; replacements++ {
		payment, err := s.client.CreatePayment(ctx, &ports.CreatePaymentParams{
			Amount:          minorUnits,
			Currency:        order.Currency,
			Description:     description,
			MandateID:       current,
			Metadata:        map[string]string{"order_id": order.ID},
			RetryIfPossible: true,
		})
		if err == nil {
			if payment == nil || payment.ID == "" {
				return nil, domain.ErrUnexpectedResponse
			}
			observability.RecordPaymentCreated(string(payment.Status))
			if err := s.HandlePaymentCreation(ctx, order, payment, true); err != nil {
				return payment, err
			}
			return payment, nil
		}

		newMandateID, replaced := ports.ReplacementMandate(err)
		if !replaced {
			s.logger.Error("Create payment failed",
				ports.String("order_id", order.ID),
				ports.String("mandate_id", current),
				ports.Err(err))
			return nil, domain.WrapError(domain.ErrorCodeRemoteAPI, "Unable to create payment", err)
		}
		if replacements >= s.cfg.MaxMandateReplacementAttempts {
			return nil, domain.WrapError(domain.ErrorCodeMandateRetryExhausted, domain.ErrMandateRetryExhausted.Message, err).
				WithDetail("order_id", order.ID).
				WithDetail("mandate_id", current)
		}

		s.logger.Warn("Mandate replaced, retrying payment with new mandate",
			ports.String("order_id", order.ID),
			ports.String("old_mandate_id", current),
			ports.String("new_mandate_id", newMandateID))

		if err := s.mandates.ReplaceMandate(ctx, current, newMandateID); err != nil {
			return nil, fmt.Errorf("replace mandate: %w", err)
		}
		current = newMandateID
	}
}

// HandlePaymentCreation records the payment and moves the order to the status
// its remote state implies. Payments still in flight on subscriptions and
// renewals activate the order early and schedule a status check.
func (s *Service) HandlePaymentCreation(ctx context.Context, order *domain.Order, payment *domain.Payment, directDebit bool) error {
	_, err := s.applyCreation(ctx, order, payment, directDebit, false)
	return err
}

// LinkPaymentCreation is HandlePaymentCreation for a payment that may already
// be linked by a concurrent flow. The claim commits with the projection, so a
// failed projection leaves the payment unlinked for the next attempt.
func (s *Service) LinkPaymentCreation(ctx context.Context, order *domain.Order, payment *domain.Payment, directDebit bool) (bool, error) {
	return s.applyCreation(ctx, order, payment, directDebit, true)
}

func (s *Service) applyCreation(ctx context.Context, order *domain.Order, payment *domain.Payment, directDebit, link bool) (bool, error) {
	snapshot, err := domain.NewSnapshot(order.ID, domain.ResourcePayment, payment.ID, string(payment.Status), payment)
	if err != nil {
		return false, fmt.Errorf("encode payment snapshot: %w", err)
	}

	status, temporary := s.creationStatus(order, payment.Status)
	note := s.creationNote(payment, directDebit)

	var claimed bool
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		claimed = true
		if link {
			ok, err := s.recorder.Link(ctx, tx, order, snapshot)
			if err != nil {
				return err
			}
			if !ok {
				claimed = false
				return nil
			}
		} else if err := s.recorder.Record(ctx, tx, order, snapshot); err != nil {
			return err
		}

		if temporary {
			if err := s.orders.SetTemporaryActivated(ctx, tx, order.ID, true); err != nil {
				return fmt.Errorf("flag temporary activation: %w", err)
			}
			if runAt, ok := statusCheckTime(payment.ChargeDate); ok {
				if err := s.scheduler.Schedule(ctx, tx, order.ID, runAt); err != nil {
					return fmt.Errorf("schedule status check: %w", err)
				}
			}
		}

		if err := s.store.AddNote(ctx, tx, order.ID, note); err != nil {
			return fmt.Errorf("add order note: %w", err)
		}

		if status == domain.OrderStatusProcessing {
			if _, err := s.orders.PaymentComplete(ctx, tx, order.ID, payment.ID, status, s.now()); err != nil {
				return fmt.Errorf("complete payment: %w", err)
			}
		} else if err := s.orders.UpdateStatus(ctx, tx, order.ID, status); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}

		if status != domain.OrderStatusFailed && status != domain.OrderStatusCancelled {
			if _, err := s.orders.ReduceStock(ctx, tx, order.ID); err != nil {
				return fmt.Errorf("reduce stock: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to apply created payment",
			ports.String("order_id", order.ID),
			ports.String("payment_id", payment.ID),
			ports.Err(err))
		return false, err
	}
	if !claimed {
		return false, nil
	}

	order.Status = status
	order.TemporaryActivated = order.TemporaryActivated || temporary

	s.logger.Info("Payment applied to order",
		ports.String("order_id", order.ID),
		ports.String("payment_id", payment.ID),
		ports.String("payment_status", string(payment.Status)),
		ports.String("order_status", string(status)),
		ports.Bool("temporary_activated", temporary))
	return true, nil
}

func (s *Service) creationStatus(order *domain.Order, status domain.PaymentStatus) (domain.OrderStatus, bool) {
	switch status {
	case domain.PaymentPaidOut, domain.PaymentConfirmed:
		return domain.OrderStatusProcessing, false
	case domain.PaymentFailed:
		return domain.OrderStatusFailed, false
	case domain.PaymentCancelled:
		return domain.OrderStatusCancelled, false
	}

	switch {
	case order.ContainsSubscription:
		return s.cfg.SubscriptionStatus, true
	case order.IsRenewal():
		return s.cfg.RenewalStatus, true
	default:
		return s.cfg.DefaultStatus, false
	}
}

func (s *Service) creationNote(payment *domain.Payment, directDebit bool) string {
	paymentLink := fmt.Sprintf(`<a href="%s" target="_blank">%s</a>`, fmt.Sprintf(s.cfg.PaymentURLFormat, payment.ID), payment.ID)
	if directDebit {
		mandateID := payment.Links.Mandate
		mandateLink := fmt.Sprintf(`<a href="%s" target="_blank">%s</a>`, fmt.Sprintf(s.cfg.MandateURLFormat, mandateID), mandateID)
		return fmt.Sprintf(`GoCardless payment created with mandate %s, payment ID %s, and status "%s"`,
			mandateLink, paymentLink, payment.Status)
	}
	return fmt.Sprintf(`GoCardless payment created with ID %s and status "%s"`, paymentLink, payment.Status)
}

// statusCheckTime is one day after the charge date
func statusCheckTime(chargeDate string) (time.Time, bool) {
	if chargeDate == "" {
		return time.Time{}, false
	}
	day, err := timeutil.ParseChargeDate(chargeDate)
	if err != nil {
		return time.Time{}, false
	}
	return day.Add(domain.StatusCheckDelay), true
}
