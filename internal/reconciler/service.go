package reconciler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

const invoicePaymentConstraint = "invoices_payment_id_key"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repo              Repository
	Orders            orders.Repository
	Lifecycle         orders.Lifecycle
	TransactionRunner txRunner
	Outbox            outbox.Emitter
	Metrics           *metrics.PaymentMetrics
	Logger            *logger.Logger
	Now               func() time.Time
}

// Service converges gateway notifications into payment, order and invoice state.
// Every gateway adapter funnels into Apply; synchronous paths call CompleteTx directly.
type Service struct {
	repo      Repository
	orders    orders.Repository
	lifecycle orders.Lifecycle
	tx        txRunner
	outbox    outbox.Emitter
	metrics   *metrics.PaymentMetrics
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciler repository required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Lifecycle == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order lifecycle required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:      params.Repo,
		orders:    params.Orders,
		lifecycle: params.Lifecycle,
		tx:        params.TransactionRunner,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       now,
	}, nil
}

// Apply handles one normalized gateway event. Events that cannot be matched to a
// payment are logged and acknowledged; only storage failures return an error.
func (s *Service) Apply(ctx context.Context, event Event) (Outcome, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"gateway":     string(event.Gateway),
		"event_kind":  string(event.Kind),
		"external_id": event.ExternalID,
	})

	if event.Kind == KindUnhandled || event.Kind == "" {
		s.logg.Info(ctx, "gateway event ignored")
		s.record(event, OutcomeIgnored, nil)
		return OutcomeIgnored, nil
	}

	payment, err := s.locate(ctx, event)
	if err != nil {
		if db.IsNotFound(err) {
			s.logg.Warn(ctx, "no payment matches gateway event")
			s.record(event, OutcomeIgnored, nil)
			return OutcomeIgnored, nil
		}
		s.record(event, "", err)
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locate payment")
	}
	ctx = s.logg.WithField(s.logg.WithOrderID(ctx, payment.OrderID.String()), "payment_id", payment.ID.String())

	if event.Kind == KindCompleted {
		if mismatch := capturedMismatch(payment, event); mismatch != nil {
			s.logg.Warn(s.logg.WithFields(ctx, mismatch), "captured amount does not match payment")
			err := pkgerrors.New(pkgerrors.CodeValidation, "captured amount does not match payment").WithDetails(mismatch)
			s.record(event, "", err)
			return "", err
		}
	}

	var outcome Outcome
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		switch event.Kind {
		case KindCompleted:
			outcome, err = s.CompleteTx(ctx, tx, payment.ID, Completion{
				TransactionID:   event.ConfirmedTransactionID,
				GatewayResponse: event.GatewayResponse,
			})
		case KindFailed:
			outcome, err = s.failTx(ctx, tx, payment.ID, event)
		case KindRefunded:
			outcome, err = s.refundTx(ctx, tx, payment.ID, event)
		default:
			outcome = OutcomeIgnored
		}
		return err
	})
	if err != nil {
		s.record(event, "", err)
		return "", err
	}

	s.record(event, outcome, nil)
	s.logg.Info(s.logg.WithField(ctx, "outcome", string(outcome)), "gateway event reconciled")
	return outcome, nil
}

func (s *Service) locate(ctx context.Context, event Event) (*models.Payment, error) {
	if event.SessionID != "" {
		order, err := s.repo.FindOrderBySessionID(ctx, event.SessionID)
		switch {
		case err == nil:
			payment, err := s.repo.FindLatestPaymentForOrder(ctx, order.ID, event.Gateway)
			if err == nil || !db.IsNotFound(err) {
				return payment, err
			}
		case !db.IsNotFound(err):
			return nil, err
		}
		payment, err := s.repo.FindPaymentByTransactionID(ctx, event.SessionID)
		if err == nil || !db.IsNotFound(err) {
			return payment, err
		}
	}
	if event.TransactionID != "" {
		payment, err := s.repo.FindPaymentByTransactionID(ctx, event.TransactionID)
		if err == nil || !db.IsNotFound(err) {
			return payment, err
		}
	}
	if event.PaymentID != nil {
		payment, err := s.repo.FindPayment(ctx, *event.PaymentID)
		if err == nil || !db.IsNotFound(err) {
			return payment, err
		}
	}
	if event.OrderID != nil {
		return s.repo.FindLatestPaymentForOrder(ctx, *event.OrderID, event.Gateway)
	}
	return nil, gorm.ErrRecordNotFound
}

// CompleteTx marks a payment COMPLETED, moves its order to PAID, issues the invoice
// and emits order.paid. A replay for an already captured payment reports
// OutcomeDuplicate without side effects. Stock is not touched for open orders: it
// was reserved when the order was placed. A cancelled order released its stock,
// so it is reserved again; when that fails the payment is kept, the order stays
// cancelled and OutcomeRefundRequired is returned.
func (s *Service) CompleteTx(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID, completion Completion) (Outcome, error) {
	if tx == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := s.repo.WithTx(tx)

	current, err := repo.FindPayment(ctx, paymentID)
	if err != nil {
		return "", notFoundOr(err, "payment not found", "load payment")
	}
	order, err := s.orders.WithTx(tx).LockByID(ctx, current.OrderID)
	if err != nil {
		return "", notFoundOr(err, "order not found", "lock order")
	}
	payment, err := repo.LockPayment(ctx, paymentID)
	if err != nil {
		return "", notFoundOr(err, "payment not found", "lock payment")
	}
	if payment.Status.IsSettled() {
		s.logg.Info(ctx, "payment already completed, skipping")
		return OutcomeDuplicate, nil
	}

	now := s.now()
	updates := map[string]any{
		"status":         enums.PaymentStatusCompleted,
		"paid_at":        now,
		"failure_reason": nil,
	}
	if len(completion.GatewayResponse) > 0 {
		updates["gateway_response"] = completion.GatewayResponse
	}
	if completion.TransactionID != "" {
		updates["transaction_id"] = completion.TransactionID
	}
	if err := repo.UpdatePayment(ctx, payment.ID, updates); err != nil {
		if db.IsUniqueViolation(err, "payments_transaction_id_key") {
			return "", pkgerrors.Wrap(pkgerrors.CodeConflict, err, "transaction id already recorded on another payment")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete payment")
	}

	switch order.Status {
	case enums.OrderStatusPending, enums.OrderStatusProcessing:
		if err := s.lifecycle.TransitionTx(ctx, tx, order, enums.OrderStatusPaid, "Payment completed successfully", completion.Actor); err != nil {
			return "", err
		}
	case enums.OrderStatusCancelled:
		reinstated, err := s.reinstateTx(ctx, tx, order, payment, completion)
		if err != nil || !reinstated {
			return OutcomeRefundRequired, err
		}
	default:
		s.logg.Warn(s.logg.WithField(ctx, "order_status", string(order.Status)), "payment completed for order outside the payable states")
	}

	invoiceNumber, err := s.issueInvoice(ctx, repo, order, payment, completion, now)
	if err != nil {
		return "", err
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(completion.Actor),
		Data: outbox.OrderPaidEvent{
			OrderID:       order.ID,
			PaymentID:     payment.ID,
			InvoiceNumber: invoiceNumber,
			Gateway:       string(payment.Gateway),
			Amount:        payment.Amount,
			PaidAt:        now,
		},
	}); err != nil {
		return "", err
	}
	s.logg.Info(s.logg.WithField(ctx, "invoice_number", invoiceNumber), "payment completed")
	return OutcomeApplied, nil
}

// reinstateTx handles money captured for a cancelled order. It reports true when
// the stock was reserved again and the order moved to PAID. Otherwise the order
// stays cancelled with a tracking note and payment.requires_refund is emitted.
func (s *Service) reinstateTx(ctx context.Context, tx *gorm.DB, order *models.Order, payment *models.Payment, completion Completion) (bool, error) {
	err := s.lifecycle.ReserveStockTx(ctx, tx, order, "Payment received after cancellation", completion.Actor)
	if err == nil {
		if err := s.lifecycle.TransitionTx(ctx, tx, order, enums.OrderStatusPaid, "Payment completed after cancellation, order reinstated", completion.Actor); err != nil {
			return false, err
		}
		s.logg.Warn(ctx, "cancelled order reinstated by late payment")
		return true, nil
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return false, err
	}

	reason := "Payment received after cancellation, stock unavailable: refund required"
	if err := s.lifecycle.TransitionTx(ctx, tx, order, enums.OrderStatusCancelled, reason, completion.Actor); err != nil {
		return false, err
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentRequiresRefund,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Actor:         actorRef(completion.Actor),
		Data: outbox.PaymentRequiresRefundEvent{
			PaymentID: payment.ID,
			OrderID:   order.ID,
			Gateway:   string(payment.Gateway),
			Amount:    payment.Amount,
			Reason:    reason,
		},
	}); err != nil {
		return false, err
	}
	s.logg.Warn(s.logg.WithField(ctx, "shortage", err.Error()), "late payment for cancelled order needs a refund")
	return false, nil
}

func (s *Service) issueInvoice(ctx context.Context, repo Repository, order *models.Order, payment *models.Payment, completion Completion, now time.Time) (string, error) {
	existing, err := repo.CountInvoices(ctx, payment.ID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check invoice")
	}
	if existing > 0 {
		return "", nil
	}

	invoice := &models.Invoice{
		InvoiceNumber: fmt.Sprintf("INV-%s-%d", order.OrderNumber, now.UnixMilli()),
		OrderID:       order.ID,
		PaymentID:     payment.ID,
		Amount:        payment.Amount,
		IssuedAt:      now,
	}
	reference := completion.TransactionID
	if reference == "" && payment.TransactionID != nil {
		reference = *payment.TransactionID
	}
	if reference != "" {
		invoice.GatewayReference = &reference
	}
	if err := repo.CreateInvoice(ctx, invoice); err != nil {
		if db.IsUniqueViolation(err, invoicePaymentConstraint) {
			return "", pkgerrors.Wrap(pkgerrors.CodeConflict, err, "invoice already issued for payment")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
	}
	return invoice.InvoiceNumber, nil
}

func (s *Service) failTx(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID, event Event) (Outcome, error) {
	repo := s.repo.WithTx(tx)
	payment, err := repo.LockPayment(ctx, paymentID)
	if err != nil {
		return "", notFoundOr(err, "payment not found", "lock payment")
	}
	if payment.Status.IsSettled() {
		s.logg.Warn(ctx, "failure reported for a completed payment, ignoring")
		return OutcomeIgnored, nil
	}
	if payment.Status == enums.PaymentStatusFailed {
		return OutcomeDuplicate, nil
	}

	reason := event.FailureReason
	if reason == "" {
		reason = "Payment failed"
	}
	updates := map[string]any{
		"status":         enums.PaymentStatusFailed,
		"failure_reason": reason,
	}
	if len(event.GatewayResponse) > 0 {
		updates["gateway_response"] = event.GatewayResponse
	}
	if err := repo.UpdatePayment(ctx, payment.ID, updates); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail payment")
	}
	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Data: outbox.PaymentFailedEvent{
			PaymentID: payment.ID,
			OrderID:   payment.OrderID,
			Gateway:   string(payment.Gateway),
			Reason:    reason,
		},
	})
	if err != nil {
		return "", err
	}
	return OutcomeApplied, nil
}

// refundTx records a gateway-reported refund total. Reports at or below the
// recorded refunded amount are replays.
func (s *Service) refundTx(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID, event Event) (Outcome, error) {
	repo := s.repo.WithTx(tx)
	current, err := repo.FindPayment(ctx, paymentID)
	if err != nil {
		return "", notFoundOr(err, "payment not found", "load payment")
	}
	order, err := s.orders.WithTx(tx).LockByID(ctx, current.OrderID)
	if err != nil {
		return "", notFoundOr(err, "order not found", "lock order")
	}
	payment, err := repo.LockPayment(ctx, paymentID)
	if err != nil {
		return "", notFoundOr(err, "payment not found", "lock payment")
	}
	if !payment.Status.IsSettled() {
		s.logg.Warn(s.logg.WithField(ctx, "payment_status", string(payment.Status)), "refund reported for an uncaptured payment, ignoring")
		return OutcomeIgnored, nil
	}

	reported := event.RefundedAmount.Round(2)
	if reported.GreaterThan(payment.Amount) {
		reported = payment.Amount
	}
	if !reported.GreaterThan(payment.RefundedAmount) {
		return OutcomeDuplicate, nil
	}

	full := reported.GreaterThanOrEqual(payment.Amount)
	status := enums.PaymentStatusPartiallyRefunded
	if full {
		status = enums.PaymentStatusRefunded
	}
	now := s.now()
	if err := repo.UpdatePayment(ctx, payment.ID, map[string]any{
		"status":          status,
		"refunded_amount": reported,
		"refunded_at":     now,
	}); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refund")
	}

	if full && order.Status != enums.OrderStatusRefunded && order.Status != enums.OrderStatusCancelled {
		note := fmt.Sprintf("Payment refunded via %s", payment.Gateway)
		if err := s.lifecycle.TransitionTx(ctx, tx, order, enums.OrderStatusRefunded, note, nil); err != nil {
			return "", err
		}
	}

	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentRefunded,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Data: outbox.PaymentRefundedEvent{
			PaymentID:      payment.ID,
			OrderID:        payment.OrderID,
			Amount:         reported.Sub(payment.RefundedAmount),
			RefundedAmount: reported,
			Full:           full,
		},
	})
	if err != nil {
		return "", err
	}
	return OutcomeApplied, nil
}

func (s *Service) record(event Event, outcome Outcome, err error) {
	label := metrics.OutcomeSuccess
	switch {
	case err != nil:
		label = metrics.OutcomeError
	case outcome == OutcomeDuplicate:
		label = metrics.OutcomeReplay
	case outcome == OutcomeIgnored:
		label = metrics.OutcomeIgnored
	case outcome == OutcomeRefundRequired:
		label = metrics.OutcomeRefundRequired
	}
	s.metrics.IncReconciliation(string(event.Gateway), string(event.Kind), label)
}

// capturedMismatch compares the gateway-reported amount and currency with the
// payment. It returns nil when they agree or were not reported.
func capturedMismatch(payment *models.Payment, event Event) map[string]any {
	amountOK := event.Amount == nil || event.Amount.Round(2).Equal(payment.Amount.Round(2))
	currencyOK := event.Currency == "" || payment.Currency == "" || strings.EqualFold(event.Currency, payment.Currency)
	if amountOK && currencyOK {
		return nil
	}
	details := map[string]any{
		"expected_amount":   payment.Amount.StringFixed(2),
		"expected_currency": payment.Currency,
		"reported_currency": event.Currency,
	}
	if event.Amount != nil {
		details["reported_amount"] = event.Amount.StringFixed(2)
	}
	return details
}

func notFoundOr(err error, notFound, action string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func actorRef(id *uuid.UUID) *outbox.ActorRef {
	if id == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: *id}
}
