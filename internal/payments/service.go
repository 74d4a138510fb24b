package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/reconciler"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

const (
	transactionIDConstraint = "payments_transaction_id_key"
	defaultGatewayTimeout   = 15 * time.Second
	defaultRefundReason     = "Refund requested"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Completer runs the shared completion procedure inside a caller-owned transaction.
type Completer interface {
	CompleteTx(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID, completion reconciler.Completion) (reconciler.Outcome, error)
}

type ServiceParams struct {
	Repo              Repository
	Orders            orders.Repository
	Lifecycle         orders.Lifecycle
	Completer         Completer
	Gateways          *Registry
	TransactionRunner txRunner
	Outbox            outbox.Emitter
	Metrics           *metrics.PaymentMetrics
	Logger            *logger.Logger
	GatewayTimeout    time.Duration
	Now               func() time.Time
}

// Service starts payments with a gateway and exposes the operator payment tools.
type Service struct {
	repo      Repository
	orders    orders.Repository
	lifecycle orders.Lifecycle
	completer Completer
	gateways  *Registry
	tx        txRunner
	outbox    outbox.Emitter
	metrics   *metrics.PaymentMetrics
	logg      *logger.Logger
	timeout   time.Duration
	now       func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments repository required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Lifecycle == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order lifecycle required")
	}
	if params.Completer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment completer required")
	}
	if params.Gateways == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "gateway registry required")
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
	timeout := params.GatewayTimeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:      params.Repo,
		orders:    params.Orders,
		lifecycle: params.Lifecycle,
		completer: params.Completer,
		gateways:  params.Gateways,
		tx:        params.TransactionRunner,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		logg:      params.Logger,
		timeout:   timeout,
		now:       now,
	}, nil
}

// Initiate opens (or reuses) a payment for the order and asks the gateway to start
// collecting. The gateway is called outside any transaction; its answer is recorded
// in a second one.
func (s *Service) Initiate(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input InitiateInput) (*InitiateResult, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Gateway.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment gateway")
	}
	method := enums.DefaultMethodFor(input.Gateway)
	if input.Method != nil {
		if !input.Method.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
		}
		method = *input.Method
	}
	gateway, err := s.gateways.Lookup(input.Gateway)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithField(s.logg.WithOrderID(ctx, orderID.String()), "gateway", string(input.Gateway))

	var checkout Checkout
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		order, err := orderRepo.LockByID(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "order not found", "lock order")
		}
		if order.UserID != actor.UserID && !actor.IsAdmin() {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if !order.Status.Cancellable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("Order cannot be paid in %s status", order.Status))
		}

		repo := s.repo.WithTx(tx)
		payment, err := repo.FindOpenForOrder(ctx, order.ID, input.Gateway)
		switch {
		case err == nil:
			s.logg.Info(s.logg.WithField(ctx, "payment_id", payment.ID.String()), "reusing open payment")
		case db.IsNotFound(err):
			payment = &models.Payment{
				OrderID:        order.ID,
				Gateway:        input.Gateway,
				Method:         method,
				Amount:         order.TotalPrice,
				Currency:       order.Currency,
				Status:         enums.PaymentStatusPending,
				RefundedAmount: decimal.Zero,
			}
			if err := repo.Create(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open payment")
		}

		items, err := orderRepo.FindItems(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		checkout = Checkout{Order: order, Items: items, Payment: payment, SourceID: input.SourceID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var session *Session
	err = s.call(ctx, input.Gateway, "initiate", func(callCtx context.Context) error {
		var err error
		session, err = gateway.Initiate(callCtx, checkout)
		return err
	})
	if err != nil {
		s.logg.Error(ctx, "gateway initiate failed", err)
		return nil, err
	}

	result := &InitiateResult{RedirectURL: session.RedirectURL, SessionID: session.SessionID}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payment, err := s.recordSessionTx(ctx, tx, actor, checkout, session)
		if err != nil {
			return err
		}
		result.Payment = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	if session.Status == enums.PaymentStatusFailed {
		reason := firstNonEmpty(session.FailureReason, "Payment failed")
		return nil, pkgerrors.New(pkgerrors.CodeGateway, reason).
			WithDetails(map[string]any{"paymentId": checkout.Payment.ID.String()})
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"payment_id": result.Payment.ID.String(),
		"status":     string(result.Payment.Status),
	}), "payment initiated")
	return result, nil
}

// recordSessionTx stores what the gateway returned. A payment that a webhook already
// moved out of PENDING/PROCESSING is left as it is.
func (s *Service) recordSessionTx(ctx context.Context, tx *gorm.DB, actor auth.Actor, checkout Checkout, session *Session) (*models.Payment, error) {
	orderRepo := s.orders.WithTx(tx)
	repo := s.repo.WithTx(tx)

	order, err := orderRepo.LockByID(ctx, checkout.Order.ID)
	if err != nil {
		return nil, notFoundOr(err, "order not found", "lock order")
	}
	payment, err := repo.LockByID(ctx, checkout.Payment.ID)
	if err != nil {
		return nil, notFoundOr(err, "payment not found", "lock payment")
	}
	if !payment.Status.IsOpen() {
		s.logg.Warn(s.logg.WithField(ctx, "payment_status", string(payment.Status)), "payment settled before the gateway session was recorded")
		return payment, nil
	}

	updates := map[string]any{}
	if session.TransactionID != "" {
		updates["transaction_id"] = session.TransactionID
	}
	if len(session.GatewayResponse) > 0 {
		updates["gateway_response"] = session.GatewayResponse
	}
	switch session.Status {
	case enums.PaymentStatusProcessing:
		updates["status"] = enums.PaymentStatusProcessing
	case enums.PaymentStatusFailed:
		updates["status"] = enums.PaymentStatusFailed
		updates["failure_reason"] = firstNonEmpty(session.FailureReason, "Payment failed")
	}
	if err := repo.Update(ctx, payment.ID, updates); err != nil {
		if db.IsUniqueViolation(err, transactionIDConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "transaction id already recorded on another payment")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record gateway session")
	}

	if payment.Gateway == enums.PaymentGatewayStripe && session.SessionID != "" {
		if err := orderRepo.Update(ctx, order.ID, map[string]any{"checkout_session_id": session.SessionID}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store checkout session")
		}
	}

	switch {
	case session.Status == enums.PaymentStatusCompleted:
		if _, err := s.completer.CompleteTx(ctx, tx, payment.ID, reconciler.Completion{
			TransactionID:   session.TransactionID,
			GatewayResponse: session.GatewayResponse,
			Actor:           actor.UserIDPtr(),
		}); err != nil {
			return nil, err
		}
	case session.Status == enums.PaymentStatusFailed:
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Data: outbox.PaymentFailedEvent{
				PaymentID: payment.ID,
				OrderID:   payment.OrderID,
				Gateway:   string(payment.Gateway),
				Reason:    firstNonEmpty(session.FailureReason, "Payment failed"),
			},
		}); err != nil {
			return nil, err
		}
	case payment.Gateway == enums.PaymentGatewayCOD && order.Status == enums.OrderStatusPending:
		if err := s.lifecycle.TransitionTx(ctx, tx, order, enums.OrderStatusProcessing, "Cash on delivery selected", actor.UserIDPtr()); err != nil {
			return nil, err
		}
	}

	updated, err := repo.FindByID(ctx, payment.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment")
	}
	return updated, nil
}

// ListForOrder returns the order's payments, newest first. Customers only see their own.
func (s *Service) ListForOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]models.Payment, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order not found", "load order")
	}
	if order.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	rows, err := s.repo.ListForOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return rows, nil
}

// UpdateStatus is the operator override. COMPLETED runs the same completion
// procedure as a gateway confirmation.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Actor, paymentID uuid.UUID, input UpdateStatusInput) (*models.Payment, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}
	if input.RefundedAmount != nil && input.RefundedAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refundedAmount cannot be negative")
	}

	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, paymentID)
		if err != nil {
			return notFoundOr(err, "payment not found", "load payment")
		}

		if input.Status == enums.PaymentStatusCompleted && input.RefundedAmount == nil {
			completion := reconciler.Completion{
				GatewayResponse: NormalizeGatewayResponse(input.GatewayResponse),
				Actor:           actor.UserIDPtr(),
			}
			if input.TransactionID != nil {
				completion.TransactionID = strings.TrimSpace(*input.TransactionID)
			}
			if _, err := s.completer.CompleteTx(ctx, tx, paymentID, completion); err != nil {
				return err
			}
			payment, err = repo.FindByID(ctx, paymentID)
			return err
		}

		if _, err := s.orders.WithTx(tx).LockByID(ctx, current.OrderID); err != nil {
			return notFoundOr(err, "order not found", "lock order")
		}
		locked, err := repo.LockByID(ctx, paymentID)
		if err != nil {
			return notFoundOr(err, "payment not found", "lock payment")
		}

		status := input.Status
		updates := map[string]any{}
		if input.RefundedAmount != nil {
			refunded := input.RefundedAmount.Round(2)
			if refunded.GreaterThan(locked.Amount) {
				return pkgerrors.New(pkgerrors.CodeValidation, "refundedAmount cannot exceed the payment amount")
			}
			updates["refunded_amount"] = refunded
			switch {
			case refunded.GreaterThanOrEqual(locked.Amount):
				status = enums.PaymentStatusRefunded
			case refunded.IsPositive():
				status = enums.PaymentStatusPartiallyRefunded
			}
			if refunded.IsPositive() {
				updates["refunded_at"] = s.now()
			}
		}
		updates["status"] = status
		if input.TransactionID != nil {
			updates["transaction_id"] = strings.TrimSpace(*input.TransactionID)
		}
		if input.FailureReason != nil {
			updates["failure_reason"] = strings.TrimSpace(*input.FailureReason)
		}
		if input.GatewayResponse != nil {
			updates["gateway_response"] = NormalizeGatewayResponse(input.GatewayResponse)
		}
		if err := repo.Update(ctx, locked.ID, updates); err != nil {
			if db.IsUniqueViolation(err, transactionIDConstraint) {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "transaction id already recorded on another payment")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}
		payment, err = repo.FindByID(ctx, paymentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"payment_id": payment.ID.String(),
		"status":     string(payment.Status),
		"actor_id":   actor.UserID.String(),
	}), "payment status updated")
	return payment, nil
}

// CreateManual records a payment collected outside the gateways, e.g. a bank transfer.
func (s *Service) CreateManual(ctx context.Context, actor auth.Actor, input CreateManualInput) (*models.Payment, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderId is required")
	}
	if !input.Gateway.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment gateway")
	}
	method := input.Method
	if method == "" {
		method = enums.DefaultMethodFor(input.Gateway)
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	status := input.Status
	if status == "" {
		status = enums.PaymentStatusPending
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.WithTx(tx).LockByID(ctx, input.OrderID)
		if err != nil {
			return notFoundOr(err, "order not found", "lock order")
		}
		if amount.GreaterThan(order.TotalPrice) {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount cannot exceed the order total")
		}

		initial := status
		if status == enums.PaymentStatusCompleted {
			initial = enums.PaymentStatusPending
		}
		payment = &models.Payment{
			OrderID:        order.ID,
			Gateway:        input.Gateway,
			Method:         method,
			Amount:         amount,
			Currency:       firstNonEmpty(strings.ToUpper(input.Currency), order.Currency),
			Status:         initial,
			RefundedAmount: decimal.Zero,
		}
		if input.TransactionID != nil && strings.TrimSpace(*input.TransactionID) != "" {
			txID := strings.TrimSpace(*input.TransactionID)
			payment.TransactionID = &txID
		}
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, payment); err != nil {
			if db.IsUniqueViolation(err, transactionIDConstraint) {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "transaction id already recorded on another payment")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		if status != enums.PaymentStatusCompleted {
			return nil
		}
		if _, err := s.completer.CompleteTx(ctx, tx, payment.ID, reconciler.Completion{Actor: actor.UserIDPtr()}); err != nil {
			return err
		}
		payment, err = repo.FindByID(ctx, payment.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, payment.OrderID.String()), map[string]any{
		"payment_id": payment.ID.String(),
		"status":     string(payment.Status),
	}), "manual payment recorded")
	return payment, nil
}

// Refund returns part or all of a captured payment. The gateway is called while
// the payment row is locked so concurrent refunds cannot exceed the captured
// amount. A full refund cancels the order and restores its stock.
func (s *Service) Refund(ctx context.Context, actor auth.Actor, paymentID uuid.UUID, input RefundInput) (*models.Payment, error) {
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	reason := firstNonEmpty(input.Reason, defaultRefundReason)

	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, paymentID)
		if err != nil {
			return notFoundOr(err, "payment not found", "load payment")
		}
		order, err := s.orders.WithTx(tx).LockByID(ctx, current.OrderID)
		if err != nil {
			return notFoundOr(err, "order not found", "lock order")
		}
		locked, err := repo.LockByID(ctx, paymentID)
		if err != nil {
			return notFoundOr(err, "payment not found", "lock payment")
		}
		if locked.Status != enums.PaymentStatusCompleted && locked.Status != enums.PaymentStatusPartiallyRefunded {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("Payment cannot be refunded in %s status", locked.Status))
		}
		refundable := locked.Refundable()
		if amount.GreaterThan(refundable) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund amount exceeds the refundable amount").
				WithDetails(map[string]any{"refundable": refundable.StringFixed(2)})
		}

		if err := s.refundWithGateway(ctx, locked, amount, reason); err != nil {
			return err
		}

		total := locked.RefundedAmount.Add(amount)
		full := total.GreaterThanOrEqual(locked.Amount)
		status := enums.PaymentStatusPartiallyRefunded
		if full {
			status = enums.PaymentStatusRefunded
		}
		if err := repo.Update(ctx, locked.ID, map[string]any{
			"status":          status,
			"refunded_amount": total,
			"refunded_at":     s.now(),
			"refund_reason":   reason,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refund")
		}

		if full && order.Status != enums.OrderStatusCancelled && order.Status != enums.OrderStatusRefunded {
			if err := s.cancelForRefundTx(ctx, tx, order, reason, actor.UserIDPtr()); err != nil {
				return err
			}
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentRefunded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   locked.ID,
			Actor:         actorRef(actor.UserIDPtr()),
			Data: outbox.PaymentRefundedEvent{
				PaymentID:      locked.ID,
				OrderID:        locked.OrderID,
				Amount:         amount,
				RefundedAmount: total,
				Full:           full,
				Reason:         reason,
			},
		}); err != nil {
			return err
		}
		payment, err = repo.FindByID(ctx, locked.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, payment.OrderID.String()), map[string]any{
		"payment_id":      payment.ID.String(),
		"amount":          amount.StringFixed(2),
		"refunded_amount": payment.RefundedAmount.StringFixed(2),
	}), "payment refunded")
	return payment, nil
}

// refundWithGateway asks the provider to return the money. Gateways without a
// refund integration are recorded locally only.
func (s *Service) refundWithGateway(ctx context.Context, payment *models.Payment, amount decimal.Decimal, reason string) error {
	gateway, err := s.gateways.Lookup(payment.Gateway)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeGatewayNotImplemented) {
			s.logg.Warn(s.logg.WithField(ctx, "gateway", string(payment.Gateway)), "no refund integration, recording refund locally")
			return nil
		}
		return err
	}
	return s.call(ctx, payment.Gateway, "refund", func(callCtx context.Context) error {
		return gateway.Refund(callCtx, payment, amount, reason)
	})
}

func (s *Service) cancelForRefundTx(ctx context.Context, tx *gorm.DB, order *models.Order, reason string, actor *uuid.UUID) error {
	if err := s.lifecycle.ReleaseStockTx(ctx, tx, order, "Refund processed", actor); err != nil {
		return err
	}
	note := "Order cancelled due to refund: " + reason
	if err := s.lifecycle.TransitionTx(ctx, tx, order, enums.OrderStatusCancelled, note, actor); err != nil {
		return err
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		Data: outbox.OrderCancelledEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Reason:      note,
			CancelledAt: s.now(),
		},
	})
}

// call bounds one outbound gateway request by the configured timeout and records
// its latency. Untyped failures surface as retryable GATEWAY_ERROR.
func (s *Service) call(ctx context.Context, kind enums.PaymentGateway, operation string, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	err := fn(callCtx)
	s.metrics.ObserveGatewayCall(string(kind), operation, time.Since(started), err)
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "payment gateway timed out")
	}
	return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "payment gateway request failed")
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
