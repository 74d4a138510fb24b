package orders

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const (
	orderNumberConstraint  = "orders_order_number_key"
	maxOrderNumberAttempts = 5
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repo              Repository
	TransactionRunner txRunner
	Pricing           *pricing.Engine
	Coupons           coupons.Repository
	Inventory         inventory.Stocker
	Outbox            outbox.Emitter
	Logger            *logger.Logger
	Currency          string
	Now               func() time.Time
}

type service struct {
	repo      Repository
	tx        txRunner
	pricing   *pricing.Engine
	coupons   coupons.Repository
	inventory inventory.Stocker
	outbox    outbox.Emitter
	logg      *logger.Logger
	currency  string
	now       func() time.Time
}

// NewService builds the order lifecycle service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Pricing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pricing engine required")
	}
	if params.Coupons == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "coupon repository required")
	}
	if params.Inventory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory manager required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "USD"
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:      params.Repo,
		tx:        params.TransactionRunner,
		pricing:   params.Pricing,
		coupons:   params.Coupons,
		inventory: params.Inventory,
		outbox:    params.Outbox,
		logg:      params.Logger,
		currency:  currency,
		now:       now,
	}, nil
}

// Create prices the cart, reserves stock, consumes the coupon and persists the order
// in one transaction. A colliding order number reruns the whole transaction.
func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateOrderInput) (*models.Order, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	var (
		orderID uuid.UUID
		err     error
	)
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		orderID, err = s.createOnce(ctx, actor, input)
		if err == nil {
			break
		}
		if !db.IsUniqueViolation(err, orderNumberConstraint) {
			return nil, err
		}
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "order number collision, retrying")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "could not allocate a unique order number")
	}

	order, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	logCtx := s.logg.WithOrderID(s.logg.WithUserID(ctx, actor.UserID.String()), order.ID.String())
	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"order_number": order.OrderNumber,
		"total_price":  order.TotalPrice.StringFixed(2),
	}), "order created")
	return order, nil
}

func (s *service) createOnce(ctx context.Context, actor auth.Actor, input CreateOrderInput) (uuid.UUID, error) {
	var orderID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		quote, err := s.pricing.Quote(ctx, tx, input.Items, input.CouponCode)
		if err != nil {
			return err
		}
		if quote.Coupon != nil {
			if err := s.coupons.WithTx(tx).IncrementUsage(ctx, quote.Coupon.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment coupon usage")
			}
		}

		now := s.now()
		order := &models.Order{
			ID:              uuid.New(),
			OrderNumber:     newOrderNumber(now),
			UserID:          actor.UserID,
			CustomerName:    firstNonEmpty(actor.Name, input.ShippingName),
			CustomerEmail:   actor.Email,
			ShippingName:    strings.TrimSpace(input.ShippingName),
			ShippingPhone:   strings.TrimSpace(input.ShippingPhone),
			ShippingAddress: strings.TrimSpace(input.ShippingAddress),
			ShippingCity:    strings.TrimSpace(input.ShippingCity),
			ShippingState:   input.ShippingState,
			ShippingZip:     input.ShippingZip,
			ShippingCountry: firstNonEmpty(strings.TrimSpace(input.ShippingCountry), "US"),
			Subtotal:        quote.Subtotal,
			DiscountAmount:  quote.DiscountAmount,
			TotalPrice:      quote.Total,
			Currency:        s.currency,
			Status:          enums.OrderStatusPending,
			Notes:           input.Notes,
			OrderDate:       now,
		}
		if quote.Coupon != nil {
			couponID := quote.Coupon.ID
			order.CouponID = &couponID
		}

		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err, orderNumberConstraint) {
				return err
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		items := make([]models.OrderItem, 0, len(quote.Lines))
		for _, line := range quote.Lines {
			item := models.OrderItem{
				OrderID:       order.ID,
				ProductID:     line.ProductID,
				VariantID:     line.VariantID,
				ProductName:   line.Product.Name,
				ProductSlug:   line.Product.Slug,
				UnitPrice:     line.UnitPrice,
				OriginalPrice: line.BasePrice,
				Quantity:      line.Quantity,
				Discount:      line.LineDiscount(),
				TotalPrice:    line.LineTotal(),
			}
			if line.Variant != nil {
				label := line.Variant.Label()
				item.VariantInfo = &label
			}
			items = append(items, item)

			if _, err := s.inventory.Decrement(ctx, tx, inventory.Change{
				ProductID:   line.ProductID,
				VariantID:   line.VariantID,
				Quantity:    line.Quantity,
				Reason:      "Order placement",
				ReferenceID: &order.ID,
				UserID:      actor.UserIDPtr(),
			}); err != nil {
				return err
			}
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		if err := repo.AddTracking(ctx, &models.OrderTracking{
			OrderID:   order.ID,
			Status:    enums.OrderStatusPending,
			Notes:     "Order created",
			CreatedBy: actor.UserIDPtr(),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order tracking")
		}

		orderID = order.ID
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: outbox.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				TotalPrice:  order.TotalPrice,
				Currency:    order.Currency,
				ItemCount:   len(items),
				CouponID:    order.CouponID,
			},
		})
	})
	return orderID, err
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if !canView(actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) GetByNumber(ctx context.Context, actor auth.Actor, orderNumber string) (*models.Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.repo.FindDetailByNumber(ctx, orderNumber)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if !canView(actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// List returns a cursor page of orders. Customers only ever see their own.
func (s *service) List(ctx context.Context, actor auth.Actor, params ListParams) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter := ListFilter{
		Status:        params.Status,
		CustomerEmail: strings.TrimSpace(params.CustomerEmail),
		SearchTerm:    strings.TrimSpace(params.SearchTerm),
		From:          params.From,
		To:            params.To,
		MinAmount:     params.MinAmount,
		MaxAmount:     params.MaxAmount,
		Limit:         pagination.LimitWithBuffer(params.Limit),
	}
	if !actor.IsAdmin() {
		userID := actor.UserID
		filter.UserID = &userID
	}
	if cursor != nil {
		filter.After = &cursor.CreatedAt
		filter.AfterID = &cursor.ID
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &page, nil
}

// UpdateStatus is the operator override: any known status is reachable.
func (s *service) UpdateStatus(ctx context.Context, actor auth.Actor, id uuid.UUID, status enums.OrderStatus, notes *string) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	note := fmt.Sprintf("Order status changed to %s", status)
	if notes != nil && strings.TrimSpace(*notes) != "" {
		note = strings.TrimSpace(*notes)
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.repo.WithTx(tx).LockByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "load order")
		}
		return s.TransitionTx(ctx, tx, order, status, note, actor.UserIDPtr())
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Cancel restores stock for an unpaid order and closes its open payments.
func (s *service) Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = repo.LockByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "load order")
		}
		if !actor.IsAdmin() && order.UserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		paid, err := repo.HasCompletedPayment(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payments")
		}
		if paid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "Order cannot be cancelled because payment has been completed. Please request a refund instead.")
		}
		if !order.Status.Cancellable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("Order cannot be cancelled in %s status", order.Status))
		}
		return s.cancelTx(ctx, tx, order, "Order cancelled", "Order cancelled", actor.UserIDPtr())
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order cancelled")
	return order, nil
}

func (s *service) cancelTx(ctx context.Context, tx *gorm.DB, order *models.Order, reason, note string, actor *uuid.UUID) error {
	if err := s.ReleaseStockTx(ctx, tx, order, reason, actor); err != nil {
		return err
	}
	if err := s.TransitionTx(ctx, tx, order, enums.OrderStatusCancelled, note, actor); err != nil {
		return err
	}
	if _, err := s.repo.WithTx(tx).CancelOpenPayments(ctx, order.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel open payments")
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRefFromID(actor),
		Data: outbox.OrderCancelledEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Reason:      note,
			CancelledAt: s.now(),
		},
	})
}

// TransitionTx persists status and appends the matching tracking row.
func (s *service) TransitionTx(ctx context.Context, tx *gorm.DB, order *models.Order, status enums.OrderStatus, notes string, actor *uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := s.repo.WithTx(tx)
	if err := repo.UpdateStatus(ctx, order.ID, status); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if err := repo.AddTracking(ctx, &models.OrderTracking{
		OrderID:   order.ID,
		Status:    status,
		Notes:     notes,
		CreatedBy: actor,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order tracking")
	}
	order.Status = status
	return nil
}

// ReleaseStockTx returns every item's quantity to its product or variant,
// minus whatever approved returns of the order already put back.
func (s *service) ReleaseStockTx(ctx context.Context, tx *gorm.DB, order *models.Order, reason string, actor *uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := s.repo.WithTx(tx)
	items, err := repo.FindItems(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	restocked, err := repo.RestockedByReturns(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load returned quantities")
	}
	for _, item := range items {
		quantity := item.Quantity - restocked[item.ID]
		if quantity <= 0 {
			continue
		}
		if _, err := s.inventory.Restore(ctx, tx, inventory.Change{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			Quantity:    quantity,
			Reason:      reason,
			ReferenceID: &order.ID,
			UserID:      actor,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ReserveStockTx takes every item's quantity out of stock again. It runs in a
// savepoint so a shortage on any line leaves all counters untouched.
func (s *service) ReserveStockTx(ctx context.Context, tx *gorm.DB, order *models.Order, reason string, actor *uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	items, err := s.repo.WithTx(tx).FindItems(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	return tx.Transaction(func(inner *gorm.DB) error {
		for _, item := range items {
			if _, err := s.inventory.Decrement(ctx, inner, inventory.Change{
				ProductID:   item.ProductID,
				VariantID:   item.VariantID,
				Quantity:    item.Quantity,
				Reason:      reason,
				ReferenceID: &order.ID,
				UserID:      actor,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) Statistics(ctx context.Context, actor auth.Actor) (*Statistics, error) {
	var userID *uuid.UUID
	if !actor.IsAdmin() {
		id := actor.UserID
		userID = &id
	}

	var (
		counts  map[enums.OrderStatus]int64
		revenue decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.repo.CountByStatus(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		revenue, err = s.repo.Revenue(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate orders")
	}

	stats := &Statistics{
		PendingOrders:    counts[enums.OrderStatusPending],
		ProcessingOrders: counts[enums.OrderStatusProcessing],
		PaidOrders:       counts[enums.OrderStatusPaid],
		ShippedOrders:    counts[enums.OrderStatusShipped],
		DeliveredOrders:  counts[enums.OrderStatusDelivered],
		CancelledOrders:  counts[enums.OrderStatusCancelled],
		RefundedOrders:   counts[enums.OrderStatusRefunded],
		TotalRevenue:     revenue.Round(2),
	}
	for _, count := range counts {
		stats.TotalOrders += count
	}
	return stats, nil
}

// ExpireStale cancels PENDING orders placed before cutoff that never received a
// completed payment. Each order is handled in its own transaction; failures are
// collected and the rest still run.
func (s *service) ExpireStale(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	candidates, err := s.repo.FindStalePending(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find stale orders")
	}

	expired := 0
	var errs error
	for _, candidate := range candidates {
		id := candidate.ID
		var skipped bool
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			order, err := repo.LockByID(ctx, id)
			if err != nil {
				return notFoundOr(err, "load order")
			}
			if order.Status != enums.OrderStatusPending {
				skipped = true
				return nil
			}
			paid, err := repo.HasCompletedPayment(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payments")
			}
			if paid {
				skipped = true
				return nil
			}
			return s.cancelTx(ctx, tx, order, "Order expired", "Order expired: payment not received", nil)
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", id, err))
			continue
		}
		if !skipped {
			expired++
		}
	}
	if expired > 0 {
		s.logg.Info(s.logg.WithField(ctx, "expired", expired), "stale orders expired")
	}
	return expired, errs
}

func validateCreateInput(input CreateOrderInput) error {
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	missing := make([]string, 0)
	if strings.TrimSpace(input.ShippingName) == "" {
		missing = append(missing, "shippingName")
	}
	if strings.TrimSpace(input.ShippingPhone) == "" {
		missing = append(missing, "shippingPhone")
	}
	if strings.TrimSpace(input.ShippingAddress) == "" {
		missing = append(missing, "shippingAddress")
	}
	if strings.TrimSpace(input.ShippingCity) == "" {
		missing = append(missing, "shippingCity")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping details are incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
	}
	return nil
}

// newOrderNumber renders ORD-<last 8 digits of unix ms>-<3 random digits>.
func newOrderNumber(now time.Time) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 8 {
		ms = ms[len(ms)-8:]
	}
	return fmt.Sprintf("ORD-%s-%03d", ms, rand.IntN(1000))
}

func canView(actor auth.Actor, order *models.Order) bool {
	return actor.IsAdmin() || order.UserID == actor.UserID
}

func notFoundOr(err error, action string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func actorRef(actor auth.Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
}

func actorRefFromID(id *uuid.UUID) *outbox.ActorRef {
	if id == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: *id}
}
