package returns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/orders"
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
	returnConstraint        = "return_requests_order_user_key"
	defaultReturnWindowDays = 30
)

var conditionFactors = map[enums.ItemCondition]decimal.Decimal{
	enums.ItemConditionUnopened:  decimal.NewFromInt(1),
	enums.ItemConditionLikeNew:   decimal.NewFromInt(1),
	enums.ItemConditionDefective: decimal.NewFromInt(1),
	enums.ItemConditionUsed:      decimal.RequireFromString("0.5"),
	enums.ItemConditionDamaged:   decimal.RequireFromString("0.3"),
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repo              Repository
	Orders            orders.Repository
	Inventory         inventory.Stocker
	TransactionRunner txRunner
	Outbox            outbox.Emitter
	Logger            *logger.Logger
	ReturnWindowDays  int
	Now               func() time.Time
}

type service struct {
	repo      Repository
	orders    orders.Repository
	inventory inventory.Stocker
	tx        txRunner
	outbox    outbox.Emitter
	logg      *logger.Logger
	window    time.Duration
	now       func() time.Time
}

// NewService builds the return workflow service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "returns repository required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Inventory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory manager required")
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
	days := params.ReturnWindowDays
	if days <= 0 {
		days = defaultReturnWindowDays
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:      params.Repo,
		orders:    params.Orders,
		inventory: params.Inventory,
		tx:        params.TransactionRunner,
		outbox:    params.Outbox,
		logg:      params.Logger,
		window:    time.Duration(days) * 24 * time.Hour,
		now:       now,
	}, nil
}

// Create opens the single return a customer may file for a delivered order.
// Each item is refunded at its unit price scaled by the declared condition.
func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateReturnInput) (*models.ReturnRequest, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	var requestID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		order, err := orderRepo.FindByID(ctx, input.OrderID)
		if err != nil {
			return notFoundOr(err, "order not found", "load order")
		}
		if order.UserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status != enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "Only delivered orders can be returned")
		}
		if s.now().Sub(order.OrderDate) > s.window {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "Return window has expired for this order").
				WithDetails(map[string]any{"orderDate": order.OrderDate})
		}

		repo := s.repo.WithTx(tx)
		exists, err := repo.ExistsForOrder(ctx, order.ID, actor.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing returns")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, "A return request already exists for this order")
		}

		purchased, err := orderRepo.FindItems(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		items, total, err := buildItems(input.Items, purchased)
		if err != nil {
			return err
		}

		request := &models.ReturnRequest{
			ID:           uuid.New(),
			OrderID:      order.ID,
			UserID:       actor.UserID,
			Status:       enums.ReturnStatusRequested,
			Reason:       input.Reason,
			Description:  trimmed(input.Description),
			RefundAmount: total,
			Items:        items,
		}
		if err := repo.Create(ctx, request); err != nil {
			if db.IsUniqueViolation(err, returnConstraint) {
				return pkgerrors.New(pkgerrors.CodeConflict, "A return request already exists for this order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return request")
		}
		requestID = request.ID

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnRequested,
			AggregateType: enums.AggregateReturn,
			AggregateID:   request.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: outbox.ReturnRequestedEvent{
				ReturnID:     request.ID,
				OrderID:      order.ID,
				RefundAmount: total,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	request, err := s.repo.FindDetail(ctx, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload return request")
	}
	s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, request.OrderID.String()), map[string]any{
		"return_id":     request.ID.String(),
		"refund_amount": request.RefundAmount.StringFixed(2),
	}), "return requested")
	return request, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.ReturnRequest, error) {
	request, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "return request not found", "load return request")
	}
	if !actor.IsAdmin() && request.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
	}
	return request, nil
}

func (s *service) ListMine(ctx context.Context, actor auth.Actor, params ListParams) (*ReturnList, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	userID := actor.UserID
	return s.list(ctx, &userID, params)
}

func (s *service) List(ctx context.Context, params ListParams) (*ReturnList, error) {
	return s.list(ctx, nil, params)
}

func (s *service) list(ctx context.Context, userID *uuid.UUID, params ListParams) (*ReturnList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter := ListFilter{
		UserID:  userID,
		OrderID: params.OrderID,
		Status:  params.Status,
		Limit:   pagination.LimitWithBuffer(params.Limit),
	}
	if cursor != nil {
		filter.After = &cursor.CreatedAt
		filter.AfterID = &cursor.ID
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list return requests")
	}
	page := pagination.Trim(rows, params.Limit, func(r models.ReturnRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	return &page, nil
}

// UpdateStatus is the operator review step. Approval puts every returned unit
// back on the shelf in the same transaction.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, input UpdateReturnInput, admin auth.Actor) (*models.ReturnRequest, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid return status")
	}
	if input.RefundAmount != nil && input.RefundAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refundAmount must not be negative")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := repo.LockByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "return request not found", "load return request")
		}
		if input.Status != request.Status && !request.Status.CanTransitionTo(input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("Return cannot move from %s to %s", request.Status, input.Status))
		}
		order, err := s.orders.WithTx(tx).FindByID(ctx, request.OrderID)
		if err != nil {
			return notFoundOr(err, "order not found", "load order")
		}

		now := s.now()
		updates := map[string]any{"status": input.Status}
		if notes := trimmed(input.AdminNotes); notes != nil {
			updates["admin_notes"] = *notes
		}
		if input.RefundAmount != nil {
			if input.RefundAmount.GreaterThan(order.TotalPrice) {
				return pkgerrors.New(pkgerrors.CodeValidation, "refundAmount exceeds the order total")
			}
			updates["refund_amount"] = input.RefundAmount.Round(2)
		}

		approving := input.Status == enums.ReturnStatusApproved && request.Status != enums.ReturnStatusApproved
		switch {
		case approving:
			updates["approved_at"] = now
			updates["approved_by"] = admin.UserID
		case input.Status == enums.ReturnStatusRefundProcessed && request.Status != enums.ReturnStatusRefundProcessed:
			updates["processed_at"] = now
		}
		if err := repo.Update(ctx, request.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update return request")
		}
		if !approving {
			return nil
		}

		if err := s.restoreStockTx(ctx, tx, request, order, admin.UserIDPtr()); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnApproved,
			AggregateType: enums.AggregateReturn,
			AggregateID:   request.ID,
			Actor:         &outbox.ActorRef{UserID: admin.UserID, Role: string(admin.Role)},
			Data: outbox.ReturnApprovedEvent{
				ReturnID:   request.ID,
				OrderID:    order.ID,
				ApprovedBy: admin.UserID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	request, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload return request")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"return_id": request.ID.String(),
		"status":    string(request.Status),
	}), "return status updated")
	return request, nil
}

func (s *service) restoreStockTx(ctx context.Context, tx *gorm.DB, request *models.ReturnRequest, order *models.Order, actor *uuid.UUID) error {
	items, err := s.repo.WithTx(tx).FindItems(ctx, request.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return items")
	}
	reason := fmt.Sprintf("Return approved for order #%s", order.OrderNumber)
	returnID := request.ID
	for _, item := range items {
		notes := fmt.Sprintf("Item condition: %s", item.Condition)
		if _, err := s.inventory.Restore(ctx, tx, inventory.Change{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			Quantity:    item.Quantity,
			Reason:      reason,
			ReferenceID: &returnID,
			Notes:       &notes,
			UserID:      actor,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Cancel withdraws a return that has not been reviewed yet.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, actor auth.Actor) (*models.ReturnRequest, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := repo.LockByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "return request not found", "load return request")
		}
		if request.UserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "Only the requester can cancel this return")
		}
		if request.Status != enums.ReturnStatusRequested {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "Only pending return requests can be cancelled")
		}
		return repo.Update(ctx, request.ID, map[string]any{
			"status":      enums.ReturnStatusRejected,
			"admin_notes": fmt.Sprintf("Cancelled by user on %s", s.now().Format(time.RFC3339)),
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel return request")
	}
	return s.repo.FindDetail(ctx, id)
}

// buildItems matches requested lines against the purchased ones and prices them.
func buildItems(requested []ReturnItemInput, purchased []models.OrderItem) ([]models.ReturnItem, decimal.Decimal, error) {
	byID := make(map[uuid.UUID]models.OrderItem, len(purchased))
	for _, item := range purchased {
		byID[item.ID] = item
	}

	items := make([]models.ReturnItem, 0, len(requested))
	total := decimal.Zero
	seen := make(map[uuid.UUID]struct{}, len(requested))
	for _, line := range requested {
		if _, dup := seen[line.OrderItemID]; dup {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "each order item may appear once").
				WithDetails(map[string]any{"orderItemId": line.OrderItemID})
		}
		seen[line.OrderItemID] = struct{}{}

		source, ok := byID[line.OrderItemID]
		if !ok {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "order item does not belong to this order").
				WithDetails(map[string]any{"orderItemId": line.OrderItemID})
		}
		if line.Quantity > source.Quantity {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "return quantity exceeds purchased quantity").
				WithDetails(map[string]any{
					"orderItemId": line.OrderItemID,
					"purchased":   source.Quantity,
					"requested":   line.Quantity,
				})
		}
		refund := RefundFor(source.UnitPrice, line.Quantity, line.Condition)
		items = append(items, models.ReturnItem{
			OrderItemID:  source.ID,
			ProductID:    source.ProductID,
			VariantID:    source.VariantID,
			Quantity:     line.Quantity,
			Condition:    line.Condition,
			RefundAmount: refund,
		})
		total = total.Add(refund)
	}
	return items, total, nil
}

// RefundFor prices one returned line: unit price times quantity times the
// condition factor, rounded to cents.
func RefundFor(unitPrice decimal.Decimal, quantity int, condition enums.ItemCondition) decimal.Decimal {
	factor, ok := conditionFactors[condition]
	if !ok {
		factor = decimal.Zero
	}
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Mul(factor).Round(2)
}

func validateCreateInput(input CreateReturnInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "orderId is required")
	}
	if !input.Reason.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid return reason")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	for _, item := range input.Items {
		if item.OrderItemID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "orderItemId is required")
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if !item.Condition.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid item condition")
		}
	}
	return nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
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
