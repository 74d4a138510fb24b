package shipping

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

const (
	orderConstraint    = "shipping_order_id_key"
	trackingConstraint = "shipping_tracking_number_key"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repo              Repository
	Orders            orders.Repository
	Lifecycle         orders.Lifecycle
	TransactionRunner txRunner
	Outbox            outbox.Emitter
	Logger            *logger.Logger
	Now               func() time.Time
}

// Service records shipments and drives the SHIPPED and DELIVERED transitions.
type Service struct {
	repo      Repository
	orders    orders.Repository
	lifecycle orders.Lifecycle
	tx        txRunner
	outbox    outbox.Emitter
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "shipping repository required")
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
		logg:      params.Logger,
		now:       now,
	}, nil
}

// Add records the single shipment of a paid order and marks it SHIPPED.
func (s *Service) Add(ctx context.Context, orderID uuid.UUID, input AddShippingInput, actor auth.Actor) (*models.Shipping, error) {
	carrier := strings.TrimSpace(input.Carrier)
	tracking := strings.TrimSpace(input.TrackingNumber)
	if carrier == "" || tracking == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "carrier and trackingNumber are required")
	}
	method := input.Method
	if method == "" {
		method = enums.ShippingMethodStandard
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping method")
	}
	if input.Cost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost must not be negative")
	}
	if input.EstimatedDays != nil && *input.EstimatedDays < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "estimatedDays must not be negative")
	}

	var shipment *models.Shipping
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.WithTx(tx).LockByID(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "order not found", "load order")
		}
		if order.Status != enums.OrderStatusPaid && order.Status != enums.OrderStatusProcessing {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("Order cannot be shipped in %s status", order.Status))
		}

		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByOrder(ctx, order.ID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "Shipping information already exists for this order")
		} else if !db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment")
		}

		shippedAt := s.now()
		if input.ShippedAt != nil {
			shippedAt = input.ShippedAt.UTC()
		}
		shipment = &models.Shipping{
			OrderID:        order.ID,
			Carrier:        carrier,
			TrackingNumber: tracking,
			Method:         method,
			Cost:           input.Cost.Round(2),
			EstimatedDays:  input.EstimatedDays,
			Notes:          trimmed(input.Notes),
			ShippedAt:      shippedAt,
		}
		if err := repo.Create(ctx, shipment); err != nil {
			return uniqueOr(err, "create shipment")
		}

		note := fmt.Sprintf("Order shipped via %s with tracking #%s", carrier, tracking)
		if err := s.lifecycle.TransitionTx(ctx, tx, order, enums.OrderStatusShipped, note, actor.UserIDPtr()); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderShipped,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: outbox.OrderShippedEvent{
				OrderID:        order.ID,
				Carrier:        carrier,
				TrackingNumber: tracking,
				ShippedAt:      shippedAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
		"carrier":         carrier,
		"tracking_number": tracking,
	}), "order shipped")
	return shipment, nil
}

// Update patches the shipment. The first DeliveredAt moves the order to DELIVERED.
func (s *Service) Update(ctx context.Context, orderID uuid.UUID, input UpdateShippingInput, actor auth.Actor) (*models.Shipping, error) {
	if input.EstimatedDays != nil && *input.EstimatedDays < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "estimatedDays must not be negative")
	}

	var delivered bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.WithTx(tx).LockByID(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "order not found", "load order")
		}
		repo := s.repo.WithTx(tx)
		shipment, err := repo.LockByOrder(ctx, order.ID)
		if err != nil {
			return notFoundOr(err, "shipping information not found", "load shipment")
		}

		updates := map[string]any{}
		if input.Carrier != nil {
			carrier := strings.TrimSpace(*input.Carrier)
			if carrier == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "carrier must not be empty")
			}
			updates["carrier"] = carrier
		}
		if input.TrackingNumber != nil {
			tracking := strings.TrimSpace(*input.TrackingNumber)
			if tracking == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "trackingNumber must not be empty")
			}
			updates["tracking_number"] = tracking
		}
		if input.EstimatedDays != nil {
			updates["estimated_days"] = *input.EstimatedDays
		}
		if input.Notes != nil {
			updates["notes"] = trimmed(input.Notes)
		}
		if input.DeliveredAt != nil && shipment.DeliveredAt == nil {
			if order.Status != enums.OrderStatusShipped {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("Order cannot be delivered in %s status", order.Status))
			}
			updates["delivered_at"] = input.DeliveredAt.UTC()
			delivered = true
		}
		if err := repo.Update(ctx, shipment.ID, updates); err != nil {
			return uniqueOr(err, "update shipment")
		}
		if !delivered {
			return nil
		}
		return s.lifecycle.TransitionTx(ctx, tx, order, enums.OrderStatusDelivered, "Order delivered successfully", actor.UserIDPtr())
	})
	if err != nil {
		return nil, err
	}
	if delivered {
		s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "order delivered")
	}
	shipment, err := s.repo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload shipment")
	}
	return shipment, nil
}

// Track looks a shipment up by its carrier tracking number.
func (s *Service) Track(ctx context.Context, trackingNumber string) (*Tracking, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number required")
	}
	shipment, err := s.repo.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, notFoundOr(err, "tracking number not found", "load shipment")
	}
	order, err := s.orders.FindByID(ctx, shipment.OrderID)
	if err != nil {
		return nil, notFoundOr(err, "order not found", "load order")
	}
	return &Tracking{
		Shipping:          *shipment,
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		OrderStatus:       order.Status,
		EstimatedDelivery: shipment.EstimatedDelivery(),
	}, nil
}

func uniqueOr(err error, action string) error {
	switch {
	case db.IsUniqueViolation(err, trackingConstraint):
		return pkgerrors.New(pkgerrors.CodeConflict, "Tracking number is already in use")
	case db.IsUniqueViolation(err, orderConstraint):
		return pkgerrors.New(pkgerrors.CodeConflict, "Shipping information already exists for this order")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
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

func actorRef(actor auth.Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
}
