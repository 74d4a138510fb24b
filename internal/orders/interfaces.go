package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Repository defines persistence operations for orders and their tracking history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	AddTracking(ctx context.Context, entry *models.OrderTracking) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindDetail(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindDetailByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	FindItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	HasCompletedPayment(ctx context.Context, orderID uuid.UUID) (bool, error)
	RestockedByReturns(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]int, error)
	CancelOpenPayments(ctx context.Context, orderID uuid.UUID) (int64, error)
	List(ctx context.Context, filter ListFilter) ([]models.Order, error)
	CountByStatus(ctx context.Context, userID *uuid.UUID) (map[enums.OrderStatus]int64, error)
	Revenue(ctx context.Context, userID *uuid.UUID) (decimal.Decimal, error)
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

// Service is the order lifecycle surface used by controllers and jobs.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Order, error)
	GetByNumber(ctx context.Context, actor auth.Actor, orderNumber string) (*models.Order, error)
	List(ctx context.Context, actor auth.Actor, params ListParams) (*OrderList, error)
	UpdateStatus(ctx context.Context, actor auth.Actor, id uuid.UUID, status enums.OrderStatus, notes *string) (*models.Order, error)
	Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Order, error)
	Statistics(ctx context.Context, actor auth.Actor) (*Statistics, error)
	ExpireStale(ctx context.Context, cutoff time.Time, limit int) (int, error)
	Lifecycle
}

// Lifecycle applies order transitions inside a caller-owned transaction. Payment
// reconciliation, refunds and shipping share it so every status change is tracked
// the same way.
type Lifecycle interface {
	TransitionTx(ctx context.Context, tx *gorm.DB, order *models.Order, status enums.OrderStatus, notes string, actor *uuid.UUID) error
	ReleaseStockTx(ctx context.Context, tx *gorm.DB, order *models.Order, reason string, actor *uuid.UUID) error
	ReserveStockTx(ctx context.Context, tx *gorm.DB, order *models.Order, reason string, actor *uuid.UUID) error
}
