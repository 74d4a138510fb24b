package shipping

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists shipments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, shipment *models.Shipping) error
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Shipping, error)
	LockByOrder(ctx context.Context, orderID uuid.UUID) (*models.Shipping, error)
	FindByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Shipping, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a shipping repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, shipment *models.Shipping) error {
	return r.db.WithContext(ctx).Create(shipment).Error
}

func (r *repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Shipping, error) {
	var shipment models.Shipping
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&shipment).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *repository) LockByOrder(ctx context.Context, orderID uuid.UUID) (*models.Shipping, error) {
	var shipment models.Shipping
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		First(&shipment).Error
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *repository) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Shipping, error) {
	var shipment models.Shipping
	if err := r.db.WithContext(ctx).Where("tracking_number = ?", trackingNumber).First(&shipment).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Model(&models.Shipping{}).
		Where("id = ?", id).
		Updates(updates).Error
}
