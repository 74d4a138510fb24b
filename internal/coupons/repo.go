package coupons

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists coupons.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, coupon *models.Coupon) error
	Save(ctx context.Context, coupon *models.Coupon) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	LockByCode(ctx context.Context, code string) (*models.Coupon, error)
	CodeTaken(ctx context.Context, code string, excludeID *uuid.UUID) (bool, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) error
	CountOrdersUsing(ctx context.Context, id uuid.UUID) (int64, error)
	List(ctx context.Context, filter ListFilter) ([]models.Coupon, error)
}

// ListFilter narrows admin coupon listings.
type ListFilter struct {
	IsActive   *bool
	ValidAt    *time.Time
	SearchTerm string
	Limit      int
	After      *time.Time
	AfterID    *uuid.UUID
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a coupon repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

// Save writes every editable column. used_count is owned by IncrementUsage.
func (r *repository) Save(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Omit("used_count", "created_at").Save(coupon).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Coupon{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).Where("code = ?", NormalizeCode(code)).First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

// LockByCode reads a coupon with a row lock so usage checks and the increment see the same count.
func (r *repository) LockByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", NormalizeCode(code)).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) CodeTaken(ctx context.Context, code string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("code = ?", NormalizeCode(code))
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"used_count": gorm.Expr("used_count + 1"),
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repository) CountOrdersUsing(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("coupon_id = ?", id).
		Count(&count).Error
	return count, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Coupon, error) {
	query := r.db.WithContext(ctx).Model(&models.Coupon{})
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.ValidAt != nil {
		query = query.
			Where("is_active = ?", true).
			Where("valid_from <= ?", *filter.ValidAt).
			Where("valid_until IS NULL OR valid_until >= ?", *filter.ValidAt)
	}
	if filter.SearchTerm != "" {
		like := "%" + filter.SearchTerm + "%"
		query = query.Where("code LIKE ? OR description LIKE ?", NormalizeCode(like), like)
	}
	if filter.After != nil && filter.AfterID != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", *filter.After, *filter.After, *filter.AfterID)
	}
	var rows []models.Coupon
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(filter.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
