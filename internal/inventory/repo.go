package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists stock counters and the append-only inventory log.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// LockProduct reads a product with a row lock held until the transaction ends.
func (r *Repository) LockProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// LockVariant reads a variant of productID with a row lock.
func (r *Repository) LockVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND product_id = ?", variantID, productID).
		First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *Repository) SetProductStock(ctx context.Context, productID uuid.UUID, stock int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{"stock": stock, "updated_at": time.Now().UTC()}).Error
}

func (r *Repository) SetVariantStock(ctx context.Context, variantID uuid.UUID, stock int) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		Updates(map[string]any{"stock": stock, "updated_at": time.Now().UTC()}).Error
}

// AppendLog writes one inventory log row.
func (r *Repository) AppendLog(ctx context.Context, entry *models.ProductInventory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListHistory returns log rows for a product, newest first, starting after the cursor.
func (r *Repository) ListHistory(ctx context.Context, productID uuid.UUID, limit int, after *time.Time, afterID *uuid.UUID) ([]models.ProductInventory, error) {
	query := r.db.WithContext(ctx).
		Where("product_id = ?", productID)
	if after != nil && afterID != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", *after, *after, *afterID)
	}
	var rows []models.ProductInventory
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ProductExists reports whether the product row is present.
func (r *Repository) ProductExists(ctx context.Context, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Count(&count).Error
	return count > 0, err
}
