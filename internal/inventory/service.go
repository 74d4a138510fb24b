package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Change describes one stock movement against a product or one of its variants.
type Change struct {
	ProductID   uuid.UUID
	VariantID   *uuid.UUID
	Quantity    int
	Reason      string
	ReferenceID *uuid.UUID
	Notes       *string
	UserID      *uuid.UUID
}

// Adjustment is a manual stock correction. Exactly one of NewStock or Delta is set.
type Adjustment struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	NewStock  *int
	Delta     *int
	Reason    string
	Notes     *string
	UserID    uuid.UUID
}

// Stocker is the surface order, payment and return flows use inside their own transactions.
type Stocker interface {
	Decrement(ctx context.Context, tx *gorm.DB, change Change) (*models.ProductInventory, error)
	Restore(ctx context.Context, tx *gorm.DB, change Change) (*models.ProductInventory, error)
}

type ServiceParams struct {
	Repo              *Repository
	TransactionRunner txRunner
	Logger            *logger.Logger
}

// Manager is the only writer of product and variant stock counters.
type Manager struct {
	repo     *Repository
	txRunner txRunner
	logg     *logger.Logger
}

func NewManager(params ServiceParams) (*Manager, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Manager{
		repo:     params.Repo,
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
	}, nil
}

// Decrement removes stock after checking availability under a row lock.
func (m *Manager) Decrement(ctx context.Context, tx *gorm.DB, change Change) (*models.ProductInventory, error) {
	if change.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return m.apply(ctx, tx, change, -change.Quantity, enums.InventoryChangeStockOut)
}

// Restore puts stock back, e.g. after a cancellation, refund or approved return.
func (m *Manager) Restore(ctx context.Context, tx *gorm.DB, change Change) (*models.ProductInventory, error) {
	if change.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return m.apply(ctx, tx, change, change.Quantity, enums.InventoryChangeReturn)
}

// Adjust applies a manual correction in its own transaction.
func (m *Manager) Adjust(ctx context.Context, adj Adjustment) (*models.ProductInventory, error) {
	if (adj.NewStock == nil) == (adj.Delta == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of newStock or delta is required")
	}
	if adj.NewStock != nil && *adj.NewStock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "newStock must not be negative")
	}
	if adj.Delta != nil && *adj.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must not be zero")
	}
	reason := strings.TrimSpace(adj.Reason)
	if reason == "" {
		reason = "Manual stock adjustment"
	}
	userID := adj.UserID

	var entry *models.ProductInventory
	err := m.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		current, err := m.lockedStock(ctx, tx, adj.ProductID, adj.VariantID)
		if err != nil {
			return err
		}
		var delta int
		if adj.Delta != nil {
			delta = *adj.Delta
		} else {
			delta = *adj.NewStock - current
		}
		if delta == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "stock already at requested level")
		}
		entry, err = m.write(ctx, tx, Change{
			ProductID: adj.ProductID,
			VariantID: adj.VariantID,
			Reason:    reason,
			Notes:     adj.Notes,
			UserID:    &userID,
		}, current, delta, enums.InventoryChangeAdjustment)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// History lists a product's inventory log, newest first.
func (m *Manager) History(ctx context.Context, productID uuid.UUID, params pagination.Params) (*pagination.Page[models.ProductInventory], error) {
	exists, err := m.repo.ProductExists(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	var rows []models.ProductInventory
	if cursor != nil {
		rows, err = m.repo.ListHistory(ctx, productID, pagination.LimitWithBuffer(params.Limit), &cursor.CreatedAt, &cursor.ID)
	} else {
		rows, err = m.repo.ListHistory(ctx, productID, pagination.LimitWithBuffer(params.Limit), nil, nil)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory history")
	}
	page := pagination.Trim(rows, params.Limit, func(row models.ProductInventory) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return &page, nil
}

func (m *Manager) apply(ctx context.Context, tx *gorm.DB, change Change, delta int, changeType enums.InventoryChangeType) (*models.ProductInventory, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	current, err := m.lockedStock(ctx, tx, change.ProductID, change.VariantID)
	if err != nil {
		return nil, err
	}
	return m.write(ctx, tx, change, current, delta, changeType)
}

func (m *Manager) lockedStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantID *uuid.UUID) (int, error) {
	repo := m.repo.WithTx(tx)
	if variantID != nil {
		variant, err := repo.LockVariant(ctx, productID, *variantID)
		if err != nil {
			if db.IsNotFound(err) {
				return 0, pkgerrors.New(pkgerrors.CodeNotFound, "product variant not found").
					WithDetails(map[string]any{"productId": productID, "variantId": *variantID})
			}
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock variant stock")
		}
		return variant.Stock, nil
	}
	product, err := repo.LockProduct(ctx, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"productId": productID})
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product stock")
	}
	return product.Stock, nil
}

func (m *Manager) write(ctx context.Context, tx *gorm.DB, change Change, current, delta int, changeType enums.InventoryChangeType) (*models.ProductInventory, error) {
	next := current + delta
	if next < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("insufficient stock: requested %d, available %d", -delta, current)).
			WithDetails(map[string]any{
				"productId": change.ProductID,
				"variantId": change.VariantID,
				"requested": -delta,
				"available": current,
			})
	}

	repo := m.repo.WithTx(tx)
	var err error
	if change.VariantID != nil {
		err = repo.SetVariantStock(ctx, *change.VariantID, next)
	} else {
		err = repo.SetProductStock(ctx, change.ProductID, next)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
	}

	entry := &models.ProductInventory{
		ProductID:      change.ProductID,
		VariantID:      change.VariantID,
		ChangeType:     changeType,
		PreviousStock:  current,
		NewStock:       next,
		ChangeQuantity: delta,
		Reason:         change.Reason,
		ReferenceID:    change.ReferenceID,
		Notes:          change.Notes,
		UserID:         change.UserID,
	}
	if err := repo.AppendLog(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write inventory log")
	}

	logCtx := m.logg.WithFields(ctx, map[string]any{
		"product_id":  change.ProductID.String(),
		"change_type": string(changeType),
		"delta":       delta,
		"new_stock":   next,
	})
	m.logg.Debug(logCtx, "stock updated")
	return entry, nil
}
