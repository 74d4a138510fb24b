package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

func newTestManager(t *testing.T) (*Manager, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	mgr, err := NewManager(ServiceParams{
		Repo:              NewRepository(client.DB()),
		TransactionRunner: client,
		Logger:            logger.Nop(),
	})
	require.NoError(t, err)
	return mgr, client
}

func TestDecrementWritesLog(t *testing.T) {
	mgr, client := newTestManager(t)
	ctx := context.Background()
	product := dbtest.MustProduct(t, client.DB(), "10.00", "0", 5)
	orderID := uuid.New()

	var entry *models.ProductInventory
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		entry, err = mgr.Decrement(ctx, tx, Change{
			ProductID:   product.ID,
			Quantity:    2,
			Reason:      "Order placement",
			ReferenceID: &orderID,
		})
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, enums.InventoryChangeStockOut, entry.ChangeType)
	assert.Equal(t, 5, entry.PreviousStock)
	assert.Equal(t, 3, entry.NewStock)
	assert.Equal(t, -2, entry.ChangeQuantity)
	assert.Equal(t, 3, dbtest.ReloadProduct(t, client.DB(), product.ID).Stock)

	var logged models.ProductInventory
	require.NoError(t, client.DB().First(&logged, "product_id = ?", product.ID).Error)
	require.NotNil(t, logged.ReferenceID)
	assert.Equal(t, orderID, *logged.ReferenceID)
}

func TestDecrementInsufficientStockRollsBack(t *testing.T) {
	mgr, client := newTestManager(t)
	ctx := context.Background()
	product := dbtest.MustProduct(t, client.DB(), "10.00", "0", 1)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := mgr.Decrement(ctx, tx, Change{ProductID: product.ID, Quantity: 2, Reason: "Order placement"})
		return err
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
	assert.Equal(t, 1, dbtest.ReloadProduct(t, client.DB(), product.ID).Stock)

	var count int64
	require.NoError(t, client.DB().Model(&models.ProductInventory{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestVariantStockIsIndependent(t *testing.T) {
	mgr, client := newTestManager(t)
	ctx := context.Background()
	product := dbtest.MustProduct(t, client.DB(), "10.00", "0", 7)
	variant := dbtest.MustVariant(t, client.DB(), product.ID, "", 2)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := mgr.Decrement(ctx, tx, Change{ProductID: product.ID, VariantID: &variant.ID, Quantity: 2, Reason: "Order placement"})
		return err
	})
	require.NoError(t, err)

	var reloaded models.ProductVariant
	require.NoError(t, client.DB().First(&reloaded, "id = ?", variant.ID).Error)
	assert.Equal(t, 0, reloaded.Stock)
	assert.Equal(t, 7, dbtest.ReloadProduct(t, client.DB(), product.ID).Stock)
}

func TestRestoreLogsReturn(t *testing.T) {
	mgr, client := newTestManager(t)
	ctx := context.Background()
	product := dbtest.MustProduct(t, client.DB(), "10.00", "0", 4)

	var entry *models.ProductInventory
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		entry, err = mgr.Restore(ctx, tx, Change{ProductID: product.ID, Quantity: 3, Reason: "Order cancelled"})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, enums.InventoryChangeReturn, entry.ChangeType)
	assert.Equal(t, 4, entry.PreviousStock)
	assert.Equal(t, 7, entry.NewStock)
	assert.Equal(t, 3, entry.ChangeQuantity)
}

func TestMissingProductIsNotFound(t *testing.T) {
	mgr, client := newTestManager(t)
	ctx := context.Background()

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := mgr.Decrement(ctx, tx, Change{ProductID: uuid.New(), Quantity: 1})
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAdjust(t *testing.T) {
	mgr, client := newTestManager(t)
	ctx := context.Background()
	product := dbtest.MustProduct(t, client.DB(), "10.00", "0", 4)
	admin := uuid.New()

	target := 10
	entry, err := mgr.Adjust(ctx, Adjustment{ProductID: product.ID, NewStock: &target, UserID: admin})
	require.NoError(t, err)
	assert.Equal(t, enums.InventoryChangeAdjustment, entry.ChangeType)
	assert.Equal(t, 4, entry.PreviousStock)
	assert.Equal(t, 10, entry.NewStock)
	assert.Equal(t, 6, entry.ChangeQuantity)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, admin, *entry.UserID)

	delta := -11
	_, err = mgr.Adjust(ctx, Adjustment{ProductID: product.ID, Delta: &delta, UserID: admin})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	_, err = mgr.Adjust(ctx, Adjustment{ProductID: product.ID, UserID: admin})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, 10, dbtest.ReloadProduct(t, client.DB(), product.ID).Stock)
}

func TestHistoryNewestFirst(t *testing.T) {
	mgr, client := newTestManager(t)
	ctx := context.Background()
	product := dbtest.MustProduct(t, client.DB(), "10.00", "0", 10)

	for i := 0; i < 3; i++ {
		err := client.WithTx(ctx, func(tx *gorm.DB) error {
			_, err := mgr.Decrement(ctx, tx, Change{ProductID: product.ID, Quantity: 1, Reason: "Order placement"})
			return err
		})
		require.NoError(t, err)
	}

	page, err := mgr.History(ctx, product.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.NotEmpty(t, page.NextCursor)
	assert.Equal(t, 7, page.Items[0].NewStock)

	next, err := mgr.History(ctx, product.ID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, 9, next.Items[0].NewStock)
	assert.Empty(t, next.NextCursor)

	_, err = mgr.History(ctx, uuid.New(), pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
