package returns

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

type fixture struct {
	svc    Service
	orders orders.Service
	client *db.Client
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	logg := logger.Nop()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	invRepo := inventory.NewRepository(client.DB())
	couponRepo := coupons.NewRepository(client.DB())
	stock, err := inventory.NewManager(inventory.ServiceParams{Repo: invRepo, TransactionRunner: client, Logger: logg})
	require.NoError(t, err)
	engine, err := pricing.NewEngine(pricing.ServiceParams{Inventory: invRepo, Coupons: couponRepo, Logger: logg})
	require.NoError(t, err)
	emitter := outbox.NewService(outbox.NewRepository(client.DB()), logg)
	orderRepo := orders.NewRepository(client.DB())

	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:              orderRepo,
		TransactionRunner: client,
		Pricing:           engine,
		Coupons:           couponRepo,
		Inventory:         stock,
		Outbox:            emitter,
		Logger:            logg,
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:              NewRepository(client.DB()),
		Orders:            orderRepo,
		Inventory:         stock,
		TransactionRunner: client,
		Outbox:            emitter,
		Logger:            logg,
		Now:               func() time.Time { return now },
	})
	require.NoError(t, err)
	return &fixture{svc: svc, orders: orderSvc, client: client, now: now}
}

func customer() auth.Actor {
	return auth.Actor{UserID: uuid.New(), Email: "ada@example.com", Name: "Ada", Role: enums.UserRoleCustomer}
}

func admin() auth.Actor {
	return auth.Actor{UserID: uuid.New(), Email: "ops@example.com", Name: "Ops", Role: enums.UserRoleAdmin}
}

// deliveredOrder places an order for quantity units at 10.00 and marks it
// delivered, placed daysAgo days before the fixture clock.
func (f *fixture) deliveredOrder(t *testing.T, buyer auth.Actor, quantity, daysAgo int) (*models.Order, *models.Product) {
	t.Helper()
	product := dbtest.MustProduct(t, f.client.DB(), "10.00", "0", 10)
	order, err := f.orders.Create(context.Background(), buyer, orders.CreateOrderInput{
		ShippingName:    "Ada Lovelace",
		ShippingPhone:   "+1 555 0100",
		ShippingAddress: "12 Analytical Row",
		ShippingCity:    "London",
		Items:           []pricing.Line{{ProductID: product.ID, Quantity: quantity}},
	})
	require.NoError(t, err)

	orderDate := f.now.Add(-time.Duration(daysAgo) * 24 * time.Hour)
	require.NoError(t, f.client.DB().Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]any{
		"status":     enums.OrderStatusDelivered,
		"order_date": orderDate,
	}).Error)
	order.Status = enums.OrderStatusDelivered
	order.OrderDate = orderDate
	return order, product
}

func returnInput(order *models.Order, quantity int, condition enums.ItemCondition) CreateReturnInput {
	return CreateReturnInput{
		OrderID: order.ID,
		Reason:  enums.ReturnReasonDefective,
		Items: []ReturnItemInput{{
			OrderItemID: order.Items[0].ID,
			Quantity:    quantity,
			Condition:   condition,
		}},
	}
}

func TestRefundForConditionFactors(t *testing.T) {
	price := decimal.RequireFromString("19.99")
	cases := map[enums.ItemCondition]string{
		enums.ItemConditionUnopened:  "39.98",
		enums.ItemConditionLikeNew:   "39.98",
		enums.ItemConditionDefective: "39.98",
		enums.ItemConditionUsed:      "19.99",
		enums.ItemConditionDamaged:   "11.99",
	}
	for condition, want := range cases {
		t.Run(string(condition), func(t *testing.T) {
			assert.Equal(t, want, RefundFor(price, 2, condition).StringFixed(2))
		})
	}
}

func TestCreateReturnWithinWindow(t *testing.T) {
	f := newFixture(t)
	buyer := customer()
	order, _ := f.deliveredOrder(t, buyer, 2, 29)

	request, err := f.svc.Create(context.Background(), buyer, returnInput(order, 2, enums.ItemConditionUsed))
	require.NoError(t, err)

	assert.Equal(t, enums.ReturnStatusRequested, request.Status)
	assert.Equal(t, "10.00", request.RefundAmount.StringFixed(2))
	require.Len(t, request.Items, 1)
	assert.Equal(t, enums.ItemConditionUsed, request.Items[0].Condition)
	assert.Equal(t, order.Items[0].ProductID, request.Items[0].ProductID)

	var events []models.OutboxEvent
	require.NoError(t, f.client.DB().Where("aggregate_id = ?", request.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventReturnRequested, events[0].EventType)
}

func TestCreateReturnOutsideWindow(t *testing.T) {
	f := newFixture(t)
	buyer := customer()
	order, _ := f.deliveredOrder(t, buyer, 1, 31)

	_, err := f.svc.Create(context.Background(), buyer, returnInput(order, 1, enums.ItemConditionUnopened))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestCreateReturnRequiresDeliveredOrder(t *testing.T) {
	f := newFixture(t)
	buyer := customer()
	order, _ := f.deliveredOrder(t, buyer, 1, 1)
	require.NoError(t, f.client.DB().Model(&models.Order{}).Where("id = ?", order.ID).
		Update("status", enums.OrderStatusShipped).Error)

	_, err := f.svc.Create(context.Background(), buyer, returnInput(order, 1, enums.ItemConditionUnopened))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestCreateReturnHidesForeignOrders(t *testing.T) {
	f := newFixture(t)
	order, _ := f.deliveredOrder(t, customer(), 1, 1)

	_, err := f.svc.Create(context.Background(), customer(), returnInput(order, 1, enums.ItemConditionUnopened))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateReturnRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	buyer := customer()
	order, _ := f.deliveredOrder(t, buyer, 2, 3)

	_, err := f.svc.Create(context.Background(), buyer, returnInput(order, 1, enums.ItemConditionUnopened))
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), buyer, returnInput(order, 1, enums.ItemConditionUnopened))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestCreateReturnRejectsExcessQuantity(t *testing.T) {
	f := newFixture(t)
	buyer := customer()
	order, _ := f.deliveredOrder(t, buyer, 2, 3)

	_, err := f.svc.Create(context.Background(), buyer, returnInput(order, 3, enums.ItemConditionUnopened))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	var count int64
	require.NoError(t, f.client.DB().Model(&models.ReturnRequest{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateReturnRejectsUnknownItem(t *testing.T) {
	f := newFixture(t)
	buyer := customer()
	order, _ := f.deliveredOrder(t, buyer, 1, 3)
	input := returnInput(order, 1, enums.ItemConditionUnopened)
	input.Items[0].OrderItemID = uuid.New()

	_, err := f.svc.Create(context.Background(), buyer, input)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestApproveReturnRestoresStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := customer()
	ops := admin()
	order, product := f.deliveredOrder(t, buyer, 2, 5)
	require.Equal(t, 8, dbtest.ReloadProduct(t, f.client.DB(), product.ID).Stock)

	request, err := f.svc.Create(ctx, buyer, returnInput(order, 2, enums.ItemConditionDamaged))
	require.NoError(t, err)

	approved, err := f.svc.UpdateStatus(ctx, request.ID, UpdateReturnInput{Status: enums.ReturnStatusApproved}, ops)
	require.NoError(t, err)
	assert.Equal(t, enums.ReturnStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, ops.UserID, *approved.ApprovedBy)

	assert.Equal(t, 10, dbtest.ReloadProduct(t, f.client.DB(), product.ID).Stock)

	var logs []models.ProductInventory
	require.NoError(t, f.client.DB().
		Where("product_id = ? AND change_type = ?", product.ID, enums.InventoryChangeReturn).
		Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, 8, logs[0].PreviousStock)
	assert.Equal(t, 10, logs[0].NewStock)
	assert.Equal(t, "Return approved for order #"+order.OrderNumber, logs[0].Reason)
	require.NotNil(t, logs[0].Notes)
	assert.Equal(t, "Item condition: DAMAGED", *logs[0].Notes)
	require.NotNil(t, logs[0].ReferenceID)
	assert.Equal(t, request.ID, *logs[0].ReferenceID)
}

func TestReleaseAfterApprovedReturnSkipsRestockedUnits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := customer()
	order, product := f.deliveredOrder(t, buyer, 2, 5)

	request, err := f.svc.Create(ctx, buyer, returnInput(order, 1, enums.ItemConditionUnopened))
	require.NoError(t, err)
	require.NoError(t, f.client.WithTx(ctx, func(tx *gorm.DB) error {
		return f.orders.ReleaseStockTx(ctx, tx, order, "pending return is not restocked", nil)
	}))
	assert.Equal(t, 10, dbtest.ReloadProduct(t, f.client.DB(), product.ID).Stock)
	require.NoError(t, f.client.DB().Model(&models.Product{}).Where("id = ?", product.ID).Update("stock", 8).Error)

	_, err = f.svc.UpdateStatus(ctx, request.ID, UpdateReturnInput{Status: enums.ReturnStatusApproved}, admin())
	require.NoError(t, err)
	require.Equal(t, 9, dbtest.ReloadProduct(t, f.client.DB(), product.ID).Stock)

	require.NoError(t, f.client.WithTx(ctx, func(tx *gorm.DB) error {
		return f.orders.ReleaseStockTx(ctx, tx, order, "Order cancelled due to refund", nil)
	}))
	assert.Equal(t, 10, dbtest.ReloadProduct(t, f.client.DB(), product.ID).Stock)
}

func TestUpdateStatusFollowsStateMachine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := customer()
	ops := admin()
	order, _ := f.deliveredOrder(t, buyer, 1, 5)
	request, err := f.svc.Create(ctx, buyer, returnInput(order, 1, enums.ItemConditionUnopened))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, request.ID, UpdateReturnInput{Status: enums.ReturnStatusCompleted}, ops)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = f.svc.UpdateStatus(ctx, request.ID, UpdateReturnInput{Status: enums.ReturnStatusApproved}, ops)
	require.NoError(t, err)

	override := decimal.RequireFromString("7.25")
	notes := "  partial credit  "
	processed, err := f.svc.UpdateStatus(ctx, request.ID, UpdateReturnInput{
		Status:       enums.ReturnStatusRefundProcessed,
		RefundAmount: &override,
		AdminNotes:   &notes,
	}, ops)
	require.NoError(t, err)
	assert.Equal(t, enums.ReturnStatusRefundProcessed, processed.Status)
	assert.NotNil(t, processed.ProcessedAt)
	assert.Equal(t, "7.25", processed.RefundAmount.StringFixed(2))
	require.NotNil(t, processed.AdminNotes)
	assert.Equal(t, "partial credit", *processed.AdminNotes)
}

func TestUpdateStatusRejectsOversizedOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := customer()
	order, _ := f.deliveredOrder(t, buyer, 1, 5)
	request, err := f.svc.Create(ctx, buyer, returnInput(order, 1, enums.ItemConditionUnopened))
	require.NoError(t, err)

	override := decimal.RequireFromString("500")
	_, err = f.svc.UpdateStatus(ctx, request.ID, UpdateReturnInput{Status: enums.ReturnStatusApproved, RefundAmount: &override}, admin())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	reloaded, err := f.svc.Get(ctx, buyer, request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReturnStatusRequested, reloaded.Status)
}

func TestCancelReturn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := customer()
	order, _ := f.deliveredOrder(t, buyer, 1, 5)
	request, err := f.svc.Create(ctx, buyer, returnInput(order, 1, enums.ItemConditionUnopened))
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, request.ID, customer())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	cancelled, err := f.svc.Cancel(ctx, request.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, enums.ReturnStatusRejected, cancelled.Status)
	require.NotNil(t, cancelled.AdminNotes)
	assert.True(t, strings.HasPrefix(*cancelled.AdminNotes, "Cancelled by user on "))
	assert.Contains(t, *cancelled.AdminNotes, f.now.Format(time.RFC3339))

	_, err = f.svc.Cancel(ctx, request.ID, buyer)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestListScopesToRequester(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := customer()
	other := customer()
	mine, _ := f.deliveredOrder(t, buyer, 1, 2)
	theirs, _ := f.deliveredOrder(t, other, 1, 2)
	_, err := f.svc.Create(ctx, buyer, returnInput(mine, 1, enums.ItemConditionUnopened))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, other, returnInput(theirs, 1, enums.ItemConditionUnopened))
	require.NoError(t, err)

	page, err := f.svc.ListMine(ctx, buyer, ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, mine.ID, page.Items[0].OrderID)

	all, err := f.svc.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	_, err = f.svc.Get(ctx, other, page.Items[0].ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
