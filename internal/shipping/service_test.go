package shipping

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

var shippedClock = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, orders.Service, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	logg := logger.Nop()

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
		Lifecycle:         orderSvc,
		TransactionRunner: client,
		Outbox:            emitter,
		Logger:            logg,
		Now:               func() time.Time { return shippedClock },
	})
	require.NoError(t, err)
	return svc, orderSvc, client
}

func operator() auth.Actor {
	return auth.Actor{UserID: uuid.New(), Email: "ops@example.com", Name: "Ops", Role: enums.UserRoleAdmin}
}

func orderIn(t *testing.T, orderSvc orders.Service, client *db.Client, status enums.OrderStatus) *models.Order {
	t.Helper()
	product := dbtest.MustProduct(t, client.DB(), "12.00", "0", 5)
	buyer := auth.Actor{UserID: uuid.New(), Email: "ada@example.com", Name: "Ada", Role: enums.UserRoleCustomer}
	order, err := orderSvc.Create(context.Background(), buyer, orders.CreateOrderInput{
		ShippingName:    "Ada Lovelace",
		ShippingPhone:   "+1 555 0100",
		ShippingAddress: "12 Analytical Row",
		ShippingCity:    "London",
		Items:           []pricing.Line{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, client.DB().Model(&models.Order{}).Where("id = ?", order.ID).Update("status", status).Error)
	return order
}

func shipInput(tracking string) AddShippingInput {
	days := 4
	return AddShippingInput{
		Carrier:        "DHL",
		TrackingNumber: tracking,
		Method:         enums.ShippingMethodExpress,
		Cost:           decimal.RequireFromString("7.5"),
		EstimatedDays:  &days,
	}
}

func latestTracking(t *testing.T, client *db.Client, orderID uuid.UUID) models.OrderTracking {
	t.Helper()
	var rows []models.OrderTracking
	require.NoError(t, client.DB().Where("order_id = ?", orderID).Order("created_at DESC").Find(&rows).Error)
	require.NotEmpty(t, rows)
	for _, row := range rows {
		if row.Status != enums.OrderStatusPending {
			return row
		}
	}
	return rows[0]
}

func TestAddShipsPaidOrder(t *testing.T) {
	svc, orderSvc, client := newTestService(t)
	order := orderIn(t, orderSvc, client, enums.OrderStatusPaid)

	shipment, err := svc.Add(context.Background(), order.ID, shipInput("TRK-1"), operator())
	require.NoError(t, err)
	assert.Equal(t, "7.50", shipment.Cost.StringFixed(2))
	assert.True(t, shipment.ShippedAt.Equal(shippedClock))

	var reloaded models.Order
	require.NoError(t, client.DB().First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusShipped, reloaded.Status)
	assert.Equal(t, "Order shipped via DHL with tracking #TRK-1", latestTracking(t, client, order.ID).Notes)

	var events []models.OutboxEvent
	require.NoError(t, client.DB().Where("aggregate_id = ? AND event_type = ?", order.ID, enums.EventOrderShipped).Find(&events).Error)
	assert.Len(t, events, 1)
}

func TestAddRejectsUnpaidOrder(t *testing.T) {
	svc, orderSvc, client := newTestService(t)
	order := orderIn(t, orderSvc, client, enums.OrderStatusPending)

	_, err := svc.Add(context.Background(), order.ID, shipInput("TRK-2"), operator())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestAddRejectsSecondShipment(t *testing.T) {
	svc, orderSvc, client := newTestService(t)
	order := orderIn(t, orderSvc, client, enums.OrderStatusProcessing)

	_, err := svc.Add(context.Background(), order.ID, shipInput("TRK-3"), operator())
	require.NoError(t, err)
	require.NoError(t, client.DB().Model(&models.Order{}).Where("id = ?", order.ID).Update("status", enums.OrderStatusPaid).Error)

	_, err = svc.Add(context.Background(), order.ID, shipInput("TRK-4"), operator())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestAddRejectsReusedTrackingNumber(t *testing.T) {
	svc, orderSvc, client := newTestService(t)
	first := orderIn(t, orderSvc, client, enums.OrderStatusPaid)
	second := orderIn(t, orderSvc, client, enums.OrderStatusPaid)

	_, err := svc.Add(context.Background(), first.ID, shipInput("TRK-5"), operator())
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), second.ID, shipInput("TRK-5"), operator())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	var reloaded models.Order
	require.NoError(t, client.DB().First(&reloaded, "id = ?", second.ID).Error)
	assert.Equal(t, enums.OrderStatusPaid, reloaded.Status)
}

func TestUpdateDeliveredMovesOrder(t *testing.T) {
	svc, orderSvc, client := newTestService(t)
	ctx := context.Background()
	order := orderIn(t, orderSvc, client, enums.OrderStatusPaid)
	_, err := svc.Add(ctx, order.ID, shipInput("TRK-6"), operator())
	require.NoError(t, err)

	deliveredAt := shippedClock.Add(72 * time.Hour)
	notes := "left at reception"
	shipment, err := svc.Update(ctx, order.ID, UpdateShippingInput{DeliveredAt: &deliveredAt, Notes: &notes}, operator())
	require.NoError(t, err)
	require.NotNil(t, shipment.DeliveredAt)
	require.NotNil(t, shipment.Notes)
	assert.Equal(t, "left at reception", *shipment.Notes)

	var reloaded models.Order
	require.NoError(t, client.DB().First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusDelivered, reloaded.Status)

	var delivered int64
	require.NoError(t, client.DB().Model(&models.OrderTracking{}).
		Where("order_id = ? AND status = ? AND notes = ?", order.ID, enums.OrderStatusDelivered, "Order delivered successfully").
		Count(&delivered).Error)
	assert.EqualValues(t, 1, delivered)
}

func TestUpdateWithoutShipment(t *testing.T) {
	svc, orderSvc, client := newTestService(t)
	order := orderIn(t, orderSvc, client, enums.OrderStatusPaid)

	carrier := "UPS"
	_, err := svc.Update(context.Background(), order.ID, UpdateShippingInput{Carrier: &carrier}, operator())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestTrack(t *testing.T) {
	svc, orderSvc, client := newTestService(t)
	ctx := context.Background()
	order := orderIn(t, orderSvc, client, enums.OrderStatusPaid)
	_, err := svc.Add(ctx, order.ID, shipInput("TRK-7"), operator())
	require.NoError(t, err)

	tracking, err := svc.Track(ctx, " TRK-7 ")
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, tracking.OrderNumber)
	assert.Equal(t, enums.OrderStatusShipped, tracking.OrderStatus)
	require.NotNil(t, tracking.EstimatedDelivery)
	assert.True(t, tracking.EstimatedDelivery.Equal(shippedClock.AddDate(0, 0, 4)))

	_, err = svc.Track(ctx, "missing")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
