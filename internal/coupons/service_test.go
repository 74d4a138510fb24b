package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

func newTestService(t *testing.T) (*Service, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	svc, err := NewService(ServiceParams{
		Repo:              NewRepository(client.DB()),
		TransactionRunner: client,
		Logger:            logger.Nop(),
	})
	require.NoError(t, err)
	return svc, client
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
}

func TestCreateNormalizesAndRejectsDuplicates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	coupon, err := svc.Create(ctx, CreateInput{
		Code:          " welcome ",
		DiscountType:  enums.DiscountTypeFixed,
		DiscountValue: decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	assert.Equal(t, "WELCOME", coupon.Code)
	assert.True(t, coupon.IsActive)
	assert.False(t, coupon.ValidFrom.IsZero())

	_, err = svc.Create(ctx, CreateInput{
		Code:          "WELCOME",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(10),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestCreateValidatesInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Code: "BIG", DiscountType: enums.DiscountTypePercentage, DiscountValue: decimal.NewFromInt(150)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, CreateInput{Code: "ZERO", DiscountType: enums.DiscountTypeFixed, DiscountValue: decimal.Zero})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, CreateInput{Code: "ODD", DiscountType: "BOGO", DiscountValue: decimal.NewFromInt(1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateRejectsCodeOfAnotherCoupon(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	dbtest.MustCoupon(t, client.DB(), "TAKEN", enums.DiscountTypeFixed, "5", nil)
	target := dbtest.MustCoupon(t, client.DB(), "MINE", enums.DiscountTypeFixed, "5", nil)

	taken := "taken"
	_, err := svc.Update(ctx, target.ID, UpdateInput{Code: &taken})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	same := "mine"
	value := decimal.NewFromInt(7)
	updated, err := svc.Update(ctx, target.ID, UpdateInput{Code: &same, DiscountValue: &value})
	require.NoError(t, err)
	assert.Equal(t, "MINE", updated.Code)
	assert.Equal(t, "7.00", updated.DiscountValue.StringFixed(2))
}

func TestUpdateKeepsUsageCount(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	coupon := dbtest.MustCoupon(t, client.DB(), "COUNTED", enums.DiscountTypeFixed, "5", nil)
	require.NoError(t, NewRepository(client.DB()).IncrementUsage(ctx, coupon.ID))

	_, err := svc.Toggle(ctx, coupon.ID)
	require.NoError(t, err)

	var reloaded models.Coupon
	require.NoError(t, client.DB().First(&reloaded, "id = ?", coupon.ID).Error)
	assert.Equal(t, 1, reloaded.UsedCount)
	assert.False(t, reloaded.IsActive)
}

func TestDeleteRefusesUsedCoupon(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	used := dbtest.MustCoupon(t, client.DB(), "USED", enums.DiscountTypeFixed, "5", nil)
	unused := dbtest.MustCoupon(t, client.DB(), "UNUSED", enums.DiscountTypeFixed, "5", nil)

	order := &models.Order{
		OrderNumber:     "ORD-00000001-001",
		UserID:          uuid.New(),
		CustomerName:    "Ada",
		CustomerEmail:   "ada@example.com",
		ShippingName:    "Ada",
		ShippingPhone:   "555",
		ShippingAddress: "1 Main",
		ShippingCity:    "Springfield",
		ShippingCountry: "US",
		Subtotal:        decimal.NewFromInt(10),
		DiscountAmount:  decimal.NewFromInt(5),
		TotalPrice:      decimal.NewFromInt(5),
		Currency:        "USD",
		Status:          enums.OrderStatusPending,
		CouponID:        &used.ID,
		OrderDate:       time.Now().UTC(),
	}
	require.NoError(t, client.DB().Create(order).Error)

	err := svc.Delete(ctx, used.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	require.NoError(t, svc.Delete(ctx, unused.ID))
	_, err = svc.Get(ctx, unused.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestValidatePreview(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	minimum := decimal.RequireFromString("100.00")
	dbtest.MustCoupon(t, client.DB(), "TENOFF", enums.DiscountTypePercentage, "10", func(c *models.Coupon) {
		c.MinOrderAmount = &minimum
	})

	_, err := svc.Validate(ctx, "tenoff", decimal.RequireFromString("99.99"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCouponInvalid))

	preview, err := svc.Validate(ctx, "tenoff", decimal.RequireFromString("100.00"))
	require.NoError(t, err)
	assert.True(t, preview.IsValid)
	assert.Equal(t, "TENOFF", preview.Coupon.Code)
	assert.Equal(t, "10.00", preview.Coupon.DiscountAmount.StringFixed(2))

	_, err = svc.Validate(ctx, "nope", decimal.NewFromInt(10))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, "Invalid coupon code", typed.Message())
}

func TestListFilters(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	dbtest.MustCoupon(t, client.DB(), "ALPHA", enums.DiscountTypeFixed, "5", nil)
	dbtest.MustCoupon(t, client.DB(), "BETA", enums.DiscountTypeFixed, "5", func(c *models.Coupon) { c.IsActive = false })
	expired := time.Now().UTC().Add(-time.Hour)
	dbtest.MustCoupon(t, client.DB(), "GAMMA", enums.DiscountTypeFixed, "5", func(c *models.Coupon) { c.ValidUntil = &expired })

	inactive := false
	page, err := svc.List(ctx, ListParams{IsActive: &inactive})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "BETA", page.Items[0].Code)

	page, err = svc.List(ctx, ListParams{ValidOnly: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "ALPHA", page.Items[0].Code)

	page, err = svc.List(ctx, ListParams{SearchTerm: "gam"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "GAMMA", page.Items[0].Code)

	page, err = svc.List(ctx, ListParams{Params: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.NotEmpty(t, page.NextCursor)
}
