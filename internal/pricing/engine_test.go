package pricing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func newTestEngine(t *testing.T) (*Engine, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	engine, err := NewEngine(ServiceParams{
		Inventory: inventory.NewRepository(client.DB()),
		Coupons:   coupons.NewRepository(client.DB()),
		Logger:    logger.Nop(),
	})
	require.NoError(t, err)
	return engine, client
}

func quote(t *testing.T, engine *Engine, client *db.Client, lines []Line, code string) (*Quote, error) {
	t.Helper()
	var result *Quote
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		result, err = engine.Quote(context.Background(), tx, lines, code)
		return err
	})
	return result, err
}

func assertTotals(t *testing.T, q *Quote) {
	t.Helper()
	assert.True(t, q.Total.Equal(q.Subtotal.Sub(q.DiscountAmount)), "total must equal subtotal minus discount")
	assert.True(t, q.DiscountAmount.Equal(q.ProductDiscount.Add(q.CouponDiscount)), "discount must equal product plus coupon discounts")
	assert.False(t, q.Total.IsNegative())
}

func TestQuoteWithoutDiscounts(t *testing.T) {
	engine, client := newTestEngine(t)
	p1 := dbtest.MustProduct(t, client.DB(), "10.00", "0", 5)

	q, err := quote(t, engine, client, []Line{{ProductID: p1.ID, Quantity: 2}}, "")
	require.NoError(t, err)
	assert.Equal(t, "20.00", q.Subtotal.StringFixed(2))
	assert.Equal(t, "0.00", q.DiscountAmount.StringFixed(2))
	assert.Equal(t, "20.00", q.Total.StringFixed(2))
	assert.Nil(t, q.Coupon)
	assertTotals(t, q)
}

func TestQuoteCombinesProductAndCouponDiscounts(t *testing.T) {
	engine, client := newTestEngine(t)
	p1 := dbtest.MustProduct(t, client.DB(), "19.99", "15", 10)
	p2 := dbtest.MustProduct(t, client.DB(), "7.50", "0", 10)
	variant := dbtest.MustVariant(t, client.DB(), p1.ID, "24.99", 3)
	dbtest.MustCoupon(t, client.DB(), "TENPCT", enums.DiscountTypePercentage, "10", nil)

	q, err := quote(t, engine, client, []Line{
		{ProductID: p1.ID, Quantity: 3},
		{ProductID: p1.ID, VariantID: &variant.ID, Quantity: 1},
		{ProductID: p2.ID, Quantity: 2},
	}, "tenpct")
	require.NoError(t, err)
	require.Len(t, q.Lines, 3)

	// 19.99 * 15% = 3.00 per unit; 24.99 * 15% = 3.75 per unit.
	assert.Equal(t, "3.00", q.Lines[0].UnitDiscount.StringFixed(2))
	assert.Equal(t, "16.99", q.Lines[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "24.99", q.Lines[1].BasePrice.StringFixed(2))
	assert.Equal(t, "21.24", q.Lines[1].UnitPrice.StringFixed(2))

	assert.Equal(t, "99.96", q.Subtotal.StringFixed(2))
	assert.Equal(t, "12.75", q.ProductDiscount.StringFixed(2))
	assert.Equal(t, "87.21", q.SubtotalWithProductDiscount.StringFixed(2))
	assert.Equal(t, "8.72", q.CouponDiscount.StringFixed(2))
	assert.Equal(t, "78.49", q.Total.StringFixed(2))
	require.NotNil(t, q.Coupon)
	assertTotals(t, q)
}

func TestQuoteFixedCouponNeverGoesNegative(t *testing.T) {
	engine, client := newTestEngine(t)
	p1 := dbtest.MustProduct(t, client.DB(), "5.00", "0", 10)
	dbtest.MustCoupon(t, client.DB(), "BIGFIXED", enums.DiscountTypeFixed, "50", nil)

	q, err := quote(t, engine, client, []Line{{ProductID: p1.ID, Quantity: 1}}, "BIGFIXED")
	require.NoError(t, err)
	assert.Equal(t, "5.00", q.CouponDiscount.StringFixed(2))
	assert.Equal(t, "0.00", q.Total.StringFixed(2))
	assertTotals(t, q)
}

func TestQuoteCouponMinimumUsesDiscountedSubtotal(t *testing.T) {
	engine, client := newTestEngine(t)
	minimum := decimal.RequireFromString("100.00")
	dbtest.MustCoupon(t, client.DB(), "MIN100", enums.DiscountTypeFixed, "10", func(c *models.Coupon) {
		c.MinOrderAmount = &minimum
	})
	below := dbtest.MustProduct(t, client.DB(), "99.99", "0", 10)
	exact := dbtest.MustProduct(t, client.DB(), "125.00", "20", 10)

	_, err := quote(t, engine, client, []Line{{ProductID: below.ID, Quantity: 1}}, "MIN100")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCouponInvalid))

	q, err := quote(t, engine, client, []Line{{ProductID: exact.ID, Quantity: 1}}, "MIN100")
	require.NoError(t, err)
	assert.Equal(t, "100.00", q.SubtotalWithProductDiscount.StringFixed(2))
	assert.Equal(t, "90.00", q.Total.StringFixed(2))
	assertTotals(t, q)
}

func TestQuoteRejectsInsufficientStock(t *testing.T) {
	engine, client := newTestEngine(t)
	p1 := dbtest.MustProduct(t, client.DB(), "10.00", "0", 1)
	variant := dbtest.MustVariant(t, client.DB(), p1.ID, "", 0)

	_, err := quote(t, engine, client, []Line{{ProductID: p1.ID, Quantity: 2}}, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	_, err = quote(t, engine, client, []Line{{ProductID: p1.ID, VariantID: &variant.ID, Quantity: 1}}, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
}

func TestQuoteErrors(t *testing.T) {
	engine, client := newTestEngine(t)
	p1 := dbtest.MustProduct(t, client.DB(), "10.00", "0", 5)
	missingVariant := uuid.New()

	_, err := quote(t, engine, client, nil, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = quote(t, engine, client, []Line{{ProductID: uuid.New(), Quantity: 1}}, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = quote(t, engine, client, []Line{{ProductID: p1.ID, VariantID: &missingVariant, Quantity: 1}}, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = quote(t, engine, client, []Line{{ProductID: p1.ID, Quantity: 0}}, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = quote(t, engine, client, []Line{{ProductID: p1.ID, Quantity: 1}}, "UNKNOWN")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCouponInvalid))
}
