package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var hundred = decimal.NewFromInt(100)

// Line is one requested product or variant and its quantity.
type Line struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// PricedLine carries the catalog snapshot and per-unit prices of a line.
type PricedLine struct {
	Line
	Product   *models.Product
	Variant   *models.ProductVariant
	BasePrice decimal.Decimal
	// UnitDiscount is the product discount for a single unit.
	UnitDiscount decimal.Decimal
	UnitPrice    decimal.Decimal
}

// LineDiscount is the product discount across the whole quantity.
func (l PricedLine) LineDiscount() decimal.Decimal {
	return l.UnitDiscount.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineTotal is the discounted unit price times the quantity.
func (l PricedLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Quote is a fully priced cart.
type Quote struct {
	Lines []PricedLine
	// Subtotal is the sum of undiscounted base prices.
	Subtotal                    decimal.Decimal
	SubtotalWithProductDiscount decimal.Decimal
	ProductDiscount             decimal.Decimal
	CouponDiscount              decimal.Decimal
	DiscountAmount              decimal.Decimal
	Total                       decimal.Decimal
	Coupon                      *models.Coupon
}

type ServiceParams struct {
	Inventory *inventory.Repository
	Coupons   coupons.Repository
	Logger    *logger.Logger
	Now       func() time.Time
}

// Engine prices carts inside the caller's transaction.
type Engine struct {
	inventory *inventory.Repository
	coupons   coupons.Repository
	logg      *logger.Logger
	now       func() time.Time
}

func NewEngine(params ServiceParams) (*Engine, error) {
	if params.Inventory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory repo required")
	}
	if params.Coupons == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "coupon repo required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		inventory: params.Inventory,
		coupons:   params.Coupons,
		logg:      params.Logger,
		now:       now,
	}, nil
}

// Quote prices lines against locked catalog rows and applies couponCode when set.
// It does not consume the coupon; callers increment usage in the same transaction.
func (e *Engine) Quote(ctx context.Context, tx *gorm.DB, lines []Line, couponCode string) (*Quote, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}

	quote := &Quote{
		Lines:                       make([]PricedLine, 0, len(lines)),
		Subtotal:                    decimal.Zero,
		SubtotalWithProductDiscount: decimal.Zero,
		ProductDiscount:             decimal.Zero,
		CouponDiscount:              decimal.Zero,
	}
	repo := e.inventory.WithTx(tx)
	for _, line := range lines {
		priced, err := e.priceLine(ctx, repo, line)
		if err != nil {
			return nil, err
		}
		qty := decimal.NewFromInt(int64(line.Quantity))
		quote.Subtotal = quote.Subtotal.Add(priced.BasePrice.Mul(qty))
		quote.SubtotalWithProductDiscount = quote.SubtotalWithProductDiscount.Add(priced.LineTotal())
		quote.ProductDiscount = quote.ProductDiscount.Add(priced.LineDiscount())
		quote.Lines = append(quote.Lines, *priced)
	}

	if code := coupons.NormalizeCode(couponCode); code != "" {
		coupon, err := e.coupons.WithTx(tx).LockByCode(ctx, code)
		if err != nil && !db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
		}
		if err := coupons.CheckEligibility(coupon, quote.SubtotalWithProductDiscount, e.now()); err != nil {
			return nil, err
		}
		quote.Coupon = coupon
		quote.CouponDiscount = coupons.Discount(coupon, quote.SubtotalWithProductDiscount)
	}

	quote.Subtotal = quote.Subtotal.Round(2)
	quote.ProductDiscount = quote.ProductDiscount.Round(2)
	quote.SubtotalWithProductDiscount = quote.SubtotalWithProductDiscount.Round(2)
	quote.CouponDiscount = quote.CouponDiscount.Round(2)
	quote.DiscountAmount = quote.ProductDiscount.Add(quote.CouponDiscount)
	quote.Total = quote.Subtotal.Sub(quote.DiscountAmount)

	e.logg.Debug(e.logg.WithFields(ctx, map[string]any{
		"subtotal":         quote.Subtotal.StringFixed(2),
		"product_discount": quote.ProductDiscount.StringFixed(2),
		"coupon_discount":  quote.CouponDiscount.StringFixed(2),
		"total":            quote.Total.StringFixed(2),
	}), "cart priced")
	return quote, nil
}

func (e *Engine) priceLine(ctx context.Context, repo *inventory.Repository, line Line) (*PricedLine, error) {
	if line.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"productId": line.ProductID})
	}
	product, err := repo.LockProduct(ctx, line.ProductID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("Product not found: %s", line.ProductID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Product is not available: %s", product.Name))
	}

	priced := &PricedLine{Line: line, Product: product, BasePrice: product.Price}
	available := product.Stock
	label := product.Name
	if line.VariantID != nil {
		variant, err := repo.LockVariant(ctx, line.ProductID, *line.VariantID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("Product variant not found: %s/%s", line.ProductID, *line.VariantID))
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
		}
		if !variant.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Product is not available: %s (%s)", product.Name, variant.Label()))
		}
		priced.Variant = variant
		if variant.Price != nil {
			priced.BasePrice = *variant.Price
		}
		available = variant.Stock
		label = fmt.Sprintf("%s (%s)", product.Name, variant.Label())
	}

	if line.Quantity > available {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "Insufficient stock for product: "+strings.TrimSpace(label)).
			WithDetails(map[string]any{
				"productId": line.ProductID,
				"variantId": line.VariantID,
				"requested": line.Quantity,
				"available": available,
			})
	}

	priced.UnitDiscount = priced.BasePrice.Mul(product.DiscountPercent).Div(hundred).Round(2)
	priced.UnitPrice = priced.BasePrice.Sub(priced.UnitDiscount)
	return priced, nil
}
