package coupons

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const couponCodeConstraint = "coupons_code_key"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateInput is the admin payload for a new coupon.
type CreateInput struct {
	Code           string
	Description    *string
	DiscountType   enums.DiscountType
	DiscountValue  decimal.Decimal
	MinOrderAmount *decimal.Decimal
	MaxUses        *int
	ValidFrom      *time.Time
	ValidUntil     *time.Time
	IsActive       *bool
}

// UpdateInput carries a partial coupon update; nil fields are left untouched.
type UpdateInput struct {
	Code           *string
	Description    *string
	DiscountType   *enums.DiscountType
	DiscountValue  *decimal.Decimal
	MinOrderAmount *decimal.Decimal
	MaxUses        *int
	ValidFrom      *time.Time
	ValidUntil     *time.Time
	IsActive       *bool
}

// ListParams filters the admin listing.
type ListParams struct {
	IsActive   *bool
	ValidOnly  bool
	SearchTerm string
	pagination.Params
}

// Preview is the result of validating a code against an order amount.
type Preview struct {
	IsValid bool          `json:"isValid"`
	Coupon  PreviewCoupon `json:"coupon"`
}

type PreviewCoupon struct {
	ID             uuid.UUID          `json:"id"`
	Code           string             `json:"code"`
	DiscountType   enums.DiscountType `json:"discountType"`
	DiscountValue  decimal.Decimal    `json:"discountValue"`
	DiscountAmount decimal.Decimal    `json:"discountAmount"`
	MaxUses        *int               `json:"maxUses,omitempty"`
	UsedCount      int                `json:"usedCount"`
	MinOrderAmount *decimal.Decimal   `json:"minOrderAmount,omitempty"`
}

type ServiceParams struct {
	Repo              Repository
	TransactionRunner txRunner
	Logger            *logger.Logger
	Now               func() time.Time
}

// Service manages coupons and previews their discounts.
type Service struct {
	repo     Repository
	txRunner txRunner
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "coupon repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:     params.Repo,
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Coupon, error) {
	code := NormalizeCode(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	validFrom := s.now()
	if input.ValidFrom != nil {
		validFrom = input.ValidFrom.UTC()
	}
	coupon := &models.Coupon{
		Code:           code,
		Description:    input.Description,
		DiscountType:   input.DiscountType,
		DiscountValue:  input.DiscountValue,
		MinOrderAmount: input.MinOrderAmount,
		MaxUses:        input.MaxUses,
		ValidFrom:      validFrom,
		ValidUntil:     input.ValidUntil,
		IsActive:       true,
	}
	if input.IsActive != nil {
		coupon.IsActive = *input.IsActive
	}
	if err := validateCoupon(coupon); err != nil {
		return nil, err
	}

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		taken, err := repo.CodeTaken(ctx, code, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check coupon code")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "Coupon code already exists")
		}
		if err := repo.Create(ctx, coupon); err != nil {
			if db.IsUniqueViolation(err, couponCodeConstraint) {
				return pkgerrors.New(pkgerrors.CodeConflict, "Coupon code already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "coupon_code", code), "coupon created")
	return coupon, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Coupon, error) {
	var coupon *models.Coupon
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		coupon, err = s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if input.Code != nil {
			code := NormalizeCode(*input.Code)
			if code == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "code is required")
			}
			if code != coupon.Code {
				taken, err := repo.CodeTaken(ctx, code, &coupon.ID)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check coupon code")
				}
				if taken {
					return pkgerrors.New(pkgerrors.CodeConflict, "Coupon code already exists")
				}
			}
			coupon.Code = code
		}
		if input.Description != nil {
			coupon.Description = input.Description
		}
		if input.DiscountType != nil {
			coupon.DiscountType = *input.DiscountType
		}
		if input.DiscountValue != nil {
			coupon.DiscountValue = *input.DiscountValue
		}
		if input.MinOrderAmount != nil {
			coupon.MinOrderAmount = input.MinOrderAmount
		}
		if input.MaxUses != nil {
			coupon.MaxUses = input.MaxUses
		}
		if input.ValidFrom != nil {
			coupon.ValidFrom = input.ValidFrom.UTC()
		}
		if input.ValidUntil != nil {
			coupon.ValidUntil = input.ValidUntil
		}
		if input.IsActive != nil {
			coupon.IsActive = *input.IsActive
		}
		if err := validateCoupon(coupon); err != nil {
			return err
		}
		if err := repo.Save(ctx, coupon); err != nil {
			if db.IsUniqueViolation(err, couponCodeConstraint) {
				return pkgerrors.New(pkgerrors.CodeConflict, "Coupon code already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update coupon")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return coupon, nil
}

// Delete removes a coupon no order has used.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.load(ctx, repo, id); err != nil {
			return err
		}
		used, err := repo.CountOrdersUsing(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count coupon orders")
		}
		if used > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "Cannot delete coupon that has been used in orders")
		}
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete coupon")
		}
		return nil
	})
}

// Toggle flips the active flag.
func (s *Service) Toggle(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon *models.Coupon
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		coupon, err = s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		coupon.IsActive = !coupon.IsActive
		if err := repo.Save(ctx, coupon); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "toggle coupon")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return coupon, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	return s.load(ctx, s.repo, id)
}

func (s *Service) List(ctx context.Context, params ListParams) (*pagination.Page[models.Coupon], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter := ListFilter{
		IsActive:   params.IsActive,
		SearchTerm: strings.TrimSpace(params.SearchTerm),
		Limit:      pagination.LimitWithBuffer(params.Limit),
	}
	if params.ValidOnly {
		now := s.now()
		filter.ValidAt = &now
	}
	if cursor != nil {
		filter.After = &cursor.CreatedAt
		filter.AfterID = &cursor.ID
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	page := pagination.Trim(rows, params.Limit, func(c models.Coupon) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	return &page, nil
}

// Validate previews the discount a code would give on orderAmount without consuming it.
func (s *Service) Validate(ctx context.Context, code string, orderAmount decimal.Decimal) (*Preview, error) {
	if NormalizeCode(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if orderAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderAmount must not be negative")
	}
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if err := CheckEligibility(coupon, orderAmount, s.now()); err != nil {
		return nil, err
	}
	return &Preview{
		IsValid: true,
		Coupon: PreviewCoupon{
			ID:             coupon.ID,
			Code:           coupon.Code,
			DiscountType:   coupon.DiscountType,
			DiscountValue:  coupon.DiscountValue,
			DiscountAmount: Discount(coupon, orderAmount),
			MaxUses:        coupon.MaxUses,
			UsedCount:      coupon.UsedCount,
			MinOrderAmount: coupon.MinOrderAmount,
		},
	}, nil
}

func (s *Service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Coupon, error) {
	coupon, err := repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	return coupon, nil
}

func validateCoupon(c *models.Coupon) error {
	if !c.DiscountType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	if !c.DiscountValue.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discountValue must be positive")
	}
	if c.DiscountType == enums.DiscountTypePercentage && c.DiscountValue.GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}
	if c.MinOrderAmount != nil && c.MinOrderAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "minOrderAmount must not be negative")
	}
	if c.MaxUses != nil && *c.MaxUses < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "maxUses must be at least 1")
	}
	if c.ValidUntil != nil && !c.ValidUntil.After(c.ValidFrom) {
		return pkgerrors.New(pkgerrors.CodeValidation, "validUntil must be after validFrom")
	}
	return nil
}
