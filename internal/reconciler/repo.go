package reconciler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Repository reads and writes the payment side of reconciliation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	FindLatestPaymentForOrder(ctx context.Context, orderID uuid.UUID, gateway enums.PaymentGateway) (*models.Payment, error)
	FindOrderBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreateInvoice(ctx context.Context, invoice *models.Invoice) error
	CountInvoices(ctx context.Context, paymentID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) LockPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindLatestPaymentForOrder returns the newest payment of the order through gateway.
func (r *repository) FindLatestPaymentForOrder(ctx context.Context, orderID uuid.UUID, gateway enums.PaymentGateway) (*models.Payment, error) {
	query := r.db.WithContext(ctx).Where("order_id = ?", orderID)
	if gateway != "" {
		query = query.Where("gateway = ?", gateway)
	}
	var payment models.Payment
	if err := query.Order("created_at DESC").First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindOrderBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("checkout_session_id = ?", sessionID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdatePayment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) CountInvoices(ctx context.Context, paymentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("payment_id = ?", paymentID).
		Count(&count).Error
	return count, err
}
