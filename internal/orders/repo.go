package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) AddTracking(ctx context.Context, entry *models.OrderTracking) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// LockByID reads an order with a row lock held until the transaction ends.
func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindDetail(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.detailQuery(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindDetailByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	if err := r.detailQuery(ctx).Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) detailQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Tracking", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Invoices").
		Preload("Shipping")
}

func (r *repository) FindItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	return r.Update(ctx, id, map[string]any{"status": status})
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) HasCompletedPayment(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentStatusCompleted).
		Count(&count).Error
	return count > 0, err
}

// restockedReturnStatuses are the return states reached only after the
// approval that put the items back in stock.
var restockedReturnStatuses = []enums.ReturnStatus{
	enums.ReturnStatusApproved,
	enums.ReturnStatusPickupScheduled,
	enums.ReturnStatusPickupCompleted,
	enums.ReturnStatusRefundProcessed,
	enums.ReturnStatusCompleted,
}

// RestockedByReturns sums, per order item, the quantity already restored by
// approved returns of the order.
func (r *repository) RestockedByReturns(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]int, error) {
	var rows []struct {
		OrderItemID uuid.UUID
		Quantity    int
	}
	err := r.db.WithContext(ctx).
		Table("return_items").
		Select("return_items.order_item_id AS order_item_id, SUM(return_items.quantity) AS quantity").
		Joins("JOIN return_requests ON return_requests.id = return_items.return_request_id").
		Where("return_requests.order_id = ? AND return_requests.status IN ?", orderID, restockedReturnStatuses).
		Group("return_items.order_item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		out[row.OrderItemID] = row.Quantity
	}
	return out, nil
}

// CancelOpenPayments moves every PENDING or PROCESSING payment of the order to CANCELLED.
func (r *repository) CancelOpenPayments(ctx context.Context, orderID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND status IN ?", orderID, []enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusProcessing}).
		Updates(map[string]any{
			"status":     enums.PaymentStatusCancelled,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CustomerEmail != "" {
		query = query.Where("customer_email = ?", filter.CustomerEmail)
	}
	if filter.SearchTerm != "" {
		like := "%" + filter.SearchTerm + "%"
		query = query.Where("order_number LIKE ? OR customer_name LIKE ? OR customer_email LIKE ?", like, like, like)
	}
	if filter.From != nil {
		query = query.Where("order_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("order_date <= ?", *filter.To)
	}
	if filter.MinAmount != nil {
		query = query.Where("total_price >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("total_price <= ?", *filter.MaxAmount)
	}
	if filter.After != nil && filter.AfterID != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", *filter.After, *filter.After, *filter.AfterID)
	}
	var rows []models.Order
	err := query.
		Preload("Items").
		Order("created_at DESC").
		Order("id DESC").
		Limit(filter.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type statusCount struct {
	Status enums.OrderStatus
	Count  int64
}

func (r *repository) CountByStatus(ctx context.Context, userID *uuid.UUID) (map[enums.OrderStatus]int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	var rows []statusCount
	if err := query.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[enums.OrderStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Revenue sums total_price over every order that was not cancelled.
func (r *repository) Revenue(ctx context.Context, userID *uuid.UUID) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status <> ?", enums.OrderStatusCancelled)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	var total decimal.NullDecimal
	if err := query.Select("SUM(total_price)").Row().Scan(&total); err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// FindStalePending returns PENDING orders placed before cutoff, oldest first.
func (r *repository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	query := r.db.WithContext(ctx).
		Where("status = ? AND order_date < ?", enums.OrderStatusPending, cutoff).
		Order("order_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
