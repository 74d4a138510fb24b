package returns

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists return requests and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.ReturnRequest) error
	ExistsForOrder(ctx context.Context, orderID, userID uuid.UUID) (bool, error)
	FindDetail(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	FindItems(ctx context.Context, returnID uuid.UUID) ([]models.ReturnItem, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	List(ctx context.Context, filter ListFilter) ([]models.ReturnRequest, error)
}

// Service is the return workflow used by controllers.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateReturnInput) (*models.ReturnRequest, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.ReturnRequest, error)
	ListMine(ctx context.Context, actor auth.Actor, params ListParams) (*ReturnList, error)
	List(ctx context.Context, params ListParams) (*ReturnList, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, input UpdateReturnInput, admin auth.Actor) (*models.ReturnRequest, error)
	Cancel(ctx context.Context, id uuid.UUID, actor auth.Actor) (*models.ReturnRequest, error)
}
