package assets

import (
	"context"

	"github.com/mvasilyev/mediavault/internal/server/models"
)

// Repository persists media asset metadata. GetByID does not filter by
// owner: the service layer needs the stored owner to tell "not found" from
// "owned by someone else". All mutating operations are owner-scoped in SQL,
// so a lost race can only degrade to not-found, never touch another
// account's rows.
type Repository interface {
	Create(ctx context.Context, asset *models.MediaAsset) (*models.MediaAsset, error)
	GetByID(ctx context.Context, id string) (*models.MediaAsset, error)
	Update(ctx context.Context, id string, accountID string, changes *models.MediaAssetChanges) (*models.MediaAsset, error)
	Delete(ctx context.Context, id string, accountID string) error
	Search(ctx context.Context, accountID string, query string, page int, pageSize int) ([]*models.MediaAsset, int64, error)
	ListByOwner(ctx context.Context, accountID string, page int, pageSize int, kind models.MediaKind) ([]*models.MediaAsset, int64, error)
}
