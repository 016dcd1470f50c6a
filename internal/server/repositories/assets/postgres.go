package assets

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mvasilyev/mediavault/internal/common"
	"github.com/mvasilyev/mediavault/internal/dbx"
	"github.com/mvasilyev/mediavault/internal/server/models"
)

const assetColumns = `id, account_id, storage_key, original_file_name, media_kind,
	file_size, content_type, blob_url, thumbnail_key, thumbnail_url,
	description, tags, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, asset *models.MediaAsset) (*models.MediaAsset, error) {

	tags, err := marshalTags(asset.Tags)
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO media_assets (id, account_id, storage_key, original_file_name, media_kind,
		     file_size, content_type, blob_url, thumbnail_key, thumbnail_url,
		     description, tags, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 `

	_, err = r.db.ExecContext(ctx, query,
		asset.ID, asset.AccountID, asset.StorageKey, asset.OriginalFileName, asset.MediaKind,
		asset.FileSize, asset.ContentType, asset.BlobURL, asset.ThumbnailKey, asset.ThumbnailURL,
		asset.Description, tags, asset.CreatedAt, asset.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return asset, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.MediaAsset, error) {
	query := `SELECT ` + assetColumns + ` FROM media_assets WHERE id = $1`

	asset, err := scanAsset(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return asset, nil
}

// Update applies the non-nil fields of changes and refreshes updated_at.
// Omitted fields keep their stored values via COALESCE.
func (r *PostgresRepository) Update(ctx context.Context, id string, accountID string, changes *models.MediaAssetChanges) (*models.MediaAsset, error) {

	var tags any
	if changes.Tags != nil {
		marshaled, err := marshalTags(*changes.Tags)
		if err != nil {
			return nil, err
		}
		tags = marshaled
	}

	query :=
		`UPDATE media_assets
		 SET description = COALESCE($3, description),
		     tags = COALESCE($4, tags),
		     updated_at = now()
		 WHERE id = $1 AND account_id = $2
		 RETURNING ` + assetColumns

	asset, err := scanAsset(r.db.QueryRowContext(ctx, query, id, accountID, changes.Description, tags))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return asset, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string, accountID string) error {
	query := `DELETE FROM media_assets WHERE id = $1 AND account_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, accountID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}

// Search matches the query text case-insensitively as a substring against
// the original filename, the description, and each tag.
func (r *PostgresRepository) Search(ctx context.Context, accountID string, query string, page int, pageSize int) ([]*models.MediaAsset, int64, error) {

	where :=
		`WHERE account_id = $1
		   AND (original_file_name ILIKE $2
		     OR description ILIKE $2
		     OR EXISTS (
		          SELECT 1 FROM jsonb_array_elements_text(tags) AS tag
		          WHERE tag ILIKE $2))`

	pattern := "%" + escapeLike(query) + "%"

	var total int64
	countQuery := `SELECT count(*) FROM media_assets ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, accountID, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	listQuery := `SELECT ` + assetColumns + ` FROM media_assets ` + where +
		` ORDER BY created_at DESC LIMIT $3 OFFSET $4`

	rows, err := r.db.QueryContext(ctx, listQuery, accountID, pattern, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	items, err := collectAssets(rows)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, accountID string, page int, pageSize int, kind models.MediaKind) ([]*models.MediaAsset, int64, error) {

	// An empty kind matches every row.
	where := `WHERE account_id = $1 AND ($2 = '' OR media_kind = $2)`

	var total int64
	countQuery := `SELECT count(*) FROM media_assets ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, accountID, string(kind)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	listQuery := `SELECT ` + assetColumns + ` FROM media_assets ` + where +
		` ORDER BY created_at DESC LIMIT $3 OFFSET $4`

	rows, err := r.db.QueryContext(ctx, listQuery, accountID, string(kind), pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	items, err := collectAssets(rows)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*models.MediaAsset, error) {
	asset := &models.MediaAsset{}
	var description sql.NullString
	var tags []byte

	err := row.Scan(&asset.ID, &asset.AccountID, &asset.StorageKey, &asset.OriginalFileName, &asset.MediaKind,
		&asset.FileSize, &asset.ContentType, &asset.BlobURL, &asset.ThumbnailKey, &asset.ThumbnailURL,
		&description, &tags, &asset.CreatedAt, &asset.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		asset.Description = &description.String
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &asset.Tags); err != nil {
			return nil, fmt.Errorf("malformed tags column: %w", err)
		}
	}

	return asset, nil
}

func collectAssets(rows *sql.Rows) ([]*models.MediaAsset, error) {
	items := make([]*models.MediaAsset, 0)
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		items = append(items, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return items, nil
}

func marshalTags(tags []string) (any, error) {
	if tags == nil {
		return nil, nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("marshaling tags: %w", err)
	}
	return b, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
