package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mvasilyev/mediavault/internal/common"
	"github.com/mvasilyev/mediavault/internal/logging"
	"github.com/mvasilyev/mediavault/internal/server/metrics"
	"github.com/mvasilyev/mediavault/internal/server/models"
	"github.com/mvasilyev/mediavault/internal/server/repositories/repomanager"
	"github.com/mvasilyev/mediavault/internal/server/storage"
	"github.com/mvasilyev/mediavault/internal/server/thumbnail"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	thumbnailContentType = "image/jpeg"
)

// AssetService implements the upload ingest pipeline and the asset catalog.
// Every operation takes the authenticated account id resolved upstream and
// re-checks ownership against the stored record.
type AssetService struct {
	db            *sql.DB
	repos         repomanager.RepositoryManager
	blobs         storage.BlobStore
	thumbs        thumbnail.Generator
	maxUploadSize int64
	logger        logging.Logger
	recorder      metrics.IngestRecorder
}

func NewAssetService(db *sql.DB, repos repomanager.RepositoryManager, blobs storage.BlobStore,
	thumbs thumbnail.Generator, maxUploadSize int64, logger logging.Logger, recorder metrics.IngestRecorder) *AssetService {
	return &AssetService{
		db:            db,
		repos:         repos,
		blobs:         blobs,
		thumbs:        thumbs,
		maxUploadSize: maxUploadSize,
		logger:        logger.With("component", "asset_service"),
		recorder:      recorder,
	}
}

// Upload runs the ingest pipeline for one file, terminal on first failure:
// classify type, check size, parse tags, persist bytes, derive a thumbnail
// for images (best effort), persist metadata. If the metadata write fails
// after the blob write, the stored objects are removed again with
// compensating deletes before the error is returned.
func (s *AssetService) Upload(ctx context.Context, accountID string, fileBytes []byte,
	filename string, contentType string, description *string, tagsPayload string) (*models.MediaAsset, error) {

	kind, err := classifyContentType(contentType)
	if err != nil {
		return nil, err
	}

	size := int64(len(fileBytes))
	if size > s.maxUploadSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", common.ErrFileTooLarge, size, s.maxUploadSize)
	}

	// Tags are validated before any storage write so a malformed request
	// cannot leave an orphaned blob behind.
	tags, err := parseTags(tagsPayload)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	key := storageKey(accountID, id, filename)

	blobURL, err := s.blobs.Put(ctx, bytes.NewReader(fileBytes), key, contentType)
	if err != nil {
		return nil, fmt.Errorf("storing payload: %w", err)
	}

	var thumbKey, thumbURL string
	if kind == models.MediaKindImage {
		thumbKey, thumbURL = s.deriveThumbnail(ctx, key, fileBytes)
	}

	now := time.Now().UTC()
	asset := &models.MediaAsset{
		ID:               id,
		AccountID:        accountID,
		StorageKey:       key,
		OriginalFileName: filename,
		MediaKind:        kind,
		FileSize:         size,
		ContentType:      contentType,
		BlobURL:          blobURL,
		ThumbnailKey:     thumbKey,
		ThumbnailURL:     thumbURL,
		Description:      description,
		Tags:             tags,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	created, err := s.repos.Assets(s.db).Create(ctx, asset)
	if err != nil {
		s.compensateBlobWrites(ctx, key, thumbKey)
		return nil, fmt.Errorf("storing metadata: %w", err)
	}

	s.recorder.RecordUpload(string(kind), size)
	s.logger.Info(ctx, "asset ingested", "asset_id", created.ID, "account_id", accountID,
		"kind", kind, "size", size, "thumbnail", thumbURL != "")

	return created, nil
}

// deriveThumbnail generates and stores a preview for an image payload.
// Failures are logged and recorded but never fail the upload.
func (s *AssetService) deriveThumbnail(ctx context.Context, key string, fileBytes []byte) (string, string) {
	preview, err := s.thumbs.Generate(fileBytes)
	if err != nil {
		s.recorder.RecordThumbnailFailure()
		s.logger.Warn(ctx, "thumbnail derivation failed", "key", key, "error", err)
		return "", ""
	}

	thumbKey := key + ".thumb.jpg"
	thumbURL, err := s.blobs.Put(ctx, bytes.NewReader(preview), thumbKey, thumbnailContentType)
	if err != nil {
		s.recorder.RecordThumbnailFailure()
		s.logger.Warn(ctx, "thumbnail upload failed", "key", thumbKey, "error", err)
		return "", ""
	}

	return thumbKey, thumbURL
}

// compensateBlobWrites removes objects written during a failed ingest. Blob
// deletion is idempotent, so the sweep is safe even if a write never landed.
func (s *AssetService) compensateBlobWrites(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Error(ctx, "compensating blob delete failed, object orphaned", "key", key, "error", err)
		}
	}
}

// Search returns the account's assets whose filename, description, or any
// tag contains the query text (case-insensitive substring match), newest
// first, plus the total match count.
func (s *AssetService) Search(ctx context.Context, accountID string, query string, page, pageSize int) ([]*models.MediaAsset, int64, error) {
	page, pageSize = clampPagination(page, pageSize)

	items, total, err := s.repos.Assets(s.db).Search(ctx, accountID, query, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("searching assets: %w", err)
	}
	return items, total, nil
}

// List returns a page of the account's assets, newest first, optionally
// restricted to one media kind.
func (s *AssetService) List(ctx context.Context, accountID string, page, pageSize int, kind models.MediaKind) ([]*models.MediaAsset, int64, error) {
	page, pageSize = clampPagination(page, pageSize)

	items, total, err := s.repos.Assets(s.db).ListByOwner(ctx, accountID, page, pageSize, kind)
	if err != nil {
		return nil, 0, fmt.Errorf("listing assets: %w", err)
	}
	return items, total, nil
}

// Get returns one asset after the ownership check. A missing asset yields
// common.ErrorNotFound; an asset owned by a different account yields
// common.ErrForbidden — the two are distinguishable.
func (s *AssetService) Get(ctx context.Context, accountID string, assetID string) (*models.MediaAsset, error) {
	return s.getOwned(ctx, accountID, assetID)
}

// Update changes description and/or tags (nil means leave unchanged) and
// refreshes the updated timestamp. Kind, size, and storage references are
// never mutable.
func (s *AssetService) Update(ctx context.Context, accountID string, assetID string, changes *models.MediaAssetChanges) (*models.MediaAsset, error) {
	if _, err := s.getOwned(ctx, accountID, assetID); err != nil {
		return nil, err
	}

	updated, err := s.repos.Assets(s.db).Update(ctx, assetID, accountID, changes)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Deleted between the ownership check and the write.
			return nil, err
		}
		return nil, fmt.Errorf("updating asset: %w", err)
	}

	return updated, nil
}

// Delete removes the stored object(s) and then the metadata record. Blob
// deletions are best-effort and logged; the metadata delete is mandatory.
func (s *AssetService) Delete(ctx context.Context, accountID string, assetID string) error {
	asset, err := s.getOwned(ctx, accountID, assetID)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, asset.StorageKey); err != nil {
		s.logger.Warn(ctx, "primary blob delete failed", "key", asset.StorageKey, "error", err)
	}
	if asset.ThumbnailKey != "" {
		if err := s.blobs.Delete(ctx, asset.ThumbnailKey); err != nil {
			s.logger.Warn(ctx, "thumbnail blob delete failed", "key", asset.ThumbnailKey, "error", err)
		}
	}

	if err := s.repos.Assets(s.db).Delete(ctx, assetID, accountID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("deleting asset: %w", err)
	}

	s.logger.Info(ctx, "asset deleted", "asset_id", assetID, "account_id", accountID)
	return nil
}

// --- helpers below ---

func (s *AssetService) getOwned(ctx context.Context, accountID string, assetID string) (*models.MediaAsset, error) {
	asset, err := s.repos.Assets(s.db).GetByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("loading asset: %w", err)
	}

	if asset.AccountID != accountID {
		return nil, common.ErrForbidden
	}

	return asset, nil
}

func classifyContentType(contentType string) (models.MediaKind, error) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.MediaKindImage, nil
	case strings.HasPrefix(contentType, "video/"):
		return models.MediaKindVideo, nil
	default:
		return "", fmt.Errorf("%w: %q", common.ErrUnsupportedType, contentType)
	}
}

// parseTags decodes the optional tags payload, which must be a JSON array
// of strings. An empty payload means no tags.
func parseTags(payload string) ([]string, error) {
	if payload == "" {
		return nil, nil
	}

	var tags []string
	if err := json.Unmarshal([]byte(payload), &tags); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrBadTagFormat, err)
	}
	return tags, nil
}

func storageKey(accountID, assetID, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, `/`))
	return fmt.Sprintf("accounts/%s/%s_%s", accountID, assetID, base)
}

func clampPagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
