package models

import "time"

// MediaKind classifies an asset by its declared content type.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// MediaAsset describes one uploaded media file. The binary payload itself
// lives in object storage under StorageKey; ThumbnailKey/ThumbnailURL are
// set only for image assets whose thumbnail derivation succeeded.
//
// AccountID is immutable after creation. Only Description and Tags may be
// changed through the catalog update operation.
type MediaAsset struct {
	ID               string
	AccountID        string
	StorageKey       string
	OriginalFileName string
	MediaKind        MediaKind
	FileSize         int64
	ContentType      string
	BlobURL          string
	ThumbnailKey     string
	ThumbnailURL     string
	Description      *string
	Tags             []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// MediaAssetView is the public projection of a MediaAsset returned to
// clients. Storage keys stay internal; only resolvable URLs are exposed.
type MediaAssetView struct {
	ID               string    `json:"id"`
	OriginalFileName string    `json:"originalFileName"`
	MediaKind        MediaKind `json:"mediaType"`
	FileSize         int64     `json:"fileSize"`
	ContentType      string    `json:"mimeType"`
	BlobURL          string    `json:"blobUrl"`
	ThumbnailURL     string    `json:"thumbnailUrl,omitempty"`
	Description      *string   `json:"description"`
	Tags             []string  `json:"tags"`
	CreatedAt        time.Time `json:"uploadedAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// View returns the public projection of the asset.
func (m *MediaAsset) View() *MediaAssetView {
	return &MediaAssetView{
		ID:               m.ID,
		OriginalFileName: m.OriginalFileName,
		MediaKind:        m.MediaKind,
		FileSize:         m.FileSize,
		ContentType:      m.ContentType,
		BlobURL:          m.BlobURL,
		ThumbnailURL:     m.ThumbnailURL,
		Description:      m.Description,
		Tags:             m.Tags,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// MediaAssetChanges lists the mutable fields of an asset. Nil pointers mean
// "leave unchanged".
type MediaAssetChanges struct {
	Description *string
	Tags        *[]string
}
