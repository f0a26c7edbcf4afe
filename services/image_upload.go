package services

import (
	"context"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/oceandive/backend/errs"
	"github.com/oceandive/backend/models"
	"github.com/oceandive/backend/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// allowedImageExtensions is the case-insensitive extension allow-list for
// blog image uploads.
var allowedImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp"}

// blogNamespace is the fixed logical namespace blog images are written
// under in blob storage.
const blogNamespace = "blogs"

// UploadResult is what the ingestion pipeline hands back to the client: the
// canonical reference URL content blocks may use, plus the original filename
// for display only. The filename is never used as a storage key.
type UploadResult struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// ImageUploader validates uploaded images, assigns them opaque names, and
// persists the bytes via the blob-storage collaborator. It has no knowledge
// of which blog post, if any, will reference the result.
type ImageUploader struct {
	provider storage.Provider
	logger   zerolog.Logger
}

func NewImageUploader(provider storage.Provider) *ImageUploader {
	return &ImageUploader{
		provider: provider,
		logger:   log.With().Str("serviceName", "imageUploader").Logger(),
	}
}

// Upload validates the declared filename's extension, writes the bytes under
// a collision-resistant name, and returns the canonical URL. The write is
// not retried here; a failure surfaces once and the caller decides whether
// to retry the whole upload.
func (u *ImageUploader) Upload(ctx context.Context, filename string, body io.Reader) (UploadResult, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !extensionAllowed(ext) {
		return UploadResult{}, errs.NewUnsupportedImageTypeError(ext, allowedImageExtensions)
	}

	// Random name: avoids collisions and keeps the original filename out
	// of the public identity.
	name := uuid.New().String() + ext
	key := path.Join(blogNamespace, name)

	if err := u.provider.Save(ctx, key, body); err != nil {
		u.logger.Error().Err(err).Str("key", key).Msg("blob write failed")
		return UploadResult{}, errs.NewStorageWriteError(key, err)
	}

	return UploadResult{
		URL:      models.ImageURLPrefix + name,
		Filename: filename,
	}, nil
}

func extensionAllowed(ext string) bool {
	for _, allowed := range allowedImageExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
