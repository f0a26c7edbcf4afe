package api

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oceandive/backend/errs"
	"github.com/oceandive/backend/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Stored names are opaque uuids, so a blob never changes under its URL and
// browsers may cache it indefinitely
const cacheForAYear = 31536000

type assetHandler struct {
	responder Responder
	logger    zerolog.Logger
	provider  storage.Provider
}

func newAssetHandler(provider storage.Provider) assetHandler {
	logger := log.With().Str("handlerName", "assetHandler").Logger()

	return assetHandler{
		responder: NewResponder(logger),
		logger:    logger,
		provider:  provider,
	}
}

// serveBlogImage streams a stored blog image. The route path mirrors the URL
// the upload endpoint hands back, so an image block's url field resolves
// against this handler as-is.
func (h assetHandler) serveBlogImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
			h.responder.WriteError(w, errs.NewNotFoundError("image not found"))
			return
		}

		key := path.Join("blogs", name)
		if !h.provider.Exists(r.Context(), key) {
			h.responder.WriteError(w, errs.NewNotFoundError("image not found"))
			return
		}

		reader, err := h.provider.Open(r.Context(), key)
		if err != nil {
			h.responder.WriteError(w, errs.NewStorageReadError(key, err))
			return
		}
		defer reader.Close()

		contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, immutable", cacheForAYear))

		if _, err := io.Copy(w, reader); err != nil {
			h.logger.Error().Err(err).Str("key", key).Msg("error streaming image")
		}
	}
}
