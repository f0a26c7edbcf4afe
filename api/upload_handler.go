package api

import (
	"net/http"

	"github.com/oceandive/backend/errs"
	"github.com/oceandive/backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Default upload bound, well above any reasonable blog image
const defaultMaxUploadBytes = 32 << 20

type uploadHandler struct {
	responder Responder
	logger    zerolog.Logger
	uploader  *services.ImageUploader
	maxBytes  int64
}

func newUploadHandler(uploader *services.ImageUploader, maxBytes int64) uploadHandler {
	logger := log.With().Str("handlerName", "uploadHandler").Logger()

	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}

	return uploadHandler{
		responder: NewResponder(logger),
		logger:    logger,
		uploader:  uploader,
		maxBytes:  maxBytes,
	}
}

// uploadImage accepts a multipart form with an "image" part, stores the bytes
// under a generated name, and returns the serving URL. The returned URL is
// exactly what an image block's url field expects.
func (h uploadHandler) uploadImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

		if err := r.ParseMultipartForm(h.maxBytes); err != nil {
			h.logger.Error().Err(err).Msg("Failed to parse multipart upload form")
			h.responder.WriteError(w, errs.NewBadRequestError("malformed multipart form"))
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			h.responder.WriteError(w, errs.NewBadRequestErrorWithField("missing required field", "image", "an image file part is required"))
			return
		}
		defer file.Close()

		result, err := h.uploader.Upload(r.Context(), header.Filename, file)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		adminID, _ := ctxGetAdminID(r.Context())
		h.logger.Info().Str("adminID", adminID).Str("url", result.URL).Msg("image uploaded")

		h.responder.WriteJSONStatus(w, http.StatusCreated, result)
	}
}
