package api

import (
	"github.com/oceandive/backend/database"
	"github.com/oceandive/backend/services"
	"github.com/oceandive/backend/storage"
)

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(database database.Database, uploader *services.ImageUploader, provider storage.Provider, maxUploadBytes int64) *routeHandlers {
	return &routeHandlers{
		blogHandler:   newBlogHandler(database.BlogPostRepo()),
		uploadHandler: newUploadHandler(uploader, maxUploadBytes),
		assetHandler:  newAssetHandler(provider),
	}
}
