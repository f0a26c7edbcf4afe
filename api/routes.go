package api

import (
	"github.com/go-chi/chi/v5"
)

// setupBlogRoutes sets up the public read endpoints and the admin-gated
// mutation endpoints
func setupBlogRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware) {
	// Public read endpoints
	r.Group(func(r chi.Router) {
		r.Use(httpLoggingMiddleware)

		r.Get("/blogs", handlers.blogHandler.listBlogs())
		r.Get("/blogs/id/{blogID}", handlers.blogHandler.getBlogByID())
		r.Get("/blogs/title/{title}", handlers.blogHandler.getBlogByTitle())
		r.Get("/blogs/tag/{tag}", handlers.blogHandler.listBlogsByTag())
		r.Get("/blogs/search", handlers.blogHandler.searchBlogs())
		r.Get("/blogs/tags", handlers.blogHandler.listAllTags())

		// Serves the URLs handed back by the upload endpoint
		r.Get("/storage/blogs/{name}", handlers.assetHandler.serveBlogImage())
	})

	// Admin-only mutation endpoints
	r.Group(func(r chi.Router) {
		r.Use(httpLoggingMiddleware)
		r.Use(authMiddleware.requireAdmin)

		r.Post("/blogs", handlers.blogHandler.createBlog())
		r.Put("/blogs/{blogID}", handlers.blogHandler.updateBlog())
		r.Delete("/blogs/{blogID}", handlers.blogHandler.deleteBlog())
		r.Post("/blogs/upload-image", handlers.uploadHandler.uploadImage())
	})
}
