package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oceandive/backend/database"
	"github.com/oceandive/backend/errs"
	"github.com/oceandive/backend/models"
	"github.com/oceandive/backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 100
)

type blogHandler struct {
	responder    Responder
	logger       zerolog.Logger
	blogPostRepo *database.BlogPostRepo
}

func newBlogHandler(blogPostRepo *database.BlogPostRepo) blogHandler {
	logger := log.With().Str("handlerName", "blogHandler").Logger()

	return blogHandler{
		responder:    NewResponder(logger),
		logger:       logger,
		blogPostRepo: blogPostRepo,
	}
}

// blogDetail is the full read shape: the aggregate including the decoded
// content array in original order.
type blogDetail struct {
	ID            uint             `json:"id"`
	Title         string           `json:"title"`
	Subject       string           `json:"subject"`
	FeaturedImage *string          `json:"featured_image,omitempty"`
	Content       models.BlockList `json:"content"`
	Tags          []string         `json:"tags"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// blogSummary is the list-view shape. It has no content field at all, so a
// summary can never leak the block array no matter how it is serialized.
type blogSummary struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Subject       string    `json:"subject"`
	FeaturedImage *string   `json:"featured_image,omitempty"`
	Tags          []string  `json:"tags"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toBlogDetail(post *models.BlogPost) blogDetail {
	content := post.Content
	if content == nil {
		content = models.BlockList{}
	}
	return blogDetail{
		ID:            post.ID,
		Title:         post.Title,
		Subject:       post.Subject,
		FeaturedImage: post.FeaturedImage,
		Content:       content,
		Tags:          post.TagValues(),
		CreatedAt:     post.CreatedAt,
		UpdatedAt:     post.UpdatedAt,
	}
}

func toBlogSummaries(posts []*models.BlogPost) []blogSummary {
	summaries := make([]blogSummary, 0, len(posts))
	for _, post := range posts {
		summaries = append(summaries, blogSummary{
			ID:            post.ID,
			Title:         post.Title,
			Subject:       post.Subject,
			FeaturedImage: post.FeaturedImage,
			Tags:          post.TagValues(),
			CreatedAt:     post.CreatedAt,
			UpdatedAt:     post.UpdatedAt,
		})
	}
	return summaries
}

type blogCreateRequest struct {
	Title         string           `json:"title"`
	Subject       string           `json:"subject"`
	FeaturedImage *string          `json:"featured_image"`
	Content       models.BlockList `json:"content"`
	Tags          []string         `json:"tags"`
}

// blogUpdateRequest uses pointer fields for partial replacement semantics:
// a field absent from the request leaves the stored value unchanged, a field
// present replaces it wholesale. There is no block-level patching.
type blogUpdateRequest struct {
	Title         *string           `json:"title"`
	Subject       *string           `json:"subject"`
	FeaturedImage *string           `json:"featured_image"`
	Content       *models.BlockList `json:"content"`
	Tags          *[]string         `json:"tags"`
}

// parsePagination reads skip/limit query parameters. skip must be >= 0 and
// limit between 1 and 100; out-of-range values are a client error.
func parsePagination(r *http.Request) (skip, limit int, err error) {
	skip, limit = 0, defaultPageLimit

	if s := r.URL.Query().Get("skip"); s != "" {
		skip, err = strconv.Atoi(s)
		if err != nil || skip < 0 {
			return 0, 0, errs.NewBadRequestErrorWithField("invalid query parameter", "skip", "skip must be a non-negative integer")
		}
	}

	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 1 || limit > maxPageLimit {
			return 0, 0, errs.NewBadRequestErrorWithField("invalid query parameter", "limit",
				"limit must be between 1 and "+strconv.Itoa(maxPageLimit))
		}
	}

	return skip, limit, nil
}

func parseBlogID(r *http.Request) (uint, error) {
	idStr := chi.URLParam(r, "blogID")
	if idStr == "" {
		return 0, errs.NewBadRequestError("missing blogID")
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, errs.NewBadRequestError("invalid blogID")
	}
	return uint(id), nil
}

// listBlogs returns summary projections of all posts, paginated
func (h blogHandler) listBlogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip, limit, err := parsePagination(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		posts, err := h.blogPostRepo.FindAll(skip, limit)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("list blog posts", "blog posts", err))
			return
		}

		h.responder.WriteJSON(w, toBlogSummaries(posts))
	}
}

// getBlogByID returns the full detail projection for one post
func (h blogHandler) getBlogByID() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseBlogID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		post, err := h.blogPostRepo.FindByID(id)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find blog post", "blog post", err))
			return
		}
		if post == nil {
			h.responder.WriteError(w, errs.NewNotFoundError("blog post "+strconv.FormatUint(uint64(id), 10)+" not found"))
			return
		}

		h.responder.WriteJSON(w, toBlogDetail(post))
	}
}

// getBlogByTitle returns the detail projection for an exact title match.
// Titles are unique, so the lookup is unambiguous.
func (h blogHandler) getBlogByTitle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		title := chi.URLParam(r, "title")
		if title == "" {
			h.responder.WriteError(w, errs.NewBadRequestError("missing title"))
			return
		}

		post, err := h.blogPostRepo.FindByTitle(title)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find blog post", "blog post", err))
			return
		}
		if post == nil {
			h.responder.WriteError(w, errs.NewNotFoundError("blog post with title '"+title+"' not found"))
			return
		}

		h.responder.WriteJSON(w, toBlogDetail(post))
	}
}

// listBlogsByTag returns summary projections of posts carrying the tag
func (h blogHandler) listBlogsByTag() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tag := chi.URLParam(r, "tag")
		if tag == "" {
			h.responder.WriteError(w, errs.NewBadRequestError("missing tag"))
			return
		}

		skip, limit, err := parsePagination(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		posts, err := h.blogPostRepo.FindByTag(tag, skip, limit)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("list blog posts by tag", "blog posts", err))
			return
		}

		h.responder.WriteJSON(w, toBlogSummaries(posts))
	}
}

// searchBlogs matches the query case-insensitively against title or subject.
// An empty query is rejected rather than matching everything.
func (h blogHandler) searchBlogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if strings.TrimSpace(query) == "" {
			h.responder.WriteError(w, errs.NewBadRequestErrorWithField("missing required field", "q", "search query must not be empty"))
			return
		}

		skip, limit, err := parsePagination(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		posts, err := h.blogPostRepo.Search(query, skip, limit)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("search blog posts", "blog posts", err))
			return
		}

		h.responder.WriteJSON(w, toBlogSummaries(posts))
	}
}

// listAllTags returns the distinct tag values across all posts
func (h blogHandler) listAllTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := h.blogPostRepo.AllTags()
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("list tags", "blog tags", err))
			return
		}

		h.responder.WriteJSON(w, tags)
	}
}

// createBlog creates a new blog post. Validation of the whole block array
// completes before any persistence is attempted.
func (h blogHandler) createBlog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req blogCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Error().Err(err).Msg("Failed to decode blog create request body")
			h.responder.WriteError(w, errs.NewBadRequestError("malformed request body"))
			return
		}

		if req.Title == "" {
			h.responder.WriteError(w, errs.NewBadRequestErrorWithField("missing required field", "title", "title is required"))
			return
		}
		if req.Subject == "" {
			h.responder.WriteError(w, errs.NewBadRequestErrorWithField("missing required field", "subject", "subject is required"))
			return
		}
		if err := models.ValidateBlocks(req.Content); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		existing, err := h.blogPostRepo.FindByTitle(req.Title)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find blog post", "blog post", err))
			return
		}
		if existing != nil {
			h.responder.WriteError(w, errs.NewAlreadyExists("blog post with title '"+req.Title+"'"))
			return
		}

		post := models.BlogPost{
			Title:         req.Title,
			Subject:       req.Subject,
			FeaturedImage: req.FeaturedImage,
			Content:       req.Content,
		}
		post.SetTags(services.NormalizeTags(req.Tags))

		if err := h.blogPostRepo.Add(&post); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("create blog post", "blog post", err))
			return
		}

		created, err := h.blogPostRepo.FindByID(post.ID)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find created blog post", "blog post", err))
			return
		}

		adminID, _ := ctxGetAdminID(r.Context())
		h.logger.Info().Str("adminID", adminID).Uint("blogID", post.ID).Msg("blog post created")

		h.responder.WriteJSONStatus(w, http.StatusCreated, toBlogDetail(created))
	}
}

// updateBlog applies partial replacement per field: absent fields keep their
// stored value, present fields replace it wholesale and are re-validated.
func (h blogHandler) updateBlog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseBlogID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		post, err := h.blogPostRepo.FindByID(id)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find blog post", "blog post", err))
			return
		}
		if post == nil {
			h.responder.WriteError(w, errs.NewNotFoundError("blog post "+strconv.FormatUint(uint64(id), 10)+" not found"))
			return
		}

		var req blogUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Error().Err(err).Msg("Failed to decode blog update request body")
			h.responder.WriteError(w, errs.NewBadRequestError("malformed request body"))
			return
		}

		if req.Title != nil {
			if *req.Title == "" {
				h.responder.WriteError(w, errs.NewBadRequestErrorWithField("invalid field", "title", "title must not be empty"))
				return
			}
			if *req.Title != post.Title {
				conflict, err := h.blogPostRepo.FindByTitle(*req.Title)
				if err != nil {
					h.responder.WriteError(w, wrapDatabaseError("find blog post", "blog post", err))
					return
				}
				if conflict != nil {
					h.responder.WriteError(w, errs.NewAlreadyExists("blog post with title '"+*req.Title+"'"))
					return
				}
			}
			post.Title = *req.Title
		}

		if req.Subject != nil {
			if *req.Subject == "" {
				h.responder.WriteError(w, errs.NewBadRequestErrorWithField("invalid field", "subject", "subject must not be empty"))
				return
			}
			post.Subject = *req.Subject
		}

		if req.FeaturedImage != nil {
			post.FeaturedImage = req.FeaturedImage
		}

		if req.Content != nil {
			if err := models.ValidateBlocks(*req.Content); err != nil {
				h.responder.WriteError(w, err)
				return
			}
			post.Content = *req.Content
		}

		replaceTags := req.Tags != nil
		if replaceTags {
			post.SetTags(services.NormalizeTags(*req.Tags))
		}

		if err := h.blogPostRepo.Update(post, replaceTags); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("update blog post", "blog post", err))
			return
		}

		updated, err := h.blogPostRepo.FindByID(id)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find updated blog post", "blog post", err))
			return
		}

		adminID, _ := ctxGetAdminID(r.Context())
		h.logger.Info().Str("adminID", adminID).Uint("blogID", id).Msg("blog post updated")

		h.responder.WriteJSON(w, toBlogDetail(updated))
	}
}

// deleteBlog removes a post. Deleting an absent id is a 404, never a silent
// success. Referenced image bytes stay in blob storage.
func (h blogHandler) deleteBlog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseBlogID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if err := h.blogPostRepo.Delete(id); err != nil {
			if errs.IsNotFound(err) {
				h.responder.WriteError(w, err)
				return
			}
			h.responder.WriteError(w, wrapDatabaseError("delete blog post", "blog post", err))
			return
		}

		adminID, _ := ctxGetAdminID(r.Context())
		h.logger.Info().Str("adminID", adminID).Uint("blogID", id).Msg("blog post deleted")

		h.responder.WriteJSON(w, map[string]string{
			"status":  "success",
			"message": "blog post deleted successfully",
		})
	}
}

// wrapDatabaseError wraps a database error with context information
func wrapDatabaseError(operation, entity string, cause error) error {
	return errs.NewDatabaseError(operation, entity, cause)
}
