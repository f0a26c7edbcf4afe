package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oceandive/backend/database"
	"github.com/oceandive/backend/models"
	"github.com/oceandive/backend/services"
	"github.com/oceandive/backend/storage"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret-key"

func setupTestServer(t *testing.T) (*chi.Mux, *database.BlogPostRepo) {
	t.Helper()
	return setupTestServerConfig(t, nil)
}

func setupTestServerConfig(t *testing.T, extra map[string]string) (*chi.Mux, *database.BlogPostRepo) {
	t.Helper()

	dsn := fmt.Sprintf("file:blogapi-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	currentDB := database.New(db)
	provider := storage.NewLocalStore(t.TempDir())
	uploader := services.NewImageUploader(provider)

	conf := map[string]string{
		"SECRET_KEY":       testSecret,
		"ACCEPTED_ORIGINS": "*",
	}
	for key, value := range extra {
		conf[key] = value
	}

	router := newRouter(currentDB, uploader, provider, withConfig(conf))

	return router, currentDB.BlogPostRepo()
}

func signToken(t *testing.T, role string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   1,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func validCreateBody() map[string]any {
	return map[string]any{
		"title":   "Night Diving Basics",
		"subject": "Diving",
		"content": []map[string]any{
			{"type": "text", "content": "intro"},
			{"type": "image", "url": "/storage/blogs/reef.jpg", "alt": "a reef"},
		},
		"tags": []string{"night", "beginners"},
	}
}

func TestMutationsRequireAdminToken(t *testing.T) {
	router, _ := setupTestServer(t)

	// No token at all
	rec := doJSON(t, router, http.MethodPost, "/blogs", "", validCreateBody())
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}

	// Valid token, wrong role
	rec = doJSON(t, router, http.MethodPost, "/blogs", signToken(t, "editor"), validCreateBody())
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin token: status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/blogs/1", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("delete without token: status = %d, want 401", rec.Code)
	}
}

func TestCreateBlog(t *testing.T) {
	router, repo := setupTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/blogs", signToken(t, "admin"), validCreateBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	body := decodeBody(t, rec)
	if body["title"] != "Night Diving Basics" {
		t.Errorf("title = %v", body["title"])
	}
	content, ok := body["content"].([]any)
	if !ok || len(content) != 2 {
		t.Fatalf("content = %v", body["content"])
	}

	posts, err := repo.FindAll(0, 100)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 persisted post, got %d", len(posts))
	}
}

func TestCreateBlogInvalidBlockPersistsNothing(t *testing.T) {
	router, repo := setupTestServer(t)

	body := validCreateBody()
	body["content"] = []map[string]any{
		{"type": "text", "content": "fine"},
		{"type": "image", "url": "https://elsewhere.example/pic.jpg"},
	}

	rec := doJSON(t, router, http.MethodPost, "/blogs", signToken(t, "admin"), body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	resp := decodeBody(t, rec)
	if resp["field"] != "content[1].url" {
		t.Errorf("field = %v, want content[1].url", resp["field"])
	}

	posts, err := repo.FindAll(0, 100)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("invalid request persisted %d posts", len(posts))
	}
}

func TestCreateBlogUnknownBlockTypeRejected(t *testing.T) {
	router, _ := setupTestServer(t)

	body := validCreateBody()
	body["content"] = []map[string]any{
		{"type": "video", "src": "x"},
	}

	rec := doJSON(t, router, http.MethodPost, "/blogs", signToken(t, "admin"), body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	if resp["field"] != "content[0].type" {
		t.Errorf("field = %v, want content[0].type", resp["field"])
	}
}

func TestCreateBlogDuplicateTitleConflicts(t *testing.T) {
	router, _ := setupTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/blogs", signToken(t, "admin"), validCreateBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("first create: status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/blogs", signToken(t, "admin"), validCreateBody())
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate create: status = %d, want 409", rec.Code)
	}
}

func TestListBlogsOmitsContentKey(t *testing.T) {
	router, _ := setupTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/blogs", signToken(t, "admin"), validCreateBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/blogs", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}

	var summaries []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if _, present := summaries[0]["content"]; present {
		t.Error("summary leaked the content field")
	}
	tags, ok := summaries[0]["tags"].([]any)
	if !ok || len(tags) != 2 {
		t.Errorf("summary tags = %v", summaries[0]["tags"])
	}
}

func TestGetBlogByIDPreservesBlockOrder(t *testing.T) {
	router, _ := setupTestServer(t)

	body := validCreateBody()
	body["content"] = []map[string]any{
		{"type": "text", "content": "first"},
		{"type": "text", "content": "second"},
		{"type": "image", "url": "/storage/blogs/a.png"},
		{"type": "text", "content": "third"},
	}
	rec := doJSON(t, router, http.MethodPost, "/blogs", signToken(t, "admin"), body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}
	created := decodeBody(t, rec)
	id := int(created["id"].(float64))

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/blogs/id/%d", id), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rec.Code)
	}
	detail := decodeBody(t, rec)
	content := detail["content"].([]any)
	if len(content) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(content))
	}
	want := []string{"first", "second", "", "third"}
	for i, raw := range content {
		block := raw.(map[string]any)
		if want[i] == "" {
			if block["type"] != "image" {
				t.Errorf("block %d type = %v, want image", i, block["type"])
			}
			continue
		}
		if block["content"] != want[i] {
			t.Errorf("block %d content = %v, want %q", i, block["content"], want[i])
		}
	}
}

func TestGetBlogByTitle(t *testing.T) {
	router, _ := setupTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/blogs", signToken(t, "admin"), validCreateBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/blogs/title/Night%20Diving%20Basics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get by title: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/blogs/title/Missing%20Post", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing title: status = %d, want 404", rec.Code)
	}
}

func TestUpdateBlogPartial(t *testing.T) {
	router, repo := setupTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/blogs", signToken(t, "admin"), validCreateBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}
	created := decodeBody(t, rec)
	id := int(created["id"].(float64))

	// Replace only the tags; everything else must survive
	rec = doJSON(t, router, http.MethodPut, fmt.Sprintf("/blogs/%d", id), signToken(t, "admin"), map[string]any{
		"tags": []string{"updated"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	post, err := repo.FindByID(uint(id))
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if post.Title != "Night Diving Basics" {
		t.Errorf("title changed to %q", post.Title)
	}
	if len(post.Content) != 2 {
		t.Errorf("content changed, %d blocks", len(post.Content))
	}
	tags := post.TagValues()
	if len(tags) != 1 || tags[0] != "updated" {
		t.Errorf("tags = %v, want [updated]", tags)
	}
}

func TestUpdateBlogInvalidContentRejected(t *testing.T) {
	router, repo := setupTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/blogs", signToken(t, "admin"), validCreateBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}
	created := decodeBody(t, rec)
	id := int(created["id"].(float64))

	rec = doJSON(t, router, http.MethodPut, fmt.Sprintf("/blogs/%d", id), signToken(t, "admin"), map[string]any{
		"content": []map[string]any{{"type": "text", "content": ""}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("update: status = %d, want 400", rec.Code)
	}

	post, err := repo.FindByID(uint(id))
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if len(post.Content) != 2 {
		t.Errorf("rejected update still mutated content: %d blocks", len(post.Content))
	}
}

func TestUpdateMissingBlogNotFound(t *testing.T) {
	router, _ := setupTestServer(t)

	rec := doJSON(t, router, http.MethodPut, "/blogs/9999", signToken(t, "admin"), map[string]any{
		"subject": "whatever",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	router, _ := setupTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/blogs", signToken(t, "admin"), validCreateBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}

	// Empty query is a client error, not match-everything
	rec = doJSON(t, router, http.MethodGet, "/blogs/search?q=", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty query: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/blogs/search?q=night", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search: status = %d", rec.Code)
	}
	var results []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("failed to decode results: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
}

func TestListBlogsByTag(t *testing.T) {
	router, _ := setupTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/blogs", signToken(t, "admin"), validCreateBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/blogs/tag/night", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("by tag: status = %d", rec.Code)
	}
	var results []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("failed to decode results: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}

	rec = doJSON(t, router, http.MethodGet, "/blogs/tag/unknown", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unknown tag: status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("failed to decode results: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("unknown tag matched %d posts", len(results))
	}
}

func TestListAllTags(t *testing.T) {
	router, _ := setupTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/blogs", signToken(t, "admin"), validCreateBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/blogs/tags", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("tags: status = %d", rec.Code)
	}
	var tags []string
	if err := json.Unmarshal(rec.Body.Bytes(), &tags); err != nil {
		t.Fatalf("failed to decode tags: %v", err)
	}
	if len(tags) != 2 || tags[0] != "beginners" || tags[1] != "night" {
		t.Errorf("tags = %v, want [beginners night]", tags)
	}
}

func TestDeleteBlog(t *testing.T) {
	router, repo := setupTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/blogs", signToken(t, "admin"), validCreateBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}
	created := decodeBody(t, rec)
	id := int(created["id"].(float64))

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/blogs/%d", id), signToken(t, "admin"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	post, err := repo.FindByID(uint(id))
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if post != nil {
		t.Error("post still present after delete")
	}

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/blogs/%d", id), signToken(t, "admin"), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", rec.Code)
	}
}

func TestUploadImage(t *testing.T) {
	router, _ := setupTestServer(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", "reef.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte("not-really-a-png")); err != nil {
		t.Fatalf("writing part: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/blogs/upload-image", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+signToken(t, "admin"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	url, _ := body["url"].(string)
	if !strings.HasPrefix(url, models.ImageURLPrefix) {
		t.Errorf("url = %q, want %s prefix", url, models.ImageURLPrefix)
	}
	if body["filename"] != "reef.png" {
		t.Errorf("filename = %v", body["filename"])
	}

	// The returned URL must be usable as an image block url
	if err := models.ValidateBlocks(models.BlockList{models.ImageBlock(url, "", "")}); err != nil {
		t.Errorf("returned URL fails block validation: %v", err)
	}

	// And it must resolve: the bytes just uploaded come back through the
	// public asset route
	getRec := doJSON(t, router, http.MethodGet, url, "", nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("GET %s: status = %d, body = %s", url, getRec.Code, getRec.Body.String())
	}
	if got := getRec.Body.String(); got != "not-really-a-png" {
		t.Errorf("served bytes = %q, want the uploaded bytes", got)
	}
	if ct := getRec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
}

func TestServeMissingImageNotFound(t *testing.T) {
	router, _ := setupTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/storage/blogs/no-such-image.png", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing image: status = %d, want 404", rec.Code)
	}
}

func TestUploadLimitConfigured(t *testing.T) {
	router, _ := setupTestServerConfig(t, map[string]string{"MAX_UPLOAD_BYTES": "16"})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", "big.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write(bytes.Repeat([]byte("x"), 1024))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/blogs/upload-image", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+signToken(t, "admin"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("oversized upload: status = %d, want 400", rec.Code)
	}
}

func TestUploadImageRejectsUnsupportedType(t *testing.T) {
	router, _ := setupTestServer(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", "scan.tiff")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write([]byte("tiff-bytes"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/blogs/upload-image", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+signToken(t, "admin"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("tiff upload: status = %d, want 400", rec.Code)
	}
}

func TestPaginationValidation(t *testing.T) {
	router, _ := setupTestServer(t)

	for _, path := range []string{
		"/blogs?skip=-1",
		"/blogs?limit=0",
		"/blogs?limit=101",
		"/blogs?skip=abc",
	} {
		rec := doJSON(t, router, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
	}
}
