package database

import (
	"errors"
	"strings"

	"github.com/oceandive/backend/errs"
	"github.com/oceandive/backend/models"
	"gorm.io/gorm"
)

// summaryColumns are the fields of the summary projection. Content is
// deliberately absent: list views never load the block array.
var summaryColumns = []string{
	"blog_posts.id",
	"blog_posts.title",
	"blog_posts.subject",
	"blog_posts.featured_image",
	"blog_posts.created_at",
	"blog_posts.updated_at",
}

type BlogPostRepo struct {
	db *gorm.DB
}

func NewBlogPostRepo(db *gorm.DB) *BlogPostRepo {
	return &BlogPostRepo{db}
}

func orderedTags(db *gorm.DB) *gorm.DB {
	return db.Order("blog_tags.position")
}

// FindAll returns summary projections of all blog posts in id order,
// paginated by offset/limit.
func (r *BlogPostRepo) FindAll(offset, limit int) ([]*models.BlogPost, error) {
	var posts []*models.BlogPost
	err := r.db.
		Select(summaryColumns).
		Order("blog_posts.id").
		Offset(offset).
		Limit(limit).
		Preload("Tags", orderedTags).
		Find(&posts).Error
	return posts, err
}

// FindByID returns the full aggregate, or (nil, nil) when no post has the id.
func (r *BlogPostRepo) FindByID(id uint) (*models.BlogPost, error) {
	var post models.BlogPost
	err := r.db.Preload("Tags", orderedTags).First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// FindByTitle returns the full aggregate for an exact title match, or
// (nil, nil) when absent. Titles carry a unique index, so at most one row
// can match.
func (r *BlogPostRepo) FindByTitle(title string) (*models.BlogPost, error) {
	var post models.BlogPost
	err := r.db.Preload("Tags", orderedTags).Where("title = ?", title).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// FindByTag returns summary projections of posts carrying the tag, in id
// order.
func (r *BlogPostRepo) FindByTag(tag string, offset, limit int) ([]*models.BlogPost, error) {
	var posts []*models.BlogPost
	err := r.db.
		Select(summaryColumns).
		Joins("JOIN blog_tags ON blog_tags.blog_post_id = blog_posts.id").
		Where("blog_tags.value = ?", tag).
		Order("blog_posts.id").
		Offset(offset).
		Limit(limit).
		Preload("Tags", orderedTags).
		Find(&posts).Error
	return posts, err
}

// Search returns summary projections whose title or subject contains the
// query, case-insensitively. An empty query matches nothing.
func (r *BlogPostRepo) Search(query string, offset, limit int) ([]*models.BlogPost, error) {
	if query == "" {
		return []*models.BlogPost{}, nil
	}

	pattern := "%" + strings.ToLower(query) + "%"
	var posts []*models.BlogPost
	err := r.db.
		Select(summaryColumns).
		Where("LOWER(title) LIKE ? OR LOWER(subject) LIKE ?", pattern, pattern).
		Order("blog_posts.id").
		Offset(offset).
		Limit(limit).
		Preload("Tags", orderedTags).
		Find(&posts).Error
	return posts, err
}

// AllTags returns the distinct tag values across all posts, sorted.
func (r *BlogPostRepo) AllTags() ([]string, error) {
	tags := []string{}
	err := r.db.
		Model(&models.BlogTag{}).
		Distinct("value").
		Order("value").
		Pluck("value", &tags).Error
	return tags, err
}

// Add inserts a new blog post and its tag rows.
func (r *BlogPostRepo) Add(post *models.BlogPost) error {
	return r.db.Create(post).Error
}

// Update persists a mutated aggregate. When replaceTags is set the post's
// tag rows are replaced wholesale inside the same transaction; otherwise the
// existing rows are left untouched.
func (r *BlogPostRepo) Update(post *models.BlogPost, replaceTags bool) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if !replaceTags {
			return tx.Omit("Tags").Save(post).Error
		}

		if err := tx.Where("blog_post_id = ?", post.ID).Delete(&models.BlogTag{}).Error; err != nil {
			return err
		}
		for i := range post.Tags {
			post.Tags[i].ID = 0
			post.Tags[i].BlogPostID = post.ID
			post.Tags[i].Position = i
		}
		return tx.Save(post).Error
	})
}

// Delete removes a blog post and its tag rows. Deleting an id with no row
// reports not-found, never silent success. Referenced image bytes are left
// in blob storage.
func (r *BlogPostRepo) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.BlogPost{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.NewNotFound("blog post")
		}
		return tx.Where("blog_post_id = ?", id).Delete(&models.BlogTag{}).Error
	})
}
