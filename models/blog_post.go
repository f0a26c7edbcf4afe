package models

import (
	"time"
)

// BlogPost is the aggregate root: post metadata plus the ordered content
// block sequence it owns by value. Image blocks reference blob storage by
// URL only; deleting a post never deletes the referenced bytes.
type BlogPost struct {
	ID            uint      `json:"id" db:"id" gorm:"primaryKey;autoIncrement;not null"`
	Title         string    `json:"title" db:"title" gorm:"type:text;not null;uniqueIndex"`
	Subject       string    `json:"subject" db:"subject" gorm:"type:text;not null"`
	FeaturedImage *string   `json:"featured_image,omitempty" db:"featured_image" gorm:"type:text"`
	Content       BlockList `json:"content" db:"content" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`

	Tags []BlogTag `json:"tags,omitempty" gorm:"foreignKey:BlogPostID;references:ID;constraint:OnDelete:CASCADE"`
}

// TagValues flattens the tag rows to their display values, in insertion
// order.
func (p *BlogPost) TagValues() []string {
	values := make([]string, 0, len(p.Tags))
	for _, tag := range p.Tags {
		values = append(values, tag.Value)
	}
	return values
}

// SetTags replaces the post's tag rows with the given values, recording
// insertion order in Position. Callers are expected to have deduplicated
// the values already.
func (p *BlogPost) SetTags(values []string) {
	tags := make([]BlogTag, 0, len(values))
	for i, v := range values {
		tags = append(tags, BlogTag{BlogPostID: p.ID, Value: v, Position: i})
	}
	p.Tags = tags
}

// BlogTag is one tag attached to a blog post. Position preserves the order
// tags were supplied in, so display stays consistent across reads.
type BlogTag struct {
	ID         uint   `json:"id" db:"id" gorm:"primaryKey;autoIncrement;not null"`
	BlogPostID uint   `json:"blog_post_id" db:"blog_post_id" gorm:"not null;index:idx_blog_tag_blog_post_id;uniqueIndex:idx_blog_tag_unique"`
	Value      string `json:"value" db:"value" gorm:"type:text;not null;uniqueIndex:idx_blog_tag_unique"`
	Position   int    `json:"-" db:"position" gorm:"not null;default:0"`
}
