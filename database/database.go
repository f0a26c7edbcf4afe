package database

import (
	"github.com/oceandive/backend/models"
	"gorm.io/gorm"
)

type Database struct {
	blogPostRepo *BlogPostRepo
}

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB) Database {
	return Database{
		blogPostRepo: NewBlogPostRepo(db),
	}
}

func (d Database) BlogPostRepo() *BlogPostRepo {
	return d.blogPostRepo
}

// AutoMigrate creates or updates the tables backing the blog aggregate.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.BlogPost{}, &models.BlogTag{})
}
