package database

import (
	"context"
	"errors"

	"blog-api/models"
)

var (
	// ErrNotFound is returned when no document matches the lookup
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint (user email) is violated
	ErrDuplicate = errors.New("duplicate key")
)

// UserStore persists users
type UserStore interface {
	// CreateUser inserts u, filling in ID and timestamps. Returns ErrDuplicate if the email is taken.
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

// PostStore persists posts. Reads populate the author's name and avatar.
type PostStore interface {
	// CreatePost inserts p, filling in ID, timestamps and a zero view count
	CreatePost(ctx context.Context, p *models.Post) error
	// ListPosts returns every post, newest first
	ListPosts(ctx context.Context) ([]models.Post, error)
	// FindPost returns a post without touching its view count
	FindPost(ctx context.Context, id string) (*models.Post, error)
	// ViewPost atomically increments the view count and returns the updated post
	ViewPost(ctx context.Context, id string) (*models.Post, error)
	// UpdatePost replaces title, text, tags and image of an existing post
	UpdatePost(ctx context.Context, p *models.Post) error
	DeletePost(ctx context.Context, id string) error
	// RecentTags returns the tag lists of the limit most recently created posts, newest first
	RecentTags(ctx context.Context, limit int) ([][]string, error)
}

// Store is the full persistence contract with its lifecycle
type Store interface {
	UserStore
	PostStore
	Close(ctx context.Context) error
}
