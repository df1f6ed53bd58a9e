package models

import "time"

// Post is a blog entry. User holds the author id and, when read back,
// the author's display fields.
type Post struct {
	ID         string     `json:"_id"`
	Title      string     `json:"title"`
	Text       string     `json:"text"`
	Tags       []string   `json:"tags"`
	ViewsCount int64      `json:"viewsCount"`
	ImageURL   string     `json:"imageUrl,omitempty"`
	User       PostAuthor `json:"user"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// PostAuthor is the denormalized author attached to a post
type PostAuthor struct {
	ID        string `json:"_id"`
	FullName  string `json:"fullName,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// PostRequest is the body of POST /posts and PATCH /posts/{id}
type PostRequest struct {
	Title    string   `json:"title" validate:"required,min=3"`
	Text     string   `json:"text" validate:"required,min=3"`
	Tags     []string `json:"tags" validate:"omitempty,dive,required"`
	ImageURL string   `json:"imageUrl" validate:"omitempty,urlorpath"`
}

// SuccessResponse acknowledges mutations that have no body to return
type SuccessResponse struct {
	Success bool `json:"success"`
}

// UploadResponse is returned by POST /upload
type UploadResponse struct {
	URL string `json:"url"`
}
