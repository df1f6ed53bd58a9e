package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"blog-api/auth"
	"blog-api/database"
	"blog-api/httpx"
	"blog-api/models"
	"blog-api/validation"

	"github.com/gorilla/mux"
	"github.com/umakantv/go-utils/cache"
	"go.uber.org/zap"
)

const (
	// lastTagsLimit is how many of the newest posts feed GET /tags
	lastTagsLimit = 5

	lastTagsCacheKey = "posts:last_tags"
	// bounds staleness when another instance writes through a shared Redis
	lastTagsCacheTTL = time.Minute
)

// PostHandler handles post CRUD, views and tag aggregation
type PostHandler struct {
	posts database.PostStore
	cache cache.Cache // nil disables caching

	// tagsGen is bumped on every post write. A tag read that overlapped a
	// write drops what it cached.
	tagsGen atomic.Uint64
}

// NewPostHandler creates a new post handler. c may be nil.
func NewPostHandler(posts database.PostStore, c cache.Cache) *PostHandler {
	return &PostHandler{
		posts: posts,
		cache: c,
	}
}

// DistinctTags flattens tag lists into a set, keeping first-seen order
func DistinctTags(lists [][]string) []string {
	seen := make(map[string]struct{})
	tags := make([]string, 0)
	for _, list := range lists {
		for _, tag := range list {
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	return tags
}

func (h *PostHandler) cachedTags(ctx context.Context) ([]string, bool) {
	if h.cache == nil {
		return nil, false
	}
	cached, err := h.cache.Get(lastTagsCacheKey)
	if err != nil {
		return nil, false
	}

	raw, ok := cached.(string)
	if !ok {
		return nil, false
	}

	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		logRequest(ctx, "debug", "Discarding unreadable cached tags", zap.Error(err))
		return nil, false
	}
	return tags, true
}

// cacheTags stores tags read while tagsGen was gen. The value is a JSON
// string so the memory and Redis caches hand back the same type.
func (h *PostHandler) cacheTags(ctx context.Context, gen uint64, tags []string) {
	if h.cache == nil {
		return
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return
	}
	if err := h.cache.Set(lastTagsCacheKey, string(raw), lastTagsCacheTTL); err != nil {
		logRequest(ctx, "debug", "Failed to cache tags", zap.Error(err))
		return
	}
	if h.tagsGen.Load() != gen {
		_ = h.cache.Delete(lastTagsCacheKey)
	}
}

// invalidateTags drops the cached tag set after any post write
func (h *PostHandler) invalidateTags() {
	h.tagsGen.Add(1)
	if h.cache != nil {
		_ = h.cache.Delete(lastTagsCacheKey)
	}
}

// GetAll handles GET /posts - all posts newest first, authors populated
func (h *PostHandler) GetAll(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListPosts(ctx)
	if err != nil {
		logRequest(ctx, "error", "Failed to list posts", zap.Error(err))
		httpx.Internal(w, "failed to load posts")
		return
	}

	logRequest(ctx, "info", "Posts retrieved", zap.Int("count", len(posts)))
	httpx.WriteJSON(w, posts, http.StatusOK)
}

// GetOne handles GET /posts/{id} and counts the view
func (h *PostHandler) GetOne(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	post, err := h.posts.ViewPost(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		logRequest(ctx, "info", "Post not found", zap.String("post_id", id))
		httpx.NotFound(w, "post not found")
		return
	}
	if err != nil {
		logRequest(ctx, "error", "Failed to load post", zap.Error(err), zap.String("post_id", id))
		httpx.Internal(w, "failed to load post")
		return
	}

	httpx.WriteJSON(w, post, http.StatusOK)
}

// GetLastTags handles GET /tags and GET /posts/tags
func (h *PostHandler) GetLastTags(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if tags, ok := h.cachedTags(ctx); ok {
		logRequest(ctx, "debug", "Serving tags from cache")
		httpx.WriteJSON(w, tags, http.StatusOK)
		return
	}

	gen := h.tagsGen.Load()
	lists, err := h.posts.RecentTags(ctx, lastTagsLimit)
	if err != nil {
		logRequest(ctx, "error", "Failed to load tags", zap.Error(err))
		httpx.Internal(w, "failed to load tags")
		return
	}
	tags := DistinctTags(lists)
	h.cacheTags(ctx, gen, tags)

	httpx.WriteJSON(w, tags, http.StatusOK)
}

// Create handles POST /posts
func (h *PostHandler) Create(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		httpx.Unauthorized(w, "no token provided")
		return
	}
	req, ok := validation.BodyFrom[models.PostRequest](ctx)
	if !ok {
		httpx.WriteValidationError(w, []httpx.FieldError{{Field: "body", Message: "must be a valid JSON object"}})
		return
	}

	post := &models.Post{
		Title:    req.Title,
		Text:     req.Text,
		Tags:     req.Tags,
		ImageURL: req.ImageURL,
		User:     models.PostAuthor{ID: userID},
	}
	if err := h.posts.CreatePost(ctx, post); err != nil {
		logRequest(ctx, "error", "Failed to create post", zap.Error(err))
		httpx.Internal(w, "failed to create post")
		return
	}
	h.invalidateTags()

	logRequest(ctx, "info", "Post created", zap.String("post_id", post.ID))
	httpx.WriteJSON(w, post, http.StatusCreated)
}

// ownedPost loads the post named in the path and checks the caller wrote it.
// It writes the error response itself and returns nil when the caller may not proceed.
func (h *PostHandler) ownedPost(ctx context.Context, w http.ResponseWriter, r *http.Request) *models.Post {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		httpx.Unauthorized(w, "no token provided")
		return nil
	}
	id := mux.Vars(r)["id"]

	post, err := h.posts.FindPost(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		logRequest(ctx, "info", "Post not found", zap.String("post_id", id))
		httpx.NotFound(w, "post not found")
		return nil
	}
	if err != nil {
		logRequest(ctx, "error", "Failed to load post", zap.Error(err), zap.String("post_id", id))
		httpx.Internal(w, "failed to load post")
		return nil
	}

	if post.User.ID != userID {
		logRequest(ctx, "info", "Rejected change to another author's post", zap.String("post_id", id))
		httpx.Forbidden(w, "only the author can change this post")
		return nil
	}
	return post
}

// Update handles PATCH /posts/{id}
func (h *PostHandler) Update(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	req, ok := validation.BodyFrom[models.PostRequest](ctx)
	if !ok {
		httpx.WriteValidationError(w, []httpx.FieldError{{Field: "body", Message: "must be a valid JSON object"}})
		return
	}
	post := h.ownedPost(ctx, w, r)
	if post == nil {
		return
	}

	post.Title = req.Title
	post.Text = req.Text
	post.Tags = req.Tags
	post.ImageURL = req.ImageURL

	err := h.posts.UpdatePost(ctx, post)
	if errors.Is(err, database.ErrNotFound) {
		httpx.NotFound(w, "post not found")
		return
	}
	if err != nil {
		logRequest(ctx, "error", "Failed to update post", zap.Error(err), zap.String("post_id", post.ID))
		httpx.Internal(w, "failed to update post")
		return
	}
	h.invalidateTags()

	logRequest(ctx, "info", "Post updated", zap.String("post_id", post.ID))
	httpx.WriteJSON(w, models.SuccessResponse{Success: true}, http.StatusOK)
}

// Remove handles DELETE /posts/{id}
func (h *PostHandler) Remove(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	post := h.ownedPost(ctx, w, r)
	if post == nil {
		return
	}

	err := h.posts.DeletePost(ctx, post.ID)
	if errors.Is(err, database.ErrNotFound) {
		httpx.NotFound(w, "post not found")
		return
	}
	if err != nil {
		logRequest(ctx, "error", "Failed to delete post", zap.Error(err), zap.String("post_id", post.ID))
		httpx.Internal(w, "failed to delete post")
		return
	}
	h.invalidateTags()

	logRequest(ctx, "info", "Post deleted", zap.String("post_id", post.ID))
	httpx.WriteJSON(w, models.SuccessResponse{Success: true}, http.StatusOK)
}
