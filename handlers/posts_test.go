package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"blog-api/auth"
	"blog-api/database"
	"blog-api/models"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umakantv/go-utils/cache"
	"github.com/umakantv/go-utils/logger"
)

func TestMain(m *testing.M) {
	logger.Init(logger.LoggerConfig{
		CallerKey:  "file",
		TimeKey:    "timestamp",
		CallerSkip: 1,
	})
	os.Exit(m.Run())
}

// stubPosts serves a fixed post and tag set and fails everything else
type stubPosts struct {
	database.PostStore
	post       *models.Post
	tags       [][]string
	tagsErr    error
	tagsLimit  int
	tagsCalls  int
	deletedIDs []string

	// onRecentTags runs while the tag query is in flight
	onRecentTags func()
}

func (s *stubPosts) FindPost(ctx context.Context, id string) (*models.Post, error) {
	if s.post == nil || s.post.ID != id {
		return nil, database.ErrNotFound
	}
	p := *s.post
	return &p, nil
}

func (s *stubPosts) DeletePost(ctx context.Context, id string) error {
	s.deletedIDs = append(s.deletedIDs, id)
	return nil
}

func (s *stubPosts) RecentTags(ctx context.Context, limit int) ([][]string, error) {
	s.tagsLimit = limit
	s.tagsCalls++
	if s.onRecentTags != nil {
		s.onRecentTags()
	}
	return s.tags, s.tagsErr
}

func TestDistinctTags(t *testing.T) {
	tests := []struct {
		name  string
		lists [][]string
		want  []string
	}{
		{"no posts", nil, []string{}},
		{"posts without tags", [][]string{{}, nil}, []string{}},
		{"keeps first-seen order", [][]string{{"go", "db"}, {"db", "web"}, {"go"}}, []string{"go", "db", "web"}},
		{"duplicates within a post", [][]string{{"a", "a", "b"}}, []string{"a", "b"}},
		{"case sensitive", [][]string{{"Go", "go"}}, []string{"Go", "go"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistinctTags(tt.lists)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetLastTags(t *testing.T) {
	store := &stubPosts{tags: [][]string{{"a", "b"}, {"b", "c"}}}
	h := NewPostHandler(store, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tags", nil)
	h.GetLastTags(req.Context(), rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["a","b","c"]`, rec.Body.String())
	assert.Equal(t, lastTagsLimit, store.tagsLimit)
}

func TestGetLastTagsStoreFailure(t *testing.T) {
	h := NewPostHandler(&stubPosts{tagsErr: errors.New("connection reset")}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tags", nil)
	h.GetLastTags(req.Context(), rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestRemoveChecksOwnership(t *testing.T) {
	post := &models.Post{ID: "p1", Title: "Hello", User: models.PostAuthor{ID: "alice"}}

	tests := []struct {
		name        string
		userID      string
		postID      string
		wantCode    int
		wantDeleted bool
	}{
		{"no user", "", "p1", http.StatusUnauthorized, false},
		{"unknown post", "alice", "p2", http.StatusNotFound, false},
		{"other author", "bob", "p1", http.StatusForbidden, false},
		{"owner", "alice", "p1", http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubPosts{post: post}
			h := NewPostHandler(store, nil)

			req := httptest.NewRequest(http.MethodDelete, "/posts/"+tt.postID, nil)
			req = mux.SetURLVars(req, map[string]string{"id": tt.postID})
			ctx := req.Context()
			if tt.userID != "" {
				ctx = auth.WithUserID(ctx, tt.userID)
			}
			rec := httptest.NewRecorder()
			h.Remove(ctx, rec, req.WithContext(ctx))

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantDeleted {
				assert.Equal(t, []string{"p1"}, store.deletedIDs)
			} else {
				assert.Empty(t, store.deletedIDs)
			}
		})
	}
}

// jsonCache encodes values like the Redis cache: JSON on Set, decoded into
// an interface{} on Get.
type jsonCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newJSONCache() *jsonCache {
	return &jsonCache{items: make(map[string][]byte)}
}

func (c *jsonCache) Set(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = data
	return nil
}

func (c *jsonCache) Get(key string) (interface{}, error) {
	c.mu.Lock()
	data, ok := c.items[key]
	c.mu.Unlock()
	if !ok {
		return nil, cache.ErrKeyNotFound
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data), nil
	}
	return v, nil
}

func (c *jsonCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *jsonCache) Exists(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

func (c *jsonCache) Close() error { return nil }

func tagCaches(t *testing.T) map[string]func() cache.Cache {
	return map[string]func() cache.Cache{
		"redis encoding": func() cache.Cache { return newJSONCache() },
		"memory": func() cache.Cache {
			c, err := cache.New(cache.Config{Type: "memory"})
			require.NoError(t, err)
			return c
		},
	}
}

func getTags(t *testing.T, h *PostHandler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tags", nil)
	h.GetLastTags(req.Context(), rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestGetLastTagsServedFromCache(t *testing.T) {
	for name, newCache := range tagCaches(t) {
		t.Run(name, func(t *testing.T) {
			store := &stubPosts{tags: [][]string{{"a", "b"}, {"b", "c"}}}
			h := NewPostHandler(store, newCache())

			for i := 0; i < 3; i++ {
				assert.JSONEq(t, `["a","b","c"]`, getTags(t, h))
			}
			assert.Equal(t, 1, store.tagsCalls)
		})
	}
}

func TestGetLastTagsAfterWrite(t *testing.T) {
	for name, newCache := range tagCaches(t) {
		t.Run(name, func(t *testing.T) {
			store := &stubPosts{
				post: &models.Post{ID: "p1", User: models.PostAuthor{ID: "alice"}},
				tags: [][]string{{"old"}},
			}
			h := NewPostHandler(store, newCache())
			assert.JSONEq(t, `["old"]`, getTags(t, h))

			req := httptest.NewRequest(http.MethodDelete, "/posts/p1", nil)
			req = mux.SetURLVars(req, map[string]string{"id": "p1"})
			ctx := auth.WithUserID(req.Context(), "alice")
			rec := httptest.NewRecorder()
			h.Remove(ctx, rec, req.WithContext(ctx))
			require.Equal(t, http.StatusOK, rec.Code)

			store.tags = [][]string{{"new"}}
			assert.JSONEq(t, `["new"]`, getTags(t, h))
			assert.Equal(t, 2, store.tagsCalls)
		})
	}
}

func TestGetLastTagsOverlappingWriteIsNotCached(t *testing.T) {
	for name, newCache := range tagCaches(t) {
		t.Run(name, func(t *testing.T) {
			c := newCache()
			store := &stubPosts{tags: [][]string{{"old"}}}
			h := NewPostHandler(store, c)
			// a post write lands after the tags were read but before they are cached
			store.onRecentTags = func() {
				h.invalidateTags()
				store.onRecentTags = nil
			}

			assert.JSONEq(t, `["old"]`, getTags(t, h))
			assert.False(t, c.Exists(lastTagsCacheKey))

			store.tags = [][]string{{"new"}}
			assert.JSONEq(t, `["new"]`, getTags(t, h))
			assert.Equal(t, 2, store.tagsCalls)
		})
	}
}
