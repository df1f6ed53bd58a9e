package database

import (
	"context"
	"sync"
	"testing"

	"blog-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// runStoreContract exercises the behaviour every Store backend must share.
// newStore must return an empty store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	createUser := func(t *testing.T, s Store, email string) *models.User {
		u := &models.User{FullName: "Alice", Email: email, PasswordHash: "hash", AvatarURL: "https://x/a.png"}
		require.NoError(t, s.CreateUser(ctx, u))
		return u
	}

	createPost := func(t *testing.T, s Store, author string, title string, tags ...string) *models.Post {
		p := &models.Post{Title: title, Text: "body of " + title, Tags: tags, User: models.PostAuthor{ID: author}}
		require.NoError(t, s.CreatePost(ctx, p))
		return p
	}

	t.Run("users", func(t *testing.T) {
		s := newStore(t)
		u := createUser(t, s, "a@x.com")
		assert.NotEmpty(t, u.ID)
		assert.False(t, u.CreatedAt.IsZero())

		byEmail, err := s.FindUserByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)
		assert.Equal(t, "hash", byEmail.PasswordHash)

		byID, err := s.FindUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alice", byID.FullName)
		assert.Equal(t, "https://x/a.png", byID.AvatarURL)

		_, err = s.FindUserByEmail(ctx, "nobody@x.com")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.FindUserByID(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.FindUserByID(ctx, "not-an-id")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		s := newStore(t)
		first := createUser(t, s, "dup@x.com")

		err := s.CreateUser(ctx, &models.User{FullName: "Mallory", Email: "dup@x.com", PasswordHash: "h"})
		assert.ErrorIs(t, err, ErrDuplicate)

		stored, err := s.FindUserByEmail(ctx, "dup@x.com")
		require.NoError(t, err)
		assert.Equal(t, first.ID, stored.ID)
		assert.Equal(t, "Alice", stored.FullName)
	})

	t.Run("post round trip", func(t *testing.T) {
		s := newStore(t)
		author := createUser(t, s, "author@x.com")
		created := &models.Post{
			Title:    "Hello",
			Text:     "World",
			Tags:     []string{"go", "go", "mongo"},
			ImageURL: "/upload/a.png",
			User:     models.PostAuthor{ID: author.ID},
		}
		require.NoError(t, s.CreatePost(ctx, created))
		assert.NotEmpty(t, created.ID)
		assert.Zero(t, created.ViewsCount)

		found, err := s.FindPost(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Hello", found.Title)
		assert.Equal(t, "World", found.Text)
		assert.Equal(t, []string{"go", "go", "mongo"}, found.Tags)
		assert.Equal(t, "/upload/a.png", found.ImageURL)
		assert.Equal(t, author.ID, found.User.ID)
		assert.Equal(t, "Alice", found.User.FullName)
		assert.Equal(t, "https://x/a.png", found.User.AvatarURL)
		assert.True(t, created.CreatedAt.Equal(found.CreatedAt))
	})

	t.Run("view increments atomically", func(t *testing.T) {
		s := newStore(t)
		author := createUser(t, s, "v@x.com")
		post := createPost(t, s, author.ID, "Viewed")

		const views = 25
		var wg sync.WaitGroup
		errs := make(chan error, views)
		for i := 0; i < views; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.ViewPost(ctx, post.ID)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		found, err := s.FindPost(ctx, post.ID)
		require.NoError(t, err)
		assert.EqualValues(t, views, found.ViewsCount)

		viewed, err := s.ViewPost(ctx, post.ID)
		require.NoError(t, err)
		assert.EqualValues(t, views+1, viewed.ViewsCount)
		assert.Equal(t, "Alice", viewed.User.FullName)

		_, err = s.ViewPost(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list newest first", func(t *testing.T) {
		s := newStore(t)
		author := createUser(t, s, "l@x.com")
		first := createPost(t, s, author.ID, "first")
		second := createPost(t, s, author.ID, "second")
		third := createPost(t, s, author.ID, "third")

		posts, err := s.ListPosts(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 3)
		assert.Equal(t, []string{third.ID, second.ID, first.ID}, []string{posts[0].ID, posts[1].ID, posts[2].ID})
		assert.Equal(t, "Alice", posts[0].User.FullName)
		assert.NotNil(t, posts[0].Tags)
	})

	t.Run("update and delete", func(t *testing.T) {
		s := newStore(t)
		author := createUser(t, s, "u@x.com")
		post := createPost(t, s, author.ID, "before", "a")

		post.Title = "after"
		post.Text = "new text"
		post.Tags = []string{"b", "c"}
		post.ImageURL = "https://img/x.png"
		require.NoError(t, s.UpdatePost(ctx, post))

		found, err := s.FindPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, "after", found.Title)
		assert.Equal(t, "new text", found.Text)
		assert.Equal(t, []string{"b", "c"}, found.Tags)
		assert.Equal(t, "https://img/x.png", found.ImageURL)
		assert.Equal(t, author.ID, found.User.ID)

		require.NoError(t, s.DeletePost(ctx, post.ID))
		_, err = s.FindPost(ctx, post.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		assert.ErrorIs(t, s.DeletePost(ctx, post.ID), ErrNotFound)
		assert.ErrorIs(t, s.UpdatePost(ctx, post), ErrNotFound)
	})

	t.Run("recent tags", func(t *testing.T) {
		s := newStore(t)
		author := createUser(t, s, "t@x.com")
		createPost(t, s, author.ID, "p1", "old")
		createPost(t, s, author.ID, "p2", "a")
		createPost(t, s, author.ID, "p3", "b", "a")
		createPost(t, s, author.ID, "p4")
		createPost(t, s, author.ID, "p5", "c")
		createPost(t, s, author.ID, "p6", "d", "c")

		tags, err := s.RecentTags(ctx, 5)
		require.NoError(t, err)
		require.Len(t, tags, 5)
		assert.Equal(t, []string{"d", "c"}, tags[0])
		assert.Empty(t, tags[2])
		assert.Equal(t, []string{"a"}, tags[4])
	})
}
