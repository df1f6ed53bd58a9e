package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"blog-api/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/umakantv/go-utils/db/migrations"
)

const selectPosts = `
SELECT p.id, p.title, p.text, p.tags, p.views_count, p.image_url, p.user_id,
       COALESCE(u.full_name, '') AS author_full_name,
       COALESCE(u.avatar_url, '') AS author_avatar_url,
       p.created_at, p.updated_at
FROM posts p
LEFT JOIN users u ON u.id = p.user_id`

// SQLiteStore is the embedded Store backend built on sqlx
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore wraps an open sqlite3 connection whose schema has already been
// migrated (see MigrateSQLite). SQLite serialises writers, so the pool is limited
// to a single connection.
func NewSQLiteStore(db *sqlx.DB) *SQLiteStore {
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}
}

// MigrateSQLite applies every pending .sql migration in dir
func MigrateSQLite(db *sqlx.DB, dir string) error {
	return migrations.Migrate(db, dir)
}

// tagList stores a post's tags as a JSON array in a TEXT column
type tagList []string

func (t tagList) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	return string(b), err
}

func (t *tagList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	case nil:
		*t = tagList{}
		return nil
	default:
		return fmt.Errorf("unsupported tags column type %T", src)
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return err
	}
	*t = tags
	return nil
}

type postRow struct {
	ID           string    `db:"id"`
	Title        string    `db:"title"`
	Text         string    `db:"text"`
	Tags         tagList   `db:"tags"`
	ViewsCount   int64     `db:"views_count"`
	ImageURL     string    `db:"image_url"`
	UserID       string    `db:"user_id"`
	AuthorName   string    `db:"author_full_name"`
	AuthorAvatar string    `db:"author_avatar_url"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r postRow) toModel() models.Post {
	tags := []string(r.Tags)
	if tags == nil {
		tags = []string{}
	}
	return models.Post{
		ID:         r.ID,
		Title:      r.Title,
		Text:       r.Text,
		Tags:       tags,
		ViewsCount: r.ViewsCount,
		ImageURL:   r.ImageURL,
		User: models.PostAuthor{
			ID:        r.UserID,
			FullName:  r.AuthorName,
			AvatarURL: r.AuthorAvatar,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, full_name, email, password_hash, avatar_url, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, u.FullName, u.Email, u.PasswordHash, u.AvatarURL, now, now)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}

	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) findUser(ctx context.Context, column, value string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u,
		"SELECT id, full_name, email, password_hash, avatar_url, created_at, updated_at FROM users WHERE "+column+" = ?", value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLiteStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "email", email)
}

func (s *SQLiteStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, "id", id)
}

func (s *SQLiteStore) CreatePost(ctx context.Context, p *models.Post) error {
	now := time.Now().UTC()
	id := uuid.NewString()
	if p.Tags == nil {
		p.Tags = []string{}
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO posts (id, title, text, tags, views_count, image_url, user_id, created_at, updated_at) VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?)",
		id, p.Title, p.Text, tagList(p.Tags), p.ImageURL, p.User.ID, now, now)
	if err != nil {
		return err
	}

	p.ID = id
	p.ViewsCount = 0
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	var rows []postRow
	if err := s.db.SelectContext(ctx, &rows, selectPosts+" ORDER BY p.created_at DESC, p.rowid DESC"); err != nil {
		return nil, err
	}

	posts := make([]models.Post, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, r.toModel())
	}
	return posts, nil
}

func findPost(ctx context.Context, q sqlx.QueryerContext, id string) (*models.Post, error) {
	var row postRow
	err := sqlx.GetContext(ctx, q, &row, selectPosts+" WHERE p.id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	post := row.toModel()
	return &post, nil
}

func (s *SQLiteStore) FindPost(ctx context.Context, id string) (*models.Post, error) {
	return findPost(ctx, s.db, id)
}

func (s *SQLiteStore) ViewPost(ctx context.Context, id string) (*models.Post, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "UPDATE posts SET views_count = views_count + 1 WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	post, err := findPost(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return post, tx.Commit()
}

func (s *SQLiteStore) UpdatePost(ctx context.Context, p *models.Post) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		"UPDATE posts SET title = ?, text = ?, tags = ?, image_url = ?, updated_at = ? WHERE id = ?",
		p.Title, p.Text, tagList(p.Tags), p.ImageURL, now, p.ID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	p.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) DeletePost(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) RecentTags(ctx context.Context, limit int) ([][]string, error) {
	var rows []tagList
	err := s.db.SelectContext(ctx, &rows, "SELECT tags FROM posts ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}

	tags := make([][]string, 0, len(rows))
	for _, r := range rows {
		tags = append(tags, []string(r))
	}
	return tags, nil
}

func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}
