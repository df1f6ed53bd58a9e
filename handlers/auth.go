package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"blog-api/auth"
	"blog-api/database"
	"blog-api/httpx"
	"blog-api/models"
	"blog-api/validation"

	"go.uber.org/zap"
)

// wrongCredentials is the single message for unknown email and bad password alike
const wrongCredentials = "wrong email or password"

// UserHandler handles registration, login and the current-user lookup
type UserHandler struct {
	users  database.UserStore
	tokens *auth.TokenService
}

// NewUserHandler creates a new user handler
func NewUserHandler(users database.UserStore, tokens *auth.TokenService) *UserHandler {
	return &UserHandler{
		users:  users,
		tokens: tokens,
	}
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// verifyAgainstDummy spends the same bcrypt work as a real comparison so
// unknown emails are not distinguishable by response time.
func verifyAgainstDummy(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = auth.HashPassword("dummy-password-for-timing")
	})
	auth.VerifyPassword(password, dummyHash)
}

// Register handles POST /auth/register
func (h *UserHandler) Register(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	req, ok := validation.BodyFrom[models.RegisterRequest](ctx)
	if !ok {
		httpx.WriteValidationError(w, []httpx.FieldError{{Field: "body", Message: "must be a valid JSON object"}})
		return
	}

	email := req.Email
	logRequest(ctx, "info", "Registering user", zap.String("email", email))

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logRequest(ctx, "error", "Password hashing failed", zap.Error(err))
		httpx.Internal(w, "failed to register")
		return
	}

	user := &models.User{
		FullName:     req.FullName,
		Email:        email,
		PasswordHash: hash,
		AvatarURL:    req.AvatarURL,
	}
	err = h.users.CreateUser(ctx, user)
	if errors.Is(err, database.ErrDuplicate) {
		logRequest(ctx, "info", "Email already registered", zap.String("email", email))
		httpx.Conflict(w, "email is already registered")
		return
	}
	if err != nil {
		logRequest(ctx, "error", "Failed to create user", zap.Error(err))
		httpx.Internal(w, "failed to register")
		return
	}

	token, err := h.tokens.IssueToken(user.ID)
	if err != nil {
		logRequest(ctx, "error", "Failed to issue token", zap.Error(err))
		httpx.Internal(w, "failed to register")
		return
	}

	logRequest(ctx, "info", "User registered", zap.String("user_id", user.ID))
	httpx.WriteJSON(w, models.AuthResponse{User: *user, Token: token}, http.StatusCreated)
}

// Login handles POST /auth/login
func (h *UserHandler) Login(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	req, ok := validation.BodyFrom[models.LoginRequest](ctx)
	if !ok {
		httpx.WriteValidationError(w, []httpx.FieldError{{Field: "body", Message: "must be a valid JSON object"}})
		return
	}

	email := req.Email
	logRequest(ctx, "info", "Login request", zap.String("email", email))

	user, err := h.users.FindUserByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		verifyAgainstDummy(req.Password)
		logRequest(ctx, "info", "Login failed: unknown email", zap.String("email", email))
		httpx.Unauthorized(w, wrongCredentials)
		return
	}
	if err != nil {
		logRequest(ctx, "error", "Failed to look up user", zap.Error(err))
		httpx.Internal(w, "failed to log in")
		return
	}

	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		logRequest(ctx, "info", "Login failed: wrong password", zap.String("email", email))
		httpx.Unauthorized(w, wrongCredentials)
		return
	}

	token, err := h.tokens.IssueToken(user.ID)
	if err != nil {
		logRequest(ctx, "error", "Failed to issue token", zap.Error(err))
		httpx.Internal(w, "failed to log in")
		return
	}

	logRequest(ctx, "info", "Login successful", zap.String("user_id", user.ID))
	httpx.WriteJSON(w, models.AuthResponse{User: *user, Token: token}, http.StatusOK)
}

// GetMe handles GET /auth/me
func (h *UserHandler) GetMe(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		httpx.Unauthorized(w, "no token provided")
		return
	}

	user, err := h.users.FindUserByID(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		logRequest(ctx, "info", "User not found")
		httpx.NotFound(w, "user not found")
		return
	}
	if err != nil {
		logRequest(ctx, "error", "Failed to look up user", zap.Error(err))
		httpx.Internal(w, "failed to load user")
		return
	}

	httpx.WriteJSON(w, user, http.StatusOK)
}
