package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

const refreshTokenCookie = "refreshToken"

// UserHandler implements account, session and channel endpoints.
type UserHandler struct {
	Users       UserStore
	Sessions    SessionManager
	ResetTokens ResetTokenStore
	Storage     MediaStorage
	Mail        Mailer
	Limiter     RateLimiter

	// PublicBaseURL builds password-reset links.
	PublicBaseURL string
	ResetTokenTTL time.Duration
	NowFunc       func() time.Time
}

// Register handles POST /api/v1/users/register (multipart).
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "register") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many registration attempts")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		logger.Warn("invalid register form", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	username := strings.TrimSpace(strings.ToLower(r.FormValue("username")))
	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	fullName := strings.TrimSpace(r.FormValue("fullName"))
	password := r.FormValue("password")

	if username == "" || email == "" || fullName == "" || password == "" {
		respondError(ctx, w, http.StatusBadRequest, "username, email, fullName and password are required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(password) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	avatar := formFile(r, "avatar")
	if avatar == nil {
		respondError(ctx, w, http.StatusBadRequest, "avatar file is required")
		return
	}

	// Media goes to the object store only after the identity is known to be
	// free. The unique constraint on users still backstops concurrent
	// registrations.
	if taken, err := h.identityTaken(ctx, username, email); err != nil {
		logger.Error("check identity", "error", err, "username", username)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create account")
		return
	} else if taken {
		respondError(ctx, w, http.StatusConflict, "username or email already registered")
		return
	}

	avatarURL, err := saveUpload(ctx, h.Storage, "avatars", avatar)
	if err != nil {
		logger.Error("avatar upload failed", "error", err)
		respondError(ctx, w, http.StatusBadGateway, "avatar upload failed")
		return
	}

	var coverURL string
	if cover := formFile(r, "coverImage"); cover != nil {
		coverURL, err = saveUpload(ctx, h.Storage, "covers", cover)
		if err != nil {
			logger.Error("cover upload failed", "error", err)
			respondError(ctx, w, http.StatusBadGateway, "cover upload failed")
			return
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	now := nowOrDefault(h.NowFunc)
	user := models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Password:  string(hashed),
		FullName:  fullName,
		AvatarURL: avatarURL,
		CoverURL:  coverURL,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		h.discardUploads(ctx, avatarURL, coverURL)
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "username or email already registered")
			return
		}
		logger.Error("create user", "error", err, "username", username)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create account")
		return
	}

	respondData(ctx, w, http.StatusCreated, user.Profile(), "account created")
}

func (h UserHandler) identityTaken(ctx context.Context, username, email string) (bool, error) {
	if _, err := h.Users.FindByUsername(ctx, username); err == nil {
		return true, nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return false, err
	}
	if _, err := h.Users.FindByEmail(ctx, email); err == nil {
		return true, nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return false, err
	}
	return false, nil
}

// discardUploads removes media stored for an account that was never created.
func (h UserHandler) discardUploads(ctx context.Context, urls ...string) {
	logger := logging.FromContext(ctx)
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := h.Storage.Delete(ctx, url); err != nil {
			logger.Warn("discard upload", "error", err, "url", url)
		}
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User   models.Profile       `json:"user"`
	Tokens models.SessionTokens `json:"tokens"`
}

// Login handles POST /api/v1/users/login. Exactly one of email or username
// identifies the account.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "login") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(strings.ToLower(req.Username))

	if (req.Email == "") == (req.Username == "") {
		respondError(ctx, w, http.StatusBadRequest, "provide exactly one of email or username")
		return
	}
	if req.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, "password is required")
		return
	}

	var (
		user models.User
		err  error
	)
	if req.Email != "" {
		user, err = h.Users.FindByEmail(ctx, req.Email)
	} else {
		user, err = h.Users.FindByUsername(ctx, req.Username)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "account not found")
			return
		}
		logger.Error("login lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to verify credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "userId", user.ID)
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user)
	if err != nil {
		logger.Error("issue session", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}

	setSessionCookies(w, tokens)
	respondData(ctx, w, http.StatusOK, sessionResponse{User: user.Profile(), Tokens: tokens}, "logged in")
}

// Logout handles POST /api/v1/users/logout.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	h.Sessions.Revoke(ctx, principal.UserID)
	clearSessionCookies(w)
	respondData(ctx, w, http.StatusOK, nil, "logged out")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh handles POST /api/v1/users/refresh-token. The token is read from
// the cookie, falling back to the request body.
func (h UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	token := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = strings.TrimSpace(req.RefreshToken)
		}
	}
	if token == "" {
		respondError(ctx, w, http.StatusBadRequest, "refresh token is required")
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) || errors.Is(err, auth.ErrRefreshTokenExpired) {
			respondError(ctx, w, http.StatusUnauthorized, "unable to refresh session")
			return
		}
		logger.Error("refresh failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to refresh session")
		return
	}

	setSessionCookies(w, tokens)
	respondData(ctx, w, http.StatusOK, tokens, "session refreshed")
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		respondError(ctx, w, http.StatusBadRequest, "oldPassword and newPassword are required")
		return
	}
	if len(req.NewPassword) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	user, err := h.Users.FindByID(ctx, principal.UserID)
	if err != nil {
		logger.Error("load user for password change", "error", err, "userId", principal.UserID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to change password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		respondError(ctx, w, http.StatusUnauthorized, "old password is incorrect")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	if err := h.Users.UpdatePassword(ctx, principal.UserID, string(hashed)); err != nil {
		logger.Error("update password", "error", err, "userId", principal.UserID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to change password")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "password changed")
}

type updateAccountRequest struct {
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
}

// UpdateAccount handles PATCH /api/v1/users/update-account-details.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FullName == nil && req.Email == nil {
		respondError(ctx, w, http.StatusBadRequest, "nothing to update")
		return
	}

	patch := models.AccountPatch{FullName: req.FullName}
	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			respondError(ctx, w, http.StatusBadRequest, "invalid email address")
			return
		}
		patch.Email = &email
	}
	if req.FullName != nil && strings.TrimSpace(*req.FullName) == "" {
		respondError(ctx, w, http.StatusBadRequest, "fullName must not be empty")
		return
	}

	user, err := h.Users.UpdateDetails(ctx, principal.UserID, patch)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			respondError(ctx, w, http.StatusConflict, "email already in use")
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, http.StatusNotFound, "account not found")
		default:
			logger.Error("update account", "error", err, "userId", principal.UserID)
			respondError(ctx, w, http.StatusInternalServerError, "unable to update account")
		}
		return
	}

	respondData(ctx, w, http.StatusOK, user.Profile(), "account updated")
}

// UpdateAvatar handles PATCH /api/v1/users/update-avatar (multipart).
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", "avatars", h.Users.UpdateAvatarURL)
}

// UpdateCover handles PATCH /api/v1/users/update-cover-photo (multipart).
func (h UserHandler) UpdateCover(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", "covers", h.Users.UpdateCoverURL)
}

// replaceImage uploads the new asset, swaps the stored location, then
// best-effort deletes the previous asset. A failed delete leaks the old
// object; the swap is not rolled back.
func (h UserHandler) replaceImage(w http.ResponseWriter, r *http.Request, field, prefix string, swap func(ctx context.Context, userID, newURL string) (string, error)) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	header := formFile(r, field)
	if header == nil {
		respondError(ctx, w, http.StatusBadRequest, fmt.Sprintf("%s file is required", field))
		return
	}

	location, err := saveUpload(ctx, h.Storage, prefix, header)
	if err != nil {
		logger.Error("image upload failed", "field", field, "error", err)
		respondError(ctx, w, http.StatusBadGateway, "image upload failed")
		return
	}

	previous, err := swap(ctx, principal.UserID, location)
	if err != nil {
		logger.Error("swap image location", "field", field, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update image")
		return
	}

	if previous != "" {
		if err := h.Storage.Delete(ctx, previous); err != nil {
			logger.Warn("delete superseded image", "location", previous, "error", err)
		}
	}

	respondData(ctx, w, http.StatusOK, map[string]string{"url": location}, "image updated")
}

// Channel handles GET /api/v1/users/channel/{username}.
func (h UserHandler) Channel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	username := strings.TrimSpace(strings.ToLower(r.PathValue("username")))
	if username == "" {
		respondError(ctx, w, http.StatusBadRequest, "username is required")
		return
	}

	profile, err := h.Users.ChannelProfile(ctx, username, principal.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "channel not found")
			return
		}
		logger.Error("load channel profile", "error", err, "username", username)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load channel")
		return
	}

	respondData(ctx, w, http.StatusOK, profile, "channel profile")
}

// WatchHistory handles GET /api/v1/users/watch-history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	history, err := h.Users.WatchHistory(ctx, principal.UserID)
	if err != nil {
		logger.Error("load watch history", "error", err, "userId", principal.UserID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load watch history")
		return
	}

	respondData(ctx, w, http.StatusOK, history, "watch history")
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset handles POST /api/v1/users/reset-password. The
// response never reveals whether the account exists.
func (h UserHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "password-reset") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many reset requests")
		return
	}

	var req passwordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		respondError(ctx, w, http.StatusBadRequest, "email is required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}

	accepted := func() {
		respondData(ctx, w, http.StatusAccepted, nil,
			"If an account exists for that email, password reset instructions have been sent.")
	}

	user, err := h.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			logger.Error("password reset lookup", "error", err)
		}
		accepted()
		return
	}

	raw, err := auth.NewOpaqueToken()
	if err != nil {
		logger.Error("generate reset token", "error", err)
		accepted()
		return
	}

	ttl := h.ResetTokenTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	token := repositories.ResetToken{
		TokenHash: auth.HashToken(raw),
		UserID:    user.ID,
		ExpiresAt: nowOrDefault(h.NowFunc).Add(ttl),
	}
	if err := h.ResetTokens.Save(ctx, token); err != nil {
		logger.Error("save reset token", "error", err, "userId", user.ID)
		accepted()
		return
	}

	resetURL := fmt.Sprintf("%s/api/v1/users/reset-password/%s/%s",
		strings.TrimSuffix(h.PublicBaseURL, "/"), user.ID, raw)

	if err := h.Mail.SendPasswordReset(ctx, user.Email, resetURL); err != nil {
		logger.Error("send reset mail", "error", err, "userId", user.ID)
	}

	accepted()
}

type resetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// ResetPassword handles POST /api/v1/users/reset-password/{userId}/{token}.
func (h UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID := r.PathValue("userId")
	raw := r.PathValue("token")
	if userID == "" || raw == "" {
		respondError(ctx, w, http.StatusBadRequest, "userId and token are required")
		return
	}

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.NewPassword) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	token, err := h.ResetTokens.Find(ctx, auth.HashToken(raw))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusUnauthorized, "reset link is invalid or expired")
			return
		}
		logger.Error("load reset token", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to reset password")
		return
	}

	if token.UserID != userID {
		respondError(ctx, w, http.StatusUnauthorized, "reset link is invalid or expired")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	if err := h.Users.UpdatePassword(ctx, token.UserID, string(hashed)); err != nil {
		logger.Error("update password", "error", err, "userId", token.UserID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to reset password")
		return
	}

	// Single use: consume the token and end any active session.
	if err := h.ResetTokens.Delete(ctx, token.TokenHash); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		logger.Warn("consume reset token", "error", err)
	}
	h.Sessions.Revoke(ctx, token.UserID)

	respondData(ctx, w, http.StatusOK, nil, "password reset")
}

func setSessionCookies(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    tokens.AccessToken,
		Path:     "/",
		Expires:  tokens.AccessExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    tokens.RefreshToken,
		Path:     "/",
		Expires:  tokens.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
