package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/astralume/astral-api/internal/auth"
	"github.com/astralume/astral-api/internal/database"
	"github.com/astralume/astral-api/internal/models"
	"github.com/astralume/astral-api/internal/request"
	"github.com/astralume/astral-api/internal/services/geo"
	"github.com/astralume/astral-api/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AuthHandler serves account registration, login, and profile routes.
type AuthHandler struct {
	users  database.UserRepositoryInterface
	tokens *auth.TokenManager
	geo    *geo.Client
	logger *zap.Logger
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(users database.UserRepositoryInterface, tokens *auth.TokenManager, geoClient *geo.Client, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, geo: geoClient, logger: logger}
}

// RegisterPublicRoutes registers the unauthenticated auth routes. The router
// should already carry the /auth prefix.
func (h *AuthHandler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
}

// RegisterProtectedRoutes registers the routes that require a valid token.
func (h *AuthHandler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.Me).Methods("GET")
	r.HandleFunc("/me", h.UpdateProfile).Methods("PATCH")
}

// RegisterRequest is the payload of the register route.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	DisplayName string `json:"display_name" validate:"omitempty,max=100"`
	Lang        string `json:"lang" validate:"omitempty,lang"`
}

// LoginRequest is the payload of the login route.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest carries optional profile fields. Coordinates are
// resolved from the birth city server-side; clients never send them.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,max=100"`
	Lang        *string `json:"lang,omitempty" validate:"omitempty,lang"`
	BirthDate   *string `json:"birth_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	BirthTime   *string `json:"birth_time,omitempty" validate:"omitempty,max=8"`
	BirthCity   *string `json:"birth_city,omitempty" validate:"omitempty,max=200"`
}

// Register creates an account and returns a token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validation.Validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	existing, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, database.ErrUserNotFound) {
		h.logger.Error("email_lookup_failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create account")
		return
	}
	if existing != nil {
		respondError(w, http.StatusConflict, "email already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: hash,
		Lang:         models.ParseLang(req.Lang),
	}
	if req.DisplayName != "" {
		name := validation.SanitizeText(req.DisplayName)
		user.DisplayName = &name
	}

	if err := h.users.Create(r.Context(), user); err != nil {
		h.logger.Error("user_create_failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		h.logger.Error("token_issue_failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	h.logger.Info("user_registered", zap.String("user_id", user.ID.String()))
	respondJSON(w, http.StatusCreated, map[string]any{
		"token": token,
		"user":  user,
	})
}

// Login verifies credentials and returns a token. Unknown email and wrong
// password are indistinguishable to the caller.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validation.Validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil || user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		h.logger.Error("token_issue_failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}

// UpdateProfile applies profile changes. Setting a birth city resolves its
// coordinates and timezone before persisting; resolution never fails, so a
// misspelled city silently lands on the default location.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	if req.DisplayName != nil {
		name := validation.SanitizeText(*req.DisplayName)
		user.DisplayName = &name
	}
	if req.Lang != nil {
		user.Lang = models.ParseLang(*req.Lang)
	}
	if req.BirthDate != nil {
		user.BirthDate = req.BirthDate
	}
	if req.BirthTime != nil {
		user.BirthTime = req.BirthTime
	}
	if req.BirthCity != nil {
		city := validation.SanitizeText(*req.BirthCity)
		loc := h.geo.Resolve(r.Context(), city)
		user.BirthCity = &city
		user.BirthLat = &loc.Lat
		user.BirthLon = &loc.Lon
		user.BirthTZ = &loc.Timezone
	}

	if err := h.users.UpdateProfile(r.Context(), user); err != nil {
		h.logger.Error("profile_update_failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}
