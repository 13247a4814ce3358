package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/ispeed/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	"github.com/Temutjin2k/ispeed/pkg/validator"
	"github.com/google/uuid"
)

type AuthService interface {
	Register(ctx context.Context, reg *models.Registration) (*models.Company, *models.User, error)
	Login(ctx context.Context, email, password string) (*models.TokenPair, *models.User, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	Profile(ctx context.Context, userID uuid.UUID) (*models.User, *models.Company, error)
	RoleCheck(ctx context.Context, token string) (*models.User, error)
}

type Auth struct {
	auth AuthService
	l    logger.Logger
}

func NewAuth(service AuthService, l logger.Logger) *Auth {
	return &Auth{
		auth: service,
		l:    l,
	}
}

// Register godoc
// @Summary      Register a company
// @Description  Creates a company and its first supervisor account
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request  body      dto.RegisterRequest  true  "Company and contact"
// @Success      201      {object}  map[string]any
// @Failure      409      {object}  map[string]any
// @Failure      422      {object}  map[string]any
// @Router       /auth/register [post]
func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "register_company")

	req := &dto.RegisterRequest{}
	if err := readJSON(w, r, req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	company, user, err := h.auth.Register(ctx, req.ToModel())
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to register company", err)
		return
	}

	response := envelope{"company": company, "user": user}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Login godoc
// @Summary      Log in
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request  body      dto.LoginRequest  true  "Credentials"
// @Success      200      {object}  map[string]any
// @Failure      401      {object}  map[string]any
// @Router       /auth/login [post]
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "login_user")

	req := &dto.LoginRequest{}
	if err := readJSON(w, r, req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	tokens, user, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to login user", err)
		return
	}

	response := envelope{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExpiresAt,
		"user":          user,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Refresh godoc
// @Summary      Rotate the token pair
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request  body      dto.RefreshTokenRequest  true  "Refresh token"
// @Success      200      {object}  map[string]any
// @Failure      401      {object}  map[string]any
// @Router       /auth/refresh [post]
func (h *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "refresh_token")

	req := &dto.RefreshTokenRequest{}
	if err := readJSON(w, r, req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	tokens, err := h.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to refresh token pair", err)
		return
	}

	response := envelope{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExpiresAt,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Logout godoc
// @Summary      Revoke every refresh token of the caller
// @Tags         Auth
// @Security     BearerAuth
// @Success      204
// @Router       /auth/logout [post]
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "logout_user")
	user := models.UserFromContext(ctx)

	if err := h.auth.Logout(ctx, user.ID); err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to logout user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Profile godoc
// @Summary      Current user and company
// @Tags         Auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /auth/me [get]
func (h *Auth) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_profile")

	user, company, err := h.auth.Profile(ctx, models.UserFromContext(ctx).ID)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to get profile", err)
		return
	}

	response := envelope{
		"user":    user,
		"company": company,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(ctx, "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}
