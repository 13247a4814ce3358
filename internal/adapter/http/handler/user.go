package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/Temutjin2k/ispeed/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	"github.com/Temutjin2k/ispeed/pkg/validator"
	"github.com/google/uuid"
)

type UserService interface {
	Create(ctx context.Context, actor *models.User, u *models.User, password string) error
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, actor *models.User, role types.UserRole, f models.Filters) ([]models.User, models.Metadata, error)
	Update(ctx context.Context, actor *models.User, id uuid.UUID, upd models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
}

type User struct {
	users UserService
	l     logger.Logger
}

func NewUser(users UserService, l logger.Logger) *User {
	return &User{users: users, l: l}
}

// Create godoc
// @Summary      Add a user to the company
// @Description  Drivers start INVITED and become ACTIVE on first login
// @Tags         Users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      dto.CreateUserRequest  true  "New user"
// @Success      201      {object}  map[string]any
// @Router       /users [post]
func (h *User) Create(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "create_user")

	req := &dto.CreateUserRequest{}
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

	user := req.ToModel()
	if err := h.users.Create(ctx, models.UserFromContext(ctx), user, req.Password); err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to create user", err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"user": user}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// List godoc
// @Summary      List company users
// @Tags         Users
// @Security     BearerAuth
// @Produce      json
// @Param        role       query     string  false  "DRIVER or SUPERVISOR"
// @Param        page       query     int     false  "Page"
// @Param        page_size  query     int     false  "Page size"
// @Param        sort       query     string  false  "name, -name, created_at, -created_at"
// @Success      200        {object}  map[string]any
// @Router       /users [get]
func (h *User) List(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_users")
	qs := r.URL.Query()

	v := validator.New()
	role := types.UserRole(strings.ToUpper(readString(qs, "role", "")))
	v.Check(role == "" || role.Valid(), "role", "must be DRIVER or SUPERVISOR")

	f := models.Filters{
		Page:         readInt(qs, "page", models.DefaultPage, v),
		PageSize:     readInt(qs, "page_size", models.DefaultPageSize, v),
		Sort:         readString(qs, "sort", "name"),
		SortSafelist: []string{"name", "-name", "created_at", "-created_at", "email", "-email"},
	}
	f.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	users, meta, err := h.users.List(ctx, models.UserFromContext(ctx), role, f)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to list users", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"users": users, "metadata": meta}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Get godoc
// @Summary      Get a user
// @Tags         Users
// @Security     BearerAuth
// @Produce      json
// @Param        user_id  path      string  true  "User ID"
// @Success      200      {object}  map[string]any
// @Failure      404      {object}  map[string]any
// @Router       /users/{user_id} [get]
func (h *User) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_user")

	id, err := readUUIDParam(r, "user_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	user, err := h.users.Get(ctx, models.UserFromContext(ctx), id)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to get user", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"user": user}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Update godoc
// @Summary      Update a user
// @Description  Deactivating a user revokes their sessions
// @Tags         Users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        user_id  path      string                 true  "User ID"
// @Param        request  body      dto.UpdateUserRequest  true  "Fields to change"
// @Success      200      {object}  map[string]any
// @Router       /users/{user_id} [patch]
func (h *User) Update(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "update_user")

	id, err := readUUIDParam(r, "user_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	req := &dto.UpdateUserRequest{}
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

	user, err := h.users.Update(ctx, models.UserFromContext(ctx), id, req.ToModel())
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to update user", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"user": user}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Delete godoc
// @Summary      Delete a user
// @Tags         Users
// @Security     BearerAuth
// @Param        user_id  path  string  true  "User ID"
// @Success      204
// @Failure      409      {object}  map[string]any
// @Router       /users/{user_id} [delete]
func (h *User) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "delete_user")

	id, err := readUUIDParam(r, "user_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	if err := h.users.Delete(ctx, models.UserFromContext(ctx), id); err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
