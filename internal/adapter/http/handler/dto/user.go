package dto

import (
	"strings"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/pkg/validator"
)

type CreateUserRequest struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Phone    string         `json:"phone"`
	Role     types.UserRole `json:"role"`
	Password string         `json:"password"`
}

func (r *CreateUserRequest) Validate(v *validator.Validator) {
	v.Check(validator.NotBlank(r.Name), "name", "must be provided")
	v.Check(len(r.Name) <= 500, "name", "must not be more than 500 bytes long")
	v.Check(validator.Matches(r.Email, validator.EmailRX), "email", "must be a valid email address")
	v.Check(r.Phone == "" || validator.Matches(r.Phone, validator.PhoneRX), "phone", "must be a valid phone number")
	v.Check(r.Role == "" || r.Role.Valid(), "role", "must be DRIVER or SUPERVISOR")
	validatePassword(v, r.Password)
}

func (r *CreateUserRequest) ToModel() *models.User {
	return &models.User{
		Name:  strings.TrimSpace(r.Name),
		Email: r.Email,
		Phone: r.Phone,
		Role:  r.Role,
	}
}

type UpdateUserRequest struct {
	Name   *string           `json:"name"`
	Phone  *string           `json:"phone"`
	Role   *types.UserRole   `json:"role"`
	Status *types.UserStatus `json:"status"`
}

func (r *UpdateUserRequest) Validate(v *validator.Validator) {
	v.Check(r.Name != nil || r.Phone != nil || r.Role != nil || r.Status != nil, "body", "at least one field must be provided")
	if r.Name != nil {
		v.Check(validator.NotBlank(*r.Name), "name", "must not be blank")
	}
	if r.Phone != nil {
		v.Check(validator.Matches(*r.Phone, validator.PhoneRX), "phone", "must be a valid phone number")
	}
	if r.Role != nil {
		v.Check(r.Role.Valid(), "role", "must be DRIVER or SUPERVISOR")
	}
	if r.Status != nil {
		v.Check(r.Status.Valid(), "status", "must be INVITED, ACTIVE or INACTIVE")
	}
}

func (r *UpdateUserRequest) ToModel() models.UserUpdate {
	return models.UserUpdate{
		Name:   r.Name,
		Phone:  r.Phone,
		Role:   r.Role,
		Status: r.Status,
	}
}
