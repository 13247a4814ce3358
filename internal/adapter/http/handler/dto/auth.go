package dto

import (
	"strings"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/pkg/validator"
)

type RegisterRequest struct {
	CompanyName     string `json:"company_name"`
	RUC             string `json:"ruc"`
	Address         string `json:"address"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	ContactName     string `json:"contact_name"`
	ContactPhone    string `json:"contact_phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (r *RegisterRequest) Validate(v *validator.Validator) {
	v.Check(validator.NotBlank(r.CompanyName), "company_name", "must be provided")
	v.Check(validator.MaxChars(r.CompanyName, 200), "company_name", "must not be more than 200 characters long")
	v.Check(validator.Matches(r.RUC, validator.RUCRX), "ruc", "must contain exactly 11 digits")
	v.Check(validator.NotBlank(r.Address), "address", "must be provided")
	v.Check(validator.Matches(r.Phone, validator.PhoneRX), "phone", "must be a valid phone number")

	v.Check(r.Email != "", "email", "must be provided")
	v.Check(validator.Matches(r.Email, validator.EmailRX), "email", "must be a valid email address")
	v.Check(len(r.Email) <= 500, "email", "must not be more than 500 bytes long")

	v.Check(validator.NotBlank(r.ContactName), "contact_name", "must be provided")
	v.Check(r.ContactPhone == "" || validator.Matches(r.ContactPhone, validator.PhoneRX), "contact_phone", "must be a valid phone number")

	validatePassword(v, r.Password)
	v.Check(r.Password == r.ConfirmPassword, "confirm_password", "passwords do not match")
}

func (r *RegisterRequest) ToModel() *models.Registration {
	return &models.Registration{
		Company: models.Company{
			Name:    strings.TrimSpace(r.CompanyName),
			RUC:     r.RUC,
			Address: strings.TrimSpace(r.Address),
			Phone:   r.Phone,
			Email:   r.Email,
		},
		ContactName:  strings.TrimSpace(r.ContactName),
		ContactPhone: r.ContactPhone,
		Password:     r.Password,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate(v *validator.Validator) {
	v.Check(r.Email != "", "email", "must be provided")
	v.Check(r.Password != "", "password", "must be provided")
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r *RefreshTokenRequest) Validate(v *validator.Validator) {
	v.Check(r.RefreshToken != "", "refresh_token", "must be provided")
}

func validatePassword(v *validator.Validator, password string) {
	v.Check(password != "", "password", "must be provided")
	v.Check(len(password) >= 8, "password", "must be at least 8 bytes long")
	v.Check(len(password) <= 72, "password", "must not be more than 72 bytes long")
}

// WSAuthRequest is the first message a websocket client sends.
type WSAuthRequest struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

func (r *WSAuthRequest) Validate(v *validator.Validator) {
	v.Check(r.Type == models.WSTypeAuth, "type", "first message must be of type auth")
	v.Check(r.Token != "", "token", "must be provided")
}
