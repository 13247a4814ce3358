package models

import (
	"time"

	"github.com/google/uuid"
)

type Company struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	RUC       string    `json:"ruc"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

type CompanyUpdate struct {
	Name    *string
	RUC     *string
	Address *string
	Phone   *string
}

// City is a branch location of a company.
type City struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// Registration is the company sign-up form: the company and its first supervisor.
type Registration struct {
	Company      Company
	ContactName  string
	ContactPhone string
	Password     string
}
