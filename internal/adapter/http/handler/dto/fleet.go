package dto

import (
	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/pkg/validator"
)

type UpdateCompanyRequest struct {
	Name    *string `json:"name"`
	RUC     *string `json:"ruc"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
}

func (r *UpdateCompanyRequest) Validate(v *validator.Validator) {
	v.Check(r.Name != nil || r.RUC != nil || r.Address != nil || r.Phone != nil, "body", "at least one field must be provided")
	if r.Name != nil {
		v.Check(validator.NotBlank(*r.Name), "name", "must not be blank")
	}
	if r.RUC != nil {
		v.Check(validator.Matches(*r.RUC, validator.RUCRX), "ruc", "must contain exactly 11 digits")
	}
	if r.Address != nil {
		v.Check(validator.NotBlank(*r.Address), "address", "must not be blank")
	}
	if r.Phone != nil {
		v.Check(validator.Matches(*r.Phone, validator.PhoneRX), "phone", "must be a valid phone number")
	}
}

func (r *UpdateCompanyRequest) ToModel() models.CompanyUpdate {
	return models.CompanyUpdate{
		Name:    r.Name,
		RUC:     r.RUC,
		Address: r.Address,
		Phone:   r.Phone,
	}
}

type CreateCityRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (r *CreateCityRequest) Validate(v *validator.Validator) {
	v.Check(validator.NotBlank(r.Name), "name", "must be provided")
	v.Check(validator.MaxChars(r.Name, 100), "name", "must not be more than 100 characters long")
	v.Check(validator.MaxChars(r.Address, 300), "address", "must not be more than 300 characters long")
}
