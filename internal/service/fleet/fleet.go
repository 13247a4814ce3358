package fleet

import (
	"context"
	"strings"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	"github.com/Temutjin2k/ispeed/pkg/trm"
	"github.com/google/uuid"
)

type CompanyRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Company, error)
	Update(ctx context.Context, c *models.Company) error
}

type CityRepo interface {
	Create(ctx context.Context, city *models.City) error
	List(ctx context.Context, companyID uuid.UUID) ([]models.City, error)
	Delete(ctx context.Context, companyID, id uuid.UUID) error
}

// Service holds the company profile and its branch cities.
type Service struct {
	companies CompanyRepo
	cities    CityRepo
	txManager trm.TxManager
	log       logger.Logger
}

func NewService(companies CompanyRepo, cities CityRepo, txManager trm.TxManager, log logger.Logger) *Service {
	return &Service{
		companies: companies,
		cities:    cities,
		txManager: txManager,
		log:       log,
	}
}

func (s *Service) Company(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
	return s.companies.Get(ctx, companyID)
}

func (s *Service) UpdateCompany(ctx context.Context, companyID uuid.UUID, upd models.CompanyUpdate) (*models.Company, error) {
	ctx = wrap.WithAction(ctx, "company_update")

	var company *models.Company
	err := s.txManager.Do(ctx, func(txCtx context.Context) error {
		c, err := s.companies.Get(txCtx, companyID)
		if err != nil {
			return err
		}
		if upd.Name != nil {
			c.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.RUC != nil {
			c.RUC = *upd.RUC
		}
		if upd.Address != nil {
			c.Address = *upd.Address
		}
		if upd.Phone != nil {
			c.Phone = *upd.Phone
		}
		if err := s.companies.Update(txCtx, c); err != nil {
			return err
		}
		company = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "company updated", "company_id", companyID)
	return company, nil
}

func (s *Service) AddCity(ctx context.Context, companyID uuid.UUID, name, address string) (*models.City, error) {
	city := &models.City{
		CompanyID: companyID,
		Name:      strings.TrimSpace(name),
		Address:   strings.TrimSpace(address),
	}
	if err := s.cities.Create(ctx, city); err != nil {
		return nil, err
	}
	return city, nil
}

func (s *Service) Cities(ctx context.Context, companyID uuid.UUID) ([]models.City, error) {
	return s.cities.List(ctx, companyID)
}

func (s *Service) RemoveCity(ctx context.Context, companyID, cityID uuid.UUID) error {
	return s.cities.Delete(ctx, companyID, cityID)
}
