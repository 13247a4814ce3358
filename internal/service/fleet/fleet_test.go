package fleet

import (
	"context"
	"testing"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noTx struct{}

func (noTx) Do(ctx context.Context, fn func(ctx context.Context) error) error         { return fn(ctx) }
func (noTx) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type memCompanies map[uuid.UUID]models.Company

func (m memCompanies) Get(_ context.Context, id uuid.UUID) (*models.Company, error) {
	c, ok := m[id]
	if !ok {
		return nil, types.ErrCompanyNotFound
	}
	return &c, nil
}

func (m memCompanies) Update(_ context.Context, c *models.Company) error {
	m[c.ID] = *c
	return nil
}

type memCities struct{ cities []models.City }

func (m *memCities) Create(_ context.Context, c *models.City) error {
	for _, existing := range m.cities {
		if existing.CompanyID == c.CompanyID && existing.Name == c.Name {
			return types.ErrCityExists
		}
	}
	c.ID = uuid.New()
	m.cities = append(m.cities, *c)
	return nil
}

func (m *memCities) List(_ context.Context, companyID uuid.UUID) ([]models.City, error) {
	out := []models.City{}
	for _, c := range m.cities {
		if c.CompanyID == companyID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCities) Delete(_ context.Context, companyID, id uuid.UUID) error {
	for i, c := range m.cities {
		if c.ID == id && c.CompanyID == companyID {
			m.cities = append(m.cities[:i], m.cities[i+1:]...)
			return nil
		}
	}
	return types.ErrCityNotFound
}

func TestUpdateCompany(t *testing.T) {
	id := uuid.New()
	companies := memCompanies{id: {ID: id, Name: "Old", RUC: "20123456789", Address: "Lima"}}
	svc := NewService(companies, &memCities{}, noTx{}, logger.NewNop())

	name, phone := "  Transportes Andinos ", "+51 1 555 0101"
	c, err := svc.UpdateCompany(context.Background(), id, models.CompanyUpdate{Name: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Transportes Andinos", c.Name)
	assert.Equal(t, "Lima", c.Address, "untouched fields are kept")
	assert.Equal(t, "+51 1 555 0101", companies[id].Phone)

	_, err = svc.UpdateCompany(context.Background(), uuid.New(), models.CompanyUpdate{Name: &name})
	assert.ErrorIs(t, err, types.ErrCompanyNotFound)
}

func TestCities(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	svc := NewService(memCompanies{}, &memCities{}, noTx{}, logger.NewNop())

	lima, err := svc.AddCity(ctx, companyID, " Lima ", "Av. Javier Prado 100")
	require.NoError(t, err)
	assert.Equal(t, "Lima", lima.Name)

	_, err = svc.AddCity(ctx, companyID, "Lima", "")
	assert.ErrorIs(t, err, types.ErrCityExists)

	_, err = svc.AddCity(ctx, uuid.New(), "Lima", "")
	assert.NoError(t, err, "names are unique per company")

	cities, err := svc.Cities(ctx, companyID)
	require.NoError(t, err)
	assert.Len(t, cities, 1)

	assert.ErrorIs(t, svc.RemoveCity(ctx, uuid.New(), lima.ID), types.ErrCityNotFound)
	require.NoError(t, svc.RemoveCity(ctx, companyID, lima.ID))
}
