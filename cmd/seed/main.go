// Command seed registers a demo company with a supervisor and two drivers.
// Accounts that already exist are left untouched.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/Temutjin2k/ispeed/config"
	"github.com/Temutjin2k/ispeed/internal/adapter/postgres"
	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/internal/service/auth"
	"github.com/Temutjin2k/ispeed/internal/service/user"
	"github.com/Temutjin2k/ispeed/pkg/configparser"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	postgresclient "github.com/Temutjin2k/ispeed/pkg/postgres"
	"github.com/Temutjin2k/ispeed/pkg/trm"
	"github.com/google/uuid"
)

var (
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
	password   = flag.String("password", "password123", "Password of every seeded account")
)

type noLiveTrips struct{}

func (noLiveTrips) HasLiveTrip(uuid.UUID) bool { return false }

func main() {
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	log := logger.InitLogger("seed", logger.LevelInfo)

	cfg := &config.Config{}
	if err := configparser.LoadAndParseYaml(*configPath, cfg); err != nil {
		log.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	db, err := postgresclient.New(ctx, cfg.Database)
	if err != nil {
		log.Error(ctx, "failed to connect to database", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := seed(ctx, db, log); err != nil {
		log.Error(ctx, "seed failed", err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, db *postgresclient.PostgreDB, log logger.Logger) error {
	txManager := trm.New(db.Pool)
	userRepo := postgres.NewUserRepo(db.Pool)
	companyRepo := postgres.NewCompanyRepo(db.Pool)
	refreshRepo := postgres.NewRefreshTokenRepo(db.Pool)

	authSvc := auth.NewAuthService(userRepo, companyRepo, refreshRepo, nil, txManager, log)
	userSvc := user.NewService(userRepo, refreshRepo, noLiveTrips{}, txManager, log)

	_, supervisor, err := authSvc.Register(ctx, &models.Registration{
		Company: models.Company{
			Name:    "Transportes Andinos S.A.C.",
			RUC:     "20123456789",
			Address: "Av. Javier Prado Este 1234, Lima",
			Phone:   "+51 1 4567890",
			Email:   "supervisor@andinos.pe",
		},
		ContactName:  "Rosa Quispe",
		ContactPhone: "+51 987654321",
		Password:     *password,
	})
	switch {
	case errors.Is(err, types.ErrRUCTaken), errors.Is(err, types.ErrEmailTaken):
		log.Info(ctx, "demo company already registered")
		return nil
	case err != nil:
		return err
	}

	drivers := []models.User{
		{Name: "Juan Mamani", Email: "juan@andinos.pe", Phone: "+51 912345678", Role: types.DriverRole},
		{Name: "Luis Huaman", Email: "luis@andinos.pe", Phone: "+51 923456789", Role: types.DriverRole},
	}
	for i := range drivers {
		if err := userSvc.Create(ctx, supervisor, &drivers[i], *password); err != nil && !errors.Is(err, types.ErrEmailTaken) {
			return err
		}
	}

	log.Info(ctx, "demo data seeded", "supervisor", supervisor.Email, "drivers", len(drivers))
	return nil
}
