// Binary seed-db loads the starter catalog and the bootstrap admin account
// into the database. Safe to re-run: medicines are upserted and an existing
// admin is left alone.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/lianamed/pharmacy-api/internal/domain/medicine"
	"github.com/lianamed/pharmacy-api/internal/domain/user"
	"github.com/lianamed/pharmacy-api/internal/repository"
)

type medicineJSON struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Category             string          `json:"category"`
	Description          string          `json:"description"`
	Price                decimal.Decimal `json:"price"`
	Stock                int             `json:"stock"`
	Image                string          `json:"image"`
	RequiresPrescription bool            `json:"requiresPrescription"`
}

func main() {
	var (
		databaseURL   string
		medicinesFile string
		adminEmail    string
		adminPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&medicinesFile, "medicines-file", "db/seed/medicines.json", "path to medicines JSON file")
	flag.StringVar(&adminEmail, "admin-email", "", "bootstrap admin email (or LIANA_SEED_ADMIN_EMAIL env)")
	flag.StringVar(&adminPassword, "admin-password", "", "bootstrap admin password (or LIANA_SEED_ADMIN_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminEmail == "" {
		adminEmail = os.Getenv("LIANA_SEED_ADMIN_EMAIL")
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("LIANA_SEED_ADMIN_PASSWORD")
	}
	if adminEmail == "" || adminPassword == "" {
		slog.Error("admin credentials are required: set --admin-email/--admin-password or LIANA_SEED_ADMIN_* env")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, medicinesFile, adminEmail, adminPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, medicinesFile, adminEmail, adminPassword string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedMedicines(ctx, repository.NewMedicineRepository(pool), medicinesFile); err != nil {
		return errors.Wrap(err, "seed medicines")
	}

	if err := seedAdmin(ctx, repository.NewUserRepository(pool), adminEmail, adminPassword); err != nil {
		return errors.Wrap(err, "seed admin")
	}

	return nil
}

func seedMedicines(ctx context.Context, repo *repository.MedicineRepository, medicinesFile string) error {
	slog.Info("reading medicines file", slog.String("path", medicinesFile))

	data, err := os.ReadFile(medicinesFile)
	if err != nil {
		return errors.Wrap(err, "read medicines file")
	}

	var medicines []medicineJSON
	if err := json.Unmarshal(data, &medicines); err != nil {
		return errors.Wrap(err, "parse medicines JSON")
	}

	slog.Info("upserting medicines", slog.Int("count", len(medicines)))

	for _, m := range medicines {
		if err := repo.Upsert(ctx, &medicine.Medicine{
			ID:                   m.ID,
			Name:                 m.Name,
			Category:             m.Category,
			Description:          m.Description,
			Price:                m.Price,
			Stock:                m.Stock,
			ImageRef:             m.Image,
			RequiresPrescription: m.RequiresPrescription,
		}); err != nil {
			return errors.Wrapf(err, "upsert medicine %s", m.ID)
		}

		slog.Info("upserted medicine", slog.String("id", m.ID), slog.String("name", m.Name))
	}

	return nil
}

func seedAdmin(ctx context.Context, users *repository.UserRepository, email, password string) error {
	slog.Info("seeding bootstrap admin", slog.String("email", email))

	// The signing secret only matters for issuing tokens, which seeding
	// never does.
	auth := user.NewAuthService(users, []byte("seed"))
	_, err := auth.Register(ctx, user.RegisterRequest{
		Name:     "Administrator",
		Email:    email,
		Password: password,
		Role:     user.RoleAdmin,
	})
	if errors.Is(err, user.ErrEmailTaken) {
		slog.Info("admin already exists, skipping")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "register admin")
	}

	slog.Info("created admin account")
	return nil
}
