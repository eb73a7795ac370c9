package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/slotter-org/aristo-backend/internal/logger"
	"github.com/slotter-org/aristo-backend/internal/repos"
	"github.com/slotter-org/aristo-backend/internal/seed/library"
	"github.com/slotter-org/aristo-backend/internal/types"
	"github.com/slotter-org/aristo-backend/internal/utils"
)

type Config struct {
	AdminEmail      string
	AdminPassword   string
	AdminName       string
	LibraryJSONPath string
}

// SeedAll creates the admin account when configured and fills its starter library.
func SeedAll(
	ctx context.Context,
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	resourceRepo repos.ResourceRepo,
	cfg Config,
) error {
	log = log.With("component", "Seed")
	if cfg.AdminEmail == "" {
		log.Info("No seed admin configured, skipping seeding")
		return nil
	}

	admin, err := ensureAdmin(ctx, db, userRepo, cfg)
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	log.Info("Admin account ready", "email", admin.Email)

	if cfg.LibraryJSONPath != "" {
		n, err := library.SyncStarterResources(ctx, db, resourceRepo, admin.ID, cfg.LibraryJSONPath)
		if err != nil {
			return fmt.Errorf("failed to sync starter library: %w", err)
		}
		log.Info("Starter library synced", "created", n)
	}
	return nil
}

func ensureAdmin(ctx context.Context, db *gorm.DB, userRepo repos.UserRepo, cfg Config) (*types.User, error) {
	admin := &types.User{
		ID:       uuid.New(),
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Name:     cfg.AdminName,
		Gender:   types.GenderOther,
		Bio:      "Aristo Academic Scholar.",
		IsAdmin:  true,
	}
	utils.NormalizeUserFields(admin)
	if admin.Name == "" {
		admin.Name = "Administrator"
	}

	existing, err := userRepo.GetByEmails(ctx, nil, []string{admin.Email})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing[0], nil
	}

	if err := utils.ValidateEmail(admin.Email); err != nil {
		return nil, err
	}
	if err := utils.ValidatePassword(admin.Password); err != nil {
		return nil, errors.New("SEED_ADMIN_PASSWORD is missing or too short")
	}
	hash, err := utils.HashPlain(admin.Password)
	if err != nil {
		return nil, err
	}
	admin.Password = hash

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, cErr := userRepo.Create(ctx, tx, []*types.User{admin})
		return cErr
	})
	if err != nil {
		return nil, err
	}
	return admin, nil
}
