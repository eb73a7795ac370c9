package db

import (
  "fmt"

  "gorm.io/driver/postgres"
  "gorm.io/gorm"

  "github.com/slotter-org/aristo-backend/internal/logger"
  "github.com/slotter-org/aristo-backend/internal/types"
  "github.com/slotter-org/aristo-backend/internal/utils"
)

type PostgresService struct {
  db  *gorm.DB
  log *logger.Logger
}

type foreignKey struct {
  name     string
  table    string
  column   string
  refTable string
  onDelete string
}

var foreignKeys = []foreignKey{
  {"fk_user_token_user_id", "user_token", "user_id", "user", "CASCADE"},
  {"fk_one_time_code_user_id", "one_time_code", "user_id", "user", "CASCADE"},
  {"fk_note_author_id", "note", "author_id", "user", "CASCADE"},
  {"fk_resource_user_id", "resource", "user_id", "user", "CASCADE"},
}

// DSNFromEnv prefers DATABASE_URL and otherwise assembles one from the POSTGRES_* variables.
func DSNFromEnv(log *logger.Logger) string {
  if url := utils.GetEnv("DATABASE_URL", "", log); url != "" {
    return url
  }
  postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
  postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
  postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
  postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
  postgresName := utils.GetEnv("POSTGRES_NAME", "aristo", log)
  sslMode := utils.GetEnv("POSTGRES_SSLMODE", "disable", log)
  return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName, sslMode)
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
  serviceLog := log.With("service", "PostgresService")

  //1) Build DSN
  serviceLog.Info("Attempting to load environment variables for Postgres now...")
  dsn := DSNFromEnv(serviceLog)
  serviceLog.Info("Environment variables loaded for Postgres :)")

  //2) Attempt DB Connection
  serviceLog.Info("Attempting to connect to Postgres DB now...")
  db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
    DisableForeignKeyConstraintWhenMigrating: true,
  })
  if err != nil {
    serviceLog.Error("Failed to connect to Postgres DB", "error", err)
    return nil, fmt.Errorf("failed to connect to Postgres DB: %w", err)
  }
  serviceLog.Info("Successfully Connected to Postgres DB :)")

  //3) Enable uuid-ossp Extension
  serviceLog.Debug("Attempting to enable uuid-ossp extension now...")
  if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
    serviceLog.Error("Failed to enable uuid-ossp extension :(", "error", err)
    return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
  }
  serviceLog.Info("uuid-ossp extension enabled or already exists :)")

  return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
  s.log.Info("Starting AutoMigrateAll for all GORM models now...")

  if err := s.db.AutoMigrate(
    &types.User{},
    &types.UserToken{},
    &types.OneTimeCode{},
    &types.Note{},
    &types.Resource{},
  ); err != nil {
    s.log.Error("AutoMigrateAll failed for Base Tables :(", "error", err)
    return err
  }
  s.log.Info("AutoMigrateAll completed successfully for Base Tables :)")

  s.log.Info("Configuring Foreign Key Relationships for Base Tables now...")
  for _, fk := range foreignKeys {
    if err := s.ensureForeignKey(fk); err != nil {
      return err
    }
  }
  s.log.Info("Successfully Added Foreign Key Relationships to Base Tables :)")
  return nil
}

// ensureForeignKey adds the constraint unless a previous boot already did.
func (s *PostgresService) ensureForeignKey(fk foreignKey) error {
  var exists int64
  if err := s.db.Raw(`SELECT COUNT(*) FROM pg_constraint WHERE conname = ?`, fk.name).Scan(&exists).Error; err != nil {
    return fmt.Errorf("failed to look up %s: %w", fk.name, err)
  }
  if exists > 0 {
    s.log.Debug("Foreign key already present", "constraint", fk.name)
    return nil
  }
  stmt := fmt.Sprintf(
    `ALTER TABLE %q ADD CONSTRAINT %q FOREIGN KEY (%q) REFERENCES %q ("id") ON DELETE %s`,
    fk.table, fk.name, fk.column, fk.refTable, fk.onDelete,
  )
  if err := s.db.Exec(stmt).Error; err != nil {
    return fmt.Errorf("failed to add %s: %w", fk.name, err)
  }
  return nil
}

func (s *PostgresService) DB() *gorm.DB {
  return s.db
}

func (s *PostgresService) Close() error {
  sqlDB, err := s.db.DB()
  if err != nil {
    return err
  }
  return sqlDB.Close()
}
