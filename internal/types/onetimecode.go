package types

import (
  "time"

  "github.com/google/uuid"
)

type OneTimeCodePurpose string

const (
  OneTimeCodePasswordReset OneTimeCodePurpose = "password_reset"
)

type OneTimeCode struct {
  ID                  uuid.UUID                 `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
  UserID              uuid.UUID                 `gorm:"index;not null"`
  User                *User                     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID"`

  Code                string                    `gorm:"uniqueIndex;not null;column:code"`
  Purpose             OneTimeCodePurpose        `gorm:"not null;column:purpose"`
  ExpiresAt           time.Time                 `gorm:"column:expires_at"`
  Used                bool                      `gorm:"not null;default:false"`

  CreatedAt           time.Time                 `gorm:"not null;default:now()"`
  UpdatedAt           time.Time                 `gorm:"not null;default:now()"`
}

func (OneTimeCode) TableName() string {
  return "one_time_code"
}

// Usable reports whether the code can still be redeemed at now.
func (c OneTimeCode) Usable(now time.Time) bool {
  return !c.Used && now.Before(c.ExpiresAt)
}
