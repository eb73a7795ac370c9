package types

import (
  "strings"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"
)

type Gender string

const (
  GenderMale   Gender = "male"
  GenderFemale Gender = "female"
  GenderOther  Gender = "other"
)

// ParseGender maps free input onto the three known genders, defaulting to other.
func ParseGender(s string) Gender {
  switch Gender(strings.ToLower(strings.TrimSpace(s))) {
  case GenderMale:
    return GenderMale
  case GenderFemale:
    return GenderFemale
  default:
    return GenderOther
  }
}

type User struct {
  ID                  uuid.UUID                 `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  Email               string                    `gorm:"uniqueIndex;not null;column:email" json:"email"`
  Password            string                    `gorm:"not null;column:password" json:"-"`
  Name                string                    `gorm:"not null;column:name" json:"name"`
  Gender              Gender                    `gorm:"not null;default:'other';column:gender" json:"gender"`
  Whatsapp            string                    `gorm:"column:whatsapp" json:"whatsapp,omitempty"`
  Dob                 string                    `gorm:"column:dob" json:"dob,omitempty"`
  Institution         string                    `gorm:"column:institution" json:"institution,omitempty"`
  Department          string                    `gorm:"column:department" json:"department,omitempty"`
  Bio                 string                    `gorm:"column:bio" json:"bio,omitempty"`
  IsAdmin             bool                      `gorm:"not null;default:false;column:is_admin" json:"isAdmin"`
  AvatarBucketKey     string                    `gorm:"column:avatar_bucket_key" json:"-"`
  AvatarURL           string                    `gorm:"column:avatar_url" json:"avatar,omitempty"`
  Metadata            datatypes.JSONMap         `gorm:"column:metadata" json:"-"`

  CreatedAt           time.Time                 `gorm:"not null;default:now()" json:"createdAt"`
  UpdatedAt           time.Time                 `gorm:"not null;default:now()" json:"updatedAt"`
  DeletedAt           gorm.DeletedAt            `gorm:"index" json:"-"`
}

func (User) TableName() string {
  return "user"
}

// ProfileUpdate is a partial user. Nil fields are left untouched.
type ProfileUpdate struct {
  Name        *string   `json:"name,omitempty"`
  Gender      *Gender   `json:"gender,omitempty"`
  Whatsapp    *string   `json:"whatsapp,omitempty"`
  Dob         *string   `json:"dob,omitempty"`
  Institution *string   `json:"institution,omitempty"`
  Department  *string   `json:"department,omitempty"`
  Bio         *string   `json:"bio,omitempty"`
  Avatar      *string   `json:"avatar,omitempty"`
}

func (p ProfileUpdate) IsEmpty() bool {
  return p.Name == nil && p.Gender == nil && p.Whatsapp == nil && p.Dob == nil &&
    p.Institution == nil && p.Department == nil && p.Bio == nil && p.Avatar == nil
}

// ApplyTo merges the set fields into u.
func (p ProfileUpdate) ApplyTo(u *User) {
  if u == nil {
    return
  }
  if p.Name != nil {
    u.Name = *p.Name
  }
  if p.Gender != nil {
    u.Gender = ParseGender(string(*p.Gender))
  }
  if p.Whatsapp != nil {
    u.Whatsapp = *p.Whatsapp
  }
  if p.Dob != nil {
    u.Dob = *p.Dob
  }
  if p.Institution != nil {
    u.Institution = *p.Institution
  }
  if p.Department != nil {
    u.Department = *p.Department
  }
  if p.Bio != nil {
    u.Bio = *p.Bio
  }
  if p.Avatar != nil {
    u.AvatarURL = *p.Avatar
  }
}

// Fields returns the set fields keyed the way they are stored in user metadata.
func (p ProfileUpdate) Fields() map[string]interface{} {
  out := map[string]interface{}{}
  if p.Name != nil {
    out["name"] = *p.Name
  }
  if p.Gender != nil {
    out["gender"] = string(ParseGender(string(*p.Gender)))
  }
  if p.Whatsapp != nil {
    out["whatsapp"] = *p.Whatsapp
  }
  if p.Dob != nil {
    out["dob"] = *p.Dob
  }
  if p.Institution != nil {
    out["institution"] = *p.Institution
  }
  if p.Department != nil {
    out["department"] = *p.Department
  }
  if p.Bio != nil {
    out["bio"] = *p.Bio
  }
  if p.Avatar != nil {
    out["avatar"] = *p.Avatar
  }
  return out
}
