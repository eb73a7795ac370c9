package types

import (
  "fmt"
  "strings"
  "time"

  "github.com/google/uuid"
)

type ResourceType string

const (
  ResourceTypePDF   ResourceType = "pdf"
  ResourceTypeVideo ResourceType = "video"
  ResourceTypeLink  ResourceType = "link"
)

// ResourceTypeForMIME classifies an uploaded file. Anything that is not a pdf is treated as video.
func ResourceTypeForMIME(mime string) ResourceType {
  if strings.Contains(strings.ToLower(mime), "pdf") {
    return ResourceTypePDF
  }
  return ResourceTypeVideo
}

// FormatSizeMB renders a byte count the way the library lists it, e.g. "2.4 MB".
func FormatSizeMB(n int64) string {
  return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
}

// Resource is a library entry. URL is either a data: URL or a remote URL.
// UploadedAt is unix milliseconds.
type Resource struct {
  ID                  string                    `gorm:"primaryKey;column:id" json:"id"`
  Name                string                    `gorm:"not null;column:name" json:"name"`
  Type                ResourceType              `gorm:"not null;column:type" json:"type"`
  URL                 string                    `gorm:"type:text;not null;column:url" json:"url"`
  Size                string                    `gorm:"column:size" json:"size,omitempty"`
  UploadedAt          int64                     `gorm:"not null;column:uploaded_at" json:"uploadedAt"`
  UserID              uuid.UUID                 `gorm:"type:uuid;index;not null;column:user_id" json:"-"`
  User                *User                     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
  BucketKey           string                    `gorm:"column:bucket_key" json:"-"`

  CreatedAt           time.Time                 `gorm:"not null;default:now()" json:"-"`
  UpdatedAt           time.Time                 `gorm:"not null;default:now()" json:"-"`
}

func (Resource) TableName() string {
  return "resource"
}
