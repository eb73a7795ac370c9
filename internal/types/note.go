package types

import (
  "time"

  "github.com/google/uuid"
)

const DefaultNoteTitle = "নতুন নোট"

// Note is a rich-text note. LastModified is unix milliseconds.
type Note struct {
  ID                  string                    `gorm:"primaryKey;column:id" json:"id"`
  Title               string                    `gorm:"not null;column:title" json:"title"`
  Content             string                    `gorm:"type:text;column:content" json:"content"`
  LastModified        int64                     `gorm:"not null;column:last_modified" json:"lastModified"`
  AuthorID            uuid.UUID                 `gorm:"type:uuid;index;not null;column:author_id" json:"authorId"`
  Author              *User                     `gorm:"constraint:OnDelete:CASCADE;foreignKey:AuthorID;references:ID" json:"-"`

  CreatedAt           time.Time                 `gorm:"not null;default:now()" json:"-"`
  UpdatedAt           time.Time                 `gorm:"not null;default:now()" json:"-"`
}

func (Note) TableName() string {
  return "note"
}
