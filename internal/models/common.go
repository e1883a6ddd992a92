// internal/models/common.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns the ID client side so the schema does not depend on a
// database UUID generator.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Enums
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderUnisex Gender = "unisex"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderUnisex:
		return true
	}
	return false
}

type NotePosition string

const (
	NotePositionTop   NotePosition = "top"
	NotePositionHeart NotePosition = "heart"
	NotePositionBase  NotePosition = "base"
)

func (p NotePosition) Valid() bool {
	switch p {
	case NotePositionTop, NotePositionHeart, NotePositionBase:
		return true
	}
	return false
}

// RoleCreator is the only perfumer role the crawler can observe.
const RoleCreator = "creator"
