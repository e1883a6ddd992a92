// internal/models/catalog.go
package models

import (
	"github.com/google/uuid"
)

// Source is a catalog the crawler reads from. Reliability is curated by
// operators and never touched by reconciliation.
type Source struct {
	BaseModel
	Name        string `json:"name" gorm:"size:100;not null;uniqueIndex"`
	BaseURL     string `json:"base_url" gorm:"type:text"`
	Reliability int    `json:"reliability" gorm:"not null"`

	// Relationships
	Perfumes []PerfumeSource `json:"perfumes,omitempty" gorm:"foreignKey:SourceID"`
}

func (Source) TableName() string { return "sources" }

type Brand struct {
	BaseModel
	Name     string `json:"name" gorm:"size:255;not null"`
	NameNorm string `json:"name_norm" gorm:"size:255;not null;uniqueIndex"`

	// Relationships
	Perfumes []Perfume `json:"perfumes,omitempty" gorm:"foreignKey:BrandID"`
}

func (Brand) TableName() string { return "brands" }

type Perfumer struct {
	BaseModel
	Name     string `json:"name" gorm:"size:255;not null"`
	NameNorm string `json:"name_norm" gorm:"size:255;not null;uniqueIndex"`

	// Relationships
	Perfumes []PerfumePerfumer `json:"perfumes,omitempty" gorm:"foreignKey:PerfumerID"`
}

func (Perfumer) TableName() string { return "perfumers" }

// Note is a scent ingredient or descriptor.
type Note struct {
	BaseModel
	Name     string `json:"name" gorm:"size:255;not null"`
	NameNorm string `json:"name_norm" gorm:"size:255;not null;uniqueIndex"`

	// Relationships
	Perfumes []PerfumeNote `json:"perfumes,omitempty" gorm:"foreignKey:NoteID"`
}

func (Note) TableName() string { return "notes" }

// Perfume identity is scoped to its brand: (brand_id, name_norm).
type Perfume struct {
	BaseModel
	BrandID       uuid.UUID `json:"brand_id" gorm:"type:uuid;not null;uniqueIndex:idx_perfumes_brand_name_norm,priority:1"`
	Name          string    `json:"name" gorm:"size:255;not null"`
	NameNorm      string    `json:"name_norm" gorm:"size:255;not null;uniqueIndex:idx_perfumes_brand_name_norm,priority:2"`
	Year          *int      `json:"year"`
	Gender        *Gender   `json:"gender" gorm:"type:varchar(10)"`
	Concentration *string   `json:"concentration" gorm:"size:50"`

	// Relationships
	Brand     *Brand            `json:"brand,omitempty" gorm:"foreignKey:BrandID"`
	Perfumers []PerfumePerfumer `json:"perfumers,omitempty" gorm:"foreignKey:PerfumeID"`
	Notes     []PerfumeNote     `json:"notes,omitempty" gorm:"foreignKey:PerfumeID"`
	Sources   []PerfumeSource   `json:"sources,omitempty" gorm:"foreignKey:PerfumeID"`
}

func (Perfume) TableName() string { return "perfumes" }
