// internal/models/links.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Link rows are keyed by their pair; reconciliation upserts them and never
// deletes them.

type PerfumePerfumer struct {
	PerfumeID  uuid.UUID `json:"perfume_id" gorm:"type:uuid;primaryKey"`
	PerfumerID uuid.UUID `json:"perfumer_id" gorm:"type:uuid;primaryKey"`
	Role       string    `json:"role" gorm:"size:50;not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Perfumer *Perfumer `json:"perfumer,omitempty" gorm:"foreignKey:PerfumerID"`
}

func (PerfumePerfumer) TableName() string { return "perfume_perfumers" }

type PerfumeNote struct {
	PerfumeID    uuid.UUID    `json:"perfume_id" gorm:"type:uuid;primaryKey"`
	NoteID       uuid.UUID    `json:"note_id" gorm:"type:uuid;primaryKey"`
	NotePosition NotePosition `json:"note_position" gorm:"type:varchar(10);not null"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`

	Note *Note `json:"note,omitempty" gorm:"foreignKey:NoteID"`
}

func (PerfumeNote) TableName() string { return "perfume_notes" }

// PerfumeSource is the provenance row: which source/url last described a perfume.
type PerfumeSource struct {
	PerfumeID uuid.UUID      `json:"perfume_id" gorm:"type:uuid;primaryKey"`
	SourceID  uuid.UUID      `json:"source_id" gorm:"type:uuid;primaryKey"`
	URL       string         `json:"url" gorm:"type:text;not null"`
	RawJSON   datatypes.JSON `json:"raw_json" gorm:"not null"`
	LastSeen  time.Time      `json:"last_seen" gorm:"not null;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	Source *Source `json:"source,omitempty" gorm:"foreignKey:SourceID"`
}

func (PerfumeSource) TableName() string { return "perfume_sources" }
