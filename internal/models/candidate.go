// internal/models/candidate.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CandidateRecord is one parsed product observation awaiting reconciliation.
// Adapters produce it; the reconciler only consumes it. Length limits match the
// column sizes in the catalog models.
type CandidateRecord struct {
	URL           string          `json:"url" yaml:"url" validate:"required,url"`
	Brand         string          `json:"brand" yaml:"brand" validate:"required,not_blank,max=255"`
	Name          string          `json:"name" yaml:"name" validate:"required,not_blank,max=255"`
	Year          *int            `json:"year" yaml:"year"`
	Gender        *Gender         `json:"gender" yaml:"gender" validate:"omitempty,oneof=male female unisex"`
	Concentration *string         `json:"concentration" yaml:"concentration" validate:"omitempty,max=50"`
	Perfumers     []string        `json:"perfumers" yaml:"perfumers" validate:"dive,not_blank,max=255"`
	Notes         []CandidateNote `json:"notes" yaml:"notes" validate:"dive"`
}

type CandidateNote struct {
	Name     string       `json:"name" yaml:"name" validate:"not_blank,max=255"`
	Position NotePosition `json:"position" yaml:"position" validate:"required,oneof=top heart base"`
}

// SourceDescriptor names the catalog a candidate came from.
type SourceDescriptor struct {
	Name    string `json:"name" yaml:"name" validate:"required,not_blank,max=100"`
	BaseURL string `json:"base_url" yaml:"base_url" validate:"omitempty,url"`
}

type candidateNoteObject struct {
	Name     string       `json:"name" yaml:"name"`
	Position NotePosition `json:"position" yaml:"position"`
	Pos      NotePosition `json:"pos" yaml:"pos"`
}

func (o candidateNoteObject) note() CandidateNote {
	n := CandidateNote{Name: o.Name, Position: o.Position}
	if n.Position == "" {
		n.Position = o.Pos
	}
	return n
}

func noteFromPair(pair []string) (CandidateNote, error) {
	if len(pair) != 2 {
		return CandidateNote{}, fmt.Errorf("note pair must have 2 elements, got %d", len(pair))
	}
	return CandidateNote{Name: pair[0], Position: NotePosition(pair[1])}, nil
}

// UnmarshalJSON accepts {"name":..,"position":..}, the older {"name":..,"pos":..}
// and the ["Bergamot","top"] pair form.
func (n *CandidateNote) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var pair []string
		if err := json.Unmarshal(trimmed, &pair); err != nil {
			return fmt.Errorf("decode note pair: %w", err)
		}
		note, err := noteFromPair(pair)
		if err != nil {
			return err
		}
		*n = note
		return nil
	}

	var obj candidateNoteObject
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return fmt.Errorf("decode note: %w", err)
	}
	*n = obj.note()
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for go-yaml documents.
func (n *CandidateNote) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var pair []string
	if err := unmarshal(&pair); err == nil {
		note, err := noteFromPair(pair)
		if err != nil {
			return err
		}
		*n = note
		return nil
	}

	var obj candidateNoteObject
	if err := unmarshal(&obj); err != nil {
		return fmt.Errorf("decode note: %w", err)
	}
	*n = obj.note()
	return nil
}
