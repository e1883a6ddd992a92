// internal/services/reconcile_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/scentdb-backend/internal/config"
	"github.com/javajoker/scentdb-backend/internal/database"
	"github.com/javajoker/scentdb-backend/internal/models"
	"github.com/javajoker/scentdb-backend/internal/normalize"
	"github.com/javajoker/scentdb-backend/internal/utils"
)

// Reconciler merges one candidate record into the catalog.
type Reconciler interface {
	Reconcile(ctx context.Context, candidate *models.CandidateRecord, source models.SourceDescriptor) (uuid.UUID, error)
}

// Outcome is the per-record result handed to batch drivers.
type Outcome struct {
	Index     int        `json:"index"`
	URL       string     `json:"url"`
	PerfumeID uuid.UUID  `json:"perfume_id"`
	Attempts  int        `json:"attempts"`
	Failure   *Failure   `json:"-"`
	Error     *ErrorInfo `json:"error,omitempty"`
}

type ErrorInfo struct {
	Kind    FailureKind `json:"kind"`
	Step    string      `json:"step"`
	Field   string      `json:"field,omitempty"`
	Message string      `json:"message"`
}

func (o Outcome) OK() bool { return o.Failure == nil }

func newOutcome(url string, id uuid.UUID, err error) Outcome {
	out := Outcome{URL: url, PerfumeID: id}
	if err != nil {
		f := AsFailure(err, url, StepCommit)
		out.PerfumeID = uuid.Nil
		out.Failure = f
		out.Error = &ErrorInfo{Kind: f.Kind, Step: f.Step, Field: f.Field, Message: f.Error()}
	}
	return out
}

type ReconcileService struct {
	db  *gorm.DB
	cfg config.ReconcileConfig
	key normalize.Func
	now func() time.Time
	log *logrus.Entry
}

func NewReconcileService(db *gorm.DB, cfg config.ReconcileConfig) *ReconcileService {
	return &ReconcileService{
		db:  db,
		cfg: cfg,
		key: normalize.For(cfg.ComposeUnicode),
		now: func() time.Time { return time.Now().UTC() },
		log: logrus.WithField("service", "reconciler"),
	}
}

// WithClock replaces the clock used for provenance timestamps.
func (s *ReconcileService) WithClock(now func() time.Time) *ReconcileService {
	s.now = now
	return s
}

// Apply reconciles and folds the result into an Outcome.
func (s *ReconcileService) Apply(ctx context.Context, candidate *models.CandidateRecord, source models.SourceDescriptor) Outcome {
	id, err := s.Reconcile(ctx, candidate, source)
	url := ""
	if candidate != nil {
		url = candidate.URL
	}
	return newOutcome(url, id, err)
}

// Reconcile resolves or creates every entity the candidate references, links
// them and records provenance, all in one transaction. Errors are *Failure.
func (s *ReconcileService) Reconcile(ctx context.Context, candidate *models.CandidateRecord, source models.SourceDescriptor) (uuid.UUID, error) {
	if err := ValidateCandidate(candidate, source); err != nil {
		return uuid.Nil, err
	}

	raw, err := json.Marshal(candidate)
	if err != nil {
		return uuid.Nil, &Failure{Kind: FailureMalformed, URL: candidate.URL, Step: StepValidate, Err: err}
	}

	var perfumeID uuid.UUID
	step := StepSource
	err = database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		src, err := s.resolveSource(tx, source)
		if err != nil {
			return err
		}

		step = StepBrand
		brand, err := s.resolveBrand(tx, candidate.Brand)
		if err != nil {
			return err
		}

		step = StepPerfume
		perfume, err := s.resolvePerfume(tx, brand.ID, candidate)
		if err != nil {
			return err
		}

		step = StepPerfumers
		if err := s.linkPerfumers(tx, perfume.ID, candidate.Perfumers); err != nil {
			return err
		}

		step = StepNotes
		if err := s.linkNotes(tx, perfume.ID, candidate.Notes); err != nil {
			return err
		}

		step = StepProvenance
		if err := s.upsertProvenance(tx, perfume.ID, src.ID, candidate.URL, raw); err != nil {
			return err
		}

		step = StepCommit
		perfumeID = perfume.ID
		return nil
	})
	if err != nil {
		f := AsFailure(err, candidate.URL, step)
		s.log.WithFields(logrus.Fields{
			"url":  candidate.URL,
			"step": f.Step,
			"kind": f.Kind,
		}).WithError(f.Err).Debug("Reconciliation rolled back")
		return uuid.Nil, f
	}

	s.log.WithFields(logrus.Fields{
		"url":        candidate.URL,
		"perfume_id": perfumeID,
		"source":     source.Name,
	}).Debug("Candidate reconciled")
	return perfumeID, nil
}

// ValidateCandidate rejects malformed input before any write.
func ValidateCandidate(candidate *models.CandidateRecord, source models.SourceDescriptor) error {
	if candidate == nil {
		return &Failure{Kind: FailureMalformed, Step: StepValidate, Err: errors.New("candidate is nil")}
	}
	if err := utils.ValidateStruct(candidate); err != nil {
		return validationFailure(candidate.URL, "", err)
	}
	if err := utils.ValidateStruct(&source); err != nil {
		return validationFailure(candidate.URL, "source.", err)
	}
	return nil
}

func validationFailure(url, prefix string, err error) *Failure {
	f := &Failure{Kind: FailureMalformed, URL: url, Step: StepValidate, Err: err}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f.Field = prefix + utils.FieldPath(verrs[0])
	}
	return f
}

func (s *ReconcileService) resolveSource(tx *gorm.DB, desc models.SourceDescriptor) (*models.Source, error) {
	fresh := &models.Source{
		Name:        desc.Name,
		BaseURL:     desc.BaseURL,
		Reliability: s.cfg.DefaultReliability,
	}
	src, created, err := resolveOrCreate(tx, s.cfg.ResolveAttempts,
		map[string]interface{}{"name": desc.Name}, []string{"name"}, fresh)
	if err != nil {
		return nil, err
	}
	if !created && src.BaseURL != desc.BaseURL {
		// Reliability is curated elsewhere; only base_url follows the crawl.
		if err := tx.Model(src).Update("base_url", desc.BaseURL).Error; err != nil {
			return nil, err
		}
	}
	return src, nil
}

func (s *ReconcileService) resolveBrand(tx *gorm.DB, name string) (*models.Brand, error) {
	key := s.key(name)
	brand, created, err := resolveOrCreate(tx, s.cfg.ResolveAttempts,
		map[string]interface{}{"name_norm": key}, []string{"name_norm"},
		&models.Brand{Name: name, NameNorm: key})
	if err != nil {
		return nil, err
	}
	if !created && brand.Name != name {
		if err := tx.Model(brand).Update("name", name).Error; err != nil {
			return nil, err
		}
	}
	return brand, nil
}

func (s *ReconcileService) resolvePerfume(tx *gorm.DB, brandID uuid.UUID, c *models.CandidateRecord) (*models.Perfume, error) {
	key := s.key(c.Name)
	fresh := &models.Perfume{
		BrandID:       brandID,
		Name:          c.Name,
		NameNorm:      key,
		Year:          c.Year,
		Gender:        c.Gender,
		Concentration: c.Concentration,
	}
	perfume, created, err := resolveOrCreate(tx, s.cfg.ResolveAttempts,
		map[string]interface{}{"brand_id": brandID, "name_norm": key},
		[]string{"brand_id", "name_norm"}, fresh)
	if err != nil {
		return nil, err
	}
	if created {
		return perfume, nil
	}

	// Display name keeps its first-seen form; the crawl owns these three.
	updates := map[string]interface{}{
		"year":          c.Year,
		"gender":        c.Gender,
		"concentration": c.Concentration,
	}
	if s.cfg.KeepKnownAttributes {
		if c.Year == nil {
			delete(updates, "year")
		}
		if c.Gender == nil {
			delete(updates, "gender")
		}
		if c.Concentration == nil {
			delete(updates, "concentration")
		}
	}
	if err := tx.Model(perfume).Updates(updates).Error; err != nil {
		return nil, err
	}
	return perfume, nil
}

func (s *ReconcileService) linkPerfumers(tx *gorm.DB, perfumeID uuid.UUID, names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		key := s.key(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		perfumer, created, err := resolveOrCreate(tx, s.cfg.ResolveAttempts,
			map[string]interface{}{"name_norm": key}, []string{"name_norm"},
			&models.Perfumer{Name: name, NameNorm: key})
		if err != nil {
			return err
		}
		if !created && perfumer.Name != name {
			if err := tx.Model(perfumer).Update("name", name).Error; err != nil {
				return err
			}
		}

		link := &models.PerfumePerfumer{PerfumeID: perfumeID, PerfumerID: perfumer.ID, Role: models.RoleCreator}
		err = tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "perfume_id"}, {Name: "perfumer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
		}).Create(link).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// dedupeNotes collapses repeated notes by key, keeping first-seen order and the
// last reported position.
func dedupeNotes(notes []models.CandidateNote, keyOf normalize.Func) []models.CandidateNote {
	index := make(map[string]int, len(notes))
	out := make([]models.CandidateNote, 0, len(notes))
	for _, n := range notes {
		key := keyOf(n.Name)
		if i, ok := index[key]; ok {
			out[i].Position = n.Position
			continue
		}
		index[key] = len(out)
		out = append(out, n)
	}
	return out
}

func (s *ReconcileService) linkNotes(tx *gorm.DB, perfumeID uuid.UUID, notes []models.CandidateNote) error {
	for _, n := range dedupeNotes(notes, s.key) {
		key := s.key(n.Name)
		note, created, err := resolveOrCreate(tx, s.cfg.ResolveAttempts,
			map[string]interface{}{"name_norm": key}, []string{"name_norm"},
			&models.Note{Name: n.Name, NameNorm: key})
		if err != nil {
			return err
		}
		if !created && note.Name != n.Name {
			if err := tx.Model(note).Update("name", n.Name).Error; err != nil {
				return err
			}
		}

		link := &models.PerfumeNote{PerfumeID: perfumeID, NoteID: note.ID, NotePosition: n.Position}
		err = tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "perfume_id"}, {Name: "note_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"note_position", "updated_at"}),
		}).Create(link).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *ReconcileService) upsertProvenance(tx *gorm.DB, perfumeID, sourceID uuid.UUID, url string, raw []byte) error {
	row := &models.PerfumeSource{
		PerfumeID: perfumeID,
		SourceID:  sourceID,
		URL:       url,
		RawJSON:   datatypes.JSON(raw),
		LastSeen:  s.now(),
	}
	return tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "perfume_id"}, {Name: "source_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"url", "raw_json", "last_seen", "updated_at"}),
	}).Create(row).Error
}
