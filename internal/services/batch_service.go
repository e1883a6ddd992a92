// internal/services/batch_service.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/javajoker/scentdb-backend/internal/config"
	"github.com/javajoker/scentdb-backend/internal/models"
)

// BatchReport summarizes one batch run. Outcomes follow input order; records
// never attempted because the batch halted are counted in Skipped.
type BatchReport struct {
	Source     string        `json:"source"`
	Total      int           `json:"total"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Outcomes   []Outcome     `json:"outcomes"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
}

// ErrBatchHalted wraps the failure that stopped a batch.
var ErrBatchHalted = errors.New("batch halted")

type BatchService struct {
	reconciler Reconciler
	cfg        config.BatchConfig
	log        *logrus.Entry
}

func NewBatchService(reconciler Reconciler, cfg config.BatchConfig) *BatchService {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &BatchService{
		reconciler: reconciler,
		cfg:        cfg,
		log:        logrus.WithField("service", "batch"),
	}
}

// Run reconciles every candidate. Per-record failures are logged and recorded
// without stopping the batch; a fatal failure stops it and is returned wrapped
// in ErrBatchHalted together with the partial report.
func (s *BatchService) Run(ctx context.Context, source models.SourceDescriptor, candidates []models.CandidateRecord) (*BatchReport, error) {
	report := &BatchReport{
		Source:    source.Name,
		Total:     len(candidates),
		StartedAt: time.Now().UTC(),
	}

	results := make([]*Outcome, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for i := range candidates {
		g.Go(func() error {
			out := s.runOne(gctx, source, i, &candidates[i])
			if out == nil {
				return nil
			}
			results[i] = out
			if out.Failure != nil && out.Failure.Kind == FailureFatal {
				return out.Failure
			}
			return nil
		})
	}
	runErr := g.Wait()

	for _, out := range results {
		if out == nil {
			report.Skipped++
			continue
		}
		if out.OK() {
			report.Succeeded++
		} else {
			report.Failed++
		}
		report.Outcomes = append(report.Outcomes, *out)
	}
	report.FinishedAt = time.Now().UTC()
	report.Duration = report.FinishedAt.Sub(report.StartedAt)

	entry := s.log.WithFields(logrus.Fields{
		"source":    source.Name,
		"total":     report.Total,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"skipped":   report.Skipped,
		"duration":  report.Duration.Milliseconds(),
	})

	if runErr != nil {
		entry.WithError(runErr).Error("Batch halted")
		return report, errors.Join(ErrBatchHalted, runErr)
	}
	if err := ctx.Err(); err != nil {
		entry.WithError(err).Warn("Batch cancelled")
		return report, err
	}
	entry.Info("Batch completed")
	return report, nil
}

func (s *BatchService) runOne(ctx context.Context, source models.SourceDescriptor, index int, candidate *models.CandidateRecord) *Outcome {
	if ctx.Err() != nil {
		return nil
	}

	attempts := 0
	var last *Failure
	operation := func() (uuid.UUID, error) {
		attempts++
		recordCtx, cancel := s.recordContext(ctx)
		defer cancel()

		id, err := s.reconciler.Reconcile(recordCtx, candidate, source)
		if err == nil {
			return id, nil
		}
		f := AsFailure(err, candidate.URL, StepCommit)
		last = f
		if !f.Retryable() {
			return uuid.Nil, backoff.Permanent(f)
		}
		return uuid.Nil, f
	}

	id, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxTries(uint(s.cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			s.log.WithFields(logrus.Fields{
				"url":     candidate.URL,
				"attempt": attempts,
				"wait_ms": wait.Milliseconds(),
			}).WithError(err).Warn("Retrying candidate")
		}),
	)

	// Retry hands back the context cause when the batch stops between tries.
	// That error belongs to whichever record halted the batch, not this one.
	if err != nil && ctx.Err() != nil && (last == nil || !errors.Is(err, last)) {
		s.log.WithFields(logrus.Fields{
			"url":      candidate.URL,
			"attempts": attempts,
		}).WithError(err).Debug("Candidate abandoned, batch stopped")
		return nil
	}

	out := newOutcome(candidate.URL, id, err)
	out.Index = index
	out.Attempts = attempts

	if f := out.Failure; f != nil {
		entry := s.log.WithFields(logrus.Fields{
			"url":      f.URL,
			"step":     f.Step,
			"field":    f.Field,
			"kind":     f.Kind,
			"attempts": attempts,
		}).WithError(f.Err)
		if f.Kind == FailureFatal {
			entry.Error("Candidate failed fatally")
		} else {
			entry.Warn("Candidate skipped")
		}
	}
	return &out
}

func (s *BatchService) recordContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RecordTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.RecordTimeout)
}

func (s *BatchService) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if s.cfg.RetryInitialInterval > 0 {
		b.InitialInterval = s.cfg.RetryInitialInterval
	}
	return b
}
