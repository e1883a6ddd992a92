package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/scentdb-backend/internal/config"
	"github.com/javajoker/scentdb-backend/internal/database"
	"github.com/javajoker/scentdb-backend/internal/models"
)

// scriptedReconciler returns queued errors per URL before succeeding.
type scriptedReconciler struct {
	mu     sync.Mutex
	errs   map[string][]error
	calls  map[string]int
	onCall func(url string)
}

func newScriptedReconciler(errs map[string][]error) *scriptedReconciler {
	return &scriptedReconciler{errs: errs, calls: map[string]int{}}
}

func (r *scriptedReconciler) Reconcile(ctx context.Context, c *models.CandidateRecord, _ models.SourceDescriptor) (uuid.UUID, error) {
	r.mu.Lock()
	r.calls[c.URL]++
	var err error
	if queue := r.errs[c.URL]; len(queue) > 0 {
		err = queue[0]
		r.errs[c.URL] = queue[1:]
	}
	onCall := r.onCall
	r.mu.Unlock()

	if onCall != nil {
		onCall(c.URL)
	}
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(c.URL)), nil
}

func (r *scriptedReconciler) callsFor(url string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[url]
}

func testBatchConfig() config.BatchConfig {
	return config.BatchConfig{
		Workers:              1,
		MaxAttempts:          3,
		RecordTimeout:        time.Second,
		RetryInitialInterval: time.Millisecond,
	}
}

func candidatesFor(urls ...string) []models.CandidateRecord {
	out := make([]models.CandidateRecord, 0, len(urls))
	for i, u := range urls {
		c := sauvage()
		c.URL = u
		c.Name = fmt.Sprintf("Sauvage %d", i)
		out = append(out, *c)
	}
	return out
}

func TestBatchPartialFailureDoesNotStopTheBatch(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	defer database.Close(db)

	batch := NewBatchService(NewReconcileService(db, config.ReconcileConfig{ResolveAttempts: 3}), testBatchConfig())

	candidates := candidatesFor("https://x/1", "https://x/2", "https://x/3")
	candidates[1].Name = ""

	report, err := batch.Run(context.Background(), seedSource, candidates)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Skipped)
	require.Len(t, report.Outcomes, 3)

	assert.True(t, report.Outcomes[0].OK())
	assert.False(t, report.Outcomes[1].OK())
	assert.True(t, report.Outcomes[2].OK())
	assert.Equal(t, 1, report.Outcomes[1].Index)
	assert.Equal(t, FailureMalformed, report.Outcomes[1].Error.Kind)
	assert.Equal(t, "name", report.Outcomes[1].Error.Field)
	assert.Equal(t, 1, report.Outcomes[1].Attempts)

	var perfumes int64
	require.NoError(t, db.Model(&models.Perfume{}).Count(&perfumes).Error)
	assert.EqualValues(t, 2, perfumes)
}

func TestBatchRetriesTransientFailures(t *testing.T) {
	transient := &Failure{Kind: FailureTransient, Step: StepBrand, Err: errors.New("database is locked")}
	rec := newScriptedReconciler(map[string][]error{
		"https://x/1": {transient, transient},
	})
	batch := NewBatchService(rec, testBatchConfig())

	report, err := batch.Run(context.Background(), seedSource, candidatesFor("https://x/1"))
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	assert.True(t, report.Outcomes[0].OK())
	assert.Equal(t, 3, report.Outcomes[0].Attempts)
	assert.Equal(t, 3, rec.callsFor("https://x/1"))
}

func TestBatchGivesUpAfterMaxAttempts(t *testing.T) {
	transient := &Failure{Kind: FailureTransient, Step: StepBrand, Err: errors.New("database is locked")}
	rec := newScriptedReconciler(map[string][]error{
		"https://x/1": {transient, transient, transient, transient},
	})
	batch := NewBatchService(rec, testBatchConfig())

	report, err := batch.Run(context.Background(), seedSource, candidatesFor("https://x/1", "https://x/2"))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 3, rec.callsFor("https://x/1"))
	assert.Equal(t, FailureTransient, report.Outcomes[0].Error.Kind)
}

func TestBatchRetriesConflicts(t *testing.T) {
	conflict := &Failure{Kind: FailureConflict, Step: StepPerfume, Err: errResolveExhausted}
	rec := newScriptedReconciler(map[string][]error{"https://x/1": {conflict}})
	batch := NewBatchService(rec, testBatchConfig())

	report, err := batch.Run(context.Background(), seedSource, candidatesFor("https://x/1"))
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	assert.True(t, report.Outcomes[0].OK())
	assert.Equal(t, 2, report.Outcomes[0].Attempts)
	assert.Equal(t, 2, rec.callsFor("https://x/1"))
	assert.Equal(t, 1, report.Succeeded)
}

func TestBatchGivesUpOnRepeatedConflicts(t *testing.T) {
	conflict := &Failure{Kind: FailureConflict, Step: StepPerfume, Err: errResolveExhausted}
	rec := newScriptedReconciler(map[string][]error{"https://x/1": {conflict, conflict, conflict}})
	batch := NewBatchService(rec, testBatchConfig())

	report, err := batch.Run(context.Background(), seedSource, candidatesFor("https://x/1"))
	require.NoError(t, err)

	assert.Equal(t, 3, rec.callsFor("https://x/1"))
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Outcomes, 1)
	require.NotNil(t, report.Outcomes[0].Error)
	assert.Equal(t, FailureConflict, report.Outcomes[0].Error.Kind)
	assert.Equal(t, StepPerfume, report.Outcomes[0].Error.Step)
	assert.Equal(t, 3, report.Outcomes[0].Attempts)
}

func TestBatchHaltsOnFatalFailure(t *testing.T) {
	fatal := &Failure{Kind: FailureFatal, Step: StepSource, Err: errors.New("no such table: sources")}
	rec := newScriptedReconciler(map[string][]error{"https://x/2": {fatal}})
	batch := NewBatchService(rec, testBatchConfig())

	report, err := batch.Run(context.Background(), seedSource, candidatesFor("https://x/1", "https://x/2", "https://x/3"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBatchHalted)

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, FailureFatal, f.Kind)

	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, rec.callsFor("https://x/3"))
}

func TestBatchSiblingFatalSkipsRetryingRecord(t *testing.T) {
	transient := &Failure{Kind: FailureTransient, Step: StepBrand, Err: errors.New("database is locked")}
	fatal := &Failure{Kind: FailureFatal, Step: StepSource, Err: errors.New("no such table: sources")}
	rec := newScriptedReconciler(map[string][]error{
		"https://x/1": {transient, transient, transient, transient, transient},
		"https://x/2": {fatal},
	})

	firstTry := make(chan struct{})
	var once sync.Once
	rec.onCall = func(url string) {
		switch url {
		case "https://x/1":
			once.Do(func() { close(firstTry) })
		case "https://x/2":
			<-firstTry
		}
	}

	cfg := testBatchConfig()
	cfg.Workers = 2
	cfg.MaxAttempts = 5
	cfg.RetryInitialInterval = 200 * time.Millisecond
	batch := NewBatchService(rec, cfg)

	report, err := batch.Run(context.Background(), seedSource, candidatesFor("https://x/1", "https://x/2"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBatchHalted)

	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, "https://x/2", report.Outcomes[0].URL)
	assert.Equal(t, FailureFatal, report.Outcomes[0].Error.Kind)
	assert.Less(t, rec.callsFor("https://x/1"), 5)
}

func TestBatchStopsWhenContextIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := newScriptedReconciler(nil)
	rec.onCall = func(url string) {
		if url == "https://x/1" {
			cancel()
		}
	}
	batch := NewBatchService(rec, testBatchConfig())

	report, err := batch.Run(ctx, seedSource, candidatesFor("https://x/1", "https://x/2"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Skipped)
}

func TestBatchWithWorkersSharesEntities(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	defer database.Close(db)

	cfg := testBatchConfig()
	cfg.Workers = 4
	batch := NewBatchService(NewReconcileService(db, config.ReconcileConfig{ResolveAttempts: 3}), cfg)

	urls := make([]string, 10)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://x/%d", i)
	}
	report, err := batch.Run(context.Background(), seedSource, candidatesFor(urls...))
	require.NoError(t, err)
	assert.Equal(t, 10, report.Succeeded)

	for i, out := range report.Outcomes {
		assert.Equal(t, i, out.Index)
		assert.Equal(t, urls[i], out.URL)
	}

	var brands, notes, perfumes int64
	require.NoError(t, db.Model(&models.Brand{}).Count(&brands).Error)
	require.NoError(t, db.Model(&models.Note{}).Count(&notes).Error)
	require.NoError(t, db.Model(&models.Perfume{}).Count(&perfumes).Error)
	assert.EqualValues(t, 1, brands)
	assert.EqualValues(t, 2, notes)
	assert.EqualValues(t, 10, perfumes)
}
