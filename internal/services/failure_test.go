package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"nil", nil, ""},
		{"deadline", context.DeadlineExceeded, FailureTransient},
		{"cancelled wrapped", fmt.Errorf("select: %w", context.Canceled), FailureTransient},
		{"resolver exhausted", errResolveExhausted, FailureConflict},
		{"pg unique violation", &pgconn.PgError{Code: "23505"}, FailureConflict},
		{"pg foreign key", &pgconn.PgError{Code: "23503"}, FailureConflict},
		{"pg serialization", &pgconn.PgError{Code: "40001"}, FailureTransient},
		{"pg deadlock", &pgconn.PgError{Code: "40P01"}, FailureTransient},
		{"pg connection class", &pgconn.PgError{Code: "08006"}, FailureTransient},
		{"pg undefined table", &pgconn.PgError{Code: "42P01"}, FailureFatal},
		{"pg bad password", &pgconn.PgError{Code: "28P01"}, FailureFatal},
		{"pg not null", &pgconn.PgError{Code: "23502"}, FailureMalformed},
		{"pg data exception", &pgconn.PgError{Code: "22001"}, FailureMalformed},
		{"wrapped pg error", fmt.Errorf("insert brand: %w", &pgconn.PgError{Code: "23505"}), FailureConflict},
		{"sqlite unique", errors.New("UNIQUE constraint failed: brands.name_norm"), FailureConflict},
		{"sqlite missing table", errors.New("no such table: perfume_notes"), FailureFatal},
		{"sqlite locked", errors.New("database is locked"), FailureTransient},
		{"unknown", errors.New("something odd"), FailureTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestAsFailureKeepsExistingFailure(t *testing.T) {
	orig := &Failure{Kind: FailureMalformed, URL: "https://x/1", Step: StepValidate, Field: "name"}
	got := AsFailure(fmt.Errorf("wrapped: %w", orig), "https://other", StepCommit)
	assert.Same(t, orig, got)
}

func TestAsFailureClassifiesForeignErrors(t *testing.T) {
	got := AsFailure(errors.New("no such table: brands"), "https://x/1", StepBrand)
	require.NotNil(t, got)
	assert.Equal(t, FailureFatal, got.Kind)
	assert.Equal(t, StepBrand, got.Step)
	assert.Equal(t, "https://x/1", got.URL)
	assert.False(t, got.Retryable())
	assert.Nil(t, AsFailure(nil, "", StepCommit))
}

func TestFailureMessage(t *testing.T) {
	f := &Failure{Kind: FailureMalformed, URL: "https://x/1", Step: StepValidate, Field: "notes[0].position", Err: errors.New("bad")}
	assert.Equal(t, "malformed failure at validate (field notes[0].position) for https://x/1: bad", f.Error())
	assert.True(t, (&Failure{Kind: FailureConflict}).Retryable())
	assert.True(t, (&Failure{Kind: FailureTransient}).Retryable())
}
