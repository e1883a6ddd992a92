// internal/services/failure.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

type FailureKind string

const (
	// FailureMalformed: the candidate was rejected before any write.
	FailureMalformed FailureKind = "malformed"
	// FailureTransient: store unreachable, lock timeout, deadline. Retry the record.
	FailureTransient FailureKind = "transient"
	// FailureConflict: a uniqueness race the resolver could not absorb. Retry the record.
	FailureConflict FailureKind = "conflict"
	// FailureFatal: schema missing, bad credentials. Stop the batch.
	FailureFatal FailureKind = "fatal"
)

// Reconciliation steps, in execution order.
const (
	StepValidate   = "validate"
	StepSource     = "source"
	StepBrand      = "brand"
	StepPerfume    = "perfume"
	StepPerfumers  = "perfumers"
	StepNotes      = "notes"
	StepProvenance = "provenance"
	StepCommit     = "commit"
)

// Failure is the error type returned by every reconciliation.
type Failure struct {
	Kind  FailureKind
	URL   string
	Step  string
	Field string
	Err   error
}

func (f *Failure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failure at %s", f.Kind, f.Step)
	if f.Field != "" {
		fmt.Fprintf(&b, " (field %s)", f.Field)
	}
	if f.URL != "" {
		fmt.Fprintf(&b, " for %s", f.URL)
	}
	if f.Err != nil {
		fmt.Fprintf(&b, ": %v", f.Err)
	}
	return b.String()
}

func (f *Failure) Unwrap() error { return f.Err }

func (f *Failure) Retryable() bool {
	return f.Kind == FailureTransient || f.Kind == FailureConflict
}

// AsFailure extracts a *Failure from err, classifying foreign errors.
func AsFailure(err error, url, step string) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: ClassifyError(err), URL: url, Step: step, Err: err}
}

var errResolveExhausted = errors.New("entity vanished between insert and select")

// ClassifyError maps store errors onto the failure taxonomy.
func ClassifyError(err error) FailureKind {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return FailureTransient
	case errors.Is(err, errResolveExhausted):
		return FailureConflict
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := strings.TrimSpace(pgErr.Code)
		switch {
		case code == "23505", code == "23503": // unique_violation, foreign_key_violation
			return FailureConflict
		case code == "40001", code == "40P01", code == "55P03", code == "57014", code == "57P01":
			return FailureTransient // serialization, deadlock, lock_not_available, query_canceled, admin_shutdown
		case strings.HasPrefix(code, "08"):
			return FailureTransient // connection_exception
		case code == "42P01", code == "42703", code == "3D000", code == "28000", code == "28P01":
			return FailureFatal // undefined table/column, unknown database, auth
		case code == "23502", strings.HasPrefix(code, "22"):
			return FailureMalformed // not_null_violation, data_exception
		}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return FailureTransient
	}

	// Fallback: message matching covers SQLite and errors that lost their type.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"), strings.Contains(msg, "duplicate key"):
		return FailureConflict
	case strings.Contains(msg, "no such table"),
		strings.Contains(msg, "no such column"),
		strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "authentication failed"):
		return FailureFatal
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "broken pipe"):
		return FailureTransient
	}
	return FailureTransient
}
