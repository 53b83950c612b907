package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dbtape/internal/dbapi"
	"github.com/roach88/dbtape/internal/ir"
)

func TestDefaultErrorsDBAPI(t *testing.T) {
	r := DefaultErrors()
	orig := &dbapi.Error{Kind: dbapi.KindIntegrity, Code: 2067, Message: "UNIQUE constraint failed: users.email"}

	f := r.Encode(orig)
	assert.Equal(t, "dbapi.IntegrityError", f.Kind)
	assert.Equal(t, orig.Error(), f.Message)

	got := r.Decode(f)
	assert.Equal(t, orig.Error(), got.Error())
	assert.True(t, dbapi.IsIntegrity(got))
	assert.ErrorIs(t, got, orig)

	var de *dbapi.Error
	require.ErrorAs(t, got, &de)
	assert.Equal(t, 2067, de.Code)
}

func TestDefaultErrorsWrappedKeepsText(t *testing.T) {
	r := DefaultErrors()
	inner := dbapi.NewError(dbapi.KindOperational, "database is locked")
	orig := fmt.Errorf("insert user: %w", inner)

	got := r.Decode(r.Encode(orig))
	assert.Equal(t, "insert user: OperationalError: database is locked", got.Error())
	assert.True(t, dbapi.IsOperational(got))
}

func TestDefaultErrorsSentinels(t *testing.T) {
	r := DefaultErrors()
	for _, target := range []error{context.Canceled, context.DeadlineExceeded, sql.ErrNoRows, sql.ErrTxDone} {
		orig := fmt.Errorf("query: %w", target)
		got := r.Decode(r.Encode(orig))
		assert.ErrorIs(t, got, target)
		assert.Equal(t, orig.Error(), got.Error())
	}
}

func TestDBAPIWrappingSentinelStaysClassified(t *testing.T) {
	r := DefaultErrors()
	orig := &dbapi.Error{Kind: dbapi.KindOperational, Message: "interrupted", Err: context.Canceled}

	f := r.Encode(orig)
	assert.Equal(t, "dbapi.OperationalError", f.Kind)
}

func TestUnknownErrorFallsBack(t *testing.T) {
	r := DefaultErrors()
	orig := errors.New("something odd")

	f := r.Encode(orig)
	assert.Equal(t, "*errors.errorString", f.Kind)

	got := r.Decode(f)
	var re *RecordedError
	require.ErrorAs(t, got, &re)
	assert.Equal(t, "*errors.errorString", re.Kind)
	assert.Equal(t, "something odd", got.Error())
}

type quotaError struct{ limit int }

func (e *quotaError) Error() string { return fmt.Sprintf("quota of %d exceeded", e.limit) }

func TestRegisterCustomKind(t *testing.T) {
	r := DefaultErrors()
	r.Register("quota",
		func(err error) (Failure, bool) {
			var qe *quotaError
			if !errors.As(err, &qe) {
				return Failure{}, false
			}
			return Failure{Payload: ir.NewIRObject(ir.O("limit", ir.IRInt(qe.limit)))}, true
		},
		func(f Failure) (error, error) {
			limit, ok := f.Payload["limit"].(ir.IRInt)
			if !ok {
				return nil, errors.New("missing limit")
			}
			return &quotaError{limit: int(limit)}, nil
		},
	)

	got := r.Decode(r.Encode(&quotaError{limit: 3}))
	var qe *quotaError
	require.ErrorAs(t, got, &qe)
	assert.Equal(t, 3, qe.limit)
}

func TestDecodeFailureFallsBackToRecordedError(t *testing.T) {
	r := NewErrorRegistry()
	r.Register("broken",
		func(error) (Failure, bool) { return Failure{}, true },
		func(Failure) (error, error) { return nil, errors.New("cannot decode") },
	)

	got := r.Decode(Failure{Kind: "broken", Message: "original text"})
	var re *RecordedError
	require.ErrorAs(t, got, &re)
	assert.Equal(t, "broken", re.Kind)
	assert.Equal(t, "original text", got.Error())
}
