package store

import (
	"database/sql"
	"fmt"

	"github.com/roach88/dbtape/internal/ir"
	"github.com/roach88/dbtape/internal/ledger"
)

// Outcome kinds as stored in outcomes.kind.
const (
	kindSuccess = "success"
	kindFailure = "failure"
)

// outcomeRow is the column form of one ledger entry.
type outcomeRow struct {
	callKey      string
	position     int
	seq          int64
	kind         string
	value        sql.NullString
	errorKind    sql.NullString
	errorMessage sql.NullString
	errorPayload sql.NullString
}

// marshalEntry converts a ledger entry to its row form. Values and error
// payloads are stored as canonical JSON TEXT.
func marshalEntry(e ledger.Entry) (outcomeRow, error) {
	row := outcomeRow{
		callKey:  string(e.Key),
		position: e.Position,
		seq:      e.Seq,
	}

	if f := e.Outcome.Failure; f != nil {
		payload := f.Payload
		if payload == nil {
			payload = ir.IRObject{}
		}
		data, err := ir.MarshalCanonical(payload)
		if err != nil {
			return outcomeRow{}, fmt.Errorf("marshal error payload for %s: %w", e.Key, err)
		}
		row.kind = kindFailure
		row.errorKind = sql.NullString{String: f.Kind, Valid: true}
		row.errorMessage = sql.NullString{String: f.Message, Valid: true}
		row.errorPayload = sql.NullString{String: string(data), Valid: true}
		return row, nil
	}

	data, err := ir.MarshalCanonical(e.Outcome.Value)
	if err != nil {
		return outcomeRow{}, fmt.Errorf("marshal value for %s: %w", e.Key, err)
	}
	row.kind = kindSuccess
	row.value = sql.NullString{String: string(data), Valid: true}
	return row, nil
}

// unmarshalEntry converts a stored row back to a ledger entry.
func unmarshalEntry(row outcomeRow) (ledger.Entry, error) {
	key, err := ledger.ParseKey(row.callKey)
	if err != nil {
		return ledger.Entry{}, err
	}

	e := ledger.Entry{Seq: row.seq, Key: key, Position: row.position}

	switch row.kind {
	case kindSuccess:
		v, err := ir.UnmarshalCanonical([]byte(row.value.String))
		if err != nil {
			return ledger.Entry{}, fmt.Errorf("unmarshal value for %s: %w", key, err)
		}
		e.Outcome = ledger.Success(v)
	case kindFailure:
		payload := ir.IRObject{}
		if row.errorPayload.Valid && row.errorPayload.String != "" {
			v, err := ir.UnmarshalCanonical([]byte(row.errorPayload.String))
			if err != nil {
				return ledger.Entry{}, fmt.Errorf("unmarshal error payload for %s: %w", key, err)
			}
			obj, ok := v.(ir.IRObject)
			if !ok {
				return ledger.Entry{}, fmt.Errorf("error payload for %s: expected object, got %T", key, v)
			}
			payload = obj
		}
		e.Outcome = ledger.Failed(ledger.Failure{
			Kind:    row.errorKind.String,
			Message: row.errorMessage.String,
			Payload: payload,
		})
	default:
		return ledger.Entry{}, fmt.Errorf("outcome %s/%d: unknown kind %q", key, row.position, row.kind)
	}

	return e, nil
}
