package ledger

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/dbtape/internal/dbapi"
	"github.com/roach88/dbtape/internal/ir"
)

// ErrorEncoder converts err to a Failure. It reports false when err is not
// of the kind it handles. Message is filled in by the registry.
type ErrorEncoder func(err error) (Failure, bool)

// ErrorDecoder rebuilds an error from a Failure produced by the matching
// encoder.
type ErrorDecoder func(f Failure) (error, error)

type errorCodec struct {
	kind   string
	encode ErrorEncoder
	decode ErrorDecoder
}

// ErrorRegistry maps error kinds to encoders and decoders so a recorded
// failure is re-raised on replay with the same kind and message.
//
// Encoders are tried newest first. An error no encoder claims is recorded
// by its Go type name and replayed as a *RecordedError.
type ErrorRegistry struct {
	mu     sync.RWMutex
	codecs []errorCodec
	byKind map[string]ErrorDecoder
}

// NewErrorRegistry creates an empty registry.
func NewErrorRegistry() *ErrorRegistry {
	return &ErrorRegistry{byKind: make(map[string]ErrorDecoder)}
}

// Register adds a codec for kind. A later registration for the same kind
// replaces the decoder and takes precedence when encoding.
func (r *ErrorRegistry) Register(kind string, enc ErrorEncoder, dec ErrorDecoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs = append(r.codecs, errorCodec{kind: kind, encode: enc, decode: dec})
	r.byKind[kind] = dec
}

// RegisterSentinel registers a sentinel error under kind. Any error for
// which errors.Is(err, target) holds is recorded under kind; replay
// returns an error that still satisfies errors.Is(err, target).
func (r *ErrorRegistry) RegisterSentinel(kind string, target error) {
	r.Register(kind,
		func(err error) (Failure, bool) {
			if !errors.Is(err, target) {
				return Failure{}, false
			}
			return Failure{Kind: kind}, true
		},
		func(Failure) (error, error) {
			return target, nil
		},
	)
}

// Encode converts err to a Failure. It never fails.
func (r *ErrorRegistry) Encode(err error) Failure {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.codecs) - 1; i >= 0; i-- {
		c := r.codecs[i]
		f, ok := c.encode(err)
		if !ok {
			continue
		}
		f.Kind = c.kind
		f.Message = err.Error()
		return f
	}
	return Failure{Kind: fmt.Sprintf("%T", err), Message: err.Error()}
}

// Decode rebuilds the error recorded in f.
//
// The result always has f.Message as its text. When the decoded error's
// own text differs (the original was wrapped), it is returned wrapped so
// errors.Is and errors.As still reach it.
func (r *ErrorRegistry) Decode(f Failure) error {
	r.mu.RLock()
	dec, ok := r.byKind[f.Kind]
	r.mu.RUnlock()

	if !ok {
		return &RecordedError{Kind: f.Kind, Message: f.Message}
	}

	err, decErr := dec(f)
	if decErr != nil || err == nil {
		return &RecordedError{Kind: f.Kind, Message: f.Message}
	}
	if err.Error() == f.Message {
		return err
	}
	return &replayedError{msg: f.Message, err: err}
}

// replayedError restores the text of a wrapped original error.
type replayedError struct {
	msg string
	err error
}

func (e *replayedError) Error() string { return e.msg }
func (e *replayedError) Unwrap() error { return e.err }

// Kind prefix for classified client errors, e.g. "dbapi.IntegrityError".
const dbapiKindPrefix = "dbapi."

// DefaultErrors returns a registry that understands the client error
// taxonomy plus the context and database/sql sentinels.
func DefaultErrors() *ErrorRegistry {
	r := NewErrorRegistry()

	r.RegisterSentinel("context.Canceled", context.Canceled)
	r.RegisterSentinel("context.DeadlineExceeded", context.DeadlineExceeded)
	r.RegisterSentinel("sql.ErrNoRows", sql.ErrNoRows)
	r.RegisterSentinel("sql.ErrTxDone", sql.ErrTxDone)
	r.RegisterSentinel("sql.ErrConnDone", sql.ErrConnDone)
	r.RegisterSentinel("driver.ErrBadConn", driver.ErrBadConn)

	// Registered last so a classified error wrapping a sentinel is kept
	// as the classified error.
	for _, kind := range dbapi.Kinds {
		r.Register(dbapiKindPrefix+string(kind), encodeDBAPI(kind), decodeDBAPI(kind))
	}
	return r
}

func encodeDBAPI(kind dbapi.ErrorKind) ErrorEncoder {
	return func(err error) (Failure, bool) {
		var e *dbapi.Error
		if !errors.As(err, &e) || e.Kind != kind {
			return Failure{}, false
		}
		return Failure{Payload: ir.NewIRObject(
			ir.O("code", ir.IRInt(e.Code)),
			ir.O("message", ir.IRString(e.Message)),
		)}, true
	}
}

func decodeDBAPI(kind dbapi.ErrorKind) ErrorDecoder {
	return func(f Failure) (error, error) {
		code, _ := f.Payload["code"].(ir.IRInt)
		msg, ok := f.Payload["message"].(ir.IRString)
		if !ok {
			// Payload-less record: recover the message from the full text.
			msg = ir.IRString(strings.TrimPrefix(f.Message, string(kind)+": "))
		}
		return &dbapi.Error{Kind: kind, Code: int(code), Message: string(msg)}, nil
	}
}
