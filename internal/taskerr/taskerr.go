// Package taskerr classifies task processing failures so the consumer can
// decide between ack/nack and which status message to emit.
package taskerr

import (
	"errors"
	"fmt"
)

// Kind identifies the failure class of a task error.
type Kind int

const (
	KindUnknown Kind = iota
	KindMalformedEnvelope
	KindStorageUnavailable
	KindNotFound
	KindParseEmpty
	KindParser
	KindChunker
	KindEmbedder
	KindVectorStore
	KindBroker
)

func (k Kind) String() string {
	switch k {
	case KindMalformedEnvelope:
		return "malformed_envelope"
	case KindStorageUnavailable:
		return "storage_unavailable"
	case KindNotFound:
		return "not_found"
	case KindParseEmpty:
		return "parse_empty"
	case KindParser:
		return "parser"
	case KindChunker:
		return "chunker"
	case KindEmbedder:
		return "embedder"
	case KindVectorStore:
		return "vector_store"
	case KindBroker:
		return "broker"
	default:
		return "unknown"
	}
}

// Error is a task failure tagged with its stage kind. It wraps the
// underlying cause so errors.Is/As keep working through it.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with the given kind. A nil err yields nil.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Newf wraps a formatted error with the given kind.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the kind from err, or KindUnknown if it carries none.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}
