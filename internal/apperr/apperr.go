// Package apperr classifies pipeline failures so the transport layer can map
// them to a status code and a single user-facing message.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is the category of a pipeline failure.
type Kind int

const (
	// Internal is any failure that does not fit a more specific kind.
	Internal Kind = iota
	// Extraction means the document was malformed or could not be parsed.
	Extraction
	// UnsupportedFormat means the document type is not accepted.
	UnsupportedFormat
	// EmbeddingService means the embedding provider was unreachable or rejected the request.
	EmbeddingService
	// IndexPersistence means writing the index, registry or journal to durable storage failed.
	IndexPersistence
	// GenerationService means the answer generator failed.
	GenerationService
	// Validation means a required request field is missing or a parameter is out of range.
	Validation
	// NotFound means the referenced document does not exist.
	NotFound
)

var kindNames = map[Kind]string{
	Internal:          "internal",
	Extraction:        "extraction",
	UnsupportedFormat: "unsupported_format",
	EmbeddingService:  "embedding_service",
	IndexPersistence:  "index_persistence",
	GenerationService: "generation_service",
	Validation:        "validation",
	NotFound:          "not_found",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Sentinels for errors.Is checks, e.g. errors.Is(err, apperr.ErrUnsupportedFormat).
var (
	ErrInternal          = &Error{Kind: Internal}
	ErrExtraction        = &Error{Kind: Extraction}
	ErrUnsupportedFormat = &Error{Kind: UnsupportedFormat}
	ErrEmbeddingService  = &Error{Kind: EmbeddingService}
	ErrIndexPersistence  = &Error{Kind: IndexPersistence}
	ErrGenerationService = &Error{Kind: GenerationService}
	ErrValidation        = &Error{Kind: Validation}
	ErrNotFound          = &Error{Kind: NotFound}
)

// Error is a classified failure. Msg, when set, replaces the wrapped error's text
// in Error(); Op names the stage that failed.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// E wraps err with a kind and the operation that produced it.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// New returns an error of the given kind with a fixed user-facing message.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.Err != nil && e.Op != "":
		return e.Op + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return e.Op + ": " + e.Kind.String() + " error"
	default:
		return e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the outermost classified error in err's chain,
// or Internal when err carries no classification.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// HTTPStatus maps a kind to the status code returned by the HTTP API.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Validation, UnsupportedFormat:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
