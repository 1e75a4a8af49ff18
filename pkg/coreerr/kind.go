// Package coreerr defines the single error surface of the retrieval layer: a
// closed set of kinds, each bound to an HTTP status and a default message,
// and the classifier that turns upstream failures into those kinds.
package coreerr

import "net/http"

// Kind identifies a domain error. The set is closed; every Kind is bound to
// a status and default message in the kinds table.
type Kind int

const (
	// Unspecified is the zero Kind and never produced by this package.
	Unspecified Kind = iota

	// General purpose kinds.
	InternalError
	BadRequest
	NotFound
	Conflict

	// Embedding provider kinds.
	EmbeddingKeyNotFound
	EmbeddingKeyInvalid
	EmbeddingKeyForbidden
	EmbeddingTooManyRequests
	EmbeddingQuotaExceeded
	EmbeddingContextLengthExceeded
	EmbeddingModelNotFound
	EmbeddingInternalServerError
	EmbeddingTimeout
	EmbeddingUnexpectedResponse
	EmbeddingUnknown

	// Vector store kinds.
	StoreBadRequest
	StoreInternalServerError
	StoreTimeout
	StoreUnknown
)

type kindInfo struct {
	name    string
	status  int
	message string
}

// kinds is built once and never mutated. KEY_INVALID and KEY_FORBIDDEN are
// surfaced as 400: the caller supplied a bad credential, the service itself
// is not unauthorized.
var kinds = map[Kind]kindInfo{
	InternalError: {"INTERNAL_ERROR", http.StatusInternalServerError, "a temporary error occurred"},
	BadRequest:    {"BAD_REQUEST", http.StatusBadRequest, "bad request"},
	NotFound:      {"NOT_FOUND", http.StatusNotFound, "resource does not exist"},
	Conflict:      {"CONFLICT", http.StatusConflict, "resource already exists"},

	EmbeddingKeyNotFound:           {"EMBEDDING_KEY_NOT_FOUND", http.StatusBadRequest, "embedding API key is not set"},
	EmbeddingKeyInvalid:            {"EMBEDDING_KEY_INVALID", http.StatusBadRequest, "embedding API key is invalid"},
	EmbeddingKeyForbidden:          {"EMBEDDING_KEY_FORBIDDEN", http.StatusBadRequest, "embedding API key lacks permission"},
	EmbeddingTooManyRequests:       {"EMBEDDING_TOO_MANY_REQUESTS", http.StatusTooManyRequests, "too many embedding requests, retry later"},
	EmbeddingQuotaExceeded:         {"EMBEDDING_QUOTA_EXCEEDED", http.StatusTooManyRequests, "embedding API quota exceeded"},
	EmbeddingContextLengthExceeded: {"EMBEDDING_CONTEXT_LENGTH_EXCEEDED", http.StatusBadRequest, "input is too long for the embedding model"},
	EmbeddingModelNotFound:         {"EMBEDDING_MODEL_NOT_FOUND", http.StatusNotFound, "embedding model not found"},
	EmbeddingInternalServerError:   {"EMBEDDING_INTERNAL_SERVER_ERROR", http.StatusInternalServerError, "embedding provider internal error"},
	EmbeddingTimeout:               {"EMBEDDING_TIMEOUT", http.StatusGatewayTimeout, "embedding request timed out"},
	EmbeddingUnexpectedResponse:    {"EMBEDDING_UNEXPECTED_RESPONSE", http.StatusInternalServerError, "unexpected response from embedding provider"},
	EmbeddingUnknown:               {"EMBEDDING_UNKNOWN", http.StatusInternalServerError, "unknown embedding provider error"},

	StoreBadRequest:          {"STORE_BAD_REQUEST", http.StatusBadRequest, "invalid vector store request"},
	StoreInternalServerError: {"STORE_INTERNAL_SERVER_ERROR", http.StatusInternalServerError, "vector store internal error"},
	StoreTimeout:             {"STORE_TIMEOUT", http.StatusGatewayTimeout, "vector store request timed out"},
	StoreUnknown:             {"STORE_UNKNOWN", http.StatusInternalServerError, "unknown vector store error"},
}

// String returns the stable wire name of the kind, e.g. "STORE_TIMEOUT".
func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return "UNSPECIFIED"
}

// Status returns the HTTP status a caller should render for this kind.
func (k Kind) Status() int {
	if info, ok := kinds[k]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// Message returns the default human readable message for this kind.
func (k Kind) Message() string {
	if info, ok := kinds[k]; ok {
		return info.message
	}
	return kinds[InternalError].message
}

// Kinds returns every defined kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := InternalError; k <= StoreUnknown; k++ {
		out = append(out, k)
	}
	return out
}
