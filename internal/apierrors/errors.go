// Package apierrors defines relay's error taxonomy and maps it to HTTP
// status codes.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies which bucket of relay's error taxonomy an error belongs
// to, which in turn decides its HTTP status mapping.
type Kind string

const (
	// KindClassification is an LLM/provider failure during classify;
	// surfaced to the HTTP layer as 5xx.
	KindClassification Kind = "classification"
	// KindSearchBackend is a non-2xx from the search API; callers turn
	// this into a textual diagnostic rather than propagating it raw.
	KindSearchBackend Kind = "search_backend"
	// KindFetch is a network/HTTP/timeout failure fetching content.
	KindFetch Kind = "fetch"
	// KindExtraction is an extractor LLM failure.
	KindExtraction Kind = "extraction"
	// KindPipeline is an uncaught failure inside the agent task.
	KindPipeline Kind = "pipeline"
	// KindStore is a database error; surfaced to the HTTP layer as 5xx.
	KindStore Kind = "store"
)

// Error is a typed relay error carrying the taxonomy Kind alongside the
// wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newKind(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Classification wraps err as a ClassificationError.
func Classification(message string, err error) *Error { return newKind(KindClassification, message, err) }

// SearchBackend wraps err as a SearchBackendError.
func SearchBackend(message string, err error) *Error { return newKind(KindSearchBackend, message, err) }

// Fetch wraps err as a FetchError.
func Fetch(message string, err error) *Error { return newKind(KindFetch, message, err) }

// Extraction wraps err as an ExtractionError.
func Extraction(message string, err error) *Error { return newKind(KindExtraction, message, err) }

// Pipeline wraps err as a PipelineError.
func Pipeline(message string, err error) *Error { return newKind(KindPipeline, message, err) }

// Store wraps err as a StoreError.
func Store(message string, err error) *Error { return newKind(KindStore, message, err) }

// ClarificationNeeded is the in-band pipeline signal raised by the
// ask_user tool. It is not a failure: the orchestrator catches it and
// ends the stream cleanly with a ClarificationEvent.
var ClarificationNeeded = errors.New("apierrors: clarification needed")

// HTTPStatus maps an error to the HTTP status the API layer should
// return. Classification and Store errors are 5xx;
// everything else defaults to 500 since it should never reach the HTTP
// boundary directly (search/fetch/extraction errors are absorbed into
// tool diagnostics, and pipeline errors terminate the SSE stream instead
// of returning a status code).
func HTTPStatus(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case KindClassification, KindStore:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}