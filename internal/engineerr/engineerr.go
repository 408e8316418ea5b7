// Package engineerr defines the error taxonomy shared by the catalog,
// engine, and carrier boundaries: NotFound, InvalidRequest, CatalogError,
// and Internal. Each is its own type (CatalogError also wraps an inner
// error), so a REST layer can pick the right status code without
// inspecting strings.
package engineerr

import "fmt"

// NotFoundError means an underlying, expiration, strike, or order was
// absent. Boundary lookups return it; the engine treats it as "skip" on
// internal use.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Resource)
}

// NotFound builds a NotFoundError.
func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// InvalidRequestError means the caller supplied something malformed: a bad
// side or style string, a bad expiration format, or a knob outside its
// parse range. It never modifies state.
type InvalidRequestError struct {
	Detail string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Detail)
}

// InvalidRequest builds an InvalidRequestError.
func InvalidRequest(detail string) error {
	return &InvalidRequestError{Detail: detail}
}

// CatalogError wraps a lower-layer book error, e.g. a rejected zero price.
// The engine logs and swallows these on both the add and cancel paths.
type CatalogError struct {
	Inner error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog error: %v", e.Inner)
}

func (e *CatalogError) Unwrap() error {
	return e.Inner
}

// Catalog wraps an inner error as a CatalogError.
func Catalog(inner error) error {
	return &CatalogError{Inner: inner}
}

// InternalError means an unexpected invariant was violated; it bubbles up
// rather than being swallowed.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %s", e.Msg)
}

// Internal builds an InternalError.
func Internal(msg string) error {
	return &InternalError{Msg: msg}
}
