package domain

import "errors"

// ErrReadOnly is returned when code attempts to mutate a document that has
// already been constructed. Documents are sealed atomically at construction
// time and never accept changes afterwards.
var ErrReadOnly = errors.New("open graph document is read-only")

// ErrSpecViolation is returned by strict validation when a page is missing
// one or more of the required Open Graph properties. It is distinct from
// transport errors so callers can tell "page unreachable" apart from
// "page has no Open Graph data".
var ErrSpecViolation = errors.New("open graph specification violation")
