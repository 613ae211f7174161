// Package logging centralizes slog construction and the structured fields
// used across the pipeline.
//
// New builds console or JSON handlers that tee to stderr and the run log
// file; WithContext stamps run-ID and step fields pulled from a context; the
// attr helpers keep call sites terse.
package logging
