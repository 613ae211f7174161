// Package services defines shared utilities consumed by the pipeline steps
// and external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers and step names for logging
//     and tracing.
//   - Structured error markers plus the Wrap helper that tag failures for
//     consistent classification (abort vs continue).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across steps.
package services
