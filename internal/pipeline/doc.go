// Package pipeline orchestrates a download run: discover archive links on a
// listing page, match them against the requested games list, hand the selected
// URLs to the downloader, and extract what arrives.
//
// A run holds an exclusive lock file inside the output directory so two runs
// never download into the same tree. Failures after preflight are soft: the
// run logs them, records them on the report, and keeps going where the
// remaining steps still make sense (a failed download still attempts
// extraction of whatever landed on disk).
package pipeline
