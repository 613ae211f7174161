package pipeline

// Abort reasons recorded on a report when a run stops before downloading.
const (
	AbortNoLinks   = "no archive links discovered on the listing page"
	AbortNoGames   = "no games found in the list"
	AbortNoMatches = "no requested titles matched the catalog"
)

// MatchedTitle records one requested title that matched a catalog entry.
type MatchedTitle struct {
	Requested string `json:"requested"`
	Canonical string `json:"canonical"`
	Score     int    `json:"score"`
	Link      string `json:"link"`
}

// ExtractionFailure records one archive that could not be unpacked or removed.
type ExtractionFailure struct {
	Archive string `json:"archive"`
	Error   string `json:"error"`
}

// Report summarizes a single run. It is the machine-readable result handed
// back to the CLI for rendering.
type Report struct {
	RunID          string `json:"run_id"`
	PageURL        string `json:"page_url"`
	Region         string `json:"region"`
	DryRun         bool   `json:"dry_run,omitempty"`
	LinksFound     int    `json:"links_found"`
	GamesRequested int    `json:"games_requested"`

	Matched   []MatchedTitle `json:"matched,omitempty"`
	Unmatched []string       `json:"unmatched,omitempty"`
	Links     []string       `json:"links,omitempty"`
	LinksFile string         `json:"links_file,omitempty"`

	// Aborted names the condition that stopped the run before the download
	// step. Empty for runs that reached the download step.
	Aborted string `json:"aborted,omitempty"`

	FetchError         string              `json:"fetch_error,omitempty"`
	DownloadError      string              `json:"download_error,omitempty"`
	Extracted          int                 `json:"extracted"`
	ExtractionFailures []ExtractionFailure `json:"extraction_failures,omitempty"`
}

// Completed reports whether the run made it past matching into the download
// and extraction steps.
func (r *Report) Completed() bool {
	return r.Aborted == "" && !r.DryRun
}
