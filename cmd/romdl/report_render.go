package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/angstwad/retro-rom-downloader/internal/catalog"
	"github.com/angstwad/retro-rom-downloader/internal/pipeline"
)

type statusKind int

const (
	statusOK statusKind = iota
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

const statusLabelWidth = 18

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := "[" + statusKindLabel(kind) + "]"
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", statusText)
	if colorize {
		return statusKindColor(kind) + base + ansiReset
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "OK"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	default:
		return ansiGreen
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderDownloadReport prints the human-readable summary of a run.
func renderDownloadReport(cmd *cobra.Command, report *pipeline.Report, unzipEnabled bool) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	fmt.Fprintf(out, "Source: %s (region %s)\n", report.PageURL, report.Region)
	fmt.Fprintf(out, "Links discovered: %d\n", report.LinksFound)
	fmt.Fprintf(out, "Games requested: %d\n", report.GamesRequested)

	if len(report.Matched) > 0 {
		rows := make([][]string, 0, len(report.Matched))
		for _, m := range report.Matched {
			rows = append(rows, []string{
				m.Requested,
				m.Canonical,
				strconv.Itoa(m.Score),
				catalog.Link(m.Link).Filename(),
			})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable([]string{"Requested", "Matched Title", "Score", "Archive"}, rows, 2))
	}

	if len(report.Unmatched) > 0 {
		fmt.Fprintf(out, "\nGames not found (%d):\n", len(report.Unmatched))
		for _, title := range report.Unmatched {
			fmt.Fprintf(out, "  - %s\n", title)
		}
	}

	fmt.Fprintln(out)
	if report.Aborted != "" {
		fmt.Fprintln(out, renderStatusLine("Run", statusWarn, "stopped: "+report.Aborted, colorize))
		return
	}
	if report.DryRun {
		fmt.Fprintln(out, renderStatusLine("Run", statusOK, fmt.Sprintf("dry run, %d links selected", len(report.Links)), colorize))
		return
	}

	fmt.Fprintln(out, renderStatusLine("Links file", statusOK, fmt.Sprintf("%s (%d links)", report.LinksFile, len(report.Links)), colorize))
	if report.DownloadError != "" {
		fmt.Fprintln(out, renderStatusLine("Download", statusError, report.DownloadError, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Download", statusOK, "", colorize))
	}

	if !unzipEnabled {
		fmt.Fprintln(out, renderStatusLine("Extraction", statusOK, "skipped (unzip disabled)", colorize))
		return
	}
	extractKind := statusOK
	extractMsg := fmt.Sprintf("%d archives extracted", report.Extracted)
	if len(report.ExtractionFailures) > 0 {
		extractKind = statusWarn
		extractMsg = fmt.Sprintf("%d archives extracted, %d failed", report.Extracted, len(report.ExtractionFailures))
	}
	fmt.Fprintln(out, renderStatusLine("Extraction", extractKind, extractMsg, colorize))
	for _, failure := range report.ExtractionFailures {
		fmt.Fprintf(out, "    %s: %s\n", failure.Archive, failure.Error)
	}
}
