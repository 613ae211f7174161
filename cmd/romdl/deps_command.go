package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/angstwad/retro-rom-downloader/internal/deps"
	"github.com/angstwad/retro-rom-downloader/internal/preflight"
)

// depStatusView is the JSON view of one external tool check.
type depStatusView struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Path        string `json:"path,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check that the external tools romdl shells out to are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := preflight.CheckSystemDeps(cfg)

			if ctx.JSONMode() {
				views := make([]depStatusView, 0, len(statuses))
				for _, status := range statuses {
					views = append(views, depStatusView{
						Name:        status.Name,
						Command:     status.Command,
						Description: status.Description,
						Optional:    status.Optional,
						Available:   status.Available,
						Path:        status.Path,
						Detail:      status.Detail,
					})
				}
				if err := writeJSON(cmd.OutOrStdout(), views); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(statuses))
				for _, status := range statuses {
					location := status.Path
					if location == "" {
						location = status.Detail
					}
					rows = append(rows, []string{
						status.Name,
						yesNo(status.Available),
						yesNo(!status.Optional),
						location,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Tool", "Available", "Required", "Location"}, rows))
			}

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, status := range missing {
					names = append(names, status.Name)
				}
				return fmt.Errorf("missing required tools: %s", strings.Join(names, ", "))
			}
			return nil
		},
	}
}
