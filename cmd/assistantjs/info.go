package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newInfoCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Open a session and show the project's public info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := f.connect(cmd)
			if err != nil {
				return err
			}
			info := c.GetProjectInfo()
			return f.render(cmd.OutOrStdout(), info, func(w io.Writer) {
				assistants := "all"
				if len(info.AllowedAssistants) > 0 {
					assistants = strings.Join(info.AllowedAssistants, ", ")
				}
				fmt.Fprintf(w, "Project:     %s (%s)\n", info.Name, info.ProjectID)
				if info.Description != "" {
					fmt.Fprintf(w, "Description: %s\n", info.Description)
				}
				fmt.Fprintf(w, "Assistants:  %s\n", assistants)
				fmt.Fprintf(w, "Session:     %d min, expires %s\n", info.SessionDurationMinutes, c.SessionExpiresAt().Format("15:04:05 MST"))
				fmt.Fprintf(w, "Limits:      %d/min, %d/day, %d/session\n",
					info.RateLimits.RequestsPerMinute,
					info.RateLimits.RequestsPerDay,
					info.RateLimits.RequestsPerSession)
			})
		},
	}
}

func newHealthCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the public API health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := f.connect(cmd)
			if err != nil {
				return err
			}
			h, err := c.HealthCheck(cmd.Context())
			if err != nil {
				return err
			}
			return f.render(cmd.OutOrStdout(), h, func(w io.Writer) {
				fmt.Fprintf(w, "%s: %s\n", h.Service, h.Status)
			})
		},
	}
}
