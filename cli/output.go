// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/danielhkuo/abri/models"
	"github.com/danielhkuo/abri/validate"
)

// print writes v as indented JSON with --json, or calls text otherwise
func (a *app) print(cmd *cobra.Command, v any, text func()) error {
	if !a.jsonOut {
		text()
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var phaseLabels = map[models.Phase]string{
	models.PhaseIdle:          "no request",
	models.PhaseSubmitting:    "sending",
	models.PhaseSubmitted:     "submitted",
	models.PhaseStoredLocally: "stored locally, not sent",
	models.PhaseRejected:      "rejected by the server",
}

func printState(w io.Writer, s models.State) {
	fmt.Fprintf(w, "Request:  %s\n", s.Kind)
	fmt.Fprintf(w, "State:    %s\n", phaseLabels[s.Phase])
	if s.ID != "" {
		fmt.Fprintf(w, "ID:       %s\n", s.ID)
	}
	if s.LocalID != "" {
		fmt.Fprintf(w, "Local ID: %s\n", s.LocalID)
	}
	if s.Status != "" && s.Phase != models.PhaseRejected {
		fmt.Fprintf(w, "Status:   %s\n", s.Status)
	}
	if s.StagedAt != nil {
		fmt.Fprintf(w, "Saved:    %s (%s)\n", humanize.Time(*s.StagedAt), s.StagedAt.Local().Format("2006-01-02 15:04"))
	}
	if s.Message != "" {
		fmt.Fprintf(w, "Message:  %s\n", s.Message)
	}
	if s.Phase == models.PhaseStoredLocally {
		fmt.Fprintf(w, "\nRun \"abri retry %s\" to send it again.\n", s.Kind)
	}
}

func printDonations(w io.Writer, dons []models.Donation) {
	if len(dons) == 0 {
		fmt.Fprintln(w, "No donations.")
		return
	}

	for _, d := range dons {
		line := fmt.Sprintf("%-14s %-30s %-12s", d.ID, d.Title, orDash(d.Category))
		if d.City != "" {
			line += " " + d.City
		}
		if d.CreatedAt != nil {
			line += " · " + humanize.Time(*d.CreatedAt)
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	fmt.Fprintf(w, "\n%s\n", pluralize(len(dons), "donation"))
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return humanize.Comma(int64(n)) + " " + noun + "s"
}

func sortedFieldErrors(errs validate.Errors) []string {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "_" {
			lines = append(lines, errs[f])
			continue
		}
		lines = append(lines, f+": "+errs[f])
	}
	return lines
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
