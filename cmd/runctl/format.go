package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"translation-backend/internal/runsclient"
)

func formatStatus(out io.Writer, runID string, v runsclient.StatusView) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "RUN\t%s\n", runID)
	_, _ = fmt.Fprintf(w, "STATUS\t%s\n", v.Status)
	if v.N8NStatus != "" {
		_, _ = fmt.Fprintf(w, "WORKER\t%s\n", v.N8NStatus)
	}
	_, _ = fmt.Fprintf(w, "ACTIVE\t%t\n", v.IsActive)
	_, _ = fmt.Fprintf(w, "DISCARDED\t%t\n", v.Discarded)
	_, _ = fmt.Fprintf(w, "UPDATED\t%s\n", v.UpdatedAt.UTC().Format(time.RFC3339))
	_ = w.Flush()
}

// formatHistory writes a tabular list of runs to out.
func formatHistory(out io.Writer, runs []runsclient.RunSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "VERSION\tID\tTYPE\tSTATUS\tFLAGS\tCREATED")
	_, _ = fmt.Fprintln(w, "-------\t--\t----\t------\t-----\t-------")
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "v%d\t%s\t%s\t%s\t%s\t%s\n",
			r.Version, truncateID(r.ID), r.RunType, r.Status, runFlags(r), r.CreatedAt)
	}
	_ = w.Flush()
}

func formatCreated(out io.Writer, c runsclient.CreatedRun) {
	_, _ = fmt.Fprintf(out, "created run %s (v%d) status=%s\n", c.RunID, c.Version, c.Status)
	switch {
	case c.Dispatched:
		_, _ = fmt.Fprintln(out, "dispatched to worker")
	case c.DispatchError != "":
		_, _ = fmt.Fprintf(out, "dispatch failed: %s\n", c.DispatchError)
	default:
		_, _ = fmt.Fprintln(out, "not dispatched")
	}
}

func runFlags(r runsclient.RunSummary) string {
	switch {
	case r.IsActive:
		return "active"
	case r.Discarded:
		return "discarded"
	default:
		return "-"
	}
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
