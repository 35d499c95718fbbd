package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/nijaru/swing-analysis/models"
	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// useJSON reports whether output should be JSON: when asked for, or when
// stdout is not an interactive terminal.
func useJSON(cmd *cobra.Command, jsonFlag bool) bool {
	if jsonFlag {
		return true
	}
	return !isTerminal(cmd.OutOrStdout())
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func renderAnalysis(w io.Writer, record *models.AnalysisRecord) {
	resp := record.Response

	fmt.Fprintf(w, "Analysis %s\nVideo: %s\n\n", record.ID, resp.VideoURL)

	segmentRows := make([][]string, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segmentRows = append(segmentRows, []string{s.Name, formatFloat(s.StartTimeS), formatFloat(s.EndTimeS), s.Notes})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Segment", "Start (s)", "End (s)", "Notes"},
		segmentRows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
	))

	metricRows := make([][]string, 0, len(resp.KeyMetrics))
	for _, m := range resp.KeyMetrics {
		metricRows = append(metricRows, []string{m.Name, formatFloat(m.Value), m.Unit, m.Interpretation})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Metric", "Value", "Unit", "Interpretation"},
		metricRows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
	))

	comparisonRows := make([][]string, 0, len(resp.ProComparisons))
	for _, c := range resp.ProComparisons {
		comparisonRows = append(comparisonRows, []string{
			c.ProName,
			c.Summary,
			strings.Join(c.Strengths, "\n"),
			strings.Join(c.Deltas, "\n"),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Pro", "Summary", "Strengths", "Deltas"},
		comparisonRows,
		nil,
	))

	fmt.Fprintln(w, "Coaching cues:")
	for i, cue := range resp.CoachingCues {
		fmt.Fprintf(w, "  %d. %s\n", i+1, cue)
	}
}

func renderHistory(w io.Writer, records []*models.AnalysisRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No analyses recorded")
		return
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		perspective := "-"
		if r.Input.Perspective != nil {
			perspective = *r.Input.Perspective
		}
		rows = append(rows, []string{
			r.ID,
			r.CreatedAt.Local().Format(time.DateTime),
			r.Input.VideoURL,
			perspective,
			r.Analyzer,
		})
	}

	fmt.Fprintln(w, renderTable(
		[]string{"ID", "Created", "Video URL", "Perspective", "Analyzer"},
		rows,
		nil,
	))
}
