package sweeper

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// TextReporter writes the human-readable keep/delete listing.
type TextReporter struct {
	Out io.Writer
}

// Report implements Reporter.
func (t *TextReporter) Report(r *Result) error {
	var b strings.Builder

	for _, key := range r.Unparseable {
		fmt.Fprintf(&b, "No timestamp in %s\n", key)
	}

	b.WriteString("To keep\n")
	writeLines(&b, r.Kept)

	b.WriteString("\nTo delete\n")
	writeLines(&b, r.ToDelete)

	fmt.Fprintf(&b, "\n%d kept (%d without timestamp), %d to delete, %s reclaimable\n",
		len(r.Kept), len(r.Unparseable), len(r.ToDelete), formatBytes(r.ReclaimBytes))

	if r.DryRun {
		b.WriteString("Dry run, not deleting\n")
	} else if len(r.ToDelete) > 0 {
		b.WriteString("Deleting old backups\n")
	}

	_, err := io.WriteString(t.Out, b.String())
	return err
}

func writeLines(b *strings.Builder, keys []string) {
	for _, key := range keys {
		b.WriteString(key)
		b.WriteByte('\n')
	}
}

// JSONReporter writes the partition as a single JSON document.
type JSONReporter struct {
	Out io.Writer
}

type jsonReport struct {
	Bucket       string   `json:"bucket"`
	Now          string   `json:"now"`
	DryRun       bool     `json:"dry_run"`
	Kept         []string `json:"kept"`
	Unparseable  []string `json:"unparseable"`
	ToDelete     []string `json:"to_delete"`
	ReclaimBytes int64    `json:"reclaim_bytes"`
}

// Report implements Reporter.
func (j *JSONReporter) Report(r *Result) error {
	enc := json.NewEncoder(j.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		Bucket:       r.Bucket,
		Now:          r.Now.Format(time.RFC3339),
		DryRun:       r.DryRun,
		Kept:         nonNil(r.Kept),
		Unparseable:  nonNil(r.Unparseable),
		ToDelete:     nonNil(r.ToDelete),
		ReclaimBytes: r.ReclaimBytes,
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// formatBytes formats bytes in human-readable format.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
