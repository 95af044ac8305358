// package formatter renders run history in various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spotfill/internal/models"
	"github.com/desertthunder/spotfill/internal/shared"
)

// Format names an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a format name. "md" is accepted for markdown.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, name)
	}
}

// Render converts runs to the given format.
func Render(format Format, runs []*models.RunRecord) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(runs)
	case FormatMarkdown:
		return ExportToMarkdown(runs)
	case FormatText:
		return ExportToText(runs)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(time.DateTime)
}

func formatDuration(r *models.RunRecord) string {
	if r.FinishedAt() == nil {
		return "-"
	}
	return r.Duration().Round(time.Millisecond).String()
}

// ExportToCSV converts runs to CSV with columns: Sequence, ID, Playlist, Operation, Strategy, Status, Started, Duration, Error
func ExportToCSV(runs []*models.RunRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "ID", "Playlist", "Operation", "Strategy", "Status", "Started", "Duration", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range runs {
		record := []string{
			strconv.Itoa(r.Sequence()),
			r.ID(),
			r.PlaylistID(),
			r.Operation(),
			r.Strategy(),
			string(r.Status()),
			r.StartedAt().UTC().Format(time.RFC3339),
			formatDuration(r),
			r.Error(),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// ExportToMarkdown converts runs to a Markdown table
func ExportToMarkdown(runs []*models.RunRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Run History\n\n")
	fmt.Fprintf(&buf, "**Runs**: %d\n\n", len(runs))

	if len(runs) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Playlist | Operation | Status | Started | Duration | Error |\n")
	buf.WriteString("| --- | --- | --- | --- | --- | --- | --- |\n")
	for _, r := range runs {
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s | %s | %s |\n",
			r.Sequence(),
			escapeCell(r.PlaylistID()),
			escapeCell(r.Operation()),
			r.Status(),
			formatTime(r.StartedAt()),
			formatDuration(r),
			escapeCell(r.Error()),
		)
	}

	return buf.Bytes(), nil
}

// ExportToText converts runs to plain text, one line per run
func ExportToText(runs []*models.RunRecord) ([]byte, error) {
	var buf bytes.Buffer

	if len(runs) == 0 {
		buf.WriteString("No runs recorded.\n")
		return buf.Bytes(), nil
	}

	for _, r := range runs {
		fmt.Fprintf(&buf, "%d. [%s] %s %s playlist=%s duration=%s",
			r.Sequence(), r.Status(), formatTime(r.StartedAt()), r.Operation(), r.PlaylistID(), formatDuration(r))
		if r.Error() != "" {
			fmt.Fprintf(&buf, " error=%q", r.Error())
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// WriteExport renders runs and writes them to path.
func WriteExport(format Format, runs []*models.RunRecord, path string) error {
	data, err := Render(format, runs)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return nil
}
