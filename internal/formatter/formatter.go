// package formatter provides functions to export catalog and request data to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/trax/internal/models"
	"github.com/desertthunder/trax/internal/requests"
)

// ExportToCSV converts catalog tracks to CSV format with columns: ReferenceID, Title, Artist, Format, SizeMB, OriginalFilename
func ExportToCSV(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ReferenceID", "Title", "Artist", "Format", "SizeMB", "OriginalFilename"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		record := []string{
			track.ReferenceID,
			track.Title,
			track.Artist,
			track.Format,
			strconv.FormatFloat(track.SizeMB, 'f', 2, 64),
			track.OriginalFilename,
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

// ExportToMarkdown converts catalog tracks to a Markdown listing
func ExportToMarkdown(title string, tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(tracks)))

	buf.WriteString("## Tracks\n\n")
	for i, track := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%s, %.2f MB]\n",
			i+1, track.Artist, track.Title, strings.ToUpper(track.Format), track.SizeMB))
	}

	return buf.Bytes(), nil
}

// ExportToText converts catalog tracks to plain text format
func ExportToText(title string, tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Catalog: %s\n", title))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(tracks)))

	for i, track := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.Artist, track.Title))
	}

	return buf.Bytes(), nil
}

// TallyToCSV converts the pending request tally to CSV with columns: Query, Count
func TallyToCSV(entries []requests.TallyEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Query", "Count"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, entry := range entries {
		if err := writer.Write([]string{entry.Query, strconv.Itoa(entry.Count)}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}
