package formatter

import (
	"strings"
	"testing"

	"github.com/desertthunder/trax/internal/models"
	"github.com/desertthunder/trax/internal/requests"
)

func sampleTracks() []models.Track {
	return []models.Track{
		{
			ReferenceID:      "501",
			Title:            "Tum Hi Ho",
			Artist:           "Arijit Singh",
			Format:           "mp3",
			SizeMB:           4.0,
			OriginalFilename: "Arijit Singh - Tum Hi Ho.mp3",
		},
		{
			ReferenceID:      "502",
			Title:            "Believer",
			Artist:           "Imagine Dragons",
			Format:           "m4a",
			SizeMB:           3.34,
			OriginalFilename: "Imagine Dragons - Believer.m4a",
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleTracks())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "ReferenceID,Title,Artist,Format,SizeMB,OriginalFilename") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "501,Tum Hi Ho,Arijit Singh,mp3,4.00") {
			t.Errorf("CSV missing first record, got: %s", output)
		}
		if !strings.Contains(output, "3.34") {
			t.Errorf("CSV missing formatted size")
		}
	})

	t.Run("ExportToCSV with empty catalog", func(t *testing.T) {
		data, err := ExportToCSV(nil)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 1 {
			t.Errorf("expected headers only, got %d lines", len(lines))
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown("Library", sampleTracks())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "# Library") {
			t.Errorf("Markdown missing title, got: %s", output)
		}
		if !strings.Contains(output, "**Tracks**: 2") {
			t.Errorf("Markdown missing track count")
		}
		if !strings.Contains(output, "1. Arijit Singh - Tum Hi Ho [MP3, 4.00 MB]") {
			t.Errorf("Markdown missing track entry, got: %s", output)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText("Library", sampleTracks())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "Catalog: Library") {
			t.Errorf("text missing title, got: %s", output)
		}
		if !strings.Contains(output, "2. Imagine Dragons - Believer") {
			t.Errorf("text missing numbered track, got: %s", output)
		}
	})

	t.Run("TallyToCSV", func(t *testing.T) {
		entries := []requests.TallyEntry{
			{Query: "Kesariya", Count: 3},
			{Query: "Raataan Lambiyan", Count: 1},
		}

		data, err := TallyToCSV(entries)
		if err != nil {
			t.Fatalf("TallyToCSV failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "Query,Count") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "Kesariya,3") {
			t.Errorf("CSV missing tally record, got: %s", output)
		}
	})
}
