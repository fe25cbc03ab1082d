package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/trax/internal/models"
	"github.com/desertthunder/trax/internal/requests"
)

var (
	_ list.Item = trackItem{}
	_ list.Item = requestItem{}
)

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Title + " " + i.track.Artist }
func (i trackItem) Title() string       { return i.track.Title }
func (i trackItem) Description() string {
	return fmt.Sprintf("%s • %s • %.2f MB", i.track.Artist, strings.ToUpper(i.track.Format), i.track.SizeMB)
}

// requestItem wraps [requests.TallyEntry] to implement [list.Item].
type requestItem struct {
	entry requests.TallyEntry
}

func (i requestItem) FilterValue() string { return i.entry.Query }
func (i requestItem) Title() string       { return i.entry.Query }
func (i requestItem) Description() string {
	if i.entry.Count == 1 {
		return "requested once"
	}
	return fmt.Sprintf("requested %d times", i.entry.Count)
}
