package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/tunez/nowcard/internal/state"
)

// renderCard draws cover, track, artist, album and year. The artist line is
// omitted when the station sent no artist.
func (m Model) renderCard() string {
	snap := m.snap
	var lines []string
	if !snap.HasTrack {
		lines = append(lines, m.theme.Dim.Render("Nothing on air"))
	} else {
		lines = append(lines, m.theme.Track.Render(m.glyphs.Note+" "+snap.Track.Track))
		if snap.Track.Artist != "" {
			lines = append(lines, m.theme.Artist.Render(snap.Track.Artist))
		}
		if album := snap.Artwork.Album; album != "" {
			lines = append(lines, m.theme.Meta.Render(m.glyphs.Album+" "+album))
		}
		if year := snap.Artwork.Year; year != "" {
			lines = append(lines, m.theme.Meta.Render(year))
		}
		if m.showArtwork && !snap.ArtworkApplied {
			lines = append(lines, m.spinner.View()+m.theme.Dim.Render(" looking up cover"))
		}
	}

	info := strings.Join(lines, "\n")
	if !m.showArtwork {
		return m.theme.Border.Render(info)
	}
	return m.theme.Border.Render(lipgloss.JoinHorizontal(lipgloss.Top, m.coverView(), "  ", info))
}

// coverView is the rendered cover, or the placeholder while none is loaded.
func (m Model) coverView() string {
	if m.snap.HasTrack && m.cover != "" {
		return m.cover
	}
	return m.placeholderArt
}

func (m Model) renderStatus() string {
	var parts []string
	switch {
	case m.errorMsg != "":
		parts = append(parts, m.theme.Error.Render(m.errorMsg))
	case m.snap.IsOffline():
		parts = append(parts, m.theme.Badge.Render(fmt.Sprintf("%s offline (%d failed polls)", m.glyphs.Offline, m.snap.ConsecutiveFailures)))
	}
	switch m.snap.Source {
	case state.SourceStale:
		parts = append(parts, m.theme.Badge.Render("last known"))
	case state.SourceMock:
		parts = append(parts, m.theme.Badge.Render("sample"))
	}
	if m.refreshing {
		parts = append(parts, m.spinner.View()+m.theme.Dim.Render(" polling"))
	} else if !m.snap.LastUpdated.IsZero() {
		parts = append(parts, m.theme.Dim.Render("updated "+humanize.Time(m.snap.LastUpdated)))
	}
	parts = append(parts, m.theme.Dim.Render("? help"))
	return strings.Join(parts, "  ")
}

func (m Model) renderHistory() string {
	if len(m.snap.History) == 0 {
		return m.theme.Dim.Render("No plays recorded yet")
	}
	var b strings.Builder
	for i, p := range m.snap.History {
		name := p.Track
		if p.Artist != "" {
			name = p.Artist + " - " + p.Track
		}
		b.WriteString(m.theme.Artist.Render(name))
		if !p.ObservedAt.IsZero() {
			b.WriteString(m.theme.Dim.Render("  " + humanize.Time(p.ObservedAt)))
		}
		if i < len(m.snap.History)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
