// Package app is the Bubble Tea program that renders the now-playing card
// from the shared state snapshot.
package app

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tunez/nowcard/internal/artwork"
	"github.com/tunez/nowcard/internal/state"
	"github.com/tunez/nowcard/internal/ui"
)

const (
	snapshotInterval = time.Second
	defaultTimeout   = 8 * time.Second
	historyHeight    = 8
)

// Refresher performs an immediate poll. *poller.Poller implements it.
type Refresher interface {
	Tick(ctx context.Context) error
}

// Options wires the card to the rest of the program.
type Options struct {
	Store       *state.Store
	Refresher   Refresher
	Covers      *artwork.RenderCache // nil disables the rendered-cover cache
	Downloader  artwork.Downloader
	ShowArtwork bool
	CoverWidth  int
	CoverHeight int
	Placeholder string // local image shown when no cover is available
	Theme       ui.Theme
	Glyphs      ui.Glyphs
	Timeout     time.Duration
	Logger      *slog.Logger
}

type Model struct {
	store       *state.Store
	refresher   Refresher
	covers      *artwork.RenderCache
	downloader  artwork.Downloader
	showArtwork bool
	coverW      int
	coverH      int
	placeholder string
	theme       ui.Theme
	glyphs      ui.Glyphs
	timeout     time.Duration
	logger      *slog.Logger

	keys    keyMap
	spinner spinner.Model
	history viewport.Model
	diag    *Diagnostics

	snap           state.Snapshot
	coverRef       string // cover url the card currently wants
	cover          string // rendering of coverRef, empty until loaded
	placeholderArt string
	refreshing     bool
	errorMsg       string
	showHelp       bool
	showHistory    bool
	showDiag       bool
	width          int
	height         int
}

// New builds the card model.
func New(opts Options) Model {
	if opts.CoverWidth <= 0 {
		opts.CoverWidth = 20
	}
	if opts.CoverHeight <= 0 {
		opts.CoverHeight = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Theme.Name == "" {
		opts.Theme = ui.Rainbow()
	}
	if opts.Glyphs.Note == "" {
		opts.Glyphs = ui.GetGlyphs(false)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Store == nil {
		opts.Store = &state.Store{}
	}

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = opts.Theme.Dim

	return Model{
		store:          opts.Store,
		refresher:      opts.Refresher,
		covers:         opts.Covers,
		downloader:     opts.Downloader,
		showArtwork:    opts.ShowArtwork,
		coverW:         opts.CoverWidth,
		coverH:         opts.CoverHeight,
		placeholder:    opts.Placeholder,
		theme:          opts.Theme,
		glyphs:         opts.Glyphs,
		timeout:        opts.Timeout,
		logger:         opts.Logger,
		keys:           defaultKeyMap(),
		spinner:        sp,
		history:        viewport.New(48, historyHeight),
		diag:           NewDiagnostics(),
		placeholderArt: artwork.Placeholder(opts.CoverWidth, opts.CoverHeight),
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.readSnapshotOnceCmd(), m.readSnapshotCmd(), m.spinner.Tick}
	if m.showArtwork && m.placeholder != "" {
		cmds = append(cmds, m.loadPlaceholderCmd())
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w := msg.Width - 4
		if w < 20 {
			w = 20
		}
		m.history.Width = w
		return m, nil

	case snapshotMsg:
		var cmd tea.Cmd
		m, cmd = m.applySnapshot(msg.snap)
		if msg.tick {
			cmd = tea.Batch(cmd, m.readSnapshotCmd())
		}
		return m, cmd

	case coverMsg:
		if msg.ref != m.coverRef {
			m.diag.RecordStaleCover()
			return m, nil
		}
		if msg.err != nil {
			m.diag.RecordCoverError()
			m.logger.Debug("cover render failed", slog.String("url", msg.ref), slog.Any("err", msg.err))
			m.cover = ""
			return m, nil
		}
		if msg.cached {
			m.diag.RecordCoverCacheHit()
		} else {
			m.diag.RecordCoverCacheMiss()
		}
		m.cover = msg.ansi
		return m, nil

	case placeholderMsg:
		if msg.err != nil {
			m.logger.Warn("placeholder image unusable", slog.String("path", m.placeholder), slog.Any("err", msg.err))
			return m, nil
		}
		m.placeholderArt = msg.ansi
		return m, nil

	case refreshDoneMsg:
		m.refreshing = false
		m.diag.RecordPoll(msg.took, msg.err)
		cmds := []tea.Cmd{m.readSnapshotOnceCmd()}
		if msg.err != nil {
			var cmd tea.Cmd
			m, cmd = m.setError(msg.err)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case clearErrorMsg:
		m.errorMsg = ""
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keys.History):
		m.showHistory = !m.showHistory
	case key.Matches(msg, m.keys.Diagnostics):
		m.showDiag = !m.showDiag
	case key.Matches(msg, m.keys.Refresh):
		if m.refresher == nil || m.refreshing {
			return m, nil
		}
		m.refreshing = true
		return m, m.refreshCmd()
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		return m, cmd
	}
	return m, nil
}

// applySnapshot copies the latest state and starts a cover load when the
// wanted cover url changed.
func (m Model) applySnapshot(snap state.Snapshot) (Model, tea.Cmd) {
	m.snap = snap
	m.history.SetContent(m.renderHistory())

	want := ""
	if m.showArtwork && snap.HasTrack {
		want = snap.Artwork.URL
	}
	var load tea.Cmd
	if want != m.coverRef {
		m.coverRef = want
		m.cover = ""
		if want != "" {
			load = m.loadCoverCmd(want)
		}
	}
	return m, load
}

func (m Model) setError(err error) (Model, tea.Cmd) {
	m.errorMsg = err.Error()
	return m, m.clearErrorCmd()
}

func (m Model) View() string {
	if m.showHelp {
		return m.renderHelp()
	}

	parts := []string{m.renderCard()}
	if m.showHistory {
		parts = append(parts, m.theme.Track.Render("Recent plays"), m.history.View())
	}
	parts = append(parts, m.renderStatus())
	main := lipgloss.JoinVertical(lipgloss.Left, parts...)

	if m.showDiag {
		return lipgloss.JoinHorizontal(lipgloss.Top, main, "  ", m.diag.Render(m))
	}
	return main
}

func (m Model) renderHelp() string {
	lines := []string{m.theme.Track.Render("Help"), ""}
	for _, b := range m.keys.bindings() {
		h := b.Help()
		lines = append(lines, "  "+padRight(h.Key, 8)+": "+h.Desc)
	}
	lines = append(lines, "", m.theme.Dim.Render("Press ? to close"))
	return strings.Join(lines, "\n")
}

func padRight(s string, n int) string {
	if w := lipgloss.Width(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}
