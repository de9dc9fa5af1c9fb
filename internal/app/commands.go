package app

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tunez/nowcard/internal/artwork"
	"github.com/tunez/nowcard/internal/state"
)

// snapshotMsg carries a copy of the store. tick marks messages from the
// periodic read, which schedules the next one.
type snapshotMsg struct {
	snap state.Snapshot
	tick bool
}

// coverMsg carries a rendered cover. ref is the url it was rendered from;
// the card ignores it when ref is no longer the wanted cover.
type coverMsg struct {
	ref    string
	ansi   string
	cached bool
	err    error
}

type placeholderMsg struct {
	ansi string
	err  error
}

type refreshDoneMsg struct {
	took time.Duration
	err  error
}

type clearErrorMsg struct{}

func (m Model) readSnapshotCmd() tea.Cmd {
	store := m.store
	return tea.Tick(snapshotInterval, func(time.Time) tea.Msg {
		return snapshotMsg{snap: store.Snapshot(), tick: true}
	})
}

func (m Model) readSnapshotOnceCmd() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		return snapshotMsg{snap: store.Snapshot()}
	}
}

func (m Model) loadCoverCmd(ref string) tea.Cmd {
	covers, dl, w, h, timeout := m.covers, m.downloader, m.coverW, m.coverH, m.timeout
	return func() tea.Msg {
		if covers != nil {
			if ansi, ok := covers.Get(ref, w, h); ok {
				return coverMsg{ref: ref, ansi: ansi, cached: true}
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		data, err := dl.Fetch(ctx, ref)
		if err != nil {
			return coverMsg{ref: ref, err: err}
		}
		ansi, err := artwork.ConvertToANSI(ctx, data, w, h)
		if err != nil {
			return coverMsg{ref: ref, err: err}
		}
		if covers != nil {
			_ = covers.Set(ref, w, h, ansi)
		}
		return coverMsg{ref: ref, ansi: ansi}
	}
}

func (m Model) loadPlaceholderCmd() tea.Cmd {
	path, w, h, timeout := m.placeholder, m.coverW, m.coverH, m.timeout
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return placeholderMsg{err: fmt.Errorf("read placeholder: %w", err)}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		ansi, err := artwork.ConvertToANSI(ctx, data, w, h)
		return placeholderMsg{ansi: ansi, err: err}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	r, timeout := m.refresher, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		start := time.Now()
		err := r.Tick(ctx)
		return refreshDoneMsg{took: time.Since(start), err: err}
	}
}

func (m Model) clearErrorCmd() tea.Cmd {
	return tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
		return clearErrorMsg{}
	})
}
