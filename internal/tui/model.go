// Package tui renders a session.Engine with bubbletea and maps keys onto
// engine actions. It holds no browsing state of its own beyond text
// being typed into a prompt.
package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/3leaps/nimbrowse/internal/session"
)

// promptKind is a line-input prompt owned by the frontend.
type promptKind int

const (
	promptNone promptKind = iota
	promptUpload
	promptDownload
	promptJump
)

func (k promptKind) title() string {
	switch k {
	case promptUpload:
		return "Upload local path"
	case promptDownload:
		return "Download to"
	case promptJump:
		return "Go to bucket/prefix"
	default:
		return ""
	}
}

// Model adapts the engine to tea.Model.
type Model struct {
	engine *session.Engine

	width  int
	height int

	search string

	prompt     promptKind
	promptText string

	help bool
}

// NewModel wraps e.
func NewModel(e *session.Engine) Model {
	return Model{engine: e}
}

// Run drives e in the terminal until the user quits or ctx is done.
func Run(ctx context.Context, e *session.Engine) error {
	p := tea.NewProgram(NewModel(e), tea.WithAltScreen(), tea.WithContext(ctx))
	e.SetSink(func(m session.Msg) { p.Send(m) })
	_, err := p.Run()
	return err
}

// wrap turns an engine command into a bubbletea command.
func wrap(c session.Cmd) tea.Cmd {
	if c == nil {
		return nil
	}
	return func() tea.Msg { return c() }
}

// Init starts the bucket listing.
func (m Model) Init() tea.Cmd {
	return wrap(m.engine.Init())
}

// Update handles terminal events and engine results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.engine.ResizePreview(m.previewHeight())
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		if m.help {
			m.help = false
			return m, nil
		}
		switch m.engine.Snapshot().Mode {
		case session.ModeSearching:
			return m.updateSearch(msg)
		case session.ModePreviewing:
			return m.updatePreview(msg)
		case session.ModeConfirming:
			return m.updateConfirm(msg)
		default:
			return m.updateBrowse(msg)
		}

	case session.BatchMsg:
		cmds := make([]tea.Cmd, 0, len(msg))
		for _, c := range msg {
			cmds = append(cmds, wrap(c))
		}
		return m, tea.Batch(cmds...)
	}

	return m, wrap(m.engine.Update(msg))
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e := m.engine
	e.DismissNotice()

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "?":
		m.help = true
	case "up", "k":
		e.MoveCursor(-1)
	case "down", "j":
		e.MoveCursor(1)
	case "pgup", "ctrl+u":
		e.MoveCursor(-m.listHeight())
	case "pgdown", "ctrl+d":
		e.MoveCursor(m.listHeight())
	case "home", "g":
		e.CursorTop()
	case "end", "G":
		e.CursorBottom()
	case "enter", "l", "right":
		return m, wrap(e.Activate())
	case "backspace", "h", "left":
		return m, wrap(e.Back())
	case "tab":
		e.SwitchPane()
	case "/":
		m.search = ""
		e.StartSearch()
	case "esc":
		e.ClearFilter()
		e.ClearSelection()
	case "r":
		return m, wrap(e.Refresh())
	case "m":
		return m, wrap(e.LoadMore())
	case "a":
		return m, wrap(e.SwitchAccount())
	case " ":
		e.ToggleSelect()
		e.MoveCursor(1)
	case "d", "delete":
		e.RequestDelete()
	case "D":
		m.openPrompt(promptDownload, "")
	case "u":
		if e.Snapshot().Bucket != "" {
			m.openPrompt(promptUpload, "")
		}
	case "y":
		e.Yank()
	case "p":
		e.Paste()
	case ":":
		snap := e.Snapshot()
		initial := ""
		if snap.Bucket != "" {
			initial = snap.Bucket + "/" + snap.Prefix
		}
		m.openPrompt(promptJump, initial)
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e := m.engine
	switch msg.Type {
	case tea.KeyEsc:
		m.search = ""
		e.CancelSearch()
	case tea.KeyEnter:
		e.SubmitSearch()
	case tea.KeyBackspace:
		if r := []rune(m.search); len(r) > 0 {
			m.search = string(r[:len(r)-1])
			e.SetFilter(m.search)
		}
	case tea.KeyUp:
		e.MoveCursor(-1)
	case tea.KeyDown:
		e.MoveCursor(1)
	case tea.KeySpace:
		m.search += " "
		e.SetFilter(m.search)
	case tea.KeyRunes:
		m.search += string(msg.Runes)
		e.SetFilter(m.search)
	}
	return m, nil
}

func (m Model) updatePreview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e := m.engine
	switch msg.String() {
	case "q", "esc", "backspace", "h", "left":
		e.ClosePreview()
	case "up", "k":
		e.ScrollPreview(-1)
	case "down", "j":
		e.ScrollPreview(1)
	case "pgup", "ctrl+u":
		e.PagePreview(-1)
	case "pgdown", "ctrl+d", " ":
		e.PagePreview(1)
	case "home", "g":
		e.PreviewTop()
	case "end", "G":
		e.PreviewBottom()
	}
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		return m, wrap(m.engine.Confirm())
	case "n", "N", "esc", "q":
		m.engine.Cancel()
	}
	return m, nil
}

func (m *Model) openPrompt(kind promptKind, initial string) {
	m.prompt = kind
	m.promptText = initial
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.prompt = promptNone
		return m, nil
	case tea.KeyBackspace:
		if r := []rune(m.promptText); len(r) > 0 {
			m.promptText = string(r[:len(r)-1])
		}
		return m, nil
	case tea.KeySpace:
		m.promptText += " "
		return m, nil
	case tea.KeyRunes:
		m.promptText += string(msg.Runes)
		return m, nil
	case tea.KeyEnter:
	default:
		return m, nil
	}

	kind, text := m.prompt, strings.TrimSpace(m.promptText)
	m.prompt = promptNone
	m.promptText = ""
	e := m.engine
	switch kind {
	case promptUpload:
		e.RequestUpload(text)
	case promptDownload:
		e.RequestDownload(text)
	case promptJump:
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(text, "/"), "/")
		return m, wrap(e.Jump(bucket, prefix))
	}
	return m, nil
}

func (m Model) previewHeight() int {
	if m.height <= 8 {
		return 1
	}
	return m.height - 8
}

func (m Model) listHeight() int {
	if m.height <= 9 {
		return 1
	}
	return m.height - 9
}
