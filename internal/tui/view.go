package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/3leaps/nimbrowse/internal/session"
	"github.com/3leaps/nimbrowse/pkg/provider"
)

const helpText = "j/k move • l/enter open • h/bksp back • tab pane • / search • r refresh • m more • " +
	"space select • d delete • D download • u upload • y yank • p paste • : go to • a account • ? help • q quit"

// View renders the current snapshot.
func (m Model) View() string {
	snap := m.engine.Snapshot()

	var body string
	switch {
	case m.help:
		body = m.viewHelp()
	case snap.Mode == session.ModePreviewing && snap.Preview != nil:
		body = m.viewPreview(snap)
	default:
		body = m.viewPanes(snap)
	}

	sections := []string{m.viewTitle(snap), body}
	if overlay := m.viewOverlay(snap); overlay != "" {
		sections = append(sections, overlay)
	}
	sections = append(sections, m.viewStatus(snap), helpStyle.Render(truncate(helpText, m.width)))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) viewTitle(snap session.Snapshot) string {
	title := fmt.Sprintf("nimbrowse • %s (%s)", snap.Account, snap.Provider)
	if p := snap.Path(); p != "" {
		title += " • " + p
	}
	return titleStyle.Render(title)
}

func (m Model) viewPanes(snap session.Snapshot) string {
	height := m.listHeight()
	bucketWidth, objectWidth := 24, 60
	if m.width > 0 {
		bucketWidth = m.width / 4
		if bucketWidth < 16 {
			bucketWidth = 16
		}
		objectWidth = m.width - bucketWidth - 6
		if objectWidth < 20 {
			objectWidth = 20
		}
	}

	bucketLines := make([]string, len(snap.Buckets))
	for i, b := range snap.Buckets {
		bucketLines[i] = truncate(b.Name, bucketWidth-6)
	}
	header := fmt.Sprintf("Buckets (%d)", len(snap.Buckets))
	if snap.Loading.Buckets {
		header += " …"
	}
	buckets := renderList(header, bucketLines, nil, snap.BucketCursor, height, bucketWidth-2,
		snap.Focus == session.PaneBuckets)

	selected := map[string]bool{}
	for _, k := range snap.Selection {
		selected[k] = true
	}
	objectLines := make([]string, len(snap.Objects))
	marks := make([]bool, len(snap.Objects))
	for i, obj := range snap.Objects {
		objectLines[i] = formatObject(obj, objectWidth-4)
		marks[i] = selected[obj.Key]
	}
	header = fmt.Sprintf("Files (%d)", snap.TotalObjects)
	if len(snap.Objects) != snap.TotalObjects {
		header = fmt.Sprintf("Files (%d of %d)", len(snap.Objects), snap.TotalObjects)
	}
	if snap.HasMore {
		header += " +more"
	}
	if snap.Loading.Objects {
		header += " … " + snap.Loading.Target
	}
	objects := renderList(header, objectLines, marks, snap.ObjectCursor, height, objectWidth-2,
		snap.Focus == session.PaneObjects)

	return lipgloss.JoinHorizontal(lipgloss.Top,
		paneFor(snap.Focus == session.PaneBuckets).Width(bucketWidth).Render(buckets),
		paneFor(snap.Focus == session.PaneObjects).Width(objectWidth).Render(objects),
	)
}

func paneFor(focused bool) lipgloss.Style {
	if focused {
		return focusedPaneStyle
	}
	return paneStyle
}

// renderList shows the window of lines that keeps cursor visible. Lines
// must already fit width.
func renderList(header string, lines []string, marks []bool, cursor, height, width int, focused bool) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(truncate(header, width)))
	b.WriteString("\n")
	if len(lines) == 0 {
		b.WriteString(helpStyle.Render("(empty)"))
		return b.String()
	}

	start := 0
	if cursor >= height {
		start = cursor - height + 1
	}
	end := start + height
	if end > len(lines) {
		end = len(lines)
	}
	for i := start; i < end; i++ {
		mark := " "
		if marks != nil && marks[i] {
			mark = selectedMark
		}
		line := lines[i]
		if i == cursor && focused {
			line = cursorStyle.Render(line)
		}
		b.WriteString(mark + " " + line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func formatObject(obj provider.Object, width int) string {
	name := obj.Name()
	if obj.IsDirectory {
		return directoryStyle.Render(truncate(name+"/", width))
	}
	meta := humanize.IBytes(uint64(obj.Size))
	if obj.LastModified != nil {
		meta += "  " + obj.LastModified.Local().Format("2006-01-02 15:04")
	}
	name = truncate(name, width-lipgloss.Width(meta)-1)
	pad := width - lipgloss.Width(name) - lipgloss.Width(meta)
	if pad < 1 {
		pad = 1
	}
	return fileStyle.Render(name + strings.Repeat(" ", pad) + meta)
}

func (m Model) viewPreview(snap session.Snapshot) string {
	p := snap.Preview
	title := p.Result.Object.Key
	if p.Result.Lexer != "" {
		title += " [" + p.Result.Lexer + "]"
	}
	lines := p.View.Visible()
	body := strings.Join(lines, "\n")
	if footer := p.Result.Footer(); footer != "" {
		body += "\n" + warnStyle.Render(footer)
	}
	pos := fmt.Sprintf("%d-%d of %d", p.View.Offset()+1, p.View.Offset()+len(lines), p.View.Len())
	style := previewStyle
	if m.width > 4 {
		style = style.Width(m.width - 2)
	}
	return style.Render(headerStyle.Render(title) + "  " + helpStyle.Render(pos) + "\n" + body)
}

func (m Model) viewOverlay(snap session.Snapshot) string {
	switch {
	case m.prompt != promptNone:
		return promptStyle.Render(m.prompt.title() + ": " + m.promptText + "█")
	case snap.Mode == session.ModeSearching:
		return promptStyle.Render("/" + m.search + "█")
	case snap.Mode == session.ModeConfirming && snap.Confirm != nil:
		return promptStyle.Render(snap.Confirm.Prompt() + "  [y/N]")
	}
	return ""
}

func (m Model) viewStatus(snap session.Snapshot) string {
	var parts []string
	if snap.Busy != 0 {
		s := snap.Busy.String() + " in progress"
		if p := snap.Progress; p != nil {
			s = fmt.Sprintf("%s %d/%d files, %s/%s", snap.Busy, p.CompletedFiles, p.TotalFiles,
				humanize.IBytes(uint64(p.TransferredBytes)), humanize.IBytes(uint64(p.TotalBytes)))
		}
		parts = append(parts, warnStyle.Render(s))
	}
	if snap.Loading.Preview {
		parts = append(parts, helpStyle.Render("loading preview…"))
	}
	if snap.Loading.Account {
		parts = append(parts, helpStyle.Render("switching account…"))
	}
	if snap.Filter != "" && snap.Mode != session.ModeSearching {
		parts = append(parts, helpStyle.Render("filter: "+snap.Filter))
	}
	if len(snap.Selection) > 0 {
		parts = append(parts, helpStyle.Render(fmt.Sprintf("%d selected", len(snap.Selection))))
	}
	if snap.Yanked != nil {
		parts = append(parts, helpStyle.Render("yanked: "+snap.Yanked.Object.Name()))
	}
	if n := snap.Notice; n != nil {
		switch n.Level {
		case session.LevelError:
			parts = append(parts, errorStyle.Render(n.Text))
		case session.LevelWarn:
			parts = append(parts, warnStyle.Render(n.Text))
		default:
			parts = append(parts, infoStyle.Render(n.Text))
		}
	}
	return strings.Join(parts, "  ")
}

func (m Model) viewHelp() string {
	keys := [][2]string{
		{"j/k, ↑/↓", "move"},
		{"l, enter", "open bucket, directory or preview"},
		{"h, backspace", "back"},
		{"tab", "switch pane"},
		{"/", "search (name, *.glob, size>1MiB, after:2024-01-01, type:dir)"},
		{"esc", "clear filter and selection"},
		{"r", "refresh (bypasses cache)"},
		{"m", "load next page"},
		{"space", "toggle selection"},
		{"d", "delete"},
		{"D", "download"},
		{"u", "upload"},
		{"y / p", "yank / paste copy"},
		{":", "go to bucket/prefix"},
		{"a", "next account"},
		{"q", "quit"},
	}
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("%-14s %s\n", k[0], k[1]))
	}
	return previewStyle.Render(strings.TrimSuffix(b.String(), "\n"))
}

func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	if width > len(r) {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
