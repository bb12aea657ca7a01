// Package workspace is the terminal shell over the pane engine: a tab strip
// of open documents, a plain-text editing surface per pane, and a styled
// preview column in split mode.
package workspace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/granitemd/granite/internal/config"
	"github.com/granitemd/granite/internal/frontmatter"
	"github.com/granitemd/granite/internal/pane"
	"github.com/granitemd/granite/internal/viewstate"
)

const savedStampLayout = "2006-01-02 15:04:05"

type noticeMsg pane.Notice

// Model is the bubbletea model for the pane workspace.
type Model struct {
	mgr  *pane.Manager
	cfg  *config.Config
	vp   *viewstate.Viewport
	keys *workspaceKeyMap

	width  int
	height int

	status      string
	statusLevel pane.NoticeLevel

	// pendingClose holds the pane id whose dirty close needs a second
	// keypress to confirm.
	pendingClose string

	notices chan pane.Notice
}

// NewModel wires the workspace against a configured pane manager.
func NewModel(mgr *pane.Manager, cfg *config.Config, vp *viewstate.Viewport) *Model {
	m := &Model{
		mgr:     mgr,
		cfg:     cfg,
		vp:      vp,
		keys:    newWorkspaceKeyMap(),
		notices: make(chan pane.Notice, 16),
	}

	mgr.SetNotifier(func(n pane.Notice) {
		select {
		case m.notices <- n:
		default:
		}
	})
	mgr.SetMounter(m.mountPane)

	return m
}

// mountPane attaches a textarea engine to the pane's handle and wires its
// change listener into the synchronization bridge.
func (m *Model) mountPane(p *pane.Pane) error {
	handle := m.mgr.Registry().GetOrCreate(p.ID)
	if handle == nil {
		return fmt.Errorf("no handle for pane %s", p.ID)
	}
	if handle.Text != nil {
		return nil
	}

	w, h := m.editorSize()
	engine := newAreaEngine(w, h)
	engine.SetValue(p.Content, false)
	engine.OnChange(func(text string) {
		m.mgr.Bridge().TextEdited(p.ID, text)
	})
	handle.Text = engine
	return nil
}

func (m *Model) editorSize() (int, int) {
	w, h := m.width, m.height
	if w <= 0 {
		w, _ = m.vp.Size()
	}
	if w <= 0 {
		w = 100
	}
	if h <= 0 {
		h = 30
	}

	editorW := w - 6
	if active := m.mgr.Active(); active != nil && active.Mode == pane.ModeSplit && !m.vp.Mobile() {
		editorW = w/2 - 4
	}
	if editorW < 20 {
		editorW = 20
	}
	return editorW, h - 6
}

func (m *Model) activeEngine() *areaEngine {
	active := m.mgr.Active()
	if active == nil {
		return nil
	}
	handle, ok := m.mgr.Registry().Lookup(active.ID)
	if !ok {
		return nil
	}
	engine, ok := handle.Text.(*areaEngine)
	if !ok {
		return nil
	}
	return engine
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForNotice())
}

func (m *Model) waitForNotice() tea.Cmd {
	return func() tea.Msg {
		return noticeMsg(<-m.notices)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.Resize(msg.Width, msg.Height)
		m.resizeEngines()
		return m, nil

	case noticeMsg:
		m.status = msg.Message
		m.statusLevel = msg.Level
		return m, m.waitForNotice()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) resizeEngines() {
	w, h := m.editorSize()
	for _, p := range m.mgr.Panes() {
		if handle, ok := m.mgr.Registry().Lookup(p.ID); ok {
			if engine, ok := handle.Text.(*areaEngine); ok {
				engine.setSize(w, h)
			}
		}
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.keys

	switch {
	case key.Matches(msg, keys.quit):
		m.mgr.PersistSession()
		for _, p := range m.mgr.Panes() {
			m.mgr.Bridge().FlushTextEdits(p.ID)
			m.mgr.Autosave().Flush(p.ID)
		}
		return m, tea.Quit

	case key.Matches(msg, keys.nextPane):
		m.cyclePane(1)
		return m, nil

	case key.Matches(msg, keys.prevPane):
		m.cyclePane(-1)
		return m, nil

	case key.Matches(msg, keys.closePane):
		return m, m.closeActive()

	case key.Matches(msg, keys.closeOther):
		if active := m.mgr.Active(); active != nil {
			m.mgr.CloseAllExcept(context.Background(), active.ID)
		}
		return m, nil

	case key.Matches(msg, keys.toggleMode):
		m.toggleMode()
		return m, nil

	case key.Matches(msg, keys.save):
		m.saveNow()
		return m, nil

	case key.Matches(msg, keys.undo):
		m.applyHistory((*pane.Pane).Undo)
		return m, nil

	case key.Matches(msg, keys.redo):
		m.applyHistory((*pane.Pane).Redo)
		return m, nil

	case key.Matches(msg, keys.copyPath):
		if active := m.mgr.Active(); active != nil {
			if err := clipboard.WriteAll(active.Path); err != nil {
				m.setStatus(pane.NoticeError, "copy failed: %v", err)
			} else {
				m.setStatus(pane.NoticeInfo, "copied %s", active.Path)
			}
		}
		return m, nil
	}

	m.pendingClose = ""

	engine := m.activeEngine()
	if engine == nil || engine.area == nil {
		return m, nil
	}
	area, cmd := engine.area.Update(msg)
	*engine.area = area
	engine.emit()
	return m, cmd
}

func (m *Model) cyclePane(step int) {
	panes := m.mgr.Panes()
	if len(panes) < 2 {
		return
	}
	active := m.mgr.Active()
	idx := 0
	for i, p := range panes {
		if active != nil && p.ID == active.ID {
			idx = i
			break
		}
	}
	next := (idx + step + len(panes)) % len(panes)
	m.mgr.Focus(panes[next].ID)
	m.pendingClose = ""
}

// closeActive closes the active pane. A dirty pane asks for a second press
// and then saves before teardown.
func (m *Model) closeActive() tea.Cmd {
	active := m.mgr.Active()
	if active == nil {
		return nil
	}

	if active.Dirty && m.pendingClose != active.ID {
		m.pendingClose = active.ID
		m.setStatus(pane.NoticeWarn, "%s has unsaved changes, ctrl+w again to save and close", active.DisplayName)
		return nil
	}

	m.pendingClose = ""
	m.mgr.Close(context.Background(), active.ID, pane.CloseOptions{Save: true})
	if m.mgr.Active() == nil {
		return tea.Quit
	}
	return nil
}

func (m *Model) toggleMode() {
	active := m.mgr.Active()
	if active == nil {
		return
	}
	if active.Mode == pane.ModeSplit {
		active.Mode = pane.ModeEdit
	} else {
		active.Mode = pane.ModeSplit
	}
	m.mgr.PersistSession()
	m.resizeEngines()
}

// saveNow stamps the frontmatter updated field, pushes the stamped content
// through both the pane and its engine buffer, and flushes the save.
func (m *Model) saveNow() {
	active := m.mgr.Active()
	if active == nil {
		return
	}

	m.mgr.Bridge().FlushTextEdits(active.ID)

	stamped := frontmatter.UpdateField(
		active.Content,
		"updated",
		time.Now().Format(savedStampLayout),
	)
	if stamped != active.Content {
		active.SetContent(stamped)
		if engine := m.activeEngine(); engine != nil {
			engine.SetValue(stamped, false)
		}
	}

	m.mgr.Autosave().Schedule(active.ID)
	m.mgr.Autosave().Flush(active.ID)
	if !active.Dirty {
		m.setStatus(pane.NoticeInfo, "saved %s", active.Path)
	}
}

func (m *Model) applyHistory(op func(*pane.Pane) bool) {
	active := m.mgr.Active()
	if active == nil || !op(active) {
		return
	}
	if engine := m.activeEngine(); engine != nil {
		engine.SetValue(active.Content, false)
	}
	m.mgr.Autosave().Schedule(active.ID)
}

func (m *Model) setStatus(level pane.NoticeLevel, format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
	m.statusLevel = level
}

func (m *Model) View() string {
	active := m.mgr.Active()
	if active == nil {
		return appStyle.Render("no open panes")
	}

	var b strings.Builder
	b.WriteString(m.tabStrip())
	b.WriteString("\n\n")

	editor := ""
	if engine := m.activeEngine(); engine != nil && engine.area != nil {
		editor = engine.area.View()
	}

	if active.Mode == pane.ModeSplit && !m.vp.Mobile() {
		w, _ := m.editorSize()
		preview := previewStyle.Render(renderPreview(active.Body(), w, m.cfg.PreviewTheme))
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, editorStyle.Render(editor), preview))
	} else {
		b.WriteString(editor)
	}

	b.WriteString("\n")
	if m.status != "" {
		style := statusStyle
		if m.statusLevel == pane.NoticeError {
			style = errorStatusStyle
		}
		b.WriteString(style.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("ctrl+←/→ panes · ctrl+p preview · ctrl+s save · ctrl+w close · ctrl+c quit"))

	return appStyle.Render(b.String())
}

func (m *Model) tabStrip() string {
	panes := m.mgr.Panes()
	active := m.mgr.Active()

	tabs := make([]string, 0, len(panes))
	for _, p := range panes {
		label := p.DisplayName
		if p.Dirty {
			label += dirtyMarkStyle.Render(" ●")
		}
		if active != nil && p.ID == active.ID {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// Run starts the workspace program.
func Run(mgr *pane.Manager, cfg *config.Config, vp *viewstate.Viewport) error {
	model := NewModel(mgr, cfg, vp)
	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
