package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/procmod/internal/core"
	"github.com/valter-silva-au/procmod/pkg/models"
)

// Editor modes.
const (
	modeBrowse = iota
	modeGrab
	modeInput
	modeConfirmDelete
)

// editableFields are cycled with tab while editing text.
var editableFields = []string{models.FieldBezeichnung, models.FieldHandlungsgrundlage}

type editorKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	MoveUp    key.Binding
	MoveDown  key.Binding
	Grab      key.Binding
	Drop      key.Binding
	Add       key.Binding
	Edit      key.Binding
	Toggle    key.Binding
	Delete    key.Binding
	Save      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
	Cancel    key.Binding
	Commit    key.Binding
	NextField key.Binding
}

var editorKeys = editorKeyMap{
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	MoveUp:    key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move up")),
	MoveDown:  key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move down")),
	Grab:      key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "grab")),
	Drop:      key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "drop")),
	Add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
	Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
	Toggle:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "type")),
	Delete:    key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
	Save:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
	Quit:      key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
	Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Commit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
	NextField: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
}

func (k editorKeyMap) browseHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.MoveDown, k.MoveUp, k.Grab, k.Add, k.Edit, k.Toggle, k.Delete, k.Save, k.Quit}
}

func (k editorKeyMap) grabHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Drop, k.Cancel}
}

func (k editorKeyMap) inputHelp() []key.Binding {
	return []key.Binding{k.Commit, k.NextField, k.Cancel}
}

type editorModel struct {
	editor core.ActivityListEditor
	save   func() error
	keys   editorKeyMap
	help   help.Model

	items   models.ActivityList
	cursor  int
	mode    int
	grabbed int

	field int
	input textinput.Model

	width  int
	status string
	err    error
}

var (
	editTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("238"))
	grabbedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	classStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Bold(true)
	inputStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newEditorModel(editor core.ActivityListEditor, save func() error) editorModel {
	ti := textinput.New()
	ti.TextStyle = inputStyle
	ti.Prompt = ""
	return editorModel{
		editor:  editor,
		save:    save,
		keys:    editorKeys,
		help:    help.New(),
		items:   editor.List(),
		grabbed: -1,
		input:   ti,
	}
}

func (m editorModel) Init() tea.Cmd {
	return nil
}

func (m editorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = size.Width
		m.help.Width = size.Width
		return m, nil
	}
	if m.mode == modeInput {
		return m.updateInput(msg)
	}
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.mode {
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		case modeGrab:
			return m.updateGrab(msg)
		default:
			return m.updateBrowse(msg)
		}
	}
	return m, nil
}

func (m editorModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	m.err = nil
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.persist()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.cursor = clamp(m.cursor-1, len(m.items))
	case key.Matches(msg, m.keys.Down):
		m.cursor = clamp(m.cursor+1, len(m.items))
	case key.Matches(msg, m.keys.MoveUp):
		if m.cursor > 0 {
			m.items = m.editor.Move(m.cursor, m.cursor-1)
			m.cursor--
			m.persist()
		}
	case key.Matches(msg, m.keys.MoveDown):
		if m.cursor < len(m.items)-1 {
			m.items = m.editor.Move(m.cursor, m.cursor+1)
			m.cursor++
			m.persist()
		}
	case key.Matches(msg, m.keys.Grab):
		if len(m.items) > 0 {
			m.mode = modeGrab
			m.grabbed = m.cursor
		}
	case key.Matches(msg, m.keys.Add):
		after := core.End
		if len(m.items) > 0 {
			after = m.cursor
		}
		m.items = m.editor.Insert(after, models.ActivityRecord{})
		if after == core.End {
			m.cursor = len(m.items) - 1
		} else {
			m.cursor = after + 1
		}
		m.persist()
		return m, m.startInput(0)
	case key.Matches(msg, m.keys.Edit):
		if len(m.items) > 0 {
			return m, m.startInput(0)
		}
	case key.Matches(msg, m.keys.Toggle):
		if len(m.items) > 0 {
			next := models.ActivityProcessClass
			if m.items[m.cursor].Typ == models.ActivityProcessClass {
				next = models.ActivityActivityGroup
			}
			m.apply(m.editor.EditField(m.cursor, models.FieldTyp, string(next)))
		}
	case key.Matches(msg, m.keys.Delete):
		if len(m.items) > 0 {
			m.mode = modeConfirmDelete
		}
	case key.Matches(msg, m.keys.Save):
		m.persist()
		if m.err == nil {
			m.status = "Draft saved."
		}
	}
	return m, nil
}

// updateGrab moves the cursor while an item is held; dropping moves the
// held item to the cursor position.
func (m editorModel) updateGrab(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		m.persist()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.cursor = clamp(m.cursor-1, len(m.items))
	case key.Matches(msg, m.keys.Down):
		m.cursor = clamp(m.cursor+1, len(m.items))
	case key.Matches(msg, m.keys.Drop):
		if m.cursor != m.grabbed {
			m.items = m.editor.Move(m.grabbed, m.cursor)
			m.status = fmt.Sprintf("Moved to position %d.", m.cursor+1)
			m.persist()
		}
		m.mode = modeBrowse
		m.grabbed = -1
	case key.Matches(msg, m.keys.Cancel):
		m.cursor = m.grabbed
		m.mode = modeBrowse
		m.grabbed = -1
	}
	return m, nil
}

// updateInput handles the commit keys and hands everything else, including
// cursor blinks, to the text input.
func (m editorModel) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, m.keys.ForceQuit):
			m.persist()
			return m, tea.Quit
		case key.Matches(k, m.keys.Cancel):
			m.stopInput()
			return m, nil
		case key.Matches(k, m.keys.Commit):
			m.commitInput()
			m.stopInput()
			return m, nil
		case key.Matches(k, m.keys.NextField):
			m.commitInput()
			return m, m.startInput((m.field + 1) % len(editableFields))
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m editorModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeBrowse
	if msg.String() != "y" {
		m.status = "Kept."
		return m, nil
	}
	list, err := m.editor.Remove(m.cursor)
	m.apply(list, err)
	m.cursor = clamp(m.cursor, len(m.items))
	return m, nil
}

func (m *editorModel) startInput(field int) tea.Cmd {
	m.mode = modeInput
	m.field = field
	rec := m.items[m.cursor]
	value := rec.Bezeichnung
	if editableFields[field] == models.FieldHandlungsgrundlage {
		value = rec.Handlungsgrundlage
	}
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *editorModel) stopInput() {
	m.input.Blur()
	m.mode = modeBrowse
}

func (m *editorModel) commitInput() {
	m.apply(m.editor.EditField(m.cursor, editableFields[m.field], m.input.Value()))
}

func (m *editorModel) apply(list models.ActivityList, err error) {
	m.items = list
	if err != nil {
		m.err = err
		return
	}
	m.persist()
}

func (m *editorModel) persist() {
	if m.save == nil {
		return
	}
	if err := m.save(); err != nil {
		m.err = err
	}
}

func (m editorModel) View() string {
	var b strings.Builder
	b.WriteString(editTitleStyle.Render(" Activity list "))
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		b.WriteString("  No activities. Press a to add one.\n")
	}
	for i, rec := range m.items {
		typ := "AG"
		if rec.Typ == models.ActivityProcessClass {
			typ = classStyle.Render("PK")
		}
		line := fmt.Sprintf("%3d  %s  %s", rec.Nr, typ, rec.Bezeichnung)
		if rec.Handlungsgrundlage != "" {
			line += helpStyle.Render("  (" + rec.Handlungsgrundlage + ")")
		}
		switch {
		case i == m.grabbed:
			line = grabbedStyle.Render("» " + line)
		case i == m.cursor:
			line = cursorStyle.Render("> " + line)
		default:
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch m.mode {
	case modeInput:
		fmt.Fprintf(&b, "%s: %s\n", editableFields[m.field], m.input.View())
		b.WriteString(m.help.ShortHelpView(m.keys.inputHelp()))
	case modeConfirmDelete:
		fmt.Fprintf(&b, "Delete activity %d? (y/N)", m.cursor+1)
	case modeGrab:
		b.WriteString(m.help.ShortHelpView(m.keys.grabHelp()))
	default:
		if m.err != nil {
			b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
			b.WriteString("\n")
		} else if m.status != "" {
			b.WriteString(m.status)
			b.WriteString("\n")
		}
		b.WriteString(m.help.ShortHelpView(m.keys.browseHelp()))
	}
	return b.String()
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the activity list interactively",
	Long: `Open the interactive activity-list editor.

Select with the arrow keys, reorder with K/J or grab an activity with space
and drop it at a new position. Changes are saved to the draft as they are made.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		p := tea.NewProgram(newEditorModel(Session.Editor(), Session.SaveDraft), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
}
